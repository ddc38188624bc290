package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"

	"github.com/schoolvax/vax-app/log"
)

// Connect opens a database/sql handle on the pgx driver and waits until the
// database answers or the configured timeout elapses.
func Connect(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute)
	db.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Second)

	if err := waitFor(ctx, cfg, db.PingContext); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "failed to reach database")
	}
	return db, nil
}

// ConnectPool opens a pgx pool with the same limits as Connect.
func ConnectPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolCfg, err := PoolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pgx pool")
	}

	if err := waitFor(ctx, cfg, pool.Ping); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to reach database")
	}
	return pool, nil
}

// PoolConfig translates Config into pgx pool settings.
func PoolConfig(cfg *Config) (*pgxpool.Config, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse database url")
	}

	maxConns, err := safecast.ToInt32(cfg.MaxOpenConns)
	if err != nil {
		return nil, errors.Wrap(err, "invalid max open connections")
	}

	poolCfg.MaxConns = maxConns
	poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleTime) * time.Second
	poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifetimeMin) * time.Minute
	poolCfg.HealthCheckPeriod = time.Duration(cfg.HealthCheckSec) * time.Second
	return poolCfg, nil
}

func waitFor(ctx context.Context, cfg *Config, ping func(context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutSec) * time.Second

	return backoff.RetryNotify(func() error {
		return ping(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Worker.Warnf("Database not reachable, retrying in %s: %s", next, err)
	})
}
