package database

import (
	"errors"

	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/log"
)

type Config struct {
	MaxOpenConns       int `conf:"VAX_DB_MAX_OPEN_CONNS" conf_default:"60"`
	MaxIdleConns       int `conf:"VAX_DB_MAX_IDLE_CONNS" conf_default:"40"`
	ConnMaxLifetimeMin int `conf:"VAX_DB_CONN_MAX_LIFETIME_MIN" conf_default:"5"`
	ConnMaxIdleTime    int `conf:"VAX_DB_CONN_MAX_IDLE_TIME" conf_default:"30"`

	DatabaseURL string `conf:"DATABASE_URL"`

	HealthCheckSec int `conf:"DB_HEALTH_CHECK_INTERVAL" conf_default:"5"`
	// ConnectTimeoutSec bounds how long startup keeps retrying an unreachable database.
	ConnectTimeoutSec int `conf:"VAX_DB_CONNECT_TIMEOUT_SEC" conf_default:"30"`
}

func LoadConfig() (cfg *Config, err error) {
	cfg = &Config{}
	if err := conf.Checkout(cfg); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("invalid config, DatabaseURL must be set")
	}

	log.Worker.Info("Successfully loaded configuration for Database.")

	return cfg, nil
}
