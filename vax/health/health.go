package health

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *sql.DB and *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sqlPinger adapts a database/sql handle.
type sqlPinger interface {
	PingContext(ctx context.Context) error
}

type sqlAdapter struct{ db sqlPinger }

func (a sqlAdapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

type HealthChecker struct {
	db     sqlPinger
	pool   Pinger
	logger logrus.FieldLogger
}

func NewHealthChecker(db sqlPinger, pool Pinger, logger logrus.FieldLogger) HealthChecker {
	return HealthChecker{db: db, pool: pool, logger: logger}
}

func (h HealthChecker) IsDatabaseOK(ctx context.Context) (result string, ok bool) {
	if h.db == nil {
		return h.ping(ctx, "database", nil)
	}
	return h.ping(ctx, "database", sqlAdapter{h.db})
}

// IsQueueDatabaseOK checks the pool the job queue runs on.
func (h HealthChecker) IsQueueDatabaseOK(ctx context.Context) (result string, ok bool) {
	return h.ping(ctx, "queue database", h.pool)
}

func (h HealthChecker) ping(ctx context.Context, name string, p Pinger) (string, bool) {
	if p == nil {
		return name + " not configured", false
	}
	if err := p.Ping(ctx); err != nil {
		h.logger.Errorf("Health check: %s ping error: %s", name, err.Error())
		return name + " ping error", false
	}
	return "ok", true
}
