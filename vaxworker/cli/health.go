package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/health"
	"github.com/schoolvax/vax-app/vax/metrics"
	"github.com/schoolvax/vax-app/vaxworker/queueing"
)

type HealthLogger struct {
	logger    logrus.FieldLogger
	checker   healthChecker
	countJobs func(ctx context.Context) (int, error)
	recorder  metrics.Recorder
}

func NewHealthLogger(checker healthChecker, countJobs func(ctx context.Context) (int, error), recorder metrics.Recorder) *HealthLogger {
	return &HealthLogger{logger: log.Health, checker: checker, countJobs: countJobs, recorder: recorder}
}

// Log writes one health entry and publishes the job queue depth.
func (l *HealthLogger) Log(ctx context.Context) {
	logFields := logrus.Fields{}
	logFields["type"] = "health"
	logFields["id"] = uuid.New()

	if _, ok := l.checker.IsDatabaseOK(ctx); ok {
		logFields["db"] = "ok"
	} else {
		logFields["db"] = "error"
	}

	if _, ok := l.checker.IsQueueDatabaseOK(ctx); ok {
		logFields["queue_db"] = "ok"
	} else {
		logFields["queue_db"] = "error"
	}

	count, err := l.countJobs(ctx)
	if err != nil {
		l.logger.Warn(err)
	} else {
		logFields["queued_jobs"] = count
		err = l.recorder.PutSamples(ctx, metrics.Sample{
			Name:  "JobQueueCount",
			Value: float64(count),
			Dimensions: []metrics.Dimension{
				{Name: "Environment", Value: conf.GetEnv("DEPLOYMENT_TARGET")},
			},
		})
		if err != nil {
			l.logger.Warnf("Failed to publish job queue count: %s", err)
		}
	}

	l.logger.WithFields(logFields).Info()
}

type healthConfig struct {
	IntervalSec int `conf:"WORKER_HEALTH_INT_SEC"`
}

// startHealthLogger logs worker health on an interval until ctx is done.
// Nothing is logged when no interval is configured.
func startHealthLogger(ctx context.Context, recorder metrics.Recorder) {
	var cfg healthConfig
	if err := conf.Checkout(&cfg); err != nil {
		log.Health.Warnf("Worker health logging disabled: %s", err)
		return
	}
	if cfg.IntervalSec <= 0 {
		return
	}

	healthLogger := NewHealthLogger(health.NewHealthChecker(db, pool, log.Health), func(ctx context.Context) (int, error) {
		return queueing.QueueJobCount(ctx, pool)
	}, recorder)
	ticker := time.NewTicker(time.Duration(cfg.IntervalSec) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				healthLogger.Log(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
