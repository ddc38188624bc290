package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/conf"
)

// Timer reports job timings as New Relic transactions.
// Typical usage:
//
//	timer := monitoring.GetTimer(logger)
//	defer timer.Close()
//	ctx, end := timer.New(ctx, "SynchronizeStatuses")
//	defer end()
//	endPass := timer.NewChild(ctx, "consent")
//	// run the pass
//	endPass()
type Timer interface {
	New(ctx context.Context, name string) (context.Context, func())
	NewChild(ctx context.Context, name string) func()
	Close()
}

type Config struct {
	LicenseKey string `conf:"NEW_RELIC_LICENSE_KEY"`
	Target     string `conf:"DEPLOYMENT_TARGET" conf_default:"local"`
	Timeout    int    `conf:"NEW_RELIC_CONNECTION_TIMEOUT_SECONDS" conf_default:"30"`
}

// GetTimer returns a New Relic backed timer, falling back to a no-op timer
// when the agent is not configured or cannot connect.
func GetTimer(logger logrus.FieldLogger) Timer {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		logger.Warnf("Invalid New Relic configuration. Default to no-op timer. %s", err.Error())
		return &noopTimer{}
	}
	if cfg.LicenseKey == "" {
		return &noopTimer{}
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(fmt.Sprintf("Vax-%s", cfg.Target)),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigEnabled(true),
		func(c *newrelic.Config) {
			c.HighSecurity = true
		},
	)
	if err != nil {
		logger.Warnf("Failed to instantiate New Relic application. Default to no-op timer. %s", err.Error())
		return &noopTimer{}
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if err = app.WaitForConnection(timeout); err != nil {
		logger.Warnf("Failed to establish connection to New Relic server in %s. Default to no-op timer.", timeout)
		return &noopTimer{}
	}

	logger.Info("Using New Relic backed timer.")
	return &timer{nr: app, logger: logger}
}

// validates that timer implements the interface
var _ Timer = &timer{}

type timer struct {
	nr     *newrelic.Application
	logger logrus.FieldLogger
}

func (t *timer) New(ctx context.Context, name string) (context.Context, func()) {
	txn := t.nr.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), func() { txn.End() }
}

func (t *timer) NewChild(ctx context.Context, name string) func() {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		t.logger.Warn("No transaction found. Cannot create child.")
		return noop
	}
	segment := txn.StartSegment(name)
	return func() { segment.End() }
}

func (t *timer) Close() {
	t.nr.Shutdown(30 * time.Second)
}

// validates that noopTimer implements the interface
var _ Timer = &noopTimer{}

type noopTimer struct{}

func (t *noopTimer) New(ctx context.Context, name string) (context.Context, func()) {
	return ctx, noop
}

func (t *noopTimer) NewChild(ctx context.Context, name string) func() {
	return noop
}

func (t *noopTimer) Close() {}

func noop() {}
