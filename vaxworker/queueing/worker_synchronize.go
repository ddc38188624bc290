package queueing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/riverqueue/river"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/metrics"
	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/monitoring"
	slackUtils "github.com/schoolvax/vax-app/vax/slack"
	"github.com/schoolvax/vax-app/vax/statusupdater"
	"github.com/schoolvax/vax-app/vaxworker/queueing/worker_types"
)

type Synchronizer interface {
	Synchronize(ctx context.Context, scope models.Scope) (statusupdater.Result, error)
}

// syncRunner is shared by the triggered and the scheduled synchronize workers.
type syncRunner struct {
	synchronizer Synchronizer
	notifier     slackUtils.Notifier
	recorder     metrics.Recorder
	timer        monitoring.Timer
	logger       logrus.FieldLogger
}

func (r *syncRunner) run(ctx context.Context, scope models.Scope, attempt, maxAttempts int) error {
	ctx = log.NewStructuredLoggerEntry(r.logger, ctx)
	ctx, logger := log.SetLoggerFields(ctx, logrus.Fields{
		"transaction_id": uuid.New(),
		"scope":          scope.String(),
		"attempt":        attempt,
	})

	ctx, end := r.timer.New(ctx, worker_types.SynchronizeKind)
	defer end()

	result, err := r.synchronizer.Synchronize(ctx, scope)
	r.publish(ctx, result)

	if err != nil {
		logger.Error(errors.Wrap(err, constants.SyncFailedErr))
		if attempt >= maxAttempts {
			slackUtils.SendSlackMessage(ctx, logger, r.notifier, slackUtils.AlertsChannel(),
				fmt.Sprintf("%s: synchronize statuses for %s in %s env gave up after %d attempts: %s",
					slackUtils.FailureMsg, scope, conf.GetEnv("DEPLOYMENT_TARGET"), attempt, err), false)
		}
		return err
	}

	logger.WithFields(logrus.Fields{
		"inserted": result.Inserted(),
		"updated":  result.Updated(),
	}).Info("Finished synchronizing statuses")
	return nil
}

func (r *syncRunner) publish(ctx context.Context, result statusupdater.Result) {
	var samples []metrics.Sample
	for kind, pass := range result.Passes {
		dims := []metrics.Dimension{
			{Name: "Environment", Value: conf.GetEnv("DEPLOYMENT_TARGET")},
			{Name: "Kind", Value: string(kind)},
		}
		samples = append(samples,
			metrics.Sample{Name: "StatusesInserted", Value: float64(pass.Inserted), Dimensions: dims},
			metrics.Sample{Name: "StatusesUpdated", Value: float64(pass.Updated), Dimensions: dims},
			metrics.Sample{Name: "StatusesFailed", Value: float64(pass.Failed), Dimensions: dims},
		)
	}
	if err := r.recorder.PutSamples(ctx, samples...); err != nil {
		log.GetCtxLogger(ctx).Warnf("Failed to publish synchronize metrics: %s", err)
	}
}

type SynchronizeWorker struct {
	river.WorkerDefaults[worker_types.SynchronizeArgs]
	runner *syncRunner
}

func (w *SynchronizeWorker) Work(ctx context.Context, rjob *river.Job[worker_types.SynchronizeArgs]) error {
	return w.runner.run(ctx, rjob.Args.Scope(), rjob.Attempt, rjob.MaxAttempts)
}

// CatchUpWorker runs the scheduled synchronize over every patient.
type CatchUpWorker struct {
	river.WorkerDefaults[worker_types.CatchUpArgs]
	runner *syncRunner
}

func (w *CatchUpWorker) Work(ctx context.Context, rjob *river.Job[worker_types.CatchUpArgs]) error {
	return w.runner.run(ctx, models.Scope{}, rjob.Attempt, rjob.MaxAttempts)
}
