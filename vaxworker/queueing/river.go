/*
Package queueing runs the status synchronization jobs on RiverQueue.

Three kinds of work are registered, each with its own worker:
1. SynchronizeStatuses: a run scoped to the patient and/or session named by a triggering event.
2. CatchUpStatuses: a scheduled run over every patient.
3. CleanupIneligibleStatuses: a scheduled removal of rows for pairs that are no longer eligible.

Triggers are inserted through an Enqueuer. Identical triggers that are still waiting are coalesced.
*/
package queueing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/metrics"
	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/monitoring"
	slackUtils "github.com/schoolvax/vax-app/vax/slack"
	"github.com/schoolvax/vax-app/vaxworker/cleanup"
	"github.com/schoolvax/vax-app/vaxworker/queueing/worker_types"
)

// Dependencies are the collaborators the workers need.
type Dependencies struct {
	Synchronizer Synchronizer
	Store        models.StatusRepository
	Catalogue    cleanup.Catalogue
	// AcademicYear pins eligibility for cleanup. Zero follows the calendar.
	AcademicYear int
	Notifier     slackUtils.Notifier
	Recorder     metrics.Recorder
	Timer        monitoring.Timer
	Logger       logrus.FieldLogger
}

type queue struct {
	ctx    context.Context
	client *river.Client[pgx.Tx]
}

func NewWorkers(deps Dependencies) *river.Workers {
	runner := &syncRunner{
		synchronizer: deps.Synchronizer,
		notifier:     deps.Notifier,
		recorder:     deps.Recorder,
		timer:        deps.Timer,
		logger:       deps.Logger,
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &SynchronizeWorker{runner: runner})
	river.AddWorker(workers, &CatchUpWorker{runner: runner})
	river.AddWorker(workers, NewCleanupIneligibleWorker(deps.Store, deps.Catalogue, deps.AcademicYear, deps.Notifier, deps.Logger))
	return workers
}

func PeriodicJobs(cfg Config) ([]*river.PeriodicJob, error) {
	catchUp, err := cron.ParseStandard(cfg.CatchUpSchedule)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid catch up schedule %q", cfg.CatchUpSchedule)
	}
	cleanupSchedule, err := cron.ParseStandard(cfg.CleanupSchedule)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid cleanup schedule %q", cfg.CleanupSchedule)
	}

	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			catchUp,
			func() (river.JobArgs, *river.InsertOpts) {
				return worker_types.CatchUpArgs{}, &river.InsertOpts{}
			},
			&river.PeriodicJobOpts{},
		),
		river.NewPeriodicJob(
			cleanupSchedule,
			func() (river.JobArgs, *river.InsertOpts) {
				return worker_types.CleanupIneligibleArgs{}, &river.InsertOpts{}
			},
			&river.PeriodicJobOpts{},
		),
	}, nil
}

func StartRiver(ctx context.Context, pool *pgxpool.Pool, cfg Config, deps Dependencies) (*queue, error) {
	periodicJobs, err := PeriodicJobs(cfg)
	if err != nil {
		return nil, err
	}

	logger := log.NewSlogLogger(constants.WorkerApplication)
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.PoolSize},
		},
		// a catch up over every patient can run far longer than river's one minute default
		JobTimeout:   -1,
		MaxAttempts:  cfg.MaxAttempts,
		Logger:       logger,
		Workers:      NewWorkers(deps),
		PeriodicJobs: periodicJobs,
	})
	if err != nil {
		logger.Error("failed to init river client", "error", err)
		return nil, errors.Wrap(err, "failed to init river client")
	}

	if err := riverClient.Start(ctx); err != nil {
		logger.Error("failed to start river client", "error", err)
		return nil, errors.Wrap(err, "failed to start river client")
	}

	return &queue{ctx: ctx, client: riverClient}, nil
}

func (q *queue) StopRiver() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return q.client.Stop(ctx)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QueueJobCount returns how many jobs have not reached a final state.
func QueueJobCount(ctx context.Context, db rowQuerier) (int, error) {
	row := db.QueryRow(ctx, `SELECT COUNT(*) FROM river_job WHERE state NOT IN ('completed', 'cancelled', 'discarded')`)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count queued jobs")
	}
	return count, nil
}
