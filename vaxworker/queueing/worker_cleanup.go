package queueing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/riverqueue/river"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/eligibility"
	"github.com/schoolvax/vax-app/vax/models"
	slackUtils "github.com/schoolvax/vax-app/vax/slack"
	"github.com/schoolvax/vax-app/vaxworker/cleanup"
	"github.com/schoolvax/vax-app/vaxworker/queueing/worker_types"
)

type CleanupIneligibleWorker struct {
	river.WorkerDefaults[worker_types.CleanupIneligibleArgs]
	deleteIneligible func(context.Context, models.StatusRepository, cleanup.Catalogue, int) (map[models.StatusKind]int64, error)
	store            models.StatusRepository
	catalogue        cleanup.Catalogue
	academicYear     int
	notifier         slackUtils.Notifier
	logger           logrus.FieldLogger
	now              func() time.Time
}

func NewCleanupIneligibleWorker(store models.StatusRepository, catalogue cleanup.Catalogue, academicYear int, notifier slackUtils.Notifier, logger logrus.FieldLogger) *CleanupIneligibleWorker {
	return &CleanupIneligibleWorker{
		deleteIneligible: cleanup.DeleteIneligibleStatuses,
		store:            store,
		catalogue:        catalogue,
		academicYear:     academicYear,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

func (w *CleanupIneligibleWorker) Work(ctx context.Context, rjob *river.Job[worker_types.CleanupIneligibleArgs]) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx = log.NewStructuredLoggerEntry(w.logger, ctx)
	ctx, logger := log.SetCtxLogger(ctx, "transaction_id", uuid.New())
	environment := conf.GetEnv("DEPLOYMENT_TARGET")

	year := w.academicYear
	if year == 0 {
		year = eligibility.AcademicYear(w.now())
	}

	deleted, err := w.deleteIneligible(ctx, w.store, w.catalogue, year)
	if err != nil {
		logger.Error(errors.Wrap(err, "failed to process job: "+worker_types.CleanupIneligibleKind))
		if rjob.Attempt >= rjob.MaxAttempts {
			slackUtils.SendSlackMessage(ctx, logger, w.notifier, slackUtils.AlertsChannel(),
				fmt.Sprintf("%s: %s in %s env.", slackUtils.FailureMsg, constants.CleanupFailedErr, environment), false)
		}
		return err
	}

	var total int64
	for _, n := range deleted {
		total += n
	}
	logger.WithField("deleted", total).Info("Finished removing ineligible statuses")
	return nil
}
