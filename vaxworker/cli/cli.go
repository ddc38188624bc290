package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/schoolvax/vax-app/log"
	"github.com/schoolvax/vax-app/vax/constants"
	"github.com/schoolvax/vax-app/vax/database"
	"github.com/schoolvax/vax-app/vax/eligibility"
	"github.com/schoolvax/vax-app/vax/health"
	"github.com/schoolvax/vax-app/vax/metrics"
	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/models/postgres"
	"github.com/schoolvax/vax-app/vax/monitoring"
	slackUtils "github.com/schoolvax/vax-app/vax/slack"
	"github.com/schoolvax/vax-app/vax/statusupdater"
	"github.com/schoolvax/vax-app/vaxworker/cleanup"
	"github.com/schoolvax/vax-app/vaxworker/eventsource"
	"github.com/schoolvax/vax-app/vaxworker/queueing"
)

const Name = "vaxworker"
const Usage = "Vaccination status worker CLI"

var (
	db   *sql.DB
	pool *pgxpool.Pool
)

func GetApp() *cli.App {
	return setUpApp()
}

func setUpApp() *cli.App {
	app := cli.NewApp()
	app.Name = Name
	app.Usage = Usage
	app.Version = constants.Version
	app.Before = func(c *cli.Context) error {
		log.SetupLoggers()
		cfg, err := database.LoadConfig()
		if err != nil {
			return err
		}
		if db, err = database.Connect(context.Background(), cfg); err != nil {
			return err
		}
		pool, err = database.ConnectPool(context.Background(), cfg)
		return err
	}
	app.After = func(c *cli.Context) error {
		if pool != nil {
			pool.Close()
		}
		if db != nil {
			return db.Close()
		}
		return nil
	}

	var patientID, sessionID int64
	var enqueue bool
	app.Commands = []cli.Command{
		{
			Name:  "start-worker",
			Usage: "Start the worker",
			Action: func(c *cli.Context) error {
				return startWorker(app.Writer)
			},
		},
		{
			Name:     "synchronize",
			Category: "Status tools",
			Usage:    "Synchronize derived statuses, optionally for one patient and/or session",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:        "patient-id",
					Usage:       "ID of the patient to synchronize",
					Destination: &patientID,
				},
				cli.Int64Flag{
					Name:        "session-id",
					Usage:       "ID of the session to synchronize",
					Destination: &sessionID,
				},
				cli.BoolFlag{
					Name:        "enqueue",
					Usage:       "Queue the run for the worker instead of running it here",
					Destination: &enqueue,
				},
			},
			Action: func(c *cli.Context) error {
				ctx := context.Background()
				scope := scopeFromFlags(patientID, sessionID)
				if enqueue {
					qCfg, err := queueing.LoadConfig()
					if err != nil {
						return err
					}
					enqueuer, err := queueing.NewEnqueuer(pool, qCfg.MaxAttempts)
					if err != nil {
						return err
					}
					if err := enqueuer.EnqueueSynchronize(ctx, scope); err != nil {
						return err
					}
					fmt.Fprintf(app.Writer, "Enqueued synchronize for %s\n", scope)
					return nil
				}

				synchronizer, _, err := newSynchronizer()
				if err != nil {
					return err
				}
				return runSynchronize(ctx, synchronizer, scope, app.Writer)
			},
		},
		{
			Name:     "cleanup-ineligible",
			Category: "Status tools",
			Usage:    "Remove derived statuses for patients no longer eligible for a programme",
			Action: func(c *cli.Context) error {
				syncCfg, err := statusupdater.LoadConfig()
				if err != nil {
					return err
				}
				year := syncCfg.AcademicYear
				if year == 0 {
					year = eligibility.AcademicYear(time.Now())
				}
				catalogue := eligibility.NewCatalogue(postgres.NewRepository(db), 0)
				deleted, err := cleanup.DeleteIneligibleStatuses(context.Background(),
					postgres.NewStatusRepository(pool), catalogue, year)
				if err != nil {
					return err
				}
				printCounts(app.Writer, "Removed", deleted)
				return nil
			},
		},
		{
			Name:  "health",
			Usage: "Check the worker health",
			Action: func(c *cli.Context) error {
				healthChecker := health.NewHealthChecker(db, pool, log.Health)
				if checkHealth(context.Background(), healthChecker) {
					return nil
				}
				return cli.NewExitError("Worker is unhealthy", 1)
			},
		},
	}
	return app
}

func newSynchronizer() (*statusupdater.Synchronizer, *eligibility.Catalogue, error) {
	syncCfg, err := statusupdater.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	qCfg, err := queueing.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	repository := postgres.NewRepository(db)
	catalogue := eligibility.NewCatalogue(repository, time.Duration(qCfg.CatalogueTTLSec)*time.Second)
	return statusupdater.NewSynchronizer(repository, postgres.NewStatusRepository(pool), catalogue, syncCfg), catalogue, nil
}

func startWorker(w io.Writer) error {
	fmt.Fprintln(w, "Starting vaxworker...")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	qCfg, err := queueing.LoadConfig()
	if err != nil {
		return err
	}
	syncCfg, err := statusupdater.LoadConfig()
	if err != nil {
		return err
	}
	synchronizer, catalogue, err := newSynchronizer()
	if err != nil {
		return err
	}
	recorder, err := metrics.NewRecorder("Count")
	if err != nil {
		return err
	}
	timer := monitoring.GetTimer(log.Worker)
	defer timer.Close()

	q, err := queueing.StartRiver(ctx, pool, qCfg, queueing.Dependencies{
		Synchronizer: synchronizer,
		Store:        postgres.NewStatusRepository(pool),
		Catalogue:    catalogue,
		AcademicYear: syncCfg.AcademicYear,
		Notifier:     slackUtils.NewNotifier(),
		Recorder:     recorder,
		Timer:        timer,
		Logger:       log.Worker,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := q.StopRiver(); err != nil {
			log.Worker.Errorf("Failed to stop river: %s", err)
		}
	}()

	if err := startConsumer(ctx, stop, qCfg); err != nil {
		return err
	}
	startHealthLogger(ctx, recorder)

	<-ctx.Done()
	fmt.Fprintln(w, "stopping vaxworker")
	return nil
}

// startConsumer reads record change events when a broker is configured.
// A consumer failure stops the worker so the orchestrator restarts it.
func startConsumer(ctx context.Context, stop context.CancelFunc, qCfg queueing.Config) error {
	cfg, err := eventsource.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Enabled() {
		log.Events.Info("No Kafka brokers configured, record change events are not consumed")
		return nil
	}

	enqueuer, err := queueing.NewEnqueuer(pool, qCfg.MaxAttempts)
	if err != nil {
		return err
	}
	reader := eventsource.NewReader(cfg)
	consumer := eventsource.NewConsumer(reader, enqueuer, log.Events, cfg.EnqueueRetries)

	go func() {
		defer reader.Close()
		if err := consumer.Run(ctx); err != nil {
			log.Events.Error(errors.Wrap(err, "record change consumer stopped"))
			stop()
		}
	}()
	return nil
}

func runSynchronize(ctx context.Context, synchronizer queueing.Synchronizer, scope models.Scope, w io.Writer) error {
	ctx = log.NewStructuredLoggerEntry(log.Sync, ctx)
	ctx, _ = log.SetCtxLogger(ctx, "transaction_id", uuid.New())

	result, err := synchronizer.Synchronize(ctx, scope)
	for _, kind := range models.StatusKinds {
		pass := result.Passes[kind]
		fmt.Fprintf(w, "%s: %d inserted, %d updated, %d unchanged, %d skipped, %d failed\n",
			kind, pass.Inserted, pass.Updated, pass.Unchanged, pass.Skipped, pass.Failed)
	}
	return err
}

func printCounts(w io.Writer, verb string, counts map[models.StatusKind]int64) {
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	for _, kind := range kinds {
		fmt.Fprintf(w, "%s %d %s statuses\n", verb, counts[models.StatusKind(kind)], kind)
	}
}

func scopeFromFlags(patientID, sessionID int64) models.Scope {
	var scope models.Scope
	if patientID > 0 {
		scope.PatientID = &patientID
	}
	if sessionID > 0 {
		scope.SessionID = &sessionID
	}
	return scope
}

type healthChecker interface {
	IsDatabaseOK(ctx context.Context) (string, bool)
	IsQueueDatabaseOK(ctx context.Context) (string, bool)
}

func checkHealth(ctx context.Context, healthChecker healthChecker) bool {
	entry := log.Health

	logFields := logrus.Fields{}
	logFields["type"] = "health"
	logFields["id"] = uuid.New()

	_, dbOk := healthChecker.IsDatabaseOK(ctx)
	if dbOk {
		logFields["db"] = "ok"
	} else {
		logFields["db"] = "error"
	}

	_, queueOk := healthChecker.IsQueueDatabaseOK(ctx)
	if queueOk {
		logFields["queue_db"] = "ok"
	} else {
		logFields["queue_db"] = "error"
	}

	entry.WithFields(logFields).Info()
	return dbOk && queueOk
}
