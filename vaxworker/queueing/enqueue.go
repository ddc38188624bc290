/*
Enqueue.go has an interface and a method for instantiating a new River Client that satisfies the Enqueuer interface.
This allows the River client to be mocked for testing.
*/

package queueing

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vaxworker/queueing/worker_types"
)

// Enqueuer only handles inserting job entries into the appropriate table
type Enqueuer interface {
	EnqueueSynchronize(ctx context.Context, scope models.Scope) error
}

// synchronizeInsertOpts coalesces identical triggers while one is still
// waiting to run. A trigger arriving during a run is queued behind it.
func synchronizeInsertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// Creates a river client for the job queue. If the client does not call .Start(), then it is insert only
func NewEnqueuer(pool *pgxpool.Pool, maxAttempts int) (Enqueuer, error) {
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create river client")
	}
	return riverEnqueuer{riverClient}, nil
}

// RIVER implementation https://github.com/riverqueue/river
type riverEnqueuer struct {
	*river.Client[pgx.Tx]
}

func (q riverEnqueuer) EnqueueSynchronize(ctx context.Context, scope models.Scope) error {
	_, err := q.Insert(ctx, worker_types.NewSynchronizeArgs(scope), synchronizeInsertOpts())
	return errors.Wrapf(err, "failed to enqueue synchronize for %s", scope)
}
