package eventsource

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/vax/models"
	"github.com/schoolvax/vax-app/vax/testUtils"
)

// fakeReader hands out msgs in order, then cancels the run.
type fakeReader struct {
	msgs      []kafka.Message
	cancel    context.CancelFunc
	committed []int64
	commitErr error
	fetchErr  error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.fetchErr != nil {
		return kafka.Message{}, r.fetchErr
	}
	if len(r.msgs) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeEnqueuer struct {
	scopes []models.Scope
	fails  int
	calls  int
}

func (e *fakeEnqueuer) EnqueueSynchronize(ctx context.Context, scope models.Scope) error {
	e.calls++
	if e.fails > 0 {
		e.fails--
		return errors.New("pool exhausted")
	}
	e.scopes = append(e.scopes, scope)
	return nil
}

func newTestConsumer(t *testing.T, msgs []kafka.Message, enqueuer *fakeEnqueuer, retries uint64) (*Consumer, *fakeReader, context.Context, *test.Hook) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reader := &fakeReader{msgs: msgs, cancel: cancel}
	logger, hook := test.NewNullLogger()
	c := NewConsumer(reader, enqueuer, logger, retries)
	c.backOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return c, reader, ctx, hook
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "changes", Partition: 0, Offset: offset, Value: []byte(value)}
}

func TestParseChangeEvent(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		scope   models.Scope
		wantErr bool
	}{
		{"patient", `{"type":"consent","patient_id":12}`, models.Scope{PatientID: testUtils.Int64Ptr(12)}, false},
		{"session", `{"type":"attendance","session_id":3}`, models.Scope{SessionID: testUtils.Int64Ptr(3)}, false},
		{"both", `{"type":"vaccination","patient_id":12,"session_id":3}`,
			models.Scope{PatientID: testUtils.Int64Ptr(12), SessionID: testUtils.Int64Ptr(3)}, false},
		{"no scope", `{"type":"consent"}`, models.Scope{}, true},
		{"not json", `consent for 12`, models.Scope{}, true},
		{"wrong type", `{"patient_id":"twelve"}`, models.Scope{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseChangeEvent([]byte(tt.value))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedEvent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.scope, event.Scope())
		})
	}
}

func TestRun(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	c, reader, ctx, hook := newTestConsumer(t, []kafka.Message{
		message(1, `{"type":"consent","patient_id":12}`),
		message(2, `garbage`),
		message(3, `{"type":"attendance","session_id":3}`),
	}, enqueuer, 3)

	require.NoError(t, c.Run(ctx))

	assert.Equal(t, []int64{1, 2, 3}, reader.committed)
	assert.Equal(t, []models.Scope{
		{PatientID: testUtils.Int64Ptr(12)},
		{SessionID: testUtils.Int64Ptr(3)},
	}, enqueuer.scopes)

	var skipped int
	for _, e := range hook.AllEntries() {
		if e.Data["offset"] == int64(2) {
			skipped++
			assert.Contains(t, e.Message, "Skipping record change event")
		}
	}
	assert.Equal(t, 1, skipped)
}

func TestRunRetriesEnqueue(t *testing.T) {
	enqueuer := &fakeEnqueuer{fails: 2}
	c, reader, ctx, _ := newTestConsumer(t, []kafka.Message{
		message(7, `{"type":"triage","patient_id":4}`),
	}, enqueuer, 3)

	require.NoError(t, c.Run(ctx))
	assert.Equal(t, 3, enqueuer.calls)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestRunLeavesMessageUncommitted(t *testing.T) {
	enqueuer := &fakeEnqueuer{fails: 10}
	c, reader, ctx, _ := newTestConsumer(t, []kafka.Message{
		message(7, `{"type":"triage","patient_id":4}`),
	}, enqueuer, 2)

	err := c.Run(ctx)
	assert.ErrorContains(t, err, "failed to enqueue synchronize for patient 4")
	assert.Equal(t, 3, enqueuer.calls)
	assert.Empty(t, reader.committed)
}

func TestRunFetchAndCommitErrors(t *testing.T) {
	c, reader, ctx, _ := newTestConsumer(t, nil, &fakeEnqueuer{}, 1)
	reader.fetchErr = errors.New("broker unreachable")
	assert.ErrorContains(t, c.Run(ctx), "failed to fetch record change event: broker unreachable")

	c, reader, ctx, _ = newTestConsumer(t, []kafka.Message{message(9, `{"patient_id":1}`)}, &fakeEnqueuer{}, 1)
	reader.commitErr = errors.New("rebalance in progress")
	assert.ErrorContains(t, c.Run(ctx), "failed to commit offset 9")
}

func TestConfig(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "vax-status-sync", cfg.GroupID)
	assert.Equal(t, uint64(5), cfg.EnqueueRetries)

	require.NoError(t, conf.SetEnv(t, "KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,"))
	t.Cleanup(func() { assert.NoError(t, conf.UnsetEnv(t, "KAFKA_BROKERS")) })

	cfg, err = LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.brokers())
	assert.False(t, Config{Brokers: " , "}.Enabled())
}
