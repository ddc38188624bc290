/*
Package eventsource turns record change events into synchronize jobs.

Each Kafka message names the patient and/or session whose consent, triage,
attendance or vaccination records changed:

	{"type": "consent", "patient_id": 12, "session_id": 3}

Messages are committed once their job is enqueued. Malformed messages are
committed without a job so they do not block the partition.
*/
package eventsource

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/schoolvax/vax-app/vax/models"
)

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Enqueuer interface {
	EnqueueSynchronize(ctx context.Context, scope models.Scope) error
}

var ErrMalformedEvent = errors.New("malformed record change event")

type ChangeEvent struct {
	Type      string `json:"type"`
	PatientID *int64 `json:"patient_id,omitempty"`
	SessionID *int64 `json:"session_id,omitempty"`
}

func (e ChangeEvent) Scope() models.Scope {
	return models.Scope{PatientID: e.PatientID, SessionID: e.SessionID}
}

// ParseChangeEvent decodes a message value. An event must name a patient or a session.
func ParseChangeEvent(value []byte) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return ChangeEvent{}, errors.Wrap(ErrMalformedEvent, err.Error())
	}
	if event.Scope().IsZero() {
		return ChangeEvent{}, errors.Wrap(ErrMalformedEvent, "no patient_id or session_id")
	}
	return event, nil
}

type Consumer struct {
	reader   Reader
	enqueuer Enqueuer
	logger   logrus.FieldLogger
	retries  uint64
	backOff  func() backoff.BackOff
}

func NewConsumer(reader Reader, enqueuer Enqueuer, logger logrus.FieldLogger, retries uint64) *Consumer {
	return &Consumer{
		reader:   reader,
		enqueuer: enqueuer,
		logger:   logger,
		retries:  retries,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run consumes until ctx is cancelled or a message cannot be fetched, enqueued or committed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to fetch record change event")
		}

		if err := c.handle(ctx, msg); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return errors.Wrapf(err, "failed to commit offset %d", msg.Offset)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	logger := c.logger.WithFields(logrus.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	event, err := ParseChangeEvent(msg.Value)
	if err != nil {
		logger.Warnf("Skipping record change event: %s", err)
		return nil
	}

	scope := event.Scope()
	b := backoff.WithContext(backoff.WithMaxRetries(c.backOff(), c.retries), ctx)
	err = backoff.RetryNotify(func() error {
		return c.enqueuer.EnqueueSynchronize(ctx, scope)
	}, b, func(err error, d time.Duration) {
		logger.Warnf("Retrying enqueue in %s: %s", d, err)
	})
	if err != nil {
		logger.Error(err)
		return errors.Wrapf(err, "failed to enqueue synchronize for %s", scope)
	}

	logger.WithFields(logrus.Fields{
		"type":  event.Type,
		"scope": scope.String(),
	}).Info("Enqueued synchronize")
	return nil
}
