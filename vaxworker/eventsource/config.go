package eventsource

import (
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/schoolvax/vax-app/conf"
)

type Config struct {
	Brokers string `conf:"KAFKA_BROKERS"`
	Topic   string `conf:"KAFKA_TOPIC" conf_default:"vaccination-record-changes"`
	GroupID string `conf:"KAFKA_GROUP_ID" conf_default:"vax-status-sync"`
	// EnqueueRetries bounds how often a failed enqueue is retried before the message is left uncommitted.
	EnqueueRetries uint64 `conf:"KAFKA_ENQUEUE_RETRIES" conf_default:"5"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := conf.Checkout(&cfg)
	return cfg, err
}

// Enabled reports whether any broker is configured.
func (c Config) Enabled() bool {
	return len(c.brokers()) > 0
}

func (c Config) brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewReader returns a consumer group reader for the configured topic.
func NewReader(cfg Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.brokers(),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
