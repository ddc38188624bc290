package statusupdater

import (
	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/vax/constants"
)

type Config struct {
	BatchSize int `conf:"STATUS_SYNC_BATCH_SIZE" conf_default:"10000"`
	// AcademicYear pins the year eligibility is computed for. Zero follows the calendar.
	AcademicYear int `conf:"ACADEMIC_YEAR"`
	// WriteRetries is how many times a failed bulk write is retried in process.
	WriteRetries int `conf:"STATUS_SYNC_WRITE_RETRIES" conf_default:"3"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = constants.DefaultBatchSize
	}
	return cfg, nil
}
