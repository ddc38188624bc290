package queueing

import (
	"github.com/schoolvax/vax-app/conf"
	"github.com/schoolvax/vax-app/vax/constants"
)

type Config struct {
	PoolSize        int    `conf:"WORKER_POOL_SIZE" conf_default:"4"`
	MaxAttempts     int    `conf:"SYNC_MAX_ATTEMPTS" conf_default:"6"`
	CatchUpSchedule string `conf:"CATCH_UP_SCHEDULE"`
	CleanupSchedule string `conf:"CLEANUP_SCHEDULE"`
	// CatalogueTTLSec bounds how stale the cached programme list may be.
	CatalogueTTLSec int `conf:"PROGRAMME_CACHE_TTL_SEC" conf_default:"300"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := conf.Checkout(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.CatchUpSchedule == "" {
		cfg.CatchUpSchedule = constants.DefaultCatchUpSchedule
	}
	if cfg.CleanupSchedule == "" {
		cfg.CleanupSchedule = constants.DefaultCleanupSchedule
	}
	return cfg, nil
}
