// internal/workers/pricing/aggregate-price-stats/config.go
package aggregatepricestats

import (
	"time"

	"comps-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func ConfigFrom(wcfg config.WorkerConfig) *Config {
	cfg := &Config{
		Enabled:       wcfg.Enabled,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       config.GetDuration(wcfg.Timeout),
	}
	if cfg.MaxJobsActive <= 0 {
		cfg.MaxJobsActive = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}
