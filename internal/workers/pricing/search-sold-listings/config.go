// internal/workers/pricing/search-sold-listings/config.go
package searchsoldlistings

import (
	"fmt"
	"time"

	"comps-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       60 * time.Second,
	}
}

// ConfigFrom maps the workers.search-sold-listings block onto Config.
func ConfigFrom(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = wcfg.Enabled
	if wcfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("maxJobsActive must be positive, got %d", c.MaxJobsActive)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}
