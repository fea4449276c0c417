package repair

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds repair engine configuration
type Config struct {
	// RepairsPerHour caps all workflow executions
	// Default: 5
	RepairsPerHour int `json:"repairs_per_hour"`

	// RestartsPerDay additionally caps restart-type workflows
	// Default: 10
	RestartsPerDay int `json:"restarts_per_day"`

	// DefaultStepTimeout bounds steps that carry no timeout of their own
	// Default: 60s
	DefaultStepTimeout time.Duration `json:"default_step_timeout"`

	// LimiterStatePath is where rate limiter windows are persisted
	// Default: .sentinel/ratelimit-state.json
	LimiterStatePath string `json:"limiter_state_path"`
}

// DefaultConfig returns default repair engine configuration
func DefaultConfig() *Config {
	return &Config{
		RepairsPerHour:     5,
		RestartsPerDay:     10,
		DefaultStepTimeout: 60 * time.Second,
		LimiterStatePath:   ".sentinel/ratelimit-state.json",
	}
}

// LoadFromEnv loads repair configuration from environment variables
// Environment variables override default values
// Prefix: SENTINEL_REPAIR_
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if val := os.Getenv("SENTINEL_REPAIR_REPAIRS_PER_HOUR"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.RepairsPerHour = n
		}
	}

	if val := os.Getenv("SENTINEL_REPAIR_RESTARTS_PER_DAY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.RestartsPerDay = n
		}
	}

	if val := os.Getenv("SENTINEL_REPAIR_DEFAULT_STEP_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.DefaultStepTimeout = d
		}
	}

	if val := os.Getenv("SENTINEL_REPAIR_LIMITER_STATE_PATH"); val != "" {
		cfg.LimiterStatePath = val
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Warning: invalid repair config from environment: %v (using defaults)\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Validate checks that the configuration has safe and reasonable values
func (c *Config) Validate() error {
	if c.RepairsPerHour <= 0 {
		return fmt.Errorf("repairs_per_hour must be positive, got %d", c.RepairsPerHour)
	}

	if c.RestartsPerDay <= 0 {
		return fmt.Errorf("restarts_per_day must be positive, got %d", c.RestartsPerDay)
	}

	if c.DefaultStepTimeout <= 0 {
		return fmt.Errorf("default_step_timeout must be positive, got %v", c.DefaultStepTimeout)
	}

	return nil
}
