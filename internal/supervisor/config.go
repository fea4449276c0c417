package supervisor

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds supervisor loop configuration
type Config struct {
	// HealthInterval is the pause between health passes. FREE checks
	// run every pass.
	// Default: 15s
	HealthInterval time.Duration `json:"health_interval"`

	// LightEvery is how many health passes elapse between LIGHT runs
	// Default: 4 (once a minute at the default interval)
	LightEvery int `json:"light_every"`

	// DeepEvery is how many health passes elapse between DEEP runs
	// Default: 40 (every ten minutes at the default interval)
	DeepEvery int `json:"deep_every"`
}

// DefaultConfig returns default supervisor configuration
func DefaultConfig() *Config {
	return &Config{
		HealthInterval: 15 * time.Second,
		LightEvery:     4,
		DeepEvery:      40,
	}
}

// LoadFromEnv loads supervisor configuration from environment variables
// Environment variables override default values
// Prefix: SENTINEL_
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if val := os.Getenv("SENTINEL_HEALTH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.HealthInterval = d
		}
	}

	if val := os.Getenv("SENTINEL_LIGHT_EVERY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.LightEvery = n
		}
	}

	if val := os.Getenv("SENTINEL_DEEP_EVERY"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.DeepEvery = n
		}
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Warning: invalid supervisor config from environment: %v (using defaults)\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Validate checks that the configuration has safe and reasonable values
func (c *Config) Validate() error {
	if c.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive, got %v", c.HealthInterval)
	}
	if c.LightEvery <= 0 {
		return fmt.Errorf("light_every must be positive, got %d", c.LightEvery)
	}
	if c.DeepEvery <= 0 {
		return fmt.Errorf("deep_every must be positive, got %d", c.DeepEvery)
	}
	return nil
}
