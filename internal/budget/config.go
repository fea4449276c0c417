package budget

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds daily budget configuration
type Config struct {
	// DailyLimit is the maximum cost in USD allowed per calendar day
	// 0.0 = unlimited
	// Default: 10.00
	DailyLimit float64 `json:"daily_limit"`

	// DefaultDeepCheckCost is the cost charged for a deep diagnostic check
	// when the check definition does not carry its own estimate
	// Default: 0.25
	DefaultDeepCheckCost float64 `json:"default_deep_check_cost"`

	// PersistStatePath is where budget state is persisted (for restart recovery)
	// Default: .sentinel/budget-state.json
	PersistStatePath string `json:"persist_state_path"`

	// Enabled controls whether budget gating is active
	// Default: true
	Enabled bool `json:"enabled"`
}

// DefaultConfig returns default budget configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled:              true,
		DailyLimit:           10.00,
		DefaultDeepCheckCost: 0.25,
		PersistStatePath:     ".sentinel/budget-state.json",
	}
}

// LoadFromEnv loads budget configuration from environment variables
// Environment variables override default values
// Prefix: SENTINEL_BUDGET_
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if val := os.Getenv("SENTINEL_BUDGET_ENABLED"); val != "" {
		cfg.Enabled = parseBool(val)
	}

	if val := os.Getenv("SENTINEL_BUDGET_DAILY_LIMIT"); val != "" {
		if limit, err := strconv.ParseFloat(val, 64); err == nil && limit >= 0 {
			cfg.DailyLimit = limit
		}
	}

	if val := os.Getenv("SENTINEL_BUDGET_DEEP_CHECK_COST"); val != "" {
		if cost, err := strconv.ParseFloat(val, 64); err == nil && cost >= 0 {
			cfg.DefaultDeepCheckCost = cost
		}
	}

	if val := os.Getenv("SENTINEL_BUDGET_PERSIST_STATE_PATH"); val != "" {
		cfg.PersistStatePath = val
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Warning: invalid budget config from environment: %v (using defaults)\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Validate checks that the configuration has safe and reasonable values
func (c *Config) Validate() error {
	if c.DailyLimit < 0 {
		return fmt.Errorf("daily_limit must be non-negative, got %.2f", c.DailyLimit)
	}

	if c.DefaultDeepCheckCost < 0 {
		return fmt.Errorf("default_deep_check_cost must be non-negative, got %.2f", c.DefaultDeepCheckCost)
	}

	return nil
}

// parseBool parses a boolean string
func parseBool(val string) bool {
	switch val {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return true
	}
}
