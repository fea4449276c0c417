package checks

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig represents the check configuration loaded from checks.yaml.
type FileConfig struct {
	// Enabled controls whether health checking runs automatically
	Enabled bool `yaml:"enabled"`

	// Checks is the list of check definitions, in execution order
	Checks []CheckYAML `yaml:"checks"`
}

// CheckYAML is one check definition in the YAML config file.
// Converted to a Definition for internal use.
type CheckYAML struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Component string `yaml:"component"`

	// Tier: "free", "light", or "deep"
	Tier string `yaml:"tier"`

	// Command the probe runs (interpreted by the probe factory)
	Command string `yaml:"command"`

	// Timeout per probe invocation, e.g. "10s" (empty = engine default)
	Timeout string `yaml:"timeout,omitempty"`

	SuccessPatterns  []string `yaml:"success_patterns,omitempty"`
	FailurePatterns  []string `yaml:"failure_patterns,omitempty"`
	DegradedPatterns []string `yaml:"degraded_patterns,omitempty"`

	// EscalateTo is the repair workflow to trigger when this check errors
	EscalateTo string `yaml:"escalate_to,omitempty"`

	// Cost is the budget charge for a deep check (0 = tracker default)
	Cost float64 `yaml:"cost,omitempty"`
}

// ProbeFactory builds a probe for a configured command. Supplied by
// the caller so this package stays independent of how probes execute.
type ProbeFactory func(command string) Probe

// LoadConfig loads check configuration from a YAML file.
func LoadConfig(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config FileConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return &config, nil
}

// ToDefinition converts a YAML check to an engine Definition using the
// given probe factory.
func (c *CheckYAML) ToDefinition(factory ProbeFactory) (*Definition, error) {
	if c.ID == "" {
		return nil, fmt.Errorf("check missing id")
	}
	if c.Command == "" {
		return nil, fmt.Errorf("check %s missing command", c.ID)
	}
	if factory == nil {
		return nil, fmt.Errorf("probe factory is required")
	}

	tier, err := ParseTier(c.Tier)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", c.ID, err)
	}

	var timeout time.Duration
	if c.Timeout != "" {
		timeout, err = time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("check %s: invalid timeout %q: %w", c.ID, c.Timeout, err)
		}
	}

	return &Definition{
		ID:               c.ID,
		Name:             c.Name,
		Component:        c.Component,
		Tier:             tier,
		Probe:            factory(c.Command),
		Timeout:          timeout,
		SuccessPatterns:  c.SuccessPatterns,
		FailurePatterns:  c.FailurePatterns,
		DegradedPatterns: c.DegradedPatterns,
		EscalateTo:       c.EscalateTo,
		CostEstimate:     c.Cost,
	}, nil
}

// RegisterFromConfig converts every configured check and registers it
// with the engine, preserving file order.
func RegisterFromConfig(engine *Engine, config *FileConfig, factory ProbeFactory) error {
	for i := range config.Checks {
		def, err := config.Checks[i].ToDefinition(factory)
		if err != nil {
			return err
		}
		if err := engine.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// DefaultConfig returns a sensible default check configuration for a
// development environment with a local dev server.
func DefaultConfig() *FileConfig {
	return &FileConfig{
		Enabled: true,
		Checks: []CheckYAML{
			{
				ID:              "dev-server-http",
				Name:            "Dev server HTTP probe",
				Component:       "dev-server",
				Tier:            "free",
				Command:         `curl -s -o /dev/null -w "%{http_code}" --max-time 5 http://localhost:3000/ | grep -q 200 && echo HEALTHY || echo UNHEALTHY`,
				Timeout:         "10s",
				SuccessPatterns: []string{"HEALTHY"},
				FailurePatterns: []string{"UNHEALTHY", "Connection refused"},
				EscalateTo:      "dev-server-restart",
			},
			{
				ID:              "dev-server-port",
				Name:            "Dev server port in use",
				Component:       "dev-server",
				Tier:            "free",
				Command:         `ss -ltn | grep -q ':3000' && echo PORT_IN_USE || echo PORT_FREE`,
				Timeout:         "5s",
				SuccessPatterns: []string{"PORT_IN_USE"},
				FailurePatterns: []string{"PORT_FREE"},
				EscalateTo:      "dev-server-restart",
			},
			{
				ID:               "build-errors",
				Name:             "Incremental build errors",
				Component:        "build",
				Tier:             "light",
				Command:          `test -f .next/build-error.log && echo BUILD_ERRORS || echo CLEAN`,
				Timeout:          "15s",
				SuccessPatterns:  []string{"CLEAN"},
				FailurePatterns:  []string{"BUILD_ERRORS"},
				DegradedPatterns: []string{"WARNINGS"},
				EscalateTo:       "clear-build-cache",
			},
			{
				ID:              "deep-log-analysis",
				Name:            "Dev server log analysis",
				Component:       "dev-server",
				Tier:            "deep",
				Command:         `tail -n 500 .sentinel/dev-server.log 2>/dev/null | grep -cE "FATAL|ECONNREFUSED" | grep -q '^0$' && echo LOG_CLEAN || echo LOG_ERRORS`,
				Timeout:         "30s",
				SuccessPatterns: []string{"LOG_CLEAN"},
				FailurePatterns: []string{"LOG_ERRORS"},
				EscalateTo:      "dev-server-restart",
				Cost:            0.25,
			},
		},
	}
}

// SaveDefaultConfig writes the default configuration to a file.
func SaveDefaultConfig(path string) error {
	config := DefaultConfig()

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
