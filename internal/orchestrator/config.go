package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds orchestration scheduler configuration
type Config struct {
	// MaxConcurrent caps simultaneously running worker processes
	// Default: 3
	MaxConcurrent int `json:"max_concurrent"`

	// CycleInterval is the pause between scheduling cycles
	// Default: 30s
	CycleInterval time.Duration `json:"cycle_interval"`

	// RegistryStatePath is where agent lifecycle state is persisted
	// Default: .sentinel/agents-state.json
	RegistryStatePath string `json:"registry_state_path"`
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrent:     3,
		CycleInterval:     30 * time.Second,
		RegistryStatePath: ".sentinel/agents-state.json",
	}
}

// LoadFromEnv loads scheduler configuration from environment variables
// Environment variables override default values
// Prefix: SENTINEL_
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if val := os.Getenv("SENTINEL_MAX_CONCURRENT"); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}

	if val := os.Getenv("SENTINEL_CYCLE_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			cfg.CycleInterval = d
		}
	}

	if val := os.Getenv("SENTINEL_AGENTS_STATE_PATH"); val != "" {
		cfg.RegistryStatePath = val
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("Warning: invalid orchestrator config from environment: %v (using defaults)\n", err)
		return DefaultConfig()
	}

	return cfg
}

// Validate checks that the configuration has safe and reasonable values
func (c *Config) Validate() error {
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}

	if c.CycleInterval <= 0 {
		return fmt.Errorf("cycle_interval must be positive, got %v", c.CycleInterval)
	}

	return nil
}

// AgentsFile represents the agent roster loaded from agents.yaml.
type AgentsFile struct {
	Agents []AgentYAML `yaml:"agents"`
}

// AgentYAML is one agent descriptor in the YAML config file.
type AgentYAML struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Priority      int      `yaml:"priority"`
	UnitsPerSpawn int      `yaml:"units_per_spawn"`
	MinInterval   string   `yaml:"min_interval,omitempty"` // e.g. "10m"
	Resources     []string `yaml:"resources,omitempty"`
	Command       string   `yaml:"command,omitempty"`
}

// LoadAgents loads the agent roster from a YAML file.
func LoadAgents(path string) (*AgentsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file AgentsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return &file, nil
}

// ToDescriptor converts a YAML agent to a registry Descriptor.
func (a *AgentYAML) ToDescriptor() (*Descriptor, error) {
	if a.ID == "" {
		return nil, fmt.Errorf("agent missing id")
	}

	units := a.UnitsPerSpawn
	if units <= 0 {
		units = 1
	}

	var minInterval time.Duration
	if a.MinInterval != "" {
		d, err := time.ParseDuration(a.MinInterval)
		if err != nil {
			return nil, fmt.Errorf("agent %s: invalid min_interval %q: %w", a.ID, a.MinInterval, err)
		}
		minInterval = d
	}

	return &Descriptor{
		ID:            a.ID,
		Name:          a.Name,
		Priority:      a.Priority,
		UnitsPerSpawn: units,
		MinInterval:   minInterval,
		Resources:     a.Resources,
		Command:       a.Command,
		State:         StateIdle,
	}, nil
}

// RegisterFromConfig converts every configured agent and registers it,
// preserving file order.
func RegisterFromConfig(registry *Registry, file *AgentsFile) error {
	for i := range file.Agents {
		desc, err := file.Agents[i].ToDescriptor()
		if err != nil {
			return err
		}
		if err := registry.Register(desc); err != nil {
			return err
		}
	}
	return nil
}

// DefaultAgents returns a default agent roster.
func DefaultAgents() *AgentsFile {
	return &AgentsFile{
		Agents: []AgentYAML{
			{
				ID:            "guardian",
				Name:          "Health guardian",
				Priority:      1,
				UnitsPerSpawn: 1,
				MinInterval:   "5m",
				Command:       "scripts/guardian.sh",
			},
			{
				ID:            "builder",
				Name:          "Feature builder",
				Priority:      2,
				UnitsPerSpawn: 3,
				MinInterval:   "10m",
				Resources:     []string{"src/"},
				Command:       "scripts/builder.sh",
			},
			{
				ID:            "tester",
				Name:          "Test runner",
				Priority:      3,
				UnitsPerSpawn: 5,
				MinInterval:   "15m",
				Resources:     []string{"tests/"},
				Command:       "scripts/tester.sh",
			},
		},
	}
}

// SaveDefaultAgents writes the default roster to a file.
func SaveDefaultAgents(path string) error {
	file := DefaultAgents()

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
