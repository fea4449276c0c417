package repair

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkflowsFile represents the workflow configuration loaded from
// repairs.yaml.
type WorkflowsFile struct {
	Workflows []WorkflowYAML `yaml:"workflows"`
}

// WorkflowYAML is one workflow definition in the YAML config file.
type WorkflowYAML struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	// Restart marks restart-type workflows (daily restart limit applies)
	Restart bool `yaml:"restart,omitempty"`

	// OnRetryExhausted: "stop" or "continue" (default stop)
	OnRetryExhausted string `yaml:"on_retry_exhausted,omitempty"`

	Steps []StepYAML `yaml:"steps"`
}

// StepYAML is one step in a YAML workflow definition.
type StepYAML struct {
	Name    string `yaml:"name"`
	Command string `yaml:"command"`

	// TargetProcess marks process-terminating steps for the safety gate
	TargetProcess string `yaml:"target_process,omitempty"`

	Required bool `yaml:"required"`

	// Policy: "stop", "continue", or "retry" (default stop)
	Policy      string `yaml:"policy,omitempty"`
	MaxAttempts int    `yaml:"max_attempts,omitempty"`

	// Timeout per invocation, e.g. "10s" (empty = engine default)
	Timeout string `yaml:"timeout,omitempty"`
}

// ActionFactory builds an action for a configured command. Supplied
// by the caller so this package stays independent of how actions
// execute.
type ActionFactory func(command string) Action

// LoadWorkflows loads workflow configuration from a YAML file.
func LoadWorkflows(path string) (*WorkflowsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var file WorkflowsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	return &file, nil
}

// ToWorkflow converts a YAML workflow to an engine Workflow using the
// given action factory.
func (w *WorkflowYAML) ToWorkflow(factory ActionFactory) (*Workflow, error) {
	if w.ID == "" {
		return nil, fmt.Errorf("workflow missing id")
	}
	if factory == nil {
		return nil, fmt.Errorf("action factory is required")
	}

	onExhausted, err := parsePolicy(w.OnRetryExhausted, PolicyStop)
	if err != nil {
		return nil, fmt.Errorf("workflow %s: %w", w.ID, err)
	}
	if onExhausted == PolicyRetry {
		return nil, fmt.Errorf("workflow %s: on_retry_exhausted must be stop or continue", w.ID)
	}

	wf := &Workflow{
		ID:               w.ID,
		Name:             w.Name,
		Description:      w.Description,
		Restart:          w.Restart,
		OnRetryExhausted: onExhausted,
	}

	for i := range w.Steps {
		sy := &w.Steps[i]
		if sy.Command == "" {
			return nil, fmt.Errorf("workflow %s: step %q missing command", w.ID, sy.Name)
		}

		policy, err := parsePolicy(sy.Policy, PolicyStop)
		if err != nil {
			return nil, fmt.Errorf("workflow %s: step %q: %w", w.ID, sy.Name, err)
		}

		var timeout time.Duration
		if sy.Timeout != "" {
			timeout, err = time.ParseDuration(sy.Timeout)
			if err != nil {
				return nil, fmt.Errorf("workflow %s: step %q: invalid timeout %q: %w", w.ID, sy.Name, sy.Timeout, err)
			}
		}

		wf.Steps = append(wf.Steps, Step{
			Name:          sy.Name,
			Action:        factory(sy.Command),
			Command:       sy.Command,
			TargetProcess: sy.TargetProcess,
			Required:      sy.Required,
			Policy:        policy,
			MaxAttempts:   sy.MaxAttempts,
			Timeout:       timeout,
		})
	}

	return wf, nil
}

// RegisterFromConfig converts every configured workflow and registers
// it with the engine.
func RegisterFromConfig(engine *Engine, file *WorkflowsFile, factory ActionFactory) error {
	for i := range file.Workflows {
		wf, err := file.Workflows[i].ToWorkflow(factory)
		if err != nil {
			return err
		}
		if err := engine.Register(wf); err != nil {
			return err
		}
	}
	return nil
}

func parsePolicy(s string, fallback Policy) (Policy, error) {
	switch s {
	case "":
		return fallback, nil
	case "stop", "STOP":
		return PolicyStop, nil
	case "continue", "CONTINUE":
		return PolicyContinue, nil
	case "retry", "RETRY":
		return PolicyRetry, nil
	default:
		return fallback, fmt.Errorf("unknown policy %q", s)
	}
}

// DefaultWorkflows returns a default workflow set for a development
// environment with a local dev server.
func DefaultWorkflows() *WorkflowsFile {
	return &WorkflowsFile{
		Workflows: []WorkflowYAML{
			{
				ID:          "dev-server-restart",
				Name:        "Restart crashed dev server",
				Description: "Kill the existing process and restart the dev server cleanly",
				Restart:     true,
				Steps: []StepYAML{
					{
						Name:          "Kill port 3000 processes",
						Command:       `fuser -k 3000/tcp || true`,
						TargetProcess: "node",
						Required:      false,
						Policy:        "continue",
						Timeout:       "10s",
					},
					{
						Name:     "Wait for port release",
						Command:  `sleep 2`,
						Required: true,
						Timeout:  "5s",
					},
					{
						Name:        "Start dev server",
						Command:     `nohup npm run dev >> .sentinel/dev-server.log 2>&1 &`,
						Required:    true,
						Policy:      "retry",
						MaxAttempts: 2,
						Timeout:     "15s",
					},
				},
			},
			{
				ID:          "clear-build-cache",
				Name:        "Clear stale build cache",
				Description: "Remove the incremental build cache so the next compile starts clean",
				Steps: []StepYAML{
					{
						Name:     "Remove cache directory",
						Command:  `rm -rf .next/cache`,
						Required: true,
						Timeout:  "30s",
					},
					{
						Name:     "Touch restart marker",
						Command:  `touch .sentinel/cache-cleared`,
						Required: false,
						Policy:   "continue",
						Timeout:  "5s",
					},
				},
			},
		},
	}
}

// SaveDefaultWorkflows writes the default workflow set to a file.
func SaveDefaultWorkflows(path string) error {
	file := DefaultWorkflows()

	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
