package checks

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Tier is the cost class of a health check. FREE checks run every
// batch; LIGHT and DEEP checks only when a batch requests their tier
// or higher. DEEP checks additionally draw from the daily budget.
type Tier int

const (
	// TierFree checks cost nothing and run on every batch
	TierFree Tier = iota
	// TierLight checks are cheap but not free (small commands, quick probes)
	TierLight
	// TierDeep checks are expensive diagnostics gated by the daily budget
	TierDeep
)

// String returns a human-readable string representation of the tier
func (t Tier) String() string {
	switch t {
	case TierFree:
		return "FREE"
	case TierLight:
		return "LIGHT"
	case TierDeep:
		return "DEEP"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", t)
	}
}

// ParseTier parses a tier name (case-insensitive)
func ParseTier(s string) (Tier, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FREE":
		return TierFree, nil
	case "LIGHT":
		return TierLight, nil
	case "DEEP":
		return TierDeep, nil
	default:
		return TierFree, fmt.Errorf("unknown tier: %q", s)
	}
}

// Status is the classified outcome of one check execution.
type Status string

const (
	// StatusHealthy indicates the probe output matched a success pattern
	StatusHealthy Status = "HEALTHY"
	// StatusDegraded indicates the probe output matched a degraded pattern
	StatusDegraded Status = "DEGRADED"
	// StatusError indicates a failure pattern matched or the probe was unreachable
	StatusError Status = "ERROR"
	// StatusUnknown indicates no pattern matched, or the check was skipped
	StatusUnknown Status = "UNKNOWN"
)

// statusRank orders statuses from best to worst for rollups
func statusRank(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusUnknown:
		return 1
	case StatusDegraded:
		return 2
	case StatusError:
		return 3
	default:
		return 1
	}
}

// WorstStatus returns the worst status across results
// (ERROR > DEGRADED > UNKNOWN > HEALTHY). HEALTHY for an empty set.
func WorstStatus(results []*Result) Status {
	worst := StatusHealthy
	for _, r := range results {
		if statusRank(r.Status) > statusRank(worst) {
			worst = r.Status
		}
	}
	return worst
}

// Probe is the external collaborator behind a check: anything that
// produces textual output and an exit signal. A non-nil error means
// the probe itself could not be invoked or did not complete, which is
// distinct from output that matches a failure pattern.
type Probe interface {
	Run(ctx context.Context) (output string, err error)
}

// ProbeFunc adapts a plain function to the Probe interface
type ProbeFunc func(ctx context.Context) (string, error)

// Run implements Probe
func (f ProbeFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// Definition describes one health check. Immutable after registration.
type Definition struct {
	// ID uniquely identifies the check
	ID string
	// Name is the human-readable check name
	Name string
	// Component is the subsystem this check watches (e.g. "dev-server")
	Component string
	// Tier is the cost tier
	Tier Tier
	// Probe produces the output to classify
	Probe Probe
	// Timeout bounds one probe invocation (0 = engine default)
	Timeout time.Duration
	// SuccessPatterns classify output as HEALTHY, evaluated in order
	SuccessPatterns []string
	// FailurePatterns classify output as ERROR and take precedence
	// over success patterns when both match
	FailurePatterns []string
	// DegradedPatterns classify output as DEGRADED, evaluated after
	// failure patterns and before success patterns
	DegradedPatterns []string
	// EscalateTo names the repair workflow to trigger on ERROR (optional)
	EscalateTo string
	// CostEstimate is the budget charge for a DEEP check (0 = tracker default)
	CostEstimate float64
}

// Result is the record of one check execution. Created once, never mutated.
type Result struct {
	// CheckID references the Definition this result came from
	CheckID string `json:"check_id"`
	// CheckName is the definition's name, denormalized for display
	CheckName string `json:"check_name"`
	// Component is the definition's component label
	Component string `json:"component"`
	// Tier the check ran at
	Tier Tier `json:"tier"`
	// Status is the classified outcome
	Status Status `json:"status"`
	// Message is a human-readable explanation of the status
	Message string `json:"message"`
	// Output is the raw probe output
	Output string `json:"output"`
	// Unreachable is true when the probe itself could not be invoked,
	// as opposed to a failure pattern matching its output
	Unreachable bool `json:"unreachable"`
	// Duration is how long the probe ran
	Duration time.Duration `json:"duration"`
	// Timestamp is when the check executed
	Timestamp time.Time `json:"timestamp"`
}

// Escalation signals that a failed check wants a named repair workflow
// run. The engine emits these; it never runs repairs itself.
type Escalation struct {
	// CheckID is the check that failed
	CheckID string `json:"check_id"`
	// WorkflowID is the repair workflow to execute
	WorkflowID string `json:"workflow_id"`
	// Message describes why the escalation was raised
	Message string `json:"message"`
}

// BatchReport is the outcome of one RunTier call.
type BatchReport struct {
	// Tier the batch was requested at
	Tier Tier `json:"tier"`
	// Results in registration order, one per included check
	Results []*Result `json:"results"`
	// Escalations raised by ERROR results with an escalation target
	Escalations []Escalation `json:"escalations"`
	// StartedAt is when the batch began
	StartedAt time.Time `json:"started_at"`
	// Duration is total batch wall time
	Duration time.Duration `json:"duration"`
}

// Overall returns the worst status in the batch
func (b *BatchReport) Overall() Status {
	return WorstStatus(b.Results)
}

// ResultStore persists check results as an append-only audit trail.
type ResultStore interface {
	StoreCheckResult(ctx context.Context, result *Result) error
}
