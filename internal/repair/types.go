package repair

import (
	"context"
	"time"
)

// Policy describes what happens when a step fails.
type Policy string

const (
	// PolicyStop aborts the workflow; remaining steps are SKIPPED
	PolicyStop Policy = "STOP"
	// PolicyContinue records the failure and runs the next step anyway
	PolicyContinue Policy = "CONTINUE"
	// PolicyRetry re-invokes the step up to MaxAttempts before falling
	// back to the workflow's OnRetryExhausted behavior
	PolicyRetry Policy = "RETRY"
)

// Outcome is the result of one step.
type Outcome string

const (
	// OutcomeSucceeded indicates the step's action reported success
	OutcomeSucceeded Outcome = "SUCCEEDED"
	// OutcomeFailed indicates the action failed, timed out, or was blocked
	OutcomeFailed Outcome = "FAILED"
	// OutcomeSkipped indicates the step never ran (a STOP fired earlier)
	OutcomeSkipped Outcome = "SKIPPED"
)

// OverallResult is the rollup of a workflow execution.
type OverallResult string

const (
	// ResultSuccess means every step succeeded or failed tolerably
	ResultSuccess OverallResult = "SUCCESS"
	// ResultPartial means required steps failed under CONTINUE policy
	ResultPartial OverallResult = "PARTIAL"
	// ResultFailed means a STOP fired on a required step or a
	// precondition rejected the run outright
	ResultFailed OverallResult = "FAILED"
)

// Action is the external collaborator behind a step. It reports
// success and a textual detail; the engine supplies the deadline
// through ctx and treats an expired deadline as failure.
type Action interface {
	Run(ctx context.Context) (ok bool, detail string)
}

// ActionFunc adapts a plain function to the Action interface
type ActionFunc func(ctx context.Context) (bool, string)

// Run implements Action
func (f ActionFunc) Run(ctx context.Context) (bool, string) {
	return f(ctx)
}

// Step is one remediation action in a workflow. Order within the
// workflow is significant and fixed.
type Step struct {
	// Name identifies the step in records and logs
	Name string
	// Action performs the remediation
	Action Action
	// Command is the textual form of the action, screened against the
	// forbidden-action list before anything runs
	Command string
	// TargetProcess is set when the action terminates a process; the
	// engine checks it against the safe-to-terminate list itself, so a
	// misconfigured workflow cannot bypass the check
	TargetProcess string
	// Required steps count toward the overall result
	Required bool
	// Policy picks the failure behavior (default STOP)
	Policy Policy
	// MaxAttempts bounds RETRY (default 2)
	MaxAttempts int
	// Timeout bounds one invocation (0 = engine default)
	Timeout time.Duration
}

// Workflow is an ordered, named repair procedure.
type Workflow struct {
	// ID uniquely identifies the workflow; checks escalate to it by ID
	ID string
	// Name is the human-readable workflow name
	Name string
	// Description says what the workflow fixes
	Description string
	// Restart marks restart-type operations, which draw from the
	// daily restart limiter on top of the hourly repair limiter
	Restart bool
	// OnRetryExhausted is the fallback when a RETRY step runs out of
	// attempts: STOP or CONTINUE (default STOP)
	OnRetryExhausted Policy
	// Steps in execution order
	Steps []Step
}

// StepResult records one step's outcome within an execution.
type StepResult struct {
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	Detail   string        `json:"detail,omitempty"`
	Attempts int           `json:"attempts"`
	Duration time.Duration `json:"duration"`
}

// ExecutionRecord is the append-only audit record of one workflow
// execution. Never mutated after Execute returns.
type ExecutionRecord struct {
	ID         string        `json:"id"`
	WorkflowID string        `json:"workflow_id"`
	Timestamp  time.Time     `json:"timestamp"`
	Steps      []StepResult  `json:"steps"`
	Overall    OverallResult `json:"overall"`
	Summary    string        `json:"summary"`
	Duration   time.Duration `json:"duration"`
}

// RecordStore persists execution records as an append-only audit trail.
type RecordStore interface {
	StoreRepairRecord(ctx context.Context, record *ExecutionRecord) error
}
