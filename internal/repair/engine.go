package repair

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentinel-ops/sentinel/internal/events"
)

// Limiter names used by the engine
const (
	limiterRepairs  = "repairs"
	limiterRestarts = "restarts"
)

// Engine executes registered repair workflows under rate limits and
// the static safety lists. Executions are serialized: no two
// workflows ever run concurrently.
type Engine struct {
	execMu sync.Mutex // serializes Execute

	regMu     sync.RWMutex
	workflows map[string]*Workflow
	order     []string

	config  *Config
	limiter *Limiter
	store   RecordStore       // optional, records logged best-effort
	events  events.EventStore // optional
}

// NewEngine creates a repair engine. The limiter is required; store
// and eventStore may be nil.
func NewEngine(cfg *Config, limiter *Limiter, store RecordStore, eventStore events.EventStore) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}

	limiter.Configure(limiterRepairs, cfg.RepairsPerHour, time.Hour)
	limiter.Configure(limiterRestarts, cfg.RestartsPerDay, 24*time.Hour)

	return &Engine{
		workflows: make(map[string]*Workflow),
		config:    cfg,
		limiter:   limiter,
		store:     store,
		events:    eventStore,
	}, nil
}

// Register adds a workflow definition. Step order is fixed from here on.
func (e *Engine) Register(wf *Workflow) error {
	if wf == nil {
		return fmt.Errorf("workflow is required")
	}
	if wf.ID == "" {
		return fmt.Errorf("workflow missing ID")
	}
	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", wf.ID)
	}
	for i := range wf.Steps {
		step := &wf.Steps[i]
		if step.Name == "" {
			return fmt.Errorf("workflow %s: step %d missing name", wf.ID, i)
		}
		if step.Action == nil {
			return fmt.Errorf("workflow %s: step %q has no action", wf.ID, step.Name)
		}
		switch step.Policy {
		case "", PolicyStop, PolicyContinue, PolicyRetry:
		default:
			return fmt.Errorf("workflow %s: step %q has unknown policy %q", wf.ID, step.Name, step.Policy)
		}
	}

	e.regMu.Lock()
	defer e.regMu.Unlock()

	if _, exists := e.workflows[wf.ID]; exists {
		return fmt.Errorf("workflow %s already registered", wf.ID)
	}
	e.workflows[wf.ID] = wf
	e.order = append(e.order, wf.ID)
	return nil
}

// Workflows returns registered workflows in registration order
func (e *Engine) Workflows() []*Workflow {
	e.regMu.RLock()
	defer e.regMu.RUnlock()

	out := make([]*Workflow, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.workflows[id])
	}
	return out
}

// RepairsRemaining reports how many executions the hourly limiter can
// still accept. For status display only.
func (e *Engine) RepairsRemaining() int {
	return e.limiter.Remaining(limiterRepairs)
}

// RestartsRemaining reports remaining restart-type executions today.
func (e *Engine) RestartsRemaining() int {
	return e.limiter.Remaining(limiterRestarts)
}

// Execute runs a workflow end to end and always returns a record,
// whatever happened. Rejections (unknown workflow, forbidden action,
// rate limit) yield a FAILED record with zero step outcomes; they are
// data, not errors.
func (e *Engine) Execute(ctx context.Context, workflowID string) *ExecutionRecord {
	e.execMu.Lock()
	defer e.execMu.Unlock()

	start := time.Now()
	record := &ExecutionRecord{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Timestamp:  start,
	}

	e.regMu.RLock()
	wf, ok := e.workflows[workflowID]
	e.regMu.RUnlock()
	if !ok {
		return e.reject(ctx, record, fmt.Sprintf("unknown workflow %q", workflowID))
	}

	// Precondition 1: no step may match a forbidden action category
	for i := range wf.Steps {
		if cat, forbidden := ScreenCommand(wf.Steps[i].Command); forbidden {
			return e.reject(ctx, record,
				fmt.Sprintf("step %q matches forbidden category %q", wf.Steps[i].Name, cat))
		}
	}

	// Preconditions 2 and 3: the hourly repair limit, plus the daily
	// restart limit for restart-type workflows. Checked and recorded
	// together, so a restart-limit rejection does not consume an
	// hourly repair slot.
	limits := []string{limiterRepairs}
	if wf.Restart {
		limits = append(limits, limiterRestarts)
	}
	if !e.limiter.AllowAll(limits...) {
		return e.reject(ctx, record, "rate limited")
	}

	e.logEvent(ctx, events.NewRepairEvent(events.EventTypeRepairStarted, wf.ID,
		events.SeverityInfo, fmt.Sprintf("executing workflow %s (%s)", wf.ID, wf.Name), nil))

	var (
		stopFired              bool
		requiredContinueFailed bool
	)

	for i := range wf.Steps {
		step := &wf.Steps[i]

		if stopFired {
			record.Steps = append(record.Steps, StepResult{
				Name:    step.Name,
				Outcome: OutcomeSkipped,
				Detail:  "skipped: earlier step stopped the workflow",
			})
			continue
		}

		sr, onFailure := e.runStep(ctx, wf, step)
		record.Steps = append(record.Steps, sr)

		if sr.Outcome != OutcomeFailed {
			continue
		}
		if onFailure == PolicyStop {
			stopFired = true
		} else if step.Required {
			requiredContinueFailed = true
		}
	}

	succeeded := 0
	for _, sr := range record.Steps {
		if sr.Outcome == OutcomeSucceeded {
			succeeded++
		}
	}

	switch {
	case stopFired:
		record.Overall = ResultFailed
	case requiredContinueFailed:
		record.Overall = ResultPartial
	default:
		record.Overall = ResultSuccess
	}
	record.Summary = fmt.Sprintf("%d/%d steps succeeded", succeeded, len(record.Steps))
	record.Duration = time.Since(start)

	e.storeRecord(ctx, record)

	severity := events.SeverityInfo
	if record.Overall != ResultSuccess {
		severity = events.SeverityWarning
	}
	e.logEvent(ctx, events.NewRepairEvent(events.EventTypeRepairCompleted, wf.ID, severity,
		fmt.Sprintf("workflow %s finished: %s (%s)", wf.ID, record.Overall, record.Summary),
		map[string]interface{}{"overall": string(record.Overall)}))

	return record
}

// runStep executes one step including its retry budget and the
// process safety gate. Returns the step result and, on failure, the
// policy to apply (STOP or CONTINUE after retry resolution).
func (e *Engine) runStep(ctx context.Context, wf *Workflow, step *Step) (StepResult, Policy) {
	start := time.Now()
	sr := StepResult{Name: step.Name}

	// The safety gate lives here, not in the action, so a
	// misconfigured workflow cannot bypass it
	if step.TargetProcess != "" && !IsSafeToTerminate(step.TargetProcess) {
		sr.Outcome = OutcomeFailed
		sr.Detail = fmt.Sprintf("process %q is not on the safe-to-terminate list", step.TargetProcess)
		sr.Duration = time.Since(start)
		return sr, failurePolicy(step.Policy, wf)
	}

	attempts := 1
	if step.Policy == PolicyRetry {
		attempts = step.MaxAttempts
		if attempts <= 0 {
			attempts = 2
		}
	}

	for i := 0; i < attempts; i++ {
		sr.Attempts++
		ok, detail := e.invoke(ctx, step)
		sr.Detail = detail
		if ok {
			sr.Outcome = OutcomeSucceeded
			sr.Duration = time.Since(start)
			return sr, ""
		}
	}

	sr.Outcome = OutcomeFailed
	sr.Duration = time.Since(start)
	return sr, failurePolicy(step.Policy, wf)
}

// failurePolicy resolves a step's policy to the behavior applied
// after a definitive failure: STOP or CONTINUE.
func failurePolicy(p Policy, wf *Workflow) Policy {
	switch p {
	case PolicyContinue:
		return PolicyContinue
	case PolicyRetry:
		if wf.OnRetryExhausted == PolicyContinue {
			return PolicyContinue
		}
		return PolicyStop
	default:
		return PolicyStop
	}
}

// invoke runs the step's action once under its timeout. A deadline
// expiry is a definitive failure; the underlying external operation
// is disowned, not killed.
func (e *Engine) invoke(ctx context.Context, step *Step) (bool, string) {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = e.config.DefaultStepTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		ok     bool
		detail string
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{false, fmt.Sprintf("action panicked: %v", r)}
			}
		}()
		ok, detail := step.Action.Run(sctx)
		done <- outcome{ok, detail}
	}()

	select {
	case <-sctx.Done():
		return false, fmt.Sprintf("timed out after %v", timeout)
	case r := <-done:
		return r.ok, r.detail
	}
}

// reject finalizes a record refused before any step ran
func (e *Engine) reject(ctx context.Context, record *ExecutionRecord, summary string) *ExecutionRecord {
	record.Overall = ResultFailed
	record.Summary = summary
	record.Duration = time.Since(record.Timestamp)

	e.storeRecord(ctx, record)
	e.logEvent(ctx, events.NewRepairEvent(events.EventTypeRepairRejected, record.WorkflowID,
		events.SeverityWarning,
		fmt.Sprintf("workflow %s rejected: %s", record.WorkflowID, summary), nil))

	return record
}

// storeRecord appends a record to the audit trail, best-effort
func (e *Engine) storeRecord(ctx context.Context, record *ExecutionRecord) {
	if e.store == nil {
		return
	}
	if err := e.store.StoreRepairRecord(ctx, record); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to store repair record for %s: %v\n", record.WorkflowID, err)
	}
}

// logEvent records an audit event, best-effort
func (e *Engine) logEvent(ctx context.Context, event *events.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.StoreEvent(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to log event %s: %v\n", event.Type, err)
	}
}
