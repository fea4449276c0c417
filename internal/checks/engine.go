package checks

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sentinel-ops/sentinel/internal/budget"
	"github.com/sentinel-ops/sentinel/internal/events"
)

// regexPrefix marks a pattern as a regular expression instead of a
// literal substring
const regexPrefix = "re:"

// DefaultCheckTimeout bounds probe invocations that carry no timeout
// of their own
const DefaultCheckTimeout = 30 * time.Second

// Engine executes registered checks in cost tiers and classifies
// their output. Detection only: an ERROR with an escalation target
// becomes an Escalation in the batch report, to be consumed by
// whoever runs repairs.
type Engine struct {
	mu    sync.RWMutex
	defs  []*Definition
	index map[string]*Definition

	budget *budget.Tracker
	store  ResultStore       // optional, results logged best-effort
	events events.EventStore // optional

	defaultTimeout time.Duration
}

// NewEngine creates a health check engine. The budget tracker is
// required; store and eventStore may be nil (results are then not
// persisted).
func NewEngine(tracker *budget.Tracker, store ResultStore, eventStore events.EventStore) (*Engine, error) {
	if tracker == nil {
		return nil, fmt.Errorf("budget tracker is required")
	}

	return &Engine{
		index:          make(map[string]*Definition),
		budget:         tracker,
		store:          store,
		events:         eventStore,
		defaultTimeout: DefaultCheckTimeout,
	}, nil
}

// Register adds a check definition. Definitions are immutable once
// registered; registration order is execution order.
func (e *Engine) Register(def *Definition) error {
	if def == nil {
		return fmt.Errorf("definition is required")
	}
	if def.ID == "" {
		return fmt.Errorf("check definition missing ID")
	}
	if def.Probe == nil {
		return fmt.Errorf("check %s has no probe", def.ID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.index[def.ID]; exists {
		return fmt.Errorf("check %s already registered", def.ID)
	}

	e.defs = append(e.defs, def)
	e.index[def.ID] = def
	return nil
}

// Definitions returns the registered checks in registration order
func (e *Engine) Definitions() []*Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*Definition, len(e.defs))
	copy(out, e.defs)
	return out
}

// RunTier executes every check whose tier is at or below the requested
// tier, in registration order. Individual check failures never abort
// the batch; the report always covers every included check.
func (e *Engine) RunTier(ctx context.Context, tier Tier) *BatchReport {
	e.budget.ResetIfNewDay()

	report := &BatchReport{
		Tier:      tier,
		StartedAt: time.Now(),
	}

	for _, def := range e.Definitions() {
		if def.Tier > tier {
			continue
		}

		result := e.runCheck(ctx, def)
		report.Results = append(report.Results, result)

		if result.Status == StatusError && def.EscalateTo != "" {
			esc := Escalation{
				CheckID:    def.ID,
				WorkflowID: def.EscalateTo,
				Message:    result.Message,
			}
			report.Escalations = append(report.Escalations, esc)
			e.logEvent(ctx, events.NewCheckEvent(events.EventTypeCheckEscalated, def.ID,
				events.SeverityWarning,
				fmt.Sprintf("check %s failed, escalating to workflow %s", def.ID, def.EscalateTo),
				map[string]interface{}{"workflow_id": def.EscalateTo}))
		}

		e.storeResult(ctx, result)
	}

	report.Duration = time.Since(report.StartedAt)

	e.logEvent(ctx, events.NewSimpleEvent(events.EventTypeCheckBatchCompleted, events.SeverityInfo,
		fmt.Sprintf("%s batch: %d checks, overall %s, %d escalations",
			tier, len(report.Results), report.Overall(), len(report.Escalations))))

	return report
}

// RunCheck executes a single registered check by ID. Used for
// post-repair verification and the CLI.
func (e *Engine) RunCheck(ctx context.Context, checkID string) (*Result, error) {
	e.mu.RLock()
	def, ok := e.index[checkID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown check: %s", checkID)
	}

	result := e.runCheck(ctx, def)
	e.storeResult(ctx, result)
	return result, nil
}

// runCheck executes one check end to end: budget gate, probe
// invocation with timeout, classification
func (e *Engine) runCheck(ctx context.Context, def *Definition) (result *Result) {
	start := time.Now()

	result = &Result{
		CheckID:   def.ID,
		CheckName: def.Name,
		Component: def.Component,
		Tier:      def.Tier,
		Timestamp: start,
	}

	// A panicking probe fails its own check only, never the batch
	defer func() {
		if r := recover(); r != nil {
			result.Status = StatusError
			result.Unreachable = true
			result.Message = fmt.Sprintf("probe panicked: %v", r)
			result.Duration = time.Since(start)
		}
	}()

	// Deep diagnostics must fit in today's budget
	if def.Tier == TierDeep {
		cost := e.budget.DeepCheckCost(def.CostEstimate)
		if !e.budget.Reserve(cost) {
			result.Status = StatusUnknown
			result.Message = "budget exhausted"
			result.Duration = time.Since(start)
			e.logEvent(ctx, events.NewCheckEvent(events.EventTypeBudgetExhausted, def.ID,
				events.SeverityWarning,
				fmt.Sprintf("deep check %s skipped: budget exhausted", def.ID), nil))
			return result
		}
	}

	timeout := def.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := def.Probe.Run(cctx)
	result.Output = output
	result.Duration = time.Since(start)

	if err != nil {
		// The probe itself could not be invoked or did not complete.
		// Distinct from a failure pattern matching probe output.
		result.Status = StatusError
		result.Unreachable = true
		result.Message = err.Error()
		return result
	}

	result.Status, result.Message = classify(def, output)
	return result
}

// classify applies the definition's patterns to probe output.
// Failure patterns take precedence, then degraded, then success;
// no match at all is UNKNOWN.
func classify(def *Definition, output string) (Status, string) {
	if pat, ok := matchAny(def.FailurePatterns, output); ok {
		return StatusError, fmt.Sprintf("failure pattern matched: %s", pat)
	}
	if pat, ok := matchAny(def.DegradedPatterns, output); ok {
		return StatusDegraded, fmt.Sprintf("degraded pattern matched: %s", pat)
	}
	if pat, ok := matchAny(def.SuccessPatterns, output); ok {
		return StatusHealthy, fmt.Sprintf("success pattern matched: %s", pat)
	}
	return StatusUnknown, "no pattern matched"
}

// matchAny returns the first pattern in the list that matches output.
// Patterns prefixed "re:" are regular expressions, anything else is a
// case-insensitive literal substring.
func matchAny(patterns []string, output string) (string, bool) {
	for _, pat := range patterns {
		if strings.HasPrefix(pat, regexPrefix) {
			expr := strings.TrimPrefix(pat, regexPrefix)
			re, err := regexp.Compile(expr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: invalid check pattern %q: %v\n", pat, err)
				continue
			}
			if re.MatchString(output) {
				return pat, true
			}
			continue
		}
		if strings.Contains(strings.ToLower(output), strings.ToLower(pat)) {
			return pat, true
		}
	}
	return "", false
}

// storeResult appends a result to the audit trail, best-effort
func (e *Engine) storeResult(ctx context.Context, result *Result) {
	if e.store == nil {
		return
	}
	if err := e.store.StoreCheckResult(ctx, result); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to store check result for %s: %v\n", result.CheckID, err)
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
