// Package supervisor runs the top-level loops: periodic tiered health
// passes that escalate failures into repair workflows, and scheduling
// cycles that keep orchestrated agents running.
package supervisor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/events"
	"github.com/sentinel-ops/sentinel/internal/orchestrator"
	"github.com/sentinel-ops/sentinel/internal/repair"
)

// Supervisor owns the health loop and the scheduling loop. Loop
// iteration failures are logged and recorded; they never stop a loop.
type Supervisor struct {
	config    *Config
	checks    *checks.Engine
	repairs   *repair.Engine
	scheduler *orchestrator.Scheduler // optional
	events    events.EventStore       // optional

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	group   *errgroup.Group
}

// New creates a supervisor. The health engine and repair engine are
// required; the scheduler is optional.
func New(cfg *Config, healthEngine *checks.Engine, repairEngine *repair.Engine,
	scheduler *orchestrator.Scheduler, eventStore events.EventStore) (*Supervisor, error) {

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if healthEngine == nil {
		return nil, fmt.Errorf("health engine is required")
	}
	if repairEngine == nil {
		return nil, fmt.Errorf("repair engine is required")
	}

	return &Supervisor{
		config:    cfg,
		checks:    healthEngine,
		repairs:   repairEngine,
		scheduler: scheduler,
		events:    eventStore,
	}, nil
}

// Start launches the loops in background goroutines
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("supervisor already started")
	}
	s.started = true
	s.stopCh = make(chan struct{})

	g, gctx := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		s.healthLoop(gctx)
		return nil
	})
	if s.scheduler != nil {
		g.Go(func() error {
			s.scheduleLoop(gctx)
			return nil
		})
	}

	s.logEvent(ctx, events.NewSimpleEvent(events.EventTypeSupervisorStarted,
		events.SeverityInfo, "supervisor started"))

	return nil
}

// Stop signals the loops and waits for them to exit
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	group := s.group
	s.mu.Unlock()

	_ = group.Wait()

	s.logEvent(context.Background(), events.NewSimpleEvent(events.EventTypeSupervisorStopped,
		events.SeverityInfo, "supervisor stopped"))
}

// healthLoop runs tiered health passes. FREE runs every pass; LIGHT
// and DEEP run on their configured cadences, each sweeping the tiers
// below it as well.
func (s *Supervisor) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.HealthInterval)
	defer ticker.Stop()

	pass := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			pass++
			s.runHealthPass(ctx, s.tierForPass(pass))
		}
	}
}

// tierForPass selects the top tier for a pass counter
func (s *Supervisor) tierForPass(pass int) checks.Tier {
	if pass%s.DeepEvery() == 0 {
		return checks.TierDeep
	}
	if pass%s.LightEvery() == 0 {
		return checks.TierLight
	}
	return checks.TierFree
}

func (s *Supervisor) DeepEvery() int  { return s.config.DeepEvery }
func (s *Supervisor) LightEvery() int { return s.config.LightEvery }

// runHealthPass executes one health pass and handles any escalations
func (s *Supervisor) runHealthPass(ctx context.Context, tier checks.Tier) {
	defer s.recoverLoopPanic(ctx, "health pass")

	report := s.checks.RunTier(ctx, tier)
	if len(report.Escalations) == 0 {
		return
	}
	s.handleEscalations(ctx, report.Escalations)
}

// RunHealthPass runs one pass at the given tier on demand, with the
// same escalation handling the loop applies.
func (s *Supervisor) RunHealthPass(ctx context.Context, tier checks.Tier) *checks.BatchReport {
	report := s.checks.RunTier(ctx, tier)
	if len(report.Escalations) > 0 {
		s.handleEscalations(ctx, report.Escalations)
	}
	return report
}

// handleEscalations runs each escalated workflow once per pass, even
// when several checks escalate to the same workflow, then re-runs the
// originating checks to confirm the repair took.
func (s *Supervisor) handleEscalations(ctx context.Context, escalations []checks.Escalation) {
	seen := make(map[string]bool)
	originating := make(map[string][]string)
	var order []string

	for _, esc := range escalations {
		if esc.WorkflowID == "" {
			continue
		}
		if !seen[esc.WorkflowID] {
			seen[esc.WorkflowID] = true
			order = append(order, esc.WorkflowID)
		}
		originating[esc.WorkflowID] = append(originating[esc.WorkflowID], esc.CheckID)
	}

	for _, workflowID := range order {
		record := s.repairs.Execute(ctx, workflowID)
		fmt.Printf("Repair %s: %s (%s)\n", workflowID, record.Overall, record.Summary)

		if record.Overall == repair.ResultFailed {
			continue
		}

		// Confirm the repair took by re-running the checks that escalated
		for _, checkID := range originating[workflowID] {
			result, err := s.checks.RunCheck(ctx, checkID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to re-run check %s after repair: %v\n", checkID, err)
				continue
			}
			fmt.Printf("Re-check %s after %s: %s\n", checkID, workflowID, result.Status)
		}
	}
}

// scheduleLoop runs orchestration cycles on the scheduler's interval
func (s *Supervisor) scheduleLoop(ctx context.Context) {
	ticker := time.NewTicker(s.scheduler.CycleInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runScheduleCycle(ctx)
		}
	}
}

func (s *Supervisor) runScheduleCycle(ctx context.Context) {
	defer s.recoverLoopPanic(ctx, "schedule cycle")

	summary := s.scheduler.RunCycle(ctx)
	for _, errMsg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "Warning: schedule cycle: %s\n", errMsg)
	}
}

// recoverLoopPanic keeps a loop alive through a panicking iteration
func (s *Supervisor) recoverLoopPanic(ctx context.Context, loop string) {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "Warning: %s panicked: %v (continuing)\n", loop, r)
		s.logEvent(ctx, events.NewSimpleEvent(events.EventTypeLoopError, events.SeverityError,
			fmt.Sprintf("%s panicked: %v", loop, r)))
	}
}

// logEvent records an audit event, best-effort
func (s *Supervisor) logEvent(ctx context.Context, event *events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.StoreEvent(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to log event %s: %v\n", event.Type, err)
	}
}
