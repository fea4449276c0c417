package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sentinel-ops/sentinel/internal/budget"
	"github.com/sentinel-ops/sentinel/internal/events"
)

// Scheduler is the top-level orchestration loop: it reaps finished
// worker processes, computes free concurrency slots, and spawns the
// highest-priority idle agents that have pending work and an elapsed
// cooldown. Cycles are serialized; only spawned workers run
// concurrently with the supervisor.
type Scheduler struct {
	config   *Config
	registry *Registry
	queues   QueueInspector
	spawner  Spawner
	comms    CoordinationLog   // optional
	budget   *budget.Tracker   // optional, shared with the health engine
	events   events.EventStore // optional

	// handles tracks live processes per agent; only RunCycle touches it
	handles map[string]ProcessHandle

	// now is replaceable in tests
	now func() time.Time
}

// NewScheduler creates an orchestration scheduler. Registry, queue
// inspector, and spawner are required.
func NewScheduler(cfg *Config, registry *Registry, queues QueueInspector, spawner Spawner,
	comms CoordinationLog, tracker *budget.Tracker, eventStore events.EventStore) (*Scheduler, error) {

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if queues == nil {
		return nil, fmt.Errorf("queue inspector is required")
	}
	if spawner == nil {
		return nil, fmt.Errorf("spawner is required")
	}

	return &Scheduler{
		config:   cfg,
		registry: registry,
		queues:   queues,
		spawner:  spawner,
		comms:    comms,
		budget:   tracker,
		events:   eventStore,
		handles:  make(map[string]ProcessHandle),
		now:      time.Now,
	}, nil
}

// CycleInterval returns the configured pause between cycles
func (s *Scheduler) CycleInterval() time.Duration {
	return s.config.CycleInterval
}

// RunCycle performs one scheduling cycle. It always completes and
// returns a summary; per-agent failures become summary errors, never
// aborts.
func (s *Scheduler) RunCycle(ctx context.Context) *CycleSummary {
	start := s.now()
	summary := &CycleSummary{StartedAt: start}

	if s.budget != nil {
		s.budget.ResetIfNewDay()
	}

	// Agents reaped on a previous cycle become schedulable again
	for _, desc := range s.registry.All() {
		if desc.State == StateCompleted || desc.State == StateFailed {
			s.registry.SetState(desc.ID, StateIdle)
		}
	}

	s.reap(ctx, summary)

	running := 0
	for _, state := range s.registry.States() {
		if state == StateRunning {
			running++
		}
	}
	summary.Running = running
	summary.AvailableSlots = s.config.MaxConcurrent - running

	if summary.AvailableSlots > 0 {
		s.spawnCandidates(ctx, summary)
		summary.Running += summary.Spawned
	}

	summary.States = s.registry.States()
	summary.Duration = time.Since(start)

	if err := s.registry.SaveState(); err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("persist registry state: %v", err))
	}

	s.logEvent(ctx, events.NewSimpleEvent(events.EventTypeCycleSummary, events.SeverityInfo,
		fmt.Sprintf("cycle: reaped %d, spawned %d, running %d/%d",
			summary.Reaped, summary.Spawned, summary.Running, s.config.MaxConcurrent)))

	return summary
}

// reap polls every live process handle and transitions finished
// agents to COMPLETED or FAILED based on exit signal.
func (s *Scheduler) reap(ctx context.Context, summary *CycleSummary) {
	for _, desc := range s.registry.All() {
		if desc.State != StateRunning {
			continue
		}

		handle, ok := s.handles[desc.ID]
		if !ok {
			// No handle for a RUNNING agent: the process was disowned
			// (restart); make the agent schedulable again
			s.registry.SetState(desc.ID, StateIdle)
			continue
		}

		running, exitCode, err := handle.Poll()
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("poll %s: %v", desc.ID, err))
			s.registry.SetState(desc.ID, StateFailed)
			delete(s.handles, desc.ID)
			summary.Reaped++
			continue
		}
		if running {
			continue
		}

		state := StateCompleted
		severity := events.SeverityInfo
		if exitCode != 0 {
			state = StateFailed
			severity = events.SeverityWarning
		}
		s.registry.SetState(desc.ID, state)
		delete(s.handles, desc.ID)
		summary.Reaped++

		s.logEvent(ctx, events.NewAgentEvent(events.EventTypeAgentReaped, desc.ID, severity,
			fmt.Sprintf("agent %s finished with exit code %d (%s)", desc.ID, exitCode, state),
			map[string]interface{}{"exit_code": exitCode}))
	}
}

// spawnCandidates selects and spawns idle agents up to the cycle's
// available slots.
func (s *Scheduler) spawnCandidates(ctx context.Context, summary *CycleSummary) {
	now := s.now()

	var candidates []*Descriptor
	pending := make(map[string]int)

	for _, desc := range s.registry.All() {
		if desc.State != StateIdle {
			continue
		}

		n, err := s.queues.PendingWork(ctx, desc.ID)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("pending work for %s: %v", desc.ID, err))
			continue
		}
		if n <= 0 {
			continue
		}

		// Per-agent cooldown: an agent spawned at T is not respawned
		// before T + MinInterval
		if !desc.LastSpawn.IsZero() && now.Sub(desc.LastSpawn) < desc.MinInterval {
			continue
		}

		pending[desc.ID] = n
		candidates = append(candidates, desc)
	}

	// Priority rank ascending; ties broken by longest time since last
	// spawn, then by registration order
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.LastSpawn.Equal(b.LastSpawn) {
			return a.LastSpawn.Before(b.LastSpawn)
		}
		return a.regOrder < b.regOrder
	})

	view := s.readCoordinationView(ctx, summary)

	for _, desc := range candidates {
		if summary.Spawned >= summary.AvailableSlots {
			break
		}

		// An external claim skips the candidate without consuming its
		// cooldown: LastSpawn stays untouched
		if view.ConflictsWith(desc.ID, desc.Resources) {
			summary.Skipped = append(summary.Skipped, SkippedAgent{
				AgentID: desc.ID,
				Reason:  "resources claimed by another session",
			})
			s.logEvent(ctx, events.NewAgentEvent(events.EventTypeAgentSkipped, desc.ID,
				events.SeverityInfo,
				fmt.Sprintf("agent %s skipped: resources claimed by another session", desc.ID), nil))
			continue
		}

		units := desc.UnitsPerSpawn
		if units <= 0 {
			units = 1
		}

		handle, err := s.spawner.Spawn(ctx, desc, units)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("spawn %s: %v", desc.ID, err))
			continue
		}

		s.handles[desc.ID] = handle
		s.registry.MarkSpawned(desc.ID, now)
		summary.Spawned++

		s.logEvent(ctx, events.NewAgentEvent(events.EventTypeAgentSpawned, desc.ID,
			events.SeverityInfo,
			fmt.Sprintf("spawned agent %s with %d units (pending %d)", desc.ID, units, pending[desc.ID]),
			map[string]interface{}{"units": units, "pending": pending[desc.ID]}))

		s.appendCoordination(ctx, CoordinationEvent{
			Timestamp: now,
			AgentID:   desc.ID,
			Type:      "spawned",
			Message:   fmt.Sprintf("spawned with %d units", units),
		})
	}
}

// readCoordinationView snapshots the shared status source once per
// cycle. A read failure degrades to "no claims" with a recorded error.
func (s *Scheduler) readCoordinationView(ctx context.Context, summary *CycleSummary) *CoordinationView {
	if s.comms == nil {
		return nil
	}
	view, err := s.comms.Read(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("read coordination log: %v", err))
		return nil
	}
	return view
}

// appendCoordination writes an audit entry to the coordination log,
// best-effort
func (s *Scheduler) appendCoordination(ctx context.Context, event CoordinationEvent) {
	if s.comms == nil {
		return
	}
	if err := s.comms.Append(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to append coordination event: %v\n", err)
	}
}

// logEvent records an audit event, best-effort
func (s *Scheduler) logEvent(ctx context.Context, event *events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.StoreEvent(ctx, event); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to log event %s: %v\n", event.Type, err)
	}
}
