package orchestrator

import (
	"context"
	"time"
)

// AgentState is the lifecycle state of a worker agent.
type AgentState string

const (
	// StateIdle means the agent has no running process and may be scheduled
	StateIdle AgentState = "IDLE"
	// StateRunning means a spawned process is still executing
	StateRunning AgentState = "RUNNING"
	// StateCompleted means the last process exited cleanly
	StateCompleted AgentState = "COMPLETED"
	// StateFailed means the last process exited with a non-zero code
	StateFailed AgentState = "FAILED"
)

// Descriptor describes one worker agent type. Identity, priority, and
// cadence fields are fixed at registration; State and LastSpawn are
// the only fields the scheduler mutates, and they persist across
// cycles and restarts.
type Descriptor struct {
	// ID uniquely identifies the agent
	ID string `yaml:"id" json:"id"`
	// Name is the human-readable agent name
	Name string `yaml:"name" json:"name"`
	// Priority rank; lower = spawned first when slots are scarce
	Priority int `yaml:"priority" json:"priority"`
	// UnitsPerSpawn is the default unit-of-work count per spawn
	UnitsPerSpawn int `yaml:"units_per_spawn" json:"units_per_spawn"`
	// MinInterval is the cooldown between spawns of this agent
	MinInterval time.Duration `yaml:"min_interval" json:"min_interval"`
	// Resources are the files or directories the agent claims while
	// working, matched against coordination-log locks before a spawn
	Resources []string `yaml:"resources" json:"resources,omitempty"`
	// Command is the shell command the spawner runs for this agent
	Command string `yaml:"command" json:"command,omitempty"`

	// State is the current lifecycle state
	State AgentState `yaml:"-" json:"state"`
	// LastSpawn is when the agent was last spawned (zero = never)
	LastSpawn time.Time `yaml:"-" json:"last_spawn"`

	// regOrder is the stable tie-break for candidate sorting
	regOrder int
}

// ProcessHandle tracks one spawned worker process. Poll is a
// non-blocking status query.
type ProcessHandle interface {
	// Poll reports whether the process is still running; when it has
	// finished, exitCode carries the exit signal. err covers handles
	// that can no longer be queried at all.
	Poll() (running bool, exitCode int, err error)
}

// Spawner starts external worker processes. Supplied externally; the
// scheduler only issues spawn requests and keeps the returned handle.
type Spawner interface {
	Spawn(ctx context.Context, agent *Descriptor, units int) (ProcessHandle, error)
}

// QueueInspector reports how much pending work each agent has. The
// count comes from an external collaborator (a task file, a queue, a
// ticket system).
type QueueInspector interface {
	PendingWork(ctx context.Context, agentID string) (int, error)
}

// SessionStatus is one agent's last-known entry in the coordination log.
type SessionStatus struct {
	AgentID          string    `json:"agent_id"`
	Status           string    `json:"status"`
	ClaimedResources []string  `json:"claimed_resources,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CoordinationView is a read snapshot of the shared coordination log:
// which session claims which resources right now.
type CoordinationView struct {
	// Sessions maps agent ID to its last-known status
	Sessions map[string]SessionStatus
	// Locks maps a resource path to the agent ID holding it
	Locks map[string]string
}

// ConflictsWith reports whether any of the given resources is claimed
// by a session other than agentID.
func (v *CoordinationView) ConflictsWith(agentID string, resources []string) bool {
	if v == nil || len(v.Locks) == 0 {
		return false
	}
	for _, res := range resources {
		if holder, ok := v.Locks[res]; ok && holder != agentID {
			return true
		}
	}
	return false
}

// CoordinationEvent is one structured append to the coordination log.
// Writes are audit-only; the scheduler never reads its own events
// back within the same cycle.
type CoordinationEvent struct {
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
}

// CoordinationLog is the externally-owned shared status source
// consulted before every spawn.
type CoordinationLog interface {
	Read(ctx context.Context) (*CoordinationView, error)
	Append(ctx context.Context, event CoordinationEvent) error
}

// SkippedAgent records why a candidate was passed over in a cycle.
type SkippedAgent struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// CycleSummary reports one scheduling cycle for observability. A
// summary is produced every cycle, however many sub-operations failed.
type CycleSummary struct {
	StartedAt      time.Time             `json:"started_at"`
	Duration       time.Duration         `json:"duration"`
	Reaped         int                   `json:"reaped"`
	Spawned        int                   `json:"spawned"`
	Running        int                   `json:"running"`
	AvailableSlots int                   `json:"available_slots"`
	Skipped        []SkippedAgent        `json:"skipped,omitempty"`
	States         map[string]AgentState `json:"states"`
	Errors         []string              `json:"errors,omitempty"`
}
