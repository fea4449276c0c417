package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// agentPersistedState is the slice of a Descriptor that survives
// restart: lifecycle state and last-spawn time.
type agentPersistedState struct {
	State     AgentState `json:"state"`
	LastSpawn time.Time  `json:"last_spawn"`
}

// Registry tracks known agent types and owns their lifecycle
// transitions. State is persisted to disk so cooldowns survive
// restarts.
type Registry struct {
	mu        sync.RWMutex
	agents    map[string]*Descriptor
	order     []*Descriptor
	statePath string
}

// NewRegistry creates an agent registry, loading persisted lifecycle
// state from statePath (empty = no persistence).
func NewRegistry(statePath string) *Registry {
	return &Registry{
		agents:    make(map[string]*Descriptor),
		statePath: statePath,
	}
}

// Register adds an agent descriptor. Registration order is the stable
// tie-break for scheduling. New agents start IDLE; persisted state,
// when present, overrides that.
func (r *Registry) Register(desc *Descriptor) error {
	if desc == nil {
		return fmt.Errorf("descriptor is required")
	}
	if desc.ID == "" {
		return fmt.Errorf("agent descriptor missing ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[desc.ID]; exists {
		return fmt.Errorf("agent %s already registered", desc.ID)
	}

	desc.regOrder = len(r.order)
	if desc.State == "" {
		desc.State = StateIdle
	}
	r.agents[desc.ID] = desc
	r.order = append(r.order, desc)
	return nil
}

// LoadState applies persisted lifecycle state to registered agents.
// Call after all Register calls. Agents persisted as RUNNING come
// back IDLE: process handles do not survive a restart, and the
// cooldown keeps the agent from respawning immediately.
func (r *Registry) LoadState() error {
	if r.statePath == "" {
		return nil // Persistence disabled
	}

	data, err := os.ReadFile(r.statePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No state file yet, start fresh
		}
		return fmt.Errorf("failed to read state file: %w", err)
	}

	var persisted map[string]agentPersistedState
	if err := json.Unmarshal(data, &persisted); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ps := range persisted {
		desc, ok := r.agents[id]
		if !ok {
			continue // Agent removed from config since last run
		}
		desc.LastSpawn = ps.LastSpawn
		if ps.State == StateRunning {
			desc.State = StateIdle
		} else {
			desc.State = ps.State
		}
	}
	return nil
}

// SaveState persists lifecycle state for all registered agents.
func (r *Registry) SaveState() error {
	if r.statePath == "" {
		return nil // Persistence disabled
	}

	r.mu.RLock()
	persisted := make(map[string]agentPersistedState, len(r.agents))
	for id, desc := range r.agents {
		persisted[id] = agentPersistedState{
			State:     desc.State,
			LastSpawn: desc.LastSpawn,
		}
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.statePath), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Atomic write: temp file then rename
	tmpPath := r.statePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, r.statePath); err != nil {
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Get returns the descriptor for an agent ID
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc, ok := r.agents[id]
	return desc, ok
}

// All returns descriptors in registration order
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// SetState transitions an agent's lifecycle state
func (r *Registry) SetState(id string, state AgentState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc, ok := r.agents[id]; ok {
		desc.State = state
	}
}

// MarkSpawned transitions an agent to RUNNING and stamps LastSpawn
func (r *Registry) MarkSpawned(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if desc, ok := r.agents[id]; ok {
		desc.State = StateRunning
		desc.LastSpawn = at
	}
}

// States returns a snapshot of every agent's current state
func (r *Registry) States() map[string]AgentState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]AgentState, len(r.agents))
	for id, desc := range r.agents {
		out[id] = desc.State
	}
	return out
}
