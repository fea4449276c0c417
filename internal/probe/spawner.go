package probe

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sentinel-ops/sentinel/internal/orchestrator"
)

// ProcessSpawner starts agent worker processes from their configured
// shell commands. The spawn context is not inherited by the child:
// workers outlive the cycle that started them.
type ProcessSpawner struct {
	// Dir is the working directory for spawned workers (empty = inherit)
	Dir string
}

// NewProcessSpawner creates a spawner for shell-command agents
func NewProcessSpawner(dir string) *ProcessSpawner {
	return &ProcessSpawner{Dir: dir}
}

// Spawn starts the agent's command with SENTINEL_AGENT_ID and
// SENTINEL_UNITS in its environment and returns a pollable handle.
func (s *ProcessSpawner) Spawn(ctx context.Context, agent *orchestrator.Descriptor, units int) (orchestrator.ProcessHandle, error) {
	if agent.Command == "" {
		return nil, fmt.Errorf("agent %s has no command configured", agent.ID)
	}

	cmd := exec.Command("sh", "-c", agent.Command)
	if s.Dir != "" {
		cmd.Dir = s.Dir
	}
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("SENTINEL_AGENT_ID=%s", agent.ID),
		fmt.Sprintf("SENTINEL_UNITS=%d", units),
	)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start agent %s: %w", agent.ID, err)
	}

	handle := &processHandle{running: true}
	go func() {
		err := cmd.Wait()
		handle.mu.Lock()
		defer handle.mu.Unlock()
		handle.running = false
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				handle.exitCode = exitErr.ExitCode()
			} else {
				handle.waitErr = err
				handle.exitCode = -1
			}
		}
	}()

	return handle, nil
}

// processHandle wraps a started command; Wait runs in a background
// goroutine so Poll never blocks
type processHandle struct {
	mu       sync.Mutex
	running  bool
	exitCode int
	waitErr  error
}

func (h *processHandle) Poll() (bool, int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.waitErr != nil {
		return false, h.exitCode, h.waitErr
	}
	return h.running, h.exitCode, nil
}
