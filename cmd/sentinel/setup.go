package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sentinel-ops/sentinel/internal/budget"
	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/orchestrator"
	"github.com/sentinel-ops/sentinel/internal/probe"
	"github.com/sentinel-ops/sentinel/internal/repair"
)

// buildBudgetTracker creates the shared daily budget tracker from the
// environment
func buildBudgetTracker() (*budget.Tracker, error) {
	return budget.NewTracker(budget.LoadFromEnv())
}

// buildHealthEngine creates the health engine with checks from
// checks.yaml, falling back to the built-in defaults when the file is
// missing
func buildHealthEngine(tracker *budget.Tracker) (*checks.Engine, error) {
	engine, err := checks.NewEngine(tracker, store, store)
	if err != nil {
		return nil, err
	}

	cfg, err := checks.LoadConfig(configPath("checks.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load checks config: %w", err)
		}
		cfg = checks.DefaultConfig()
	}

	if err := checks.RegisterFromConfig(engine, cfg, probe.CheckProbeFactory); err != nil {
		return nil, fmt.Errorf("failed to register checks: %w", err)
	}
	return engine, nil
}

// buildRepairEngine creates the repair engine with workflows from
// repairs.yaml, falling back to the built-in defaults when the file
// is missing
func buildRepairEngine() (*repair.Engine, error) {
	cfg := repair.LoadFromEnv()
	limiter := repair.NewLimiter(cfg.LimiterStatePath)

	engine, err := repair.NewEngine(cfg, limiter, store, store)
	if err != nil {
		return nil, err
	}

	file, err := repair.LoadWorkflows(configPath("repairs.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load repairs config: %w", err)
		}
		file = repair.DefaultWorkflows()
	}

	if err := repair.RegisterFromConfig(engine, file, probe.RepairActionFactory); err != nil {
		return nil, fmt.Errorf("failed to register workflows: %w", err)
	}
	return engine, nil
}

// buildRegistry creates the agent registry with the roster from
// agents.yaml and restores persisted lifecycle state
func buildRegistry(cfg *orchestrator.Config) (*orchestrator.Registry, error) {
	registry := orchestrator.NewRegistry(cfg.RegistryStatePath)

	file, err := orchestrator.LoadAgents(configPath("agents.yaml"))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load agents config: %w", err)
		}
		file = orchestrator.DefaultAgents()
	}

	if err := orchestrator.RegisterFromConfig(registry, file); err != nil {
		return nil, fmt.Errorf("failed to register agents: %w", err)
	}

	if err := registry.LoadState(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load agent state: %v (starting fresh)\n", err)
	}
	return registry, nil
}
