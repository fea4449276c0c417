package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/orchestrator"
	"github.com/sentinel-ops/sentinel/internal/probe"
	"github.com/sentinel-ops/sentinel/internal/supervisor"
)

var runNoAgents bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the supervisor loops",
	Long: `Run the supervisor in the foreground until interrupted.

The health loop runs FREE checks every pass, LIGHT checks on a slower
cadence, and budgeted DEEP checks on a slower one still. Failing
checks escalate into repair workflows under the hourly repair and
daily restart limits.

The scheduling loop reaps finished worker agents and spawns idle ones
with pending work, up to the concurrency cap, skipping agents whose
resources another session has claimed in the coordination log.

Examples:
  sentinel run               # Health + agent scheduling
  sentinel run --no-agents   # Health loop only`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		tracker, err := buildBudgetTracker()
		if err != nil {
			return fmt.Errorf("failed to create budget tracker: %w", err)
		}

		healthEngine, err := buildHealthEngine(tracker)
		if err != nil {
			return err
		}

		repairEngine, err := buildRepairEngine()
		if err != nil {
			return err
		}

		var scheduler *orchestrator.Scheduler
		if !runNoAgents {
			schedCfg := orchestrator.LoadFromEnv()
			registry, err := buildRegistry(schedCfg)
			if err != nil {
				return err
			}

			scheduler, err = orchestrator.NewScheduler(
				schedCfg,
				registry,
				probe.NewFileQueueInspector(configPath("queue")),
				probe.NewProcessSpawner(""),
				orchestrator.NewFileCoordinationLog(configPath("COMMS.md")),
				tracker,
				store,
			)
			if err != nil {
				return fmt.Errorf("failed to create scheduler: %w", err)
			}
		}

		sup, err := supervisor.New(supervisor.LoadFromEnv(), healthEngine, repairEngine, scheduler, store)
		if err != nil {
			return fmt.Errorf("failed to create supervisor: %w", err)
		}

		if err := sup.Start(ctx); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s Sentinel running\n", green("●"))
		fmt.Printf("  %s\n\n", gray("Press Ctrl+C to stop"))

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\nShutting down...")
		sup.Stop()
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runNoAgents, "no-agents", false, "Disable the agent scheduling loop")
	rootCmd.AddCommand(runCmd)
}
