package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/orchestrator"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show component health, agent states, and budget",
	Long:  `Display the latest recorded result per check, the agent roster with lifecycle states, and budget headroom.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Sentinel Status ==="))

		// Latest result per check, worst status wins for the rollup
		recent, err := store.GetRecentCheckResults(ctx, 200)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load check results: %v\n", err)
			os.Exit(1)
		}

		latest := make(map[string]*checks.Result)
		var order []string
		for _, r := range recent {
			if _, seen := latest[r.CheckID]; !seen {
				latest[r.CheckID] = r // results arrive newest first
				order = append(order, r.CheckID)
			}
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("%s\n", yellow("Checks:"))
		if len(order) == 0 {
			fmt.Printf("  %s\n", gray("No recorded results (run 'sentinel health')"))
		} else {
			var rollup []*checks.Result
			for _, id := range order {
				r := latest[id]
				rollup = append(rollup, r)
				fmt.Printf("  %s %-24s %s %s\n", statusIcon(r.Status), r.CheckID,
					string(r.Status), gray(r.Timestamp.Format("15:04:05")))
			}
			fmt.Printf("\n  Overall: %s\n", colorizeStatus(checks.WorstStatus(rollup)))
		}
		fmt.Println()

		// Agent roster with persisted lifecycle state
		schedCfg := orchestrator.LoadFromEnv()
		registry, err := buildRegistry(schedCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s\n", yellow("Agents:"))
		for _, desc := range registry.All() {
			lastSpawn := gray("never")
			if !desc.LastSpawn.IsZero() {
				lastSpawn = gray(fmt.Sprintf("last spawn %s ago", time.Since(desc.LastSpawn).Round(time.Second)))
			}
			fmt.Printf("  %s %-12s priority %d  %s\n",
				agentStateIcon(desc.State), desc.ID, desc.Priority, lastSpawn)
		}
		fmt.Println()

		// Budget one-liner
		tracker, err := buildBudgetTracker()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create budget tracker: %v\n", err)
			os.Exit(1)
		}
		stats := tracker.GetStats()
		if stats.DailyLimit > 0 {
			fmt.Printf("%s $%.2f of $%.2f spent today\n\n", yellow("Budget:"), stats.SpentToday, stats.DailyLimit)
		} else {
			fmt.Printf("%s $%.2f spent today %s\n\n", yellow("Budget:"), stats.SpentToday, gray("(no daily limit)"))
		}
		return nil
	},
}

func agentStateIcon(state orchestrator.AgentState) string {
	switch state {
	case orchestrator.StateRunning:
		return color.New(color.FgGreen).Sprint("●")
	case orchestrator.StateCompleted:
		return color.New(color.FgCyan).Sprint("✓")
	case orchestrator.StateFailed:
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgHiBlack).Sprint("○")
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
