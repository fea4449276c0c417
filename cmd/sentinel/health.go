package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/checks"
)

var healthTier string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run one health pass and show the results",
	Long: `Run every registered check at or below the given tier once and
print the classified results. DEEP checks draw from the daily budget.

Examples:
  sentinel health               # FREE checks only
  sentinel health --tier light  # FREE + LIGHT
  sentinel health --tier deep   # All tiers (budgeted)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tier, err := checks.ParseTier(healthTier)
		if err != nil {
			return err
		}

		tracker, err := buildBudgetTracker()
		if err != nil {
			return fmt.Errorf("failed to create budget tracker: %w", err)
		}
		engine, err := buildHealthEngine(tracker)
		if err != nil {
			return err
		}

		report := engine.RunTier(context.Background(), tier)

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Health (%s, %d checks) ===", report.Tier, len(report.Results))))

		for _, result := range report.Results {
			printCheckResult(result)
		}

		overall := report.Overall()
		fmt.Printf("\nOverall: %s\n", colorizeStatus(overall))

		if len(report.Escalations) > 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s Escalations:\n", yellow("⚠"))
			for _, esc := range report.Escalations {
				fmt.Printf("  %s → %s (%s)\n", esc.CheckID, esc.WorkflowID, esc.Message)
			}
			fmt.Printf("  %s\n", color.New(color.FgHiBlack).Sprint("Run 'sentinel repair <workflow>' to repair, or 'sentinel run' to automate"))
		}
		fmt.Println()
		return nil
	},
}

func printCheckResult(result *checks.Result) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("  %s %s %s\n", statusIcon(result.Status), result.CheckID,
		gray(fmt.Sprintf("[%s, %v]", result.Tier, result.Duration.Round(time.Millisecond))))
	if result.Message != "" {
		fmt.Printf("      %s\n", gray(result.Message))
	}
}

func statusIcon(status checks.Status) string {
	switch status {
	case checks.StatusHealthy:
		return color.New(color.FgGreen).Sprint("●")
	case checks.StatusDegraded:
		return color.New(color.FgYellow).Sprint("◐")
	case checks.StatusError:
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgHiBlack).Sprint("?")
	}
}

func colorizeStatus(status checks.Status) string {
	switch status {
	case checks.StatusHealthy:
		return color.New(color.FgGreen).Sprint(string(status))
	case checks.StatusDegraded:
		return color.New(color.FgYellow).Sprint(string(status))
	case checks.StatusError:
		return color.New(color.FgRed).Sprint(string(status))
	default:
		return color.New(color.FgHiBlack).Sprint(string(status))
	}
}

func init() {
	healthCmd.Flags().StringVar(&healthTier, "tier", "free", "Top tier to run: free, light, or deep")
	rootCmd.AddCommand(healthCmd)
}
