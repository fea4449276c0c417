package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Show the daily budget and rate limit headroom",
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := buildBudgetTracker()
		if err != nil {
			return fmt.Errorf("failed to create budget tracker: %w", err)
		}
		repairEngine, err := buildRepairEngine()
		if err != nil {
			return err
		}

		stats := tracker.GetStats()

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Budget ==="))

		spentColor := color.New(color.FgGreen).SprintfFunc()
		if stats.DailyLimit > 0 && stats.SpentToday >= stats.DailyLimit {
			spentColor = color.New(color.FgRed).SprintfFunc()
		} else if stats.DailyLimit > 0 && stats.SpentToday >= stats.DailyLimit*0.8 {
			spentColor = color.New(color.FgYellow).SprintfFunc()
		}

		if stats.DailyLimit > 0 {
			fmt.Printf("  Spent today:     %s of $%.2f\n", spentColor("$%.2f", stats.SpentToday), stats.DailyLimit)
			fmt.Printf("  Remaining:       $%.2f\n", tracker.Remaining())
		} else {
			fmt.Printf("  Spent today:     %s %s\n", spentColor("$%.2f", stats.SpentToday), gray("(no daily limit)"))
		}
		fmt.Printf("  Reservations:    %d\n", stats.Reservations)
		fmt.Printf("  Total spent:     $%.2f\n", stats.TotalSpent)
		fmt.Printf("  Last reset:      %s\n", stats.LastResetDate)

		fmt.Printf("\n%s\n\n", cyan("=== Rate Limits ==="))
		fmt.Printf("  Repairs left this hour: %d\n", repairEngine.RepairsRemaining())
		fmt.Printf("  Restarts left today:    %d\n", repairEngine.RestartsRemaining())
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(budgetCmd)
}
