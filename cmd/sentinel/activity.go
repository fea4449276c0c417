package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/events"
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent supervisor events",
	Long: `Display recent events from the audit trail: check batches,
escalations, repairs, agent spawns and reaps, and budget alerts.

Examples:
  sentinel activity                      # Last 20 events
  sentinel activity -n 50                # Last 50 events
  sentinel activity --check build-errors # Events for one check
  sentinel activity --type repair_completed
  sentinel activity --severity warning`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		checkID, _ := cmd.Flags().GetString("check")
		eventType, _ := cmd.Flags().GetString("type")
		severity, _ := cmd.Flags().GetString("severity")

		ctx := context.Background()

		filter := events.Filter{Limit: limit}
		if checkID != "" {
			filter.CheckID = checkID
		}
		if eventType != "" {
			filter.Type = events.EventType(eventType)
		}
		if severity != "" {
			filter.Severity = events.Severity(severity)
		}

		var eventList []*events.Event
		var err error
		if checkID == "" && eventType == "" && severity == "" {
			eventList, err = store.GetRecentEvents(ctx, limit)
		} else {
			eventList, err = store.GetEvents(ctx, filter)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching events: %v\n", err)
			os.Exit(1)
		}

		if len(eventList) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No events found matching the criteria\n\n", yellow("✨"))
			return nil
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		fmt.Printf("\n%s Recent Activity (%d events):\n\n", cyan("📋"), len(eventList))

		// Newest last, so the terminal reads top to bottom
		for i := len(eventList) - 1; i >= 0; i-- {
			displayEvent(eventList[i])
		}

		fmt.Println()
		return nil
	},
}

func displayEvent(event *events.Event) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	sevColor := gray
	switch event.Severity {
	case events.SeverityWarning:
		sevColor = color.New(color.FgYellow).SprintFunc()
	case events.SeverityError, events.SeverityCritical:
		sevColor = color.New(color.FgRed).SprintFunc()
	}

	fmt.Printf("  %s %s %s\n",
		gray(event.Timestamp.Format("15:04:05")),
		sevColor(fmt.Sprintf("%-18s", event.Type)),
		event.Message)
}

func init() {
	activityCmd.Flags().IntP("limit", "n", 20, "Number of recent events to show")
	activityCmd.Flags().StringP("check", "c", "", "Filter events by check ID")
	activityCmd.Flags().StringP("type", "t", "", "Filter by event type (e.g. repair_completed, agent_spawned)")
	activityCmd.Flags().StringP("severity", "s", "", "Filter by severity (info, warning, error, critical)")
	rootCmd.AddCommand(activityCmd)
}
