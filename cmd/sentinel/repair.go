package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/repair"
)

var repairCmd = &cobra.Command{
	Use:   "repair [workflow-id]",
	Short: "List repair workflows or run one",
	Long: `Without arguments, list the registered repair workflows. With a
workflow ID, execute that workflow under the usual safety screening
and rate limits.

Examples:
  sentinel repair                      # List workflows
  sentinel repair dev-server-restart   # Run a workflow now`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := buildRepairEngine()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			listWorkflows(engine)
			return nil
		}

		record := engine.Execute(context.Background(), args[0])
		printExecutionRecord(record)
		return nil
	},
}

func listWorkflows(engine *repair.Engine) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	workflows := engine.Workflows()
	fmt.Printf("\n%s\n\n", cyan(fmt.Sprintf("=== Repair Workflows (%d) ===", len(workflows))))

	for _, wf := range workflows {
		kind := ""
		if wf.Restart {
			kind = gray(" (restart)")
		}
		fmt.Printf("  %s%s\n", wf.ID, kind)
		if wf.Description != "" {
			fmt.Printf("      %s\n", gray(wf.Description))
		}
		for _, step := range wf.Steps {
			marker := "optional"
			if step.Required {
				marker = "required"
			}
			fmt.Printf("      %s %s %s\n", gray("·"), step.Name, gray("["+marker+"]"))
		}
	}

	fmt.Printf("\n  Repairs left this hour: %d, restarts left today: %d\n\n",
		engine.RepairsRemaining(), engine.RestartsRemaining())
}

func printExecutionRecord(record *repair.ExecutionRecord) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\nWorkflow %s: %s\n", record.WorkflowID, colorizeOverall(record.Overall))
	fmt.Printf("  %s\n", gray(record.Summary))

	for _, step := range record.Steps {
		icon := outcomeIcon(step.Outcome)
		fmt.Printf("  %s %s %s\n", icon, step.Name,
			gray(fmt.Sprintf("[%d attempt(s), %v]", step.Attempts, step.Duration.Round(time.Millisecond))))
		if step.Detail != "" {
			fmt.Printf("      %s\n", gray(step.Detail))
		}
	}
	fmt.Println()
}

func outcomeIcon(outcome repair.Outcome) string {
	switch outcome {
	case repair.OutcomeSucceeded:
		return color.New(color.FgGreen).Sprint("✓")
	case repair.OutcomeFailed:
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgHiBlack).Sprint("○")
	}
}

func colorizeOverall(overall repair.OverallResult) string {
	switch overall {
	case repair.ResultSuccess:
		return color.New(color.FgGreen).Sprint(string(overall))
	case repair.ResultPartial:
		return color.New(color.FgYellow).Sprint(string(overall))
	default:
		return color.New(color.FgRed).Sprint(string(overall))
	}
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
