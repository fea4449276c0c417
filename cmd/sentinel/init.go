package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/checks"
	"github.com/sentinel-ops/sentinel/internal/orchestrator"
	"github.com/sentinel-ops/sentinel/internal/repair"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default configuration files",
	Long: `Create the .sentinel/ directory with default configuration:
  - checks.yaml    (health checks and escalation targets)
  - repairs.yaml   (repair workflows)
  - agents.yaml    (orchestrated agent roster)

Existing files are left alone unless --force is given.

Example:
  cd ~/myproject
  sentinel init
  sentinel health`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", configDir, err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		writers := []struct {
			name  string
			write func(string) error
		}{
			{"checks.yaml", checks.SaveDefaultConfig},
			{"repairs.yaml", repair.SaveDefaultWorkflows},
			{"agents.yaml", orchestrator.SaveDefaultAgents},
		}

		fmt.Println()
		for _, w := range writers {
			path := configPath(w.name)
			if _, err := os.Stat(path); err == nil && !initForce {
				fmt.Printf("  %s %s %s\n", gray("·"), path, gray("(exists, skipped)"))
				continue
			}
			if err := w.write(path); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Printf("  %s %s\n", green("✓"), path)
		}

		fmt.Printf("\n%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("sentinel health          # Run the FREE checks once"))
		fmt.Printf("  %s\n", gray("sentinel run             # Start the supervisor"))
		fmt.Println()
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration files")
	rootCmd.AddCommand(initCmd)
}
