package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sentinel-ops/sentinel/internal/storage"
)

var (
	dbPath    string
	configDir string

	// store is the shared audit backend, opened before every command
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Self-healing operations supervisor",
	Long: `Sentinel watches a development environment with tiered health
checks, escalates failures into bounded repair workflows, and keeps a
roster of worker agents running under a concurrency cap.

State and audit history live under .sentinel/ in the working directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := storage.NewStorage(&storage.Config{Path: dbPath})
		if err != nil {
			return fmt.Errorf("failed to open storage at %s: %w", dbPath, err)
		}
		store = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			if err := store.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close storage: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".sentinel/sentinel.db", "Path to the audit database")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".sentinel", "Directory holding checks.yaml, repairs.yaml, and agents.yaml")
}

// configPath resolves a config file inside the configured directory
func configPath(name string) string {
	return filepath.Join(configDir, name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
