package main

import (
	"fmt"
	"os"

	"github.com/matsen/slr/internal/config"
	"github.com/matsen/slr/internal/storage"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(rebuildCmd)
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the query cache from source data",
	Long: `Rebuild the SQLite query cache from studies.jsonl.

Use this after pulling changes from git or if the cache becomes corrupted.
Other commands rebuild automatically when studies.jsonl has changed.`,
	RunE: runRebuild,
}

// RebuildResult is the response for the rebuild command.
type RebuildResult struct {
	Status  string `json:"status"`
	Studies int    `json:"studies"`
}

func runRebuild(cmd *cobra.Command, args []string) error {
	root := getWorkspaceRoot()

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}

	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	defer db.Close()

	count, err := db.RebuildFromJSONL(config.StudiesPath(root))
	if err != nil {
		exitWithError(ExitDataError, "rebuilding database: %v", err)
	}

	logger.Info("rebuilt query cache", "studies", count)
	if humanOutput {
		fmt.Printf("Rebuilt query cache with %d studies\n", count)
	} else {
		outputJSON(RebuildResult{Status: "rebuilt", Studies: count})
	}
	return nil
}
