package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/slr/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new slr workspace",
	Long: `Initialize a new slr workspace in the current directory.

Creates:
  .slr/
  ├── reviews.jsonl    # Systematic studies
  ├── studies.jsonl    # Study reviews
  ├── questions.jsonl  # Extraction and risk-of-bias questions
  ├── protocols.jsonl  # Review protocols
  ├── config.json      # Default config
  ├── .gitignore       # Ignores cache/
  └── cache/           # SQLite query cache`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := os.Getenv(config.RootEnv)
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			exitWithError(ExitError, "getting current directory: %v", err)
		}
		root = cwd
	}

	if config.IsWorkspace(root) {
		exitWithError(ExitError, "directory already contains an slr workspace")
	}

	if err := os.MkdirAll(config.CachePath(root), 0755); err != nil {
		exitWithError(ExitError, "creating %s directory: %v", config.WorkspaceDir, err)
	}

	for _, path := range []string{
		config.ReviewsPath(root),
		config.StudiesPath(root),
		config.QuestionsPath(root),
		config.ProtocolsPath(root),
	} {
		f, err := os.Create(path)
		if err != nil {
			exitWithError(ExitError, "creating %s: %v", filepath.Base(path), err)
		}
		f.Close()
	}

	gitignore := filepath.Join(config.WorkspacePath(root), ".gitignore")
	if err := os.WriteFile(gitignore, []byte(config.CacheDir+"/\n"), 0644); err != nil {
		exitWithError(ExitError, "creating .gitignore: %v", err)
	}

	cfg := &config.Config{PDFReader: "system", Reviewer: config.GetReviewer()}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "creating config.json: %v", err)
	}

	logger.Info("initialized workspace", "root", root)
	if humanOutput {
		fmt.Printf("Initialized slr workspace in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
