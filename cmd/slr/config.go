package main

import (
	"fmt"

	"github.com/matsen/slr/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set workspace configuration values.

Usage:
  slr config                           # Show all config
  slr config reviewer                  # Get specific value
  slr config pdf_root ~/papers         # Set value

Keys:
  default_review  Systematic study used when --review is omitted
  reviewer        Owner recorded on new systematic studies
  pdf_root        Folder relative full-text paths are resolved against
  pdf_reader      PDF reader preference (system, skim, zathura, evince, okular)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := getWorkspaceRoot()

	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}

	switch len(args) {
	case 0:
		if humanOutput {
			for _, key := range config.Keys {
				v, _ := cfg.Get(key)
				fmt.Printf("%-15s %s\n", key+":", v)
			}
		} else {
			outputJSON(cfg)
		}

	case 1:
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
		} else {
			outputJSON(map[string]string{args[0]: v})
		}

	case 2:
		if err := cfg.Set(args[0], args[1]); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := cfg.Save(root); err != nil {
			exitWithError(ExitError, "saving config: %v", err)
		}
		logger.Info("updated config", "key", args[0])
		if humanOutput {
			fmt.Printf("Set %s = %s\n", args[0], args[1])
		} else {
			outputJSON(UpdateResponse{Status: "updated", Key: args[0], Value: args[1]})
		}
	}
	return nil
}
