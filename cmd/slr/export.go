package main

import (
	"fmt"
	"os"

	"github.com/matsen/slr/internal/clipboard"
	"github.com/matsen/slr/internal/export"
	"github.com/matsen/slr/internal/study"
	"github.com/spf13/cobra"
)

var (
	exportSelection string
	exportOutput    string
	exportCopy      bool
)

func init() {
	exportCmd.Flags().StringVar(&exportSelection, "selection", "", "Only export studies with this selection status")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to a file instead of stdout")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "Copy the BibTeX to the clipboard")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export studies as BibTeX",
	Long: `Export the studies of the current review as BibTeX.

BibTeX is always written, regardless of --human.

Examples:
  slr export --selection INCLUDED -o included.bib
  slr export > all.bib
  slr export --selection INCLUDED --copy`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	var want study.SelectionStatus
	if exportSelection != "" {
		parsed, err := study.ParseSelectionStatus(exportSelection)
		exitOnError(err, "invalid --selection")
		want = parsed
	}

	s := openSession()
	reviews, err := s.svc.Studies(s.reviewID())
	exitOnError(err, "listing studies")

	selected := reviews[:0]
	for _, r := range reviews {
		if want == "" || r.SelectionStatus() == want {
			selected = append(selected, r)
		}
	}

	out := export.ToBibTeXList(selected)
	if exportCopy {
		if err := clipboard.Copy(out); err != nil {
			exitWithError(ExitError, "copying to clipboard: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Copied %d studies to the clipboard\n", len(selected))
		return nil
	}
	if exportOutput == "" {
		fmt.Print(out)
		return nil
	}

	if err := os.WriteFile(exportOutput, []byte(out), 0644); err != nil {
		exitWithError(ExitError, "writing %s: %v", exportOutput, err)
	}
	logger.Info("exported studies", "count", len(selected), "path", exportOutput)
	fmt.Fprintf(os.Stderr, "Exported %d studies to %s\n", len(selected), exportOutput)
	return nil
}
