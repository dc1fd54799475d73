package main

import (
	"fmt"

	"github.com/matsen/slr/internal/dedupe"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(duplicatesCmd)
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find studies that look like the same publication",
	Long: `Find studies that look like the same publication.

Unclassified and included studies are grouped by DOI, then by title and year
with case, accents and punctuation ignored. Nothing is changed; resolve a
group with 'slr study duplicate <duplicate-id> <target-id>'.`,
	Args: cobra.NoArgs,
	RunE: runDuplicates,
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	s := openSession()

	reviews, err := s.svc.Studies(s.reviewID())
	exitOnError(err, "listing studies")

	groups := dedupe.Find(reviews)
	logger.Debug("found duplicate groups", "studies", len(reviews), "groups", len(groups))

	if humanOutput {
		if len(groups) == 0 {
			fmt.Println("No duplicate candidates")
			return nil
		}
		for _, g := range groups {
			fmt.Printf("[%s] %s\n", g.Reason, truncateString(g.Key, ListTitleMaxLen))
			for _, d := range g.Duplicates {
				fmt.Printf("  slr study duplicate %d %d\n", d, g.Target)
			}
		}
	} else {
		if groups == nil {
			groups = []dedupe.Group{}
		}
		outputJSON(groups)
	}
	return nil
}
