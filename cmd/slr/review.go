package main

import (
	"fmt"

	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reviewDescription string
	reviewOwner       string
	reviewNoUse       bool
)

func init() {
	reviewCreateCmd.Flags().StringVar(&reviewDescription, "description", "", "What the review is about (required)")
	reviewCreateCmd.Flags().StringVar(&reviewOwner, "owner", "", "Owner (defaults to the configured reviewer)")
	reviewCreateCmd.Flags().BoolVar(&reviewNoUse, "no-use", false, "Do not make the new review the default")
	reviewCreateCmd.MarkFlagRequired("description")

	reviewCmd.AddCommand(reviewCreateCmd, reviewListCmd, reviewUseCmd, reviewShowCmd)
	rootCmd.AddCommand(reviewCmd)
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Manage systematic studies",
	Long: `Manage systematic studies.

Every study, question and protocol belongs to one systematic study. Commands
act on --review, or on default_review when the flag is omitted.`,
}

var reviewCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a systematic study",
	Long: `Create a systematic study and make it the default.

Example:
  slr review create "Test-driven development" --description "Effects of TDD on defect density"`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewCreate,
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List systematic studies",
	Args:  cobra.NoArgs,
	RunE:  runReviewList,
}

var reviewUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Set the default systematic study",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewUse,
}

var reviewShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a systematic study with study counts",
	Args:  cobra.NoArgs,
	RunE:  runReviewShow,
}

// ReviewDetail is the response for the review show command.
type ReviewDetail struct {
	review.SystematicStudy
	Stats storage.Stats `json:"stats"`
}

func runReviewCreate(cmd *cobra.Command, args []string) error {
	s := openSession()

	owner := reviewOwner
	if owner == "" {
		owner = s.reviewer()
	}

	created, err := s.svc.CreateReview(args[0], reviewDescription, owner)
	exitOnError(err, "creating review")

	if !reviewNoUse {
		s.cfg.DefaultReview = created.ID.String()
		if err := s.cfg.Save(s.root); err != nil {
			exitWithError(ExitError, "saving config: %v", err)
		}
	}

	logger.Info("created review", "review", created.ID)
	if humanOutput {
		fmt.Printf("Created review %s: %s\n", created.ID, created.Title)
	} else {
		outputJSON(created)
	}
	return nil
}

func runReviewList(cmd *cobra.Command, args []string) error {
	s := openSession()

	reviews, err := s.svc.Reviews()
	exitOnError(err, "listing reviews")

	if humanOutput {
		if len(reviews) == 0 {
			fmt.Println("No reviews")
			return nil
		}
		for _, r := range reviews {
			marker := " "
			if r.ID.String() == s.cfg.DefaultReview {
				marker = "*"
			}
			fmt.Printf("%s %s  %s\n", marker, r.ID, truncateString(r.Title, ListTitleMaxLen))
		}
	} else {
		if reviews == nil {
			reviews = []review.SystematicStudy{}
		}
		outputJSON(reviews)
	}
	return nil
}

func runReviewUse(cmd *cobra.Command, args []string) error {
	s := openSession()
	reviewFlag = args[0]
	id := s.reviewID()

	found, err := s.svc.Review(id)
	exitOnError(err, "finding review")

	s.cfg.DefaultReview = found.ID.String()
	if err := s.cfg.Save(s.root); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Using review %s: %s\n", found.ID, found.Title)
	} else {
		outputJSON(UpdateResponse{Status: "updated", Key: "default_review", Value: found.ID.String()})
	}
	return nil
}

func runReviewShow(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()

	found, err := s.svc.Review(id)
	exitOnError(err, "finding review")

	db := s.openDB()
	defer db.Close()

	stats, err := db.Stats(id)
	if err != nil {
		exitWithError(ExitError, "counting studies: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s\n%s\n\n", found.Title, wrapText(found.Description, TextWrapWidth, ""))
		fmt.Printf("ID:      %s\n", found.ID)
		if found.Owner != "" {
			fmt.Printf("Owner:   %s\n", found.Owner)
		}
		fmt.Printf("Created: %s\n", found.CreatedAt.Format("2006-01-02"))
		fmt.Printf("Studies: %d\n", stats.Total)
		for status, n := range stats.Selection {
			fmt.Printf("  %-13s %d\n", status, n)
		}
		for source, n := range stats.Sources {
			fmt.Printf("  from %-8s %d\n", source, n)
		}
	} else {
		outputJSON(ReviewDetail{SystematicStudy: *found, Stats: stats})
	}
	return nil
}
