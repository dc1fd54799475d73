package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/slr/internal/pdf"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/study"
	"github.com/spf13/cobra"
)

var (
	statusSelection  string
	statusExtraction string
	statusPriority   string

	criteriaAdd    []string
	criteriaRemove []string

	answerQuestion string
	answerType     string
	answerValue    string
)

func init() {
	studyStatusCmd.Flags().StringVar(&statusSelection, "selection", "", "Selection status (UNCLASSIFIED, INCLUDED, EXCLUDED, DUPLICATED)")
	studyStatusCmd.Flags().StringVar(&statusExtraction, "extraction", "", "Extraction status (UNCLASSIFIED, INCLUDED, EXCLUDED, DUPLICATED)")
	studyStatusCmd.Flags().StringVar(&statusPriority, "priority", "", "Reading priority (LOW, MEDIUM, HIGH)")

	studyCriteriaCmd.Flags().StringArrayVar(&criteriaAdd, "add", nil, "Criterion to add (repeatable)")
	studyCriteriaCmd.Flags().StringArrayVar(&criteriaRemove, "remove", nil, "Criterion to remove (repeatable)")

	studyAnswerCmd.Flags().StringVar(&answerQuestion, "question", "", "Answer a single question by id instead of reading a file")
	studyAnswerCmd.Flags().StringVar(&answerType, "type", "", "Answer type for --question (TEXTUAL, PICK_LIST, NUMBERED_SCALE, LABELED_SCALE)")
	studyAnswerCmd.Flags().StringVar(&answerValue, "value", "", "JSON answer value for --question")

	studyCmd.AddCommand(
		studyStatusCmd, studyCommentCmd, studyCriteriaCmd, studyDuplicateCmd,
		studyAttachPDFCmd, studyOpenCmd, studyAnswerCmd,
	)
}

var studyStatusCmd = &cobra.Command{
	Use:   "status <study-id>",
	Short: "Change selection status, extraction status or reading priority",
	Long: `Change any combination of the three independent status axes.

Example:
  slr study status 12 --selection INCLUDED --priority HIGH`,
	Args: cobra.ExactArgs(1),
	RunE: runStudyStatus,
}

var studyCommentCmd = &cobra.Command{
	Use:   "comment <study-id> <text>",
	Short: "Replace a study's comments",
	Args:  cobra.ExactArgs(2),
	RunE:  runStudyComment,
}

var studyCriteriaCmd = &cobra.Command{
	Use:   "criteria <study-id>",
	Short: "Tag a study with eligibility criteria",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyCriteria,
}

var studyDuplicateCmd = &cobra.Command{
	Use:   "duplicate <duplicate-id> <target-id>",
	Short: "Mark a study as a duplicate of another",
	Long: `Mark a study as a duplicate of another.

The duplicate's selection status becomes DUPLICATED and its search sources
are merged into the target's. Both studies are saved together.

Example:
  slr study duplicate 14 3`,
	Args: cobra.ExactArgs(2),
	RunE: runStudyDuplicate,
}

var studyAttachPDFCmd = &cobra.Command{
	Use:   "attach-pdf <study-id> <file.pdf>",
	Short: "Attach a full-text PDF to a study",
	Long: `Attach a full-text PDF to a study.

Paths that exist relative to the current directory are stored as absolute
paths; otherwise the path is looked up under pdf_root and stored as given.
When the study has no DOI, the first pages of the PDF are searched for one.`,
	Args: cobra.ExactArgs(2),
	RunE: runStudyAttachPDF,
}

var studyOpenCmd = &cobra.Command{
	Use:   "open <study-id>",
	Short: "Open a study's full text in the configured viewer",
	Args:  cobra.ExactArgs(1),
	RunE:  runStudyOpen,
}

var studyAnswerCmd = &cobra.Command{
	Use:   "answer <study-id> [answers.json]",
	Short: "Answer extraction and risk-of-bias questions",
	Long: `Answer extraction and risk-of-bias questions for a study.

A batch file is a JSON array of {"questionId", "type", "answer"} items. Items
that fail are reported and the rest are saved. Use "-" to read from stdin.

Examples:
  slr study answer 12 answers.json
  slr study answer 12 --question 5f0c... --type PICK_LIST --value '"Java"'
  slr study answer 12 --question 9a1b... --type LABELED_SCALE --value '{"name":"low","value":1}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runStudyAnswer,
}

func runStudyStatus(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()
	studyID := mustStudyID(args[0])

	r, err := s.svc.UpdateStatus(id, studyID, review.StatusChange{
		Selection:  statusSelection,
		Extraction: statusExtraction,
		Priority:   statusPriority,
	})
	exitOnError(err, "updating status")
	s.refreshCache()

	logger.Info("updated status", "study", studyID, "selection", r.SelectionStatus(), "extraction", r.ExtractionStatus())
	outputStudy(r)
	return nil
}

func runStudyComment(cmd *cobra.Command, args []string) error {
	s := openSession()
	studyID := mustStudyID(args[0])

	r, err := s.svc.UpdateStudy(s.reviewID(), studyID, func(r *study.Review) error {
		r.SetComments(args[1])
		return nil
	})
	exitOnError(err, "updating comments")
	s.refreshCache()

	outputStudy(r)
	return nil
}

func runStudyCriteria(cmd *cobra.Command, args []string) error {
	if len(criteriaAdd) == 0 && len(criteriaRemove) == 0 {
		exitWithError(ExitError, "nothing to change (use --add or --remove)")
	}

	s := openSession()
	studyID := mustStudyID(args[0])

	r, err := s.svc.UpdateStudy(s.reviewID(), studyID, func(r *study.Review) error {
		r.AddCriteria(criteriaAdd...)
		r.RemoveCriteria(criteriaRemove...)
		return nil
	})
	exitOnError(err, "updating criteria")
	s.refreshCache()

	outputStudy(r)
	return nil
}

func runStudyDuplicate(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()
	dupID := mustStudyID(args[0])
	targetID := mustStudyID(args[1])

	res, err := s.svc.MarkDuplicate(id, dupID, targetID)
	exitOnError(err, "marking duplicate")
	s.refreshCache()

	logger.Info("marked duplicate", "duplicate", dupID, "target", targetID)
	if humanOutput {
		fmt.Printf("Study %d marked as duplicate of %d\n", res.DuplicatedStudyID, res.UpdatedStudyID)
	} else {
		outputJSON(res)
	}
	return nil
}

// locatePDF decides which path to store for an attached PDF and where it
// can be read from now.
func locatePDF(arg string, opener *pdf.Opener) (stored, readable string, err error) {
	if _, statErr := os.Stat(arg); statErr == nil {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", "", fmt.Errorf("resolving %s: %w", arg, err)
		}
		return abs, abs, nil
	}

	full, err := opener.ResolvePath(arg)
	if err != nil {
		return "", "", err
	}
	return arg, full, nil
}

func runStudyAttachPDF(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()
	studyID := mustStudyID(args[0])

	opener := pdf.NewOpener(s.cfg.PDFRoot, s.cfg.PDFReader)
	stored, readable, err := locatePDF(args[1], opener)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	r, err := s.svc.UpdateStudy(id, studyID, func(r *study.Review) error {
		var doi study.DOI
		if r.Record().DOI == "" {
			found, err := pdf.ExtractDOI(readable)
			if err != nil {
				logger.Warn("reading DOI from PDF", "path", readable, "error", err)
			}
			doi = found
		}
		r.AttachFullText(stored, doi)
		return nil
	})
	exitOnError(err, "attaching PDF")
	s.refreshCache()

	logger.Info("attached PDF", "study", studyID, "path", stored, "doi", r.Record().DOI)
	outputStudy(r)
	return nil
}

// OpenResult is the response for the open command.
type OpenResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

func runStudyOpen(cmd *cobra.Command, args []string) error {
	s := openSession()
	studyID := mustStudyID(args[0])

	r, err := s.svc.Study(s.reviewID(), studyID)
	exitOnError(err, "getting study")

	opener := pdf.NewOpener(s.cfg.PDFRoot, s.cfg.PDFReader)
	path, err := opener.ResolvePath(r.FullTextPath())
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := opener.Open(path); err != nil {
		exitWithError(ExitError, "opening PDF: %v", err)
	}

	if humanOutput {
		fmt.Printf("Opened %s\n", path)
	} else {
		outputJSON(OpenResult{Status: "opened", Path: path})
	}
	return nil
}

func runStudyAnswer(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()
	studyID := mustStudyID(args[0])

	if answerQuestion != "" {
		if len(args) > 1 {
			exitWithError(ExitError, "--question cannot be combined with an answers file")
		}
		item := review.AnswerItem{QuestionID: answerQuestion, Type: answerType, Answer: json.RawMessage(answerValue)}
		r, err := s.svc.AnswerQuestion(id, studyID, item)
		exitOnError(err, "answering question")
		s.refreshCache()
		outputStudy(r)
		return nil
	}

	if len(args) < 2 {
		exitWithError(ExitError, "an answers file or --question is required")
	}
	var items []review.AnswerItem
	if err := json.Unmarshal(readInput(args[1]), &items); err != nil {
		exitWithError(ExitDataError, "parsing answers: %v", err)
	}

	res, err := s.svc.BatchAnswer(id, studyID, items)
	exitOnError(err, "answering questions")
	if res.TotalAnswered > 0 {
		s.refreshCache()
	}

	for _, f := range res.Failed {
		logger.Debug("answer rejected", "question", f.QuestionID, "reason", f.Reason)
	}
	logger.Info("answered questions", "study", studyID, "answered", res.TotalAnswered, "failed", len(res.Failed))

	if humanOutput {
		fmt.Printf("Answered %d of %d questions for study %d\n", res.TotalAnswered, len(items), studyID)
		for _, f := range res.Failed {
			fmt.Printf("  ✗ %s: %s\n", f.QuestionID, f.Reason)
		}
	} else {
		outputJSON(res)
	}
	if res.TotalAnswered == 0 && len(res.Failed) > 0 {
		os.Exit(ExitDataError)
	}
	return nil
}
