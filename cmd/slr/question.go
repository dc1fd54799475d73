package main

import (
	"fmt"

	"github.com/matsen/slr/internal/question"
	"github.com/spf13/cobra"
)

func init() {
	questionCmd.AddCommand(questionAddCmd, questionListCmd)
	rootCmd.AddCommand(questionCmd)
}

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage extraction and risk-of-bias questions",
}

var questionAddCmd = &cobra.Command{
	Use:   "add <file.yml>",
	Short: "Add questions from a YAML definitions file",
	Long: `Add questions from a YAML definitions file.

Codes must be unique within the review. Either every question is added or
none is.

Example questions.yml:
  - code: RQ1
    description: Which language was studied?
    context: FORM
    type: PICK_LIST
    options: [Java, Python, C#]
  - code: ROB1
    description: Risk of selection bias
    context: ROB
    type: LABELED_SCALE
    scales:
      - {name: low, value: 1}
      - {name: high, value: 3}`,
	Args: cobra.ExactArgs(1),
	RunE: runQuestionAdd,
}

var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the questions of the current review",
	Args:  cobra.NoArgs,
	RunE:  runQuestionList,
}

func runQuestionAdd(cmd *cobra.Command, args []string) error {
	s := openSession()
	id := s.reviewID()

	added, err := s.svc.AddQuestions(id, readInput(args[0]))
	exitOnError(err, "adding questions")

	logger.Info("added questions", "review", id, "count", len(added))
	printQuestions(added)
	return nil
}

func runQuestionList(cmd *cobra.Command, args []string) error {
	s := openSession()

	qs, err := s.svc.Questions(s.reviewID())
	exitOnError(err, "listing questions")

	printQuestions(qs)
	return nil
}

func printQuestions(qs []question.Question) {
	if !humanOutput {
		docs := make([]question.Document, len(qs))
		for i, q := range qs {
			docs[i] = question.ToDocument(q)
		}
		outputJSON(docs)
		return
	}

	if len(qs) == 0 {
		fmt.Println("No questions")
		return
	}
	for _, q := range qs {
		fmt.Printf("%-8s %-4s %-15s %s\n", q.Code(), q.Context(), q.Kind(), truncateString(q.Description(), ListTitleMaxLen))
		fmt.Printf("         %s\n", q.ID())
	}
}
