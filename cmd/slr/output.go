package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/slr/internal/bibtex"
	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/study"
)

// Constants for output formatting.
const (
	DefaultListLimit = 50 // Default limit for list/search commands

	ListTitleMaxLen   = 60 // Used in list command output
	DetailTitleMaxLen = 70 // Used in get command detail view

	TextWrapWidth = 60 // Standard text wrap width
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Debug("exiting", "code", code, "error", msg)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitOnError exits with the code matching err's class when err is non-nil.
func exitOnError(err error, context string) {
	if err == nil {
		return
	}
	exitWithError(exitCodeFor(err), "%s: %v", context, err)
}

// exitCodeFor classifies an error returned by the core packages.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, review.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, bibtex.ErrInputFormat),
		errors.Is(err, bibtex.ErrUnsupportedType),
		errors.Is(err, bibtex.ErrMissingField),
		errors.Is(err, bibtex.ErrFieldFormat),
		errors.Is(err, question.ErrTypeMismatch),
		errors.Is(err, question.ErrInvalidValue),
		errors.Is(err, question.ErrInvalidQuestion),
		errors.Is(err, study.ErrInvalidStatus),
		errors.Is(err, study.ErrInvalidRecord),
		errors.Is(err, study.ErrInvalidDOI),
		errors.Is(err, study.ErrWrongQuestion),
		errors.Is(err, protocol.ErrBlank),
		errors.Is(err, protocol.ErrAbsent),
		errors.Is(err, review.ErrInvalidReview):
		return ExitDataError
	}
	return ExitError
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// UpdateResponse is the response for config set commands.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range strings.Fields(text) {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// printStudyRow prints one study as a single summary line.
func printStudyRow(r *study.Review) {
	rec := r.Record()
	fmt.Printf("%4d  %-12s  %4d  %s\n", r.StudyID(), r.SelectionStatus(), rec.Year, truncateString(rec.Title, ListTitleMaxLen))
}

// printStudyDetail prints every field of a study review.
func printStudyDetail(r *study.Review) {
	rec := r.Record()
	fmt.Printf("Study %d (%s)\n", r.StudyID(), rec.Type)
	fmt.Println(strings.Repeat("═", DetailTitleMaxLen))
	fmt.Println()

	fmt.Printf("Title:      %s\n", wrapText(rec.Title, TextWrapWidth, "            "))
	fmt.Printf("Authors:    %s\n", wrapText(rec.Authors, TextWrapWidth, "            "))
	fmt.Printf("Year:       %d\n", rec.Year)
	fmt.Printf("Venue:      %s\n", rec.Venue)
	if rec.DOI != "" {
		fmt.Printf("DOI:        %s\n", rec.DOI)
	}
	if len(rec.Keywords) > 0 {
		fmt.Printf("Keywords:   %s\n", strings.Join(rec.Keywords, ", "))
	}
	fmt.Println()

	fmt.Printf("Selection:  %s\n", r.SelectionStatus())
	fmt.Printf("Extraction: %s\n", r.ExtractionStatus())
	fmt.Printf("Priority:   %s\n", r.ReadingPriority())
	fmt.Printf("Sources:    %s\n", strings.Join(r.SearchSources(), ", "))
	if c := r.Criteria(); len(c) > 0 {
		fmt.Printf("Criteria:   %s\n", strings.Join(c, ", "))
	}
	if r.FullTextPath() != "" {
		fmt.Printf("Full text:  %s\n", r.FullTextPath())
	}
	if r.Comments() != "" {
		fmt.Printf("Comments:   %s\n", wrapText(r.Comments(), TextWrapWidth, "            "))
	}

	if rec.Abstract != "" {
		fmt.Println()
		fmt.Println("Abstract:")
		fmt.Printf("  %s\n", wrapText(rec.Abstract, TextWrapWidth+8, "  "))
	}

	if answers := append(r.FormAnswers(), r.QualityAnswers()...); len(answers) > 0 {
		fmt.Println()
		fmt.Printf("Answers:    %d\n", len(answers))
	}
}
