// Package study defines the study record and the study review aggregate
// that tracks one candidate study through screening and extraction.
package study

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidStatus is returned when a status or priority string is not recognised.
var ErrInvalidStatus = errors.New("invalid status")

// Type is the bibliographic type of a study.
type Type string

const (
	Article       Type = "ARTICLE"
	InProceedings Type = "INPROCEEDINGS"
	TechReport    Type = "TECHREPORT"
	Book          Type = "BOOK"
	Proceedings   Type = "PROCEEDINGS"
	PhDThesis     Type = "PHDTHESIS"
	MastersThesis Type = "MASTERSTHESIS"
	InBook        Type = "INBOOK"
	Booklet       Type = "BOOKLET"
	Manual        Type = "MANUAL"
	Misc          Type = "MISC"
	Unpublished   Type = "UNPUBLISHED"
)

// Types lists every supported study type in declaration order.
var Types = []Type{
	Article, InProceedings, TechReport, Book, Proceedings, PhDThesis,
	MastersThesis, InBook, Booklet, Manual, Misc, Unpublished,
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// SelectionStatus is the screening-phase classification of a study.
type SelectionStatus string

const (
	SelectionUnclassified SelectionStatus = "UNCLASSIFIED"
	SelectionIncluded     SelectionStatus = "INCLUDED"
	SelectionExcluded     SelectionStatus = "EXCLUDED"
	SelectionDuplicated   SelectionStatus = "DUPLICATED"
)

var selectionStatuses = []SelectionStatus{
	SelectionUnclassified, SelectionIncluded, SelectionExcluded, SelectionDuplicated,
}

// ParseSelectionStatus converts a case-insensitive name into a SelectionStatus.
func ParseSelectionStatus(s string) (SelectionStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, st := range selectionStatuses {
		if string(st) == upper {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown selection status %q", ErrInvalidStatus, s)
}

// ExtractionStatus is the extraction-phase classification of a study.
type ExtractionStatus string

const (
	ExtractionUnclassified ExtractionStatus = "UNCLASSIFIED"
	ExtractionIncluded     ExtractionStatus = "INCLUDED"
	ExtractionExcluded     ExtractionStatus = "EXCLUDED"
	ExtractionDuplicated   ExtractionStatus = "DUPLICATED"
)

var extractionStatuses = []ExtractionStatus{
	ExtractionUnclassified, ExtractionIncluded, ExtractionExcluded, ExtractionDuplicated,
}

// ParseExtractionStatus converts a case-insensitive name into an ExtractionStatus.
func ParseExtractionStatus(s string) (ExtractionStatus, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, st := range extractionStatuses {
		if string(st) == upper {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown extraction status %q", ErrInvalidStatus, s)
}

// ReadingPriority orders studies for full-text reading.
type ReadingPriority string

const (
	PriorityLow    ReadingPriority = "LOW"
	PriorityMedium ReadingPriority = "MEDIUM"
	PriorityHigh   ReadingPriority = "HIGH"
)

var readingPriorities = []ReadingPriority{PriorityLow, PriorityMedium, PriorityHigh}

// ParseReadingPriority converts a case-insensitive name into a ReadingPriority.
func ParseReadingPriority(s string) (ReadingPriority, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range readingPriorities {
		if string(p) == upper {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown reading priority %q", ErrInvalidStatus, s)
}
