package study

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/question"
)

// Document is the persisted (JSONL) form of a study review.
type Document struct {
	ReviewID uuid.UUID `json:"review_id"`
	StudyID  int64     `json:"study_id"`
	Record

	SearchSources  []string          `json:"search_sources"`
	Criteria       []string          `json:"criteria,omitempty"`
	FormAnswers    []question.Answer `json:"form_answers,omitempty"`
	QualityAnswers []question.Answer `json:"quality_answers,omitempty"`

	SelectionStatus  SelectionStatus  `json:"selection_status"`
	ExtractionStatus ExtractionStatus `json:"extraction_status"`
	ReadingPriority  ReadingPriority  `json:"reading_priority"`

	Comments     string `json:"comments"`
	FullTextPath string `json:"full_text_path,omitempty"`
}

// ToDocument snapshots the aggregate for persistence.
func (r *Review) ToDocument() Document {
	return Document{
		ReviewID:         r.reviewID,
		StudyID:          r.studyID,
		Record:           r.Record(),
		SearchSources:    r.SearchSources(),
		Criteria:         r.Criteria(),
		FormAnswers:      r.FormAnswers(),
		QualityAnswers:   r.QualityAnswers(),
		SelectionStatus:  r.selection,
		ExtractionStatus: r.extraction,
		ReadingPriority:  r.priority,
		Comments:         r.comments,
		FullTextPath:     r.fullTextPath,
	}
}

// FromDocument rebuilds the aggregate, re-validating the record and statuses.
// Missing statuses fall back to their defaults.
func FromDocument(doc Document) (*Review, error) {
	r, err := NewReview(doc.ReviewID, doc.StudyID, doc.Record, doc.SearchSources...)
	if err != nil {
		return nil, fmt.Errorf("study %d: %w", doc.StudyID, err)
	}

	if doc.SelectionStatus != "" {
		if err := r.SetSelectionStatus(doc.SelectionStatus); err != nil {
			return nil, fmt.Errorf("study %d: %w", doc.StudyID, err)
		}
	}
	if doc.ExtractionStatus != "" {
		if err := r.SetExtractionStatus(doc.ExtractionStatus); err != nil {
			return nil, fmt.Errorf("study %d: %w", doc.StudyID, err)
		}
	}
	if doc.ReadingPriority != "" {
		if err := r.SetReadingPriority(doc.ReadingPriority); err != nil {
			return nil, fmt.Errorf("study %d: %w", doc.StudyID, err)
		}
	}

	r.AddCriteria(doc.Criteria...)
	for _, a := range doc.FormAnswers {
		r.formAnswers[a.QuestionID] = a
	}
	for _, a := range doc.QualityAnswers {
		r.qualityAnswers[a.QuestionID] = a
	}
	r.comments = doc.Comments
	r.fullTextPath = doc.FullTextPath
	return r, nil
}
