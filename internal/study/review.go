package study

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/question"
)

// ErrWrongQuestion is returned when a question cannot be answered on a study review,
// either because it belongs to another systematic study or to the other form.
var ErrWrongQuestion = errors.New("question does not apply")

// Review is the study review aggregate: one study's bibliographic record plus
// its screening and extraction state within one systematic study.
//
// Selection status, extraction status and reading priority are independent
// and may be set to any value at any time. Answers are keyed by question id;
// answering a question again replaces the previous answer.
type Review struct {
	reviewID uuid.UUID
	studyID  int64
	record   Record

	searchSources []string
	criteria      []string

	formAnswers    map[uuid.UUID]question.Answer
	qualityAnswers map[uuid.UUID]question.Answer

	selection  SelectionStatus
	extraction ExtractionStatus
	priority   ReadingPriority

	comments     string
	fullTextPath string
}

// NewReview creates a study review with default statuses and no answers.
func NewReview(reviewID uuid.UUID, studyID int64, record Record, searchSources ...string) (*Review, error) {
	if reviewID == uuid.Nil {
		return nil, fmt.Errorf("%w: review id must be set", ErrInvalidRecord)
	}
	if studyID < 1 {
		return nil, fmt.Errorf("%w: study id must be positive, got %d", ErrInvalidRecord, studyID)
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}
	return &Review{
		reviewID:       reviewID,
		studyID:        studyID,
		record:         record.normalized(),
		searchSources:  addToSet(nil, searchSources...),
		criteria:       []string{},
		formAnswers:    make(map[uuid.UUID]question.Answer),
		qualityAnswers: make(map[uuid.UUID]question.Answer),
		selection:      SelectionUnclassified,
		extraction:     ExtractionUnclassified,
		priority:       PriorityLow,
	}, nil
}

func (r *Review) ReviewID() uuid.UUID                { return r.reviewID }
func (r *Review) StudyID() int64                     { return r.studyID }
func (r *Review) SelectionStatus() SelectionStatus   { return r.selection }
func (r *Review) ExtractionStatus() ExtractionStatus { return r.extraction }
func (r *Review) ReadingPriority() ReadingPriority   { return r.priority }
func (r *Review) Comments() string                   { return r.comments }
func (r *Review) FullTextPath() string               { return r.fullTextPath }

// Record returns a copy of the bibliographic record.
func (r *Review) Record() Record {
	rec := r.record
	rec.Keywords = append([]string{}, r.record.Keywords...)
	rec.References = append([]string{}, r.record.References...)
	return rec
}

// SearchSources returns the search-source labels in first-seen order.
func (r *Review) SearchSources() []string {
	return append([]string{}, r.searchSources...)
}

// Criteria returns the eligibility criteria the study was tagged with.
func (r *Review) Criteria() []string {
	return append([]string{}, r.criteria...)
}

// HasSearchSource reports whether the study was found through source.
func (r *Review) HasSearchSource(source string) bool {
	return contains(r.searchSources, strings.TrimSpace(source))
}

// AnswerFormQuestion validates v against q and stores it as an extraction answer.
func (r *Review) AnswerFormQuestion(q question.Question, v question.Value) error {
	return r.answer(q, v, question.ContextForm, r.formAnswers)
}

// AnswerQualityQuestion validates v against q and stores it as a quality-assessment answer.
func (r *Review) AnswerQualityQuestion(q question.Question, v question.Value) error {
	return r.answer(q, v, question.ContextRoB, r.qualityAnswers)
}

// Answer routes v to the extraction or quality-assessment answers by q's context.
func (r *Review) Answer(q question.Question, v question.Value) error {
	if q != nil && q.Context() == question.ContextRoB {
		return r.AnswerQualityQuestion(q, v)
	}
	return r.AnswerFormQuestion(q, v)
}

func (r *Review) answer(q question.Question, v question.Value, want question.Context, into map[uuid.UUID]question.Answer) error {
	if q == nil {
		return fmt.Errorf("%w: no question given", ErrWrongQuestion)
	}
	if q.ReviewID() != r.reviewID {
		return fmt.Errorf("%w: question %s belongs to systematic study %s", ErrWrongQuestion, q.ID(), q.ReviewID())
	}
	if q.Context() != want {
		return fmt.Errorf("%w: question %s is a %s question, not %s", ErrWrongQuestion, q.ID(), q.Context(), want)
	}
	a, err := q.Answer(v)
	if err != nil {
		return err
	}
	into[q.ID()] = a
	return nil
}

// FormAnswer returns the extraction answer for a question, if any.
func (r *Review) FormAnswer(questionID uuid.UUID) (question.Answer, bool) {
	a, ok := r.formAnswers[questionID]
	return a, ok
}

// QualityAnswer returns the quality-assessment answer for a question, if any.
func (r *Review) QualityAnswer(questionID uuid.UUID) (question.Answer, bool) {
	a, ok := r.qualityAnswers[questionID]
	return a, ok
}

// FormAnswers returns all extraction answers ordered by question id.
func (r *Review) FormAnswers() []question.Answer {
	return sortedAnswers(r.formAnswers)
}

// QualityAnswers returns all quality-assessment answers ordered by question id.
func (r *Review) QualityAnswers() []question.Answer {
	return sortedAnswers(r.qualityAnswers)
}

func sortedAnswers(m map[uuid.UUID]question.Answer) []question.Answer {
	out := make([]question.Answer, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionID.String() < out[j].QuestionID.String()
	})
	return out
}

// SetSelectionStatus replaces the selection status.
func (r *Review) SetSelectionStatus(s SelectionStatus) error {
	parsed, err := ParseSelectionStatus(string(s))
	if err != nil {
		return err
	}
	r.selection = parsed
	return nil
}

// SetExtractionStatus replaces the extraction status.
func (r *Review) SetExtractionStatus(s ExtractionStatus) error {
	parsed, err := ParseExtractionStatus(string(s))
	if err != nil {
		return err
	}
	r.extraction = parsed
	return nil
}

// SetReadingPriority replaces the reading priority.
func (r *Review) SetReadingPriority(p ReadingPriority) error {
	parsed, err := ParseReadingPriority(string(p))
	if err != nil {
		return err
	}
	r.priority = parsed
	return nil
}

// SetComments replaces the reviewer's free-text comments.
func (r *Review) SetComments(comments string) {
	r.comments = comments
}

// AddSearchSources records additional sources the study was found through.
func (r *Review) AddSearchSources(sources ...string) {
	r.searchSources = addToSet(r.searchSources, sources...)
}

// AddCriteria tags the study with eligibility criteria.
func (r *Review) AddCriteria(criteria ...string) {
	r.criteria = addToSet(r.criteria, criteria...)
}

// RemoveCriteria drops eligibility criteria tags.
func (r *Review) RemoveCriteria(criteria ...string) {
	r.criteria = removeFromSet(r.criteria, criteria...)
}

// AttachFullText records the full-text location. The DOI is only used when
// the record has none.
func (r *Review) AttachFullText(path string, doi DOI) {
	r.fullTextPath = strings.TrimSpace(path)
	if r.record.DOI == "" && doi != "" {
		r.record.DOI = doi
	}
}

// DuplicateResult names the two study reviews touched by MarkAsDuplicate.
type DuplicateResult struct {
	ReviewID          uuid.UUID `json:"systematic_study_id"`
	UpdatedStudyID    int64     `json:"updated_study_review"`
	DuplicatedStudyID int64     `json:"duplicated_study_review"`
}

// MarkAsDuplicate marks duplicate as a duplicate of target: duplicate's
// selection status becomes DUPLICATED and its search sources are merged into
// target's. Both reviews are checked before either is changed, so the merge
// is never half-applied. Repeating the call leaves target's sources unchanged.
func MarkAsDuplicate(duplicate, target *Review) (DuplicateResult, error) {
	if duplicate == nil || target == nil {
		return DuplicateResult{}, fmt.Errorf("%w: both study reviews are required", ErrInvalidRecord)
	}
	if duplicate.reviewID != target.reviewID {
		return DuplicateResult{}, fmt.Errorf("%w: studies %d and %d belong to different systematic studies",
			ErrInvalidRecord, duplicate.studyID, target.studyID)
	}
	if duplicate.studyID == target.studyID {
		return DuplicateResult{}, fmt.Errorf("%w: study %d cannot be a duplicate of itself", ErrInvalidRecord, duplicate.studyID)
	}

	target.searchSources = addToSet(target.searchSources, duplicate.searchSources...)
	duplicate.selection = SelectionDuplicated

	return DuplicateResult{
		ReviewID:          target.reviewID,
		UpdatedStudyID:    target.studyID,
		DuplicatedStudyID: duplicate.studyID,
	}, nil
}
