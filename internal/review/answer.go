package review

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/study"
)

// AnswerItem is one answer in a batch. Type must name the kind of the
// referenced question; Answer is a string, an integer or a {name, value}
// object depending on that kind.
type AnswerItem struct {
	QuestionID string          `json:"questionId"`
	Type       string          `json:"type"`
	Answer     json.RawMessage `json:"answer"`
}

// AnswerFailure is an item that could not be applied.
type AnswerFailure struct {
	QuestionID string `json:"questionId"`
	Reason     string `json:"reason"`
}

// BatchAnswerResult reports the outcome of every item of a batch.
type BatchAnswerResult struct {
	ReviewID      uuid.UUID       `json:"systematicStudyId"`
	StudyID       int64           `json:"studyReviewId"`
	Succeeded     []uuid.UUID     `json:"succeededAnswers"`
	Failed        []AnswerFailure `json:"failedAnswers"`
	TotalAnswered int             `json:"totalAnswered"`
}

// BatchAnswer applies every item to one study review. A failing item is
// recorded with its reason and the remaining items are still applied. The
// study is saved once when at least one item succeeded.
//
// Only storage failures abort the batch; an unknown question is an item failure.
func (s *Service) BatchAnswer(reviewID uuid.UUID, studyID int64, items []AnswerItem) (*BatchAnswerResult, error) {
	r, err := s.Study(reviewID, studyID)
	if err != nil {
		return nil, err
	}

	res := &BatchAnswerResult{
		ReviewID:  reviewID,
		StudyID:   studyID,
		Succeeded: []uuid.UUID{},
		Failed:    []AnswerFailure{},
	}
	for _, item := range items {
		qid, err := s.applyAnswer(r, item)
		if err != nil {
			if !isItemFailure(err) {
				return nil, err
			}
			res.Failed = append(res.Failed, AnswerFailure{QuestionID: item.QuestionID, Reason: err.Error()})
			continue
		}
		res.Succeeded = append(res.Succeeded, qid)
	}
	res.TotalAnswered = len(res.Succeeded)

	if res.TotalAnswered > 0 {
		if err := s.repo.SaveStudies(r); err != nil {
			return nil, fmt.Errorf("saving answers of study %d: %w", studyID, err)
		}
	}
	return res, nil
}

// AnswerQuestion applies a single answer and saves the study, failing on
// the first problem.
func (s *Service) AnswerQuestion(reviewID uuid.UUID, studyID int64, item AnswerItem) (*study.Review, error) {
	r, err := s.Study(reviewID, studyID)
	if err != nil {
		return nil, err
	}
	if _, err := s.applyAnswer(r, item); err != nil {
		return nil, err
	}
	if err := s.repo.SaveStudies(r); err != nil {
		return nil, fmt.Errorf("saving answer of study %d: %w", studyID, err)
	}
	return r, nil
}

// itemError marks a per-item problem that is not a storage failure.
type itemError struct{ err error }

func (e *itemError) Error() string { return e.err.Error() }
func (e *itemError) Unwrap() error { return e.err }

func isItemFailure(err error) bool {
	var ie *itemError
	return errors.As(err, &ie) || errors.Is(err, ErrNotFound)
}

func (s *Service) applyAnswer(r *study.Review, item AnswerItem) (uuid.UUID, error) {
	qid, err := uuid.Parse(strings.TrimSpace(item.QuestionID))
	if err != nil {
		return uuid.Nil, &itemError{fmt.Errorf("invalid question id %q", item.QuestionID)}
	}
	q, err := s.repo.FindQuestion(r.ReviewID(), qid)
	if err != nil {
		return uuid.Nil, err
	}

	// The declared type must spell the question's kind exactly.
	declared := question.Kind(item.Type)
	if declared != q.Kind() {
		return uuid.Nil, &itemError{&question.AnswerTypeMismatchError{QuestionID: qid, Expected: q.Kind(), Got: item.Type}}
	}
	v, err := question.DecodeValue(declared, item.Answer)
	if err != nil {
		return uuid.Nil, &itemError{fmt.Errorf("question %s: %w", qid, err)}
	}
	if err := r.Answer(q, v); err != nil {
		return uuid.Nil, &itemError{err}
	}
	return qid, nil
}
