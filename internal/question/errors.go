package question

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrTypeMismatch indicates the answer payload kind differs from the question kind.
	ErrTypeMismatch = errors.New("answer type mismatch")

	// ErrInvalidValue indicates the answer lies outside the question's allowed domain.
	ErrInvalidValue = errors.New("invalid answer value")

	// ErrInvalidQuestion indicates a question definition violates its construction rules.
	ErrInvalidQuestion = errors.New("invalid question")
)

// AnswerTypeMismatchError is returned when an answer's kind does not match its question.
type AnswerTypeMismatchError struct {
	QuestionID uuid.UUID // uuid.Nil when the question is not known yet
	Expected   Kind
	Got        string
}

func (e *AnswerTypeMismatchError) Error() string {
	if e.QuestionID == uuid.Nil {
		return fmt.Sprintf("type mismatch: answer is %s but %s was expected", e.Got, e.Expected)
	}
	return fmt.Sprintf("type mismatch: answer is %s but question %s is of type %s", e.Got, e.QuestionID, e.Expected)
}

func (e *AnswerTypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// AnswerValueError is returned when an answer has the right kind but an unacceptable value.
type AnswerValueError struct {
	QuestionID uuid.UUID
	Kind       Kind
	Reason     string
}

func (e *AnswerValueError) Error() string {
	if e.QuestionID == uuid.Nil {
		return fmt.Sprintf("invalid %s answer: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("invalid %s answer for question %s: %s", e.Kind, e.QuestionID, e.Reason)
}

func (e *AnswerValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

func mismatch(q Question, v Value) error {
	got := "nothing"
	if v != nil {
		got = string(v.Kind())
	}
	return &AnswerTypeMismatchError{QuestionID: q.ID(), Expected: q.Kind(), Got: got}
}

func invalid(q Question, format string, args ...interface{}) error {
	return &AnswerValueError{QuestionID: q.ID(), Kind: q.Kind(), Reason: fmt.Sprintf(format, args...)}
}
