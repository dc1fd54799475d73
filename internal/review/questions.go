package review

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/question"
	"gopkg.in/yaml.v3"
)

// QuestionDefinition is one question as written in a YAML definitions file.
type QuestionDefinition struct {
	Code        string           `yaml:"code"`
	Description string           `yaml:"description"`
	Context     string           `yaml:"context"`
	Type        string           `yaml:"type"`
	Options     []string         `yaml:"options,omitempty"`
	Lower       *int             `yaml:"lower,omitempty"`
	Higher      *int             `yaml:"higher,omitempty"`
	Scales      []question.Label `yaml:"scales,omitempty"`
}

// ParseQuestionDefinitions reads a YAML list of question definitions.
func ParseQuestionDefinitions(data []byte) ([]QuestionDefinition, error) {
	var defs []QuestionDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing question definitions: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no question definitions found", question.ErrInvalidQuestion)
	}
	return defs, nil
}

func (d QuestionDefinition) build(id, reviewID uuid.UUID) (question.Question, error) {
	return question.FromDocument(question.Document{
		ID:          id,
		ReviewID:    reviewID,
		Code:        d.Code,
		Description: d.Description,
		Context:     question.Context(d.Context),
		Type:        question.Kind(d.Type),
		Options:     d.Options,
		Lower:       d.Lower,
		Higher:      d.Higher,
		Scales:      d.Scales,
	})
}

// AddQuestions creates questions from YAML definitions. Codes must be
// unique within the systematic study. Either every definition is stored or
// none is.
func (s *Service) AddQuestions(reviewID uuid.UUID, data []byte) ([]question.Question, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	defs, err := ParseQuestionDefinitions(data)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListQuestions(reviewID)
	if err != nil {
		return nil, fmt.Errorf("listing questions: %w", err)
	}
	codes := make(map[string]bool, len(existing)+len(defs))
	for _, q := range existing {
		codes[q.Code()] = true
	}

	qs := make([]question.Question, 0, len(defs))
	for i, d := range defs {
		q, err := d.build(s.newID(), reviewID)
		if err != nil {
			return nil, fmt.Errorf("question %d (%s): %w", i+1, strings.TrimSpace(d.Code), err)
		}
		if codes[q.Code()] {
			return nil, fmt.Errorf("%w: code %q is already used in this systematic study", question.ErrInvalidQuestion, q.Code())
		}
		codes[q.Code()] = true
		qs = append(qs, q)
	}

	if err := s.repo.SaveQuestions(qs...); err != nil {
		return nil, fmt.Errorf("saving questions: %w", err)
	}
	return qs, nil
}

// Questions lists the questions of a systematic study.
func (s *Service) Questions(reviewID uuid.UUID) ([]question.Question, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	return s.repo.ListQuestions(reviewID)
}
