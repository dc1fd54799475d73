package review

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
)

// Protocol returns the protocol of a systematic study, or an empty one when
// none has been written yet.
func (s *Service) Protocol(reviewID uuid.UUID) (*protocol.Protocol, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	p, err := s.repo.FindProtocol(reviewID)
	if errors.Is(err, ErrNotFound) {
		return protocol.New(reviewID), nil
	}
	return p, err
}

// ApplyProtocol merges a YAML protocol update into the stored protocol.
// Referenced extraction questions must be FORM questions and risk-of-bias
// questions ROB questions of the same systematic study.
func (s *Service) ApplyProtocol(reviewID uuid.UUID, data []byte) (*protocol.Protocol, error) {
	u, err := protocol.ParseUpdate(data)
	if err != nil {
		return nil, err
	}
	p, err := s.Protocol(reviewID)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(u); err != nil {
		return nil, err
	}

	if err := s.checkQuestions(reviewID, p.ExtractionQuestions, question.ContextForm); err != nil {
		return nil, err
	}
	if err := s.checkQuestions(reviewID, p.RobQuestions, question.ContextRoB); err != nil {
		return nil, err
	}

	if err := s.repo.SaveProtocol(p); err != nil {
		return nil, fmt.Errorf("saving protocol: %w", err)
	}
	return p, nil
}

func (s *Service) checkQuestions(reviewID uuid.UUID, ids []uuid.UUID, want question.Context) error {
	for _, id := range ids {
		q, err := s.repo.FindQuestion(reviewID, id)
		if err != nil {
			return err
		}
		if q.Context() != want {
			return fmt.Errorf("%w: question %s (%s) is a %s question, not %s",
				question.ErrInvalidQuestion, q.Code(), id, q.Context(), want)
		}
	}
	return nil
}
