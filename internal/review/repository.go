package review

import (
	"github.com/google/uuid"
	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/study"
)

// Lookups return a *NotFoundError when the requested item does not exist.
// Any other error is a storage failure and is passed through unchanged.

// ReviewRepository stores systematic studies.
type ReviewRepository interface {
	FindReview(id uuid.UUID) (*SystematicStudy, error)
	ListReviews() ([]SystematicStudy, error)
	SaveReview(s SystematicStudy) error
}

// QuestionRepository stores question definitions per systematic study.
type QuestionRepository interface {
	FindQuestion(reviewID, questionID uuid.UUID) (question.Question, error)
	ListQuestions(reviewID uuid.UUID) ([]question.Question, error)
	SaveQuestions(qs ...question.Question) error
}

// StudyRepository stores study reviews. SaveStudies must persist all the
// given studies in one write, inserting new ones and replacing existing ones.
type StudyRepository interface {
	FindStudy(reviewID uuid.UUID, studyID int64) (*study.Review, error)
	ListStudies(reviewID uuid.UUID) ([]*study.Review, error)
	SaveStudies(studies ...*study.Review) error
	MaxStudyID(reviewID uuid.UUID) (int64, error)
}

// ProtocolRepository stores one protocol per systematic study.
type ProtocolRepository interface {
	FindProtocol(reviewID uuid.UUID) (*protocol.Protocol, error)
	SaveProtocol(p *protocol.Protocol) error
}

// Repository is everything the Service needs from storage.
type Repository interface {
	ReviewRepository
	QuestionRepository
	StudyRepository
	ProtocolRepository
}
