// Package review holds the application services of a systematic study:
// creating the study, ingesting bibliographic files, answering questions,
// screening and duplicate resolution. It depends on storage only through
// the collaborator interfaces in repository.go and never logs; callers
// serialise operations on the same systematic study.
package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/sequence"
	"github.com/matsen/slr/internal/study"
)

// Service implements the systematic-review operations on top of a Repository.
type Service struct {
	repo  Repository
	ids   map[uuid.UUID]*sequence.Allocator
	now   func() time.Time
	newID func() uuid.UUID
}

// NewService returns a Service backed by repo.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		ids:   make(map[uuid.UUID]*sequence.Allocator),
		now:   time.Now,
		newID: uuid.New,
	}
}

// CreateReview creates and stores a new systematic study.
func (s *Service) CreateReview(title, description, owner string) (*SystematicStudy, error) {
	ss := SystematicStudy{
		ID:          s.newID(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Owner:       strings.TrimSpace(owner),
		CreatedAt:   s.now().UTC(),
	}
	if err := ss.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.SaveReview(ss); err != nil {
		return nil, fmt.Errorf("saving systematic study: %w", err)
	}
	return &ss, nil
}

// Review returns one systematic study.
func (s *Service) Review(id uuid.UUID) (*SystematicStudy, error) {
	return s.repo.FindReview(id)
}

// Reviews lists every systematic study.
func (s *Service) Reviews() ([]SystematicStudy, error) {
	return s.repo.ListReviews()
}

// requireReview fails with a NotFoundError when the systematic study does not exist.
func (s *Service) requireReview(id uuid.UUID) error {
	_, err := s.repo.FindReview(id)
	return err
}

// allocator returns the id allocator of a systematic study, seeding it from
// the highest stored study id the first time it is needed.
func (s *Service) allocator(reviewID uuid.UUID) (*sequence.Allocator, error) {
	if a, ok := s.ids[reviewID]; ok {
		return a, nil
	}
	last, err := s.repo.MaxStudyID(reviewID)
	if err != nil {
		return nil, fmt.Errorf("reading highest study id: %w", err)
	}
	a := sequence.New(reviewID, last)
	s.ids[reviewID] = a
	return a, nil
}

// Study returns one study review.
func (s *Service) Study(reviewID uuid.UUID, studyID int64) (*study.Review, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	return s.repo.FindStudy(reviewID, studyID)
}

// Studies lists the study reviews of a systematic study.
func (s *Service) Studies(reviewID uuid.UUID) ([]*study.Review, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	return s.repo.ListStudies(reviewID)
}

// UpdateStudy loads a study review, applies fn and saves the result.
// Nothing is saved when fn fails.
func (s *Service) UpdateStudy(reviewID uuid.UUID, studyID int64, fn func(*study.Review) error) (*study.Review, error) {
	r, err := s.Study(reviewID, studyID)
	if err != nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}
	if err := s.repo.SaveStudies(r); err != nil {
		return nil, fmt.Errorf("saving study %d: %w", studyID, err)
	}
	return r, nil
}

// StatusChange names the statuses to change; empty fields are left as they are.
type StatusChange struct {
	Selection  string
	Extraction string
	Priority   string
}

// UpdateStatus changes any combination of the three independent status axes.
func (s *Service) UpdateStatus(reviewID uuid.UUID, studyID int64, c StatusChange) (*study.Review, error) {
	if c.Selection == "" && c.Extraction == "" && c.Priority == "" {
		return nil, errors.New("no status to change")
	}
	return s.UpdateStudy(reviewID, studyID, func(r *study.Review) error {
		if c.Selection != "" {
			if err := r.SetSelectionStatus(study.SelectionStatus(c.Selection)); err != nil {
				return err
			}
		}
		if c.Extraction != "" {
			if err := r.SetExtractionStatus(study.ExtractionStatus(c.Extraction)); err != nil {
				return err
			}
		}
		if c.Priority != "" {
			if err := r.SetReadingPriority(study.ReadingPriority(c.Priority)); err != nil {
				return err
			}
		}
		return nil
	})
}

// MarkDuplicate marks duplicateID as a duplicate of targetID and saves both
// study reviews in a single write.
func (s *Service) MarkDuplicate(reviewID uuid.UUID, duplicateID, targetID int64) (study.DuplicateResult, error) {
	dup, err := s.Study(reviewID, duplicateID)
	if err != nil {
		return study.DuplicateResult{}, err
	}
	target, err := s.repo.FindStudy(reviewID, targetID)
	if err != nil {
		return study.DuplicateResult{}, err
	}

	res, err := study.MarkAsDuplicate(dup, target)
	if err != nil {
		return study.DuplicateResult{}, err
	}
	if err := s.repo.SaveStudies(target, dup); err != nil {
		return study.DuplicateResult{}, fmt.Errorf("saving duplicate resolution: %w", err)
	}
	return res, nil
}
