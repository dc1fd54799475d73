package review

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidReview is returned when a systematic study misses its title or description.
var ErrInvalidReview = errors.New("invalid systematic study")

// SystematicStudy is the scope every study, question and protocol belongs to.
type SystematicStudy struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Owner       string    `json:"owner,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Validate checks that the systematic study has an id, a title and a description.
func (s SystematicStudy) Validate() error {
	switch {
	case s.ID == uuid.Nil:
		return fmt.Errorf("%w: id must be set", ErrInvalidReview)
	case strings.TrimSpace(s.Title) == "":
		return fmt.Errorf("%w: title must not be blank", ErrInvalidReview)
	case strings.TrimSpace(s.Description) == "":
		return fmt.Errorf("%w: description must not be blank", ErrInvalidReview)
	}
	return nil
}
