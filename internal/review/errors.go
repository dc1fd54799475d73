package review

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a referenced systematic study, study, question or
// protocol that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Kinds used in NotFoundError.
const (
	KindSystematicStudy = "systematic study"
	KindStudy           = "study"
	KindQuestion        = "question"
	KindProtocol        = "protocol"
)
