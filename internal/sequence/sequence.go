// Package sequence hands out study identifiers within one systematic study.
package sequence

import (
	"fmt"

	"github.com/google/uuid"
)

// Allocator issues strictly increasing study ids for one systematic study.
// It does no locking; callers serialise writes to a review.
type Allocator struct {
	reviewID uuid.UUID
	last     int64
}

// New returns an allocator for reviewID whose next id is last+1.
// Pass the highest id already stored for that review, or 0.
func New(reviewID uuid.UUID, last int64) *Allocator {
	a := &Allocator{reviewID: reviewID}
	a.Reset(last)
	return a
}

// ReviewID returns the systematic study the allocator is scoped to.
func (a *Allocator) ReviewID() uuid.UUID { return a.reviewID }

// Next returns the next id.
func (a *Allocator) Next() int64 {
	a.last++
	return a.last
}

// Take reserves n consecutive ids and returns the first.
func (a *Allocator) Take(n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("cannot take %d ids", n)
	}
	first := a.last + 1
	a.last += int64(n)
	return first, nil
}

// Last returns the most recently issued id, or the seed when none was issued.
func (a *Allocator) Last() int64 { return a.last }

// Reset re-seeds the sequence so the next id is last+1.
func (a *Allocator) Reset(last int64) {
	if last < 0 {
		last = 0
	}
	a.last = last
}
