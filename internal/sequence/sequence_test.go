package sequence

import (
	"testing"

	"github.com/google/uuid"
)

func TestAllocator_StartsAfterSeed(t *testing.T) {
	a := New(uuid.New(), 0)
	for want := int64(1); want <= 3; want++ {
		if got := a.Next(); got != want {
			t.Errorf("Next() = %d, want %d", got, want)
		}
	}

	b := New(uuid.New(), 41)
	if got := b.Next(); got != 42 {
		t.Errorf("Next() after seed 41 = %d, want 42", got)
	}
}

func TestAllocator_NegativeSeed(t *testing.T) {
	a := New(uuid.New(), -5)
	if got := a.Next(); got != 1 {
		t.Errorf("Next() = %d, want 1", got)
	}
}

func TestAllocator_Take(t *testing.T) {
	a := New(uuid.New(), 10)
	first, err := a.Take(3)
	if err != nil {
		t.Fatalf("Take(3) error = %v", err)
	}
	if first != 11 {
		t.Errorf("Take(3) = %d, want 11", first)
	}
	if got := a.Last(); got != 13 {
		t.Errorf("Last() = %d, want 13", got)
	}
	if _, err := a.Take(0); err == nil {
		t.Error("Take(0) should fail")
	}
	if got := a.Last(); got != 13 {
		t.Errorf("Last() after failed Take = %d, want 13", got)
	}
}

func TestAllocator_Reset(t *testing.T) {
	a := New(uuid.New(), 0)
	a.Next()
	a.Next()

	a.Reset(0)
	if got := a.Next(); got != 1 {
		t.Errorf("Next() after Reset(0) = %d, want 1", got)
	}

	a.Reset(99)
	if got := a.Next(); got != 100 {
		t.Errorf("Next() after Reset(99) = %d, want 100", got)
	}
}
