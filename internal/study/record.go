package study

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRecord is returned when a study record misses a mandatory attribute.
var ErrInvalidRecord = errors.New("invalid study record")

// Record holds the bibliographic attributes of a study.
type Record struct {
	Type       Type     `json:"type"`
	Title      string   `json:"title"`
	Authors    string   `json:"authors"` // verbatim, separators preserved
	Year       int      `json:"year"`
	Venue      string   `json:"venue"`
	Abstract   string   `json:"abstract"`
	Keywords   []string `json:"keywords"`
	References []string `json:"references"` // citation keys, source order
	DOI        DOI      `json:"doi,omitempty"`
}

// Validate checks the mandatory attributes: type, title, authors, year and venue.
// The abstract may be empty when the source had none.
func (r Record) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidRecord, r.Type)
	}
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", r.Title},
		{"authors", r.Authors},
		{"venue", r.Venue},
	} {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s must not be blank", ErrInvalidRecord, f.name)
		}
	}
	if r.Year < 1000 || r.Year > 9999 {
		return fmt.Errorf("%w: year %d is not a 4-digit year", ErrInvalidRecord, r.Year)
	}
	if r.DOI != "" {
		if _, err := ParseDOI(string(r.DOI)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}
	return nil
}

// normalized returns a copy with trimmed text and non-nil collections.
func (r Record) normalized() Record {
	r.Title = strings.TrimSpace(r.Title)
	r.Authors = strings.TrimSpace(r.Authors)
	r.Venue = strings.TrimSpace(r.Venue)
	r.Abstract = strings.TrimSpace(r.Abstract)
	r.Keywords = addToSet(nil, r.Keywords...)
	refs := make([]string, 0, len(r.References))
	refs = append(refs, r.References...)
	r.References = refs
	return r
}

// addToSet appends the non-blank values not already present, keeping first-seen order.
func addToSet(set []string, values ...string) []string {
	if set == nil {
		set = []string{}
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || contains(set, v) {
			continue
		}
		set = append(set, v)
	}
	return set
}

func removeFromSet(set []string, values ...string) []string {
	out := set[:0]
	for _, s := range set {
		if !contains(values, s) {
			out = append(out, s)
		}
	}
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
