package bibtex

import (
	"strings"

	"github.com/matsen/slr/internal/study"
)

// rule describes where a study type keeps its authors and venue.
// Each list is tried in order; the first non-blank field is used.
type rule struct {
	authors []string
	venue   []string
}

var rules = map[study.Type]rule{
	study.Article:       {authors: []string{"author"}, venue: []string{"journal"}},
	study.InProceedings: {authors: []string{"author"}, venue: []string{"booktitle"}},
	study.TechReport:    {authors: []string{"author"}, venue: []string{"institution"}},
	study.Book:          {authors: []string{"author", "editor"}, venue: []string{"publisher"}},
	study.Proceedings:   {authors: []string{"author", "editor"}, venue: []string{"publisher", "organization"}},
	study.PhDThesis:     {authors: []string{"author"}, venue: []string{"school"}},
	study.MastersThesis: {authors: []string{"author"}, venue: []string{"school"}},
	study.InBook:        {authors: []string{"author", "editor"}, venue: []string{"booktitle", "publisher"}},
	study.Booklet:       {authors: []string{"author"}, venue: []string{"howpublished"}},
	study.Manual:        {authors: []string{"author"}, venue: []string{"organization"}},
	study.Misc:          {authors: []string{"author"}, venue: []string{"howpublished"}},
	study.Unpublished:   {authors: []string{"author"}, venue: []string{"note"}},
}

// aliases maps legacy entry tokens onto a supported type.
var aliases = map[string]study.Type{
	"conference": study.InProceedings,
}

// ResolveType maps an entry type token (case-insensitive) to a study type.
// Unknown tokens are rejected, never mapped to a default.
func ResolveType(token string) (study.Type, error) {
	lower := strings.ToLower(strings.TrimSpace(token))
	if t, ok := aliases[lower]; ok {
		return t, nil
	}
	t := study.Type(strings.ToUpper(lower))
	if _, ok := rules[t]; !ok {
		return "", &UnsupportedTypeError{Type: token}
	}
	return t, nil
}

// Token returns the lower-case entry token written for t.
func Token(t study.Type) string {
	return strings.ToLower(string(t))
}

// AuthorFields lists the fields that may carry the authors of t, in preference order.
func AuthorFields(t study.Type) []string {
	return append([]string{}, rules[t].authors...)
}

// VenueFields lists the fields that may carry the venue of t, in preference order.
func VenueFields(t study.Type) []string {
	return append([]string{}, rules[t].venue...)
}

// Validate resolves the entry's type and checks that title, authors, year and
// venue are present and non-blank. The abstract is optional, but a blank one
// is rejected.
func Validate(e Entry) (study.Type, error) {
	t, err := ResolveType(e.Type)
	if err != nil {
		return "", &UnsupportedTypeError{Key: e.Key, Type: e.Type}
	}

	r := rules[t]
	for _, names := range [][]string{{"title"}, r.authors, {"year"}, r.venue} {
		if _, ok := e.Field(names...); ok {
			continue
		}
		blank := false
		for _, n := range names {
			if e.Has(n) {
				blank = true
			}
		}
		return "", &MissingFieldError{Key: e.Key, Field: strings.Join(names, " or "), Blank: blank}
	}
	if _, ok := e.Field("abstract"); !ok && e.Has("abstract") {
		return "", &MissingFieldError{Key: e.Key, Field: "abstract", Blank: true}
	}
	return t, nil
}
