// Package importer turns BibTeX exports into study reviews.
package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/bibtex"
	"github.com/matsen/slr/internal/sequence"
	"github.com/matsen/slr/internal/study"
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// EntryError ties a conversion failure to the entry that caused it.
type EntryError struct {
	Index int // 1-based position in the input
	Key   string
	Err   error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", e.Index, e.Key, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// BuildRecord converts one parsed entry into a study record.
//
// Text fields are trimmed but otherwise kept verbatim. The year must be four
// digits. A blank DOI is treated as absent; any other DOI must parse.
// Keywords are split on ',' and ';' into a set; references are split the
// same way (and on whitespace) keeping their order.
func BuildRecord(e bibtex.Entry) (study.Record, error) {
	typ, err := bibtex.Validate(e)
	if err != nil {
		return study.Record{}, err
	}

	rec := study.Record{Type: typ}
	rec.Title, _ = e.Field("title")
	rec.Authors, _ = e.Field(bibtex.AuthorFields(typ)...)
	rec.Venue, _ = e.Field(bibtex.VenueFields(typ)...)
	rec.Abstract, _ = e.Field("abstract")

	rawYear, _ := e.Field("year")
	year := rawYear
	if strings.HasPrefix(year, "{") && strings.HasSuffix(year, "}") {
		// protective braces, as in year = {{1951}}
		year = strings.TrimSpace(year[1 : len(year)-1])
	}
	if !yearPattern.MatchString(year) {
		return study.Record{}, &bibtex.FieldFormatError{Key: e.Key, Field: "year", Value: rawYear, Reason: "expected a 4-digit year"}
	}
	rec.Year, _ = strconv.Atoi(year)
	if rec.Year < 1000 {
		return study.Record{}, &bibtex.FieldFormatError{Key: e.Key, Field: "year", Value: rawYear, Reason: "expected a 4-digit year"}
	}

	if raw, ok := e.Field("doi"); ok {
		doi, err := study.ParseDOI(raw)
		if err != nil {
			return study.Record{}, &bibtex.FieldFormatError{Key: e.Key, Field: "doi", Value: raw, Reason: err.Error()}
		}
		rec.DOI = doi
	}

	rec.Keywords = splitSet(e.Fields["keywords"])
	rec.References = splitList(e.Fields["references"])

	if err := rec.Validate(); err != nil {
		return study.Record{}, fmt.Errorf("entry %q: %w", e.Key, err)
	}
	return rec, nil
}

func splitSet(s string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	}) {
		out = append(out, part)
	}
	return out
}

// Convert converts text holding exactly one entry into a study review with
// the next id from ids.
func Convert(text, source string, ids *sequence.Allocator) (*study.Review, error) {
	entries, err := bibtex.Parse(text)
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 {
		return nil, &bibtex.InputFormatError{Reason: fmt.Sprintf("expected exactly one entry, found %d", len(entries))}
	}
	reviews, err := convertEntries(entries, source, ids)
	if err != nil {
		return nil, err
	}
	return reviews[0], nil
}

// ConvertMany converts every entry in text, in input order, assigning
// consecutive ids. It stops at the first failing entry and returns an
// *EntryError; in that case no ids are consumed.
func ConvertMany(text, source string, ids *sequence.Allocator) ([]*study.Review, error) {
	entries, err := bibtex.Parse(text)
	if err != nil {
		return nil, err
	}
	return convertEntries(entries, source, ids)
}

func convertEntries(entries []bibtex.Entry, source string, ids *sequence.Allocator) ([]*study.Review, error) {
	if ids == nil || ids.ReviewID() == uuid.Nil {
		return nil, errors.New("an id allocator bound to a systematic study is required")
	}

	records := make([]study.Record, len(entries))
	for i, e := range entries {
		rec, err := BuildRecord(e)
		if err != nil {
			return nil, &EntryError{Index: i + 1, Key: e.Key, Err: err}
		}
		records[i] = rec
	}

	first, err := ids.Take(len(records))
	if err != nil {
		return nil, err
	}
	reviews := make([]*study.Review, len(records))
	for i, rec := range records {
		r, err := study.NewReview(ids.ReviewID(), first+int64(i), rec, source)
		if err != nil {
			return nil, &EntryError{Index: i + 1, Key: entries[i].Key, Err: err}
		}
		reviews[i] = r
	}
	return reviews, nil
}

// PreviewEntry is the dry-run outcome for one entry.
type PreviewEntry struct {
	Index  int           `json:"index"`
	Key    string        `json:"key"`
	Record *study.Record `json:"record,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// PreviewResult reports what an import would do without allocating ids.
type PreviewResult struct {
	Entries []PreviewEntry `json:"entries"`
	Valid   int            `json:"valid"`
	Invalid int            `json:"invalid"`
}

// Preview converts every entry it can and reports every failure instead of
// stopping at the first. Only unreadable input is returned as an error.
func Preview(text string) (PreviewResult, error) {
	entries, err := bibtex.Parse(text)
	if err != nil {
		return PreviewResult{}, err
	}

	return previewEntries(entries), nil
}

func previewEntries(entries []bibtex.Entry) PreviewResult {
	res := PreviewResult{Entries: make([]PreviewEntry, 0, len(entries))}
	for i, e := range entries {
		pe := PreviewEntry{Index: i + 1, Key: e.Key}
		rec, err := BuildRecord(e)
		if err != nil {
			pe.Error = err.Error()
			res.Invalid++
		} else {
			pe.Record = &rec
			res.Valid++
		}
		res.Entries = append(res.Entries, pe)
	}
	return res
}
