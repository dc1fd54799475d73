package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/slr/internal/bibtex"
	"github.com/matsen/slr/internal/sequence"
	"github.com/matsen/slr/internal/study"
)

// FlexibleString can unmarshal from either string or number JSON values.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// PaperpileEntry is a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string   `json:"_id"`
	Citekey   string   `json:"citekey"`
	PubType   string   `json:"pubtype"`
	DOI       string   `json:"doi"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Journal   string   `json:"journal"`
	Booktitle string   `json:"booktitle"`
	Publisher string   `json:"publisher"`
	Keywords  []string `json:"keywords"`
	Published struct {
		Year FlexibleString `json:"year"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
}

// paperpileTypes maps Paperpile publication types onto entry tokens.
var paperpileTypes = map[string]string{
	"":                "article",
	"journal":         "article",
	"article":         "article",
	"conference":      "inproceedings",
	"inproceedings":   "inproceedings",
	"book":            "book",
	"chapter":         "inbook",
	"thesis":          "phdthesis",
	"phdthesis":       "phdthesis",
	"mastersthesis":   "mastersthesis",
	"report":          "techreport",
	"techreport":      "techreport",
	"manual":          "manual",
	"unpublished":     "unpublished",
	"preprint":        "misc",
	"misc":            "misc",
	"proceedings":     "proceedings",
	"booklet":         "booklet",
	"journal_article": "article",
}

// ParsePaperpile reads a Paperpile JSON export into entries that go through
// the same validation as BibTeX input.
func ParsePaperpile(data []byte) ([]bibtex.Entry, error) {
	var raw []PaperpileEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &bibtex.InputFormatError{Reason: fmt.Sprintf("parsing Paperpile JSON: %v", err)}
	}
	if len(raw) == 0 {
		return nil, &bibtex.InputFormatError{Reason: "no bibliographic entry found"}
	}

	entries := make([]bibtex.Entry, len(raw))
	for i, pe := range raw {
		entries[i] = pe.toEntry()
	}
	return entries, nil
}

func (pe PaperpileEntry) toEntry() bibtex.Entry {
	key := pe.Citekey
	if key == "" {
		key = pe.ID
	}
	token, ok := paperpileTypes[strings.ToLower(pe.PubType)]
	if !ok {
		token = pe.PubType
	}

	fields := map[string]string{
		"title":    pe.Title,
		"abstract": pe.Abstract,
		"year":     yearString(pe.Published.Year.String()),
		"doi":      pe.DOI,
		"keywords": strings.Join(pe.Keywords, ", "),
	}
	if len(pe.Author) > 0 {
		fields["author"] = formatAuthors(pe)
	}

	venue := pe.Journal
	for _, v := range []string{pe.Booktitle, pe.Publisher} {
		if venue == "" {
			venue = v
		}
	}
	if t, err := bibtex.ResolveType(token); err == nil {
		fields[bibtex.VenueFields(t)[0]] = venue
	}

	return bibtex.Entry{Type: token, Key: key, Fields: fields}
}

// formatAuthors writes authors in BibTeX style: "Last, First and Last, First".
func formatAuthors(pe PaperpileEntry) string {
	var formatted []string
	for _, a := range pe.Author {
		if a.First != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", a.Last, a.First))
		} else {
			formatted = append(formatted, a.Last)
		}
	}
	return strings.Join(formatted, " and ")
}

// ConvertPaperpile converts a Paperpile export with the same all-or-nothing
// rules as ConvertMany.
func ConvertPaperpile(data []byte, source string, ids *sequence.Allocator) ([]*study.Review, error) {
	entries, err := ParsePaperpile(data)
	if err != nil {
		return nil, err
	}
	return convertEntries(entries, source, ids)
}

// PreviewPaperpile is the dry-run counterpart of ConvertPaperpile.
func PreviewPaperpile(data []byte) (PreviewResult, error) {
	entries, err := ParsePaperpile(data)
	if err != nil {
		return PreviewResult{}, err
	}
	return previewEntries(entries), nil
}

// yearString normalises numeric years such as 2020.0 written by some exports.
func yearString(s string) string {
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return strconv.Itoa(int(f))
	}
	return s
}
