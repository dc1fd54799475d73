// Package export writes study reviews to BibTeX.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/matsen/slr/internal/bibtex"
	"github.com/matsen/slr/internal/study"
	"golang.org/x/text/unicode/norm"
)

// ToBibTeX converts a study review to a BibTeX entry. The output parses back
// into the same record.
func ToBibTeX(r *study.Review) string {
	rec := r.Record()
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", bibtex.Token(rec.Type), CitationKey(r))

	writeField(&b, "title", rec.Title)
	writeField(&b, bibtex.AuthorFields(rec.Type)[0], rec.Authors)
	writeField(&b, "year", fmt.Sprintf("%d", rec.Year))
	writeField(&b, bibtex.VenueFields(rec.Type)[0], rec.Venue)

	if rec.DOI != "" {
		writeField(&b, "doi", rec.DOI.Suffix())
	}
	if rec.Abstract != "" {
		writeField(&b, "abstract", rec.Abstract)
	}
	if len(rec.Keywords) > 0 {
		writeField(&b, "keywords", strings.Join(rec.Keywords, ", "))
	}
	if len(rec.References) > 0 {
		writeField(&b, "references", strings.Join(rec.References, ", "))
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple study reviews to BibTeX, one blank line apart.
func ToBibTeXList(reviews []*study.Review) string {
	entries := make([]string, 0, len(reviews))
	for _, r := range reviews {
		entries = append(entries, ToBibTeX(r))
	}
	return strings.Join(entries, "\n")
}

// CitationKey builds a key from the first author's last name, the year and
// the study id, e.g. "Nash1951-3". Accents are dropped from the name.
func CitationKey(r *study.Review) string {
	rec := r.Record()
	return fmt.Sprintf("%s%d-%d", firstAuthorName(rec.Authors), rec.Year, r.StudyID())
}

func firstAuthorName(authors string) string {
	first := authors
	if i := strings.Index(strings.ToLower(first), " and "); i >= 0 {
		first = first[:i]
	}
	if i := strings.Index(first, ","); i >= 0 {
		first = first[:i]
	} else if fields := strings.Fields(first); len(fields) > 0 {
		first = fields[len(fields)-1]
	}

	var b strings.Builder
	for _, c := range norm.NFKD.String(first) {
		if c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return "study"
	}
	return b.String()
}

func writeField(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "  %s = {%s},\n", name, braceSafe(value))
}

// braceSafe keeps values with balanced braces verbatim so that markup such
// as {SOA} survives a round trip. Unbalanced braces are escaped.
func braceSafe(s string) string {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
		case s[i] == '{':
			depth++
		case s[i] == '}':
			depth--
			if depth < 0 {
				return escapeBraces(s)
			}
		}
	}
	if depth != 0 {
		return escapeBraces(s)
	}
	return s
}

func escapeBraces(s string) string {
	return strings.NewReplacer("{", `\{`, "}", `\}`).Replace(s)
}
