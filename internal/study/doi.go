package study

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DOIPrefix is the resolver prefix every stored DOI carries.
const DOIPrefix = "https://doi.org/"

// ErrInvalidDOI is returned when a DOI cannot be canonicalised.
var ErrInvalidDOI = errors.New("invalid DOI")

// doiSuffixPattern checks only the shape 10.<registrant>/<suffix>. Registered
// suffixes may contain almost anything but whitespace, e.g. SICI-style
// "(SICI)1097-4636(199706)35:4<419::AID-JBM2>3.0.CO;2-K".
var doiSuffixPattern = regexp.MustCompile(`^10\.\d{4,9}(\.\d+)*/\S+$`)

// latexEscapes undoes the escaping BibTeX exporters apply to DOI fields.
var latexEscapes = strings.NewReplacer(`\_`, "_", `\&`, "&", `\%`, "%", `\#`, "#", `\$`, "$")

// resolverPrefixes are stripped (case-insensitively) before validating the suffix.
var resolverPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"dx.doi.org/",
	"doi:",
}

// DOI is a canonical https://doi.org/<suffix> identifier.
type DOI string

// ParseDOI validates raw and rewrites it into canonical form.
// A bare suffix ("10.1234/abc") and the common resolver prefixes are accepted.
func ParseDOI(raw string) (DOI, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidDOI)
	}

	lower := strings.ToLower(s)
	for _, p := range resolverPrefixes {
		if strings.HasPrefix(lower, p) {
			s = strings.TrimSpace(s[len(p):])
			break
		}
	}

	s = latexEscapes.Replace(s)
	if !doiSuffixPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDOI, raw)
	}
	return DOI(DOIPrefix + s), nil
}

// Suffix returns the DOI without the resolver prefix.
func (d DOI) Suffix() string {
	return strings.TrimPrefix(string(d), DOIPrefix)
}

func (d DOI) String() string {
	return string(d)
}
