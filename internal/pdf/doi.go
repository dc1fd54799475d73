package pdf

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/matsen/slr/internal/study"
)

// doiPattern matches a bare DOI: 10.<registrant>/<suffix>.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiPages is how many leading pages are searched; the DOI is almost always on the first.
const doiPages = 3

// ExtractDOI returns the first DOI printed on the leading pages of a PDF,
// in canonical https://doi.org/ form. It returns "" when none is found.
func ExtractDOI(filePath string) (study.DOI, error) {
	text, err := ExtractText(filePath, doiPages)
	if err != nil {
		return "", err
	}
	return FindDOI(text), nil
}

// ExtractText extracts the text of the first maxPages pages of a PDF.
// maxPages <= 0 means every page. Pages whose text cannot be read are skipped.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// FindDOI returns the first DOI in text that canonicalises, or "".
func FindDOI(text string) study.DOI {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if doi, err := study.ParseDOI(match); err == nil {
			return doi
		}
	}
	return ""
}
