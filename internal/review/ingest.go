package review

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/matsen/slr/internal/importer"
	"github.com/matsen/slr/internal/study"
)

// Format is the encoding of an import file.
type Format string

const (
	FormatBibTeX    Format = "bibtex"
	FormatPaperpile Format = "paperpile"
)

// ParseFormat converts a case-insensitive name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatBibTeX, FormatPaperpile:
		return f, nil
	case "bib":
		return FormatBibTeX, nil
	}
	return "", fmt.Errorf("unknown import format %q (want bibtex or paperpile)", s)
}

// Import converts every entry of data into a new study review found through
// source and saves them in one write. The first invalid entry aborts the
// import: nothing is saved and no study ids are used up.
func (s *Service) Import(reviewID uuid.UUID, format Format, data []byte, source string) ([]*study.Review, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	ids, err := s.allocator(reviewID)
	if err != nil {
		return nil, err
	}
	last := ids.Last()

	var reviews []*study.Review
	switch format {
	case FormatBibTeX:
		reviews, err = importer.ConvertMany(string(data), source, ids)
	case FormatPaperpile:
		reviews, err = importer.ConvertPaperpile(data, source, ids)
	default:
		return nil, fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		ids.Reset(last)
		return nil, err
	}

	if err := s.repo.SaveStudies(reviews...); err != nil {
		ids.Reset(last)
		return nil, fmt.Errorf("saving %d imported studies: %w", len(reviews), err)
	}
	return reviews, nil
}

// PreviewImport reports what Import would do, listing every invalid entry.
func (s *Service) PreviewImport(format Format, data []byte) (importer.PreviewResult, error) {
	switch format {
	case FormatBibTeX:
		return importer.Preview(string(data))
	case FormatPaperpile:
		return importer.PreviewPaperpile(data)
	}
	return importer.PreviewResult{}, fmt.Errorf("unknown import format %q", format)
}

// AddStudy creates a study review from a manually entered record.
func (s *Service) AddStudy(reviewID uuid.UUID, rec study.Record, sources ...string) (*study.Review, error) {
	if err := s.requireReview(reviewID); err != nil {
		return nil, err
	}
	if rec.DOI != "" {
		doi, err := study.ParseDOI(string(rec.DOI))
		if err != nil {
			return nil, err
		}
		rec.DOI = doi
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}

	ids, err := s.allocator(reviewID)
	if err != nil {
		return nil, err
	}
	last := ids.Last()
	r, err := study.NewReview(reviewID, ids.Next(), rec, sources...)
	if err != nil {
		ids.Reset(last)
		return nil, err
	}
	if err := s.repo.SaveStudies(r); err != nil {
		ids.Reset(last)
		return nil, fmt.Errorf("saving study: %w", err)
	}
	return r, nil
}
