// Package storage persists systematic studies, study reviews, questions and
// protocols as JSONL files (the source of truth) and keeps a SQLite cache of
// the study reviews for listing and full-text search.
package storage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/matsen/slr/internal/protocol"
	"github.com/matsen/slr/internal/question"
	"github.com/matsen/slr/internal/review"
	"github.com/matsen/slr/internal/study"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
// This constant is shared across all JSONL file readers.
const MaxJSONLLineCapacity = 1024 * 1024

// readLines decodes every non-empty line of a JSONL file.
// A missing file reads as empty.
func readLines[T any](path, what string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening %s file: %w", what, err)
	}
	defer f.Close()

	var items []T
	scanner := bufio.NewScanner(f)
	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var item T
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("parsing %s line %d: %w", what, lineNum, err)
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s file: %w", what, err)
	}

	return items, nil
}

// writeLines replaces a JSONL file with items. The new content is written to
// a temporary file first and renamed into place, so readers never see a
// partially written file.
func writeLines[T any](path, what string, items []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s directory: %w", what, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating %s file: %w", what, err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("encoding %s %d: %w", what, i, err)
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s file: %w", what, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s file: %w", what, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s file: %w", what, err)
	}
	return nil
}

// appendLine adds one item to the end of a JSONL file.
func appendLine[T any](path, what string, item T) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening %s file for append: %w", what, err)
	}
	defer f.Close()

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", what, err)
	}
	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", what, err)
	}
	return nil
}

// ComputeJSONLHash computes a SHA256 hash of a JSONL file's contents.
// A missing file hashes like an empty one.
func ComputeJSONLHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ReadStudies reads every study document from a JSONL file.
func ReadStudies(path string) ([]study.Document, error) {
	return readLines[study.Document](path, "studies")
}

// WriteStudies replaces the study documents of a JSONL file.
func WriteStudies(path string, docs []study.Document) error {
	return writeLines(path, "studies", docs)
}

// ReadQuestions reads every question document from a JSONL file.
func ReadQuestions(path string) ([]question.Document, error) {
	return readLines[question.Document](path, "questions")
}

// WriteQuestions replaces the question documents of a JSONL file.
func WriteQuestions(path string, docs []question.Document) error {
	return writeLines(path, "questions", docs)
}

// ReadReviews reads every systematic study from a JSONL file.
func ReadReviews(path string) ([]review.SystematicStudy, error) {
	return readLines[review.SystematicStudy](path, "reviews")
}

// AppendReview adds a systematic study to a JSONL file.
func AppendReview(path string, s review.SystematicStudy) error {
	return appendLine(path, "reviews", s)
}

// WriteReviews replaces the systematic studies of a JSONL file.
func WriteReviews(path string, reviews []review.SystematicStudy) error {
	return writeLines(path, "reviews", reviews)
}

// ReadProtocols reads every protocol from a JSONL file.
func ReadProtocols(path string) ([]protocol.Protocol, error) {
	return readLines[protocol.Protocol](path, "protocols")
}

// WriteProtocols replaces the protocols of a JSONL file.
func WriteProtocols(path string, protocols []protocol.Protocol) error {
	return writeLines(path, "protocols", protocols)
}
