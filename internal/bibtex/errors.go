package bibtex

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrInputFormat     = errors.New("malformed bibtex input")
	ErrUnsupportedType = errors.New("unsupported entry type")
	ErrMissingField    = errors.New("missing required field")
	ErrFieldFormat     = errors.New("malformed field")
)

// InputFormatError reports blank or structurally broken input.
type InputFormatError struct {
	Line   int // 0 when the problem is not tied to a line
	Reason string
}

func (e *InputFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid bibtex input at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid bibtex input: %s", e.Reason)
}

func (e *InputFormatError) Is(target error) bool { return target == ErrInputFormat }

// UnsupportedTypeError reports an entry whose declared type is not supported.
type UnsupportedTypeError struct {
	Key  string
	Type string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("entry %q: unsupported type %q", e.Key, e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool { return target == ErrUnsupportedType }

// MissingFieldError reports a required field that is absent or blank.
type MissingFieldError struct {
	Key   string
	Field string // a single field name, or alternatives joined with " or "
	Blank bool   // present but blank after trimming
}

func (e *MissingFieldError) Error() string {
	if e.Blank {
		return fmt.Sprintf("entry %q: required field %q must not be blank", e.Key, e.Field)
	}
	return fmt.Sprintf("entry %q: missing required field %q", e.Key, e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }

// FieldFormatError reports a field whose value cannot be interpreted (year, DOI).
type FieldFormatError struct {
	Key    string
	Field  string
	Value  string
	Reason string
}

func (e *FieldFormatError) Error() string {
	return fmt.Sprintf("entry %q: field %q has invalid value %q: %s", e.Key, e.Field, e.Value, e.Reason)
}

func (e *FieldFormatError) Is(target error) bool { return target == ErrFieldFormat }
