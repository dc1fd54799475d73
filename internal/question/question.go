// Package question defines extraction and quality-assessment questions and
// the rules for answering them.
//
// Question and Value are closed sets: every implementation lives in this
// package, and type switches over them are expected to be exhaustive.
package question

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the answer shape a question accepts.
type Kind string

const (
	KindTextual      Kind = "TEXTUAL"
	KindPickList     Kind = "PICK_LIST"
	KindNumberScale  Kind = "NUMBERED_SCALE"
	KindLabeledScale Kind = "LABELED_SCALE"
)

// ParseKind converts a case-insensitive name into a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindTextual, KindPickList, KindNumberScale, KindLabeledScale:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, s)
}

// Context says which form a question belongs to.
type Context string

const (
	// ContextForm marks data extraction form questions.
	ContextForm Context = "FORM"
	// ContextRoB marks risk-of-bias (quality assessment) questions.
	ContextRoB Context = "ROB"
)

// ParseContext converts a case-insensitive name into a Context.
func ParseContext(s string) (Context, error) {
	switch c := Context(strings.ToUpper(strings.TrimSpace(s))); c {
	case ContextForm, ContextRoB:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown question context %q", ErrInvalidQuestion, s)
}

// Question is implemented by Textual, PickList, NumberScale and LabeledScale.
type Question interface {
	ID() uuid.UUID
	ReviewID() uuid.UUID
	Code() string
	Description() string
	Context() Context
	Kind() Kind

	// Answer validates v against the question and binds it to the question's id.
	// A kind mismatch is reported before any kind-specific check.
	Answer(v Value) (Answer, error)

	sealed()
}

// Header holds the attributes shared by every question kind.
type Header struct {
	ID          uuid.UUID
	ReviewID    uuid.UUID
	Code        string
	Description string
	Context     Context
}

type header struct {
	id          uuid.UUID
	reviewID    uuid.UUID
	code        string
	description string
	context     Context
}

func newHeader(h Header) (header, error) {
	if h.ID == uuid.Nil {
		return header{}, fmt.Errorf("%w: id must be set", ErrInvalidQuestion)
	}
	if h.ReviewID == uuid.Nil {
		return header{}, fmt.Errorf("%w: review id must be set", ErrInvalidQuestion)
	}
	if strings.TrimSpace(h.Code) == "" {
		return header{}, fmt.Errorf("%w: code must not be blank", ErrInvalidQuestion)
	}
	if strings.TrimSpace(h.Description) == "" {
		return header{}, fmt.Errorf("%w: description must not be blank", ErrInvalidQuestion)
	}
	ctx, err := ParseContext(string(h.Context))
	if err != nil {
		return header{}, err
	}
	return header{
		id:          h.ID,
		reviewID:    h.ReviewID,
		code:        strings.TrimSpace(h.Code),
		description: strings.TrimSpace(h.Description),
		context:     ctx,
	}, nil
}

func (h header) ID() uuid.UUID       { return h.id }
func (h header) ReviewID() uuid.UUID { return h.reviewID }
func (h header) Code() string        { return h.code }
func (h header) Description() string { return h.description }
func (h header) Context() Context    { return h.context }
func (h header) sealed()             {}

// Textual accepts any string.
type Textual struct {
	header
}

// NewTextual creates a free-text question.
func NewTextual(h Header) (*Textual, error) {
	hd, err := newHeader(h)
	if err != nil {
		return nil, err
	}
	return &Textual{header: hd}, nil
}

func (q *Textual) Kind() Kind { return KindTextual }

func (q *Textual) Answer(v Value) (Answer, error) {
	t, ok := v.(Text)
	if !ok {
		return Answer{}, mismatch(q, v)
	}
	return Answer{QuestionID: q.id, Value: t}, nil
}

// PickList accepts one of a fixed set of options.
type PickList struct {
	header
	options []string
}

// NewPickList creates a single-choice question. Options must be non-blank and unique.
func NewPickList(h Header, options []string) (*PickList, error) {
	hd, err := newHeader(h)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: pick list must have at least one option", ErrInvalidQuestion)
	}
	seen := make(map[string]bool, len(options))
	opts := make([]string, 0, len(options))
	for _, o := range options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, fmt.Errorf("%w: pick list options must not be blank", ErrInvalidQuestion)
		}
		if seen[o] {
			return nil, fmt.Errorf("%w: duplicate pick list option %q", ErrInvalidQuestion, o)
		}
		seen[o] = true
		opts = append(opts, o)
	}
	return &PickList{header: hd, options: opts}, nil
}

func (q *PickList) Kind() Kind { return KindPickList }

// Options returns a copy of the allowed options.
func (q *PickList) Options() []string {
	out := make([]string, len(q.options))
	copy(out, q.options)
	return out
}

func (q *PickList) Answer(v Value) (Answer, error) {
	c, ok := v.(Choice)
	if !ok {
		return Answer{}, mismatch(q, v)
	}
	for _, o := range q.options {
		if string(c) == o {
			return Answer{QuestionID: q.id, Value: c}, nil
		}
	}
	return Answer{}, invalid(q, "%q is not one of %v", string(c), q.options)
}

// NumberScale accepts an integer within inclusive bounds.
type NumberScale struct {
	header
	lower  int
	higher int
}

// NewNumberScale creates an integer-scale question with inclusive bounds.
func NewNumberScale(h Header, lower, higher int) (*NumberScale, error) {
	hd, err := newHeader(h)
	if err != nil {
		return nil, err
	}
	if lower > higher {
		return nil, fmt.Errorf("%w: lower bound %d is greater than higher bound %d", ErrInvalidQuestion, lower, higher)
	}
	return &NumberScale{header: hd, lower: lower, higher: higher}, nil
}

func (q *NumberScale) Kind() Kind { return KindNumberScale }

// Bounds returns the inclusive lower and higher bounds.
func (q *NumberScale) Bounds() (int, int) { return q.lower, q.higher }

func (q *NumberScale) Answer(v Value) (Answer, error) {
	n, ok := v.(Number)
	if !ok {
		return Answer{}, mismatch(q, v)
	}
	if int(n) < q.lower || int(n) > q.higher {
		return Answer{}, invalid(q, "%d is outside [%d, %d]", int(n), q.lower, q.higher)
	}
	return Answer{QuestionID: q.id, Value: n}, nil
}

// LabeledScale accepts one of a fixed table of name/value labels.
type LabeledScale struct {
	header
	scales []Label
}

// NewLabeledScale creates a labeled-scale question. Label names must be non-blank and unique.
func NewLabeledScale(h Header, scales []Label) (*LabeledScale, error) {
	hd, err := newHeader(h)
	if err != nil {
		return nil, err
	}
	if len(scales) == 0 {
		return nil, fmt.Errorf("%w: labeled scale must have at least one label", ErrInvalidQuestion)
	}
	seen := make(map[string]bool, len(scales))
	labels := make([]Label, 0, len(scales))
	for _, l := range scales {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: label names must not be blank", ErrInvalidQuestion)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidQuestion, name)
		}
		seen[name] = true
		labels = append(labels, Label{Name: name, Value: l.Value})
	}
	return &LabeledScale{header: hd, scales: labels}, nil
}

func (q *LabeledScale) Kind() Kind { return KindLabeledScale }

// Scales returns a copy of the label table.
func (q *LabeledScale) Scales() []Label {
	out := make([]Label, len(q.scales))
	copy(out, q.scales)
	return out
}

func (q *LabeledScale) Answer(v Value) (Answer, error) {
	l, ok := v.(Label)
	if !ok {
		return Answer{}, mismatch(q, v)
	}
	for _, s := range q.scales {
		if s.Name != l.Name {
			continue
		}
		if s.Value != l.Value {
			return Answer{}, invalid(q, "label %q has value %d, not %d", l.Name, s.Value, l.Value)
		}
		return Answer{QuestionID: q.id, Value: l}, nil
	}
	return Answer{}, invalid(q, "label %q is not registered", l.Name)
}
