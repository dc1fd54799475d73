package question

import (
	"fmt"

	"github.com/google/uuid"
)

// Document is the persisted form of a question.
type Document struct {
	ID          uuid.UUID `json:"id"`
	ReviewID    uuid.UUID `json:"review_id"`
	Code        string    `json:"code"`
	Description string    `json:"description"`
	Context     Context   `json:"context"`
	Type        Kind      `json:"type"`
	Options     []string  `json:"options,omitempty"`
	Lower       *int      `json:"lower,omitempty"`
	Higher      *int      `json:"higher,omitempty"`
	Scales      []Label   `json:"scales,omitempty"`
}

// ToDocument converts a question into its persisted form.
func ToDocument(q Question) Document {
	doc := Document{
		ID:          q.ID(),
		ReviewID:    q.ReviewID(),
		Code:        q.Code(),
		Description: q.Description(),
		Context:     q.Context(),
		Type:        q.Kind(),
	}

	switch q := q.(type) {
	case *Textual:
	case *PickList:
		doc.Options = q.Options()
	case *NumberScale:
		lower, higher := q.Bounds()
		doc.Lower, doc.Higher = &lower, &higher
	case *LabeledScale:
		doc.Scales = q.Scales()
	}
	return doc
}

// FromDocument rebuilds a question, re-checking its construction rules.
func FromDocument(doc Document) (Question, error) {
	kind, err := ParseKind(string(doc.Type))
	if err != nil {
		return nil, err
	}
	h := Header{
		ID:          doc.ID,
		ReviewID:    doc.ReviewID,
		Code:        doc.Code,
		Description: doc.Description,
		Context:     doc.Context,
	}

	switch kind {
	case KindTextual:
		return NewTextual(h)
	case KindPickList:
		return NewPickList(h, doc.Options)
	case KindNumberScale:
		if doc.Lower == nil || doc.Higher == nil {
			return nil, fmt.Errorf("%w: number scale %s needs lower and higher bounds", ErrInvalidQuestion, doc.Code)
		}
		return NewNumberScale(h, *doc.Lower, *doc.Higher)
	case KindLabeledScale:
		return NewLabeledScale(h, doc.Scales)
	}
	return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, doc.Type)
}
