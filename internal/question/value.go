package question

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Value is the payload of an answer. The set of implementations is closed:
// Text, Choice, Number and Label.
type Value interface {
	Kind() Kind
	value()
}

// Text answers a Textual question.
type Text string

// Choice answers a PickList question.
type Choice string

// Number answers a NumberScale question.
type Number int

// Label answers a LabeledScale question and also defines one entry of its scale.
type Label struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func (Text) Kind() Kind   { return KindTextual }
func (Choice) Kind() Kind { return KindPickList }
func (Number) Kind() Kind { return KindNumberScale }
func (Label) Kind() Kind  { return KindLabeledScale }

func (Text) value()   {}
func (Choice) value() {}
func (Number) value() {}
func (Label) value()  {}

// Answer is a validated value bound to the question it answers.
type Answer struct {
	QuestionID uuid.UUID
	Value      Value
}

type answerJSON struct {
	QuestionID uuid.UUID       `json:"question_id"`
	Type       Kind            `json:"type"`
	Value      json.RawMessage `json:"value"`
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Value == nil {
		return nil, fmt.Errorf("answer for question %s has no value", a.QuestionID)
	}
	raw, err := json.Marshal(a.Value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerJSON{QuestionID: a.QuestionID, Type: a.Value.Kind(), Value: raw})
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var aj answerJSON
	if err := json.Unmarshal(data, &aj); err != nil {
		return err
	}
	v, err := DecodeValue(aj.Type, aj.Value)
	if err != nil {
		return fmt.Errorf("decoding answer for question %s: %w", aj.QuestionID, err)
	}
	a.QuestionID = aj.QuestionID
	a.Value = v
	return nil
}

// DecodeValue interprets a raw JSON payload as a value of the given kind.
// A payload of the wrong JSON shape is a type mismatch; a payload of the
// right shape that cannot hold a legal value (a fractional number, a label
// without name or value) is an invalid value.
func DecodeValue(kind Kind, raw json.RawMessage) (Value, error) {
	shape := jsonShape(raw)

	switch kind {
	case KindTextual, KindPickList:
		if shape != "string" {
			return nil, &AnswerTypeMismatchError{Expected: kind, Got: shape}
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &AnswerTypeMismatchError{Expected: kind, Got: shape}
		}
		if kind == KindTextual {
			return Text(s), nil
		}
		return Choice(s), nil

	case KindNumberScale:
		if shape != "number" {
			return nil, &AnswerTypeMismatchError{Expected: kind, Got: shape}
		}
		n, err := decodeInt(raw)
		if err != nil {
			return nil, &AnswerValueError{Kind: kind, Reason: err.Error()}
		}
		return Number(n), nil

	case KindLabeledScale:
		if shape != "object" {
			return nil, &AnswerTypeMismatchError{Expected: kind, Got: shape}
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, &AnswerTypeMismatchError{Expected: kind, Got: shape}
		}
		nameRaw, hasName := fields["name"]
		valueRaw, hasValue := fields["value"]
		if !hasName || !hasValue {
			return nil, &AnswerValueError{Kind: kind, Reason: "missing 'name' or 'value'"}
		}
		var name string
		if err := json.Unmarshal(nameRaw, &name); err != nil {
			return nil, &AnswerValueError{Kind: kind, Reason: "'name' must be a string"}
		}
		if jsonShape(valueRaw) != "number" {
			return nil, &AnswerValueError{Kind: kind, Reason: "'value' must be an integer"}
		}
		n, err := decodeInt(valueRaw)
		if err != nil {
			return nil, &AnswerValueError{Kind: kind, Reason: "'value' " + err.Error()}
		}
		return Label{Name: name, Value: n}, nil
	}

	return nil, fmt.Errorf("%w: unknown question type %q", ErrTypeMismatch, kind)
}

func decodeInt(raw json.RawMessage) (int, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return 0, fmt.Errorf("is not a number")
	}
	i, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("must be an integer, got %s", n.String())
	}
	return int(i), nil
}

// jsonShape names the JSON type of raw for error messages.
func jsonShape(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "nothing"
	}
	switch trimmed[0] {
	case '"':
		return "string"
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	default:
		return "number"
	}
}
