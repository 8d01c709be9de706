package inheritance

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

var jsonNull = json.RawMessage("null")

// Value is a single field value of a response payload kept in its JSON encoding.
// A present JSON null is a valid Value; absence is expressed by Payload.Lookup.
type Value struct {
	raw json.RawMessage
}

// NewValue encodes v as a payload value.
func NewValue(v any) (Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Value{}, fmt.Errorf("failed to encode value: %w", err)
	}
	return Value{raw: raw}, nil
}

// Raw returns the JSON encoding of the value.
func (v Value) Raw() json.RawMessage {
	if len(v.raw) == 0 {
		return jsonNull
	}
	return v.raw
}

// IsNull reports whether the value is a present JSON null.
func (v Value) IsNull() bool {
	return len(v.raw) == 0 || bytes.Equal(bytes.TrimSpace(v.raw), jsonNull)
}

// String returns the value as a string when it is a JSON string.
func (v Value) String() (string, bool) {
	var s string
	if err := json.Unmarshal(v.raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Payload is a response payload with explicit presence: a field is either
// absent, present with null, or present with a value.
type Payload struct {
	fields map[string]Value
}

// NewPayload returns an empty payload.
func NewPayload() Payload {
	return Payload{fields: map[string]Value{}}
}

// ParsePayload parses a JSON object. Empty input and a JSON null yield an empty payload.
func ParsePayload(data []byte) (Payload, error) {
	p := NewPayload()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, jsonNull) {
		return p, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return NewPayload(), fmt.Errorf("payload must be a JSON object: %w", err)
	}
	for k, raw := range fields {
		p.fields[k] = Value{raw: raw}
	}
	return p, nil
}

// PayloadFromMap builds a payload from decoded JSON data.
func PayloadFromMap(m map[string]any) (Payload, error) {
	p := NewPayload()
	for k, v := range m {
		value, err := NewValue(v)
		if err != nil {
			return NewPayload(), fmt.Errorf("field %q: %w", k, err)
		}
		p.fields[k] = value
	}
	return p, nil
}

// Lookup returns the value of field and whether it is present.
func (p Payload) Lookup(field string) (Value, bool) {
	v, ok := p.fields[field]
	return v, ok
}

// Set stores v under field.
func (p *Payload) Set(field string, v Value) {
	if p.fields == nil {
		p.fields = map[string]Value{}
	}
	p.fields[field] = v
}

func (p Payload) Len() int {
	return len(p.fields)
}

// Keys returns the present field names in sorted order.
func (p Payload) Keys() []string {
	keys := make([]string, 0, len(p.fields))
	for k := range p.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON encodes the payload as a JSON object.
func (p Payload) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.fields))
	for k, v := range p.fields {
		out[k] = v.Raw()
	}
	return json.Marshal(out)
}
