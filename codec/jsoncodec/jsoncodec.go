// Package jsoncodec provides a reference codec.Codec implementation backed
// by encoding/json, grounded on the teacher's own JSON marshal/unmarshal
// round trip in internal/replay/header.go (WriteHeader/ReadHeader).
package jsoncodec

import (
	"encoding/json"

	"flowsource/core/codec"
)

// Codec marshals events as single-line JSON text.
type Codec[E any] struct{}

// New constructs a JSON codec for event type E.
func New[E any]() Codec[E] { return Codec[E]{} }

// Encode marshals the event to its JSON text form.
func (Codec[E]) Encode(event E) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses JSON text back into an event of type E.
func (Codec[E]) Decode(raw string) (E, error) {
	var event E
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, codec.DecodeFailure(raw, err)
	}
	return event, nil
}
