// Package codec defines the bidirectional text-encoding contract event types
// must satisfy (spec.md §6). Concrete codec instances for specific user event
// types are deliberately out of core scope (spec.md §1); this package only
// fixes the contract plus a single JSON reference implementation used by
// tests, examples, and the reference store backends.
package codec

import "flowsource/core/coreerr"

// Codec encodes and decodes one event type to and from its text wire form.
// Implementations must be a total round trip on valid inputs:
// Decode(Encode(e)) == (e, nil).
type Codec[E any] interface {
	// Encode renders an event as its text wire form.
	Encode(event E) (string, error)
	// Decode parses a text wire form back into an event, or returns a
	// coreerr.DecodingFailure-wrapped error when the payload is corrupt or
	// mismatched.
	Decode(raw string) (E, error)
}

// DecodeFailure builds the standard decode-failure error for a Codec
// implementation to return from Decode.
func DecodeFailure(raw string, err error) error {
	return coreerr.NewDecodingFailure(raw, err)
}
