// Package coreerr defines the error taxonomy shared by the flow core, per
// spec.md §7. All errors are returned, never panicked; the one exception is
// NewCommandFailure, which panics when called with no messages.
package coreerr

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCannotFindHandler is returned when no clause in the currently installed
// command handler matches the command.
var ErrCannotFindHandler = errors.New("no handler matches this command")

// ErrUnexpectedVersion is returned by an event store when appendEvents is
// called with an expectedVersion that no longer matches the stream's last
// version. It is retryable: the caller should reload and retry from the top
// of aggregate.Runtime.HandleCommand.
var ErrUnexpectedVersion = errors.New("unexpected stream version")

// ErrDbFailure wraps a backend I/O error. It is not retryable by the core.
var ErrDbFailure = errors.New("event store backend failure")

// ErrDoesNotExist is optional per spec.md §7; backends that distinguish
// "aggregate never created" from "aggregate with an empty stream" may return
// it from an existence check. readEvents itself never returns it (spec.md's
// fixed Open Question answer: missing aggregate reads as version 0, no
// events).
var ErrDoesNotExist = errors.New("aggregate does not exist")

// CommandFailure is the non-empty list of guard failure messages produced
// when a command handler rejects a command. It satisfies the error
// interface so it can be returned alongside ErrCannotFindHandler-style
// sentinels, but callers that need the full list should type-assert to
// *CommandFailure rather than string-matching Error().
type CommandFailure struct {
	Messages []string
}

// NewCommandFailure builds a CommandFailure from one or more guard messages.
// It panics if called with zero messages: a command failure always carries
// at least one reason (spec.md §7, §8 property 4).
func NewCommandFailure(messages ...string) *CommandFailure {
	if len(messages) == 0 {
		panic("coreerr: NewCommandFailure requires at least one message")
	}
	return &CommandFailure{Messages: append([]string(nil), messages...)}
}

// Error renders every guard message, semicolon-joined.
func (c *CommandFailure) Error() string {
	if c == nil || len(c.Messages) == 0 {
		return "command rejected"
	}
	return strings.Join(c.Messages, "; ")
}

// UnexpectedVersionError carries the aggregate identifier and the
// expected/actual versions seen at append time, matching spec.md §7 and the
// concurrency-conflict scenario in §8.
type UnexpectedVersionError struct {
	AggregateId string
	Expected    int
	Actual      int
}

func (e *UnexpectedVersionError) Error() string {
	return fmt.Sprintf("unexpected version for %q: expected %d, actual %d", e.AggregateId, e.Expected, e.Actual)
}

func (e *UnexpectedVersionError) Unwrap() error { return ErrUnexpectedVersion }

// NewUnexpectedVersionError builds the wrapped concurrency-conflict error.
func NewUnexpectedVersionError(aggregateId string, expected, actual int) error {
	return &UnexpectedVersionError{AggregateId: aggregateId, Expected: expected, Actual: actual}
}

// DecodingFailure reports that a raw event payload could not be decoded,
// per spec.md §7. It halts the projection that encountered it; other
// projections are unaffected.
type DecodingFailure struct {
	Raw string
	Err error
}

func (f *DecodingFailure) Error() string {
	return fmt.Sprintf("decode failure: %v (raw=%q)", f.Err, f.Raw)
}

func (f *DecodingFailure) Unwrap() error { return f.Err }

// NewDecodingFailure wraps the underlying decode error with the raw payload
// that produced it.
func NewDecodingFailure(raw string, err error) error {
	return &DecodingFailure{Raw: raw, Err: err}
}
