// Package store defines the event-store contract (spec.md §4.4): reading
// and appending an aggregate's own stream under optimistic concurrency, and
// reading the global, strictly increasing operation log that drives
// projections.
//
// The contract is split in two layers. RawStore is what a concrete backend
// (store/memstore, store/filestore) implements: it moves already-encoded
// text payloads, so one backend instance can hold every aggregate kind
// without knowing their Go types. EventStore[E] is the typed facade an
// aggregate.Runtime actually calls; New wraps a RawStore with a
// codec.Codec[E] to encode and decode at the boundary. This mirrors the
// teacher's own split between internal/replay's byte-oriented frame writer
// and the typed event values its callers work with.
package store

import (
	"context"

	"flowsource/core/codec"
	"flowsource/core/ids"
)

// ReadResponse is the result of reading an aggregate's stream from some
// version onward.
type ReadResponse[E any] struct {
	// Version is the stream's last version — 0 for an aggregate that has
	// never been appended to (spec.md's fixed Open Question answer: a
	// missing aggregate reads as version 0 with no events, never an error).
	Version int
	// Events holds the stream's events after the requested version
	// (version > fromVersion), in append order.
	Events []E
}

// VersionedEvents is a batch of events together with its version. Version
// is the version of the first event in the batch (spec.md's fixed Open
// Question answer), so Version-1 is the stream's last version before the
// batch and Version+len(Events)-1 is the version of the last event.
type VersionedEvents[E any] struct {
	Version int
	Events  []E
}

// EventStore is the typed contract an aggregate.Runtime drives.
type EventStore[E any] interface {
	// ReadEvents returns every event in the (tag, id) stream after
	// fromVersion (version > fromVersion), plus the stream's current last
	// version. A stream that
	// has never been written to returns ReadResponse{Version: 0} with no
	// error.
	ReadEvents(ctx context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (ReadResponse[E], error)

	// AppendEvents appends events to the (tag, id) stream, succeeding only
	// if the stream's current last version equals expectedVersion. On a
	// mismatch it returns a *coreerr.UnexpectedVersionError wrapping
	// coreerr.ErrUnexpectedVersion; the caller should reload and retry.
	AppendEvents(ctx context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []E) error
}

// OperationLogEntry is one record of the global, strictly increasing
// operation log that projections fold over (spec.md §4.5). Raw holds the
// event's encoded text form; a projection decodes it with its own
// codec.Codec once it has dispatched on Tag.
type OperationLogEntry struct {
	OpNr        int64
	Tag         ids.Tag
	AggregateId ids.AggregateId
	Version     int
	Raw         string
}

// RawStore is the backend-facing contract: text payloads in, text payloads
// out, plus the shared operation log. Concrete backends implement this;
// application code almost never calls it directly.
type RawStore interface {
	ReadRaw(ctx context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (ReadResponse[string], error)
	AppendRaw(ctx context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []string) error
	// ReadLog returns up to limit operation-log entries with OpNr >=
	// fromOpNr, in OpNr order. limit <= 0 means no limit.
	ReadLog(ctx context.Context, fromOpNr int64, limit int) ([]OperationLogEntry, error)
}

type typedStore[E any] struct {
	raw   RawStore
	codec codec.Codec[E]
}

// New builds the typed EventStore[E] facade for one aggregate kind over a
// shared RawStore, using c to encode and decode that kind's events.
func New[E any](raw RawStore, c codec.Codec[E]) EventStore[E] {
	return &typedStore[E]{raw: raw, codec: c}
}

func (s *typedStore[E]) ReadEvents(ctx context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (ReadResponse[E], error) {
	rawResp, err := s.raw.ReadRaw(ctx, tag, id, fromVersion)
	if err != nil {
		return ReadResponse[E]{}, err
	}
	events := make([]E, 0, len(rawResp.Events))
	for _, raw := range rawResp.Events {
		event, err := s.codec.Decode(raw)
		if err != nil {
			return ReadResponse[E]{}, err
		}
		events = append(events, event)
	}
	return ReadResponse[E]{Version: rawResp.Version, Events: events}, nil
}

func (s *typedStore[E]) AppendEvents(ctx context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []E) error {
	if len(events) == 0 {
		return nil
	}
	raw := make([]string, 0, len(events))
	for _, event := range events {
		encoded, err := s.codec.Encode(event)
		if err != nil {
			return err
		}
		raw = append(raw, encoded)
	}
	return s.raw.AppendRaw(ctx, tag, id, expectedVersion, raw)
}
