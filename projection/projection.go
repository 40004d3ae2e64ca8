// Package projection drives a read model by folding the global operation
// log (spec.md §4.5): it reads the log from a resume cursor, dispatches
// each entry by tag, decodes its raw payload, and accumulates the result
// through a pure fold function. A decode failure halts only the
// projection that hit it; Advance logs it through whatever
// internal/logging.Logger is attached to ctx before returning it, and the
// caller can resume later from the same (unchanged) cursor.
package projection

import (
	"context"

	"flowsource/core/ids"
	"flowsource/core/internal/logging"
	"flowsource/core/store"
)

// Fold is what a registered tag contributes: decode the payload, then fold
// it into D. A Fold must be pure — deterministic in (data, aggregateId,
// event) alone — so replaying the log from scratch reproduces the same
// data every time (spec.md §8 property 6).
type Fold[D any] func(data D, aggregateId ids.AggregateId, event any) D

// Projection accumulates a value of type D by folding operation-log entries
// whose tag has a registered Fold. Cursor tracks the last OpNr processed so
// Advance can resume.
type Projection[D any] struct {
	Data   D
	Cursor int64

	decode func(tag ids.Tag, raw string) (any, error)
	folds  map[ids.Tag]Fold[D]
}

// New builds a Projection starting from initial data and cursor 0 (before
// the first log entry, which is OpNr 1).
func New[D any](initial D) *Projection[D] {
	return &Projection[D]{Data: initial, folds: make(map[ids.Tag]Fold[D])}
}

// Register binds a tag's decode+fold pair. decode turns a raw payload into
// the concrete event value (typically a codec.Codec[E].Decode call wrapped
// to return any); fold accumulates it into D. Advance skips log entries
// whose tag has no registered fold.
func Register[D, E any](p *Projection[D], tag ids.Tag, decode func(raw string) (E, error), fold func(data D, aggregateId ids.AggregateId, event E) D) {
	p.folds[tag] = func(data D, aggregateId ids.AggregateId, raw any) D {
		event, ok := raw.(E)
		if !ok {
			return data
		}
		return fold(data, aggregateId, event)
	}
	existingDecode := p.decode
	p.decode = func(t ids.Tag, raw string) (any, error) {
		if t == tag {
			return decode(raw)
		}
		if existingDecode != nil {
			return existingDecode(t, raw)
		}
		return nil, nil
	}
}

// DecodeFailure reports that one log entry's payload could not be decoded.
// Advance returns it wrapped with the offending entry so the caller can log
// it and decide whether to skip or stop; Projection.Cursor is left exactly
// at the last entry successfully applied, so a later Advance call will
// retry the same entry.
type DecodeFailure struct {
	Entry store.OperationLogEntry
	Err   error
}

func (f *DecodeFailure) Error() string { return f.Err.Error() }
func (f *DecodeFailure) Unwrap() error { return f.Err }

// Advance reads up to limit log entries after the projection's current
// cursor (OpNr > Cursor), folding each into Data in OpNr order. limit <= 0 reads
// every available entry. It stops (without advancing Cursor past the
// failing entry) on the first decode error, returning *DecodeFailure; any
// entries successfully folded before that remain applied.
func (p *Projection[D]) Advance(ctx context.Context, log RawLog, limit int) error {
	entries, err := log.ReadLog(ctx, p.Cursor+1, limit)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fold, known := p.folds[entry.Tag]
		if !known {
			p.Cursor = entry.OpNr
			continue
		}
		event, err := p.decode(entry.Tag, entry.Raw)
		if err != nil {
			logging.LoggerFromContext(ctx).Error("projection decode failure",
				logging.String("tag", entry.Tag.String()), logging.String("aggregate_id", entry.AggregateId.String()),
				logging.Int64("op_nr", entry.OpNr), logging.Int("version", entry.Version), logging.Error(err))
			return &DecodeFailure{Entry: entry, Err: err}
		}
		p.Data = fold(p.Data, entry.AggregateId, event)
		p.Cursor = entry.OpNr
	}
	return nil
}

// RawLog is the slice of store.RawStore that Advance needs; store.RawStore
// satisfies it directly.
type RawLog interface {
	ReadLog(ctx context.Context, fromOpNr int64, limit int) ([]store.OperationLogEntry, error)
}
