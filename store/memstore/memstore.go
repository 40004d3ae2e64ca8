// Package memstore is an in-memory store.RawStore: a reference backend for
// tests, examples, and the flowtest harness. It is grounded on the
// mutex-guarded map plus optimistic-lock check found in the pack's
// InMemoryEventStore (ahmad-salah-nada's Event-Sourced_Financial_Ledger),
// generalized to also maintain the global operation log spec.md §4.5 asks
// projections to drive from, in the style of the teacher's
// internal/events/stream.go sequencing bookkeeping.
package memstore

import (
	"context"
	"sync"

	"flowsource/core/coreerr"
	"flowsource/core/ids"
	"flowsource/core/store"
)

type streamKey struct {
	tag ids.Tag
	id  ids.AggregateId
}

// Store is a process-local, mutex-guarded store.RawStore. The zero value is
// not usable; construct with New.
type Store struct {
	mu      sync.RWMutex
	streams map[streamKey][]string
	log     []store.OperationLogEntry
}

// New builds an empty Store.
func New() *Store {
	return &Store{streams: make(map[streamKey][]string)}
}

func (s *Store) ReadRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (store.ReadResponse[string], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamKey{tag: tag, id: id}]
	lastVersion := len(stream)
	if fromVersion >= lastVersion {
		return store.ReadResponse[string]{Version: lastVersion}, nil
	}
	// 1.- Versions are 1-based (version N is the Nth appended event), so the
	// event at version fromVersion+1 sits at slice index fromVersion.
	events := append([]string(nil), stream[fromVersion:]...)
	return store.ReadResponse[string]{Version: lastVersion, Events: events}, nil
}

func (s *Store) AppendRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []string) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := streamKey{tag: tag, id: id}
	stream := s.streams[key]
	currentVersion := len(stream)
	if currentVersion != expectedVersion {
		return coreerr.NewUnexpectedVersionError(string(id), expectedVersion, currentVersion)
	}

	s.streams[key] = append(stream, events...)
	for i, raw := range events {
		s.log = append(s.log, store.OperationLogEntry{
			OpNr:        int64(len(s.log) + 1),
			Tag:         tag,
			AggregateId: id,
			Version:     expectedVersion + i + 1,
			Raw:         raw,
		})
	}
	return nil
}

func (s *Store) ReadLog(_ context.Context, fromOpNr int64, limit int) ([]store.OperationLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []store.OperationLogEntry
	for _, entry := range s.log {
		if entry.OpNr < fromOpNr {
			continue
		}
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
