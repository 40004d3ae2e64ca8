// Package flowtest is a small Given/When/Then harness for exercising an
// aggregate.Runtime against an in-memory store.RawStore, in the style of
// the teacher's table-driven tests (no third-party assertion library; call
// t.Fatalf yourself on the returned error).
package flowtest

import (
	"context"

	"flowsource/core/aggregate"
	"flowsource/core/codec"
	"flowsource/core/ids"
	"flowsource/core/store"
	"flowsource/core/store/memstore"
)

// Harness wires a fresh memstore.Store to one aggregate.Definition.
type Harness[C, E any] struct {
	raw     *memstore.Store
	runtime *aggregate.Runtime[C, E]
}

// New builds a Harness around def, encoding and decoding events with c.
func New[C, E any](def aggregate.Definition[C, E], c codec.Codec[E]) *Harness[C, E] {
	raw := memstore.New()
	backend := store.New[E](raw, c)
	return &Harness[C, E]{raw: raw, runtime: aggregate.NewRuntime(def, backend)}
}

// Given replays priorCommands against a fresh aggregate, discarding their
// results, to put the aggregate's stream into a starting state before the
// scenario under test. It stops at the first error.
func (h *Harness[C, E]) Given(ctx context.Context, id ids.AggregateId, priorCommands ...C) error {
	for _, cmd := range priorCommands {
		if _, err := h.runtime.HandleCommand(ctx, id, cmd); err != nil {
			return err
		}
	}
	return nil
}

// When runs cmd and returns the events it produced, or the error it failed
// with.
func (h *Harness[C, E]) When(ctx context.Context, id ids.AggregateId, cmd C) ([]E, error) {
	return h.runtime.HandleCommand(ctx, id, cmd)
}

// RawStore exposes the underlying memstore.Store, e.g. for a projection
// test that needs to Advance over the same operation log the scenario
// wrote to.
func (h *Harness[C, E]) RawStore() *memstore.Store {
	return h.raw
}
