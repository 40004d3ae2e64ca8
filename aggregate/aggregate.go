// Package aggregate wires the flow core to a concrete event store: given a
// Definition (tag, flow program, initial handler) it loads an aggregate's
// event stream, folds it through the compiled StreamConsumer, runs the
// command handler currently in force, and appends the resulting events
// under optimistic concurrency (spec.md §4.3). HandleCommand logs
// cannot-find-handler outcomes and optimistic-concurrency conflicts through
// whatever internal/logging.Logger is attached to ctx, falling back to
// internal/logging's global logger (a no-op until logging.New installs one)
// when none is.
package aggregate

import (
	"context"
	"errors"
	"fmt"

	"flowsource/core/coreerr"
	"flowsource/core/flow"
	"flowsource/core/ids"
	"flowsource/core/internal/logging"
	"flowsource/core/store"
)

// Definition is everything needed to run one aggregate kind: its tag, the
// flow program describing its lifecycle, and the command handler in force
// before any event has been observed.
type Definition[C, E any] struct {
	Tag            ids.Tag
	InitialHandler flow.CmdFn[C, E]
	Program        flow.Node[C, E]
}

// NewDefinition builds a Definition. program is typically the result of
// dsl.Handler(...); initialHandler is the handler in force before the first
// InstallHandler in program runs (often one built the same way, or a
// handler that only recognizes a single "create" command).
func NewDefinition[C, E any](tag ids.Tag, initialHandler flow.CmdFn[C, E], program flow.Node[C, E]) Definition[C, E] {
	return Definition[C, E]{Tag: tag, InitialHandler: initialHandler, Program: program}
}

// Runtime drives a Definition against a concrete store.EventStore: it is the
// thing application code calls to handle a command end to end (spec.md
// §4.3 steps 1-5).
type Runtime[C, E any] struct {
	def   Definition[C, E]
	store store.EventStore[E]
}

// NewRuntime builds a Runtime for def against backend.
func NewRuntime[C, E any](def Definition[C, E], backend store.EventStore[E]) *Runtime[C, E] {
	return &Runtime[C, E]{def: def, store: backend}
}

// replay folds every event in events through the compiled program, starting
// from the definition's initial handler, and returns the StreamConsumer
// representing "currently in force" after the last event (spec.md §4.3
// step 2: "fold the events read so far through the compiled consumer").
func (r *Runtime[C, E]) replay(events []E) *flow.StreamConsumer[C, E] {
	consumer := flow.Compile(r.def.InitialHandler, r.def.Program)
	for _, event := range events {
		if consumer == nil {
			// The flow reached Done; no further handler is in force. Stop
			// folding — remaining events (there should be none under a
			// well-formed program) cannot change that.
			break
		}
		next, ok := consumer.StepOnEvent(event)
		if !ok {
			break
		}
		consumer = next
	}
	return consumer
}

// HandleCommand loads the aggregate identified by id, folds its event
// stream to find the command handler currently in force, runs cmd through
// it, and — on acceptance — appends the resulting events under optimistic
// concurrency keyed on the version read (spec.md §4.3, §8 properties
// 1 and 5).
//
// Errors returned: coreerr.ErrCannotFindHandler when no clause recognizes
// cmd, *coreerr.CommandFailure when a clause rejects it, or an error from
// the backend (including a retryable *coreerr.UnexpectedVersionError if
// another writer appended first).
func (r *Runtime[C, E]) HandleCommand(ctx context.Context, id ids.AggregateId, cmd C) ([]E, error) {
	read, err := r.store.ReadEvents(ctx, r.def.Tag, id, 0)
	if err != nil {
		return nil, fmt.Errorf("aggregate: read stream %s/%s: %w", r.def.Tag, id, err)
	}

	consumer := r.replay(read.Events)
	var handler flow.CmdFn[C, E]
	if consumer != nil {
		handler = consumer.Handler
	}
	if handler == nil {
		logging.LoggerFromContext(ctx).Warn("flow has no handler in force",
			logging.String("tag", r.def.Tag.String()), logging.String("aggregate_id", id.String()))
		return nil, coreerr.ErrCannotFindHandler
	}

	result, ok := handler(cmd)
	if !ok {
		logging.LoggerFromContext(ctx).Warn("no clause matched the command",
			logging.String("tag", r.def.Tag.String()), logging.String("aggregate_id", id.String()))
		return nil, coreerr.ErrCannotFindHandler
	}
	if result.Err != nil {
		return nil, result.Err
	}
	if len(result.Events) == 0 {
		return nil, nil
	}

	if err := r.store.AppendEvents(ctx, r.def.Tag, id, read.Version, result.Events); err != nil {
		if errors.Is(err, coreerr.ErrUnexpectedVersion) {
			logging.LoggerFromContext(ctx).Warn("optimistic concurrency conflict appending events",
				logging.String("tag", r.def.Tag.String()), logging.String("aggregate_id", id.String()),
				logging.Int("expected_version", read.Version), logging.Error(err))
		}
		return nil, fmt.Errorf("aggregate: append to stream %s/%s: %w", r.def.Tag, id, err)
	}
	return result.Events, nil
}

// Registry records the set of known aggregate tags, letting callers that
// don't know the concrete C/E at compile time (e.g. a generic CLI) at least
// enumerate what is registered. It stores tags only: it holds no Definition
// or Runtime and cannot look one up by tag. Application code that knows C/E
// should use a typed Runtime directly.
type Registry struct {
	tags []ids.Tag
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// Register records tag as a known aggregate kind. It is a no-op bookkeeping
// helper; callers still hold their own typed Runtime per tag.
func (r *Registry) Register(tag ids.Tag) {
	for _, existing := range r.tags {
		if existing == tag {
			return
		}
	}
	r.tags = append(r.tags, tag)
}

// Tags lists every registered tag.
func (r *Registry) Tags() []ids.Tag {
	return append([]ids.Tag(nil), r.tags...)
}
