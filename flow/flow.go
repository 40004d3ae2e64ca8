// Package flow implements the free-structured Flow AST and its compiler
// (spec.md §4.1): a two-node program — install a command handler, or wait
// for a matching event — compiled into a lazy state machine, the
// StreamConsumer, that an aggregate runtime drives one event at a time.
//
// Go has no built-in existential/monadic plumbing, so the "resume with the
// matched value a" step (spec.md's waitFor(matcher) -> A) is folded into the
// matcher itself: a matcher returns the already-continued next Node rather
// than a bare value, which keeps every exported type parameterized by just
// the aggregate's Command and Event supertypes (C, E) instead of a
// per-wait-point A. The dsl package builds matchers this way; callers of
// this package directly do the same.
package flow

// CommandResult is the outcome of a command handler: either a (possibly
// empty) list of events to append, or a failure. Exactly one of Events or
// Err should be meaningful; a non-nil Err means the command was rejected.
type CommandResult[E any] struct {
	Events []E
	Err    error
}

// Accept builds a successful CommandResult, possibly with zero events
// (spec.md §3: "success list may be empty (no-op)").
func Accept[E any](events ...E) CommandResult[E] {
	return CommandResult[E]{Events: events}
}

// Reject builds a failed CommandResult.
func Reject[E any](err error) CommandResult[E] {
	return CommandResult[E]{Err: err}
}

// CmdFn is a partial command handler. ok is false when the handler does not
// recognize cmd at all, distinct from recognizing it and rejecting it
// (which is expressed via a non-nil CommandResult.Err with ok=true).
type CmdFn[C, E any] func(cmd C) (result CommandResult[E], ok bool)

// OrElseCmd composes command handlers left to right: the first handler that
// recognizes the command wins (spec.md §4.2, "first matching clause").
func OrElseCmd[C, E any](handlers ...CmdFn[C, E]) CmdFn[C, E] {
	return func(cmd C) (CommandResult[E], bool) {
		for _, h := range handlers {
			if h == nil {
				continue
			}
			if result, ok := h(cmd); ok {
				return result, true
			}
		}
		return CommandResult[E]{}, false
	}
}

// StreamConsumer is the compiled state of a Flow at some point during event
// replay: the command handler currently in force, plus the step function
// that advances (or stays at) this state when fed an event. It is an
// immutable value; stepOnEvent either returns the same pointer (self-loop
// on no match) or compiles and returns a new one.
type StreamConsumer[C, E any] struct {
	// Handler is the command handler currently in force at this point in
	// the flow.
	Handler CmdFn[C, E]

	step func(event E) (next *StreamConsumer[C, E], ok bool)
}

// StepOnEvent feeds one event through the consumer. ok is false only when
// s is nil (a flow that had already terminated); an event that advances
// the flow into Done returns (nil, true). A non-matching event returns
// (s, true) — the very same pointer, satisfying the flow re-entry law
// (spec.md §8 property 2).
func (s *StreamConsumer[C, E]) StepOnEvent(event E) (next *StreamConsumer[C, E], ok bool) {
	if s == nil || s.step == nil {
		return nil, false
	}
	return s.step(event)
}

// Node is one point in a Flow program: install a handler and continue, wait
// for an event, or terminate. Compile walks the program against the
// initial-handler-so-far to produce a StreamConsumer.
type Node[C, E any] interface {
	compile(initial CmdFn[C, E]) *StreamConsumer[C, E]
}

// Compile builds a StreamConsumer from a Flow program, starting from
// initialHandler as the command handler in force before any installHandler
// node is reached (spec.md §4.3 step 2 calls this with an empty handler).
// It returns nil when the program is already Done.
func Compile[C, E any](initialHandler CmdFn[C, E], program Node[C, E]) *StreamConsumer[C, E] {
	if program == nil {
		return nil
	}
	return program.compile(initialHandler)
}

type installHandlerNode[C, E any] struct {
	handler CmdFn[C, E]
	next    Node[C, E]
}

// InstallHandler sets the command handler currently in force, then
// continues compiling next. Per spec.md's tie-break rule, when both an
// install and a wait could apply at one AST position, install is processed
// first so the wait it leads to inherits the freshly installed handler —
// this is structurally guaranteed here since next is only compiled after
// handler replaces the running initial handler.
func InstallHandler[C, E any](handler CmdFn[C, E], next Node[C, E]) Node[C, E] {
	return &installHandlerNode[C, E]{handler: handler, next: next}
}

func (n *installHandlerNode[C, E]) compile(_ CmdFn[C, E]) *StreamConsumer[C, E] {
	return n.next.compile(n.handler)
}

// Matcher decides, for one incoming event, whether this wait point should
// advance and which Node to continue compiling if so. It has already
// "resumed with the matched value" internally — see the package doc for why
// that step is folded in here instead of kept as a separate bound value.
type Matcher[C, E any] func(event E) (next Node[C, E], ok bool)

type waitForNode[C, E any] struct {
	matcher Matcher[C, E]
}

// WaitFor suspends until matcher recognizes an event, then continues
// compiling the Node it returns. The handler installed at suspension time
// (initialHandler, as passed to Compile or propagated from the most recent
// InstallHandler) remains in force while suspended.
func WaitFor[C, E any](matcher Matcher[C, E]) Node[C, E] {
	return &waitForNode[C, E]{matcher: matcher}
}

func (n *waitForNode[C, E]) compile(initial CmdFn[C, E]) *StreamConsumer[C, E] {
	consumer := &StreamConsumer[C, E]{Handler: initial}
	consumer.step = func(event E) (*StreamConsumer[C, E], bool) {
		next, matched := n.matcher(event)
		if !matched {
			// 1.- Stay at this wait point: same pointer, same handler.
			return consumer, true
		}
		// 2.- Advance: compile the continuation with the handler that was
		// in force at this wait point, per the flow re-use invariant.
		return next.compile(initial), true
	}
	return consumer
}

type doneNode[C, E any] struct{}

// Done marks the terminal point of a Flow program: no further commands or
// events are accepted once reached.
func Done[C, E any]() Node[C, E] {
	return doneNode[C, E]{}
}

func (doneNode[C, E]) compile(_ CmdFn[C, E]) *StreamConsumer[C, E] {
	return nil
}
