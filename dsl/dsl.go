// Package dsl implements the declarative surface syntax that desugars into
// the flow package's AST (spec.md §4.2):
//
//	handler( clause, clause, ... )
//	clause  := When[C](pred?).Guard(p,msg)*.Emit(...).Switch(next)?
//
// Every combinator is a method on ClauseBuilder[C, Cmd, Evt], where C is the
// clause's own concrete command type, and Cmd/Evt are the aggregate-wide
// command/event supertypes threaded through flow.Node. Go methods cannot
// introduce their own type parameters, so top-level functions (When, Handler,
// EventIs, AsEvent) carry the full parameter list explicitly where needed;
// callers that hit inference limits supply the trailing type arguments.
package dsl

import (
	"flowsource/core/coreerr"
	"flowsource/core/flow"
)

// guard is one registered precondition: a command-time check plus the
// message it contributes to the failure list when it does not hold.
type guard[C any] struct {
	check func(C) bool
	msg   string
}

// ClauseBuilder accumulates one clause's command predicate, guards, emit
// action, and optional event switch. Build with When or AnyOther, chain the
// rest, and pass the result to Handler.
type ClauseBuilder[C, Cmd, Evt any] struct {
	pred          func(C) bool
	guards        []guard[C]
	action        func(C) ([]Evt, error)
	eventMatch    func(Evt) bool
	next          func(Evt) flow.Node[Cmd, Evt]
	unconditional bool
}

// When starts a clause matching commands of runtime kind C. pred may be nil
// to match every command of kind C unconditionally; when non-nil it narrows
// the match further (spec.md §4.2: "iff the command's runtime kind is C and
// the optional predicate holds").
func When[C, Cmd, Evt any](pred func(C) bool) *ClauseBuilder[C, Cmd, Evt] {
	return &ClauseBuilder[C, Cmd, Evt]{pred: pred}
}

// AnyOther builds the catch-all clause: it matches every command reaching
// it regardless of kind, and is meant to be paired with FailWithMessage
// (spec.md §4.2 "anyOther.failWithMessage").
func AnyOther[Cmd, Evt any]() *ClauseBuilder[Cmd, Cmd, Evt] {
	return &ClauseBuilder[Cmd, Cmd, Evt]{unconditional: true}
}

// Guard registers a precondition evaluated in declared order at command
// time. A failing guard contributes msg to the failure list; guards never
// throw, so check is a plain predicate (spec.md §4.2, §8 property 4).
func (b *ClauseBuilder[C, Cmd, Evt]) Guard(check func(C) bool, msg string) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil || check == nil {
		return b
	}
	b.guards = append(b.guards, guard[C]{check: check, msg: msg})
	return b
}

// Emit sets the clause's action to a single event produced from the command.
// This is the registration point for structural promotion (spec.md
// "emit[E]"): write convert as a literal field-by-field copy and a field
// mismatch is a compile error, never a runtime one (spec.md §9's "From
// <Command> for Event" approach, since Go has no derive macros).
func (b *ClauseBuilder[C, Cmd, Evt]) Emit(convert func(C) Evt) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil {
		return b
	}
	b.action = func(c C) ([]Evt, error) { return []Evt{convert(c)}, nil }
	return b
}

// EmitMany sets the clause's action to zero or more events derived from the
// command (spec.md "emitEvents").
func (b *ClauseBuilder[C, Cmd, Evt]) EmitMany(convert func(C) []Evt) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil {
		return b
	}
	b.action = func(c C) ([]Evt, error) { return convert(c), nil }
	return b
}

// EmitLiteral sets the clause's action to a fixed list of events, ignoring
// the command's own fields (spec.md "emit(e1, e2, ...)").
func (b *ClauseBuilder[C, Cmd, Evt]) EmitLiteral(events ...Evt) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil {
		return b
	}
	fixed := append([]Evt(nil), events...)
	b.action = func(C) ([]Evt, error) { return fixed, nil }
	return b
}

// FailWithMessage sets the clause's action to reject with msg (spec.md
// "anyOther.failWithMessage"). Guards still run first: if any registered
// guard fails, the rejection carries the guard messages instead of msg.
func (b *ClauseBuilder[C, Cmd, Evt]) FailWithMessage(msg string) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil {
		return b
	}
	b.action = func(C) ([]Evt, error) { return nil, coreerr.NewCommandFailure(msg) }
	return b
}

// Switch registers the event match that advances the flow once this
// clause's command has been accepted: when match holds for an observed
// event, the flow advances to whatever next returns. next is evaluated
// lazily, only once the event actually matches — never at registration
// time — so a loop that switches back into a variant of itself (e.g. a
// counter's running state, parametrized by its current value) can be
// expressed as ordinary recursion without building an infinite graph
// up front. A clause without Switch never advances the flow on its own
// (spec.md §4.2).
func (b *ClauseBuilder[C, Cmd, Evt]) Switch(match func(Evt) bool, next func(Evt) flow.Node[Cmd, Evt]) *ClauseBuilder[C, Cmd, Evt] {
	if b == nil {
		return b
	}
	b.eventMatch = match
	b.next = next
	return b
}

// EventIs is a convenience predicate for Switch: it reports whether e is of
// concrete kind E, for use as (or inside) a Switch match function, e.g.
// b.Switch(func(e Event) bool { return dsl.EventIs[Incremented](e) }, next).
func EventIs[E, Evt any](e Evt) bool {
	_, ok := any(e).(E)
	return ok
}

// AsEvent extracts a concrete event of kind E from the aggregate-wide event
// value, for predicates that also need the typed value (e.g. to compare an
// identifier field).
func AsEvent[E, Evt any](e Evt) (E, bool) {
	v, ok := any(e).(E)
	return v, ok
}

// clause is the type-erased form of a ClauseBuilder, produced by build().
// It is what Handler composes, since clauses of differing concrete command
// types C cannot share a single Go slice element type otherwise.
type clause[Cmd, Evt any] struct {
	cmdHandler   flow.CmdFn[Cmd, Evt]
	eventMatcher flow.Matcher[Cmd, Evt]
}

func (b *ClauseBuilder[C, Cmd, Evt]) build() clause[Cmd, Evt] {
	guards := b.guards
	pred := b.pred
	action := b.action
	unconditional := b.unconditional
	eventMatch := b.eventMatch
	next := b.next

	cmdHandler := func(raw Cmd) (flow.CommandResult[Evt], bool) {
		var typed C
		if unconditional {
			// 1.- AnyOther clauses match every command of the shared Cmd
			// type unconditionally; the type assertion here always succeeds
			// since C == Cmd for a clause built by AnyOther.
			typed, _ = any(raw).(C)
		} else {
			v, ok := any(raw).(C)
			if !ok {
				return flow.CommandResult[Evt]{}, false
			}
			if pred != nil && !pred(v) {
				return flow.CommandResult[Evt]{}, false
			}
			typed = v
		}

		var messages []string
		for _, g := range guards {
			if !g.check(typed) {
				messages = append(messages, g.msg)
			}
		}
		if len(messages) > 0 {
			return flow.Reject[Evt](coreerr.NewCommandFailure(messages...)), true
		}
		if action == nil {
			return flow.Accept[Evt](), true
		}
		events, err := action(typed)
		if err != nil {
			return flow.Reject[Evt](err), true
		}
		return flow.Accept(events...), true
	}

	var eventMatcher flow.Matcher[Cmd, Evt]
	if eventMatch != nil && next != nil {
		eventMatcher = func(event Evt) (flow.Node[Cmd, Evt], bool) {
			if !eventMatch(event) {
				return nil, false
			}
			return next(event), true
		}
	}

	return clause[Cmd, Evt]{cmdHandler: cmdHandler, eventMatcher: eventMatcher}
}

// builder is implemented by every *ClauseBuilder[C, Cmd, Evt] regardless of
// its own concrete command type C, which Go erases from the method set
// here. It lets Handler accept clauses built from different concrete
// command types (When[Create, ...], When[Increment, ...], ...) in one
// variadic call.
type builder[Cmd, Evt any] interface {
	build() clause[Cmd, Evt]
}

// Handler composes a list of clauses into one Flow step: a command handler
// that is the left-to-right orElse of each clause's handler, installed and
// immediately followed by a wait for the first clause whose Switch fires
// (spec.md §4.2). Clauses without Switch simply never contribute a match.
func Handler[Cmd, Evt any](clauses ...builder[Cmd, Evt]) flow.Node[Cmd, Evt] {
	built := make([]clause[Cmd, Evt], 0, len(clauses))
	for _, c := range clauses {
		if c == nil {
			continue
		}
		built = append(built, c.build())
	}
	return buildHandlerNode(built)
}

func buildHandlerNode[Cmd, Evt any](built []clause[Cmd, Evt]) flow.Node[Cmd, Evt] {
	cmdHandlers := make([]flow.CmdFn[Cmd, Evt], 0, len(built))
	for _, c := range built {
		cmdHandlers = append(cmdHandlers, c.cmdHandler)
	}
	composedCmd := flow.OrElseCmd(cmdHandlers...)

	matcher := func(event Evt) (flow.Node[Cmd, Evt], bool) {
		for _, c := range built {
			if c.eventMatcher == nil {
				continue
			}
			if next, ok := c.eventMatcher(event); ok {
				return next, true
			}
		}
		return nil, false
	}

	return flow.InstallHandler(composedCmd, flow.WaitFor(matcher))
}
