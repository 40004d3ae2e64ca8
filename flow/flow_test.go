package flow

import "testing"

type cmd struct {
	kind  string
	value int
}

type evt struct {
	kind  string
	value int
}

func acceptHandler(kind string) CmdFn[cmd, evt] {
	return func(c cmd) (CommandResult[evt], bool) {
		if c.kind != kind {
			return CommandResult[evt]{}, false
		}
		return Accept(evt{kind: kind, value: c.value}), true
	}
}

func TestOrElseCmdFirstMatchWins(t *testing.T) {
	first := func(cmd) (CommandResult[evt], bool) { return Accept(evt{kind: "first"}), true }
	second := func(cmd) (CommandResult[evt], bool) { return Accept(evt{kind: "second"}), true }
	composed := OrElseCmd(first, second)

	result, ok := composed(cmd{kind: "anything"})
	if !ok {
		t.Fatal("expected composed handler to match")
	}
	if result.Events[0].kind != "first" {
		t.Fatalf("expected first handler to win, got %q", result.Events[0].kind)
	}
}

func TestOrElseCmdSkipsNilAndNonMatching(t *testing.T) {
	composed := OrElseCmd[cmd, evt](nil, acceptHandler("create"))
	if _, ok := composed(cmd{kind: "other"}); ok {
		t.Fatal("expected no match for an unrecognized command")
	}
	result, ok := composed(cmd{kind: "create", value: 5})
	if !ok {
		t.Fatal("expected the non-nil handler to match")
	}
	if result.Events[0].value != 5 {
		t.Fatalf("unexpected event value %d", result.Events[0].value)
	}
}

func TestWaitForStaysAtSamePointerUntilMatch(t *testing.T) {
	matcher := func(e evt) (Node[cmd, evt], bool) {
		if e.kind != "created" {
			return nil, false
		}
		return Done[cmd, evt](), true
	}
	consumer := Compile(acceptHandler("create"), WaitFor(matcher))
	if consumer == nil {
		t.Fatal("expected a non-nil consumer")
	}

	same, ok := consumer.StepOnEvent(evt{kind: "unrelated"})
	if !ok {
		t.Fatal("expected the flow to still accept events")
	}
	if same != consumer {
		t.Fatal("expected a non-matching event to return the identical consumer pointer (flow re-entry law)")
	}

	next, ok := consumer.StepOnEvent(evt{kind: "created"})
	if !ok {
		t.Fatal("expected the matching event to advance")
	}
	if next != nil {
		t.Fatal("expected advancing into Done to yield a nil consumer")
	}
}

func TestInstallHandlerReplacesHandlerBeforeWait(t *testing.T) {
	program := InstallHandler(acceptHandler("increment"), WaitFor(func(e evt) (Node[cmd, evt], bool) {
		return Done[cmd, evt](), e.kind == "incremented"
	}))
	consumer := Compile(acceptHandler("create"), program)
	if consumer == nil {
		t.Fatal("expected a non-nil consumer")
	}
	if _, ok := consumer.Handler(cmd{kind: "create"}); ok {
		t.Fatal("expected the installed handler to have replaced the initial one")
	}
	if _, ok := consumer.Handler(cmd{kind: "increment"}); !ok {
		t.Fatal("expected the installed handler to recognize its own command")
	}
}

func TestCompileOfDoneProgramYieldsNilConsumer(t *testing.T) {
	if Compile[cmd, evt](nil, Done[cmd, evt]()) != nil {
		t.Fatal("expected compiling a Done program to yield a nil consumer")
	}
}

func TestStepOnEventOnNilConsumerIsTerminal(t *testing.T) {
	var consumer *StreamConsumer[cmd, evt]
	if _, ok := consumer.StepOnEvent(evt{kind: "anything"}); ok {
		t.Fatal("expected stepping a nil consumer to report ok=false")
	}
}
