package filestore

import (
	"context"
	"errors"
	"testing"

	"flowsource/core/coreerr"
	"flowsource/core/ids"
)

func TestOpenCreatesDirectory(t *testing.T) {
	dir := t.TempDir() + "/nested/store"
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if store == nil {
		t.Fatal("expected a non-nil Store")
	}
}

func TestAppendThenReadRoundTripsThroughCompression(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	tag, id := ids.Tag("widget"), ids.AggregateId("w1")

	if err := store.AppendRaw(ctx, tag, id, 0, []string{"created", "incremented"}); err != nil {
		t.Fatalf("AppendRaw: %v", err)
	}

	resp, err := store.ReadRaw(ctx, tag, id, 0)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if resp.Version != 2 {
		t.Fatalf("expected version 2, got %d", resp.Version)
	}
	if len(resp.Events) != 2 || resp.Events[0] != "created" || resp.Events[1] != "incremented" {
		t.Fatalf("unexpected events: %v", resp.Events)
	}
}

func TestAppendRawRejectsVersionMismatch(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	tag, id := ids.Tag("widget"), ids.AggregateId("w1")

	if err := store.AppendRaw(ctx, tag, id, 0, []string{"created"}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err = store.AppendRaw(ctx, tag, id, 0, []string{"created-again"})
	if !errors.Is(err, coreerr.ErrUnexpectedVersion) {
		t.Fatalf("expected ErrUnexpectedVersion, got %v", err)
	}
}

func TestReadLogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	tag, id := ids.Tag("widget"), ids.AggregateId("w1")

	first, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.AppendRaw(ctx, tag, id, 0, []string{"created"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := first.AppendRaw(ctx, tag, id, 1, []string{"incremented"}); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	entries, err := reopened.ReadLog(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries after reopen, got %d", len(entries))
	}
	if entries[0].OpNr != 1 || entries[1].OpNr != 2 {
		t.Fatalf("unexpected OpNr sequence: %+v", entries)
	}

	// nextOp must have been recovered correctly: a further append continues
	// the sequence rather than restarting it.
	if err := reopened.AppendRaw(ctx, tag, id, 2, []string{"incremented-again"}); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	entries, err = reopened.ReadLog(ctx, 1, 0)
	if err != nil {
		t.Fatalf("ReadLog after third append: %v", err)
	}
	if len(entries) != 3 || entries[2].OpNr != 3 {
		t.Fatalf("expected OpNr to continue sequentially after reopen, got %+v", entries)
	}
}

func TestReadLogRespectsFromOpNrAndLimit(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	if err := store.AppendRaw(ctx, "widget", "w1", 0, []string{"a", "b", "c"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := store.ReadLog(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected entries from OpNr 2 onward, got %d", len(entries))
	}

	limited, err := store.ReadLog(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ReadLog with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to cap results at 1, got %d", len(limited))
	}
}

func TestReadRawOnMissingStreamReturnsVersionZero(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	resp, err := store.ReadRaw(context.Background(), "widget", "missing", 0)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if resp.Version != 0 || len(resp.Events) != 0 {
		t.Fatalf("expected a missing stream to read as version 0 with no events, got %+v", resp)
	}
}
