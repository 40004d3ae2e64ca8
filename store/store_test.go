package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"flowsource/core/ids"
)

type fakeRaw struct {
	streams map[string][]string
	log     []OperationLogEntry
}

func newFakeRaw() *fakeRaw { return &fakeRaw{streams: make(map[string][]string)} }

func (f *fakeRaw) ReadRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (ReadResponse[string], error) {
	key := tag.String() + "/" + id.String()
	stream := f.streams[key]
	if fromVersion >= len(stream) {
		return ReadResponse[string]{Version: len(stream)}, nil
	}
	return ReadResponse[string]{Version: len(stream), Events: append([]string(nil), stream[fromVersion:]...)}, nil
}

func (f *fakeRaw) AppendRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []string) error {
	key := tag.String() + "/" + id.String()
	if len(f.streams[key]) != expectedVersion {
		return errVersionConflict
	}
	f.streams[key] = append(f.streams[key], events...)
	for i, raw := range events {
		f.log = append(f.log, OperationLogEntry{OpNr: int64(len(f.log) + 1), Tag: tag, AggregateId: id, Version: expectedVersion + i + 1, Raw: raw})
	}
	return nil
}

func (f *fakeRaw) ReadLog(_ context.Context, fromOpNr int64, limit int) ([]OperationLogEntry, error) {
	var out []OperationLogEntry
	for _, entry := range f.log {
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

var errVersionConflict = errors.New("version conflict")

type textCodec struct{ failDecode bool }

func (textCodec) Encode(event string) (string, error) { return "enc:" + event, nil }

func (c textCodec) Decode(raw string) (string, error) {
	if c.failDecode {
		return "", fmt.Errorf("bad payload: %q", raw)
	}
	return raw[len("enc:"):], nil
}

func TestTypedStoreRoundTripsThroughCodec(t *testing.T) {
	raw := newFakeRaw()
	typed := New[string](raw, textCodec{})
	ctx := context.Background()
	tag := ids.Tag("widget")
	id := ids.AggregateId("w1")

	if err := typed.AppendEvents(ctx, tag, id, 0, []string{"created", "incremented"}); err != nil {
		t.Fatalf("AppendEvents: %v", err)
	}

	resp, err := typed.ReadEvents(ctx, tag, id, 0)
	if err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if resp.Version != 2 {
		t.Fatalf("expected version 2, got %d", resp.Version)
	}
	if len(resp.Events) != 2 || resp.Events[0] != "created" || resp.Events[1] != "incremented" {
		t.Fatalf("unexpected events: %v", resp.Events)
	}

	// The underlying raw store actually holds the encoded form.
	rawResp, err := raw.ReadRaw(ctx, tag, id, 0)
	if err != nil {
		t.Fatalf("ReadRaw: %v", err)
	}
	if rawResp.Events[0] != "enc:created" {
		t.Fatalf("expected the raw store to hold the encoded payload, got %q", rawResp.Events[0])
	}
}

func TestTypedStoreAppendEventsNoopOnEmptySlice(t *testing.T) {
	raw := newFakeRaw()
	typed := New[string](raw, textCodec{})
	if err := typed.AppendEvents(context.Background(), "widget", "w1", 0, nil); err != nil {
		t.Fatalf("expected a no-op append to succeed, got %v", err)
	}
	if len(raw.streams) != 0 {
		t.Fatal("expected no stream to have been created by a no-op append")
	}
}

func TestTypedStoreSurfacesDecodeFailure(t *testing.T) {
	raw := newFakeRaw()
	if err := raw.AppendRaw(context.Background(), "widget", "w1", 0, []string{"garbage"}); err != nil {
		t.Fatalf("direct append: %v", err)
	}
	typed := New[string](raw, textCodec{failDecode: true})
	if _, err := typed.ReadEvents(context.Background(), "widget", "w1", 0); err == nil {
		t.Fatal("expected ReadEvents to surface the codec's decode error")
	}
}

func TestTypedStorePropagatesVersionConflict(t *testing.T) {
	raw := newFakeRaw()
	typed := New[string](raw, textCodec{})
	ctx := context.Background()
	if err := typed.AppendEvents(ctx, "widget", "w1", 0, []string{"created"}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err := typed.AppendEvents(ctx, "widget", "w1", 0, []string{"created-again"})
	if !errors.Is(err, errVersionConflict) {
		t.Fatalf("expected the backend's version conflict to propagate, got %v", err)
	}
}
