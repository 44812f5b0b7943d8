package source

import (
	"context"
	"errors"
	"testing"
)

type fakeStreamClient struct {
	msgs []Message
	err  error
}

func (f *fakeStreamClient) Recent(_ context.Context, _ string, limit int) ([]Message, error) {
	msgs := f.msgs
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, f.err
}

func TestStreamSource_SkipsTextlessMessages(t *testing.T) {
	client := &fakeStreamClient{msgs: []Message{
		{ID: 3, Text: "hello", Date: "2026-08-03T10:00:00Z"},
		{ID: 2, Text: "   ", Date: "2026-08-03T09:00:00Z"},
		{ID: 1, Text: "", Date: "2026-08-03T08:00:00Z"},
	}}

	ss := NewStream(client)
	entries, err := ss.Fetch(context.Background(), "chan", 400)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (media messages dropped)", len(entries))
	}
	e := entries[0]
	if e.ID != "3" {
		t.Errorf("id = %q, want 3", e.ID)
	}
	if len(e.Content) != 1 || e.Content[0].Value != "hello" {
		t.Errorf("content = %+v", e.Content)
	}
	if e.Published == nil {
		t.Fatal("published missing")
	}
	if got := e.Published.UTC().Format("2006-01-02T15:04:05Z"); got != "2026-08-03T10:00:00Z" {
		t.Errorf("published = %s", got)
	}
}

func TestStreamSource_ZonelessDateIsUTC(t *testing.T) {
	client := &fakeStreamClient{msgs: []Message{
		{ID: 1, Text: "x", Date: "2026-08-03 10:00:00"},
	}}

	ss := NewStream(client)
	entries, err := ss.Fetch(context.Background(), "chan", 400)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if entries[0].Published == nil {
		t.Fatal("published missing")
	}
	if got := entries[0].Published.UTC().Hour(); got != 10 {
		t.Errorf("hour = %d, want 10 (zoneless date must be read as UTC)", got)
	}
}

func TestStreamSource_UnparsableDateLeftUnset(t *testing.T) {
	client := &fakeStreamClient{msgs: []Message{
		{ID: 1, Text: "x", Date: "not a date"},
	}}

	ss := NewStream(client)
	entries, err := ss.Fetch(context.Background(), "chan", 400)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if entries[0].Published != nil {
		t.Errorf("published = %v, want nil", entries[0].Published)
	}
}

func TestStreamSource_RateLimitedKeepsPartialBatch(t *testing.T) {
	client := &fakeStreamClient{
		msgs: []Message{{ID: 5, Text: "partial", Date: "2026-08-03T10:00:00Z"}},
		err:  ErrRateLimited,
	}

	ss := NewStream(client)
	entries, err := ss.Fetch(context.Background(), "chan", 400)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want the partial batch", len(entries))
	}
}

func TestStreamSource_ForeignThrottleSignal(t *testing.T) {
	client := &fakeStreamClient{err: errors.New("FLOOD_WAIT: retry in 30s")}

	ss := NewStream(client)
	_, err := ss.Fetch(context.Background(), "chan", 400)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestStreamSource_TransportErrorIsFetchError(t *testing.T) {
	client := &fakeStreamClient{err: errors.New("connection reset")}

	ss := NewStream(client)
	_, err := ss.Fetch(context.Background(), "chan", 400)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FetchError", err)
	}
	if fe.Channel != "chan" {
		t.Errorf("channel = %q", fe.Channel)
	}
}
