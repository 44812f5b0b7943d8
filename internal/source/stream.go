package source

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

const streamSourceName = "stream"

// Message is one raw message as delivered by a message-stream client.
// Date is whatever textual timestamp the transport reports; zoneless
// values are taken as UTC.
type Message struct {
	ID   int64
	Text string
	Date string
}

// StreamClient is the narrow transport contract for a direct message-stream
// API. Implementations live outside this package; Recent returns the most
// recent messages for a channel handle, newest first, and may return a
// partial slice together with ErrRateLimited when throttled upstream.
type StreamClient interface {
	Recent(ctx context.Context, handle string, limit int) ([]Message, error)
}

// StreamSource adapts a StreamClient into the Source contract. Messages with
// no text payload (pure media) are dropped here, before normalization.
type StreamSource struct {
	client StreamClient
}

func NewStream(client StreamClient) *StreamSource {
	return &StreamSource{client: client}
}

func (ss *StreamSource) Name() string {
	return streamSourceName
}

func (ss *StreamSource) Fetch(ctx context.Context, ref string, limit int) ([]RawEntry, error) {
	msgs, err := ss.client.Recent(ctx, ref, limit)
	if err != nil {
		if !isRateLimited(err) {
			return nil, &FetchError{Source: streamSourceName, Channel: ref, Err: err}
		}
		err = ErrRateLimited
	}

	entries := make([]RawEntry, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		entries = append(entries, entryFromMessage(m))
	}

	// err is either nil or ErrRateLimited here; the partial batch is
	// still worth ingesting, so both travel back to the caller.
	return entries, err
}

func entryFromMessage(m Message) RawEntry {
	e := RawEntry{
		ID:      strconv.FormatInt(m.ID, 10),
		Content: []ContentBlock{{Type: "text/plain", Value: m.Text}},
	}
	if t, err := dateparse.ParseIn(m.Date, time.UTC); err == nil && !t.IsZero() {
		e.Published = &t
	}
	return e
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	// Foreign clients phrase throttling their own way ("FLOOD_WAIT",
	// "too many requests"); treat those as the same soft signal.
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "flood") || strings.Contains(s, "too many requests") || strings.Contains(s, "rate limit")
}
