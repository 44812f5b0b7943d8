// Package source adapts external channel transports (web feeds, message
// streams) into a uniform sequence of raw entries for ingestion.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ContentBlock is one typed chunk of entry content, e.g. an HTML body.
type ContentBlock struct {
	Type  string // MIME-ish type hint: "text/html", "text/plain"
	Value string
}

// RawEntry is one unit of content as received from a source, before
// normalization. Every field is optional; the normalizer owns all fallbacks.
type RawEntry struct {
	ID      string
	GUID    string
	Link    string
	Title   string
	Summary string
	Content []ContentBlock

	Published *time.Time
	Updated   *time.Time
}

// Source fetches the most recent raw entries for one channel reference.
type Source interface {
	// Name returns the source identifier (e.g. "feed").
	Name() string

	// Fetch returns up to limit entries for ref, most recent first.
	// A rate-limited fetch may return a shorter (possibly empty) slice
	// together with ErrRateLimited.
	Fetch(ctx context.Context, ref string, limit int) ([]RawEntry, error)
}

// ErrRateLimited signals that the upstream asked us to back off. Callers
// treat it as a soft failure for the current cycle, not an operational alarm.
var ErrRateLimited = errors.New("source: rate limited")

// FetchError wraps any network, timeout, or parse failure for one channel.
type FetchError struct {
	Source  string // source name
	Channel string // channel reference that was being fetched
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch %s: %v", e.Source, e.Channel, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
