// Package ingest runs refresh cycles: one bounded fetch from a channel's
// source, normalization of every entry, and one atomic batch upsert.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"teleread/internal/config"
	"teleread/internal/normalize"
	"teleread/internal/source"
	"teleread/internal/store"
)

// DefaultPullLimit bounds how many entries one cycle pulls from a source.
const DefaultPullLimit = 400

// Result reports one refresh cycle. Saved is the post-count delta, an
// intentional approximation: updates to already-stored posts do not count.
type Result struct {
	Scanned int `json:"scanned"`
	Saved   int `json:"saved"`
}

// Refresher drives refresh cycles against one store. It holds no state
// across calls; independent callers may refresh different channels
// concurrently.
type Refresher struct {
	store  *store.Store
	feed   source.Source
	stream source.Source
	base   string // RSSHub base for username-addressed channels
	limit  int
	now    func() time.Time
	log    *logrus.Logger
}

type Option func(*Refresher)

// WithStream plugs in the message-stream source for stream-addressed
// channels. Without it, refreshing such a channel is an error.
func WithStream(s source.Source) Option {
	return func(r *Refresher) { r.stream = s }
}

func WithPullLimit(n int) Option {
	return func(r *Refresher) {
		if n > 0 {
			r.limit = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

func WithLogger(log *logrus.Logger) Option {
	return func(r *Refresher) { r.log = log }
}

// New creates a refresher over st. feed handles every channel addressed by
// a feed URL or RSSHub username; base is the RSSHub base URL.
func New(st *store.Store, feed source.Source, base string, opts ...Option) *Refresher {
	r := &Refresher{
		store: st,
		feed:  feed,
		base:  base,
		limit: DefaultPullLimit,
		now:   time.Now,
		log:   logrus.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh runs one fetch-normalize-upsert cycle for the channel. A fetch
// failure aborts before any upsert. A rate-limited fetch is absorbed: the
// cycle continues with whatever was already fetched. Scanned counts the
// entries that reached the normalizer.
func (r *Refresher) Refresh(ctx context.Context, ch config.Channel) (Result, error) {
	src, ref, err := r.resolve(ch)
	if err != nil {
		return Result{}, err
	}

	start := r.now()
	entries, err := src.Fetch(ctx, ref, r.limit)
	if err != nil {
		if !errors.Is(err, source.ErrRateLimited) {
			return Result{}, err
		}
		r.log.WithFields(logrus.Fields{"channel": ch.Slug, "source": src.Name()}).
			Debug("rate limited, keeping partial batch")
	}

	posts := make([]store.Post, 0, len(entries))
	now := r.now()
	for _, e := range entries {
		posts = append(posts, normalize.Entry(e, ch.Slug, now))
	}

	before, err := r.store.Count(ctx, ch.Slug)
	if err != nil {
		return Result{}, err
	}
	if err := r.store.Upsert(ctx, posts); err != nil {
		return Result{}, err
	}
	after, err := r.store.Count(ctx, ch.Slug)
	if err != nil {
		return Result{}, err
	}

	saved := after - before
	if saved < 0 {
		saved = 0
	}

	res := Result{Scanned: len(entries), Saved: saved}
	r.log.WithFields(logrus.Fields{
		"channel":  ch.Slug,
		"source":   src.Name(),
		"scanned":  res.Scanned,
		"saved":    res.Saved,
		"duration": r.now().Sub(start).Round(time.Millisecond),
	}).Info("refresh cycle complete")

	return res, nil
}

// Peek fetches up to n raw entries for the channel without persisting
// anything. Used by the debug endpoint.
func (r *Refresher) Peek(ctx context.Context, ch config.Channel, n int) ([]source.RawEntry, error) {
	src, ref, err := r.resolve(ch)
	if err != nil {
		return nil, err
	}
	entries, err := src.Fetch(ctx, ref, n)
	if err != nil && !errors.Is(err, source.ErrRateLimited) {
		return nil, err
	}
	return entries, nil
}

// SourceRef reports which source and reference a channel resolves to.
func (r *Refresher) SourceRef(ch config.Channel) (name, ref string, err error) {
	src, ref, err := r.resolve(ch)
	if err != nil {
		return "", "", err
	}
	return src.Name(), ref, nil
}

func (r *Refresher) resolve(ch config.Channel) (source.Source, string, error) {
	if ch.Stream != "" {
		if r.stream == nil {
			return nil, "", fmt.Errorf("channel %q: no message-stream client configured", ch.Slug)
		}
		return r.stream, ch.Stream, nil
	}
	ref, err := ch.FeedURL(r.base)
	if err != nil {
		return nil, "", err
	}
	return r.feed, ref, nil
}
