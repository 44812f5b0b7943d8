// Package store persists canonical posts in SQLite, keyed by the natural
// (channel_slug, msg_id) pair. It is the sole source of truth for what has
// been ingested.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Post is one normalized channel message at rest. DateISO is RFC 3339 UTC
// at second precision, so string order matches time order.
type Post struct {
	ChannelSlug string
	MsgID       int64
	DateISO     string
	Text        string
}

type Store struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens (or creates) the
// database at path, and applies the schema. The handle is safe for
// concurrent refresh cycles; same-key races resolve last-writer-wins at
// the uniqueness constraint.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Upsert applies a batch of posts in one transaction: new keys insert, known
// keys overwrite date_iso and text in place. Readers observe the whole batch
// or none of it. An empty batch is a no-op.
func (s *Store) Upsert(ctx context.Context, posts []Post) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if len(posts) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO posts (channel_slug, msg_id, date_iso, text)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(channel_slug, msg_id) DO UPDATE SET
			date_iso = excluded.date_iso,
			text = excluded.text
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, p := range posts {
		if strings.TrimSpace(p.ChannelSlug) == "" {
			_ = tx.Rollback()
			return errors.New("channel_slug is required")
		}
		if p.DateISO == "" {
			_ = tx.Rollback()
			return errors.New("date_iso is required")
		}
		if p.Text == "" {
			_ = tx.Rollback()
			return errors.New("text is required")
		}
		if _, err := stmt.ExecContext(ctx, p.ChannelSlug, p.MsgID, p.DateISO, p.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert post %s/%d: %w", p.ChannelSlug, p.MsgID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// Count returns the number of stored posts for the channel.
func (s *Store) Count(ctx context.Context, slug string) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("store is not initialized")
	}

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts WHERE channel_slug = ?", slug).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

// List returns one page of posts for the channel, newest first; equal
// timestamps tie-break on msg_id descending so the order is total and
// reproducible. An out-of-range offset yields an empty slice.
func (s *Store) List(ctx context.Context, slug string, limit, offset int) ([]Post, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_slug, msg_id, date_iso, text
		FROM posts
		WHERE channel_slug = ?
		ORDER BY date_iso DESC, msg_id DESC
		LIMIT ? OFFSET ?
	`, slug, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var posts []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ChannelSlug, &p.MsgID, &p.DateISO, &p.Text); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}
