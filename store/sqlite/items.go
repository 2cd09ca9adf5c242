package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
)

// UpsertItem inserts the item or refreshes its mutable fields, keeping the
// originally assigned sequence so an upstream edit never re-enters feed
// dispatch.
func (s *Store) UpsertItem(ctx context.Context, it content.Item) (int64, error) {
	tags, err := json.Marshal(it.Tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}
	var postedAt any
	if !it.PostedAt.IsZero() {
		postedAt = it.PostedAt.UTC()
	}
	var seq int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO items (source, source_id, title, author, url, thumb, tags, posted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title     = excluded.title,
			author    = excluded.author,
			url       = excluded.url,
			thumb     = excluded.thumb,
			tags      = excluded.tags,
			posted_at = excluded.posted_at
		RETURNING seq`,
		it.Source, it.ID, it.Title, it.Author, it.URL, it.Thumb, string(tags), postedAt).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("upsert item %s: %w", it.Key(), err)
	}
	return seq, nil
}

func (s *Store) ListAfter(ctx context.Context, seq int64, limit int) ([]content.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, source, source_id, title, author, url, thumb, tags, posted_at
		FROM items WHERE seq > ? ORDER BY seq ASC LIMIT ?`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("list items after %d: %w", seq, err)
	}
	defer rows.Close()

	var out []content.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) GetItem(ctx context.Context, source, id string) (*content.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, source, source_id, title, author, url, thumb, tags, posted_at
		FROM items WHERE source = ? AND source_id = ?`, source, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM items`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last item sequence: %w", err)
	}
	return seq.Int64, nil
}

func scanItem(row interface{ Scan(...any) error }) (content.Item, error) {
	var it content.Item
	var tags string
	var postedAt sql.NullTime
	err := row.Scan(&it.Seq, &it.Source, &it.ID, &it.Title, &it.Author, &it.URL, &it.Thumb, &tags, &postedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return content.Item{}, err
		}
		return content.Item{}, fmt.Errorf("scan item: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
		return content.Item{}, fmt.Errorf("decode tags for %s: %w", it.Key(), err)
	}
	if postedAt.Valid {
		it.PostedAt = postedAt.Time.UTC()
	} else {
		it.PostedAt = time.Time{}
	}
	return it, nil
}
