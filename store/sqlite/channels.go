package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kadantte/Kurumi-sub000/store"
)

func (s *Store) ListChannels(ctx context.Context) ([]store.FeedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel_id, guild_id, tags, mode, watermark, version FROM feed_channels ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("list feed channels: %w", err)
	}
	defer rows.Close()

	var out []store.FeedChannel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (s *Store) GetChannel(ctx context.Context, guildID, channelID string) (store.FeedChannel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, guild_id, tags, mode, watermark, version FROM feed_channels WHERE channel_id = ?`,
		channelID)
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return store.FeedChannel{}, store.ErrNotFound
	}
	if err != nil {
		return store.FeedChannel{}, err
	}
	if guildID != "" && ch.GuildID != guildID {
		return store.FeedChannel{}, store.ErrNotFound
	}
	return ch, nil
}

func (s *Store) PutChannel(ctx context.Context, ch store.FeedChannel) error {
	tags, err := json.Marshal(ch.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feed_channels (channel_id, guild_id, tags, mode, watermark, version)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (channel_id) DO UPDATE SET
			guild_id   = excluded.guild_id,
			tags       = excluded.tags,
			mode       = excluded.mode,
			watermark  = excluded.watermark,
			version    = feed_channels.version + 1,
			updated_at = CURRENT_TIMESTAMP`,
		ch.ChannelID, ch.GuildID, string(tags), string(ch.Mode), ch.Watermark)
	if err != nil {
		return fmt.Errorf("put feed channel %s: %w", ch.ChannelID, err)
	}
	return nil
}

// UpdateChannel commits ch only if no other writer bumped the version
// since ch was read.
func (s *Store) UpdateChannel(ctx context.Context, ch store.FeedChannel) error {
	tags, err := json.Marshal(ch.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE feed_channels
		SET guild_id = ?, tags = ?, mode = ?, watermark = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE channel_id = ? AND version = ?`,
		ch.GuildID, string(tags), string(ch.Mode), ch.Watermark, ch.ChannelID, ch.Version)
	if err != nil {
		return fmt.Errorf("update feed channel %s: %w", ch.ChannelID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update feed channel %s: %w", ch.ChannelID, err)
	}
	if n == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM feed_channels WHERE channel_id = ?`, ch.ChannelID).Scan(&exists); err != nil {
			return fmt.Errorf("update feed channel %s: %w", ch.ChannelID, err)
		}
		if exists == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	return nil
}

func (s *Store) RemoveChannel(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feed_channels WHERE channel_id = ?`, channelID)
	if err != nil {
		return fmt.Errorf("remove feed channel %s: %w", channelID, err)
	}
	return nil
}

func scanChannel(row interface{ Scan(...any) error }) (store.FeedChannel, error) {
	var ch store.FeedChannel
	var tags, mode string
	if err := row.Scan(&ch.ChannelID, &ch.GuildID, &tags, &mode, &ch.Watermark, &ch.Version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.FeedChannel{}, err
		}
		return store.FeedChannel{}, fmt.Errorf("scan feed channel: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &ch.Tags); err != nil {
		return store.FeedChannel{}, fmt.Errorf("decode tags for %s: %w", ch.ChannelID, err)
	}
	ch.Mode = store.WhitelistMode(mode)
	return ch, nil
}
