// Package store defines the datastore contracts the core depends on:
// per-channel feed registrations with optimistic concurrency, and the
// processed-ordered item index the feed scheduler polls.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/Kadantte/Kurumi-sub000/content"
)

// ErrConflict signals an optimistic-concurrency failure: the registration
// changed under the writer, which must reload and retry.
var ErrConflict = errors.New("conflicting concurrent write")

var ErrNotFound = errors.New("not found")

// WhitelistMode selects the tag-matching policy of a feed channel.
type WhitelistMode string

const (
	MatchAny WhitelistMode = "any"
	MatchAll WhitelistMode = "all"
)

func ParseWhitelistMode(s string) (WhitelistMode, error) {
	switch WhitelistMode(strings.ToLower(strings.TrimSpace(s))) {
	case MatchAny:
		return MatchAny, nil
	case MatchAll:
		return MatchAll, nil
	default:
		return "", errors.New("whitelist mode must be any|all")
	}
}

// FeedChannel is one channel's subscription registration. The feed
// scheduler reads and advances Watermark; it never creates registrations.
// Version backs optimistic concurrency in UpdateChannel.
type FeedChannel struct {
	ChannelID string
	GuildID   string
	Tags      []string
	Mode      WhitelistMode
	Watermark int64
	Version   int64
}

// Matches applies the whitelist to an item's tags. ANY requires at least
// one whitelisted tag on the item; ALL requires every whitelisted tag. An
// empty whitelist never matches: it is a misconfiguration the scheduler
// deregisters, not a match-everything wildcard.
func (c FeedChannel) Matches(it content.Item) bool {
	if len(c.Tags) == 0 {
		return false
	}
	switch c.Mode {
	case MatchAll:
		for _, tag := range c.Tags {
			if !it.HasTag(tag) {
				return false
			}
		}
		return true
	default:
		for _, tag := range c.Tags {
			if it.HasTag(tag) {
				return true
			}
		}
		return false
	}
}

type ChannelStore interface {
	ListChannels(ctx context.Context) ([]FeedChannel, error)
	GetChannel(ctx context.Context, guildID, channelID string) (FeedChannel, error)
	PutChannel(ctx context.Context, ch FeedChannel) error
	// UpdateChannel persists ch if its Version still matches the stored
	// row, bumping the version; otherwise it returns ErrConflict.
	UpdateChannel(ctx context.Context, ch FeedChannel) error
	RemoveChannel(ctx context.Context, channelID string) error
}

type ItemStore interface {
	// UpsertItem stores the item and returns its processed sequence. A new
	// (source, id) pair gets the next sequence; re-upserts refresh the
	// mutable fields but keep the original sequence, so upstream edits
	// never re-enter feed dispatch.
	UpsertItem(ctx context.Context, it content.Item) (int64, error)
	// ListAfter returns up to limit items with Seq strictly greater than
	// seq, in ascending processed order.
	ListAfter(ctx context.Context, seq int64, limit int) ([]content.Item, error)
	GetItem(ctx context.Context, source, id string) (*content.Item, error)
	// LastSeq returns the highest processed sequence assigned so far, 0 when
	// the store is empty. New feed registrations start their watermark here
	// so enabling a feed never replays the backlog.
	LastSeq(ctx context.Context) (int64, error)
}
