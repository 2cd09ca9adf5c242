package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "kurumi.sqlite")
	s, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestChannelRoundTripAndVersioning(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetChannel(ctx, "g", "chan"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetChannel() on empty table error = %v, want ErrNotFound", err)
	}

	err := s.PutChannel(ctx, store.FeedChannel{
		ChannelID: "chan", GuildID: "g", Tags: []string{"glasses", "office"}, Mode: store.MatchAny,
	})
	if err != nil {
		t.Fatalf("PutChannel() error = %v", err)
	}

	ch, err := s.GetChannel(ctx, "g", "chan")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if len(ch.Tags) != 2 || ch.Tags[0] != "glasses" || ch.Mode != store.MatchAny || ch.Version != 1 {
		t.Fatalf("GetChannel() = %+v, want tags [glasses office], mode any, version 1", ch)
	}
	if _, err := s.GetChannel(ctx, "other-guild", "chan"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetChannel() with wrong guild error = %v, want ErrNotFound", err)
	}

	ch.Watermark = 42
	if err := s.UpdateChannel(ctx, ch); err != nil {
		t.Fatalf("UpdateChannel() error = %v", err)
	}

	// The stale copy still carries version 1; its write must conflict.
	stale := ch
	stale.Watermark = 7
	if err := s.UpdateChannel(ctx, stale); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("UpdateChannel() with stale version error = %v, want ErrConflict", err)
	}

	fresh, _ := s.GetChannel(ctx, "g", "chan")
	if fresh.Watermark != 42 || fresh.Version != 2 {
		t.Fatalf("after conflict: watermark = %d version = %d, want 42, 2", fresh.Watermark, fresh.Version)
	}

	missing := fresh
	missing.ChannelID = "ghost"
	if err := s.UpdateChannel(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateChannel() on missing row error = %v, want ErrNotFound", err)
	}

	if err := s.RemoveChannel(ctx, "chan"); err != nil {
		t.Fatalf("RemoveChannel() error = %v", err)
	}
	channels, err := s.ListChannels(ctx)
	if err != nil || len(channels) != 0 {
		t.Fatalf("ListChannels() after remove = %v, %v, want empty", channels, err)
	}
}

func TestUpsertItemKeepsSequenceOnReupsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertItem(ctx, content.Item{Source: "nh", ID: "42", Title: "v1", Tags: []string{"glasses"}})
	if err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}
	second, err := s.UpsertItem(ctx, content.Item{Source: "nh", ID: "43", Title: "other"})
	if err != nil {
		t.Fatalf("UpsertItem() error = %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("assigned sequences = %d, %d, want 1, 2", first, second)
	}

	again, err := s.UpsertItem(ctx, content.Item{Source: "nh", ID: "42", Title: "v2 retitled"})
	if err != nil {
		t.Fatalf("UpsertItem() re-upsert error = %v", err)
	}
	if again != first {
		t.Fatalf("re-upsert sequence = %d, want original %d", again, first)
	}

	it, err := s.GetItem(ctx, "nh", "42")
	if err != nil || it == nil {
		t.Fatalf("GetItem() = %v, %v", it, err)
	}
	if it.Title != "v2 retitled" || it.Seq != first {
		t.Fatalf("GetItem() = %+v, want refreshed title, original seq", it)
	}

	if missing, err := s.GetItem(ctx, "nh", "99"); err != nil || missing != nil {
		t.Fatalf("GetItem() missing = %v, %v, want nil, nil", missing, err)
	}
}

func TestListAfterAndLastSeq(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if last, err := s.LastSeq(ctx); err != nil || last != 0 {
		t.Fatalf("LastSeq() on empty store = %d, %v, want 0, nil", last, err)
	}

	posted := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"a", "b", "c", "d"} {
		if _, err := s.UpsertItem(ctx, content.Item{Source: "nh", ID: id, PostedAt: posted}); err != nil {
			t.Fatalf("UpsertItem(%s) error = %v", id, err)
		}
	}

	page, err := s.ListAfter(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListAfter() error = %v", err)
	}
	if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 {
		t.Fatalf("ListAfter(1, 2) = %+v, want seqs 2, 3", page)
	}
	if !page[0].PostedAt.Equal(posted) {
		t.Fatalf("PostedAt = %v, want %v", page[0].PostedAt, posted)
	}

	rest, err := s.ListAfter(ctx, 4, 10)
	if err != nil || len(rest) != 0 {
		t.Fatalf("ListAfter(4, 10) = %v, %v, want empty", rest, err)
	}

	if last, err := s.LastSeq(ctx); err != nil || last != 4 {
		t.Fatalf("LastSeq() = %d, %v, want 4, nil", last, err)
	}
}
