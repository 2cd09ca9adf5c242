package interactive

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/browse"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

func TestListMessageEmptyFirstFetch(t *testing.T) {
	client := newFakeClient()
	list := NewList(ListConfig{
		Base: Config{Client: client, RefreshInterval: 10 * time.Millisecond},
		Seq:  browse.FromSlice([]content.Item{}),
	})
	if err := list.Send(context.Background(), "chan"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(client.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(client.sent))
	}
	if got := client.sent[0].Content; got != textEmptyList {
		t.Fatalf("initial content = %q, want %q", got, textEmptyList)
	}
	if client.sent[0].Embed != nil {
		t.Fatalf("empty list rendered an embed")
	}
}

func TestListMessageBoundaryNotices(t *testing.T) {
	client := newFakeClient()
	list := NewList(ListConfig{
		Base: Config{Client: client, RefreshInterval: 5 * time.Millisecond},
		Seq:  browse.FromSlice(items(2)),
	})
	ctx := context.Background()
	if err := list.Send(ctx, "chan"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// Backward at the origin.
	if err := list.move(ctx, false); err != nil {
		t.Fatalf("move(prev) error = %v", err)
	}
	payload, err := list.Render(ctx)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if payload.Content == nil || *payload.Content != textListStart {
		t.Fatalf("notice after origin hit = %v, want %q", payload.Content, textListStart)
	}

	// A successful move clears the notice.
	if err := list.move(ctx, true); err != nil {
		t.Fatalf("move(next) error = %v", err)
	}
	payload, _ = list.Render(ctx)
	if payload.Content == nil || *payload.Content != "" {
		t.Fatalf("notice not cleared after successful move: %v", payload.Content)
	}

	// Forward past the end.
	if err := list.move(ctx, true); err != nil {
		t.Fatalf("move(next) error = %v", err)
	}
	payload, _ = list.Render(ctx)
	if payload.Content == nil || *payload.Content != textListEnd {
		t.Fatalf("notice after end hit = %v, want %q", payload.Content, textListEnd)
	}
	if payload.Embed == nil || payload.Embed.Title != "item 2" {
		t.Fatalf("boundary notice lost the current item embed: %+v", payload.Embed)
	}
}

func TestListMessageFetchErrorPropagatesAndKeepsCursor(t *testing.T) {
	client := newFakeClient()
	calls := 0
	seq := browse.Func(func(ctx context.Context) (content.Item, bool, error) {
		calls++
		if calls > 1 {
			return content.Item{}, false, errors.New("source timeout")
		}
		return content.Item{Source: "src", ID: "1", Title: "only"}, true, nil
	}, nil)
	list := NewList(ListConfig{
		Base: Config{Client: client, RefreshInterval: 5 * time.Millisecond},
		Seq:  seq,
	})
	ctx := context.Background()
	if err := list.Send(ctx, "chan"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	err := list.move(ctx, true)
	if err == nil || !strings.Contains(err.Error(), "source timeout") {
		t.Fatalf("move() error = %v, want source timeout", err)
	}
	if list.Position() != 0 {
		t.Fatalf("Position() after failed fetch = %d, want 0", list.Position())
	}
}

func TestItemRefRoundTrip(t *testing.T) {
	it := content.Item{Source: "src", ID: "42", Title: "t", Tags: []string{"a"}}
	embed := ItemEmbed(it, true)
	msg := &platform.Message{Embeds: []platform.Embed{*embed}}

	source, id, ok := itemRefFromMessage(msg)
	if !ok || source != "src" || id != "42" {
		t.Fatalf("itemRefFromMessage() = %q, %q, %v, want src, 42, true", source, id, ok)
	}
	if !strings.Contains(embed.Footer, textFeedMarker) {
		t.Fatalf("feed-marked footer = %q, want marker", embed.Footer)
	}

	if _, _, ok := itemRefFromMessage(&platform.Message{}); ok {
		t.Fatalf("itemRefFromMessage() on embedless message = true, want false")
	}
}
