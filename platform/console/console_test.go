package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

func TestSendEditDeleteRoundTrip(t *testing.T) {
	var out bytes.Buffer
	c := New(Config{In: strings.NewReader(""), Out: &out})
	ctx := context.Background()

	ref, err := c.Send(ctx, platform.SendRequest{
		ChannelID: "console",
		Content:   "hello",
		Embed:     &platform.Embed{Title: "an entry", Footer: "src/1"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.Contains(out.String(), "(m1) hello") || !strings.Contains(out.String(), "an entry") {
		t.Fatalf("send output = %q, want id, content and embed title", out.String())
	}

	note := "loading"
	if err := c.Edit(ctx, ref, platform.Patch{Content: &note}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	msg, err := c.Message(ctx, ref)
	if err != nil {
		t.Fatalf("Message() error = %v", err)
	}
	if msg.Content != "loading" || len(msg.Embeds) != 1 {
		t.Fatalf("message after content-only edit = %+v, want new content, embed kept", msg)
	}

	if err := c.Delete(ctx, ref); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := c.Delete(ctx, ref); !platform.IsUnknownMessage(err) {
		t.Fatalf("second Delete() error = %v, want ErrUnknownMessage", err)
	}
}

func TestRunSynthesizesEvents(t *testing.T) {
	var out bytes.Buffer
	input := "hello bot\n/react m1 ▶\n/del m1\n"
	c := New(Config{In: strings.NewReader(input), Out: &out, UserID: "alice"})
	ctx := context.Background()

	if _, err := c.Send(ctx, platform.SendRequest{ChannelID: "console", Content: "posted"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	var messages []platform.MessageEvent
	var reactions []platform.ReactionEvent
	c.Handle(
		func(ctx context.Context, ev platform.MessageEvent) { messages = append(messages, ev) },
		func(ctx context.Context, ev platform.ReactionEvent) { reactions = append(reactions, ev) },
	)
	if err := c.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("message events = %d, want 2 (created + deleted)", len(messages))
	}
	if messages[0].Kind != platform.MessageCreated || messages[0].Message.AuthorID != "alice" {
		t.Fatalf("first event = %+v, want created by alice", messages[0])
	}
	if messages[1].Kind != platform.MessageDeleted || messages[1].Message.Ref.MessageID != "m1" {
		t.Fatalf("second event = %+v, want deletion of m1", messages[1])
	}

	if len(reactions) != 1 || reactions[0].Emoji != "▶" || reactions[0].UserID != "alice" {
		t.Fatalf("reaction events = %+v, want one ▶ by alice", reactions)
	}
	users, err := c.Reactors(ctx, platform.MessageRef{ChannelID: "console", MessageID: "u2"}, "▶")
	if err == nil && len(users) != 0 {
		t.Fatalf("unexpected reactors on user message: %v", users)
	}
}
