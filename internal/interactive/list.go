package interactive

import (
	"context"
	"sync"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/browse"
	"github.com/Kadantte/Kurumi-sub000/internal/trigger"
)

// ListMessage browses a lazy item sequence one entry per position. Moving
// forward past the cache pulls from the sequence; moving backward is
// cache-only. Boundary hits surface as a transient notice above the embed,
// and an empty first fetch renders the empty-list payload.
type ListMessage struct {
	msg *Message

	mu     sync.Mutex
	cursor *browse.Cursor[content.Item]
	notice string
	empty  bool
}

// ListConfig carries everything NewList needs; Renderer and Triggers of the
// inner Config are owned by the list itself.
type ListConfig struct {
	Base Config
	Seq  browse.Sequence[content.Item]
}

func NewList(cfg ListConfig) *ListMessage {
	l := &ListMessage{cursor: browse.NewCursor(cfg.Seq)}
	base := cfg.Base
	base.Renderer = l
	base.Triggers = func() []trigger.Trigger {
		return []trigger.Trigger{
			&pageTrigger{list: l, forward: false},
			&pageTrigger{list: l, forward: true},
			&deleteTrigger{msg: l.msg},
		}
	}
	l.msg = New(base)
	return l
}

// Message exposes the underlying interactive message for sending and
// registration.
func (l *ListMessage) Message() *Message { return l.msg }

// Send pulls the first element and posts the initial view. No loading
// indicator is shown on initial creation.
func (l *ListMessage) Send(ctx context.Context, channelID string) error {
	l.mu.Lock()
	ok, err := l.cursor.MoveNext(ctx)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.empty = !ok
	l.mu.Unlock()
	return l.msg.Send(ctx, channelID)
}

// Render is pure with respect to external state apart from reading the
// cursor position.
func (l *ListMessage) Render(ctx context.Context) (Payload, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.empty {
		return Payload{Content: text(textEmptyList)}, nil
	}
	it, ok := l.cursor.Current()
	if !ok {
		return Payload{Content: text(textEmptyList)}, nil
	}
	return Payload{Content: text(l.notice), Embed: ItemEmbed(it, false)}, nil
}

// move shifts the cursor and refreshes the view. Triggered only by live
// reactions, so the loading indicator is always appropriate here. A fetch
// error leaves the cursor unchanged and propagates to the caller.
func (l *ListMessage) move(ctx context.Context, forward bool) error {
	l.msg.Notify(ctx, textLoading)

	l.mu.Lock()
	if l.empty {
		l.mu.Unlock()
		return l.msg.Update(ctx)
	}
	var moved bool
	var err error
	if forward {
		moved, err = l.cursor.MoveNext(ctx)
	} else {
		moved = l.cursor.MovePrevious()
	}
	if err != nil {
		l.mu.Unlock()
		return err
	}
	if moved {
		l.notice = ""
	} else if forward {
		l.notice = textListEnd
	} else {
		l.notice = textListStart
	}
	l.mu.Unlock()

	return l.msg.Update(ctx)
}

// Close releases the cursor and its underlying sequence.
func (l *ListMessage) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor.Close()
}

// Position returns the current cursor index, for tests and logging.
func (l *ListMessage) Position() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor.Position()
}
