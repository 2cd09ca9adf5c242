package interactive

import (
	"context"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

// pageTrigger moves a list message one position. It needs the live cursor,
// so it is never stateless-capable: once the owning message expires from
// the manager, pagination stops working.
type pageTrigger struct {
	list    *ListMessage
	forward bool
}

func (t *pageTrigger) Emoji() string {
	if t.forward {
		return EmojiNext
	}
	return EmojiPrev
}

func (t *pageTrigger) Run(ctx context.Context, ev platform.ReactionEvent) error {
	return t.list.move(ctx, t.forward)
}

// deleteTrigger removes the owning message while it is still live. The
// detached variant in stateless.go covers the expired case.
type deleteTrigger struct {
	msg *Message
}

func (t *deleteTrigger) Emoji() string { return EmojiDelete }

func (t *deleteTrigger) StatelessCapable() bool { return true }

func (t *deleteTrigger) Run(ctx context.Context, ev platform.ReactionEvent) error {
	return t.msg.Delete(ctx)
}
