package interactive

import (
	"context"
	"fmt"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/trigger"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// detachedDelete deletes the reacted-to message. Pure function of the
// reaction event; works with no in-memory message state.
type detachedDelete struct {
	client platform.Client
}

func (t *detachedDelete) Emoji() string { return EmojiDelete }

func (t *detachedDelete) StatelessCapable() bool { return true }

func (t *detachedDelete) Run(ctx context.Context, ev platform.ReactionEvent) error {
	err := t.client.Delete(ctx, ev.Ref)
	if platform.IsUnknownMessage(err) {
		return nil
	}
	return err
}

// detachedSave re-renders the reacted-to item as a direct-message copy for
// the reacting user. The subject item is re-derived from the rendered
// message content, so the control outlives manager expiry.
type detachedSave struct {
	client  platform.Client
	sources *content.Registry
}

func (t *detachedSave) Emoji() string { return EmojiSave }

func (t *detachedSave) StatelessCapable() bool { return true }

func (t *detachedSave) Run(ctx context.Context, ev platform.ReactionEvent) error {
	msg, err := t.client.Message(ctx, ev.Ref)
	if err != nil {
		if platform.IsUnknownMessage(err) {
			return nil
		}
		return fmt.Errorf("fetch reacted message: %w", err)
	}
	sourceName, id, ok := itemRefFromMessage(msg)
	if !ok {
		return nil
	}
	src, ok := t.sources.Get(sourceName)
	if !ok {
		return nil
	}
	it, err := src.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch %s/%s: %w", sourceName, id, err)
	}
	if it == nil {
		return nil
	}
	_, err = t.client.SendDirect(ctx, ev.UserID, platform.SendRequest{Embed: ItemEmbed(*it, false)})
	return err
}

// NewStatelessTable assembles the process-wide emoji→constructor table at
// startup from the fixed list of detached trigger types.
func NewStatelessTable(client platform.Client, sources *content.Registry) (*trigger.Table, error) {
	table := trigger.NewTable()
	if err := table.Register(EmojiDelete, func() trigger.Trigger {
		return &detachedDelete{client: client}
	}); err != nil {
		return nil, err
	}
	if err := table.Register(EmojiSave, func() trigger.Trigger {
		return &detachedSave{client: client, sources: sources}
	}); err != nil {
		return nil, err
	}
	return table, nil
}
