package interactive

import (
	"context"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/trigger"
)

type itemRenderer struct {
	item       content.Item
	feedMarked bool
}

func (r itemRenderer) Render(ctx context.Context) (Payload, error) {
	return Payload{Content: text(""), Embed: ItemEmbed(r.item, r.feedMarked)}, nil
}

// ItemMessage shows a single content entry. Both of its triggers are
// stateless-capable, so item messages survive manager expiry: the delete
// and save controls keep working off the rendered embed alone.
type ItemMessage struct {
	msg *Message
}

type ItemConfig struct {
	Base       Config
	Item       content.Item
	FeedMarked bool
	// Sources lets the save control re-derive the item when it runs
	// detached from this message.
	Sources *content.Registry
}

func NewItem(cfg ItemConfig) *ItemMessage {
	im := &ItemMessage{}
	base := cfg.Base
	client := base.Client
	base.Renderer = itemRenderer{item: cfg.Item, feedMarked: cfg.FeedMarked}
	base.Triggers = func() []trigger.Trigger {
		return []trigger.Trigger{
			&detachedDelete{client: client},
			&detachedSave{client: client, sources: cfg.Sources},
		}
	}
	im.msg = New(base)
	return im
}

func (im *ItemMessage) Message() *Message { return im.msg }

func (im *ItemMessage) Send(ctx context.Context, channelID string) error {
	return im.msg.Send(ctx, channelID)
}
