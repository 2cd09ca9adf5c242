package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/interactive"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// LinkDetector answers ordinary messages containing a recognizable source
// item URL with the interactive item view. It runs after the command
// executor, so prefixed messages never reach it.
type LinkDetector struct {
	client  platform.Client
	sources *content.Registry
	manager *interactive.Manager
	refresh time.Duration
	logger  *slog.Logger
}

type LinkDetectorConfig struct {
	Client          platform.Client
	Sources         *content.Registry
	Manager         *interactive.Manager
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

func NewLinkDetector(cfg LinkDetectorConfig) *LinkDetector {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkDetector{
		client:  cfg.Client,
		sources: cfg.Sources,
		manager: cfg.Manager,
		refresh: cfg.RefreshInterval,
		logger:  logger,
	}
}

// HandleMessage claims the event on the first token that matches a
// source's URL shape, whether or not the item is still fetchable: a
// recognized link that resolves to nothing gets no reply, not a fall
// through to later handlers.
func (d *LinkDetector) HandleMessage(ctx context.Context, ev platform.MessageEvent) (bool, error) {
	if ev.Kind != platform.MessageCreated {
		return false, nil
	}
	for _, token := range strings.Fields(ev.Message.Content) {
		if !strings.Contains(token, "://") {
			continue
		}
		src, id, ok := d.sources.MatchURL(token)
		if !ok {
			continue
		}
		d.logger.Debug("link_detected", "source", src.Name(), "item_id", id, "channel_id", ev.Message.Ref.ChannelID)
		it, err := src.Get(ctx, id)
		if err != nil {
			return true, fmt.Errorf("resolve linked %s/%s: %w", src.Name(), id, err)
		}
		if it == nil {
			return true, nil
		}
		im := interactive.NewItem(interactive.ItemConfig{
			Base:    interactive.Config{Client: d.client, RefreshInterval: d.refresh, Logger: d.logger},
			Item:    *it,
			Sources: d.sources,
		})
		return true, d.manager.Send(ctx, im.Message(), ev.Message.Ref.ChannelID, interactive.SendOptions{StatelessOnly: true})
	}
	return false, nil
}
