package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/interactive"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// ItemDispatcher posts feed items through the interactive-message path, so
// a feed post and a manually fetched item are visually identical apart
// from the feed marker. Feed messages carry only stateless controls and
// are never tracked, keeping long feed backlogs out of the manager.
type ItemDispatcher struct {
	client  platform.Client
	manager *interactive.Manager
	sources *content.Registry
	refresh time.Duration
	logger  *slog.Logger
}

type ItemDispatcherConfig struct {
	Client          platform.Client
	Manager         *interactive.Manager
	Sources         *content.Registry
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

func NewItemDispatcher(cfg ItemDispatcherConfig) *ItemDispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemDispatcher{
		client:  cfg.Client,
		manager: cfg.Manager,
		sources: cfg.Sources,
		refresh: cfg.RefreshInterval,
		logger:  logger,
	}
}

func (d *ItemDispatcher) SendFeedItem(ctx context.Context, channelID string, it content.Item) error {
	im := interactive.NewItem(interactive.ItemConfig{
		Base:       interactive.Config{Client: d.client, RefreshInterval: d.refresh, Logger: d.logger},
		Item:       it,
		FeedMarked: true,
		Sources:    d.sources,
	})
	return d.manager.Send(ctx, im.Message(), channelID, interactive.SendOptions{StatelessOnly: true})
}
