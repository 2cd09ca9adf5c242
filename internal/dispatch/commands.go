package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/interactive"
	"github.com/Kadantte/Kurumi-sub000/platform"
	"github.com/Kadantte/Kurumi-sub000/store"
)

const defaultPrefix = "!"

// updateAttempts bounds the optimistic-concurrency retry loop for feed
// subcommands racing the scheduler's watermark advance.
const updateAttempts = 5

// Commands executes the prefix command grammar. It claims every message
// that starts with the prefix, replying with usage when the verb is
// unknown, so prefixed typos never fall through to the link detector.
type Commands struct {
	prefix   string
	client   platform.Client
	sources  *content.Registry
	channels store.ChannelStore
	items    store.ItemStore
	manager  *interactive.Manager
	refresh  time.Duration
	logger   *slog.Logger
}

type CommandsConfig struct {
	// Prefix marks command messages; defaults to "!".
	Prefix   string
	Client   platform.Client
	Sources  *content.Registry
	Channels store.ChannelStore
	Items    store.ItemStore
	Manager  *interactive.Manager
	// RefreshInterval is forwarded to the interactive messages commands
	// create.
	RefreshInterval time.Duration
	Logger          *slog.Logger
}

func NewCommands(cfg CommandsConfig) *Commands {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		prefix:   prefix,
		client:   cfg.Client,
		sources:  cfg.Sources,
		channels: cfg.Channels,
		items:    cfg.Items,
		manager:  cfg.Manager,
		refresh:  cfg.RefreshInterval,
		logger:   logger,
	}
}

func (c *Commands) HandleMessage(ctx context.Context, ev platform.MessageEvent) (bool, error) {
	if ev.Kind != platform.MessageCreated {
		return false, nil
	}
	body := strings.TrimSpace(ev.Message.Content)
	if !strings.HasPrefix(body, c.prefix) {
		return false, nil
	}
	args := strings.Fields(strings.TrimPrefix(body, c.prefix))
	if len(args) == 0 {
		return false, nil
	}
	verb, rest := strings.ToLower(args[0]), args[1:]
	c.logger.Debug("command_received", "verb", verb, "channel_id", ev.Message.Ref.ChannelID, "user_id", ev.Message.AuthorID)

	switch verb {
	case "help":
		return true, c.help(ctx, ev.Message.Ref.ChannelID)
	case "get":
		return true, c.get(ctx, ev.Message.Ref.ChannelID, rest)
	case "search":
		return true, c.search(ctx, ev.Message.Ref.ChannelID, rest)
	case "feed":
		return true, c.feed(ctx, ev.Message, rest)
	default:
		return true, c.reply(ctx, ev.Message.Ref.ChannelID, c.usage())
	}
}

func (c *Commands) usage() string {
	return fmt.Sprintf(
		"commands: %[1]sget <source> <id> | %[1]ssearch <source> <terms...> | %[1]sfeed add <tags...> | %[1]sfeed mode any|all | %[1]sfeed remove | %[1]shelp",
		c.prefix)
}

func (c *Commands) help(ctx context.Context, channelID string) error {
	lines := []string{
		c.usage(),
		"sources: " + strings.Join(c.sources.Names(), ", "),
	}
	return c.reply(ctx, channelID, strings.Join(lines, "\n"))
}

func (c *Commands) get(ctx context.Context, channelID string, args []string) error {
	if len(args) != 2 {
		return c.reply(ctx, channelID, fmt.Sprintf("usage: %sget <source> <id>", c.prefix))
	}
	src, ok := c.sources.Get(args[0])
	if !ok {
		return c.reply(ctx, channelID, "unknown source: "+args[0]+" (try "+strings.Join(c.sources.Names(), ", ")+")")
	}
	it, err := src.Get(ctx, args[1])
	if err != nil {
		return fmt.Errorf("get %s/%s: %w", src.Name(), args[1], err)
	}
	if it == nil {
		return c.reply(ctx, channelID, fmt.Sprintf("no entry %s/%s", src.Name(), args[1]))
	}
	return c.sendItem(ctx, channelID, *it)
}

func (c *Commands) search(ctx context.Context, channelID string, args []string) error {
	if len(args) < 2 {
		return c.reply(ctx, channelID, fmt.Sprintf("usage: %ssearch <source> <terms...>", c.prefix))
	}
	src, ok := c.sources.Get(args[0])
	if !ok {
		return c.reply(ctx, channelID, "unknown source: "+args[0])
	}
	query := strings.Join(args[1:], " ")
	list := interactive.NewList(interactive.ListConfig{
		Base: interactive.Config{Client: c.client, RefreshInterval: c.refresh, Logger: c.logger},
		Seq:  src.Search(ctx, query),
	})
	if err := c.manager.Send(ctx, list.Message(), channelID, interactive.SendOptions{}); err != nil {
		return fmt.Errorf("search %s %q: %w", src.Name(), query, err)
	}
	return nil
}

func (c *Commands) feed(ctx context.Context, msg platform.Message, args []string) error {
	if len(args) == 0 {
		return c.reply(ctx, msg.Ref.ChannelID, fmt.Sprintf("usage: %sfeed add <tags...> | mode any|all | remove", c.prefix))
	}
	switch strings.ToLower(args[0]) {
	case "add":
		return c.feedAdd(ctx, msg, args[1:])
	case "mode":
		return c.feedMode(ctx, msg, args[1:])
	case "remove":
		return c.feedRemove(ctx, msg)
	default:
		return c.reply(ctx, msg.Ref.ChannelID, fmt.Sprintf("usage: %sfeed add <tags...> | mode any|all | remove", c.prefix))
	}
}

// feedAdd creates the channel's registration, or replaces its whitelist if
// one exists. New registrations start their watermark at the current end
// of the processed sequence so enabling a feed never replays the backlog.
func (c *Commands) feedAdd(ctx context.Context, msg platform.Message, args []string) error {
	tags := normalizeTags(args)
	if len(tags) == 0 {
		return c.reply(ctx, msg.Ref.ChannelID, fmt.Sprintf("usage: %sfeed add <tags...>", c.prefix))
	}
	channelID := msg.Ref.ChannelID
	for attempt := 0; attempt < updateAttempts; attempt++ {
		ch, err := c.channels.GetChannel(ctx, msg.GuildID, channelID)
		if errors.Is(err, store.ErrNotFound) {
			last, err := c.items.LastSeq(ctx)
			if err != nil {
				return fmt.Errorf("read last processed sequence: %w", err)
			}
			ch = store.FeedChannel{
				ChannelID: channelID,
				GuildID:   msg.GuildID,
				Tags:      tags,
				Mode:      store.MatchAny,
				Watermark: last,
			}
			if err := c.channels.PutChannel(ctx, ch); err != nil {
				return fmt.Errorf("create feed registration: %w", err)
			}
			return c.reply(ctx, channelID, "feed enabled for tags: "+strings.Join(tags, ", "))
		}
		if err != nil {
			return fmt.Errorf("load feed registration: %w", err)
		}
		ch.Tags = tags
		err = c.channels.UpdateChannel(ctx, ch)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update feed registration: %w", err)
		}
		return c.reply(ctx, channelID, "feed tags set to: "+strings.Join(tags, ", "))
	}
	return fmt.Errorf("update feed registration: %w", store.ErrConflict)
}

func (c *Commands) feedMode(ctx context.Context, msg platform.Message, args []string) error {
	channelID := msg.Ref.ChannelID
	if len(args) != 1 {
		return c.reply(ctx, channelID, fmt.Sprintf("usage: %sfeed mode any|all", c.prefix))
	}
	mode, err := store.ParseWhitelistMode(args[0])
	if err != nil {
		return c.reply(ctx, channelID, err.Error())
	}
	for attempt := 0; attempt < updateAttempts; attempt++ {
		ch, err := c.channels.GetChannel(ctx, msg.GuildID, channelID)
		if errors.Is(err, store.ErrNotFound) {
			return c.reply(ctx, channelID, fmt.Sprintf("no feed is configured here; use %sfeed add first", c.prefix))
		}
		if err != nil {
			return fmt.Errorf("load feed registration: %w", err)
		}
		ch.Mode = mode
		err = c.channels.UpdateChannel(ctx, ch)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update feed registration: %w", err)
		}
		return c.reply(ctx, channelID, "feed mode set to "+string(mode))
	}
	return fmt.Errorf("update feed registration: %w", store.ErrConflict)
}

func (c *Commands) feedRemove(ctx context.Context, msg platform.Message) error {
	if err := c.channels.RemoveChannel(ctx, msg.Ref.ChannelID); err != nil {
		return fmt.Errorf("remove feed registration: %w", err)
	}
	return c.reply(ctx, msg.Ref.ChannelID, "feed disabled")
}

func (c *Commands) sendItem(ctx context.Context, channelID string, it content.Item) error {
	im := interactive.NewItem(interactive.ItemConfig{
		Base:    interactive.Config{Client: c.client, RefreshInterval: c.refresh, Logger: c.logger},
		Item:    it,
		Sources: c.sources,
	})
	return c.manager.Send(ctx, im.Message(), channelID, interactive.SendOptions{StatelessOnly: true})
}

func (c *Commands) reply(ctx context.Context, channelID, text string) error {
	_, err := c.client.Send(ctx, platform.SendRequest{ChannelID: channelID, Content: text})
	if err != nil {
		return fmt.Errorf("command reply: %w", err)
	}
	return nil
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
