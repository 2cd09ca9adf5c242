// Package console implements the platform boundary over stdio for local
// runs. Outbound messages print to stdout with short IDs; input lines
// become message events, and the /react and /del commands synthesize
// reaction and deletion events against those IDs.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

const (
	botID     = "kurumi"
	channelID = "console"
)

type Client struct {
	in     io.Reader
	out    io.Writer
	userID string
	logger *slog.Logger

	onMessage  func(context.Context, platform.MessageEvent)
	onReaction func(context.Context, platform.ReactionEvent)

	mu       sync.Mutex
	nextID   int
	messages map[string]*platform.Message
	reactors map[string][]string // messageID+emoji -> user IDs
}

type Config struct {
	// In and Out default to stdin and stdout.
	In  io.Reader
	Out io.Writer
	// UserID is the identity typed input is attributed to; defaults to
	// "you".
	UserID string
	Logger *slog.Logger
}

func New(cfg Config) *Client {
	in := cfg.In
	if in == nil {
		in = os.Stdin
	}
	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	userID := cfg.UserID
	if userID == "" {
		userID = "you"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		in:       in,
		out:      out,
		userID:   userID,
		logger:   logger,
		messages: make(map[string]*platform.Message),
		reactors: make(map[string][]string),
	}
}

// Handle registers the event callbacks, normally the dispatch pipeline's
// entry points. Must be called before Run.
func (c *Client) Handle(onMessage func(context.Context, platform.MessageEvent), onReaction func(context.Context, platform.ReactionEvent)) {
	c.onMessage = onMessage
	c.onReaction = onReaction
}

func (c *Client) Me() string { return botID }

func (c *Client) Send(ctx context.Context, req platform.SendRequest) (platform.MessageRef, error) {
	c.mu.Lock()
	c.nextID++
	ref := platform.MessageRef{ChannelID: req.ChannelID, MessageID: fmt.Sprintf("m%d", c.nextID)}
	msg := &platform.Message{
		Ref:         ref,
		AuthorID:    botID,
		AuthorIsBot: true,
		Content:     req.Content,
		SentAt:      time.Now(),
	}
	if req.Embed != nil {
		msg.Embeds = []platform.Embed{*req.Embed}
	}
	c.messages[ref.MessageID] = msg
	c.mu.Unlock()

	c.print(ref.MessageID, req.Content, req.Embed)
	return ref, nil
}

func (c *Client) SendDirect(ctx context.Context, userID string, req platform.SendRequest) (platform.MessageRef, error) {
	req.ChannelID = "dm:" + userID
	return c.Send(ctx, req)
}

func (c *Client) Edit(ctx context.Context, ref platform.MessageRef, patch platform.Patch) error {
	c.mu.Lock()
	msg, ok := c.messages[ref.MessageID]
	if !ok {
		c.mu.Unlock()
		return platform.ErrUnknownMessage
	}
	if patch.Content != nil {
		msg.Content = *patch.Content
	}
	var embed *platform.Embed
	if patch.Embed != nil {
		msg.Embeds = []platform.Embed{*patch.Embed}
	}
	if len(msg.Embeds) > 0 {
		cp := msg.Embeds[0]
		embed = &cp
	}
	content := msg.Content
	c.mu.Unlock()

	c.print(ref.MessageID+"*", content, embed)
	return nil
}

func (c *Client) Delete(ctx context.Context, ref platform.MessageRef) error {
	c.mu.Lock()
	_, ok := c.messages[ref.MessageID]
	delete(c.messages, ref.MessageID)
	c.mu.Unlock()
	if !ok {
		return platform.ErrUnknownMessage
	}
	fmt.Fprintf(c.out, "[%s] (%s) deleted\n", channelID, ref.MessageID)
	return nil
}

func (c *Client) React(ctx context.Context, ref platform.MessageRef, emoji string) error {
	c.addReactor(ref.MessageID, emoji, botID)
	fmt.Fprintf(c.out, "[%s] (%s) + %s\n", channelID, ref.MessageID, emoji)
	return nil
}

func (c *Client) Reactors(ctx context.Context, ref platform.MessageRef, emoji string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messages[ref.MessageID]; !ok {
		return nil, platform.ErrUnknownMessage
	}
	return append([]string(nil), c.reactors[ref.MessageID+emoji]...), nil
}

func (c *Client) Message(ctx context.Context, ref platform.MessageRef) (*platform.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.messages[ref.MessageID]
	if !ok {
		return nil, platform.ErrUnknownMessage
	}
	cp := *msg
	return &cp, nil
}

// Run reads input lines until EOF or cancellation. Plain lines become
// user message events; "/react <id> <emoji>" and "/del <id>" synthesize
// the corresponding platform events.
func (c *Client) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		c.handleLine(ctx, line)
	}
	return scanner.Err()
}

func (c *Client) handleLine(ctx context.Context, line string) {
	fields := strings.Fields(line)
	switch {
	case fields[0] == "/react" && len(fields) == 3:
		c.addReactor(fields[1], fields[2], c.userID)
		if c.onReaction != nil {
			c.onReaction(ctx, platform.ReactionEvent{
				Ref:    platform.MessageRef{ChannelID: channelID, MessageID: fields[1]},
				UserID: c.userID,
				Emoji:  fields[2],
				Added:  true,
			})
		}
	case fields[0] == "/del" && len(fields) == 2:
		ref := platform.MessageRef{ChannelID: channelID, MessageID: fields[1]}
		if err := c.Delete(ctx, ref); err != nil {
			fmt.Fprintf(c.out, "[%s] no such message %s\n", channelID, fields[1])
			return
		}
		if c.onMessage != nil {
			c.onMessage(ctx, platform.MessageEvent{
				Kind:    platform.MessageDeleted,
				Message: platform.Message{Ref: ref},
			})
		}
	case strings.HasPrefix(fields[0], "/"):
		fmt.Fprintf(c.out, "[%s] commands: /react <id> <emoji>, /del <id>\n", channelID)
	default:
		c.mu.Lock()
		c.nextID++
		ref := platform.MessageRef{ChannelID: channelID, MessageID: fmt.Sprintf("u%d", c.nextID)}
		msg := platform.Message{Ref: ref, AuthorID: c.userID, Content: line, SentAt: time.Now()}
		c.messages[ref.MessageID] = &msg
		c.mu.Unlock()
		if c.onMessage != nil {
			c.onMessage(ctx, platform.MessageEvent{Kind: platform.MessageCreated, Message: msg})
		}
	}
}

func (c *Client) addReactor(messageID, emoji, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := messageID + emoji
	for _, u := range c.reactors[key] {
		if u == userID {
			return
		}
	}
	c.reactors[key] = append(c.reactors[key], userID)
}

func (c *Client) print(id, content string, embed *platform.Embed) {
	fmt.Fprintf(c.out, "[%s] (%s) %s\n", channelID, id, content)
	if embed != nil {
		fmt.Fprintf(c.out, "        %s", embed.Title)
		if embed.URL != "" {
			fmt.Fprintf(c.out, " <%s>", embed.URL)
		}
		if embed.Footer != "" {
			fmt.Fprintf(c.out, " [%s]", embed.Footer)
		}
		fmt.Fprintln(c.out)
	}
}
