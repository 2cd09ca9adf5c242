// Package dispatch fans incoming platform events into two independent
// ordered handler chains, one for message events and one for reaction
// events. Each event runs on its own goroutine; a failing or panicking
// handler is reported per event and never stops ingestion.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Kadantte/Kurumi-sub000/internal/report"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// MessageHandler inspects one message event and reports whether it claimed
// it. The first claim stops the chain.
type MessageHandler interface {
	HandleMessage(ctx context.Context, ev platform.MessageEvent) (bool, error)
}

// ReactionHandler is the reaction-chain counterpart of MessageHandler.
type ReactionHandler interface {
	HandleReaction(ctx context.Context, ev platform.ReactionEvent) (bool, error)
}

// Pipeline owns the two handler chains. Order is fixed at construction:
// for messages, command executor, then link detector, then the interactive
// manager's delete cleanup; for reactions, the interactive manager.
type Pipeline struct {
	client    platform.Client
	messages  []MessageHandler
	reactions []ReactionHandler
	logger    *slog.Logger
	reporter  report.Reporter

	wg sync.WaitGroup
}

type PipelineConfig struct {
	Client    platform.Client
	Messages  []MessageHandler
	Reactions []ReactionHandler
	Logger    *slog.Logger
	Reporter  report.Reporter
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var reporter report.Reporter = cfg.Reporter
	if reporter == nil {
		reporter = report.LogReporter{Logger: logger}
	}
	return &Pipeline{
		client:    cfg.Client,
		messages:  cfg.Messages,
		reactions: cfg.Reactions,
		logger:    logger,
		reporter:  reporter,
	}
}

// DispatchMessage routes one message event through the message chain.
// Events authored by the bot itself or by any non-user account are
// discarded before the chain.
func (p *Pipeline) DispatchMessage(ctx context.Context, ev platform.MessageEvent) {
	if ev.Message.AuthorIsBot || ev.Message.AuthorID == p.client.Me() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.recoverEvent(ctx, "dispatch_message", ev.Message.Ref)
		for _, h := range p.messages {
			claimed, err := h.HandleMessage(ctx, ev)
			if err != nil {
				p.reporter.Report(ctx, err, "dispatch_message",
					"message_id", ev.Message.Ref.MessageID, "kind", string(ev.Kind))
				return
			}
			if claimed {
				return
			}
		}
	}()
}

// DispatchReaction routes one reaction event through the reaction chain.
// The bot's own reactions (the icons it attaches) are discarded.
func (p *Pipeline) DispatchReaction(ctx context.Context, ev platform.ReactionEvent) {
	if ev.UserID == p.client.Me() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.recoverEvent(ctx, "dispatch_reaction", ev.Ref)
		for _, h := range p.reactions {
			claimed, err := h.HandleReaction(ctx, ev)
			if err != nil {
				p.reporter.Report(ctx, err, "dispatch_reaction",
					"message_id", ev.Ref.MessageID, "emoji", ev.Emoji, "user_id", ev.UserID)
				return
			}
			if claimed {
				return
			}
		}
	}()
}

// recoverEvent turns a handler panic into an error report plus a generic
// in-channel failure notice. Only panics get the notice; ordinary handler
// errors are reported without one, since handlers reply on their own.
func (p *Pipeline) recoverEvent(ctx context.Context, scope string, ref platform.MessageRef) {
	r := recover()
	if r == nil {
		return
	}
	p.reporter.Report(ctx, fmt.Errorf("handler panic: %v", r), scope, "message_id", ref.MessageID)
	if ref.ChannelID == "" {
		return
	}
	_, err := p.client.Send(ctx, platform.SendRequest{
		ChannelID: ref.ChannelID,
		Content:   "Something went wrong handling that. It has been reported.",
	})
	if err != nil {
		p.logger.Warn("dispatch_failure_notice_error", "channel_id", ref.ChannelID, "error", err.Error())
	}
}

// Wait blocks until every in-flight event has finished. Used on shutdown
// and in tests.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
