// Package feed republishes newly processed items into registered channels.
// One worker runs per registration; each cycle polls the item store
// strictly after the channel's watermark, filters by tag whitelist,
// dispatches through the interactive-message path, and advances the
// watermark with optimistic-concurrency retry.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/report"
	"github.com/Kadantte/Kurumi-sub000/store"
)

// Dispatcher posts one matched item into a channel. The production
// implementation goes through the interactive manager; tests substitute a
// recorder.
type Dispatcher interface {
	SendFeedItem(ctx context.Context, channelID string, it content.Item) error
}

type Scheduler struct {
	channels store.ChannelStore
	items    store.ItemStore
	dispatch Dispatcher
	logger   *slog.Logger
	reporter report.Reporter

	interval  time.Duration
	sendEvery time.Duration
	cycleCap  int
	pageSize  int

	workers sync.Map // channel ID -> struct{}
	wg      sync.WaitGroup
}

type SchedulerConfig struct {
	Channels   store.ChannelStore
	Items      store.ItemStore
	Dispatcher Dispatcher
	// Interval is the outer cadence between cycles; defaults to 10m.
	Interval time.Duration
	// SendInterval spaces consecutive feed posts in one channel; defaults
	// to 1s.
	SendInterval time.Duration
	// CycleCap bounds how many items one cycle may dispatch into one
	// channel; the rest of the backlog waits for the next cycle. Defaults
	// to 50.
	CycleCap int
	// PageSize bounds one item-store read; defaults to 25.
	PageSize int
	Logger   *slog.Logger
	Reporter report.Reporter
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	sendEvery := cfg.SendInterval
	if sendEvery <= 0 {
		sendEvery = time.Second
	}
	cycleCap := cfg.CycleCap
	if cycleCap <= 0 {
		cycleCap = 50
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 25
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var reporter report.Reporter = cfg.Reporter
	if reporter == nil {
		reporter = report.LogReporter{Logger: logger}
	}
	return &Scheduler{
		channels:  cfg.Channels,
		items:     cfg.Items,
		dispatch:  cfg.Dispatcher,
		logger:    logger,
		reporter:  reporter,
		interval:  interval,
		sendEvery: sendEvery,
		cycleCap:  cycleCap,
		pageSize:  pageSize,
	}
}

// Run reconciles the worker set against the registration table until ctx
// is cancelled, then waits for every worker to exit. A registration gets
// at most one worker; workers remove themselves when their registration
// disappears.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.reconcile(ctx)
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	regs, err := s.channels.ListChannels(ctx)
	if err != nil {
		s.logger.Warn("feed_list_channels_error", "error", err.Error())
		return
	}
	for _, reg := range regs {
		if _, running := s.workers.LoadOrStore(reg.ChannelID, struct{}{}); running {
			continue
		}
		s.wg.Add(1)
		go s.worker(ctx, reg.GuildID, reg.ChannelID)
	}
}

// Active reports whether a worker currently runs for the channel.
func (s *Scheduler) Active(channelID string) bool {
	_, ok := s.workers.Load(channelID)
	return ok
}

func (s *Scheduler) worker(ctx context.Context, guildID, channelID string) {
	defer s.wg.Done()
	defer s.workers.Delete(channelID)
	s.logger.Debug("feed_worker_started", "channel_id", channelID)

	pace := rate.NewLimiter(rate.Every(s.sendEvery), 1)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if done := s.cycle(ctx, guildID, channelID, pace); done {
			s.logger.Debug("feed_worker_stopped", "channel_id", channelID)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cycle runs one Polling → Dispatching → Advancing pass for a channel.
// It returns true when the worker should exit: the registration is gone,
// was deregistered for having no tags, or the context ended. Any other
// failure is contained to this cycle and retried on the next tick.
func (s *Scheduler) cycle(ctx context.Context, guildID, channelID string, pace *rate.Limiter) bool {
	ch, err := s.channels.GetChannel(ctx, guildID, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return true
	}
	if err != nil {
		s.logger.Warn("feed_channel_load_error", "channel_id", channelID, "error", err.Error())
		return ctx.Err() != nil
	}

	// A registration with no tags can never match anything; treat it as a
	// normal deregistration rather than polling it forever.
	if len(ch.Tags) == 0 {
		if err := s.channels.RemoveChannel(ctx, channelID); err != nil {
			s.logger.Warn("feed_channel_remove_error", "channel_id", channelID, "error", err.Error())
			return ctx.Err() != nil
		}
		s.logger.Info("feed_channel_deregistered", "channel_id", channelID, "reason", "no tags")
		return true
	}

	lastSent, scanned, dispatched, cycleErr := s.dispatchBacklog(ctx, ch, pace)

	// The watermark moves to the last item actually sent. Only a cleanly
	// finished scan may move it further, past the non-matching tail, so an
	// aborted cycle never skips items it has not dispatched.
	target := lastSent
	if cycleErr == nil && scanned > target {
		target = scanned
	}
	if target > ch.Watermark {
		if err := s.advance(ctx, ch, target); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return true
			}
			s.logger.Warn("feed_advance_error", "channel_id", channelID, "error", err.Error())
			return ctx.Err() != nil
		}
	}
	if cycleErr != nil {
		s.reporter.Report(ctx, cycleErr, "feed_cycle", "channel_id", channelID)
	} else {
		s.logger.Debug("feed_cycle_done", "channel_id", channelID, "dispatched", dispatched, "watermark", target)
	}
	return ctx.Err() != nil
}

// dispatchBacklog pages through items strictly after the watermark in
// processed order, sending the ones the whitelist matches. It stops at the
// per-cycle cap or the end of the backlog and returns the last sequence
// dispatched, the last sequence scanned, and the number of items sent.
func (s *Scheduler) dispatchBacklog(ctx context.Context, ch store.FeedChannel, pace *rate.Limiter) (lastSent, scanned int64, dispatched int, err error) {
	lastSent = ch.Watermark
	scanned = ch.Watermark
	for {
		page, listErr := s.items.ListAfter(ctx, scanned, s.pageSize)
		if listErr != nil {
			return lastSent, scanned, dispatched, fmt.Errorf("list items after %d: %w", scanned, listErr)
		}
		if len(page) == 0 {
			return lastSent, scanned, dispatched, nil
		}
		for _, it := range page {
			if !ch.Matches(it) {
				scanned = it.Seq
				continue
			}
			if waitErr := pace.Wait(ctx); waitErr != nil {
				return lastSent, scanned, dispatched, waitErr
			}
			if sendErr := s.dispatch.SendFeedItem(ctx, ch.ChannelID, it); sendErr != nil {
				return lastSent, scanned, dispatched, fmt.Errorf("dispatch %s: %w", it.Key(), sendErr)
			}
			scanned = it.Seq
			lastSent = it.Seq
			dispatched++
			if dispatched >= s.cycleCap {
				return lastSent, scanned, dispatched, nil
			}
		}
		if len(page) < s.pageSize {
			return lastSent, scanned, dispatched, nil
		}
	}
}

// advance persists the new watermark, retrying with fresh reads until the
// write commits without a conflicting concurrent update.
func (s *Scheduler) advance(ctx context.Context, ch store.FeedChannel, target int64) error {
	for {
		ch.Watermark = target
		err := s.channels.UpdateChannel(ctx, ch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("persist watermark %d: %w", target, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ch, err = s.channels.GetChannel(ctx, ch.GuildID, ch.ChannelID)
		if err != nil {
			return fmt.Errorf("reload after conflict: %w", err)
		}
		if ch.Watermark >= target {
			// A concurrent writer already moved past us.
			return nil
		}
	}
}
