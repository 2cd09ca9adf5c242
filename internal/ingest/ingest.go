// Package ingest pulls each configured source's latest listing into the
// item store. The store assigns the processed sequence the feed scheduler
// orders by, so ingestion is what turns "published upstream" into
// "processed here".
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/report"
	"github.com/Kadantte/Kurumi-sub000/store"
)

type Loop struct {
	sources  *content.Registry
	items    store.ItemStore
	logger   *slog.Logger
	reporter report.Reporter

	interval time.Duration
	perPull  int
}

type LoopConfig struct {
	Sources *content.Registry
	Items   store.ItemStore
	// Interval is the time between pulls; defaults to 5m.
	Interval time.Duration
	// PerSourceLimit bounds how many entries one pull takes from one
	// source; defaults to 100.
	PerSourceLimit int
	Logger         *slog.Logger
	Reporter       report.Reporter
}

func NewLoop(cfg LoopConfig) *Loop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	perPull := cfg.PerSourceLimit
	if perPull <= 0 {
		perPull = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var reporter report.Reporter = cfg.Reporter
	if reporter == nil {
		reporter = report.LogReporter{Logger: logger}
	}
	return &Loop{
		sources:  cfg.Sources,
		items:    cfg.Items,
		logger:   logger,
		reporter: reporter,
		interval: interval,
		perPull:  perPull,
	}
}

// Run pulls every source once immediately, then on each tick until ctx is
// cancelled. A failing source is contained to that source and cycle.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		l.PullAll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Loop) PullAll(ctx context.Context) {
	for _, src := range l.sources.All() {
		stored, err := l.pull(ctx, src)
		if err != nil {
			l.reporter.Report(ctx, err, "ingest", "source", src.Name())
			continue
		}
		l.logger.Debug("ingest_pull_done", "source", src.Name(), "stored", stored)
	}
}

func (l *Loop) pull(ctx context.Context, src content.Source) (int, error) {
	seq := src.Latest(ctx)
	defer seq.Close()

	stored := 0
	for stored < l.perPull {
		it, ok, err := seq.Next(ctx)
		if err != nil {
			return stored, fmt.Errorf("pull latest from %s: %w", src.Name(), err)
		}
		if !ok {
			break
		}
		if _, err := l.items.UpsertItem(ctx, it); err != nil {
			return stored, fmt.Errorf("store %s: %w", it.Key(), err)
		}
		stored++
	}
	return stored, nil
}
