// Package coalesce rate-limits edits to a single platform message. The chat
// platform enforces a low per-resource edit rate; exceeding it throttles the
// whole bot, so every mutation path funnels through one Window per message.
package coalesce

import (
	"context"
	"sync"
	"time"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

// Window coalesces edit requests for one message so that at most one real
// edit call is in flight or scheduled per interval. Requests arriving while
// an edit is pending merge into it field-wise; each field independently
// takes the most recent specified value, so intermediate states within a
// window are silently dropped.
type Window struct {
	interval time.Duration
	apply    func(context.Context, platform.Patch) error
	onError  func(error)

	mu        sync.Mutex
	pending   *platform.Patch
	lastFlush time.Time
	closed    bool
}

// NewWindow builds a Window flushing through apply. onError receives flush
// failures and may be nil.
func NewWindow(interval time.Duration, apply func(context.Context, platform.Patch) error, onError func(error)) *Window {
	return &Window{interval: interval, apply: apply, onError: onError}
}

// Request queues patch. If no edit is pending and the previous window has
// elapsed, the flush runs promptly and opens a new window; otherwise the
// patch merges into the pending state flushed when the window closes.
// Request never blocks on platform I/O.
func (w *Window) Request(ctx context.Context, patch platform.Patch) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if w.pending != nil {
		merged := w.pending.Merge(patch)
		w.pending = &merged
		w.mu.Unlock()
		return
	}
	w.pending = &patch
	delay := w.interval - time.Since(w.lastFlush)
	if delay < 0 {
		delay = 0
	}
	w.mu.Unlock()

	go w.flushAfter(ctx, delay)
}

func (w *Window) flushAfter(ctx context.Context, delay time.Duration) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			// Drop the pending edit; shutdown wins.
			w.mu.Lock()
			w.pending = nil
			w.mu.Unlock()
			return
		case <-timer.C:
		}
	}

	w.mu.Lock()
	if w.pending == nil || w.closed {
		w.pending = nil
		w.mu.Unlock()
		return
	}
	patch := *w.pending
	w.pending = nil
	w.lastFlush = time.Now()
	w.mu.Unlock()

	if err := w.apply(ctx, patch); err != nil && w.onError != nil {
		w.onError(err)
	}
}

// Close drops any pending edit and rejects further requests. It does not
// wait for an in-flight flush.
func (w *Window) Close() {
	w.mu.Lock()
	w.closed = true
	w.pending = nil
	w.mu.Unlock()
}
