package interactive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kadantte/Kurumi-sub000/internal/coalesce"
	"github.com/Kadantte/Kurumi-sub000/internal/trigger"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// Renderer turns current state into a Payload. Render must not perform
// platform I/O itself; applying the payload goes through the coalescing
// window so every mutation path is rate-limited uniformly.
type Renderer interface {
	Render(ctx context.Context) (Payload, error)
}

// Config assembles a Message. Triggers is invoked at most once, lazily, the
// first time the trigger registry is needed.
type Config struct {
	Client   platform.Client
	Renderer Renderer
	Triggers func() []trigger.Trigger

	// RefreshInterval is the minimum spacing between successive edits.
	RefreshInterval time.Duration
	Logger          *slog.Logger
	OnEditError     func(error)
}

// Message binds a renderer, a trigger registry, and the platform message it
// controls. Lifecycle: unbound (no platform message yet) → bound (first
// render posted, edits flow through the window) → closed (no further edits
// accepted). Exactly one Message owns a given platform message ID at a
// time; the manager's registration enforces the uniqueness.
type Message struct {
	id       string
	client   platform.Client
	renderer Renderer
	build    func() []trigger.Trigger
	interval time.Duration
	logger   *slog.Logger
	onError  func(error)

	mu     sync.Mutex
	reg    *trigger.Registry
	regErr error
	ref    platform.MessageRef
	window *coalesce.Window
	closed bool
}

func New(cfg Config) *Message {
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Message{
		id:       uuid.NewString(),
		client:   cfg.Client,
		renderer: cfg.Renderer,
		build:    cfg.Triggers,
		interval: interval,
		logger:   logger,
		onError:  cfg.OnEditError,
	}
}

func (m *Message) ID() string { return m.id }

func (m *Message) Ref() platform.MessageRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ref
}

// Send renders the initial payload and posts it, binding the message.
func (m *Message) Send(ctx context.Context, channelID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("interactive message is closed")
	}
	if !m.ref.Zero() {
		m.mu.Unlock()
		return fmt.Errorf("interactive message is already bound to %s", m.ref.MessageID)
	}
	m.mu.Unlock()

	payload, err := m.renderer.Render(ctx)
	if err != nil {
		return err
	}
	req := platform.SendRequest{ChannelID: channelID, Embed: payload.Embed}
	if payload.Content != nil {
		req.Content = *payload.Content
	}
	ref, err := m.client.Send(ctx, req)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.ref = ref
	m.window = coalesce.NewWindow(m.interval, m.applyEdit, m.onError)
	m.mu.Unlock()
	return nil
}

func (m *Message) applyEdit(ctx context.Context, patch platform.Patch) error {
	m.mu.Lock()
	ref := m.ref
	closed := m.closed
	m.mu.Unlock()
	if closed || ref.Zero() {
		return nil
	}
	return m.client.Edit(ctx, ref, patch)
}

// Update re-renders and queues the result through the coalescing window.
func (m *Message) Update(ctx context.Context) error {
	m.mu.Lock()
	window := m.window
	closed := m.closed
	m.mu.Unlock()
	if closed || window == nil {
		return nil
	}
	payload, err := m.renderer.Render(ctx)
	if err != nil {
		return err
	}
	window.Request(ctx, payload.patch())
	return nil
}

// Notify queues a content-only edit, leaving the embed untouched. Used for
// transient loading indicators; superseded by the next Update within the
// same window.
func (m *Message) Notify(ctx context.Context, note string) {
	m.mu.Lock()
	window := m.window
	closed := m.closed
	m.mu.Unlock()
	if closed || window == nil {
		return
	}
	window.Request(ctx, platform.Patch{Content: &note})
}

// Triggers returns the registry, building it exactly once. The mutex keeps
// concurrent reactions arriving before initialization from racing the
// build.
func (m *Message) Triggers() (*trigger.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reg == nil && m.regErr == nil {
		var trs []trigger.Trigger
		if m.build != nil {
			trs = m.build()
		}
		m.reg, m.regErr = trigger.NewRegistry(trs...)
	}
	return m.reg, m.regErr
}

// Trigger resolves one emoji against the registry.
func (m *Message) Trigger(emoji string) (trigger.Trigger, bool) {
	reg, err := m.Triggers()
	if err != nil {
		return nil, false
	}
	return reg.Resolve(emoji)
}

// Stateful reports whether any declared trigger needs this message resident
// in memory to execute.
func (m *Message) Stateful() bool {
	reg, err := m.Triggers()
	if err != nil {
		return true
	}
	for _, emoji := range reg.Emojis() {
		tr, _ := reg.Resolve(emoji)
		if !trigger.IsStateless(tr) {
			return true
		}
	}
	return false
}

// Delete removes the platform message and closes this one.
func (m *Message) Delete(ctx context.Context) error {
	m.mu.Lock()
	ref := m.ref
	m.mu.Unlock()
	m.Close()
	if ref.Zero() {
		return nil
	}
	return m.client.Delete(ctx, ref)
}

// Close ends interactivity. The platform message is left in place; further
// edits are dropped and the renderer's resources are released.
func (m *Message) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	window := m.window
	m.mu.Unlock()
	if window != nil {
		window.Close()
	}
	if c, ok := m.renderer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			m.logger.Warn("interactive_renderer_close_error", "message_id", m.id, "error", err.Error())
		}
	}
}

func (m *Message) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
