package interactive

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Kadantte/Kurumi-sub000/internal/report"
	"github.com/Kadantte/Kurumi-sub000/internal/trigger"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

const defaultAttachQueue = 256

// Manager is the process-scoped registry of live interactive messages. It
// resolves incoming reactions to triggers, expires idle entries, and drains
// the reaction-icon attach queue in a single paced background worker. It is
// created at startup and injected wherever needed.
type Manager struct {
	client   platform.Client
	table    *trigger.Table
	ttl      time.Duration
	logger   *slog.Logger
	reporter report.Reporter

	entries sync.Map // platform message ID -> *entry

	attach chan attachJob
	pace   *rate.Limiter

	noticeMu sync.Mutex
	noticed  map[string]bool
}

type entry struct {
	msg    *Message
	expire *time.Timer
}

type attachJob struct {
	ref    platform.MessageRef
	emojis []string
}

type ManagerConfig struct {
	Client platform.Client
	// Stateless is the emoji→constructor table consulted for untracked
	// messages.
	Stateless *trigger.Table
	// TTL bounds how long a registered message stays interactive.
	TTL time.Duration
	// AttachInterval paces reaction-icon attachment calls.
	AttachInterval time.Duration
	Logger         *slog.Logger
	Reporter       report.Reporter
}

func NewManager(cfg ManagerConfig) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	attachEvery := cfg.AttachInterval
	if attachEvery <= 0 {
		attachEvery = 250 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var reporter report.Reporter = cfg.Reporter
	if reporter == nil {
		reporter = report.LogReporter{Logger: logger}
	}
	table := cfg.Stateless
	if table == nil {
		table = trigger.NewTable()
	}
	return &Manager{
		client:   cfg.Client,
		table:    table,
		ttl:      ttl,
		logger:   logger,
		reporter: reporter,
		attach:   make(chan attachJob, defaultAttachQueue),
		pace:     rate.NewLimiter(rate.Every(attachEvery), 1),
		noticed:  make(map[string]bool),
	}
}

// Run drains the reaction-icon attach queue until ctx is cancelled. One
// message's icon set is attached at a time; failures from the message
// having been deleted or permissions being revoked are swallowed, since
// retrying cannot recover them.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-m.attach:
			m.attachIcons(ctx, job)
		}
	}
}

func (m *Manager) attachIcons(ctx context.Context, job attachJob) {
	for _, emoji := range job.emojis {
		if err := m.pace.Wait(ctx); err != nil {
			return
		}
		if err := m.client.React(ctx, job.ref, emoji); err != nil {
			if platform.IsUnknownMessage(err) || platform.IsMissingPermission(err) {
				m.logger.Debug("interactive_attach_skipped", "message_id", job.ref.MessageID, "emoji", emoji, "reason", err.Error())
			} else {
				m.logger.Warn("interactive_attach_error", "message_id", job.ref.MessageID, "emoji", emoji, "error", err.Error())
			}
			return
		}
	}
}

// SendOptions adjust a manager-mediated send.
type SendOptions struct {
	// StatelessOnly skips registration even when it would be allowed. Only
	// honored when every trigger is stateless-capable; a message with any
	// stateful trigger is always registered.
	StatelessOnly bool
}

// Send posts msg into channelID, registers it (per its triggers and opts),
// and queues its reaction icons for attachment.
func (m *Manager) Send(ctx context.Context, msg *Message, channelID string, opts SendOptions) error {
	if err := msg.Send(ctx, channelID); err != nil {
		return err
	}
	if msg.Stateful() || !opts.StatelessOnly {
		m.track(msg)
	}
	reg, err := msg.Triggers()
	if err != nil {
		return err
	}
	if reg.Len() > 0 {
		m.queueIcons(msg.Ref(), reg.Emojis())
	}
	return nil
}

func (m *Manager) track(msg *Message) {
	id := msg.Ref().MessageID
	if id == "" {
		return
	}
	e := &entry{msg: msg}
	e.expire = time.AfterFunc(m.ttl, func() {
		m.expireEntry(id)
	})
	m.entries.Store(id, e)
	m.logger.Debug("interactive_registered", "message_id", id, "interactive_id", msg.ID())
}

func (m *Manager) expireEntry(id string) {
	v, loaded := m.entries.LoadAndDelete(id)
	if !loaded {
		return
	}
	e := v.(*entry)
	// Expiry only stops interactivity; the platform message stays.
	e.msg.Close()
	m.logger.Debug("interactive_expired", "message_id", id)
}

// Release unregisters a message without touching the platform message.
func (m *Manager) Release(id string) {
	v, loaded := m.entries.LoadAndDelete(id)
	if !loaded {
		return
	}
	e := v.(*entry)
	e.expire.Stop()
	e.msg.Close()
}

func (m *Manager) queueIcons(ref platform.MessageRef, emojis []string) {
	select {
	case m.attach <- attachJob{ref: ref, emojis: emojis}:
	default:
		m.logger.Warn("interactive_attach_queue_full", "message_id", ref.MessageID)
	}
}

// Tracked reports whether a platform message is currently registered.
func (m *Manager) Tracked(id string) bool {
	_, ok := m.entries.Load(id)
	return ok
}

// HandleReaction resolves a reaction event to a trigger. Registered
// messages resolve against their own registry; untracked messages fall
// back to the stateless table, honored only when the bot itself is a
// recorded reactor for that emoji on that message.
func (m *Manager) HandleReaction(ctx context.Context, ev platform.ReactionEvent) (bool, error) {
	if v, ok := m.entries.Load(ev.Ref.MessageID); ok {
		e := v.(*entry)
		tr, found := e.msg.Trigger(ev.Emoji)
		if !found {
			// Not one of ours; deliberately not an error.
			return false, nil
		}
		m.runTrigger(ctx, tr, ev)
		return true, nil
	}

	tr, found := m.table.Resolve(ev.Emoji)
	if !found {
		return false, nil
	}
	offered, err := m.botOffered(ctx, ev)
	if err != nil {
		return false, err
	}
	if !offered {
		return false, nil
	}
	m.runTrigger(ctx, tr, ev)
	return true, nil
}

// botOffered proves the bot attached this control: the bot must be on
// record as a reactor for the emoji on the message.
func (m *Manager) botOffered(ctx context.Context, ev platform.ReactionEvent) (bool, error) {
	users, err := m.client.Reactors(ctx, ev.Ref, ev.Emoji)
	if err != nil {
		if platform.IsUnknownMessage(err) {
			return false, nil
		}
		return false, err
	}
	me := m.client.Me()
	for _, u := range users {
		if u == me {
			return true, nil
		}
	}
	return false, nil
}

func (m *Manager) runTrigger(ctx context.Context, tr trigger.Trigger, ev platform.ReactionEvent) {
	if err := tr.Run(ctx, ev); err != nil {
		if platform.IsMissingPermission(err) {
			m.permissionNotice(ctx, ev.Ref.ChannelID)
			return
		}
		m.reporter.Report(ctx, err, "interactive_trigger",
			"message_id", ev.Ref.MessageID, "emoji", ev.Emoji, "user_id", ev.UserID)
	}
}

// permissionNotice tells a channel once that the bot lacks permissions,
// instead of spamming the error reporter.
func (m *Manager) permissionNotice(ctx context.Context, channelID string) {
	m.noticeMu.Lock()
	seen := m.noticed[channelID]
	m.noticed[channelID] = true
	m.noticeMu.Unlock()
	if seen {
		return
	}
	_, err := m.client.Send(ctx, platform.SendRequest{
		ChannelID: channelID,
		Content:   "I don't have the permissions I need in this channel. Please ask an admin to check my role.",
	})
	if err != nil {
		m.logger.Warn("interactive_permission_notice_error", "channel_id", channelID, "error", err.Error())
	}
}

// HandleMessage keeps the registry consistent with platform state: a
// deleted platform message releases its interactive entry.
func (m *Manager) HandleMessage(ctx context.Context, ev platform.MessageEvent) (bool, error) {
	if ev.Kind != platform.MessageDeleted {
		return false, nil
	}
	if !m.Tracked(ev.Message.Ref.MessageID) {
		return false, nil
	}
	m.Release(ev.Message.Ref.MessageID)
	m.logger.Debug("interactive_released_on_delete", "message_id", ev.Message.Ref.MessageID)
	return true, nil
}
