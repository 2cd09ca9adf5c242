package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/browse"
	"github.com/Kadantte/Kurumi-sub000/platform"
	"github.com/Kadantte/Kurumi-sub000/store"
)

type fakeClient struct {
	mu     sync.Mutex
	nextID int
	sent   []platform.SendRequest
}

func (f *fakeClient) Me() string { return "bot" }

func (f *fakeClient) Send(ctx context.Context, req platform.SendRequest) (platform.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, req)
	return platform.MessageRef{ChannelID: req.ChannelID, MessageID: fmt.Sprintf("m%d", f.nextID)}, nil
}

func (f *fakeClient) SendDirect(ctx context.Context, userID string, req platform.SendRequest) (platform.MessageRef, error) {
	return platform.MessageRef{ChannelID: "dm:" + userID, MessageID: "dm"}, nil
}

func (f *fakeClient) Edit(ctx context.Context, ref platform.MessageRef, patch platform.Patch) error {
	return nil
}

func (f *fakeClient) Delete(ctx context.Context, ref platform.MessageRef) error { return nil }

func (f *fakeClient) React(ctx context.Context, ref platform.MessageRef, emoji string) error {
	return nil
}

func (f *fakeClient) Reactors(ctx context.Context, ref platform.MessageRef, emoji string) ([]string, error) {
	return nil, nil
}

func (f *fakeClient) Message(ctx context.Context, ref platform.MessageRef) (*platform.Message, error) {
	return nil, platform.ErrUnknownMessage
}

func (f *fakeClient) sentRequests() []platform.SendRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.SendRequest(nil), f.sent...)
}

type captureReporter struct {
	mu     sync.Mutex
	errs   []error
	scopes []string
}

func (r *captureReporter) Report(ctx context.Context, err error, scope string, attrs ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.scopes = append(r.scopes, scope)
}

func (r *captureReporter) reported() ([]error, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...), append([]string(nil), r.scopes...)
}

type fakeSource struct {
	name  string
	items map[string]content.Item
	found []content.Item
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Search(ctx context.Context, query string) browse.Sequence[content.Item] {
	return browse.FromSlice(s.found)
}

func (s *fakeSource) Latest(ctx context.Context) browse.Sequence[content.Item] {
	return browse.FromSlice(s.found)
}

func (s *fakeSource) Get(ctx context.Context, id string) (*content.Item, error) {
	it, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := it
	return &cp, nil
}

func (s *fakeSource) MatchURL(raw string) (string, bool) {
	prefix := "https://" + s.name + ".example/g/"
	if !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(raw, prefix), "/"), true
}

type memChannels struct {
	mu sync.Mutex
	// UpdateChannel fails with ErrConflict this many times, bumping the
	// stored version as a concurrent writer would.
	conflicts int
	rows      map[string]store.FeedChannel
}

func newMemChannels() *memChannels {
	return &memChannels{rows: make(map[string]store.FeedChannel)}
}

func (m *memChannels) ListChannels(ctx context.Context) ([]store.FeedChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.FeedChannel, 0, len(m.rows))
	for _, ch := range m.rows {
		out = append(out, ch)
	}
	return out, nil
}

func (m *memChannels) GetChannel(ctx context.Context, guildID, channelID string) (store.FeedChannel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.rows[channelID]
	if !ok {
		return store.FeedChannel{}, store.ErrNotFound
	}
	return ch, nil
}

func (m *memChannels) PutChannel(ctx context.Context, ch store.FeedChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch.Version = 1
	m.rows[ch.ChannelID] = ch
	return nil
}

func (m *memChannels) UpdateChannel(ctx context.Context, ch store.FeedChannel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[ch.ChannelID]
	if !ok {
		return store.ErrNotFound
	}
	if m.conflicts > 0 {
		m.conflicts--
		cur.Version++
		m.rows[ch.ChannelID] = cur
		return store.ErrConflict
	}
	if cur.Version != ch.Version {
		return store.ErrConflict
	}
	ch.Version++
	m.rows[ch.ChannelID] = ch
	return nil
}

func (m *memChannels) RemoveChannel(ctx context.Context, channelID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, channelID)
	return nil
}

func (m *memChannels) row(channelID string) (store.FeedChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.rows[channelID]
	return ch, ok
}

type memItems struct {
	mu    sync.Mutex
	seq   int64
	order []string
	rows  map[string]content.Item
}

func newMemItems() *memItems {
	return &memItems{rows: make(map[string]content.Item)}
}

func (m *memItems) UpsertItem(ctx context.Context, it content.Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := it.Key()
	if old, ok := m.rows[key]; ok {
		it.Seq = old.Seq
		m.rows[key] = it
		return it.Seq, nil
	}
	m.seq++
	it.Seq = m.seq
	m.rows[key] = it
	m.order = append(m.order, key)
	return it.Seq, nil
}

func (m *memItems) ListAfter(ctx context.Context, seq int64, limit int) ([]content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]content.Item, 0, limit)
	for _, key := range m.order {
		it := m.rows[key]
		if it.Seq <= seq {
			continue
		}
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memItems) GetItem(ctx context.Context, source, id string) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.rows[source+"/"+id]
	if !ok {
		return nil, nil
	}
	cp := it
	return &cp, nil
}

func (m *memItems) LastSeq(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, nil
}
