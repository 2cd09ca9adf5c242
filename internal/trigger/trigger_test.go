package trigger

import (
	"context"
	"strings"
	"testing"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

type stubTrigger struct {
	emoji string
	runs  int
}

func (s *stubTrigger) Emoji() string { return s.emoji }

func (s *stubTrigger) Run(ctx context.Context, ev platform.ReactionEvent) error {
	s.runs++
	return nil
}

func TestNewRegistryRejectsDuplicateEmoji(t *testing.T) {
	_, err := NewRegistry(&stubTrigger{emoji: "▶"}, &stubTrigger{emoji: "▶"})
	if err == nil || !strings.Contains(err.Error(), "duplicate trigger emoji") {
		t.Fatalf("NewRegistry() error = %v, want duplicate emoji error", err)
	}
}

func TestRegistryResolveAndOrder(t *testing.T) {
	left := &stubTrigger{emoji: "◀"}
	right := &stubTrigger{emoji: "▶"}
	del := &stubTrigger{emoji: "🗑"}
	reg, err := NewRegistry(left, right, del)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	got, ok := reg.Resolve("▶")
	if !ok || got != right {
		t.Fatalf("Resolve(▶) = %v, %v, want right trigger", got, ok)
	}
	if _, ok := reg.Resolve("❓"); ok {
		t.Fatalf("Resolve(❓) = ok, want miss")
	}

	emojis := reg.Emojis()
	want := []string{"◀", "▶", "🗑"}
	for i := range want {
		if emojis[i] != want[i] {
			t.Fatalf("Emojis() = %v, want %v", emojis, want)
		}
	}
}

func TestTableResolvesFreshInstances(t *testing.T) {
	tbl := NewTable()
	built := 0
	if err := tbl.Register("🗑", func() Trigger {
		built++
		return &stubTrigger{emoji: "🗑"}
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := tbl.Register("🗑", func() Trigger { return nil }); err == nil {
		t.Fatalf("Register() duplicate = nil, want error")
	}

	a, ok := tbl.Resolve("🗑")
	if !ok || a == nil {
		t.Fatalf("Resolve(🗑) = %v, %v, want trigger", a, ok)
	}
	b, _ := tbl.Resolve("🗑")
	if a == b {
		t.Fatalf("Resolve() returned a shared instance, want fresh per resolution")
	}
	if built != 2 {
		t.Fatalf("factory calls = %d, want 2", built)
	}
	if _, ok := tbl.Resolve("▶"); ok {
		t.Fatalf("Resolve(▶) = ok, want miss")
	}
}
