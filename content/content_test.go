package content

import (
	"context"
	"strings"
	"testing"

	"github.com/Kadantte/Kurumi-sub000/internal/browse"
)

type stubSource struct {
	name   string
	prefix string
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, query string) browse.Sequence[Item] {
	return browse.FromSlice[Item](nil)
}

func (s *stubSource) Latest(ctx context.Context) browse.Sequence[Item] {
	return browse.FromSlice[Item](nil)
}

func (s *stubSource) Get(ctx context.Context, id string) (*Item, error) { return nil, nil }

func (s *stubSource) MatchURL(raw string) (string, bool) {
	if s.prefix == "" || !strings.HasPrefix(raw, s.prefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, s.prefix), true
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(&stubSource{name: "nh"}, &stubSource{name: "NH"})
	if err == nil {
		t.Fatalf("NewRegistry() error = nil, want duplicate-source error")
	}
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	reg, err := NewRegistry(&stubSource{name: "NH"})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, ok := reg.Get(" nh "); !ok {
		t.Fatalf("Get(\" nh \") = false, want true")
	}
	if got := reg.Names(); len(got) != 1 || got[0] != "nh" {
		t.Fatalf("Names() = %v, want [nh]", got)
	}
}

func TestRegistryMatchURLTriesEverySource(t *testing.T) {
	reg, err := NewRegistry(
		&stubSource{name: "a", prefix: "https://a.example/"},
		&stubSource{name: "b", prefix: "https://b.example/"},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	src, id, ok := reg.MatchURL("https://b.example/42")
	if !ok || src.Name() != "b" || id != "42" {
		t.Fatalf("MatchURL() = %v, %q, %v, want source b, id 42", src, id, ok)
	}
	if _, _, ok := reg.MatchURL("https://c.example/42"); ok {
		t.Fatalf("MatchURL() matched an unknown host")
	}
}

func TestItemTagAndKeyHelpers(t *testing.T) {
	it := Item{Source: "nh", ID: "42", Tags: []string{"Glasses", "office"}}
	if it.Key() != "nh/42" {
		t.Fatalf("Key() = %q, want nh/42", it.Key())
	}
	if !it.HasTag("glasses") || it.HasTag("beach") {
		t.Fatalf("HasTag() case-insensitive lookup failed")
	}
}
