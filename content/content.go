// Package content models the entries the bot discovers and the sources that
// produce them. Source implementations are thin I/O adapters; everything
// above this package treats them uniformly.
package content

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Kadantte/Kurumi-sub000/internal/browse"
)

// Item is one content entry. Identity is (Source, ID); Seq is the monotonic
// processed sequence assigned by the item store when the entry is first
// ingested, and stays 0 for items that never went through the store.
type Item struct {
	Source   string
	ID       string
	Title    string
	Author   string
	URL      string
	Thumb    string
	Tags     []string
	PostedAt time.Time
	Seq      int64
}

// Key returns the canonical "source/id" identity string.
func (it Item) Key() string {
	return it.Source + "/" + it.ID
}

// HasTag reports whether the item carries tag (case-insensitive).
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Source produces items. Implementations must be safe to enumerate
// partially (a consumer may abandon a sequence at any point) and must
// return (nil, nil) from Get for "not found" rather than an error.
type Source interface {
	Name() string
	// Search returns a lazy sequence over entries matching query.
	Search(ctx context.Context, query string) browse.Sequence[Item]
	// Latest returns a lazy sequence over the source's newest entries.
	Latest(ctx context.Context) browse.Sequence[Item]
	Get(ctx context.Context, id string) (*Item, error)
}

// URLMatcher is implemented by sources whose item pages have recognizable
// URLs. MatchURL returns the item ID encoded in the URL, if any.
type URLMatcher interface {
	MatchURL(raw string) (id string, ok bool)
}

// Registry holds the configured sources. It is built once at startup and
// read-only afterwards.
type Registry struct {
	sources map[string]Source
}

func NewRegistry(sources ...Source) (*Registry, error) {
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		name := strings.ToLower(strings.TrimSpace(s.Name()))
		if name == "" {
			return nil, fmt.Errorf("source name is required")
		}
		if _, dup := m[name]; dup {
			return nil, fmt.Errorf("duplicate source: %s", name)
		}
		m[name] = s
	}
	return &Registry{sources: m}, nil
}

func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, name := range r.Names() {
		out = append(out, r.sources[name])
	}
	return out
}

// MatchURL checks raw against every source that advertises URL matching.
func (r *Registry) MatchURL(raw string) (Source, string, bool) {
	for _, name := range r.Names() {
		s := r.sources[name]
		m, ok := s.(URLMatcher)
		if !ok {
			continue
		}
		if id, matched := m.MatchURL(raw); matched {
			return s, id, true
		}
	}
	return nil, "", false
}
