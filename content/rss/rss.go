// Package rss adapts an RSS/Atom feed into a content source. Entries get a
// stable ID derived from their link, so lookups and URL matching agree
// across fetches even when the upstream feed omits GUIDs.
package rss

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/internal/browse"
)

type Source struct {
	name   string
	feed   string
	host   string
	parser *gofeed.Parser
}

// New builds a source over one feed URL. The feed's host is remembered for
// inline-link matching.
func New(name, feedURL string) (*Source, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("parse feed url %s: %w", feedURL, err)
	}
	return &Source{
		name:   name,
		feed:   feedURL,
		host:   u.Host,
		parser: gofeed.NewParser(),
	}, nil
}

func (s *Source) Name() string { return s.name }

// Latest enumerates the feed's current entries in feed order. The fetch is
// deferred to the first pull so building the sequence never does I/O.
func (s *Source) Latest(ctx context.Context) browse.Sequence[content.Item] {
	return s.lazy(func(it content.Item) bool { return true })
}

// Search filters the feed client-side: every term must appear in the title
// or tags. RSS has no query API, so this is as good as the medium gets.
func (s *Source) Search(ctx context.Context, query string) browse.Sequence[content.Item] {
	terms := strings.Fields(strings.ToLower(query))
	return s.lazy(func(it content.Item) bool {
		hay := strings.ToLower(it.Title)
		for _, term := range terms {
			if strings.Contains(hay, term) || it.HasTag(term) {
				continue
			}
			return false
		}
		return true
	})
}

func (s *Source) Get(ctx context.Context, id string) (*content.Item, error) {
	items, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if it.ID == id {
			cp := it
			return &cp, nil
		}
	}
	return nil, nil
}

// MatchURL recognizes entry links on the feed's host and returns the same
// derived ID Get expects.
func (s *Source) MatchURL(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || u.Host != s.host {
		return "", false
	}
	if raw == s.feed {
		return "", false
	}
	return linkID(raw), true
}

func (s *Source) lazy(keep func(content.Item) bool) browse.Sequence[content.Item] {
	var items []content.Item
	fetched := false
	i := 0
	return browse.Func(func(ctx context.Context) (content.Item, bool, error) {
		if !fetched {
			all, err := s.fetch(ctx)
			if err != nil {
				return content.Item{}, false, err
			}
			for _, it := range all {
				if keep(it) {
					items = append(items, it)
				}
			}
			fetched = true
		}
		if i >= len(items) {
			return content.Item{}, false, nil
		}
		it := items[i]
		i++
		return it, true, nil
	}, nil)
}

func (s *Source) fetch(ctx context.Context) ([]content.Item, error) {
	feed, err := s.parser.ParseURLWithContext(s.feed, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.feed, err)
	}
	items := make([]content.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" {
			continue
		}
		it := content.Item{
			Source: s.name,
			ID:     linkID(entry.Link),
			Title:  entry.Title,
			URL:    entry.Link,
			Tags:   normalizeCategories(entry.Categories),
		}
		if entry.Author != nil {
			it.Author = entry.Author.Name
		}
		if entry.Image != nil {
			it.Thumb = entry.Image.URL
		}
		if entry.PublishedParsed != nil {
			it.PostedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			it.PostedAt = entry.UpdatedParsed.UTC()
		}
		items = append(items, it)
	}
	return items, nil
}

// linkID derives a stable 16-hex-digit ID from an entry link.
func linkID(link string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(link)))[:16]
}

func normalizeCategories(categories []string) []string {
	seen := make(map[string]bool, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
