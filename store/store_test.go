package store

import (
	"testing"

	"github.com/Kadantte/Kurumi-sub000/content"
)

func TestFeedChannelMatches(t *testing.T) {
	item := content.Item{Tags: []string{"a", "b"}}
	cases := []struct {
		name string
		mode WhitelistMode
		tags []string
		want bool
	}{
		{name: "any overlap", mode: MatchAny, tags: []string{"b", "c"}, want: true},
		{name: "any disjoint", mode: MatchAny, tags: []string{"c", "d"}, want: false},
		{name: "all missing one", mode: MatchAll, tags: []string{"b", "c"}, want: false},
		{name: "all present", mode: MatchAll, tags: []string{"a", "b"}, want: true},
		{name: "any empty whitelist", mode: MatchAny, tags: nil, want: false},
		{name: "all empty whitelist is not vacuously true", mode: MatchAll, tags: nil, want: false},
		{name: "any case insensitive", mode: MatchAny, tags: []string{"B"}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := FeedChannel{Mode: tc.mode, Tags: tc.tags}
			if got := ch.Matches(item); got != tc.want {
				t.Fatalf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseWhitelistMode(t *testing.T) {
	if m, err := ParseWhitelistMode(" ALL "); err != nil || m != MatchAll {
		t.Fatalf("ParseWhitelistMode(ALL) = %v, %v", m, err)
	}
	if _, err := ParseWhitelistMode("some"); err == nil {
		t.Fatalf("ParseWhitelistMode(some) = nil error, want error")
	}
}
