// Package interactive implements reaction-driven messages: rendering,
// lifecycle, trigger binding, and the process-wide manager that resolves
// incoming reactions and expires idle messages.
package interactive

import (
	"fmt"
	"strings"

	"github.com/Kadantte/Kurumi-sub000/content"
	"github.com/Kadantte/Kurumi-sub000/platform"
)

// Reaction emojis offered as controls. Shared between live registries and
// the stateless table so both resolve the same keys.
const (
	EmojiPrev   = "◀"
	EmojiNext   = "▶"
	EmojiDelete = "🗑"
	EmojiSave   = "📥"
)

const (
	textLoading     = "⌛ loading..."
	textListStart   = "beginning of results"
	textListEnd     = "end of results"
	textEmptyList   = "no results found"
	textFeedMarker  = "feed"
	footerSeparator = " • "
)

const embedColor = 0xF06292

// Payload is a rendered message state. A nil field is unspecified and left
// untouched when the payload is applied as an edit.
type Payload struct {
	Content *string
	Embed   *platform.Embed
}

func (p Payload) patch() platform.Patch {
	return platform.Patch{Content: p.Content, Embed: p.Embed}
}

func text(s string) *string { return &s }

// ItemEmbed renders one content entry. Feed posts carry a marker in the
// footer but are otherwise identical to manually fetched items.
func ItemEmbed(it content.Item, feedMarked bool) *platform.Embed {
	desc := strings.Builder{}
	if it.Author != "" {
		fmt.Fprintf(&desc, "by %s\n", it.Author)
	}
	if len(it.Tags) > 0 {
		fmt.Fprintf(&desc, "tags: %s", strings.Join(it.Tags, ", "))
	}
	footer := it.Key()
	if feedMarked {
		footer += footerSeparator + textFeedMarker
	}
	return &platform.Embed{
		Title:       it.Title,
		Description: desc.String(),
		URL:         it.URL,
		Thumbnail:   it.Thumb,
		Footer:      footer,
		Color:       embedColor,
	}
}

// itemRefFromMessage re-derives the (source, id) identity from a rendered
// message, used by detached triggers after the owning message has expired
// from memory.
func itemRefFromMessage(msg *platform.Message) (source, id string, ok bool) {
	if msg == nil || len(msg.Embeds) == 0 {
		return "", "", false
	}
	footer := msg.Embeds[0].Footer
	if i := strings.Index(footer, footerSeparator); i >= 0 {
		footer = footer[:i]
	}
	parts := strings.SplitN(strings.TrimSpace(footer), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
