// Package platform defines the boundary to the chat platform. The core never
// talks to a gateway or REST API directly; it consumes a Client and receives
// MessageEvent/ReactionEvent values from whatever owns the connection.
package platform

import (
	"context"
	"errors"
	"time"
)

// MessageRef identifies one platform message.
type MessageRef struct {
	ChannelID string
	MessageID string
}

func (r MessageRef) Zero() bool {
	return r.MessageID == ""
}

// Embed is the rich portion of a message payload.
type Embed struct {
	Title       string
	Description string
	URL         string
	Thumbnail   string
	Footer      string
	Color       int
}

// Patch carries a partial edit. A nil field means "leave unchanged", so
// patches can be merged field-wise before a single edit call goes out.
type Patch struct {
	Content *string
	Embed   *Embed
}

// Merge returns p overlaid with next; each field independently takes the
// most recent specified value.
func (p Patch) Merge(next Patch) Patch {
	out := p
	if next.Content != nil {
		out.Content = next.Content
	}
	if next.Embed != nil {
		out.Embed = next.Embed
	}
	return out
}

type SendRequest struct {
	ChannelID string
	Content   string
	Embed     *Embed
}

// Message is the subset of platform message state the core reads.
type Message struct {
	Ref         MessageRef
	GuildID     string
	AuthorID    string
	AuthorIsBot bool
	Content     string
	Embeds      []Embed
	SentAt      time.Time
}

type MessageEventKind string

const (
	MessageCreated MessageEventKind = "created"
	MessageUpdated MessageEventKind = "updated"
	MessageDeleted MessageEventKind = "deleted"
)

type MessageEvent struct {
	Kind    MessageEventKind
	Message Message
}

type ReactionEvent struct {
	Ref     MessageRef
	GuildID string
	UserID  string
	Emoji   string
	Added   bool
}

// ErrMissingPermission marks failures caused by the bot lacking a channel
// permission. Callers surface these as a one-time friendly notice instead of
// routing them to the error reporter.
var ErrMissingPermission = errors.New("missing permission")

// ErrUnknownMessage marks operations against a message that no longer
// exists. Not recoverable; callers drop the operation.
var ErrUnknownMessage = errors.New("unknown message")

func IsMissingPermission(err error) bool {
	return errors.Is(err, ErrMissingPermission)
}

func IsUnknownMessage(err error) bool {
	return errors.Is(err, ErrUnknownMessage)
}

// Client is the outbound half of the platform boundary. Implementations must
// be safe for concurrent use; every call maps to at most one platform API
// request.
type Client interface {
	// Me returns the bot's own user ID. Used to discard self events and to
	// prove the bot offered a reaction control.
	Me() string

	Send(ctx context.Context, req SendRequest) (MessageRef, error)
	SendDirect(ctx context.Context, userID string, req SendRequest) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, patch Patch) error
	Delete(ctx context.Context, ref MessageRef) error

	// React adds the bot's own reaction icon to a message.
	React(ctx context.Context, ref MessageRef, emoji string) error
	// Reactors lists the user IDs currently recorded as reactors for one
	// emoji on one message.
	Reactors(ctx context.Context, ref MessageRef, emoji string) ([]string, error)

	// Message fetches current message state, embeds included.
	Message(ctx context.Context, ref MessageRef) (*Message, error)
}
