// Package trigger binds emoji reactions to actions. Interactive messages
// own a Registry of live triggers; a process-wide Table resolves the
// stateless subset after the owning message has left memory.
package trigger

import (
	"context"
	"fmt"

	"github.com/Kadantte/Kurumi-sub000/platform"
)

// Trigger is the action bound to one emoji on one interactive message.
type Trigger interface {
	Emoji() string
	Run(ctx context.Context, ev platform.ReactionEvent) error
}

// Registry is the fixed trigger set of one interactive message. Emoji keys
// are unique within a registry; construction fails on duplicates.
type Registry struct {
	order   []Trigger
	byEmoji map[string]Trigger
}

func NewRegistry(triggers ...Trigger) (*Registry, error) {
	byEmoji := make(map[string]Trigger, len(triggers))
	for _, tr := range triggers {
		e := tr.Emoji()
		if e == "" {
			return nil, fmt.Errorf("trigger emoji is required")
		}
		if _, dup := byEmoji[e]; dup {
			return nil, fmt.Errorf("duplicate trigger emoji: %s", e)
		}
		byEmoji[e] = tr
	}
	return &Registry{order: append([]Trigger(nil), triggers...), byEmoji: byEmoji}, nil
}

func (r *Registry) Resolve(emoji string) (Trigger, bool) {
	tr, ok := r.byEmoji[emoji]
	return tr, ok
}

// Emojis returns the trigger emojis in declaration order, which is also the
// order reaction icons are attached to the platform message.
func (r *Registry) Emojis() []string {
	out := make([]string, 0, len(r.order))
	for _, tr := range r.order {
		out = append(out, tr.Emoji())
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

type statelessCapable interface {
	StatelessCapable() bool
}

// IsStateless reports whether t can be reconstructed from only the
// reaction event and the rendered message content, and therefore resolved
// after the owning message has expired from memory.
func IsStateless(t Trigger) bool {
	s, ok := t.(statelessCapable)
	return ok && s.StatelessCapable()
}
