package trigger

import "fmt"

// Factory constructs a detached trigger instance that runs purely off the
// reaction event and whatever it can re-derive from the platform message.
type Factory func() Trigger

// Table maps emoji to stateless trigger factories. It is assembled
// explicitly at process init from a fixed list of constructors (no runtime
// type scanning) and read-only afterwards.
type Table struct {
	factories map[string]Factory
}

func NewTable() *Table {
	return &Table{factories: make(map[string]Factory)}
}

func (t *Table) Register(emoji string, f Factory) error {
	if emoji == "" {
		return fmt.Errorf("emoji is required")
	}
	if f == nil {
		return fmt.Errorf("factory is required")
	}
	if _, dup := t.factories[emoji]; dup {
		return fmt.Errorf("duplicate stateless emoji: %s", emoji)
	}
	t.factories[emoji] = f
	return nil
}

// Resolve builds a fresh detached trigger for emoji, if one is registered.
func (t *Table) Resolve(emoji string) (Trigger, bool) {
	f, ok := t.factories[emoji]
	if !ok {
		return nil, false
	}
	return f(), true
}

func (t *Table) Len() int { return len(t.factories) }
