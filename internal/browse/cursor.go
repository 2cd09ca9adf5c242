package browse

import "context"

// Cursor wraps one Sequence and remembers every element it has yielded, so
// moving backward is cache-only and returning to a visited position never
// re-fetches. The cache grows monotonically and never shrinks.
//
// Position is -1 before the first successful MoveNext and otherwise stays
// within the cache bounds. A Cursor is owned by a single consumer and is not
// safe for concurrent use.
type Cursor[T any] struct {
	seq       Sequence[T]
	cache     []T
	pos       int
	exhausted bool
	closed    bool
}

func NewCursor[T any](seq Sequence[T]) *Cursor[T] {
	return &Cursor[T]{seq: seq, pos: -1}
}

// MoveNext advances one position, pulling from the underlying sequence only
// when the cache is exhausted. It returns false without moving when the
// sequence has ended. A fetch error leaves the cursor unchanged, so the same
// move can be retried safely.
func (c *Cursor[T]) MoveNext(ctx context.Context) (bool, error) {
	if c.pos+1 < len(c.cache) {
		c.pos++
		return true, nil
	}
	if c.exhausted || c.closed {
		return false, nil
	}
	v, ok, err := c.seq.Next(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		c.exhausted = true
		return false, nil
	}
	c.cache = append(c.cache, v)
	c.pos++
	return true, nil
}

// MovePrevious steps back one position. It is synchronous and cache-only,
// and returns false at the first element.
func (c *Cursor[T]) MovePrevious() bool {
	if c.pos <= 0 {
		return false
	}
	c.pos--
	return true
}

// Current returns the element at the cursor position. ok is false before
// the first successful move.
func (c *Cursor[T]) Current() (T, bool) {
	var zero T
	if c.pos < 0 || c.pos >= len(c.cache) {
		return zero, false
	}
	return c.cache[c.pos], true
}

// Position returns the current index, -1 before the first move.
func (c *Cursor[T]) Position() int { return c.pos }

// CacheLen returns how many elements have been pulled so far.
func (c *Cursor[T]) CacheLen() int { return len(c.cache) }

// Close releases the underlying sequence. Further MoveNext calls return
// false once the cache is consumed.
func (c *Cursor[T]) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.seq.Close()
}
