// Package browse provides lazy, single-pass sequences and a bidirectional
// cursor that caches visited elements so callers can page backward without
// re-fetching.
package browse

import "context"

// Sequence is a forward-only, possibly-infinite producer. Next returns the
// next element, or ok=false once the sequence is exhausted. A Sequence is
// not restartable; create a new one to enumerate again.
type Sequence[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

type sliceSequence[T any] struct {
	items []T
	pos   int
}

// FromSlice wraps an in-memory slice as a Sequence.
func FromSlice[T any](items []T) Sequence[T] {
	return &sliceSequence[T]{items: items}
}

func (s *sliceSequence[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	if s.pos >= len(s.items) {
		return zero, false, nil
	}
	v := s.items[s.pos]
	s.pos++
	return v, true, nil
}

func (s *sliceSequence[T]) Close() error { return nil }

type funcSequence[T any] struct {
	next  func(ctx context.Context) (T, bool, error)
	close func() error
}

// Func adapts a next function (and optional close) into a Sequence.
func Func[T any](next func(ctx context.Context) (T, bool, error), close func() error) Sequence[T] {
	return &funcSequence[T]{next: next, close: close}
}

func (s *funcSequence[T]) Next(ctx context.Context) (T, bool, error) {
	return s.next(ctx)
}

func (s *funcSequence[T]) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

type pagedSequence[T any] struct {
	fetch func(ctx context.Context, offset int) ([]T, error)
	page  []T
	pos   int
	off   int
	done  bool
}

// Paged turns a page-fetching function into a Sequence. fetch is called with
// a growing offset; an empty page ends the sequence. Failed fetches surface
// as errors and may be retried by calling Next again.
func Paged[T any](fetch func(ctx context.Context, offset int) ([]T, error)) Sequence[T] {
	return &pagedSequence[T]{fetch: fetch}
}

func (s *pagedSequence[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	for s.pos >= len(s.page) {
		if s.done {
			return zero, false, nil
		}
		page, err := s.fetch(ctx, s.off)
		if err != nil {
			return zero, false, err
		}
		if len(page) == 0 {
			s.done = true
			return zero, false, nil
		}
		s.off += len(page)
		s.page = page
		s.pos = 0
	}
	v := s.page[s.pos]
	s.pos++
	return v, true, nil
}

func (s *pagedSequence[T]) Close() error { return nil }
