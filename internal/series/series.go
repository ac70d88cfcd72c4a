// Package series provides the bounded look-back buffer shared by filters and signals.
package series

import "fmt"

// OutOfRangeError reports an offset that reaches past the observed (or retained) history.
type OutOfRangeError struct {
	Offset int
	Len    int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("series offset %d out of range (len %d)", e.Offset, e.Len)
}

// Series is an append-only ring buffer addressed by non-positive offsets:
// 0 is the latest value, -1 the one before, down to the retention bound.
type Series[T any] struct {
	buf  []T
	head int // index of the latest value
	n    int // values retained
	seen int // values appended in total
}

// New allocates a series retaining at most capacity values (minimum 1).
func New[T any](capacity int) *Series[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Series[T]{buf: make([]T, capacity), head: -1}
}

// Append pushes a new latest value, evicting the oldest once the buffer is full.
func (s *Series[T]) Append(v T) {
	s.head = (s.head + 1) % len(s.buf)
	s.buf[s.head] = v
	if s.n < len(s.buf) {
		s.n++
	}
	s.seen++
}

// At returns the value at offset (0 = latest). Positive offsets and offsets beyond the
// retained history fail with *OutOfRangeError.
func (s *Series[T]) At(offset int) (T, error) {
	var zero T
	if offset > 0 || -offset >= s.n {
		return zero, &OutOfRangeError{Offset: offset, Len: s.n}
	}
	idx := (s.head + offset + len(s.buf)) % len(s.buf)
	return s.buf[idx], nil
}

// AtOrOldest is At with missing history substituted by the oldest retained value.
// Filters use it for their warm-up seed formulas. An empty series yields the zero value.
func (s *Series[T]) AtOrOldest(offset int) T {
	if s.n == 0 {
		var zero T
		return zero
	}
	if offset > 0 {
		offset = 0
	}
	if -offset >= s.n {
		offset = -(s.n - 1)
	}
	v, _ := s.At(offset)
	return v
}

// Ready reports whether offset minOffset (<= 0) is addressable.
func (s *Series[T]) Ready(minOffset int) bool {
	if minOffset > 0 {
		minOffset = -minOffset
	}
	return -minOffset < s.n
}

// Len is the number of retained values.
func (s *Series[T]) Len() int { return s.n }

// Seen is the number of values appended since construction.
func (s *Series[T]) Seen() int { return s.seen }

// Last returns up to size values, most recent first.
func (s *Series[T]) Last(size int) []T {
	if size > s.n {
		size = s.n
	}
	if size <= 0 {
		return nil
	}
	out := make([]T, size)
	for i := range out {
		out[i], _ = s.At(-i)
	}
	return out
}
