package store

import "github.com/gammazero/deque"

// Indexed is the positional backing store for a source list: an
// arbitrary-index sequence of items, kept in a github.com/gammazero/deque
// so inserts and removes at either end stay O(1) and an arbitrary-index
// Insert/Remove stays O(n) shift rather than a full slice reallocation.
type Indexed[T any] struct {
	d deque.Deque[T]
}

// NewIndexed returns an empty Indexed store.
func NewIndexed[T any]() *Indexed[T] {
	return &Indexed[T]{}
}

// Len returns the number of items.
func (s *Indexed[T]) Len() int { return s.d.Len() }

// At returns the item at index. The caller must have already bounds
// checked; callers in this module always validate via a source's edit
// path before reaching here.
func (s *Indexed[T]) At(index int) T { return s.d.At(index) }

// Set overwrites the item at index in place.
func (s *Indexed[T]) Set(index int, value T) { s.d.Set(index, value) }

// Append adds value at the end.
func (s *Indexed[T]) Append(value T) { s.d.PushBack(value) }

// Insert inserts value at index, shifting items at and after index right
// by one. index == Len() appends.
func (s *Indexed[T]) Insert(index int, value T) {
	if index == s.d.Len() {
		s.d.PushBack(value)
		return
	}
	s.d.Insert(index, value)
}

// InsertRange inserts values starting at index, preserving their order.
func (s *Indexed[T]) InsertRange(index int, values []T) {
	for i, v := range values {
		s.Insert(index+i, v)
	}
}

// RemoveAt removes and returns the item at index.
func (s *Indexed[T]) RemoveAt(index int) T {
	return s.d.Remove(index)
}

// RemoveRange removes count items starting at index and returns them in
// order.
func (s *Indexed[T]) RemoveRange(index, count int) []T {
	out := make([]T, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.d.Remove(index))
	}
	return out
}

// Move relocates the item at fromIndex to toIndex, shifting items between
// the two positions accordingly.
func (s *Indexed[T]) Move(fromIndex, toIndex int) T {
	v := s.d.Remove(fromIndex)
	if toIndex == s.d.Len() {
		s.d.PushBack(v)
	} else {
		s.d.Insert(toIndex, v)
	}
	return v
}

// Clear empties the store and returns the items that were present, in
// order.
func (s *Indexed[T]) Clear() []T {
	out := make([]T, 0, s.d.Len())
	for s.d.Len() > 0 {
		out = append(out, s.d.PopFront())
	}
	return out
}

// Snapshot returns a copy of every item, in order.
func (s *Indexed[T]) Snapshot() []T {
	out := make([]T, s.d.Len())
	for i := range out {
		out[i] = s.d.At(i)
	}
	return out
}
