// Package list implements the indexed source collection: a mutable,
// ordered sequence of T values under a single writer lock, whose edit
// transactions publish ListChangeSets to connect() subscribers.
package list

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/store"
)

// Editor is the positional mutation surface an edit function receives.
// Every call appends a ListChange describing exactly what happened;
// unlike the keyed cache's Editor, positional edits are not coalesced —
// each is applied to the backing store immediately so later calls in the
// same transaction see up-to-date indices, and the whole batch is
// published as one ListChangeSet.
type Editor[T any] struct {
	src     *SourceList[T]
	changes []streamset.ListChange[T]
}

// Append adds value at the end.
func (e *Editor[T]) Append(value T) {
	idx := e.src.items.Len()
	e.src.items.Append(value)
	e.changes = append(e.changes, streamset.NewListAddChange(idx, value))
}

// Insert inserts value at index. Returns ErrIndexOutOfRange if index is
// not in [0, Len()].
func (e *Editor[T]) Insert(index int, value T) error {
	if index < 0 || index > e.src.items.Len() {
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	e.src.items.Insert(index, value)
	e.changes = append(e.changes, streamset.NewListAddChange(index, value))
	return nil
}

// InsertRange inserts values starting at index, preserving order.
func (e *Editor[T]) InsertRange(index int, values []T) error {
	if index < 0 || index > e.src.items.Len() || len(values) == 0 {
		if len(values) == 0 {
			return nil
		}
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	e.src.items.InsertRange(index, values)
	e.changes = append(e.changes, streamset.NewListAddRangeChange(index, values))
	return nil
}

// RemoveAt removes the item at index.
func (e *Editor[T]) RemoveAt(index int) error {
	if index < 0 || index >= e.src.items.Len() {
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	v := e.src.items.RemoveAt(index)
	e.changes = append(e.changes, streamset.NewListRemoveChange(index, v))
	return nil
}

// RemoveRange removes count items starting at index.
func (e *Editor[T]) RemoveRange(index, count int) error {
	if count == 0 {
		return nil
	}
	if index < 0 || count < 0 || index+count > e.src.items.Len() {
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	items := e.src.items.RemoveRange(index, count)
	e.changes = append(e.changes, streamset.NewListRemoveRangeChange(index, items))
	return nil
}

// RemoveMany removes every item for which predicate returns true,
// scanning back to front so earlier indices stay valid as later ones are
// removed, and emits one ListRemove change per removed item in that same
// descending index order, so each change's Index is the item's position
// at the moment it was removed.
func (e *Editor[T]) RemoveMany(predicate func(T) bool) {
	for i := e.src.items.Len() - 1; i >= 0; i-- {
		if !predicate(e.src.items.At(i)) {
			continue
		}
		v := e.src.items.RemoveAt(i)
		e.changes = append(e.changes, streamset.NewListRemoveChange(i, v))
	}
}

// ReplaceAt overwrites the item at index in place.
func (e *Editor[T]) ReplaceAt(index int, value T) error {
	if index < 0 || index >= e.src.items.Len() {
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	prev := e.src.items.At(index)
	e.src.items.Set(index, value)
	e.changes = append(e.changes, streamset.NewListReplaceChange(index, prev, value))
	return nil
}

// Move relocates the item at fromIndex to toIndex.
func (e *Editor[T]) Move(fromIndex, toIndex int) error {
	n := e.src.items.Len()
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return streamset.NewIndexOutOfRangeError(toIndex, n)
	}
	if fromIndex == toIndex {
		return nil
	}
	v := e.src.items.Move(fromIndex, toIndex)
	e.changes = append(e.changes, streamset.NewListMovedChange(v, fromIndex, toIndex))
	return nil
}

// RefreshAt signals that the item at index changed externally without
// replacing the stored value.
func (e *Editor[T]) RefreshAt(index int) error {
	if index < 0 || index >= e.src.items.Len() {
		return streamset.NewIndexOutOfRangeError(index, e.src.items.Len())
	}
	e.changes = append(e.changes, streamset.NewListRefreshChange(index, e.src.items.At(index)))
	return nil
}

// Refresh signals every item currently present, in index order.
func (e *Editor[T]) Refresh() {
	for i := 0; i < e.src.items.Len(); i++ {
		e.changes = append(e.changes, streamset.NewListRefreshChange(i, e.src.items.At(i)))
	}
}

// Clear removes every item.
func (e *Editor[T]) Clear() {
	items := e.src.items.Clear()
	if len(items) == 0 {
		return
	}
	e.changes = append(e.changes, streamset.NewListClearChange(items))
}

// SourceList is a mutable, observable indexed collection. Construct with
// New; the zero value is not usable.
type SourceList[T any] struct {
	mu    sync.Mutex
	items *store.Indexed[T]

	subject  *streamset.Subject[*streamset.ListChangeSet[T]]
	countBus *streamset.CountBus

	closed atomic.Bool
	err    error
}

// New returns an empty SourceList.
func New[T any]() *SourceList[T] {
	return &SourceList[T]{
		items:    store.NewIndexed[T](),
		subject:  streamset.NewSubject[*streamset.ListChangeSet[T]](64),
		countBus: streamset.NewCountBus(4),
	}
}

// Edit runs fn against a fresh Editor, publishing the batch of
// ListChanges it recorded as one ListChangeSet, under the source's
// single writer lock. Every Editor method applies to the backing store
// immediately (positional edits are not retroactively coalesced the way
// the keyed cache's edits are), so fn sees up-to-date indices across
// several calls within one transaction.
func (s *SourceList[T]) Edit(fn func(e *Editor[T])) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return streamset.ErrClosed
	}

	editor := &Editor[T]{src: s}
	fn(editor)
	if len(editor.changes) == 0 {
		return nil
	}

	changeSet := streamset.NewListChangeSet[T]()
	for _, c := range editor.changes {
		changeSet.Append(c)
	}
	changeSet.TransactionID = uuid.NewString()

	s.subject.Publish(changeSet)
	if changeSet.NetCountDelta() != 0 {
		s.countBus.Publish(s.items.Len())
	}
	return nil
}

// Append is sugar for a single-item Edit.
func (s *SourceList[T]) Append(value T) error {
	return s.Edit(func(e *Editor[T]) { e.Append(value) })
}

// AppendRange is sugar for a multi-item Edit.
func (s *SourceList[T]) AppendRange(values []T) error {
	return s.Edit(func(e *Editor[T]) { e.InsertRange(e.src.items.Len(), values) })
}

// RemoveAt is sugar for a single-index Edit.
func (s *SourceList[T]) RemoveAt(index int) error {
	var opErr error
	err := s.Edit(func(e *Editor[T]) { opErr = e.RemoveAt(index) })
	if err != nil {
		return err
	}
	return opErr
}

// Clear removes every item.
func (s *SourceList[T]) Clear() error {
	return s.Edit(func(e *Editor[T]) { e.Clear() })
}

// At returns the item at index and whether index was in bounds. Safe to
// call concurrently with Edit.
func (s *SourceList[T]) At(index int) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= s.items.Len() {
		var zero T
		return zero, false
	}
	return s.items.At(index), true
}

// Len returns the current number of items.
func (s *SourceList[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Len()
}

// Connect returns an Observable that, for each subscriber, delivers a
// synthetic initial ListChangeSet (one AddRange covering the full current
// sequence) and then every live edit transaction's ListChangeSet
// thereafter.
func (s *SourceList[T]) Connect() streamset.Observable[*streamset.ListChangeSet[T]] {
	return streamset.ObservableFunc[*streamset.ListChangeSet[T]](func(observer streamset.Observer[*streamset.ListChangeSet[T]]) streamset.Subscription {
		s.mu.Lock()
		if s.closed.Load() {
			err := s.err
			s.mu.Unlock()
			if err != nil {
				observer.OnError(err)
			} else {
				observer.OnCompleted()
			}
			return noopSubscription{}
		}

		initial := streamset.NewListChangeSet[T]()
		if snap := s.items.Snapshot(); len(snap) > 0 {
			initial.Append(streamset.NewListAddRangeChange(0, snap))
		}

		ch, unsub := s.subject.SubscribeWithInitial(initial, 64)
		s.mu.Unlock()

		forward := streamset.ObserveChannel(ch, s.subject.Err, observer)
		return dualSubscription{forward, unsub}
	})
}

// Close terminates the source: no further Edit is accepted, and every
// connect() subscriber observes OnError(err) (if err is non-nil) or a
// clean OnCompleted.
func (s *SourceList[T]) Close(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.subject.Close(err)
	s.countBus.Close()
}

// CountChanged returns a stream of the collection's length, published
// after every Edit that changes it.
func (s *SourceList[T]) CountChanged() (<-chan int, streamset.Subscription) {
	return s.countBus.Subscribe()
}

type noopSubscription struct{}

func (noopSubscription) Dispose() {}

type dualSubscription struct {
	a, b streamset.Subscription
}

func (d dualSubscription) Dispose() {
	d.a.Dispose()
	d.b.Dispose()
}
