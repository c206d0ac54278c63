// Package cache implements the keyed source collection: a mutable map of
// T values under a single writer lock, whose edit transactions publish
// reduced ChangeSets to connect() subscribers. There is no database
// underneath, only an in-memory store and a multicast point.
package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/store"
)

// Editor is the mutation surface an edit function receives. Every call
// records a raw change against the key; the source reduces the full
// sequence recorded by one Edit call before applying or publishing
// anything, so intermediate states inside one transaction never leak out.
type Editor[K comparable, T any] struct {
	src *SourceCache[K, T]
	raw []streamset.Change[K, T]
}

// AddOrUpdate stages an Add (if key is new) or Update (if it already
// exists, carrying the previous value) for key/value.
func (e *Editor[K, T]) AddOrUpdate(key K, value T) {
	if prev, ok := e.current(key); ok {
		e.raw = append(e.raw, streamset.NewUpdateChange(key, prev, value))
		return
	}
	e.raw = append(e.raw, streamset.NewAddChange[K, T](key, value))
}

// Remove stages a Remove for key using its current value. It is a no-op
// if key is not present and was not added earlier in this transaction.
func (e *Editor[K, T]) Remove(key K) {
	if prev, ok := e.current(key); ok {
		e.raw = append(e.raw, streamset.NewRemoveChange(key, prev))
	}
}

// Refresh stages a Refresh for key's current value. It is a no-op if key
// is not present.
func (e *Editor[K, T]) Refresh(key K) {
	if prev, ok := e.current(key); ok {
		e.raw = append(e.raw, streamset.NewRefreshChange(key, prev))
	}
}

// Clear stages a Remove for every key currently known, including keys
// added earlier in this same transaction.
func (e *Editor[K, T]) Clear() {
	seen := make(map[K]bool)
	for _, c := range e.raw {
		seen[c.Key] = true
	}
	for _, key := range e.src.items.Keys() {
		if !seen[key] {
			e.Remove(key)
		}
	}
	for key := range seen {
		e.Remove(key)
	}
}

// current resolves a key's value as of this point in the transaction: the
// last staged raw change for the key if any, otherwise the committed store.
func (e *Editor[K, T]) current(key K) (T, bool) {
	for i := len(e.raw) - 1; i >= 0; i-- {
		if e.raw[i].Key != key {
			continue
		}
		if e.raw[i].Reason == streamset.Remove {
			var zero T
			return zero, false
		}
		return e.raw[i].Current, true
	}
	return e.src.items.Get(key)
}

// SourceCache is a mutable, observable keyed collection. Construct with
// New; the zero value is not usable.
type SourceCache[K comparable, T any] struct {
	mu    sync.Mutex
	items *store.Keyed[K, T]

	subject  *streamset.Subject[*streamset.ChangeSet[K, T]]
	keyTaps  map[K]*streamset.KeyTap[streamset.Change[K, T]]
	countBus *streamset.CountBus

	closed atomic.Bool
	err    error
}

// New returns an empty SourceCache.
func New[K comparable, T any]() *SourceCache[K, T] {
	return &SourceCache[K, T]{
		items:    store.NewKeyed[K, T](),
		subject:  streamset.NewSubject[*streamset.ChangeSet[K, T]](64),
		keyTaps:  make(map[K]*streamset.KeyTap[streamset.Change[K, T]]),
		countBus: streamset.NewCountBus(4),
	}
}

// Edit runs fn against a fresh Editor, reduces the raw changes it staged
// into a minimum-fidelity ChangeSet, applies that set to the store, and
// publishes it to every connect() subscriber, all under the source's
// single writer lock. A nil or empty result after reduction publishes
// nothing. Edit returns streamset.ErrClosed if the source was already
// closed.
func (s *SourceCache[K, T]) Edit(fn func(e *Editor[K, T])) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return streamset.ErrClosed
	}

	editor := &Editor[K, T]{src: s}
	fn(editor)
	if len(editor.raw) == 0 {
		return nil
	}

	changeSet, err := streamset.ReduceKeyed(editor.raw, s.items.Has)
	if err != nil {
		return streamset.NewMutationError(err)
	}
	if changeSet.Empty() {
		return nil
	}
	changeSet.TransactionID = uuid.NewString()

	for _, c := range changeSet.Changes {
		switch c.Reason {
		case streamset.Add, streamset.Update:
			s.items.Set(c.Key, c.Current)
		case streamset.Remove:
			s.items.Delete(c.Key)
		}
		if tap, ok := s.keyTaps[c.Key]; ok {
			tap.Publish(c)
		}
	}

	s.subject.Publish(changeSet)
	if changeSet.NetCountDelta() != 0 {
		s.countBus.Publish(s.items.Len())
	}
	return nil
}

// EditWithRetry runs Edit against a fresh Editor each attempt, retrying
// with streamset.Retry's exponential backoff whenever fn's recorded
// changes coalesce into a *streamset.CoalesceConflictError for some key
// — the in-memory counterpart of retrying an optimistic-concurrency write
// after a version conflict. fn must be safe to call more than once: a
// retried attempt sees a fresh Editor and should recompute its changes
// from the cache's current state (e.g. via Lookup) rather than closing
// over values captured before the first attempt.
func (s *SourceCache[K, T]) EditWithRetry(ctx context.Context, policy streamset.RetryPolicy, fn func(e *Editor[K, T])) error {
	isConflict := func(err error) bool {
		var conflict *streamset.CoalesceConflictError[K]
		return errors.As(err, &conflict)
	}
	_, err := streamset.Retry(ctx, policy, isConflict, func() (struct{}, error) {
		return struct{}{}, s.Edit(fn)
	})
	return err
}

// EditKeys runs fn exactly as Edit does. keys is accepted as the set of
// keys fn intends to touch, but it is not used: it is neither checked
// against the keys fn mutates nor passed on to subscribers or operators.
func (s *SourceCache[K, T]) EditKeys(keys []K, fn func(e *Editor[K, T])) error {
	return s.Edit(fn)
}

// AddOrUpdate is sugar for a single-key Edit.
func (s *SourceCache[K, T]) AddOrUpdate(key K, value T) error {
	return s.Edit(func(e *Editor[K, T]) { e.AddOrUpdate(key, value) })
}

// AddOrUpdateMany is sugar for a multi-key Edit over a map, applied in an
// unspecified but stable key order within the call.
func (s *SourceCache[K, T]) AddOrUpdateMany(values map[K]T) error {
	return s.Edit(func(e *Editor[K, T]) {
		for k, v := range values {
			e.AddOrUpdate(k, v)
		}
	})
}

// Remove is sugar for a single-key Edit.
func (s *SourceCache[K, T]) Remove(key K) error {
	return s.Edit(func(e *Editor[K, T]) { e.Remove(key) })
}

// RemoveMany removes every key in keys within a single Edit transaction,
// so subscribers observe one coalesced ChangeSet instead of one per key.
func (s *SourceCache[K, T]) RemoveMany(keys []K) error {
	return s.Edit(func(e *Editor[K, T]) {
		for _, k := range keys {
			e.Remove(k)
		}
	})
}

// RemoveValue removes key only if its current value matches predicate; it
// returns whether anything was removed.
func (s *SourceCache[K, T]) RemoveValue(key K, predicate func(T) bool) (bool, error) {
	removed := false
	err := s.Edit(func(e *Editor[K, T]) {
		v, ok := s.items.Get(key)
		if !ok || !predicate(v) {
			return
		}
		e.Remove(key)
		removed = true
	})
	return removed, err
}

// Refresh is sugar for a single-key Edit.
func (s *SourceCache[K, T]) Refresh(key K) error {
	return s.Edit(func(e *Editor[K, T]) { e.Refresh(key) })
}

// RefreshMany refreshes every key in keys that is currently present.
func (s *SourceCache[K, T]) RefreshMany(keys []K) error {
	return s.Edit(func(e *Editor[K, T]) {
		for _, k := range keys {
			e.Refresh(k)
		}
	})
}

// RefreshAll refreshes every key currently present.
func (s *SourceCache[K, T]) RefreshAll() error {
	return s.Edit(func(e *Editor[K, T]) {
		for _, k := range s.items.Keys() {
			e.Refresh(k)
		}
	})
}

// Clear removes every item currently present.
func (s *SourceCache[K, T]) Clear() error {
	return s.Edit(func(e *Editor[K, T]) { e.Clear() })
}

// Lookup returns the current value for key, if present. Safe to call
// concurrently with Edit.
func (s *SourceCache[K, T]) Lookup(key K) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Get(key)
}

// Count returns the current number of items.
func (s *SourceCache[K, T]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Len()
}

// current resolves a key's committed value; used by Editor.
func (s *SourceCache[K, T]) current(key K) (T, bool) {
	return s.items.Get(key)
}

// Connect returns an Observable that, for each subscriber, delivers a
// synthetic initial ChangeSet (one Add per item currently present) and
// then every live edit transaction's ChangeSet thereafter, with no gap
// and no duplicate — the snapshot and subscriber registration happen
// atomically under the source's writer lock.
func (s *SourceCache[K, T]) Connect() streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
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

		initial := streamset.NewChangeSet[K, T]()
		for key, value := range s.items.Snapshot() {
			initial.Append(streamset.NewAddChange[K, T](key, value))
		}

		ch, unsub := s.subject.SubscribeWithInitial(initial, 64)
		s.mu.Unlock()

		forward := streamset.ObserveChannel(ch, s.subject.Err, observer)
		return dualSubscription{forward, unsub}
	})
}

// ConnectWhere is Connect's filtered fast path: the initial snapshot and
// every subsequent ChangeSet are restricted to items currently matching
// predicate, translating an Update/Refresh that moves an item across the
// predicate boundary into an Add or Remove so a subscriber never sees a
// stale non-match. predicate is re-evaluated for every Add, Update and
// Refresh change, whether or not the key was included before.
func (s *SourceCache[K, T]) ConnectWhere(predicate func(key K, value T) bool) streamset.Observable[*streamset.ChangeSet[K, T]] {
	return streamset.ObservableFunc[*streamset.ChangeSet[K, T]](func(observer streamset.Observer[*streamset.ChangeSet[K, T]]) streamset.Subscription {
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

		included := make(map[K]bool)
		initial := streamset.NewChangeSet[K, T]()
		for key, value := range s.items.Snapshot() {
			if predicate(key, value) {
				included[key] = true
				initial.Append(streamset.NewAddChange[K, T](key, value))
			}
		}

		ch, unsub := s.subject.SubscribeWithInitial(initial, 64)
		s.mu.Unlock()

		filtered := streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
			Next: func(cs *streamset.ChangeSet[K, T]) {
				out := streamset.NewChangeSet[K, T]()
				for _, c := range cs.Changes {
					matches := c.Reason != streamset.Remove && predicate(c.Key, c.Current)
					wasIncluded := included[c.Key]
					switch {
					case c.Reason == streamset.Remove:
						if wasIncluded {
							delete(included, c.Key)
							out.Append(c)
						}
					case matches && !wasIncluded:
						included[c.Key] = true
						out.Append(streamset.NewAddChange[K, T](c.Key, c.Current))
					case !matches && wasIncluded:
						delete(included, c.Key)
						out.Append(streamset.NewRemoveChange(c.Key, c.Current))
					case matches && wasIncluded:
						out.Append(c)
					}
				}
				if !out.Empty() {
					observer.OnNext(out)
				}
			},
			Err:       observer.OnError,
			Completed: observer.OnCompleted,
		}

		forward := streamset.ObserveChannel(ch, s.subject.Err, filtered)
		return dualSubscription{forward, unsub}
	})
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

// Close terminates the source: no further Edit is accepted, and every
// connect() subscriber observes OnError(err) (if err is non-nil) or a
// clean OnCompleted.
func (s *SourceCache[K, T]) Close(err error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.mu.Lock()
	s.err = err
	taps := s.keyTaps
	s.keyTaps = make(map[K]*streamset.KeyTap[streamset.Change[K, T]])
	s.mu.Unlock()
	s.subject.Close(err)
	s.countBus.Close()
	for _, tap := range taps {
		tap.Close()
	}
}

// WatchKey returns an Observable of every Change touching key. A
// subscriber only sees changes from Edit calls made after it subscribes;
// there is no initial snapshot, since a single key's current value is
// available synchronously via Lookup.
func (s *SourceCache[K, T]) WatchKey(key K) streamset.Observable[streamset.Change[K, T]] {
	return streamset.ObservableFunc[streamset.Change[K, T]](func(observer streamset.Observer[streamset.Change[K, T]]) streamset.Subscription {
		s.mu.Lock()
		tap, ok := s.keyTaps[key]
		if !ok {
			tap = streamset.NewKeyTap[streamset.Change[K, T]]()
			s.keyTaps[key] = tap
		}
		ch, unsub := tap.Subscribe()
		s.mu.Unlock()

		forward := streamset.ObserveChannel(ch, func() error { return nil }, observer)
		return dualSubscription{forward, unsub}
	})
}

// CountChanged returns a stream of the collection's size, published after
// every Edit that changes it.
func (s *SourceCache[K, T]) CountChanged() (<-chan int, streamset.Subscription) {
	return s.countBus.Subscribe()
}
