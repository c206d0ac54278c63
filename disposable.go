package streamset

import (
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
)

// Disposable is anything holding a resource that must be released
// exactly once. Dispose returns any error encountered while releasing
// nested resources; most Disposables never fail and return nil.
type Disposable interface {
	Dispose() error
}

// DisposableFunc adapts a plain func() error into a Disposable.
type DisposableFunc func() error

func (f DisposableFunc) Dispose() error { return f() }

// CompositeDisposable owns a set of child Disposables (or bare
// Subscriptions) and releases all of them exactly once, combining any
// errors with go.uber.org/multierr. It is the building block for an
// operator's "dispose tears down every per-item resource it owns" duty.
type CompositeDisposable struct {
	mu       sync.Mutex
	children []Disposable
	disposed atomic.Bool
}

// NewCompositeDisposable returns an empty CompositeDisposable.
func NewCompositeDisposable() *CompositeDisposable {
	return &CompositeDisposable{}
}

// Add registers a child to be disposed when the composite is disposed. If
// the composite has already been disposed, d is disposed immediately.
func (c *CompositeDisposable) Add(d Disposable) {
	if c.disposed.Load() {
		_ = d.Dispose()
		return
	}
	c.mu.Lock()
	if c.disposed.Load() {
		c.mu.Unlock()
		_ = d.Dispose()
		return
	}
	c.children = append(c.children, d)
	c.mu.Unlock()
}

// AddSubscription adopts a bare Subscription (e.g. from Observable.Subscribe).
func (c *CompositeDisposable) AddSubscription(s Subscription) {
	c.Add(DisposableFunc(func() error { s.Dispose(); return nil }))
}

// Count returns the number of children currently held.
func (c *CompositeDisposable) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.children)
}

// Dispose releases every child exactly once, in insertion order,
// returning the combined error (nil if every child disposed cleanly or
// the composite was already disposed).
func (c *CompositeDisposable) Dispose() error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}
	c.mu.Lock()
	children := c.children
	c.children = nil
	c.mu.Unlock()

	var err error
	for _, child := range children {
		err = multierr.Append(err, child.Dispose())
	}
	return err
}

// KeyedDisposables tracks one Disposable per key — the "subscription
// forest" shape used by merge_many, filter_on_observable, and
// transform_on_property: on a key's removal, dispose
// and drop just that entry; on DisposeAll, dispose every remaining entry.
type KeyedDisposables[K comparable] struct {
	mu    sync.Mutex
	items map[K]Disposable
}

// NewKeyedDisposables returns an empty KeyedDisposables.
func NewKeyedDisposables[K comparable]() *KeyedDisposables[K] {
	return &KeyedDisposables[K]{items: make(map[K]Disposable)}
}

// Set registers d for key, disposing and replacing any prior entry for
// the same key.
func (k *KeyedDisposables[K]) Set(key K, d Disposable) {
	k.mu.Lock()
	old, had := k.items[key]
	k.items[key] = d
	k.mu.Unlock()
	if had {
		_ = old.Dispose()
	}
}

// Drop disposes and removes the entry for key, if any.
func (k *KeyedDisposables[K]) Drop(key K) error {
	k.mu.Lock()
	d, ok := k.items[key]
	if ok {
		delete(k.items, key)
	}
	k.mu.Unlock()
	if !ok {
		return nil
	}
	return d.Dispose()
}

// DisposeAll disposes every remaining entry and clears the map,
// combining their errors with go.uber.org/multierr.
func (k *KeyedDisposables[K]) DisposeAll() error {
	k.mu.Lock()
	items := k.items
	k.items = make(map[K]Disposable)
	k.mu.Unlock()

	var err error
	for _, d := range items {
		err = multierr.Append(err, d.Dispose())
	}
	return err
}
