package streamset

// ChangeSet is an ordered batch of Changes emitted by a single edit
// transaction on a keyed collection, with running counts so downstream
// code can cheaply decide "did the count change" without rescanning.
type ChangeSet[K comparable, T any] struct {
	Changes []Change[K, T]

	Adds      int
	Updates   int
	Removes   int
	Refreshes int
	Moves     int

	// TransactionID identifies the edit transaction this set originated
	// from, for correlating a source collection's own log output with
	// whatever a downstream subscriber logs about the same mutation. Set
	// by the source collection's Edit; a ChangeSet an operator builds
	// itself leaves it empty, and one an operator forwards unchanged keeps
	// it.
	TransactionID string
}

// NewChangeSet returns an empty ChangeSet ready for Append.
func NewChangeSet[K comparable, T any]() *ChangeSet[K, T] {
	return &ChangeSet[K, T]{}
}

// Append adds c to the set and updates the running counters.
func (cs *ChangeSet[K, T]) Append(c Change[K, T]) {
	cs.Changes = append(cs.Changes, c)
	switch c.Reason {
	case Add:
		cs.Adds++
	case Update:
		cs.Updates++
	case Remove:
		cs.Removes++
	case Refresh:
		cs.Refreshes++
	case Moved:
		cs.Moves++
	}
}

// Len returns the number of changes in the set.
func (cs *ChangeSet[K, T]) Len() int { return len(cs.Changes) }

// Empty reports whether the set carries no changes. Sources publish an
// empty change set only as the initial snapshot a Connect subscriber
// receives from an empty collection; operators do not emit empty sets of
// their own making.
func (cs *ChangeSet[K, T]) Empty() bool { return cs == nil || len(cs.Changes) == 0 }

// NetCountDelta returns how much the collection's size changed because of
// this change set: +1 per Add, -1 per Remove.
func (cs *ChangeSet[K, T]) NetCountDelta() int { return cs.Adds - cs.Removes }

// ListChangeSet is an ordered batch of ListChanges emitted by a single
// edit transaction on an indexed collection.
type ListChangeSet[T any] struct {
	Changes []ListChange[T]

	Adds      int // includes items added via AddRange
	Removes   int // includes items removed via RemoveRange and Clear
	Replaces  int
	Moves     int
	Refreshes int

	// TransactionID identifies the edit transaction this set originated
	// from; see ChangeSet.TransactionID.
	TransactionID string
}

// NewListChangeSet returns an empty ListChangeSet ready for Append.
func NewListChangeSet[T any]() *ListChangeSet[T] {
	return &ListChangeSet[T]{}
}

// Append adds c to the set and updates the running counters.
func (cs *ListChangeSet[T]) Append(c ListChange[T]) {
	cs.Changes = append(cs.Changes, c)
	switch c.Reason {
	case ListAdd, ListAddRange:
		cs.Adds += len(c.Items)
	case ListRemove, ListRemoveRange, ListClear:
		cs.Removes += len(c.Items)
	case ListReplace:
		cs.Replaces++
	case ListMoved:
		cs.Moves++
	case ListRefresh:
		cs.Refreshes++
	}
}

// Len returns the number of changes in the set.
func (cs *ListChangeSet[T]) Len() int { return len(cs.Changes) }

// Empty reports whether the set carries no changes.
func (cs *ListChangeSet[T]) Empty() bool { return cs == nil || len(cs.Changes) == 0 }

// NetCountDelta returns how much the collection's length changed because
// of this change set.
func (cs *ListChangeSet[T]) NetCountDelta() int { return cs.Adds - cs.Removes }
