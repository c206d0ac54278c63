// Package streamset implements reactive observable collections: keyed
// caches and ordered lists whose mutations are published as structured
// change sets to subscribers, composable through an operator algebra
// (filter, transform, sort, group, join, aggregate, paginate, expire,
// buffer) into derived reactive collections.
//
// The package is organized as a small set of value types describing a
// mutation (Change, ChangeSet), a minimal push-observer contract consumed
// by every moving part (Observable, Observer), and the concrete source
// collections and operators built on top of them in the sibling cache,
// list, operator, and store packages.
package streamset

import "fmt"

// Reason identifies the kind of mutation a Change describes.
type Reason int

const (
	// Add indicates a new item entered the collection.
	Add Reason = iota
	// Update indicates an existing item's value changed.
	Update
	// Remove indicates an item left the collection.
	Remove
	// Refresh signals that an item's externally observed state changed
	// without the collection replacing the stored value.
	Refresh
	// Moved indicates an item's position changed without its value
	// changing; only order-aware producers (e.g. a sort operator) emit
	// this reason.
	Moved
)

// String implements fmt.Stringer for diagnostics and test failure output.
func (r Reason) String() string {
	switch r {
	case Add:
		return "Add"
	case Update:
		return "Update"
	case Remove:
		return "Remove"
	case Refresh:
		return "Refresh"
	case Moved:
		return "Moved"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// noIndex marks an unset CurrentIndex/PreviousIndex.
const noIndex = -1

// Change describes a single per-item mutation inside a keyed collection.
//
// Invariants (enforced by the New*Change constructors):
//   - Update always carries a Previous value.
//   - Add and Remove never carry a Previous value.
//   - Moved requires CurrentIndex and PreviousIndex to be set and distinct.
type Change[K comparable, T any] struct {
	Reason Reason
	Key    K

	// Current is the item's value after the change. It is populated for
	// Add, Update, Refresh, and Moved, and holds the last known value for
	// Remove.
	Current T

	// Previous is the item's value before the change. Only meaningful
	// when HasPrevious is true (Update always sets it).
	Previous    T
	HasPrevious bool

	// CurrentIndex and PreviousIndex are populated by sort- or
	// order-aware producers; noIndex (-1) means "not applicable".
	CurrentIndex  int
	PreviousIndex int
}

// NewAddChange constructs an Add change for key with the given value.
func NewAddChange[K comparable, T any](key K, current T) Change[K, T] {
	return Change[K, T]{Reason: Add, Key: key, Current: current, CurrentIndex: noIndex, PreviousIndex: noIndex}
}

// NewUpdateChange constructs an Update change; previous is mandatory.
func NewUpdateChange[K comparable, T any](key K, previous, current T) Change[K, T] {
	return Change[K, T]{
		Reason: Update, Key: key, Current: current,
		Previous: previous, HasPrevious: true,
		CurrentIndex: noIndex, PreviousIndex: noIndex,
	}
}

// NewRemoveChange constructs a Remove change carrying the item's last
// known value.
func NewRemoveChange[K comparable, T any](key K, current T) Change[K, T] {
	return Change[K, T]{Reason: Remove, Key: key, Current: current, CurrentIndex: noIndex, PreviousIndex: noIndex}
}

// NewRefreshChange constructs a Refresh change: the stored value is
// unchanged, but subscribers should re-evaluate anything derived from it.
func NewRefreshChange[K comparable, T any](key K, current T) Change[K, T] {
	return Change[K, T]{Reason: Refresh, Key: key, Current: current, CurrentIndex: noIndex, PreviousIndex: noIndex}
}

// NewMovedChange constructs a Moved change. previousIndex and
// currentIndex must be distinct and non-negative.
func NewMovedChange[K comparable, T any](key K, current T, previousIndex, currentIndex int) Change[K, T] {
	if previousIndex == currentIndex {
		panic("streamset: Moved change requires distinct indices")
	}
	if previousIndex < 0 || currentIndex < 0 {
		panic("streamset: Moved change requires non-negative indices")
	}
	return Change[K, T]{
		Reason: Moved, Key: key, Current: current,
		CurrentIndex: currentIndex, PreviousIndex: previousIndex,
	}
}

// ListReason identifies the kind of mutation a ListChange describes.
type ListReason int

const (
	// ListAdd indicates a single item was inserted at Index.
	ListAdd ListReason = iota
	// ListAddRange indicates Items were inserted starting at Index.
	ListAddRange
	// ListRemove indicates a single item was removed from Index.
	ListRemove
	// ListRemoveRange indicates a contiguous run of items starting at
	// Index was removed.
	ListRemoveRange
	// ListReplace indicates the item at Index was replaced in place.
	ListReplace
	// ListMoved indicates an item moved from PreviousIndex to Index.
	ListMoved
	// ListRefresh signals an item's externally observed state changed
	// without replacing the stored value.
	ListRefresh
	// ListClear indicates every item was removed.
	ListClear
)

func (r ListReason) String() string {
	switch r {
	case ListAdd:
		return "Add"
	case ListAddRange:
		return "AddRange"
	case ListRemove:
		return "Remove"
	case ListRemoveRange:
		return "RemoveRange"
	case ListReplace:
		return "Replace"
	case ListMoved:
		return "Moved"
	case ListRefresh:
		return "Refresh"
	case ListClear:
		return "Clear"
	default:
		return fmt.Sprintf("ListReason(%d)", int(r))
	}
}

// ListChange describes a single mutation inside an indexed (ordered)
// collection. Range variants (ListAddRange/ListRemoveRange) carry an
// ordered sequence of Items plus the starting Index; ListReplace carries
// (Previous, Current, Index); ListMoved carries (Current, PreviousIndex,
// Index).
type ListChange[T any] struct {
	Reason ListReason

	// Items holds the affected values: a single-element slice for
	// Add/Remove/Replace/Moved/Refresh, the full run for the Range
	// variants, and the items present just before the clear for Clear.
	Items []T

	// Index is the position the change occurs at (the insertion point
	// for Add/AddRange, the removed position for Remove, the destination
	// for Moved).
	Index int

	// PreviousIndex is populated only for ListMoved.
	PreviousIndex int

	// Previous is populated only for ListReplace.
	Previous    T
	HasPrevious bool

	// Count is the number of items removed by ListRemoveRange.
	Count int
}

// NewListAddChange constructs a single-item insertion at index.
func NewListAddChange[T any](index int, item T) ListChange[T] {
	return ListChange[T]{Reason: ListAdd, Items: []T{item}, Index: index, PreviousIndex: noIndex}
}

// NewListAddRangeChange constructs a multi-item insertion starting at index.
func NewListAddRangeChange[T any](index int, items []T) ListChange[T] {
	return ListChange[T]{Reason: ListAddRange, Items: items, Index: index, PreviousIndex: noIndex}
}

// NewListRemoveChange constructs a single-item removal at index.
func NewListRemoveChange[T any](index int, item T) ListChange[T] {
	return ListChange[T]{Reason: ListRemove, Items: []T{item}, Index: index, PreviousIndex: noIndex}
}

// NewListRemoveRangeChange constructs a contiguous removal of count items
// starting at index.
func NewListRemoveRangeChange[T any](index int, items []T) ListChange[T] {
	return ListChange[T]{Reason: ListRemoveRange, Items: items, Index: index, Count: len(items), PreviousIndex: noIndex}
}

// NewListReplaceChange constructs an in-place replacement at index.
func NewListReplaceChange[T any](index int, previous, current T) ListChange[T] {
	return ListChange[T]{
		Reason: ListReplace, Items: []T{current}, Index: index,
		Previous: previous, HasPrevious: true, PreviousIndex: noIndex,
	}
}

// NewListMovedChange constructs a move from fromIndex to toIndex.
func NewListMovedChange[T any](item T, fromIndex, toIndex int) ListChange[T] {
	if fromIndex == toIndex {
		panic("streamset: Moved list change requires distinct indices")
	}
	return ListChange[T]{Reason: ListMoved, Items: []T{item}, Index: toIndex, PreviousIndex: fromIndex}
}

// NewListRefreshChange constructs a refresh signal for the item at index.
func NewListRefreshChange[T any](index int, item T) ListChange[T] {
	return ListChange[T]{Reason: ListRefresh, Items: []T{item}, Index: index, PreviousIndex: noIndex}
}

// NewListClearChange constructs a clear change carrying the items that
// were present immediately before the clear.
func NewListClearChange[T any](items []T) ListChange[T] {
	return ListChange[T]{Reason: ListClear, Items: items, Index: noIndex, PreviousIndex: noIndex}
}
