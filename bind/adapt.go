// Package bind declares the interface an external mutable collection
// (a UI framework's observable list, a GUI widget's model, anything with
// its own change-notification story) must satisfy to receive list
// changes through Adapt. The package defines no concrete adapter for any
// specific framework — that binding is left to callers, the same way the
// core only consumes a Scheduler or Deferred contract rather than owning
// a clock or task runtime implementation.
package bind

import "github.com/flowbase/streamset"

// Target is the minimal mutation surface Adapt drives. Implementations
// own their own change notification (e.g. a UI list's "items changed"
// event) and are expected to fire it synchronously inside each method.
type Target[T any] interface {
	InsertAt(index int, item T)
	RemoveAt(index int)
	ReplaceAt(index int, item T)
	// Reset replaces the target's entire contents in one notification,
	// used for ListClear so a clear never fires one notification per
	// formerly-present item.
	Reset(items []T)
}

// Mover is an optional capability a Target can additionally implement to
// receive ListMoved as a single move instruction instead of Adapt's
// fallback of a remove followed by an insert.
type Mover interface {
	MoveAt(fromIndex, toIndex int)
}

// Adapt applies every change in cs to target: one Target call per
// single-item change (ListAdd/ListRemove/ListReplace/ListRefresh/
// ListMoved), one call per item for the range variants, and a single
// Reset for ListClear rather than one RemoveAt per formerly-present
// item. A ListMoved becomes a single MoveAt call when target implements
// Mover, falling back to a RemoveAt/InsertAt pair otherwise.
func Adapt[T any](cs *streamset.ListChangeSet[T], target Target[T]) {
	for _, c := range cs.Changes {
		switch c.Reason {
		case streamset.ListAdd:
			target.InsertAt(c.Index, c.Items[0])
		case streamset.ListAddRange:
			for i, item := range c.Items {
				target.InsertAt(c.Index+i, item)
			}
		case streamset.ListRemove:
			target.RemoveAt(c.Index)
		case streamset.ListRemoveRange:
			for i := 0; i < c.Count; i++ {
				target.RemoveAt(c.Index)
			}
		case streamset.ListReplace:
			target.ReplaceAt(c.Index, c.Items[0])
		case streamset.ListRefresh:
			target.ReplaceAt(c.Index, c.Items[0])
		case streamset.ListMoved:
			if mover, ok := target.(Mover); ok {
				mover.MoveAt(c.PreviousIndex, c.Index)
				continue
			}
			target.RemoveAt(c.PreviousIndex)
			target.InsertAt(c.Index, c.Items[0])
		case streamset.ListClear:
			target.Reset(nil)
		}
	}
}
