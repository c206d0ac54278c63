package operator

import (
	"sync"

	"github.com/flowbase/streamset"
	"github.com/flowbase/streamset/cache"
)

// ParentSelector computes the parent an item currently declares, if any.
// It is re-evaluated on every Add/Update, so re-parenting (including
// forming or breaking a cycle) is driven entirely by upstream edits.
type ParentSelector[K comparable, T any] func(key K, value T) (parentKey K, hasParent bool)

// Node is one vertex of the forest TransformToTree builds: Value plus an
// owned Children cache holding exactly this node's current child Nodes,
// keyed the same way the root collection is.
type Node[K comparable, T any] struct {
	Key      K
	Value    T
	Children *cache.SourceCache[K, *Node[K, T]]
}

// TransformToTree builds a forest of Nodes from a flat keyed collection
// plus a parent selector. A node attaches under its declared parent's
// Children cache once that parent exists; until then, or once it is
// orphaned again, it surfaces as a root in the returned outer cache.
// Removing a node promotes its own children back to roots rather than
// reattaching them to a grandparent.
//
// Cyclic declared parentage (a node naming itself, directly or through a
// chain of re-parenting, as an ancestor) is treated as having no parent:
// the node surfaces as a root until a later update breaks the cycle.
// Detecting this walks the declared-parent chain at most len(nodes) steps
// per affected node, so a cycle can never cause unbounded recomputation.
func TransformToTree[K comparable, T any](upstream streamset.Observable[*streamset.ChangeSet[K, T]], parentSelector ParentSelector[K, T]) *cache.SourceCache[K, *Node[K, T]] {
	roots := cache.New[K, *Node[K, T]]()

	var mu sync.Mutex
	nodes := make(map[K]*Node[K, T])
	declaredParent := make(map[K]K)
	hasDeclaredParent := make(map[K]bool)
	attachedTo := make(map[K]K) // current parent the node is actually filed under
	isRoot := make(map[K]bool)

	containerFor := func(key K) *cache.SourceCache[K, *Node[K, T]] {
		if parent, ok := attachedTo[key]; ok {
			if pn, ok := nodes[parent]; ok {
				return pn.Children
			}
		}
		return roots
	}

	// wellFounded reports whether following declaredParent from key reaches
	// a key with no declared parent, without returning to key, within at
	// most len(nodes) hops.
	wellFounded := func(key K) bool {
		cur, ok := declaredParent[key]
		if !ok {
			return true
		}
		for i := 0; i < len(nodes); i++ {
			if cur == key {
				return false
			}
			next, ok := declaredParent[cur]
			if !ok {
				return true
			}
			cur = next
		}
		return false
	}

	detach := func(key K) {
		if _, ok := nodes[key]; !ok {
			return
		}
		_ = containerFor(key).Remove(key)
		delete(attachedTo, key)
	}

	attach := func(key K) {
		node := nodes[key]
		parent, hasParent := declaredParent[key], hasDeclaredParent[key]
		if hasParent && wellFounded(key) {
			if pn, ok := nodes[parent]; ok {
				attachedTo[key] = parent
				isRoot[key] = false
				_ = pn.Children.AddOrUpdate(key, node)
				return
			}
		}
		isRoot[key] = true
		delete(attachedTo, key)
		_ = roots.AddOrUpdate(key, node)
	}

	reattach := func(key K) {
		detach(key)
		attach(key)
	}

	upsert := func(key K, value T) {
		node, existed := nodes[key]
		if !existed {
			node = &Node[K, T]{Key: key, Value: value, Children: cache.New[K, *Node[K, T]]()}
			nodes[key] = node
		} else {
			node.Value = value
		}
		if pk, ok := parentSelector(key, value); ok {
			declaredParent[key] = pk
			hasDeclaredParent[key] = true
		} else {
			delete(declaredParent, key)
			hasDeclaredParent[key] = false
		}
		reattach(key)

		// Children that were waiting on this key as their parent may now
		// attach under it instead of surfacing as roots.
		for childKey := range nodes {
			if childKey == key {
				continue
			}
			if p, ok := declaredParent[childKey]; ok && p == key && isRoot[childKey] {
				reattach(childKey)
			}
		}
	}

	remove := func(key K) {
		node, ok := nodes[key]
		if !ok {
			return
		}
		detach(key)

		var childKeys []K
		for child, parent := range attachedTo {
			if parent == key {
				childKeys = append(childKeys, child)
			}
		}
		// Move children out of the dying node's own Children cache before
		// it disappears from nodes, then delete its bookkeeping.
		for _, childKey := range childKeys {
			_ = node.Children.Remove(childKey)
			delete(attachedTo, childKey)
		}
		delete(nodes, key)
		delete(declaredParent, key)
		delete(hasDeclaredParent, key)
		delete(isRoot, key)

		for _, childKey := range childKeys {
			attach(childKey)
		}
	}

	sub := upstream.Subscribe(streamset.ObserverFunc[*streamset.ChangeSet[K, T]]{
		Next: func(cs *streamset.ChangeSet[K, T]) {
			mu.Lock()
			for _, c := range cs.Changes {
				switch c.Reason {
				case streamset.Add, streamset.Update, streamset.Refresh:
					upsert(c.Key, c.Current)
				case streamset.Remove:
					remove(c.Key)
				}
			}
			mu.Unlock()
		},
		Completed: func() { roots.Close(nil) },
		Err:       func(err error) { roots.Close(err) },
	})
	_ = sub

	return roots
}
