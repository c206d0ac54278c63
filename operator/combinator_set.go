package operator

import (
	"sync"

	"github.com/flowbase/streamset"
)

// keyedMultiset tracks, per key, which of several sources currently hold
// it and what its last-touched value was, so And/Or/Xor/Except can derive
// combined membership from a simple present/total count without
// re-scanning every source on each incoming change.
type keyedMultiset[K comparable, T any] struct {
	mu       sync.Mutex
	holders  []map[K]T
	included map[K]bool
	combined map[K]T
}

func newKeyedMultiset[K comparable, T any](n int) *keyedMultiset[K, T] {
	holders := make([]map[K]T, n)
	for i := range holders {
		holders[i] = make(map[K]T)
	}
	return &keyedMultiset[K, T]{
		holders:  holders,
		included: make(map[K]bool),
		combined: make(map[K]T),
	}
}

func (m *keyedMultiset[K, T]) set(idx int, key K, value T) {
	m.holders[idx][key] = value
}

func (m *keyedMultiset[K, T]) clear(idx int, key K) {
	delete(m.holders[idx], key)
}

func (m *keyedMultiset[K, T]) presentCount(key K) (count int, lastValue T) {
	for _, h := range m.holders {
		if v, ok := h[key]; ok {
			count++
			lastValue = v
		}
	}
	return count, lastValue
}

func (m *keyedMultiset[K, T]) resolve(key K, op setOp, out *streamset.ChangeSet[K, T]) {
	present, value := m.presentCount(key)
	shouldInclude := op(present, len(m.holders))
	was := m.included[key]

	switch {
	case shouldInclude && !was:
		m.included[key] = true
		m.combined[key] = value
		out.Append(streamset.NewAddChange[K, T](key, value))
	case shouldInclude && was:
		prev := m.combined[key]
		m.combined[key] = value
		out.Append(streamset.NewUpdateChange(key, prev, value))
	case !shouldInclude && was:
		prev := m.combined[key]
		delete(m.included, key)
		delete(m.combined, key)
		out.Append(streamset.NewRemoveChange(key, prev))
	}
}

// resolveExcept implements Except's asymmetric rule directly: a key
// belongs in the result only while holders[0] has it and no other
// source does.
func (m *keyedMultiset[K, T]) resolveExcept(key K, out *streamset.ChangeSet[K, T]) {
	firstValue, inFirst := m.holders[0][key]
	excludedElsewhere := false
	for i := 1; i < len(m.holders); i++ {
		if _, ok := m.holders[i][key]; ok {
			excludedElsewhere = true
			break
		}
	}
	shouldInclude := inFirst && !excludedElsewhere
	was := m.included[key]

	switch {
	case shouldInclude && !was:
		m.included[key] = true
		m.combined[key] = firstValue
		out.Append(streamset.NewAddChange[K, T](key, firstValue))
	case shouldInclude && was:
		prev := m.combined[key]
		m.combined[key] = firstValue
		out.Append(streamset.NewUpdateChange(key, prev, firstValue))
	case !shouldInclude && was:
		prev := m.combined[key]
		delete(m.included, key)
		delete(m.combined, key)
		out.Append(streamset.NewRemoveChange(key, prev))
	}
}
