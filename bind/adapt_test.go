package bind

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowbase/streamset"
)

type fakeTarget struct {
	items []string
}

func (f *fakeTarget) InsertAt(index int, item string) {
	f.items = append(f.items, "")
	copy(f.items[index+1:], f.items[index:])
	f.items[index] = item
}

func (f *fakeTarget) RemoveAt(index int) {
	f.items = append(f.items[:index], f.items[index+1:]...)
}

func (f *fakeTarget) ReplaceAt(index int, item string) {
	f.items[index] = item
}

func (f *fakeTarget) Reset(items []string) {
	f.items = items
}

func TestAdaptInsertAndRemove(t *testing.T) {
	target := &fakeTarget{}
	cs := streamset.NewListChangeSet[string]()
	cs.Append(streamset.NewListAddChange(0, "a"))
	cs.Append(streamset.NewListAddChange(1, "b"))
	Adapt(cs, target)
	assert.Equal(t, []string{"a", "b"}, target.items)

	removeCS := streamset.NewListChangeSet[string]()
	removeCS.Append(streamset.NewListRemoveChange(0, "a"))
	Adapt(removeCS, target)
	assert.Equal(t, []string{"b"}, target.items)
}

func TestAdaptClearUsesSingleReset(t *testing.T) {
	target := &fakeTarget{items: []string{"a", "b", "c"}}
	cs := streamset.NewListChangeSet[string]()
	cs.Append(streamset.NewListClearChange[string](nil))
	Adapt(cs, target)
	assert.Empty(t, target.items)
}

type moverTarget struct {
	fakeTarget
	moved bool
}

func (m *moverTarget) MoveAt(fromIndex, toIndex int) { m.moved = true }

func TestAdaptUsesMoverWhenAvailable(t *testing.T) {
	target := &moverTarget{fakeTarget: fakeTarget{items: []string{"a", "b"}}}
	cs := streamset.NewListChangeSet[string]()
	cs.Append(streamset.NewListMovedChange("a", 0, 1))
	Adapt(cs, target)
	assert.True(t, target.moved)
}
