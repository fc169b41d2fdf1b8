package entity_test

import (
	"testing"

	"github.com/mickare/runwell/entity"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

func TestArenaAllocAndGet(t *testing.T) {
	a := entity.NewArena[widget, widget]()
	i0 := a.Alloc(widget{"a"})
	i1 := a.Alloc(widget{"b"})

	require.NotEqual(t, i0, i1)
	require.Equal(t, widget{"a"}, a.Get(i0))
	require.Equal(t, widget{"b"}, a.Get(i1))
	require.Equal(t, 2, a.Len())

	all := a.All()
	require.Len(t, all, 2)
	require.Equal(t, i0, all[0].Idx)
	require.Equal(t, "b", all[1].Data.name)
}

func TestArenaPanicsOnOutOfRange(t *testing.T) {
	a := entity.NewArena[widget, widget]()
	a.Alloc(widget{"a"})
	bogus := entity.MakeIdx[widget](5)
	require.Panics(t, func() { a.Get(bogus) })
}

func TestArenaPanicsOnInvalidIdx(t *testing.T) {
	a := entity.NewArena[widget, widget]()
	require.Panics(t, func() { a.Get(entity.Invalid[widget]()) })
}

func TestDenseMapPadsIntermediateSlots(t *testing.T) {
	m := entity.NewDenseMap[widget, string]()
	m.Insert(entity.MakeIdx[widget](3), "three")

	for i := uint32(0); i < 3; i++ {
		_, ok := m.Get(entity.MakeIdx[widget](i))
		require.False(t, ok, "slot %d should be absent", i)
	}
	v, ok := m.Get(entity.MakeIdx[widget](3))
	require.True(t, ok)
	require.Equal(t, "three", v)
}

func TestDenseMapMustGetPanicsOnAbsent(t *testing.T) {
	m := entity.NewDenseMap[widget, string]()
	require.Panics(t, func() { m.MustGet(entity.MakeIdx[widget](0)) })
}

func TestSparseMapEntryOrInsertWith(t *testing.T) {
	m := entity.NewSparseMap[widget, []int]()
	k := entity.MakeIdx[widget](7)

	got := m.Entry(k).OrInsertWith(func() []int { return []int{1} })
	require.Equal(t, []int{1}, got)

	// Second call finds the existing slice rather than recomputing.
	got2 := m.Entry(k).OrInsertWith(func() []int { panic("must not be called") })
	require.Equal(t, []int{1}, got2)
}

func TestSparseMapRemoveAndLen(t *testing.T) {
	m := entity.NewSparseMap[widget, int]()
	k0, k1 := entity.MakeIdx[widget](0), entity.MakeIdx[widget](1)
	m.Insert(k0, 10)
	m.Insert(k1, 20)
	require.Equal(t, 2, m.Len())

	v, ok := m.Remove(k0)
	require.True(t, ok)
	require.Equal(t, 10, v)
	require.Equal(t, 1, m.Len())
	require.False(t, m.Contains(k0))
}
