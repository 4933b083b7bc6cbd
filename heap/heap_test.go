package heap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adtvm/adtvm/bytecode"
)

func TestAllocGet(t *testing.T) {
	h := New()
	p := h.Alloc(Value{Kind: KindInt, Int: 42})
	require.Equal(t, Ptr(0), p)
	require.Equal(t, int64(42), h.Get(p).Int)
}

func TestSetOverwrites(t *testing.T) {
	h := New()
	p := h.Alloc(Value{Kind: KindInt, Int: 1})
	h.Set(p, Value{Kind: KindInt, Int: 2})
	require.Equal(t, int64(2), h.Get(p).Int)
}

func TestCompactDropsUnreachable(t *testing.T) {
	h := New()
	garbage := h.Alloc(Value{Kind: KindInt, Int: 999})
	keep := h.Alloc(Value{Kind: KindInt, Int: 7})
	_ = garbage

	roots := []*Ptr{&keep}
	h.Compact(roots)

	require.Equal(t, 1, h.Len())
	require.Equal(t, int64(7), h.Get(keep).Int)
}

func TestCompactPreservesVariantFields(t *testing.T) {
	h := New()
	fst := h.Alloc(Value{Kind: KindInt, Int: 1})
	snd := h.Alloc(Value{Kind: KindInt, Int: 2})
	pair := h.Alloc(Value{Kind: KindVariant, Ctor: bytecode.ConstructorIndex(0), Fields: []Ptr{fst, snd}})

	roots := []*Ptr{&pair}
	h.Compact(roots)

	v := h.Get(pair)
	require.Equal(t, KindVariant, v.Kind)
	require.Len(t, v.Fields, 2)
	require.Equal(t, int64(1), h.Get(v.Fields[0]).Int)
	require.Equal(t, int64(2), h.Get(v.Fields[1]).Int)
}

// TestCompactSharedReference covers the aliasing case: two roots (or two
// fields) pointing at the same old cell must end up pointing at the same
// new cell, and that value must appear exactly once in the new arena.
func TestCompactSharedReference(t *testing.T) {
	h := New()
	shared := h.Alloc(Value{Kind: KindInt, Int: 5})
	container := h.Alloc(Value{Kind: KindVariant, Fields: []Ptr{shared, shared}})

	rootA := shared
	rootB := container
	roots := []*Ptr{&rootA, &rootB}
	h.Compact(roots)

	require.Equal(t, 2, h.Len())
	require.Equal(t, rootA, h.Get(rootB).Fields[0])
	require.Equal(t, rootA, h.Get(rootB).Fields[1])
	require.Equal(t, int64(5), h.Get(rootA).Int)
}

func TestCompactIdempotentOnAlreadyCompact(t *testing.T) {
	h := New()
	p := h.Alloc(Value{Kind: KindInt, Int: 3})
	roots := []*Ptr{&p}
	h.Compact(roots)
	h.Compact(roots)
	require.Equal(t, 1, h.Len())
	require.Equal(t, int64(3), h.Get(p).Int)
}

func TestTickTriggersAutoCompact(t *testing.T) {
	h := New(WithCompactEvery(2))
	garbage := h.Alloc(Value{Kind: KindInt, Int: 1})
	keep := h.Alloc(Value{Kind: KindInt, Int: 2})
	_ = garbage

	roots := []*Ptr{&keep}
	h.Tick(roots)
	require.Equal(t, 2, h.Len())
	h.Tick(roots)
	require.Equal(t, 1, h.Len())
}

func TestTickDisabledWhenCompactEveryIsZero(t *testing.T) {
	h := New(WithCompactEvery(0))
	h.Alloc(Value{Kind: KindInt, Int: 1})
	keep := Ptr(0)
	for i := 0; i < 10_000; i++ {
		h.Tick([]*Ptr{&keep})
	}
	require.Equal(t, 1, h.Len())
}

func TestGetPanicsOnStaleForward(t *testing.T) {
	h := New()
	p := h.Alloc(Value{Kind: KindInt, Int: 1})
	h.Set(p, Value{Kind: KindForward, Forward: 0})
	require.Panics(t, func() { h.Get(p) })
}
