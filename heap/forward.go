package heap

// pending is one node awaiting compaction: a local, mutable copy of its
// old cell (whose Fields slice is forwarded child-by-child in place) plus
// every root/field slot that must be written with the resulting new-arena
// index once every child is resolved. A node can have more than one dest
// when the same old Ptr is aliased from two roots, or from two fields,
// before either occurrence has been finalized.
//
// Using an explicit stack of these instead of recursion keeps the
// traversal off the goroutine call stack, per spec.md §9's mandated
// rewrite of the naive recursive design. The explicit stack still holds
// one node per root plus one per level of the longest reference chain
// being traced.
type pending struct {
	old       int
	dests     []*Ptr
	value     Value
	nextChild int
}

// compact copies every value reachable from roots into a fresh arena,
// rewriting each root (and every interior pointer) to its new index, and
// returns the fresh arena. old is left with Forward markers in every
// cell that was reachable; it is discarded by the caller.
func compact(old []Value, roots []*Ptr) []Value {
	newArena := make([]Value, 0, len(old))

	// inProgress maps an old index currently on the stack (not yet
	// finalized) to its pending node, so a second reference to the same
	// value joins the existing node's dests instead of re-copying it.
	inProgress := map[int]*pending{}

	var stack []*pending
	push := func(dest *Ptr) {
		oldIdx := int(*dest)
		cell := old[oldIdx]
		if cell.Kind == KindForward {
			*dest = cell.Forward
			return
		}
		if p, ok := inProgress[oldIdx]; ok {
			p.dests = append(p.dests, dest)
			return
		}
		p := &pending{old: oldIdx, dests: []*Ptr{dest}, value: cloneValue(cell)}
		inProgress[oldIdx] = p
		stack = append(stack, p)
	}

	for _, r := range roots {
		push(r)
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.nextChild < len(top.value.Fields) {
			push(&top.value.Fields[top.nextChild])
			top.nextChild++
			continue
		}

		newArena = append(newArena, top.value)
		newIdx := Ptr(len(newArena) - 1)
		old[top.old] = Value{Kind: KindForward, Forward: newIdx}
		for _, dest := range top.dests {
			*dest = newIdx
		}
		delete(inProgress, top.old)
		stack = stack[:len(stack)-1]
	}

	return newArena
}

// cloneValue copies a cell's Fields slice so that in-place forwarding of
// the copy never mutates the original arena entry.
func cloneValue(v Value) Value {
	if v.Fields != nil {
		fields := make([]Ptr, len(v.Fields))
		copy(fields, v.Fields)
		v.Fields = fields
	}
	return v
}
