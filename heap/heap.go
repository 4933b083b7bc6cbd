package heap

import "fmt"

// defaultCompactEvery matches spec.md §4.2: compaction is triggered after
// every 500 dispatched instructions by default. A production VM would
// switch to a size-based threshold; this is tunable via WithCompactEvery
// for exactly that reason.
const defaultCompactEvery = 500

// Config controls a Heap's compaction trigger.
type Config struct {
	compactEvery int
}

// Option configures a Heap at construction time.
type Option func(*Config)

// WithCompactEvery overrides the fixed instruction-count compaction
// trigger. A value <= 0 disables automatic compaction; callers must then
// invoke Compact themselves.
func WithCompactEvery(n int) Option {
	return func(c *Config) { c.compactEvery = n }
}

// Heap is a single contiguous arena of Values; Ptr indexes it. Allocation
// appends and returns the new index; nothing is freed between
// compactions.
type Heap struct {
	cells []Value

	compactEvery     int
	sinceLastCompact int
}

// New creates an empty Heap.
func New(opts ...Option) *Heap {
	cfg := Config{compactEvery: defaultCompactEvery}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Heap{compactEvery: cfg.compactEvery}
}

// Alloc appends v to the arena and returns its new Ptr.
func (h *Heap) Alloc(v Value) Ptr {
	h.cells = append(h.cells, v)
	return Ptr(len(h.cells) - 1)
}

// Get dereferences p. Panics if p is out of range or (a VM invariant
// violation) still a stale Forward left over from a bug in Compact.
func (h *Heap) Get(p Ptr) Value {
	v := h.cells[p]
	if v.Kind == KindForward {
		panic(fmt.Sprintf("heap BUG: live Forward value at ptr %d", p))
	}
	return v
}

// Set overwrites the cell at p.
func (h *Heap) Set(p Ptr, v Value) {
	h.cells[p] = v
}

// Len reports the current arena size, including any garbage not yet
// reclaimed by Compact.
func (h *Heap) Len() int { return len(h.cells) }

// Tick is called by the interpreter once per dispatched instruction. When
// automatic compaction is enabled and the trigger count is reached, it
// compacts using roots and resets the counter.
func (h *Heap) Tick(roots []*Ptr) {
	if h.compactEvery <= 0 {
		return
	}
	h.sinceLastCompact++
	if h.sinceLastCompact >= h.compactEvery {
		h.Compact(roots)
	}
}

// Compact runs a copying, depth-first, iterative collection: every Ptr
// reachable from roots is traced (and each root is rewritten in place to
// its new-arena index), and the old arena is replaced with the
// reachable-only new arena. See forward.go for the traversal itself.
func (h *Heap) Compact(roots []*Ptr) {
	h.cells = compact(h.cells, roots)
	h.sinceLastCompact = 0
}
