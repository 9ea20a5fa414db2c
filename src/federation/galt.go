package federation

import (
	"container/heap"
	"sync/atomic"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
)

// boundEntry is the committed bound of one regulating federate: no
// timestamp-order message it sends from now on will be stamped earlier.
type boundEntry struct {
	federate handle.Federate
	bound    logicaltime.Time
	index    int
}

type boundHeap []*boundEntry

func (h boundHeap) Len() int { return len(h) }

func (h boundHeap) Less(i, j int) bool {
	if c := h[i].bound.Compare(h[j].bound); c != 0 {
		return c < 0
	}
	return h[i].federate < h[j].federate
}

func (h boundHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *boundHeap) Push(x interface{}) {
	e := x.(*boundEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *boundHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// galtSnapshot is what readers outside the execution goroutine see.
type galtSnapshot struct {
	time  logicaltime.Time
	valid bool
}

// galtSet maintains the bounds of all regulating federates. Update and
// Remove are O(log n) and only called by the execution goroutine. Load is
// wait-free and returns the value of the last Publish.
type galtSet struct {
	heap      boundHeap
	entries   map[handle.Federate]*boundEntry
	published atomic.Pointer[galtSnapshot]
}

func newGALTSet() *galtSet {
	g := &galtSet{
		entries: make(map[handle.Federate]*boundEntry),
	}
	g.published.Store(&galtSnapshot{})
	return g
}

// Update inserts or moves the bound of f.
func (g *galtSet) Update(f handle.Federate, bound logicaltime.Time) {
	if e, ok := g.entries[f]; ok {
		e.bound = bound
		heap.Fix(&g.heap, e.index)
		return
	}
	e := &boundEntry{federate: f, bound: bound}
	g.entries[f] = e
	heap.Push(&g.heap, e)
}

// Remove drops f. It is a no-op if f is not regulating.
func (g *galtSet) Remove(f handle.Federate) {
	e, ok := g.entries[f]
	if !ok {
		return
	}
	heap.Remove(&g.heap, e.index)
	delete(g.entries, f)
}

// Min returns the smallest bound. valid is false when no federate is
// regulating, in which case nothing constrains time advances.
func (g *galtSet) Min() (t logicaltime.Time, valid bool) {
	if len(g.heap) == 0 {
		return t, false
	}
	return g.heap[0].bound, true
}

// Bound returns the bound currently held for f.
func (g *galtSet) Bound(f handle.Federate) (logicaltime.Time, bool) {
	e, ok := g.entries[f]
	if !ok {
		return logicaltime.Time{}, false
	}
	return e.bound, true
}

// Len ...
func (g *galtSet) Len() int {
	return len(g.heap)
}

// Publish makes the current minimum visible to Load.
func (g *galtSet) Publish() {
	t, ok := g.Min()
	g.published.Store(&galtSnapshot{time: t, valid: ok})
}

// Load returns the last published minimum.
func (g *galtSet) Load() (logicaltime.Time, bool) {
	s := g.published.Load()
	return s.time, s.valid
}
