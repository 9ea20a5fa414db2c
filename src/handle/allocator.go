package handle

import "sync/atomic"

// Allocator issues strictly increasing handles of one kind. Next is meant to
// be called by the single owner of the handle space; Last and Valid are
// wait-free and may be called from any goroutine.
type Allocator[H ~uint64] struct {
	last atomic.Uint64
}

// NewAllocator returns an allocator whose first handle is 1.
func NewAllocator[H ~uint64]() *Allocator[H] {
	return &Allocator[H]{}
}

// NewAllocatorFrom returns an allocator that resumes after watermark, so
// handles issued before a restart are not issued again.
func NewAllocatorFrom[H ~uint64](watermark H) *Allocator[H] {
	a := &Allocator[H]{}
	a.last.Store(uint64(watermark))
	return a
}

// Next issues a fresh handle.
func (a *Allocator[H]) Next() H {
	return H(a.last.Add(1))
}

// Last returns the most recently issued handle, or 0 if none was issued.
func (a *Allocator[H]) Last() H {
	return H(a.last.Load())
}

// Valid reports whether h has been issued by this allocator. It does not
// tell whether the entity behind h is still alive.
func (a *Allocator[H]) Valid(h H) bool {
	return h != 0 && uint64(h) <= a.last.Load()
}
