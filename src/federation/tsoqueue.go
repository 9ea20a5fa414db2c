package federation

import (
	"container/heap"

	"github.com/mosaicnetworks/rtinet/src/handle"
	"github.com/mosaicnetworks/rtinet/src/logicaltime"
	"github.com/mosaicnetworks/rtinet/src/message"
)

// queued is a timestamp-order callback waiting for its receiver's time to
// reach it. seq breaks ties so equal timestamps keep send order.
type queued struct {
	time       logicaltime.Time
	seq        uint64
	retraction handle.Retraction
	cb         *message.Callback
}

type tsoHeap []*queued

func (h tsoHeap) Len() int { return len(h) }

func (h tsoHeap) Less(i, j int) bool {
	if c := h[i].time.Compare(h[j].time); c != 0 {
		return c < 0
	}
	return h[i].seq < h[j].seq
}

func (h tsoHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *tsoHeap) Push(x interface{}) { *h = append(*h, x.(*queued)) }

func (h *tsoHeap) Pop() interface{} {
	old := *h
	n := len(old)
	q := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return q
}

// tsoQueue holds the undelivered timestamp-order messages of one federate.
type tsoQueue struct {
	h tsoHeap
}

func (q *tsoQueue) push(m *queued) {
	heap.Push(&q.h, m)
}

func (q *tsoQueue) peek() (*queued, bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return q.h[0], true
}

func (q *tsoQueue) pop() *queued {
	return heap.Pop(&q.h).(*queued)
}

func (q *tsoQueue) len() int {
	return len(q.h)
}

// remove drops the messages carrying retraction r and reports how many
// were dropped.
func (q *tsoQueue) remove(r handle.Retraction) int {
	kept := q.h[:0]
	n := 0
	for _, m := range q.h {
		if m.retraction == r {
			n++
			continue
		}
		kept = append(kept, m)
	}
	for i := len(kept); i < len(q.h); i++ {
		q.h[i] = nil
	}
	q.h = kept
	heap.Init(&q.h)
	return n
}

// drain removes and returns everything, in delivery order.
func (q *tsoQueue) drain() []*queued {
	res := make([]*queued, 0, len(q.h))
	for len(q.h) > 0 {
		res = append(res, q.pop())
	}
	return res
}
