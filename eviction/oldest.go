// This file implements oldest-first eviction.

package eviction

import (
	"container/heap"
	"time"
)

// oldestItem is ONE key inside the heap.
type oldestItem struct {
	key        string
	computedAt time.Time

	// seq breaks ties between equal timestamps: earlier writes go first.
	seq uint64

	// index is the position inside the heap slice, maintained by Swap.
	index int
}

// oldestHeap is a min-heap ordered by computedAt.
type oldestHeap []*oldestItem

func (h oldestHeap) Len() int { return len(h) }

func (h oldestHeap) Less(i, j int) bool {
	if h[i].computedAt.Equal(h[j].computedAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].computedAt.Before(h[j].computedAt)
}

func (h oldestHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *oldestHeap) Push(x any) {
	it := x.(*oldestItem)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *oldestHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// oldest is the concrete implementation of the Oldest eviction policy.
type oldest struct {
	// items maps keys to their heap items so updates and removals are O(log n).
	items map[string]*oldestItem
	heap  oldestHeap
	seq   uint64
}

func newOldest() *oldest {
	return &oldest{items: make(map[string]*oldestItem)}
}

// OnPut inserts the key or moves it to its new position when it was recomputed.
func (o *oldest) OnPut(k string, computedAt time.Time) {
	o.seq++
	if it, ok := o.items[k]; ok {
		it.computedAt = computedAt
		it.seq = o.seq
		heap.Fix(&o.heap, it.index)
		return
	}
	it := &oldestItem{key: k, computedAt: computedAt, seq: o.seq}
	o.items[k] = it
	heap.Push(&o.heap, it)
}

// Remove drops the key from tracking. Unknown keys are ignored.
func (o *oldest) Remove(k string) {
	it, ok := o.items[k]
	if !ok {
		return
	}
	heap.Remove(&o.heap, it.index)
	delete(o.items, k)
}

// Evict removes and returns the key with the earliest computedAt.
func (o *oldest) Evict() string {
	if o.heap.Len() == 0 {
		// Nothing to evict
		return ""
	}
	it := heap.Pop(&o.heap).(*oldestItem)
	delete(o.items, it.key)
	return it.key
}

func (o *oldest) Len() int { return len(o.items) }
