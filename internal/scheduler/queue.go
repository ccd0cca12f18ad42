package scheduler

import "backend/internal/types"

// waitHeapItem wraps a WaitEntry with its heap index and admission
// sequence number, following the teacher's PriorityQueue/PriorityItem
// shape (container/heap.Interface over a slice of pointers tracking
// their own index).
type waitHeapItem struct {
	entry *WaitEntry
	seq   int64
	index int
}

// waitHeap orders waiters highest-priority-first, tie-broken by earliest
// admission (smallest seq): among equal priority the longest-waiting
// room goes first.
type waitHeap []*waitHeapItem

func (h waitHeap) Len() int { return len(h) }

func (h waitHeap) Less(i, j int) bool {
	pi, pj := types.Priority[h[i].entry.FanSpeed], types.Priority[h[j].entry.FanSpeed]
	if pi != pj {
		return pi > pj
	}
	return h[i].seq < h[j].seq
}

func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap) Push(x any) {
	item := x.(*waitHeapItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// peekHighest returns the entry at the head of the heap without removing
// it. Callers must only invoke this when Len() > 0.
func (h *waitHeap) peekHighest() *WaitEntry {
	return (*h)[0].entry
}
