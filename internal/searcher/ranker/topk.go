package ranker

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/fts/internal/indexer/index"
)

// TopK returns the first k hits under less, in order, without sorting the
// whole slice. The heap keeps the current worst hit at its root.
func TopK(hits []index.Hit, k int, less func(a, b index.Hit) bool) []index.Hit {
	if k <= 0 {
		return []index.Hit{}
	}
	h := &hitHeap{less: less}
	for _, hit := range hits {
		heap.Push(h, hit)
		if h.Len() > k {
			heap.Pop(h)
		}
	}
	result := make([]index.Hit, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(index.Hit)
	}
	return result
}

type hitHeap struct {
	items []index.Hit
	less  func(a, b index.Hit) bool
}

func (h *hitHeap) Len() int { return len(h.items) }

// Less inverts the ordering so the worst hit sits on top.
func (h *hitHeap) Less(i, j int) bool { return h.less(h.items[j], h.items[i]) }

func (h *hitHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *hitHeap) Push(x any) {
	h.items = append(h.items, x.(index.Hit))
}

func (h *hitHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
