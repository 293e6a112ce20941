package routing

import (
	"github.com/azybler/waymap/pkg/geo"
)

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Entries order by distance, then hop count, then coordinate, so pops are
// deterministic.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	At   geo.Coord
	Dist int
	Hops int
}

func (a PQItem) less(b PQItem) bool {
	if a.Dist != b.Dist {
		return a.Dist < b.Dist
	}
	if a.Hops != b.Hops {
		return a.Hops < b.Hops
	}
	return a.At.Less(b.At)
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(at geo.Coord, dist, hops int) {
	h.items = append(h.items, PQItem{At: at, Dist: dist, Hops: hops})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].less(h.items[smallest]) {
			smallest = left
		}
		if right < n && h.items[right].less(h.items[smallest]) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}
