package graph

import (
	"cmp"
	"slices"

	"github.com/azybler/waymap/pkg/geo"
)

// UnionFind implements a disjoint-set data structure with path compression
// and union by rank.
type UnionFind struct {
	parent []uint32
	rank   []byte
	size   []uint32
}

// NewUnionFind creates a UnionFind for n elements.
func NewUnionFind(n uint32) *UnionFind {
	parent := make([]uint32, n)
	size := make([]uint32, n)
	for i := range n {
		parent[i] = i
		size[i] = 1
	}
	return &UnionFind{parent: parent, rank: make([]byte, n), size: size}
}

// Find returns the representative of the set containing x, with path halving.
func (uf *UnionFind) Find(x uint32) uint32 {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. Returns false if already same set.
func (uf *UnionFind) Union(x, y uint32) bool {
	rx, ry := uf.Find(x), uf.Find(y)
	if rx == ry {
		return false
	}
	if uf.rank[rx] < uf.rank[ry] {
		rx, ry = ry, rx
	}
	uf.parent[ry] = rx
	uf.size[rx] += uf.size[ry]
	if uf.rank[rx] == uf.rank[ry] {
		uf.rank[rx]++
	}
	return true
}

// Size returns the number of elements in the set containing x.
func (uf *UnionFind) Size(x uint32) uint32 {
	return uf.size[uf.Find(x)]
}

// vertexIndex assigns dense indices to vertices in coordinate order.
func (n *Network) vertexIndex() ([]geo.Coord, map[geo.Coord]uint32) {
	vs := n.Vertices()
	idx := make(map[geo.Coord]uint32, len(vs))
	for i, c := range vs {
		idx[c] = uint32(i)
	}
	return vs, idx
}

// connect unions the endpoints of every way over a dense vertex index.
func (n *Network) connect() ([]geo.Coord, *UnionFind) {
	vs, idx := n.vertexIndex()
	uf := NewUnionFind(uint32(len(vs)))
	for _, w := range n.ways {
		uf.Union(idx[w.Start()], idx[w.End()])
	}
	return vs, uf
}

// ComponentSizes returns the number of connected components and the vertex
// count of the largest one.
func (n *Network) ComponentSizes() (count, largest int) {
	vs, uf := n.connect()
	for i := range vs {
		x := uint32(i)
		if uf.Find(x) != x {
			continue
		}
		count++
		largest = max(largest, int(uf.Size(x)))
	}
	return count, largest
}

// RedundantWays lists the ways that can be removed without disconnecting any
// pair of vertices, such that the remaining ways form a minimum spanning
// forest. Ways are considered shortest first; among equal lengths the
// lexicographically smaller id is kept, so the larger one is reported.
// Self-loops are always redundant.
func (n *Network) RedundantWays() []WayID {
	_, idx := n.vertexIndex()
	uf := NewUnionFind(uint32(len(idx)))

	ways := make([]*Way, 0, len(n.ways))
	for _, w := range n.ways {
		ways = append(ways, w)
	}
	slices.SortFunc(ways, func(a, b *Way) int {
		if c := cmp.Compare(a.Length, b.Length); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var redundant []WayID
	for _, w := range ways {
		if !uf.Union(idx[w.Start()], idx[w.End()]) {
			redundant = append(redundant, w.ID)
		}
	}
	return redundant
}

// TrimWays removes every redundant way and returns the total length removed.
func (n *Network) TrimWays() int {
	removed := 0
	for _, id := range n.RedundantWays() {
		removed += n.ways[id].Length
		// The id came from the arena a moment ago, so removal cannot fail.
		_ = n.RemoveWay(id)
	}
	return removed
}
