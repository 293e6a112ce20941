// Package gen builds random networks and places from an explicitly seeded
// generator, for benchmarks and the generate command.
package gen

import (
	"fmt"
	"math/rand/v2"

	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
)

// NewRand returns a PCG generator seeded from seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WaySpec is a way to be added to a network.
type WaySpec struct {
	ID     graph.WayID
	Coords []geo.Coord
}

// GridOptions shapes a generated grid.
type GridOptions struct {
	Cols, Rows int
	Spacing    int
	// Bend, when positive, routes each way through one interior point offset
	// by up to Bend from the straight line.
	Bend int
	// DropRatio is the share of grid ways left out, in [0,1).
	DropRatio float64
	// Chords adds this many extra ways between random grid vertices.
	Chords int
}

// Grid returns the ways of a Cols x Rows lattice. Horizontal ways are named
// h<col>_<row>, vertical ones v<col>_<row> and chords c<n>.
func Grid(rng *rand.Rand, opt GridOptions) []WaySpec {
	if opt.Spacing <= 0 {
		opt.Spacing = 100
	}
	at := func(col, row int) geo.Coord {
		return geo.Coord{X: col * opt.Spacing, Y: row * opt.Spacing}
	}

	var ways []WaySpec
	add := func(id string, a, b geo.Coord) {
		if opt.DropRatio > 0 && rng.Float64() < opt.DropRatio {
			return
		}
		ways = append(ways, WaySpec{ID: graph.WayID(id), Coords: bend(rng, a, b, opt.Bend)})
	}
	for row := range opt.Rows {
		for col := range opt.Cols {
			if col+1 < opt.Cols {
				add(fmt.Sprintf("h%d_%d", col, row), at(col, row), at(col+1, row))
			}
			if row+1 < opt.Rows {
				add(fmt.Sprintf("v%d_%d", col, row), at(col, row), at(col, row+1))
			}
		}
	}

	if opt.Cols > 0 && opt.Rows > 0 {
		for i := range opt.Chords {
			a := at(rng.IntN(opt.Cols), rng.IntN(opt.Rows))
			b := at(rng.IntN(opt.Cols), rng.IntN(opt.Rows))
			ways = append(ways, WaySpec{ID: graph.WayID(fmt.Sprintf("c%d", i)), Coords: bend(rng, a, b, opt.Bend)})
		}
	}
	return ways
}

func bend(rng *rand.Rand, a, b geo.Coord, by int) []geo.Coord {
	if by <= 0 {
		return []geo.Coord{a, b}
	}
	mid := geo.Coord{
		X: (a.X+b.X)/2 + rng.IntN(2*by+1) - by,
		Y: (a.Y+b.Y)/2 + rng.IntN(2*by+1) - by,
	}
	return []geo.Coord{a, mid, b}
}

// Network adds ways to a fresh network.
func Network(ways []WaySpec) (*graph.Network, error) {
	n := graph.NewNetwork()
	for _, w := range ways {
		if err := n.AddWay(w.ID, w.Coords); err != nil {
			return nil, err
		}
	}
	return n, nil
}

var syllables = []string{"ka", "lo", "mi", "ra", "su", "ve", "to", "an", "el", "or"}

// Name returns a pronounceable random name.
func Name(rng *rand.Rand) string {
	n := 2 + rng.IntN(3)
	b := make([]byte, 0, n*2)
	for range n {
		b = append(b, syllables[rng.IntN(len(syllables))]...)
	}
	b[0] -= 'a' - 'A'
	return string(b)
}

// Places returns n places with ids starting at firstID, scattered inside
// the rectangle spanned by lo and hi.
func Places(rng *rand.Rand, n int, firstID registry.PlaceID, lo, hi geo.Coord) []registry.Place {
	places := make([]registry.Place, n)
	for i := range places {
		places[i] = registry.Place{
			ID:   firstID + registry.PlaceID(i),
			Name: Name(rng),
			Type: registry.PlaceType(rng.IntN(int(registry.AreaPlace) + 1)),
			Coord: geo.Coord{
				X: lo.X + rng.IntN(hi.X-lo.X+1),
				Y: lo.Y + rng.IntN(hi.Y-lo.Y+1),
			},
		}
	}
	return places
}
