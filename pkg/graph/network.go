package graph

import (
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"

	"github.com/azybler/waymap/pkg/geo"
)

// WayID identifies a way.
type WayID string

// NoWay is reported where a walk has no further way to take.
const NoWay WayID = "!!No way!!"

var (
	// ErrDuplicateID is returned when adding a way whose id is already taken.
	ErrDuplicateID = eris.New("way id already exists")
	// ErrNotFound is returned for unknown way ids.
	ErrNotFound = eris.New("way not found")
	// ErrInvalidWay is returned for polylines with fewer than two points or a
	// reserved id.
	ErrInvalidWay = eris.New("way needs an id and at least two coordinates")
)

// Way is a polyline road segment. Only its endpoints take part in the graph.
type Way struct {
	ID     WayID
	Coords []geo.Coord
	Length int // sum of floored segment lengths
}

// Start returns the first coordinate of the way.
func (w *Way) Start() geo.Coord { return w.Coords[0] }

// End returns the last coordinate of the way.
func (w *Way) End() geo.Coord { return w.Coords[len(w.Coords)-1] }

// IsLoop reports whether the way starts and ends at the same coordinate.
func (w *Way) IsLoop() bool { return w.Start() == w.End() }

// Other returns the endpoint opposite c.
func (w *Way) Other(c geo.Coord) geo.Coord {
	if c == w.Start() {
		return w.End()
	}
	return w.Start()
}

// Edge is one incidence entry: leaving a vertex along Way arrives at To.
type Edge struct {
	Way    WayID
	To     geo.Coord
	Length int
}

// Network owns the ways and the coordinate graph derived from them. Ways are
// kept in an arena keyed by id; vertices map to the ids of incident ways in
// insertion order, so traversal order is stable for identical input.
//
// Network is not safe for concurrent use; callers serialise writers.
type Network struct {
	ways     map[WayID]*Way
	order    []WayID
	incident map[geo.Coord][]WayID
	vertices rtree.RTreeG[geo.Coord]
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{
		ways:     make(map[WayID]*Way),
		incident: make(map[geo.Coord][]WayID),
	}
}

// AddWay inserts a way. The network is a multigraph, so ways may share
// endpoints or even full geometry, but never an id.
func (n *Network) AddWay(id WayID, coords []geo.Coord) error {
	if _, ok := n.ways[id]; ok {
		return eris.Wrapf(ErrDuplicateID, "add way %q", id)
	}
	if len(coords) < 2 || id == "" || id == NoWay {
		return eris.Wrapf(ErrInvalidWay, "add way %q", id)
	}

	w := &Way{
		ID:     id,
		Coords: slices.Clone(coords),
		Length: geo.PathLength(coords),
	}
	n.ways[id] = w
	n.order = append(n.order, id)

	n.attach(w.Start(), id)
	if !w.IsLoop() {
		n.attach(w.End(), id)
	}
	return nil
}

func (n *Network) attach(c geo.Coord, id WayID) {
	list, ok := n.incident[c]
	if !ok {
		n.vertices.Insert(c.Box(), c.Box(), c)
	}
	n.incident[c] = append(list, id)
}

func (n *Network) detach(c geo.Coord, id WayID) {
	list := n.incident[c]
	if i := slices.Index(list, id); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	if len(list) == 0 {
		delete(n.incident, c)
		n.vertices.Delete(c.Box(), c.Box(), c)
		return
	}
	n.incident[c] = list
}

// RemoveWay deletes a way and its incidence entries. Vertices left without
// ways disappear from the network.
func (n *Network) RemoveWay(id WayID) error {
	w, ok := n.ways[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "remove way %q", id)
	}

	n.detach(w.Start(), id)
	if !w.IsLoop() {
		n.detach(w.End(), id)
	}
	delete(n.ways, id)
	if i := slices.Index(n.order, id); i >= 0 {
		n.order = slices.Delete(n.order, i, i+1)
	}
	return nil
}

// ClearWays removes every way and all derived structures.
func (n *Network) ClearWays() {
	n.ways = make(map[WayID]*Way)
	n.order = nil
	n.incident = make(map[geo.Coord][]WayID)
	n.vertices = rtree.RTreeG[geo.Coord]{}
}

// WaysFrom returns an edge for every way incident on c, pairing the way with
// its endpoint opposite c. A self-loop pairs with c itself.
func (n *Network) WaysFrom(c geo.Coord) []Edge {
	ids := n.incident[c]
	if len(ids) == 0 {
		return nil
	}
	edges := make([]Edge, 0, len(ids))
	for _, id := range ids {
		w := n.ways[id]
		edges = append(edges, Edge{Way: id, To: w.Other(c), Length: w.Length})
	}
	return edges
}

// WayCoords returns a copy of the polyline of way id.
func (n *Network) WayCoords(id WayID) ([]geo.Coord, error) {
	w, ok := n.ways[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "way %q", id)
	}
	return slices.Clone(w.Coords), nil
}

// Way returns a copy of way id.
func (n *Network) Way(id WayID) (Way, bool) {
	w, ok := n.ways[id]
	if !ok {
		return Way{}, false
	}
	return Way{ID: w.ID, Coords: slices.Clone(w.Coords), Length: w.Length}, true
}

// AllWays returns way ids in insertion order.
func (n *Network) AllWays() []WayID {
	return slices.Clone(n.order)
}

// NumWays returns the number of ways.
func (n *Network) NumWays() int { return len(n.ways) }

// NumVertices returns the number of distinct way endpoints.
func (n *Network) NumVertices() int { return len(n.incident) }

// HasVertex reports whether c terminates at least one way.
func (n *Network) HasVertex(c geo.Coord) bool {
	return len(n.incident[c]) > 0
}

// TotalLength sums the lengths of all ways.
func (n *Network) TotalLength() int {
	total := 0
	for _, w := range n.ways {
		total += w.Length
	}
	return total
}

// Vertices returns every vertex sorted by coordinate order.
func (n *Network) Vertices() []geo.Coord {
	vs := make([]geo.Coord, 0, len(n.incident))
	for c := range n.incident {
		vs = append(vs, c)
	}
	slices.SortFunc(vs, geo.Coord.Compare)
	return vs
}

// NearestVertex returns the vertex closest to c and its distance. Equally
// close vertices resolve to the smallest in coordinate order.
func (n *Network) NearestVertex(c geo.Coord) (geo.Coord, float64, bool) {
	var (
		best     geo.Coord
		bestDist int64
		found    bool
	)
	pt := c.Box()
	n.vertices.Nearby(
		rtree.BoxDist[float64, geo.Coord](pt, pt, nil),
		func(_, _ [2]float64, v geo.Coord, _ float64) bool {
			d := geo.DistSq(c, v)
			switch {
			case !found:
				best, bestDist, found = v, d, true
			case d > bestDist:
				return false
			case d == bestDist && v.Less(best):
				best = v
			}
			return true
		},
	)
	if !found {
		return geo.NoCoord, 0, false
	}
	return best, math.Sqrt(float64(bestDist)), true
}
