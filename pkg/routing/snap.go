package routing

import (
	"github.com/rotisserie/eris"

	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
)

// DefaultMaxSnapDist bounds how far a point may lie from the vertex it snaps to.
const DefaultMaxSnapDist = 500.0

// ErrPointTooFar is returned when the query point is too far from any vertex.
var ErrPointTooFar = eris.New("point too far from network")

// SnapResult represents a point snapped to a network vertex.
type SnapResult struct {
	Vertex geo.Coord
	Dist   float64 // distance from the query point to Vertex
}

// Snapper snaps arbitrary coordinates onto the vertices of a network, so
// places that do not sit on a way endpoint can still be routed between.
type Snapper struct {
	net     *graph.Network
	maxDist float64
}

// NewSnapper creates a snapper over net. A non-positive maxDist disables the
// distance limit.
func NewSnapper(net *graph.Network, maxDist float64) *Snapper {
	return &Snapper{net: net, maxDist: maxDist}
}

// MaxDist returns the snapping limit, or 0 when unlimited.
func (s *Snapper) MaxDist() float64 {
	if s.maxDist <= 0 {
		return 0
	}
	return s.maxDist
}

// Snap finds the vertex nearest to c. A vertex is returned as is.
func (s *Snapper) Snap(c geo.Coord) (SnapResult, error) {
	v, dist, ok := s.net.NearestVertex(c)
	if !ok {
		return SnapResult{Vertex: geo.NoCoord}, eris.Wrapf(ErrPointTooFar, "snap %s: network is empty", c)
	}
	if s.maxDist > 0 && dist > s.maxDist {
		return SnapResult{Vertex: geo.NoCoord}, eris.Wrapf(ErrPointTooFar, "snap %s: nearest vertex %s is %.1f away", c, v, dist)
	}
	return SnapResult{Vertex: v, Dist: dist}, nil
}

// SnapPair snaps both ends of a route query.
func (s *Snapper) SnapPair(from, to geo.Coord) (SnapResult, SnapResult, error) {
	a, err := s.Snap(from)
	if err != nil {
		return a, SnapResult{Vertex: geo.NoCoord}, err
	}
	b, err := s.Snap(to)
	if err != nil {
		return a, b, err
	}
	return a, b, nil
}
