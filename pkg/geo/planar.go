package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Coord is a point on the integer plane.
type Coord struct {
	X int
	Y int
}

// NoValue marks an unknown integer value (coordinate component or distance).
const NoValue = math.MinInt

// NoCoord is returned when a coordinate could not be found.
var NoCoord = Coord{X: NoValue, Y: NoValue}

// IsValid reports whether c is not the NoCoord sentinel.
func (c Coord) IsValid() bool {
	return c != NoCoord
}

// Less orders coordinates by Y first, then X.
func (c Coord) Less(o Coord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	return c.X < o.X
}

// Compare returns -1, 0 or +1 following Less.
func (c Coord) Compare(o Coord) int {
	switch {
	case c == o:
		return 0
	case c.Less(o):
		return -1
	default:
		return 1
	}
}

func (c Coord) String() string {
	if !c.IsValid() {
		return "(--,--)"
	}
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Point converts c to an orb point (X, Y).
func (c Coord) Point() orb.Point {
	return orb.Point{float64(c.X), float64(c.Y)}
}

// Box returns c as a degenerate rtree rectangle.
func (c Coord) Box() [2]float64 {
	return [2]float64{float64(c.X), float64(c.Y)}
}

// FromPoint rounds an orb point to the nearest integer coordinate.
func FromPoint(p orb.Point) Coord {
	return Coord{X: int(math.Round(p[0])), Y: int(math.Round(p[1]))}
}

// Dist returns the Euclidean distance between a and b, floored to an integer.
func Dist(a, b Coord) int {
	return int(math.Floor(planar.Distance(a.Point(), b.Point())))
}

// DistSq returns the exact squared distance between a and b.
func DistSq(a, b Coord) int64 {
	dx := int64(a.X) - int64(b.X)
	dy := int64(a.Y) - int64(b.Y)
	return dx*dx + dy*dy
}

// PathLength sums the floored segment lengths of a polyline.
func PathLength(coords []Coord) int {
	total := 0
	for i := 1; i < len(coords); i++ {
		total += Dist(coords[i-1], coords[i])
	}
	return total
}

// LineString converts a polyline to an orb line string.
func LineString(coords []Coord) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = c.Point()
	}
	return ls
}

// Ring converts a boundary to a closed orb ring. Open boundaries are closed
// by repeating the first point.
func Ring(coords []Coord) orb.Ring {
	ring := make(orb.Ring, 0, len(coords)+1)
	for _, c := range coords {
		ring = append(ring, c.Point())
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring
}

// Bound returns the bounding rectangle of coords.
func Bound(coords []Coord) orb.Bound {
	return LineString(coords).Bound()
}

// FixedPoint encodes lon/lat degrees as integer coordinates by scaling.
// A scale of 1e5 gives roughly metre resolution near the equator.
type FixedPoint struct {
	Scale float64
}

// Encode converts a lon/lat pair to a coordinate.
func (f FixedPoint) Encode(lon, lat float64) Coord {
	return Coord{X: int(math.Round(lon * f.Scale)), Y: int(math.Round(lat * f.Scale))}
}

// Decode converts a coordinate back to lon/lat degrees.
func (f FixedPoint) Decode(c Coord) (lon, lat float64) {
	return float64(c.X) / f.Scale, float64(c.Y) / f.Scale
}
