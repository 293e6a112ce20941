// Package export renders store contents and routes as GeoJSON.
package export

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
)

// WaySource provides ways.
type WaySource interface {
	AllWays() []graph.WayID
	Way(id graph.WayID) (graph.Way, bool)
}

// PlaceSource provides places.
type PlaceSource interface {
	AllPlaces() []registry.PlaceID
	Place(id registry.PlaceID) (registry.Place, error)
}

// AreaSource provides areas and their parents.
type AreaSource interface {
	AllAreas() []area.ID
	Area(id area.ID) (registry.Area, error)
	ParentArea(id area.ID) (area.ID, error)
}

// Options controls coordinate output.
type Options struct {
	// Degrees, when set, decodes integer coordinates back to lon/lat.
	Degrees *geo.FixedPoint
}

func (o Options) point(c geo.Coord) orb.Point {
	if o.Degrees == nil {
		return c.Point()
	}
	lon, lat := o.Degrees.Decode(c)
	return orb.Point{lon, lat}
}

func (o Options) line(coords []geo.Coord) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = o.point(c)
	}
	return ls
}

// Network returns one LineString feature per way, in insertion order.
func Network(src WaySource, opt Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range src.AllWays() {
		w, ok := src.Way(id)
		if !ok {
			continue
		}
		f := geojson.NewFeature(opt.line(w.Coords))
		f.ID = string(w.ID)
		f.Properties["id"] = string(w.ID)
		f.Properties["length"] = w.Length
		fc.Append(f)
	}
	return fc
}

// Places returns one Point feature per place, by ascending id.
func Places(src PlaceSource, opt Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range src.AllPlaces() {
		p, err := src.Place(id)
		if err != nil {
			continue
		}
		f := geojson.NewFeature(opt.point(p.Coord))
		f.ID = int64(p.ID)
		f.Properties["id"] = int64(p.ID)
		f.Properties["name"] = p.Name
		f.Properties["type"] = p.Type.String()
		fc.Append(f)
	}
	return fc
}

// Areas returns one Polygon feature per area with at least three boundary
// points, by ascending id. Shorter boundaries are emitted as LineStrings.
func Areas(src AreaSource, opt Options) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range src.AllAreas() {
		a, err := src.Area(id)
		if err != nil || len(a.Boundary) == 0 {
			continue
		}

		var g orb.Geometry = opt.line(a.Boundary)
		if len(a.Boundary) >= 3 {
			ring := orb.Ring(opt.line(a.Boundary))
			if !ring.Closed() {
				ring = append(ring, ring[0])
			}
			g = orb.Polygon{ring}
		}

		f := geojson.NewFeature(g)
		f.ID = int64(a.ID)
		f.Properties["id"] = int64(a.ID)
		f.Properties["name"] = a.Name
		if parent, err := src.ParentArea(id); err == nil && parent != area.NoArea {
			f.Properties["parent"] = int64(parent)
		}
		fc.Append(f)
	}
	return fc
}

// Route returns a single LineString feature following the full geometry of
// every way on the walk.
func Route(src WaySource, steps []routing.Step, opt Options) *geojson.FeatureCollection {
	hops := make([]hop, 0, len(steps))
	for _, s := range steps {
		hops = append(hops, hop{at: s.Coord, way: s.Way})
	}
	f := geojson.NewFeature(opt.line(trace(src, hops)))
	f.Properties["distance"] = routing.TotalDistance(steps)
	f.Properties["ways"] = wayList(hops)

	fc := geojson.NewFeatureCollection()
	return fc.Append(f)
}

// Cycle renders a cycle walk like Route.
func Cycle(src WaySource, steps []routing.CycleStep, opt Options) *geojson.FeatureCollection {
	hops := make([]hop, 0, len(steps))
	for _, s := range steps {
		hops = append(hops, hop{at: s.Coord, way: s.Way})
	}
	f := geojson.NewFeature(opt.line(trace(src, hops)))
	f.Properties["ways"] = wayList(hops)
	if len(hops) > 0 {
		f.Properties["repeats"] = hops[len(hops)-1].at.String()
	}

	fc := geojson.NewFeatureCollection()
	return fc.Append(f)
}

type hop struct {
	at  geo.Coord
	way graph.WayID
}

func wayList(hops []hop) []string {
	var ways []string
	for _, h := range hops {
		if h.way != graph.NoWay {
			ways = append(ways, string(h.way))
		}
	}
	return ways
}

// trace expands a walk into the polyline it follows. Ways are reversed when
// the walk enters them at their end.
func trace(src WaySource, hops []hop) []geo.Coord {
	if len(hops) == 0 {
		return nil
	}
	path := []geo.Coord{hops[0].at}
	for _, h := range hops {
		if h.way == graph.NoWay {
			continue
		}
		w, ok := src.Way(h.way)
		if !ok {
			continue
		}
		coords := w.Coords
		if coords[0] != h.at {
			coords = slices.Clone(coords)
			slices.Reverse(coords)
		}
		path = append(path, coords[1:]...)
	}
	return path
}
