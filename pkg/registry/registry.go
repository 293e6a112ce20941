// Package registry stores places and areas and answers lookups over them.
package registry

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"github.com/tidwall/rtree"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
)

var (
	// ErrDuplicateID is returned when adding a place or area whose id is taken.
	ErrDuplicateID = eris.New("id already exists")
	// ErrNotFound is returned for unknown place or area ids.
	ErrNotFound = eris.New("id not found")
	// ErrReservedID is returned when adding NoPlace or area.NoArea.
	ErrReservedID = eris.New("id is reserved")
)

// closestLimit caps the result of PlacesClosestTo.
const closestLimit = 3

// Registry holds places and areas by id, with spatial indexes over place
// coordinates and area bounds.
//
// Registry is not safe for concurrent use.
type Registry struct {
	places    map[PlaceID]*Place
	areas     map[area.ID]*Area
	placeIdx  rtree.RTreeG[PlaceID]
	areaIdx   rtree.RTreeG[area.ID]
	areaBound map[area.ID]orb.Bound
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		places:    make(map[PlaceID]*Place),
		areas:     make(map[area.ID]*Area),
		areaBound: make(map[area.ID]orb.Bound),
	}
}

// AddPlace stores a place.
func (r *Registry) AddPlace(p Place) error {
	if p.ID == NoPlace {
		return eris.Wrapf(ErrReservedID, "place %d", p.ID)
	}
	if _, ok := r.places[p.ID]; ok {
		return eris.Wrapf(ErrDuplicateID, "place %d", p.ID)
	}
	stored := p
	r.places[p.ID] = &stored
	r.placeIdx.Insert(p.Coord.Box(), p.Coord.Box(), p.ID)
	return nil
}

// Place returns a copy of place id.
func (r *Registry) Place(id PlaceID) (Place, error) {
	p, ok := r.places[id]
	if !ok {
		return Place{ID: NoPlace, Type: NoType, Coord: geo.NoCoord}, eris.Wrapf(ErrNotFound, "place %d", id)
	}
	return *p, nil
}

// PlaceCoord returns the coordinate of place id.
func (r *Registry) PlaceCoord(id PlaceID) (geo.Coord, error) {
	p, ok := r.places[id]
	if !ok {
		return geo.NoCoord, eris.Wrapf(ErrNotFound, "place %d", id)
	}
	return p.Coord, nil
}

// PlaceExists reports whether id names a place.
func (r *Registry) PlaceExists(id PlaceID) bool {
	_, ok := r.places[id]
	return ok
}

// PlaceCount returns the number of places.
func (r *Registry) PlaceCount() int { return len(r.places) }

// AllPlaces returns every place id in ascending order.
func (r *Registry) AllPlaces() []PlaceID {
	ids := make([]PlaceID, 0, len(r.places))
	for id := range r.places {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// PlacesAlphabetically returns place ids ordered by name, then id.
func (r *Registry) PlacesAlphabetically() []PlaceID {
	ids := r.AllPlaces()
	slices.SortStableFunc(ids, func(a, b PlaceID) int {
		return cmp.Compare(r.places[a].Name, r.places[b].Name)
	})
	return ids
}

// PlacesCoordOrder returns place ids ordered by distance from the origin.
// Equal distances go to the smaller y, then the smaller x, then the id.
func (r *Registry) PlacesCoordOrder() []PlaceID {
	origin := geo.Coord{}
	ids := r.AllPlaces()
	slices.SortStableFunc(ids, func(a, b PlaceID) int {
		ca, cb := r.places[a].Coord, r.places[b].Coord
		if c := cmp.Compare(geo.DistSq(origin, ca), geo.DistSq(origin, cb)); c != 0 {
			return c
		}
		return ca.Compare(cb)
	})
	return ids
}

// FindPlacesName returns the ids of places called name, ascending.
func (r *Registry) FindPlacesName(name string) []PlaceID {
	var ids []PlaceID
	for _, id := range r.AllPlaces() {
		if r.places[id].Name == name {
			ids = append(ids, id)
		}
	}
	return ids
}

// FindPlacesType returns the ids of places of type t, ascending.
func (r *Registry) FindPlacesType(t PlaceType) []PlaceID {
	var ids []PlaceID
	for _, id := range r.AllPlaces() {
		if r.places[id].Type == t {
			ids = append(ids, id)
		}
	}
	return ids
}

// ChangePlaceName renames place id.
func (r *Registry) ChangePlaceName(id PlaceID, name string) error {
	p, ok := r.places[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "place %d", id)
	}
	p.Name = name
	return nil
}

// ChangePlaceCoord moves place id.
func (r *Registry) ChangePlaceCoord(id PlaceID, c geo.Coord) error {
	p, ok := r.places[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "place %d", id)
	}
	r.placeIdx.Delete(p.Coord.Box(), p.Coord.Box(), id)
	p.Coord = c
	r.placeIdx.Insert(c.Box(), c.Box(), id)
	return nil
}

// RemovePlace deletes place id.
func (r *Registry) RemovePlace(id PlaceID) error {
	p, ok := r.places[id]
	if !ok {
		return eris.Wrapf(ErrNotFound, "place %d", id)
	}
	r.placeIdx.Delete(p.Coord.Box(), p.Coord.Box(), id)
	delete(r.places, id)
	return nil
}

// PlacesClosestTo returns up to three places nearest to c, closest first.
// NoType matches every type. Equally distant places are ordered by
// coordinate, then id.
func (r *Registry) PlacesClosestTo(c geo.Coord, t PlaceType) []PlaceID {
	type hit struct {
		id   PlaceID
		at   geo.Coord
		dist int64
	}
	var hits []hit
	pt := c.Box()
	r.placeIdx.Nearby(
		rtree.BoxDist[float64, PlaceID](pt, pt, nil),
		func(_, _ [2]float64, id PlaceID, _ float64) bool {
			p := r.places[id]
			if t != NoType && p.Type != t {
				return true
			}
			d := geo.DistSq(c, p.Coord)
			// Keep collecting while the candidate still ties the last slot.
			if len(hits) >= closestLimit && d > hits[closestLimit-1].dist {
				return false
			}
			hits = append(hits, hit{id: id, at: p.Coord, dist: d})
			return true
		},
	)

	slices.SortFunc(hits, func(a, b hit) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		if c := a.at.Compare(b.at); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	ids := make([]PlaceID, 0, closestLimit)
	for i := 0; i < len(hits) && i < closestLimit; i++ {
		ids = append(ids, hits[i].id)
	}
	return ids
}

// AddArea stores an area.
func (r *Registry) AddArea(a Area) error {
	if a.ID == area.NoArea {
		return eris.Wrapf(ErrReservedID, "area %d", a.ID)
	}
	if _, ok := r.areas[a.ID]; ok {
		return eris.Wrapf(ErrDuplicateID, "area %d", a.ID)
	}
	stored := Area{ID: a.ID, Name: a.Name, Boundary: slices.Clone(a.Boundary)}
	r.areas[a.ID] = &stored
	if len(stored.Boundary) > 0 {
		b := geo.Bound(stored.Boundary)
		r.areaBound[a.ID] = b
		r.areaIdx.Insert(b.Min, b.Max, a.ID)
	}
	return nil
}

// Area returns a copy of area id.
func (r *Registry) Area(id area.ID) (Area, error) {
	a, ok := r.areas[id]
	if !ok {
		return Area{ID: area.NoArea}, eris.Wrapf(ErrNotFound, "area %d", id)
	}
	return Area{ID: a.ID, Name: a.Name, Boundary: slices.Clone(a.Boundary)}, nil
}

// AreaName returns the name of area id.
func (r *Registry) AreaName(id area.ID) (string, error) {
	a, ok := r.areas[id]
	if !ok {
		return "", eris.Wrapf(ErrNotFound, "area %d", id)
	}
	return a.Name, nil
}

// AreaBoundary returns a copy of the boundary of area id.
func (r *Registry) AreaBoundary(id area.ID) ([]geo.Coord, error) {
	a, ok := r.areas[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "area %d", id)
	}
	return slices.Clone(a.Boundary), nil
}

// AreaExists reports whether id names an area.
func (r *Registry) AreaExists(id area.ID) bool {
	_, ok := r.areas[id]
	return ok
}

// AreaCount returns the number of areas.
func (r *Registry) AreaCount() int { return len(r.areas) }

// AllAreas returns every area id in ascending order.
func (r *Registry) AllAreas() []area.ID {
	ids := make([]area.ID, 0, len(r.areas))
	for id := range r.areas {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// RemoveArea deletes area id. The caller detaches it from the hierarchy.
func (r *Registry) RemoveArea(id area.ID) error {
	if _, ok := r.areas[id]; !ok {
		return eris.Wrapf(ErrNotFound, "area %d", id)
	}
	if b, ok := r.areaBound[id]; ok {
		r.areaIdx.Delete(b.Min, b.Max, id)
		delete(r.areaBound, id)
	}
	delete(r.areas, id)
	return nil
}

// AreasContaining returns the ids of areas whose boundary polygon contains
// c, ascending. Boundaries with fewer than three points contain nothing.
func (r *Registry) AreasContaining(c geo.Coord) []area.ID {
	pt := c.Point()
	var ids []area.ID
	r.areaIdx.Search(c.Box(), c.Box(), func(_, _ [2]float64, id area.ID) bool {
		a := r.areas[id]
		if len(a.Boundary) >= 3 && planar.PolygonContains(orb.Polygon{geo.Ring(a.Boundary)}, pt) {
			ids = append(ids, id)
		}
		return true
	})
	slices.Sort(ids)
	return ids
}

// Clear removes every place and area.
func (r *Registry) Clear() {
	r.places = make(map[PlaceID]*Place)
	r.areas = make(map[area.ID]*Area)
	r.areaBound = make(map[area.ID]orb.Bound)
	r.placeIdx = rtree.RTreeG[PlaceID]{}
	r.areaIdx = rtree.RTreeG[area.ID]{}
}
