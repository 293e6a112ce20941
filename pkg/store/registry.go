package store

import (
	"cmp"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/metrics"
	"github.com/azybler/waymap/pkg/registry"
)

func notFoundArea(id area.ID) error {
	return eris.Wrapf(area.ErrNotFound, "area %d", id)
}

// Places

// AddPlace stores a place.
func (s *Store) AddPlace(p registry.Place) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if err := s.reg.AddPlace(p); err != nil {
		return err
	}
	metrics.RegistryMutationsTotal.WithLabelValues("add_place").Inc()
	metrics.PlacesGauge.Set(float64(s.reg.PlaceCount()))
	return nil
}

// Place returns place id.
func (s *Store) Place(id registry.PlaceID) (registry.Place, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.Place(id)
}

// PlaceCoord returns the coordinate of place id.
func (s *Store) PlaceCoord(id registry.PlaceID) (geo.Coord, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlaceCoord(id)
}

// PlaceExists reports whether id names a place.
func (s *Store) PlaceExists(id registry.PlaceID) bool {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlaceExists(id)
}

// PlaceCount returns the number of places.
func (s *Store) PlaceCount() int {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlaceCount()
}

// AllPlaces returns every place id, ascending.
func (s *Store) AllPlaces() []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AllPlaces()
}

// PlacesAlphabetically returns place ids ordered by name.
func (s *Store) PlacesAlphabetically() []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlacesAlphabetically()
}

// PlacesCoordOrder returns place ids ordered by distance from the origin.
func (s *Store) PlacesCoordOrder() []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlacesCoordOrder()
}

// FindPlacesName returns the ids of places called name.
func (s *Store) FindPlacesName(name string) []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.FindPlacesName(name)
}

// FindPlacesType returns the ids of places of type t.
func (s *Store) FindPlacesType(t registry.PlaceType) []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.FindPlacesType(t)
}

// ChangePlaceName renames place id.
func (s *Store) ChangePlaceName(id registry.PlaceID, name string) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	return s.reg.ChangePlaceName(id, name)
}

// ChangePlaceCoord moves place id.
func (s *Store) ChangePlaceCoord(id registry.PlaceID, c geo.Coord) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()
	return s.reg.ChangePlaceCoord(id, c)
}

// RemovePlace deletes place id.
func (s *Store) RemovePlace(id registry.PlaceID) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if err := s.reg.RemovePlace(id); err != nil {
		return err
	}
	metrics.RegistryMutationsTotal.WithLabelValues("remove_place").Inc()
	metrics.PlacesGauge.Set(float64(s.reg.PlaceCount()))
	return nil
}

// PlacesClosestTo returns up to three places of type t nearest to c.
func (s *Store) PlacesClosestTo(c geo.Coord, t registry.PlaceType) []registry.PlaceID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.PlacesClosestTo(c, t)
}

// Areas

// AddArea stores an area. It starts without a parent.
func (s *Store) AddArea(a registry.Area) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if err := s.reg.AddArea(a); err != nil {
		return err
	}
	metrics.RegistryMutationsTotal.WithLabelValues("add_area").Inc()
	metrics.AreasGauge.Set(float64(s.reg.AreaCount()))
	return nil
}

// Area returns area id.
func (s *Store) Area(id area.ID) (registry.Area, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.Area(id)
}

// AreaName returns the name of area id.
func (s *Store) AreaName(id area.ID) (string, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AreaName(id)
}

// AreaBoundary returns the boundary of area id.
func (s *Store) AreaBoundary(id area.ID) ([]geo.Coord, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AreaBoundary(id)
}

// AreaExists reports whether id names an area.
func (s *Store) AreaExists(id area.ID) bool {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AreaExists(id)
}

// AllAreas returns every area id, ascending.
func (s *Store) AllAreas() []area.ID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AllAreas()
}

// AreasContaining returns the areas whose boundary contains c.
func (s *Store) AreasContaining(c geo.Coord) []area.ID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.reg.AreasContaining(c)
}

// RemoveArea deletes area id. Its subareas move up to its parent.
func (s *Store) RemoveArea(id area.ID) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if err := s.reg.RemoveArea(id); err != nil {
		return err
	}
	s.areas.Remove(id)
	metrics.RegistryMutationsTotal.WithLabelValues("remove_area").Inc()
	metrics.AreasGauge.Set(float64(s.reg.AreaCount()))
	return nil
}

// NestAreas gives every parentless area the smallest other area whose
// boundary contains all of its boundary points, and returns how many parent
// edges were added. Candidates must be strictly larger, so two identical
// boundaries never nest into each other.
func (s *Store) NestAreas() int {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	type shape struct {
		id   area.ID
		poly orb.Polygon
		size float64
		pts  []orb.Point
	}
	var shapes []shape
	for _, id := range s.reg.AllAreas() {
		boundary, _ := s.reg.AreaBoundary(id)
		if len(boundary) < 3 {
			continue
		}
		sh := shape{id: id, poly: orb.Polygon{geo.Ring(boundary)}}
		sh.size = math.Abs(planar.Area(sh.poly))
		for _, c := range boundary {
			sh.pts = append(sh.pts, c.Point())
		}
		shapes = append(shapes, sh)
	}
	// Smallest first, so candidates for a child are found in size order.
	slices.SortStableFunc(shapes, func(a, b shape) int {
		if c := cmp.Compare(a.size, b.size); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	added := 0
	for i, child := range shapes {
		if s.areas.Parent(child.id) != area.NoArea {
			continue
		}
		for _, cand := range shapes[i+1:] {
			if cand.size <= child.size || !containsAll(cand.poly, child.pts) {
				continue
			}
			if err := s.areas.AddSubarea(child.id, cand.id); err != nil {
				s.log.Debug("nest area skipped",
					zap.Int64("child", int64(child.id)),
					zap.Int64("parent", int64(cand.id)),
					zap.Error(err))
				continue
			}
			added++
			break
		}
	}
	if added > 0 {
		metrics.RegistryMutationsTotal.WithLabelValues("nest_areas").Add(float64(added))
	}
	s.log.Info("nested areas", zap.Int("added", added), zap.Int("candidates", len(shapes)))
	return added
}

func containsAll(poly orb.Polygon, pts []orb.Point) bool {
	for _, p := range pts {
		if !planar.PolygonContains(poly, p) {
			return false
		}
	}
	return true
}
