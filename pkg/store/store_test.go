package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/osm"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
)

func c(x, y int) geo.Coord { return geo.Coord{X: x, Y: y} }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Options{MaxSnapDist: 5, Logger: zap.NewNop()})
}

func square(x0, y0, x1, y1 int) []geo.Coord {
	return []geo.Coord{c(x0, y0), c(x1, y0), c(x1, y1), c(x0, y1)}
}

func TestTwoWayScenario(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddWay("W1", []geo.Coord{c(0, 0), c(0, 10)}))
	require.NoError(t, s.AddWay("W2", []geo.Coord{c(0, 10), c(10, 10)}))

	ctx := context.Background()
	shortest, err := s.RouteShortestDistance(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, []routing.Step{
		{Coord: c(0, 0), Way: "W1", Distance: 0},
		{Coord: c(0, 10), Way: "W2", Distance: 10},
		{Coord: c(10, 10), Way: graph.NoWay, Distance: 20},
	}, shortest)

	anyWalk, err := s.RouteAny(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, shortest, anyWalk)

	fewest, err := s.RouteLeastCrossroads(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, shortest, fewest)

	_, err = s.RouteWithCycle(ctx, c(0, 0))
	assert.ErrorIs(t, err, routing.ErrNoRoute)
}

func TestWayOperations(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddWay("A", []geo.Coord{c(0, 0), c(0, 10)}))
	require.NoError(t, s.AddWay("B", []geo.Coord{c(0, 0), c(5, 5), c(0, 10)}))
	assert.ErrorIs(t, s.AddWay("A", []geo.Coord{c(1, 1), c(2, 2)}), graph.ErrDuplicateID)

	assert.Equal(t, []graph.WayID{"A", "B"}, s.AllWays())
	assert.Len(t, s.WaysFrom(c(0, 10)), 2)

	coords, err := s.WayCoords("B")
	require.NoError(t, err)
	assert.Equal(t, []geo.Coord{c(0, 0), c(5, 5), c(0, 10)}, coords)

	w, ok := s.Way("B")
	require.True(t, ok)
	assert.Equal(t, 14, w.Length)

	assert.Equal(t, 14, s.TrimWays())
	assert.Equal(t, []graph.WayID{"A"}, s.AllWays())
	assert.Zero(t, s.TrimWays())

	require.NoError(t, s.RemoveWay("A"))
	assert.ErrorIs(t, s.RemoveWay("A"), graph.ErrNotFound)

	s.ClearWays()
	s.ClearWays()
	assert.Empty(t, s.AllWays())
}

func TestRoutePlaces(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddWay("W1", []geo.Coord{c(0, 0), c(0, 10)}))
	require.NoError(t, s.AddWay("W2", []geo.Coord{c(0, 10), c(10, 10)}))
	require.NoError(t, s.AddPlace(registry.Place{ID: 1, Name: "Gate", Type: registry.Parking, Coord: c(1, 1)}))
	require.NoError(t, s.AddPlace(registry.Place{ID: 2, Name: "Hut", Type: registry.Shelter, Coord: c(10, 12)}))
	require.NoError(t, s.AddPlace(registry.Place{ID: 3, Name: "Lake", Type: registry.Bay, Coord: c(50, 50)}))

	ctx := context.Background()
	pr, err := s.RoutePlaces(ctx, routing.KindShortest, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, c(0, 0), pr.From.Vertex)
	assert.Equal(t, c(10, 10), pr.To.Vertex)
	assert.InDelta(t, 2.0, pr.To.Dist, 1e-9)
	assert.Equal(t, 20, routing.TotalDistance(pr.Steps))

	_, err = s.RoutePlaces(ctx, routing.KindAny, 1, 3)
	assert.ErrorIs(t, err, routing.ErrPointTooFar)

	_, err = s.RoutePlaces(ctx, routing.KindAny, 1, 99)
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestHierarchyThroughStore(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []area.ID{1, 2, 3} {
		require.NoError(t, s.AddArea(registry.Area{ID: id, Name: fmt.Sprintf("area-%d", id)}))
	}

	require.NoError(t, s.AddSubareaToArea(1, 2))
	err := s.AddSubareaToArea(1, 3)
	assert.ErrorIs(t, err, area.ErrInvalidParent)

	chain, err := s.SubareaInAreas(1)
	require.NoError(t, err)
	assert.Equal(t, []area.ID{2}, chain)

	subs, err := s.AllSubareasInArea(2)
	require.NoError(t, err)
	assert.Equal(t, []area.ID{1}, subs)

	common, err := s.CommonAreaOfSubareas(1, 1)
	require.NoError(t, err)
	assert.Equal(t, area.ID(1), common)

	_, err = s.CommonAreaOfSubareas(1, 3)
	assert.ErrorIs(t, err, area.ErrNotFound)

	parent, err := s.ParentArea(1)
	require.NoError(t, err)
	assert.Equal(t, area.ID(2), parent)
	_, err = s.ParentArea(42)
	assert.ErrorIs(t, err, area.ErrNotFound)

	// Removing the parent turns its child into a root.
	require.NoError(t, s.RemoveArea(2))
	chain, err = s.SubareaInAreas(1)
	require.NoError(t, err)
	assert.Empty(t, chain)
	_, err = s.SubareaInAreas(2)
	assert.ErrorIs(t, err, area.ErrNotFound)
}

func TestNestAreas(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddArea(registry.Area{ID: 1, Name: "Country", Boundary: square(0, 0, 100, 100)}))
	require.NoError(t, s.AddArea(registry.Area{ID: 2, Name: "Region", Boundary: square(10, 10, 50, 50)}))
	require.NoError(t, s.AddArea(registry.Area{ID: 3, Name: "Town", Boundary: square(20, 20, 30, 30)}))
	require.NoError(t, s.AddArea(registry.Area{ID: 4, Name: "Island", Boundary: square(200, 200, 210, 210)}))
	require.NoError(t, s.AddArea(registry.Area{ID: 5, Name: "Border", Boundary: []geo.Coord{c(0, 0), c(5, 5)}}))

	assert.Equal(t, 2, s.NestAreas())

	chain, err := s.SubareaInAreas(3)
	require.NoError(t, err)
	assert.Equal(t, []area.ID{2, 1}, chain)

	parent, err := s.ParentArea(4)
	require.NoError(t, err)
	assert.Equal(t, area.NoArea, parent)

	assert.Equal(t, []area.ID{1, 2, 3}, s.AreasContaining(c(25, 25)))
	assert.Equal(t, []area.ID{1, 4, 5}, s.RootAreas())
	assert.Zero(t, s.NestAreas())

	require.NoError(t, s.RemoveArea(1))
	assert.Equal(t, []area.ID{2, 4, 5}, s.RootAreas())
}

func TestPlacesThroughStore(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddPlace(registry.Place{ID: 7, Name: "Fire", Type: registry.Firepit, Coord: c(3, 4)}))
	require.NoError(t, s.AddPlace(registry.Place{ID: 8, Name: "Ash", Type: registry.Firepit, Coord: c(1, 0)}))
	assert.ErrorIs(t, s.AddPlace(registry.Place{ID: 7}), registry.ErrDuplicateID)

	assert.Equal(t, 2, s.PlaceCount())
	assert.Equal(t, []registry.PlaceID{8, 7}, s.PlacesAlphabetically())
	assert.Equal(t, []registry.PlaceID{8, 7}, s.PlacesCoordOrder())
	assert.Equal(t, []registry.PlaceID{7}, s.FindPlacesName("Fire"))
	assert.Equal(t, []registry.PlaceID{7, 8}, s.FindPlacesType(registry.Firepit))

	require.NoError(t, s.ChangePlaceCoord(8, c(30, 40)))
	assert.Equal(t, []registry.PlaceID{7, 8}, s.PlacesClosestTo(c(0, 0), registry.Firepit))
	require.NoError(t, s.ChangePlaceName(8, "Embers"))
	p, err := s.Place(8)
	require.NoError(t, err)
	assert.Equal(t, "Embers", p.Name)

	require.NoError(t, s.RemovePlace(7))
	assert.False(t, s.PlaceExists(7))
	assert.Equal(t, []registry.PlaceID{8}, s.AllPlaces())
}

func TestLoadAndStats(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.AddWay("w1", []geo.Coord{c(0, 0), c(10, 0)}))

	rep := s.Load(&osm.ParseResult{
		Ways: []osm.Way{
			{ID: "w1", Coords: []geo.Coord{c(5, 5), c(6, 6)}},
			{ID: "w2", Coords: []geo.Coord{c(10, 0), c(10, 10)}},
			{ID: "w3", Coords: []geo.Coord{c(50, 50), c(60, 50)}},
		},
		Places: []registry.Place{{ID: 1, Name: "Peak", Type: registry.Peak, Coord: c(10, 10)}},
		Areas:  []registry.Area{{ID: 1, Name: "Park", Boundary: square(0, 0, 20, 20)}},
	})
	assert.Equal(t, LoadReport{Ways: 2, Places: 1, Areas: 1, Skipped: 1}, rep)

	st := s.Stats()
	assert.Equal(t, Stats{
		Ways:             3,
		Vertices:         5,
		TotalLength:      30,
		Components:       2,
		LargestComponent: 3,
		Places:           1,
		Areas:            1,
	}, st)

	s.CreationFinished()

	s.ClearAll()
	assert.Equal(t, Stats{}, s.Stats())
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := newTestStore(t)
	for i := range 20 {
		require.NoError(t, s.AddWay(graph.WayID(fmt.Sprintf("base%d", i)), []geo.Coord{c(i*10, 0), c(i*10+10, 0)}))
	}

	ctx := context.Background()
	var g errgroup.Group
	for i := range 8 {
		g.Go(func() error {
			for range 50 {
				steps, err := s.RouteShortestDistance(ctx, c(0, 0), c(200, 0))
				if err != nil {
					return err
				}
				if routing.TotalDistance(steps) != 200 {
					return fmt.Errorf("reader %d: distance %d", i, routing.TotalDistance(steps))
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for j := range 50 {
			id := graph.WayID(fmt.Sprintf("spur%d", j))
			if err := s.AddWay(id, []geo.Coord{c(j, 100), c(j, 110)}); err != nil {
				return err
			}
			if err := s.RemoveWay(id); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())
	assert.Len(t, s.AllWays(), 20)
}
