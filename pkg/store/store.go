// Package store combines the way network, routing engine, place and area
// registry and area hierarchy behind one API that is safe for concurrent use.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/metrics"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
)

// Options configures a Store.
type Options struct {
	// MaxSnapDist bounds place-to-vertex snapping; 0 disables the limit.
	MaxSnapDist float64
	Logger      *zap.Logger
}

// Store owns all data. netMu guards the network; regMu guards the registry
// and the hierarchy. Locks are never held together except by ClearAll, which
// takes netMu first.
type Store struct {
	netMu  sync.RWMutex
	net    *graph.Network
	engine *routing.Engine
	snap   *routing.Snapper

	regMu sync.RWMutex
	reg   *registry.Registry
	areas *area.Hierarchy

	log *zap.Logger
}

// New creates an empty store.
func New(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	net := graph.NewNetwork()
	reg := registry.New()
	return &Store{
		net:    net,
		engine: routing.NewEngine(net),
		snap:   routing.NewSnapper(net, opts.MaxSnapDist),
		reg:    reg,
		areas:  area.NewHierarchy(reg),
		log:    log.With(zap.String("component", "store")),
	}
}

// Way network

// AddWay adds a way to the network.
func (s *Store) AddWay(id graph.WayID, coords []geo.Coord) error {
	s.netMu.Lock()
	defer s.netMu.Unlock()

	if err := s.net.AddWay(id, coords); err != nil {
		s.log.Debug("add way rejected", zap.String("way", string(id)), zap.Error(err))
		return err
	}
	metrics.WayMutationsTotal.WithLabelValues("add").Inc()
	metrics.WaysGauge.Set(float64(s.net.NumWays()))
	return nil
}

// WaysFrom lists the ways incident on c with their opposite endpoints.
func (s *Store) WaysFrom(c geo.Coord) []graph.Edge {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.net.WaysFrom(c)
}

// WayCoords returns the polyline of way id.
func (s *Store) WayCoords(id graph.WayID) ([]geo.Coord, error) {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.net.WayCoords(id)
}

// Way returns a copy of way id.
func (s *Store) Way(id graph.WayID) (graph.Way, bool) {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.net.Way(id)
}

// AllWays returns way ids in insertion order.
func (s *Store) AllWays() []graph.WayID {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.net.AllWays()
}

// RemoveWay deletes way id.
func (s *Store) RemoveWay(id graph.WayID) error {
	s.netMu.Lock()
	defer s.netMu.Unlock()

	if err := s.net.RemoveWay(id); err != nil {
		return err
	}
	metrics.WayMutationsTotal.WithLabelValues("remove").Inc()
	metrics.WaysGauge.Set(float64(s.net.NumWays()))
	return nil
}

// ClearWays removes every way.
func (s *Store) ClearWays() {
	s.netMu.Lock()
	defer s.netMu.Unlock()

	s.net.ClearWays()
	metrics.WayMutationsTotal.WithLabelValues("clear").Inc()
	metrics.WaysGauge.Set(0)
}

// TrimWays removes ways that are redundant for connectivity and returns the
// total length removed.
func (s *Store) TrimWays() int {
	s.netMu.Lock()
	defer s.netMu.Unlock()

	before := s.net.NumWays()
	removed := s.net.TrimWays()
	s.log.Info("trimmed ways",
		zap.Int("removed_ways", before-s.net.NumWays()),
		zap.Int("removed_length", removed))
	metrics.WayMutationsTotal.WithLabelValues("trim").Inc()
	metrics.TrimmedLengthTotal.Add(float64(removed))
	metrics.WaysGauge.Set(float64(s.net.NumWays()))
	return removed
}

// Routing

// Route runs the path query named by kind.
func (s *Store) Route(ctx context.Context, kind routing.Kind, from, to geo.Coord) ([]routing.Step, error) {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.route(ctx, kind, from, to)
}

// route expects netMu to be held.
func (s *Store) route(ctx context.Context, kind routing.Kind, from, to geo.Coord) ([]routing.Step, error) {
	start := time.Now()
	steps, err := routing.Route(ctx, s.engine, kind, from, to)
	observeRoute(string(kind), start, len(steps), err)
	if err != nil {
		s.log.Debug("route failed",
			zap.String("kind", string(kind)),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Error(err))
		return nil, err
	}
	return steps, nil
}

// RouteAny returns some walk between two vertices.
func (s *Store) RouteAny(ctx context.Context, from, to geo.Coord) ([]routing.Step, error) {
	return s.Route(ctx, routing.KindAny, from, to)
}

// RouteShortestDistance returns the walk of least total length.
func (s *Store) RouteShortestDistance(ctx context.Context, from, to geo.Coord) ([]routing.Step, error) {
	return s.Route(ctx, routing.KindShortest, from, to)
}

// RouteLeastCrossroads returns the walk with the fewest ways.
func (s *Store) RouteLeastCrossroads(ctx context.Context, from, to geo.Coord) ([]routing.Step, error) {
	return s.Route(ctx, routing.KindLeastCrossroads, from, to)
}

// RouteWithCycle returns a walk from `from` that ends by revisiting a
// coordinate.
func (s *Store) RouteWithCycle(ctx context.Context, from geo.Coord) ([]routing.CycleStep, error) {
	s.netMu.RLock()
	defer s.netMu.RUnlock()

	start := time.Now()
	steps, err := s.engine.RouteWithCycle(ctx, from)
	observeRoute("cycle", start, len(steps), err)
	return steps, err
}

func observeRoute(kind string, start time.Time, steps int, err error) {
	metrics.RouteDurationMs.WithLabelValues(kind).Observe(float64(time.Since(start).Microseconds()) / 1000)
	switch {
	case err == nil:
		metrics.RouteQueriesTotal.WithLabelValues(kind, metrics.ResultOK).Inc()
		metrics.RouteSteps.Observe(float64(steps))
	case errors.Is(err, routing.ErrNoRoute):
		metrics.RouteQueriesTotal.WithLabelValues(kind, metrics.ResultNoRoute).Inc()
	default:
		metrics.RouteQueriesTotal.WithLabelValues(kind, metrics.ResultError).Inc()
	}
}

// PlaceRoute is a route between two places whose coordinates were snapped
// onto the network.
type PlaceRoute struct {
	From, To routing.SnapResult
	Steps    []routing.Step
}

// RoutePlaces routes between the coordinates of two places, snapping each to
// its nearest vertex first.
func (s *Store) RoutePlaces(ctx context.Context, kind routing.Kind, from, to registry.PlaceID) (PlaceRoute, error) {
	s.regMu.RLock()
	a, errA := s.reg.PlaceCoord(from)
	b, errB := s.reg.PlaceCoord(to)
	s.regMu.RUnlock()
	if err := errors.Join(errA, errB); err != nil {
		return PlaceRoute{}, err
	}

	s.netMu.RLock()
	defer s.netMu.RUnlock()

	sa, sb, err := s.snap.SnapPair(a, b)
	if err != nil {
		return PlaceRoute{From: sa, To: sb}, err
	}
	steps, err := s.route(ctx, kind, sa.Vertex, sb.Vertex)
	if err != nil {
		return PlaceRoute{From: sa, To: sb}, err
	}
	return PlaceRoute{From: sa, To: sb, Steps: steps}, nil
}

// Snap returns the network vertex nearest to c.
func (s *Store) Snap(c geo.Coord) (routing.SnapResult, error) {
	s.netMu.RLock()
	defer s.netMu.RUnlock()
	return s.snap.Snap(c)
}

// Area hierarchy

// AddSubareaToArea records parent as the parent of child.
func (s *Store) AddSubareaToArea(child, parent area.ID) error {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if err := s.areas.AddSubarea(child, parent); err != nil {
		s.log.Debug("add subarea rejected",
			zap.Int64("child", int64(child)),
			zap.Int64("parent", int64(parent)),
			zap.Error(err))
		return err
	}
	metrics.RegistryMutationsTotal.WithLabelValues("add_subarea").Inc()
	return nil
}

// SubareaInAreas returns the ancestor chain of id, nearest first.
func (s *Store) SubareaInAreas(id area.ID) ([]area.ID, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.areas.Ancestors(id)
}

// AllSubareasInArea returns every descendant of id.
func (s *Store) AllSubareasInArea(id area.ID) ([]area.ID, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.areas.Descendants(id)
}

// CommonAreaOfSubareas returns the lowest common ancestor of two areas.
func (s *Store) CommonAreaOfSubareas(a, b area.ID) (area.ID, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.areas.CommonAncestor(a, b)
}

// ParentArea returns the parent of id, or area.NoArea.
func (s *Store) ParentArea(id area.ID) (area.ID, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()

	if !s.reg.AreaExists(id) {
		return area.NoArea, notFoundArea(id)
	}
	return s.areas.Parent(id), nil
}

// ChildAreas returns the direct subareas of id.
func (s *Store) ChildAreas(id area.ID) ([]area.ID, error) {
	s.regMu.RLock()
	defer s.regMu.RUnlock()

	if !s.reg.AreaExists(id) {
		return nil, notFoundArea(id)
	}
	return s.areas.Children(id), nil
}

// RootAreas returns the areas that have no parent, in ascending id order.
func (s *Store) RootAreas() []area.ID {
	s.regMu.RLock()
	defer s.regMu.RUnlock()
	return s.areas.Roots(s.reg.AllAreas())
}

// Stats summarises the store contents.
type Stats struct {
	Ways             int `json:"ways"`
	Vertices         int `json:"vertices"`
	TotalLength      int `json:"total_length"`
	Components       int `json:"components"`
	LargestComponent int `json:"largest_component"`
	Places           int `json:"places"`
	Areas            int `json:"areas"`
	NestedAreas      int `json:"nested_areas"`
}

// Stats returns current counts.
func (s *Store) Stats() Stats {
	var st Stats

	s.netMu.RLock()
	st.Ways = s.net.NumWays()
	st.Vertices = s.net.NumVertices()
	st.TotalLength = s.net.TotalLength()
	st.Components, st.LargestComponent = s.net.ComponentSizes()
	s.netMu.RUnlock()

	s.regMu.RLock()
	st.Places = s.reg.PlaceCount()
	st.Areas = s.reg.AreaCount()
	st.NestedAreas = s.areas.Len()
	s.regMu.RUnlock()

	return st
}

// ClearAll removes every way, place, area and parent edge.
func (s *Store) ClearAll() {
	s.netMu.Lock()
	defer s.netMu.Unlock()
	s.regMu.Lock()
	defer s.regMu.Unlock()

	s.net.ClearWays()
	s.reg.Clear()
	s.areas.Clear()
	metrics.WaysGauge.Set(0)
	metrics.PlacesGauge.Set(0)
	metrics.AreasGauge.Set(0)
	s.log.Info("cleared all data")
}

// CreationFinished marks the end of a bulk load. Nothing is rebuilt because
// every index is maintained incrementally; the call logs the loaded counts.
func (s *Store) CreationFinished() {
	st := s.Stats()
	s.log.Info("creation finished",
		zap.Int("ways", st.Ways),
		zap.Int("vertices", st.Vertices),
		zap.Int("places", st.Places),
		zap.Int("areas", st.Areas),
		zap.Int("nested_areas", st.NestedAreas))
}
