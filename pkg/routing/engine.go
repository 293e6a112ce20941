package routing

import (
	"cmp"
	"context"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
)

// ErrNoRoute is returned when no route exists between the two points, when
// either point is not a vertex of the network, or when no cycle is reachable.
var ErrNoRoute = eris.New("no route found")

// NoDistance marks an unknown distance.
const NoDistance = geo.NoValue

// Step is one stop on a walk: the coordinate reached, the way taken from it
// and the distance travelled so far. The last step carries graph.NoWay and
// the total distance.
type Step struct {
	Coord    geo.Coord
	Way      graph.WayID
	Distance int
}

// CycleStep is one stop on a cycle walk. The last step repeats an earlier
// coordinate and carries graph.NoWay.
type CycleStep struct {
	Coord geo.Coord
	Way   graph.WayID
}

// NoRouteSteps is the sentinel walk reported to callers that expect a
// single not-found tuple instead of an error.
func NoRouteSteps() []Step {
	return []Step{{Coord: geo.NoCoord, Way: graph.NoWay, Distance: NoDistance}}
}

// Router is the interface for route queries.
type Router interface {
	RouteAny(ctx context.Context, from, to geo.Coord) ([]Step, error)
	RouteLeastCrossroads(ctx context.Context, from, to geo.Coord) ([]Step, error)
	RouteShortestDistance(ctx context.Context, from, to geo.Coord) ([]Step, error)
	RouteWithCycle(ctx context.Context, from geo.Coord) ([]CycleStep, error)
}

// Engine implements Router over a way network. It only reads the network;
// callers must not mutate it while a query runs.
type Engine struct {
	net *graph.Network
}

// NewEngine creates a routing engine for net.
func NewEngine(net *graph.Network) *Engine {
	return &Engine{net: net}
}

// visitState tracks a vertex through a traversal.
type visitState uint8

const (
	unvisited visitState = iota
	frontier
	visited
)

// label records how a traversal first (or best) reached a vertex.
type label struct {
	prev geo.Coord
	way  graph.WayID
	dist int // cumulative distance from the source
	hops int
}

// search holds per-query traversal state.
type search struct {
	from   geo.Coord
	labels map[geo.Coord]label
	state  map[geo.Coord]visitState
}

func newSearch(from geo.Coord) *search {
	return &search{
		from:   from,
		labels: map[geo.Coord]label{from: {prev: geo.NoCoord, way: graph.NoWay}},
		state:  map[geo.Coord]visitState{from: frontier},
	}
}

// walk rebuilds the walk from the source to c.
func (s *search) walk(to geo.Coord) []Step {
	var rev []geo.Coord
	for at := to; at != s.from; at = s.labels[at].prev {
		rev = append(rev, at)
	}

	steps := make([]Step, 0, len(rev)+1)
	at := s.from
	for i := len(rev) - 1; i >= 0; i-- {
		next := rev[i]
		steps = append(steps, Step{Coord: at, Way: s.labels[next].way, Distance: s.labels[at].dist})
		at = next
	}
	return append(steps, Step{Coord: to, Way: graph.NoWay, Distance: s.labels[to].dist})
}

// trail returns the way ids along the labelled path ending at c.
func (s *search) trail(c geo.Coord) []graph.WayID {
	var ways []graph.WayID
	for at := c; at != s.from; at = s.labels[at].prev {
		ways = append(ways, s.labels[at].way)
	}
	slices.Reverse(ways)
	return ways
}

func (e *Engine) checkEndpoints(from, to geo.Coord) error {
	if !e.net.HasVertex(from) {
		return eris.Wrapf(ErrNoRoute, "coordinate %s is not in the network", from)
	}
	if !e.net.HasVertex(to) {
		return eris.Wrapf(ErrNoRoute, "coordinate %s is not in the network", to)
	}
	return nil
}

// cancelled polls ctx before the first expansion and every 100th after it.
func cancelled(ctx context.Context, iterations int) bool {
	return iterations%100 == 0 && ctx.Err() != nil
}

// RouteAny returns some walk from `from` to `to`, found breadth-first in
// incidence order.
func (e *Engine) RouteAny(ctx context.Context, from, to geo.Coord) ([]Step, error) {
	return e.breadthFirst(ctx, from, to, false)
}

// RouteLeastCrossroads returns a walk with the fewest ways. Among those, the
// walk whose sequence of way ids is lexicographically smallest wins.
func (e *Engine) RouteLeastCrossroads(ctx context.Context, from, to geo.Coord) ([]Step, error) {
	return e.breadthFirst(ctx, from, to, true)
}

// breadthFirst expands vertices level by level. With ordered set, edges are
// expanded by way id, so each level's queue is sorted by the way-id sequence
// of its walks and the first walk reaching `to` is the smallest one.
func (e *Engine) breadthFirst(ctx context.Context, from, to geo.Coord, ordered bool) ([]Step, error) {
	if err := e.checkEndpoints(from, to); err != nil {
		return nil, err
	}

	s := newSearch(from)
	if from == to {
		return s.walk(to), nil
	}

	queue := []geo.Coord{from}
	for iterations := 0; len(queue) > 0; iterations++ {
		if cancelled(ctx, iterations) {
			return nil, eris.Wrap(ctx.Err(), "route search cancelled")
		}

		u := queue[0]
		queue = queue[1:]
		s.state[u] = visited
		cur := s.labels[u]

		edges := e.net.WaysFrom(u)
		if ordered {
			slices.SortStableFunc(edges, func(a, b graph.Edge) int { return cmp.Compare(a.Way, b.Way) })
		}
		for _, edge := range edges {
			if s.state[edge.To] != unvisited {
				continue
			}
			s.state[edge.To] = frontier
			s.labels[edge.To] = label{
				prev: u,
				way:  edge.Way,
				dist: cur.dist + edge.Length,
				hops: cur.hops + 1,
			}
			if edge.To == to {
				return s.walk(to), nil
			}
			queue = append(queue, edge.To)
		}
	}

	return nil, eris.Wrapf(ErrNoRoute, "from %s to %s", from, to)
}

// RouteShortestDistance returns the walk of minimal total length. Ties go to
// the walk with fewer ways, then to the lexicographically smaller sequence
// of way ids.
func (e *Engine) RouteShortestDistance(ctx context.Context, from, to geo.Coord) ([]Step, error) {
	if err := e.checkEndpoints(from, to); err != nil {
		return nil, err
	}

	s := newSearch(from)
	var pq MinHeap
	pq.Push(from, 0, 0)

	for iterations := 0; pq.Len() > 0; iterations++ {
		if cancelled(ctx, iterations) {
			return nil, eris.Wrap(ctx.Err(), "route search cancelled")
		}

		item := pq.Pop()
		u := item.At
		cur := s.labels[u]
		if s.state[u] == visited || item.Dist != cur.dist || item.Hops != cur.hops {
			continue // stale entry
		}
		s.state[u] = visited
		if u == to {
			return s.walk(to), nil
		}

		for _, edge := range e.net.WaysFrom(u) {
			v := edge.To
			if s.state[v] == visited {
				continue
			}

			cand := label{
				prev: u,
				way:  edge.Way,
				dist: cur.dist + edge.Length,
				hops: cur.hops + 1,
			}
			old, seen := s.labels[v]
			switch {
			case !seen, cand.dist < old.dist, cand.dist == old.dist && cand.hops < old.hops:
				s.labels[v] = cand
				s.state[v] = frontier
				pq.Push(v, cand.dist, cand.hops)
			case cand.dist == old.dist && cand.hops == old.hops:
				// Same key: the queued entry stays valid, only the trail changes.
				if slices.Compare(append(s.trail(u), edge.Way), s.trail(v)) < 0 {
					s.labels[v] = cand
				}
			}
		}
	}

	return nil, eris.Wrapf(ErrNoRoute, "from %s to %s", from, to)
}

// dfsFrame is one vertex on the current depth-first path.
type dfsFrame struct {
	at    geo.Coord
	via   graph.WayID // way used to arrive at `at`
	edges []graph.Edge
	next  int
}

// RouteWithCycle searches depth-first from `from` and returns the walk up to
// the first cycle found: the final step repeats a coordinate already on the
// walk. A way is never taken straight back the way it was arrived on, but a
// self-loop or a second way between the same vertices does close a cycle.
// Uses an explicit stack to avoid recursion on long networks.
func (e *Engine) RouteWithCycle(ctx context.Context, from geo.Coord) ([]CycleStep, error) {
	if !e.net.HasVertex(from) {
		return nil, eris.Wrapf(ErrNoRoute, "coordinate %s is not in the network", from)
	}

	state := map[geo.Coord]visitState{from: frontier}
	onPath := map[geo.Coord]bool{from: true}
	stack := []*dfsFrame{{at: from, via: graph.NoWay, edges: e.net.WaysFrom(from)}}

	for iterations := 0; len(stack) > 0; iterations++ {
		if cancelled(ctx, iterations) {
			return nil, eris.Wrap(ctx.Err(), "cycle search cancelled")
		}

		top := stack[len(stack)-1]
		if top.next == len(top.edges) {
			state[top.at] = visited
			delete(onPath, top.at)
			stack = stack[:len(stack)-1]
			continue
		}

		edge := top.edges[top.next]
		top.next++
		if edge.Way == top.via {
			continue
		}

		if onPath[edge.To] {
			steps := make([]CycleStep, 0, len(stack)+1)
			for i, f := range stack {
				way := edge.Way
				if i+1 < len(stack) {
					way = stack[i+1].via
				}
				steps = append(steps, CycleStep{Coord: f.at, Way: way})
			}
			return append(steps, CycleStep{Coord: edge.To, Way: graph.NoWay}), nil
		}
		if state[edge.To] != unvisited {
			continue
		}

		state[edge.To] = frontier
		onPath[edge.To] = true
		stack = append(stack, &dfsFrame{at: edge.To, via: edge.Way, edges: e.net.WaysFrom(edge.To)})
	}

	return nil, eris.Wrapf(ErrNoRoute, "no cycle reachable from %s", from)
}

// Kind selects a path query.
type Kind string

const (
	KindAny             Kind = "any"
	KindShortest        Kind = "shortest"
	KindLeastCrossroads Kind = "least_crossroads"
)

// ErrUnknownKind is returned for unsupported route kinds.
var ErrUnknownKind = eris.New("unknown route kind")

// ParseKind validates a route kind name. An empty name means KindAny.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case "":
		return KindAny, nil
	case KindAny, KindShortest, KindLeastCrossroads:
		return k, nil
	default:
		return "", eris.Wrapf(ErrUnknownKind, "%q", s)
	}
}

// Route dispatches to the query named by kind.
func Route(ctx context.Context, r Router, kind Kind, from, to geo.Coord) ([]Step, error) {
	switch kind {
	case KindAny:
		return r.RouteAny(ctx, from, to)
	case KindShortest:
		return r.RouteShortestDistance(ctx, from, to)
	case KindLeastCrossroads:
		return r.RouteLeastCrossroads(ctx, from, to)
	default:
		return nil, eris.Wrapf(ErrUnknownKind, "%q", kind)
	}
}

// TotalDistance returns the distance on the final step of a walk.
func TotalDistance(steps []Step) int {
	if len(steps) == 0 {
		return NoDistance
	}
	return steps[len(steps)-1].Distance
}
