package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/waymap/pkg/gen"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
)

func c(x, y int) geo.Coord { return geo.Coord{X: x, Y: y} }

type testWay struct {
	id     graph.WayID
	coords []geo.Coord
}

func buildNetwork(t *testing.T, ways ...testWay) *graph.Network {
	t.Helper()
	n := graph.NewNetwork()
	for _, w := range ways {
		require.NoError(t, n.AddWay(w.id, w.coords))
	}
	return n
}

// buildDiamond creates two equal two-way routes from (0,0) to (10,10).
//
//	(0,10) --b2-- (10,10)
//	  |              |
//	  b1             a2
//	  |              |
//	(0,0)  --a1-- (10,0)
//
// The b ways are added first, so incidence order favours them.
func buildDiamond(t *testing.T) *graph.Network {
	return buildNetwork(t,
		testWay{"b1", []geo.Coord{c(0, 0), c(0, 10)}},
		testWay{"b2", []geo.Coord{c(0, 10), c(10, 10)}},
		testWay{"a1", []geo.Coord{c(0, 0), c(10, 0)}},
		testWay{"a2", []geo.Coord{c(10, 0), c(10, 10)}},
	)
}

func TestRouteTwoWayScenario(t *testing.T) {
	n := buildNetwork(t,
		testWay{"W1", []geo.Coord{c(0, 0), c(0, 10)}},
		testWay{"W2", []geo.Coord{c(0, 10), c(10, 10)}},
	)
	eng := NewEngine(n)
	ctx := context.Background()

	want := []Step{
		{Coord: c(0, 0), Way: "W1", Distance: 0},
		{Coord: c(0, 10), Way: "W2", Distance: 10},
		{Coord: c(10, 10), Way: graph.NoWay, Distance: 20},
	}

	for _, kind := range []Kind{KindAny, KindShortest, KindLeastCrossroads} {
		t.Run(string(kind), func(t *testing.T) {
			got, err := Route(ctx, eng, kind, c(0, 0), c(10, 10))
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, 20, TotalDistance(got))
		})
	}
}

func TestRouteSameEndpoint(t *testing.T) {
	n := buildDiamond(t)
	eng := NewEngine(n)
	ctx := context.Background()

	want := []Step{{Coord: c(10, 0), Way: graph.NoWay, Distance: 0}}
	for _, kind := range []Kind{KindAny, KindShortest, KindLeastCrossroads} {
		got, err := Route(ctx, eng, kind, c(10, 0), c(10, 0))
		require.NoError(t, err)
		assert.Equal(t, want, got, kind)
	}
}

func TestRouteMissingEndpoint(t *testing.T) {
	n := buildDiamond(t)
	eng := NewEngine(n)
	ctx := context.Background()

	for _, kind := range []Kind{KindAny, KindShortest, KindLeastCrossroads} {
		_, err := Route(ctx, eng, kind, c(0, 0), c(5, 5))
		assert.ErrorIs(t, err, ErrNoRoute, kind)

		_, err = Route(ctx, eng, kind, c(5, 5), c(0, 0))
		assert.ErrorIs(t, err, ErrNoRoute, kind)

		// Same point, but not a vertex.
		_, err = Route(ctx, eng, kind, c(5, 5), c(5, 5))
		assert.ErrorIs(t, err, ErrNoRoute, kind)
	}
}

func TestRouteUnreachable(t *testing.T) {
	n := buildNetwork(t,
		testWay{"A", []geo.Coord{c(0, 0), c(0, 10)}},
		testWay{"B", []geo.Coord{c(50, 50), c(60, 50)}},
	)
	eng := NewEngine(n)

	for _, kind := range []Kind{KindAny, KindShortest, KindLeastCrossroads} {
		_, err := Route(context.Background(), eng, kind, c(0, 0), c(60, 50))
		assert.ErrorIs(t, err, ErrNoRoute, kind)
	}
}

func TestRouteKindsDisagree(t *testing.T) {
	// A bent single way of length 40 against two straight ways of 5 each.
	n := buildNetwork(t,
		testWay{"direct", []geo.Coord{c(0, 0), c(5, 20), c(10, 0)}},
		testWay{"p1", []geo.Coord{c(0, 0), c(5, 0)}},
		testWay{"p2", []geo.Coord{c(5, 0), c(10, 0)}},
	)
	eng := NewEngine(n)
	ctx := context.Background()

	shortest, err := eng.RouteShortestDistance(ctx, c(0, 0), c(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Coord: c(0, 0), Way: "p1", Distance: 0},
		{Coord: c(5, 0), Way: "p2", Distance: 5},
		{Coord: c(10, 0), Way: graph.NoWay, Distance: 10},
	}, shortest)

	fewest, err := eng.RouteLeastCrossroads(ctx, c(0, 0), c(10, 0))
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Coord: c(0, 0), Way: "direct", Distance: 0},
		{Coord: c(10, 0), Way: graph.NoWay, Distance: 40},
	}, fewest)

	anyWalk, err := eng.RouteAny(ctx, c(0, 0), c(10, 0))
	require.NoError(t, err)
	assert.LessOrEqual(t, TotalDistance(shortest), TotalDistance(anyWalk))
	assert.LessOrEqual(t, len(fewest), len(anyWalk))
}

func TestRouteTieBreaks(t *testing.T) {
	eng := NewEngine(buildDiamond(t))
	ctx := context.Background()
	aPath := []graph.WayID{"a1", "a2", graph.NoWay}
	bPath := []graph.WayID{"b1", "b2", graph.NoWay}

	got, err := eng.RouteAny(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, bPath, wayIDs(got), "incidence order")

	got, err = eng.RouteLeastCrossroads(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, aPath, wayIDs(got), "smallest way ids")

	got, err = eng.RouteShortestDistance(ctx, c(0, 0), c(10, 10))
	require.NoError(t, err)
	assert.Equal(t, aPath, wayIDs(got), "smallest way ids")
	assert.Equal(t, 20, TotalDistance(got))
}

func TestRouteShortestPrefersFewerWays(t *testing.T) {
	// Both walks are 10 long; the single way wins.
	n := buildNetwork(t,
		testWay{"a", []geo.Coord{c(0, 0), c(0, 4)}},
		testWay{"b", []geo.Coord{c(0, 4), c(0, 10)}},
		testWay{"z", []geo.Coord{c(0, 0), c(0, 10)}},
	)
	got, err := NewEngine(n).RouteShortestDistance(context.Background(), c(0, 0), c(0, 10))
	require.NoError(t, err)
	assert.Equal(t, []graph.WayID{"z", graph.NoWay}, wayIDs(got))
}

func TestRouteIgnoresSelfLoopsAndParallelWays(t *testing.T) {
	n := buildNetwork(t,
		testWay{"loop", []geo.Coord{c(0, 0), c(2, 2), c(0, 0)}},
		testWay{"long", []geo.Coord{c(0, 0), c(5, 5), c(0, 10)}},
		testWay{"short", []geo.Coord{c(0, 0), c(0, 10)}},
	)
	eng := NewEngine(n)

	got, err := eng.RouteShortestDistance(context.Background(), c(0, 0), c(0, 10))
	require.NoError(t, err)
	assert.Equal(t, []graph.WayID{"short", graph.NoWay}, wayIDs(got))

	got, err = eng.RouteAny(context.Background(), c(0, 0), c(0, 10))
	require.NoError(t, err)
	assert.Equal(t, []graph.WayID{"long", graph.NoWay}, wayIDs(got))
}

func TestRouteWithCycle(t *testing.T) {
	tests := []struct {
		name string
		ways []testWay
		from geo.Coord
		want []CycleStep
	}{
		{
			name: "self-loop",
			ways: []testWay{{"loop", []geo.Coord{c(0, 0), c(3, 4), c(0, 0)}}},
			from: c(0, 0),
			want: []CycleStep{
				{Coord: c(0, 0), Way: "loop"},
				{Coord: c(0, 0), Way: graph.NoWay},
			},
		},
		{
			name: "parallel ways",
			ways: []testWay{
				{"a", []geo.Coord{c(0, 0), c(0, 10)}},
				{"b", []geo.Coord{c(0, 0), c(5, 5), c(0, 10)}},
			},
			from: c(0, 0),
			want: []CycleStep{
				{Coord: c(0, 0), Way: "a"},
				{Coord: c(0, 10), Way: "b"},
				{Coord: c(0, 0), Way: graph.NoWay},
			},
		},
		{
			name: "triangle behind a tail",
			ways: []testWay{
				{"tail", []geo.Coord{c(0, -10), c(0, 0)}},
				{"t1", []geo.Coord{c(0, 0), c(10, 0)}},
				{"t2", []geo.Coord{c(10, 0), c(10, 10)}},
				{"t3", []geo.Coord{c(10, 10), c(0, 0)}},
			},
			from: c(0, -10),
			want: []CycleStep{
				{Coord: c(0, -10), Way: "tail"},
				{Coord: c(0, 0), Way: "t1"},
				{Coord: c(10, 0), Way: "t2"},
				{Coord: c(10, 10), Way: "t3"},
				{Coord: c(0, 0), Way: graph.NoWay},
			},
		},
		{
			name: "dead end explored first",
			ways: []testWay{
				{"spur", []geo.Coord{c(0, 0), c(-10, 0)}},
				{"x", []geo.Coord{c(0, 0), c(10, 0)}},
				{"y", []geo.Coord{c(10, 0), c(0, 0)}},
			},
			from: c(0, 0),
			want: []CycleStep{
				{Coord: c(0, 0), Way: "x"},
				{Coord: c(10, 0), Way: "y"},
				{Coord: c(0, 0), Way: graph.NoWay},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine(buildNetwork(t, tt.ways...))
			got, err := eng.RouteWithCycle(context.Background(), tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRouteWithCycleAcyclic(t *testing.T) {
	eng := NewEngine(buildNetwork(t,
		testWay{"W1", []geo.Coord{c(0, 0), c(0, 10)}},
		testWay{"W2", []geo.Coord{c(0, 10), c(10, 10)}},
		testWay{"W3", []geo.Coord{c(0, 10), c(-10, 10)}},
	))

	_, err := eng.RouteWithCycle(context.Background(), c(0, 0))
	assert.ErrorIs(t, err, ErrNoRoute)

	_, err = eng.RouteWithCycle(context.Background(), c(3, 3))
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestRouteCancelled(t *testing.T) {
	n, err := gen.Network(gen.Grid(gen.NewRand(1), gen.GridOptions{Cols: 30, Rows: 30, Spacing: 10}))
	require.NoError(t, err)
	eng := NewEngine(n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = eng.RouteShortestDistance(ctx, c(0, 0), c(290, 290))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRoute)
	assert.Contains(t, err.Error(), "cancelled")

	_, err = eng.RouteAny(ctx, c(0, 0), c(290, 290))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRoute)
}

func TestRouteCancelledBeforeFirstExpansion(t *testing.T) {
	eng := NewEngine(buildDiamond(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, kind := range []Kind{KindAny, KindLeastCrossroads, KindShortest} {
		t.Run(string(kind), func(t *testing.T) {
			got, err := Route(ctx, eng, kind, c(0, 0), c(10, 10))
			require.Error(t, err)
			assert.Nil(t, got)
			assert.NotErrorIs(t, err, ErrNoRoute)
			assert.Contains(t, err.Error(), "cancelled")
		})
	}

	got, err := eng.RouteWithCycle(ctx, c(0, 0))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestShortestMatchesLeastCrossroadsOnUniformGrid(t *testing.T) {
	n, err := gen.Network(gen.Grid(gen.NewRand(5), gen.GridOptions{Cols: 8, Rows: 8, Spacing: 10}))
	require.NoError(t, err)
	eng := NewEngine(n)
	ctx := context.Background()

	short, err := eng.RouteShortestDistance(ctx, c(0, 0), c(70, 50))
	require.NoError(t, err)
	fewest, err := eng.RouteLeastCrossroads(ctx, c(0, 0), c(70, 50))
	require.NoError(t, err)

	// Every way is 10 long, so both minimise the number of ways.
	assert.Equal(t, 120, TotalDistance(short))
	assert.Equal(t, TotalDistance(short), TotalDistance(fewest))
	assert.Equal(t, wayIDs(fewest), wayIDs(short))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAny, k)

	k, err = ParseKind("least_crossroads")
	require.NoError(t, err)
	assert.Equal(t, KindLeastCrossroads, k)

	_, err = ParseKind("fastest")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Route(context.Background(), NewEngine(graph.NewNetwork()), "fastest", c(0, 0), c(0, 0))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMinHeap(t *testing.T) {
	var h MinHeap

	h.Push(c(1, 0), 30, 1)
	h.Push(c(2, 0), 10, 3)
	h.Push(c(3, 0), 10, 2)
	h.Push(c(0, 0), 20, 1)

	assert.Equal(t, PQItem{At: c(3, 0), Dist: 10, Hops: 2}, h.Pop())
	assert.Equal(t, PQItem{At: c(2, 0), Dist: 10, Hops: 3}, h.Pop())
	assert.Equal(t, PQItem{At: c(0, 0), Dist: 20, Hops: 1}, h.Pop())
	assert.Equal(t, PQItem{At: c(1, 0), Dist: 30, Hops: 1}, h.Pop())
	assert.Zero(t, h.Len())
}

func wayIDs(steps []Step) []graph.WayID {
	ids := make([]graph.WayID, len(steps))
	for i, s := range steps {
		ids[i] = s.Way
	}
	return ids
}

func BenchmarkRouteShortestDistance(b *testing.B) {
	rng := gen.NewRand(99)
	n, err := gen.Network(gen.Grid(rng, gen.GridOptions{Cols: 60, Rows: 60, Spacing: 100, Bend: 30, Chords: 200}))
	if err != nil {
		b.Fatal(err)
	}
	eng := NewEngine(n)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.RouteShortestDistance(ctx, c(0, 0), c(5900, 5900))
	}
}

func BenchmarkRouteLeastCrossroads(b *testing.B) {
	n, err := gen.Network(gen.Grid(gen.NewRand(99), gen.GridOptions{Cols: 60, Rows: 60, Spacing: 100}))
	if err != nil {
		b.Fatal(err)
	}
	eng := NewEngine(n)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = eng.RouteLeastCrossroads(ctx, c(0, 0), c(5900, 5900))
	}
}
