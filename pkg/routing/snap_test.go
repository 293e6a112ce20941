package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
)

func TestSnap(t *testing.T) {
	n := buildNetwork(t,
		testWay{"A", []geo.Coord{c(0, 0), c(100, 0)}},
		testWay{"B", []geo.Coord{c(100, 0), c(100, 100)}},
	)
	s := NewSnapper(n, 20)

	tests := []struct {
		name string
		in   geo.Coord
		want geo.Coord
		dist float64
	}{
		{name: "on vertex", in: c(100, 0), want: c(100, 0), dist: 0},
		{name: "near start", in: c(3, 4), want: c(0, 0), dist: 5},
		{name: "near corner", in: c(94, 8), want: c(100, 0), dist: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Snap(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Vertex)
			assert.InDelta(t, tt.dist, got.Dist, 1e-9)
		})
	}
}

func TestSnapTooFar(t *testing.T) {
	n := buildNetwork(t, testWay{"A", []geo.Coord{c(0, 0), c(100, 0)}})

	got, err := NewSnapper(n, 20).Snap(c(50, 0))
	assert.ErrorIs(t, err, ErrPointTooFar)
	assert.Equal(t, geo.NoCoord, got.Vertex)

	// Without a limit the same point snaps to the smaller equidistant vertex.
	unlimited := NewSnapper(n, 0)
	assert.Zero(t, unlimited.MaxDist())
	got, err = unlimited.Snap(c(50, 0))
	require.NoError(t, err)
	assert.Equal(t, c(0, 0), got.Vertex)
}

func TestSnapEmptyNetwork(t *testing.T) {
	_, err := NewSnapper(graph.NewNetwork(), DefaultMaxSnapDist).Snap(c(0, 0))
	assert.ErrorIs(t, err, ErrPointTooFar)
}

func TestSnapPair(t *testing.T) {
	n := buildNetwork(t, testWay{"A", []geo.Coord{c(0, 0), c(100, 0)}})
	s := NewSnapper(n, 10)

	a, b, err := s.SnapPair(c(1, 1), c(99, 2))
	require.NoError(t, err)
	assert.Equal(t, c(0, 0), a.Vertex)
	assert.Equal(t, c(100, 0), b.Vertex)

	_, _, err = s.SnapPair(c(1, 1), c(50, 50))
	assert.ErrorIs(t, err, ErrPointTooFar)
}
