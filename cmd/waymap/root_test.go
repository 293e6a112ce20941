package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/routing"
	"github.com/azybler/waymap/pkg/store"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "route", "cycle", "trim", "export", "generate", "stats"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "waymap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestCommandFlags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	flag = routeCmd.Flags().Lookup("kind")
	require.NotNil(t, flag)
	assert.Equal(t, "shortest", flag.DefValue)

	flag = rootCmd.PersistentFlags().Lookup("grid")
	require.NotNil(t, flag)
	assert.Equal(t, "0", flag.DefValue)

	flag = exportCmd.Flags().Lookup("layer")
	require.NotNil(t, flag)
	assert.Equal(t, "all", flag.DefValue)
}

func TestParseCoord(t *testing.T) {
	tests := []struct {
		in      string
		want    geo.Coord
		wantErr bool
	}{
		{in: "10,20", want: geo.Coord{X: 10, Y: 20}},
		{in: " -5 , 7 ", want: geo.Coord{X: -5, Y: 7}},
		{in: "10", wantErr: true},
		{in: "a,b", wantErr: true},
		{in: "1.5,2", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCoord(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, errBadCoord)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := executeErr(t, args...)
	require.NoError(t, err)
	return out
}

func executeErr(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		source.grid = 0
		source.gridPlaces = 0
		source.osmFile = ""
		rootCmd.SetArgs(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGenerateCommand(t *testing.T) {
	out := execute(t, "generate", "--cols", "3", "--rows", "2", "--places", "2", "--seed", "7")

	fc, err := geojson.UnmarshalFeatureCollection([]byte(out))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 9)
}

func TestStatsCommandOnGrid(t *testing.T) {
	out := execute(t, "stats", "--grid", "3")

	var st store.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, 15, st.Ways)
	assert.Equal(t, 9, st.Vertices)
	assert.Equal(t, 1, st.Components)
}

func TestTrimCommandOnGrid(t *testing.T) {
	out := execute(t, "trim", "--grid", "3")
	assert.Contains(t, out, "removed 7 ways")
}

func TestRouteCommandOnGrid(t *testing.T) {
	out := execute(t, "route", "--grid", "3", "--from", "0,0", "--to", "200,0", "--kind", "least_crossroads")
	assert.Contains(t, out, "COORD")
	assert.Contains(t, out, "(200,0)")
}

func TestRouteCommandPrintsNotFoundWalk(t *testing.T) {
	out, err := executeErr(t, "route", "--grid", "3", "--from", "0,0", "--to", "5,5", "--kind", "shortest")
	require.Error(t, err)
	assert.ErrorIs(t, err, routing.ErrNoRoute)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"(--,--)", "-", "-"}, strings.Fields(lines[1]))
}
