package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/export"
	"github.com/azybler/waymap/pkg/gen"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/osm"
	"github.com/azybler/waymap/pkg/store"
)

var source struct {
	osmFile    string
	grid       int
	seed       uint64
	gridPlaces int
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&source.osmFile, "osm", "", "OSM extract to load, .osm.pbf or .osm (default from config)")
	pf.IntVar(&source.grid, "grid", 0, "load a generated N x N grid instead of an OSM extract")
	pf.Uint64Var(&source.seed, "seed", 1, "random seed for --grid")
	pf.IntVar(&source.gridPlaces, "grid-places", 0, "scatter this many places over the --grid")
}

// dataset is a loaded store plus the export settings matching its source.
type dataset struct {
	*store.Store
	exportOpt export.Options
}

// openDataset builds a store from --grid, --osm or osm.file, in that order.
// Without any source the store starts empty.
func openDataset(ctx context.Context) (*dataset, error) {
	ds := &dataset{Store: store.New(store.Options{MaxSnapDist: cfg.Routing.MaxSnapDist})}

	path := source.osmFile
	if path == "" {
		path = cfg.OSM.File
	}
	switch {
	case source.grid > 0:
		if err := loadGrid(ds.Store, source.grid, source.seed, source.gridPlaces); err != nil {
			return nil, err
		}
	case path != "":
		if err := loadOSM(ctx, ds.Store, path); err != nil {
			return nil, err
		}
		ds.exportOpt.Degrees = &geo.FixedPoint{Scale: cfg.OSM.Scale}
	}

	ds.NestAreas()
	ds.CreationFinished()
	return ds, nil
}

func loadOSM(ctx context.Context, s *store.Store, path string) error {
	bbox, err := osm.ParseBBox(cfg.OSM.BBox)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	res, err := osm.Parse(ctx, f, osm.ParseOptions{
		Format:         osm.FormatFromPath(path),
		BBox:           bbox,
		Scale:          cfg.OSM.Scale,
		SplitJunctions: cfg.OSM.SplitJunctions,
	})
	if err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}

	rep := s.Load(res)
	zap.L().Info("loaded osm extract",
		zap.String("path", path),
		zap.Int("ways", rep.Ways),
		zap.Int("places", rep.Places),
		zap.Int("areas", rep.Areas),
		zap.Int("skipped", rep.Skipped))
	return nil
}

func loadGrid(s *store.Store, n int, seed uint64, places int) error {
	rng := gen.NewRand(seed)
	const spacing = 100
	for _, w := range gen.Grid(rng, gen.GridOptions{Cols: n, Rows: n, Spacing: spacing, Bend: spacing / 5, Chords: n}) {
		if err := s.AddWay(w.ID, w.Coords); err != nil {
			return err
		}
	}
	hi := geo.Coord{X: (n - 1) * spacing, Y: (n - 1) * spacing}
	for _, p := range gen.Places(rng, places, 1, geo.Coord{}, hi) {
		if err := s.AddPlace(p); err != nil {
			return err
		}
	}
	zap.L().Info("generated grid", zap.Int("size", n), zap.Uint64("seed", seed), zap.Int("places", places))
	return nil
}

var errBadCoord = eris.New(`coordinate must look like "x,y"`)

// parseCoord parses "x,y".
func parseCoord(s string) (geo.Coord, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return geo.NoCoord, eris.Wrapf(errBadCoord, "%q", s)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return geo.NoCoord, eris.Wrapf(errBadCoord, "%q", s)
	}
	return geo.Coord{X: x, Y: y}, nil
}

// openOutput returns the command's stdout for "" or "-", else a new file.
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "create %s", path)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
