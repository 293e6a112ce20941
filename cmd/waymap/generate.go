package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/azybler/waymap/pkg/gen"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/store"
)

var genFlags struct {
	opt    gen.GridOptions
	places int
	out    string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random grid network with places and write it as GeoJSON",
	Long:  "Generates a grid from --seed and writes its ways and places as GeoJSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := genFlags.opt
		if opt.Cols < 1 || opt.Rows < 1 || opt.Spacing < 1 {
			return eris.New("cols, rows and spacing must be positive")
		}
		rng := gen.NewRand(source.seed)
		ds := &dataset{Store: store.New(store.Options{MaxSnapDist: cfg.Routing.MaxSnapDist})}

		for _, w := range gen.Grid(rng, opt) {
			if err := ds.AddWay(w.ID, w.Coords); err != nil {
				return err
			}
		}
		hi := geo.Coord{X: (opt.Cols - 1) * opt.Spacing, Y: (opt.Rows - 1) * opt.Spacing}
		for _, p := range gen.Places(rng, genFlags.places, 1, geo.Coord{}, hi) {
			if err := ds.AddPlace(p); err != nil {
				return err
			}
		}
		ds.CreationFinished()

		fc, err := layer(ds, "all")
		if err != nil {
			return err
		}
		return writeGeoJSON(cmd, genFlags.out, fc)
	},
}

func init() {
	f := generateCmd.Flags()
	f.IntVar(&genFlags.opt.Cols, "cols", 10, "grid columns")
	f.IntVar(&genFlags.opt.Rows, "rows", 10, "grid rows")
	f.IntVar(&genFlags.opt.Spacing, "spacing", 100, "distance between grid lines")
	f.IntVar(&genFlags.opt.Bend, "bend", 0, "maximum sideways offset of each way's midpoint")
	f.Float64Var(&genFlags.opt.DropRatio, "drop", 0, "share of grid ways to leave out")
	f.IntVar(&genFlags.opt.Chords, "chords", 0, "extra ways between random grid vertices")
	f.IntVar(&genFlags.places, "places", 0, "number of places to scatter")
	f.StringVarP(&genFlags.out, "out", "o", "-", "output file (- for stdout)")
	rootCmd.AddCommand(generateCmd)
}
