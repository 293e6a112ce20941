package main

import (
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/azybler/waymap/pkg/export"
)

var exportFlags struct {
	layer string
	out   string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write ways, places or areas as GeoJSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := openDataset(cmd.Context())
		if err != nil {
			return err
		}
		fc, err := layer(ds, exportFlags.layer)
		if err != nil {
			return err
		}
		return writeGeoJSON(cmd, exportFlags.out, fc)
	},
}

func layer(ds *dataset, name string) (*geojson.FeatureCollection, error) {
	switch name {
	case "ways":
		return export.Network(ds, ds.exportOpt), nil
	case "places":
		return export.Places(ds, ds.exportOpt), nil
	case "areas":
		return export.Areas(ds, ds.exportOpt), nil
	case "all":
		fc := export.Network(ds, ds.exportOpt)
		fc.Features = append(fc.Features, export.Areas(ds, ds.exportOpt).Features...)
		fc.Features = append(fc.Features, export.Places(ds, ds.exportOpt).Features...)
		return fc, nil
	}
	return nil, eris.Errorf("unknown layer %q (want ways, places, areas or all)", name)
}

func writeGeoJSON(cmd *cobra.Command, path string, fc *geojson.FeatureCollection) error {
	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "encode geojson")
	}
	w, err := openOutput(cmd, path)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		w.Close()
		return eris.Wrap(err, "write geojson")
	}
	return w.Close()
}

func init() {
	exportCmd.Flags().StringVar(&exportFlags.layer, "layer", "all", "ways, places, areas or all")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "-", "output file (- for stdout)")
	rootCmd.AddCommand(exportCmd)
}
