package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/azybler/waymap/pkg/export"
)

var trimOut string

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Remove redundant ways, keeping the shortest spanning set",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := openDataset(cmd.Context())
		if err != nil {
			return err
		}

		before := ds.Stats()
		removed := ds.TrimWays()
		after := ds.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d ways, total length %d -> %d (-%d)\n",
			before.Ways-after.Ways, before.TotalLength, after.TotalLength, removed)

		if trimOut != "" {
			return writeGeoJSON(cmd, trimOut, export.Network(ds, ds.exportOpt))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print counts for the loaded data source",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := openDataset(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, ds.Stats())
	},
}

func init() {
	trimCmd.Flags().StringVarP(&trimOut, "out", "o", "", "write the trimmed network as GeoJSON to this file")
	rootCmd.AddCommand(trimCmd)
	rootCmd.AddCommand(statsCmd)
}
