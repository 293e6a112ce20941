package main

import (
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/azybler/waymap/pkg/export"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
)

var routeFlags struct {
	from, to   string
	kind       string
	fromPlace  int64
	toPlace    int64
	geojsonOut string
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Find a route between two coordinates or two places",
	Example: "  waymap route --grid 10 --from 0,0 --to 900,900 --kind shortest\n" +
		"  waymap route --osm map.osm --from-place 12 --to-place 40",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := routing.ParseKind(routeFlags.kind)
		if err != nil {
			return err
		}
		ds, err := openDataset(cmd.Context())
		if err != nil {
			return err
		}

		var steps []routing.Step
		if routeFlags.fromPlace != int64(registry.NoPlace) || routeFlags.toPlace != int64(registry.NoPlace) {
			pr, err := ds.RoutePlaces(cmd.Context(), kind, registry.PlaceID(routeFlags.fromPlace), registry.PlaceID(routeFlags.toPlace))
			if err != nil {
				return reportNoRoute(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "place %d snapped to %s (%.1f away), place %d to %s (%.1f away)\n",
				routeFlags.fromPlace, pr.From.Vertex, pr.From.Dist,
				routeFlags.toPlace, pr.To.Vertex, pr.To.Dist)
			steps = pr.Steps
		} else {
			from, err := parseCoord(routeFlags.from)
			if err != nil {
				return err
			}
			to, err := parseCoord(routeFlags.to)
			if err != nil {
				return err
			}
			if steps, err = ds.Route(cmd.Context(), kind, from, to); err != nil {
				return reportNoRoute(cmd, err)
			}
		}

		if err := printSteps(cmd, steps); err != nil {
			return err
		}
		if routeFlags.geojsonOut != "" {
			return writeGeoJSON(cmd, routeFlags.geojsonOut, export.Route(ds, steps, ds.exportOpt))
		}
		return nil
	},
}

var cycleFrom string

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Find a walk from a coordinate that returns to a coordinate already visited",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseCoord(cycleFrom)
		if err != nil {
			return err
		}
		ds, err := openDataset(cmd.Context())
		if err != nil {
			return err
		}

		steps, err := ds.RouteWithCycle(cmd.Context(), from)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "COORD\tWAY")
		for _, s := range steps {
			fmt.Fprintf(tw, "%s\t%s\n", s.Coord, wayLabel(s.Way))
		}
		return tw.Flush()
	},
}

// reportNoRoute prints the not-found walk when err means there is no route,
// then hands err back.
func reportNoRoute(cmd *cobra.Command, err error) error {
	if errors.Is(err, routing.ErrNoRoute) {
		if perr := printSteps(cmd, routing.NoRouteSteps()); perr != nil {
			return perr
		}
	}
	return err
}

func printSteps(cmd *cobra.Command, steps []routing.Step) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COORD\tWAY\tDISTANCE")
	for _, s := range steps {
		dist := "-"
		if s.Distance != routing.NoDistance {
			dist = strconv.Itoa(s.Distance)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Coord, wayLabel(s.Way), dist)
	}
	return tw.Flush()
}

func wayLabel(id graph.WayID) string {
	if id == graph.NoWay {
		return "-"
	}
	return string(id)
}

func init() {
	f := routeCmd.Flags()
	f.StringVar(&routeFlags.from, "from", "", `start coordinate "x,y"`)
	f.StringVar(&routeFlags.to, "to", "", `end coordinate "x,y"`)
	f.StringVar(&routeFlags.kind, "kind", string(routing.KindShortest), "any, shortest or least_crossroads")
	f.Int64Var(&routeFlags.fromPlace, "from-place", int64(registry.NoPlace), "start place id")
	f.Int64Var(&routeFlags.toPlace, "to-place", int64(registry.NoPlace), "end place id")
	f.StringVar(&routeFlags.geojsonOut, "geojson", "", "also write the route as GeoJSON to this file (- for stdout)")
	rootCmd.AddCommand(routeCmd)

	cycleCmd.Flags().StringVar(&cycleFrom, "from", "", `start coordinate "x,y"`)
	_ = cycleCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(cycleCmd)
}
