package osm

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
)

// Way is a routable polyline parsed from OSM data.
type Way struct {
	ID     graph.WayID
	Name   string
	Coords []geo.Coord
}

// ParseResult holds the output of parsing an OSM file.
type ParseResult struct {
	Places []registry.Place
	Areas  []registry.Area
	Ways   []Way
}

// skippedHighways lists highway tag values that are not built roads.
var skippedHighways = map[string]bool{
	"proposed":     true,
	"construction": true,
	"abandoned":    true,
	"platform":     true,
	"raceway":      true,
}

// isRoutable returns true if the way is a usable road or path. Direction and
// vehicle type are not modelled, so oneway and mode restrictions are ignored.
func isRoutable(tags osm.Tags) bool {
	hw := tags.Find("highway")
	if hw == "" || skippedHighways[hw] {
		return false
	}

	// Skip area highways (pedestrian plazas).
	if tags.Find("area") == "yes" {
		return false
	}

	access := tags.Find("access")
	return access != "no" && access != "private"
}

// placeType maps node tags to a place category. ok is false for nodes that
// are not places.
func placeType(tags osm.Tags) (t registry.PlaceType, ok bool) {
	switch {
	case tags.Find("leisure") == "firepit", tags.Find("amenity") == "bbq":
		return registry.Firepit, true
	case tags.Find("amenity") == "shelter",
		tags.Find("tourism") == "alpine_hut",
		tags.Find("tourism") == "wilderness_hut":
		return registry.Shelter, true
	case tags.Find("amenity") == "parking":
		return registry.Parking, true
	case tags.Find("natural") == "peak", tags.Find("natural") == "volcano":
		return registry.Peak, true
	case tags.Find("natural") == "bay":
		return registry.Bay, true
	case tags.Find("place") != "":
		return registry.AreaPlace, true
	}

	// Other named points of interest.
	if tags.Find("name") == "" {
		return registry.NoType, false
	}
	for _, key := range []string{"amenity", "tourism", "leisure", "natural", "shop", "historic"} {
		if tags.Find(key) != "" {
			return registry.Other, true
		}
	}
	return registry.NoType, false
}

// isArea returns true for closed ways that outline a named region.
func isArea(w *osm.Way) bool {
	if len(w.Nodes) < 4 || w.Nodes[0].ID != w.Nodes[len(w.Nodes)-1].ID {
		return false
	}
	tags := w.Tags
	switch {
	case tags.Find("boundary") != "", tags.Find("landuse") != "", tags.Find("place") != "":
		return true
	case tags.Find("leisure") == "park", tags.Find("leisure") == "nature_reserve":
		return true
	case tags.Find("natural") == "wood", tags.Find("natural") == "water":
		return true
	}
	return false
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	ID      osm.WayID
	Name    string
	NodeIDs []osm.NodeID
}

// BBox defines a geographic bounding box for filtering.
// If non-zero, only ways with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ErrInvalidBBox is returned by ParseBBox.
var ErrInvalidBBox = eris.New("invalid bounding box")

// ParseBBox reads "minLon,minLat,maxLon,maxLat". An empty string gives the
// zero BBox.
func ParseBBox(s string) (BBox, error) {
	if strings.TrimSpace(s) == "" {
		return BBox{}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, eris.Wrapf(ErrInvalidBBox, "%q: want 4 comma-separated numbers", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, eris.Wrapf(ErrInvalidBBox, "%q: %v", s, err)
		}
		v[i] = f
	}
	b := BBox{MinLng: v[0], MinLat: v[1], MaxLng: v[2], MaxLat: v[3]}
	if b.MinLng > b.MaxLng || b.MinLat > b.MaxLat {
		return BBox{}, eris.Wrapf(ErrInvalidBBox, "%q: min exceeds max", s)
	}
	return b, nil
}

// Format selects the OSM encoding.
type Format int

const (
	FormatPBF Format = iota
	FormatXML
)

// FormatFromPath guesses the encoding from a file name.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".osm", ".xml":
		return FormatXML
	default:
		return FormatPBF
	}
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	Format Format
	BBox   BBox // if non-zero, filter to this bounding box
	// Scale converts degrees to integer coordinates; 0 means 1e5.
	Scale float64
	// SplitJunctions cuts ways at nodes shared with other ways, so every
	// junction becomes a vertex of the network.
	SplitJunctions bool
}

// scanner is satisfied by both the PBF and XML scanners.
type scanner interface {
	Scan() bool
	Object() osm.Object
	Err() error
	Close() error
}

func newScanner(ctx context.Context, r io.Reader, f Format, skipNodes, skipWays bool) scanner {
	if f == FormatXML {
		return osmxml.New(ctx, r)
	}
	s := osmpbf.New(ctx, r, 1)
	s.SkipNodes = skipNodes
	s.SkipWays = skipWays
	s.SkipRelations = true
	return s
}

// Parse reads an OSM file and returns places, areas and ways.
// The reader is consumed twice (seeks back to start for the second pass),
// so it must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ...ParseOptions) (*ParseResult, error) {
	var opt ParseOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	if opt.Scale == 0 {
		opt.Scale = 1e5
	}
	fp := geo.FixedPoint{Scale: opt.Scale}
	useBBox := !opt.BBox.IsZero()
	log := zap.L().With(zap.String("component", "osm"))

	// Pass 1: Scan ways to collect referenced node IDs and way info.
	referencedNodes := make(map[osm.NodeID]int)
	var roads, outlines []wayInfo

	sc := newScanner(ctx, rs, opt.Format, true, false)
	for sc.Scan() {
		w, ok := sc.Object().(*osm.Way)
		if !ok {
			continue
		}

		road := isRoutable(w.Tags) && len(w.Nodes) >= 2
		outline := isArea(w)
		if !road && !outline {
			continue
		}

		info := wayInfo{ID: w.ID, Name: w.Tags.Find("name"), NodeIDs: make([]osm.NodeID, len(w.Nodes))}
		for i, wn := range w.Nodes {
			info.NodeIDs[i] = wn.ID
			if _, seen := referencedNodes[wn.ID]; !seen {
				referencedNodes[wn.ID] = 0
			}
		}
		if road {
			// Count each road once per node, so a junction is a node on two roads.
			for _, id := range uniqueNodes(info.NodeIDs) {
				referencedNodes[id]++
			}
			roads = append(roads, info)
		}
		if outline {
			outlines = append(outlines, info)
		}
	}
	if err := sc.Err(); err != nil {
		sc.Close()
		return nil, eris.Wrap(err, "pass 1 (ways)")
	}
	sc.Close()

	log.Info("pass 1 complete",
		zap.Int("roads", len(roads)),
		zap.Int("areas", len(outlines)),
		zap.Int("referenced_nodes", len(referencedNodes)))

	// Pass 2: Scan nodes for referenced coordinates and tagged places.
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, eris.Wrap(err, "seek for pass 2")
	}

	type lonLat struct{ lon, lat float64 }
	nodes := make(map[osm.NodeID]lonLat, len(referencedNodes))
	result := &ParseResult{}

	sc = newScanner(ctx, rs, opt.Format, false, true)
	for sc.Scan() {
		n, ok := sc.Object().(*osm.Node)
		if !ok {
			continue
		}

		if _, needed := referencedNodes[n.ID]; needed {
			nodes[n.ID] = lonLat{lon: n.Lon, lat: n.Lat}
		}

		pt, isPlace := placeType(n.Tags)
		if !isPlace || (useBBox && !opt.BBox.Contains(n.Lat, n.Lon)) {
			continue
		}
		result.Places = append(result.Places, registry.Place{
			ID:    registry.PlaceID(n.ID),
			Name:  n.Tags.Find("name"),
			Type:  pt,
			Coord: fp.Encode(n.Lon, n.Lat),
		})
	}
	if err := sc.Err(); err != nil {
		sc.Close()
		return nil, eris.Wrap(err, "pass 2 (nodes)")
	}
	sc.Close()

	log.Info("pass 2 complete",
		zap.Int("node_coords", len(nodes)),
		zap.Int("places", len(result.Places)))

	inside := func(id osm.NodeID) bool {
		ll := nodes[id]
		return !useBBox || opt.BBox.Contains(ll.lat, ll.lon)
	}

	// Build ways, split at junctions when asked.
	var missingNodes, bboxFiltered int
	for _, w := range roads {
		ids := make([]osm.NodeID, 0, len(w.NodeIDs))
		for _, id := range w.NodeIDs {
			if _, ok := nodes[id]; ok {
				ids = append(ids, id)
			} else {
				missingNodes++
			}
		}
		if len(ids) < 2 {
			continue
		}

		pieces := [][]osm.NodeID{ids}
		if opt.SplitJunctions {
			pieces = splitAt(ids, func(id osm.NodeID) bool { return referencedNodes[id] > 1 })
		}
		for i, piece := range pieces {
			if !inside(piece[0]) || !inside(piece[len(piece)-1]) {
				bboxFiltered++
				continue
			}
			coords := make([]geo.Coord, len(piece))
			for j, id := range piece {
				coords[j] = fp.Encode(nodes[id].lon, nodes[id].lat)
			}
			id := fmt.Sprintf("w%d", w.ID)
			if len(pieces) > 1 {
				id = fmt.Sprintf("w%d.%d", w.ID, i)
			}
			result.Ways = append(result.Ways, Way{ID: graph.WayID(id), Name: w.Name, Coords: coords})
		}
	}

	for _, w := range outlines {
		var boundary []geo.Coord
		anyInside := false
		for _, id := range w.NodeIDs {
			ll, ok := nodes[id]
			if !ok {
				continue
			}
			anyInside = anyInside || inside(id)
			boundary = append(boundary, fp.Encode(ll.lon, ll.lat))
		}
		if len(boundary) < 3 || !anyInside {
			continue
		}
		result.Areas = append(result.Areas, registry.Area{ID: area.ID(w.ID), Name: w.Name, Boundary: boundary})
	}

	if missingNodes > 0 {
		log.Warn("skipped way nodes with missing coordinates", zap.Int("count", missingNodes))
	}
	if bboxFiltered > 0 {
		log.Info("filtered ways outside bounding box", zap.Int("count", bboxFiltered))
	}
	log.Info("parse complete",
		zap.Int("ways", len(result.Ways)),
		zap.Int("areas", len(result.Areas)),
		zap.Int("places", len(result.Places)))

	return result, nil
}

// uniqueNodes returns ids without repeats, keeping first occurrences.
func uniqueNodes(ids []osm.NodeID) []osm.NodeID {
	seen := make(map[osm.NodeID]bool, len(ids))
	out := make([]osm.NodeID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// splitAt cuts a node list at every interior node for which cut is true.
// Neighbouring pieces share the cut node.
func splitAt(ids []osm.NodeID, cut func(osm.NodeID) bool) [][]osm.NodeID {
	var pieces [][]osm.NodeID
	start := 0
	for i := 1; i < len(ids)-1; i++ {
		if cut(ids[i]) {
			pieces = append(pieces, ids[start:i+1])
			start = i
		}
	}
	return append(pieces, ids[start:])
}
