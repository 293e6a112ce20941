package api

import (
	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
)

// CoordJSON is an integer plane coordinate.
type CoordJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c CoordJSON) coord() geo.Coord { return geo.Coord{X: c.X, Y: c.Y} }

func toCoordJSON(c geo.Coord) CoordJSON { return CoordJSON{X: c.X, Y: c.Y} }

func toCoords(in []CoordJSON) []geo.Coord {
	out := make([]geo.Coord, len(in))
	for i, c := range in {
		out[i] = c.coord()
	}
	return out
}

func toCoordsJSON(in []geo.Coord) []CoordJSON {
	out := make([]CoordJSON, len(in))
	for i, c := range in {
		out[i] = toCoordJSON(c)
	}
	return out
}

// RouteRequest is the JSON body for POST /api/v1/route. Both endpoints are
// required.
type RouteRequest struct {
	Kind string     `json:"kind"`
	From *CoordJSON `json:"from"`
	To   *CoordJSON `json:"to"`
}

// CycleRequest is the JSON body for POST /api/v1/route/cycle.
type CycleRequest struct {
	From *CoordJSON `json:"from"`
}

// PlaceRouteRequest is the JSON body for POST /api/v1/route/places.
type PlaceRouteRequest struct {
	Kind string            `json:"kind"`
	From *registry.PlaceID `json:"from"`
	To   *registry.PlaceID `json:"to"`
}

// StepJSON is one stop on a route. Way is empty on the final stop.
type StepJSON struct {
	Coord    CoordJSON `json:"coord"`
	Way      string    `json:"way,omitempty"`
	Distance int       `json:"distance"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	Kind          routing.Kind `json:"kind"`
	TotalDistance int          `json:"total_distance"`
	Steps         []StepJSON   `json:"steps"`
}

func toRouteResponse(kind routing.Kind, steps []routing.Step) RouteResponse {
	resp := RouteResponse{Kind: kind, TotalDistance: routing.TotalDistance(steps)}
	resp.Steps = make([]StepJSON, len(steps))
	for i, s := range steps {
		resp.Steps[i] = StepJSON{Coord: toCoordJSON(s.Coord), Way: wayName(s.Way), Distance: s.Distance}
	}
	return resp
}

// CycleStepJSON is one stop on a cycle walk.
type CycleStepJSON struct {
	Coord CoordJSON `json:"coord"`
	Way   string    `json:"way,omitempty"`
}

// CycleResponse is the JSON response for POST /api/v1/route/cycle.
type CycleResponse struct {
	Steps []CycleStepJSON `json:"steps"`
}

// SnapJSON reports where a place was attached to the network.
type SnapJSON struct {
	Vertex CoordJSON `json:"vertex"`
	Dist   float64   `json:"dist"`
}

// PlaceRouteResponse is the JSON response for POST /api/v1/route/places.
type PlaceRouteResponse struct {
	From SnapJSON `json:"from"`
	To   SnapJSON `json:"to"`
	RouteResponse
}

// WayRequest is the JSON body for POST /api/v1/ways.
type WayRequest struct {
	ID     string      `json:"id"`
	Coords []CoordJSON `json:"coords"`
}

// WayJSON describes a stored way.
type WayJSON struct {
	ID     string      `json:"id"`
	Coords []CoordJSON `json:"coords"`
	Length int         `json:"length"`
}

func toWayJSON(w graph.Way) WayJSON {
	return WayJSON{ID: string(w.ID), Coords: toCoordsJSON(w.Coords), Length: w.Length}
}

// EdgeJSON is one way leaving a coordinate.
type EdgeJSON struct {
	Way    string    `json:"way"`
	To     CoordJSON `json:"to"`
	Length int       `json:"length"`
}

// TrimResponse is the JSON response for POST /api/v1/ways/trim.
type TrimResponse struct {
	RemovedLength int `json:"removed_length"`
}

// PlaceJSON describes a place in requests and responses.
type PlaceJSON struct {
	ID    registry.PlaceID   `json:"id"`
	Name  string             `json:"name"`
	Type  registry.PlaceType `json:"type"`
	Coord CoordJSON          `json:"coord"`
}

func (p PlaceJSON) place() registry.Place {
	return registry.Place{ID: p.ID, Name: p.Name, Type: p.Type, Coord: p.Coord.coord()}
}

func toPlaceJSON(p registry.Place) PlaceJSON {
	return PlaceJSON{ID: p.ID, Name: p.Name, Type: p.Type, Coord: toCoordJSON(p.Coord)}
}

// AreaJSON describes an area in requests and responses. Parent is only set
// in responses, for areas that have one.
type AreaJSON struct {
	ID       area.ID     `json:"id"`
	Name     string      `json:"name"`
	Boundary []CoordJSON `json:"boundary"`
	Parent   *area.ID    `json:"parent,omitempty"`
}

// SubareaRequest is the JSON body for PUT /api/v1/areas/{id}/parent.
type SubareaRequest struct {
	Parent area.ID `json:"parent"`
}

// AreaIDResponse carries a single area id; NoArea is -1.
type AreaIDResponse struct {
	Area area.ID `json:"area"`
}

// NestResponse is the JSON response for POST /api/v1/areas/nest.
type NestResponse struct {
	Added int `json:"added"`
}

// ListResponse wraps a list of ids or objects.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func list[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

func wayName(id graph.WayID) string {
	if id == graph.NoWay {
		return ""
	}
	return string(id)
}

// PlacePatch is the JSON body for PATCH /api/v1/places/{id}. Absent fields
// are left unchanged.
type PlacePatch struct {
	Name  *string    `json:"name,omitempty"`
	Coord *CoordJSON `json:"coord,omitempty"`
}
