package api

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/azybler/waymap/pkg/area"
	"github.com/azybler/waymap/pkg/export"
	"github.com/azybler/waymap/pkg/geo"
	"github.com/azybler/waymap/pkg/graph"
	"github.com/azybler/waymap/pkg/registry"
	"github.com/azybler/waymap/pkg/routing"
	"github.com/azybler/waymap/pkg/store"
)

const maxBodyBytes = 1 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store  *store.Store
	export export.Options
	log    *zap.Logger
}

// NewHandlers creates handlers serving s. exportOpt controls the coordinates
// of GeoJSON exports.
func NewHandlers(s *store.Store, exportOpt export.Options) *Handlers {
	return &Handlers{
		store:  s,
		export: exportOpt,
		log:    zap.L().With(zap.String("component", "api")),
	}
}

// Routing

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireField(w, req.From != nil, "from") || !requireField(w, req.To != nil, "to") {
		return
	}
	kind, err := routing.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_kind", "kind")
		return
	}

	steps, err := h.store.Route(r.Context(), kind, req.From.coord(), req.To.coord())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRouteResponse(kind, steps))
}

// HandleCycle handles POST /api/v1/route/cycle.
func (h *Handlers) HandleCycle(w http.ResponseWriter, r *http.Request) {
	var req CycleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireField(w, req.From != nil, "from") {
		return
	}

	steps, err := h.store.RouteWithCycle(r.Context(), req.From.coord())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	resp := CycleResponse{Steps: make([]CycleStepJSON, len(steps))}
	for i, s := range steps {
		resp.Steps[i] = CycleStepJSON{Coord: toCoordJSON(s.Coord), Way: wayName(s.Way)}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePlaceRoute handles POST /api/v1/route/places.
func (h *Handlers) HandlePlaceRoute(w http.ResponseWriter, r *http.Request) {
	var req PlaceRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !requireField(w, req.From != nil, "from") || !requireField(w, req.To != nil, "to") {
		return
	}
	kind, err := routing.ParseKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_kind", "kind")
		return
	}

	pr, err := h.store.RoutePlaces(r.Context(), kind, *req.From, *req.To)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PlaceRouteResponse{
		From:          SnapJSON{Vertex: toCoordJSON(pr.From.Vertex), Dist: pr.From.Dist},
		To:            SnapJSON{Vertex: toCoordJSON(pr.To.Vertex), Dist: pr.To.Dist},
		RouteResponse: toRouteResponse(kind, pr.Steps),
	})
}

// Ways

// HandleListWays handles GET /api/v1/ways.
func (h *Handlers) HandleListWays(w http.ResponseWriter, r *http.Request) {
	ids := h.store.AllWays()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	writeJSON(w, http.StatusOK, list(names))
}

// HandleAddWay handles POST /api/v1/ways.
func (h *Handlers) HandleAddWay(w http.ResponseWriter, r *http.Request) {
	var req WayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := graph.WayID(req.ID)
	if err := h.store.AddWay(id, toCoords(req.Coords)); err != nil {
		h.writeStoreError(w, err)
		return
	}
	way, _ := h.store.Way(id)
	writeJSON(w, http.StatusCreated, toWayJSON(way))
}

// HandleGetWay handles GET /api/v1/ways/{id}.
func (h *Handlers) HandleGetWay(w http.ResponseWriter, r *http.Request) {
	way, ok := h.store.Way(graph.WayID(chi.URLParam(r, "id")))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "id")
		return
	}
	writeJSON(w, http.StatusOK, toWayJSON(way))
}

// HandleRemoveWay handles DELETE /api/v1/ways/{id}.
func (h *Handlers) HandleRemoveWay(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveWay(graph.WayID(chi.URLParam(r, "id"))); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClearWays handles DELETE /api/v1/ways.
func (h *Handlers) HandleClearWays(w http.ResponseWriter, r *http.Request) {
	h.store.ClearWays()
	w.WriteHeader(http.StatusNoContent)
}

// HandleTrimWays handles POST /api/v1/ways/trim.
func (h *Handlers) HandleTrimWays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TrimResponse{RemovedLength: h.store.TrimWays()})
}

// HandleWaysFrom handles GET /api/v1/ways/from?x=&y=.
func (h *Handlers) HandleWaysFrom(w http.ResponseWriter, r *http.Request) {
	c, ok := queryCoord(w, r)
	if !ok {
		return
	}
	edges := h.store.WaysFrom(c)
	out := make([]EdgeJSON, len(edges))
	for i, e := range edges {
		out[i] = EdgeJSON{Way: string(e.Way), To: toCoordJSON(e.To), Length: e.Length}
	}
	writeJSON(w, http.StatusOK, list(out))
}

// Places

// HandleListPlaces handles GET /api/v1/places. The name and type filters
// take precedence over order, which is one of id (default), alpha or coord.
func (h *Handlers) HandleListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var ids []registry.PlaceID
	switch {
	case q.Has("name"):
		ids = h.store.FindPlacesName(q.Get("name"))
	case q.Has("type"):
		t, err := registry.ParsePlaceType(q.Get("type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_type", "type")
			return
		}
		ids = h.store.FindPlacesType(t)
	default:
		switch q.Get("order") {
		case "", "id":
			ids = h.store.AllPlaces()
		case "alpha":
			ids = h.store.PlacesAlphabetically()
		case "coord":
			ids = h.store.PlacesCoordOrder()
		default:
			writeError(w, http.StatusBadRequest, "invalid_order", "order")
			return
		}
	}
	writeJSON(w, http.StatusOK, list(ids))
}

// HandleAddPlace handles POST /api/v1/places.
func (h *Handlers) HandleAddPlace(w http.ResponseWriter, r *http.Request) {
	var req PlaceJSON
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.AddPlace(req.place()); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// HandleGetPlace handles GET /api/v1/places/{id}.
func (h *Handlers) HandleGetPlace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	p, err := h.store.Place(registry.PlaceID(id))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceJSON(p))
}

// HandleUpdatePlace handles PATCH /api/v1/places/{id}.
func (h *Handlers) HandleUpdatePlace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req PlacePatch
	if !decodeJSON(w, r, &req) {
		return
	}

	pid := registry.PlaceID(id)
	if req.Name != nil {
		if err := h.store.ChangePlaceName(pid, *req.Name); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}
	if req.Coord != nil {
		if err := h.store.ChangePlaceCoord(pid, req.Coord.coord()); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}
	p, err := h.store.Place(pid)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaceJSON(p))
}

// HandleRemovePlace handles DELETE /api/v1/places/{id}.
func (h *Handlers) HandleRemovePlace(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.RemovePlace(registry.PlaceID(id)); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClosestPlaces handles GET /api/v1/places/closest?x=&y=&type=.
func (h *Handlers) HandleClosestPlaces(w http.ResponseWriter, r *http.Request) {
	c, ok := queryCoord(w, r)
	if !ok {
		return
	}
	t, err := registry.ParsePlaceType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_type", "type")
		return
	}
	writeJSON(w, http.StatusOK, list(h.store.PlacesClosestTo(c, t)))
}

// Areas

// HandleListAreas handles GET /api/v1/areas. With x and y it lists only the
// areas containing that point.
func (h *Handlers) HandleListAreas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Has("roots") {
		roots, err := strconv.ParseBool(q.Get("roots"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_query", "roots")
			return
		}
		if roots {
			writeJSON(w, http.StatusOK, list(h.store.RootAreas()))
			return
		}
	}
	if !q.Has("x") && !q.Has("y") {
		writeJSON(w, http.StatusOK, list(h.store.AllAreas()))
		return
	}
	c, ok := queryCoord(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, list(h.store.AreasContaining(c)))
}

// HandleAddArea handles POST /api/v1/areas.
func (h *Handlers) HandleAddArea(w http.ResponseWriter, r *http.Request) {
	var req AreaJSON
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Parent = nil
	a := registry.Area{ID: req.ID, Name: req.Name, Boundary: toCoords(req.Boundary)}
	if err := h.store.AddArea(a); err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// HandleGetArea handles GET /api/v1/areas/{id}.
func (h *Handlers) HandleGetArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	a, err := h.store.Area(area.ID(id))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	resp := AreaJSON{ID: a.ID, Name: a.Name, Boundary: toCoordsJSON(a.Boundary)}
	if parent, err := h.store.ParentArea(a.ID); err == nil && parent != area.NoArea {
		resp.Parent = &parent
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRemoveArea handles DELETE /api/v1/areas/{id}.
func (h *Handlers) HandleRemoveArea(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.RemoveArea(area.ID(id)); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetParent handles GET /api/v1/areas/{id}/parent.
func (h *Handlers) HandleGetParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	parent, err := h.store.ParentArea(area.ID(id))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AreaIDResponse{Area: parent})
}

// HandleSetParent handles PUT /api/v1/areas/{id}/parent.
func (h *Handlers) HandleSetParent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req SubareaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.store.AddSubareaToArea(area.ID(id), req.Parent); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleAncestors handles GET /api/v1/areas/{id}/ancestors.
func (h *Handlers) HandleAncestors(w http.ResponseWriter, r *http.Request) {
	h.areaList(w, r, h.store.SubareaInAreas)
}

// HandleDescendants handles GET /api/v1/areas/{id}/descendants.
func (h *Handlers) HandleDescendants(w http.ResponseWriter, r *http.Request) {
	h.areaList(w, r, h.store.AllSubareasInArea)
}

// HandleChildren handles GET /api/v1/areas/{id}/children.
func (h *Handlers) HandleChildren(w http.ResponseWriter, r *http.Request) {
	h.areaList(w, r, h.store.ChildAreas)
}

func (h *Handlers) areaList(w http.ResponseWriter, r *http.Request, fn func(area.ID) ([]area.ID, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ids, err := fn(area.ID(id))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list(ids))
}

// HandleCommonArea handles GET /api/v1/areas/common?a=&b=.
func (h *Handlers) HandleCommonArea(w http.ResponseWriter, r *http.Request) {
	a, ok := queryInt(w, r, "a")
	if !ok {
		return
	}
	b, ok := queryInt(w, r, "b")
	if !ok {
		return
	}
	common, err := h.store.CommonAreaOfSubareas(area.ID(a), area.ID(b))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AreaIDResponse{Area: common})
}

// HandleNestAreas handles POST /api/v1/areas/nest.
func (h *Handlers) HandleNestAreas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NestResponse{Added: h.store.NestAreas()})
}

// Export

// HandleExport handles GET /api/v1/export/{layer} for layers ways, places
// and areas.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	var fc *geojson.FeatureCollection
	switch layer := chi.URLParam(r, "layer"); layer {
	case "ways":
		fc = export.Network(h.store, h.export)
	case "places":
		fc = export.Places(h.store, h.export)
	case "areas":
		fc = export.Areas(h.store, h.export)
	default:
		writeError(w, http.StatusNotFound, "unknown_layer", "layer")
		return
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(data)
}

// Service

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Stats())
}

// decodeJSON enforces the content type and decodes the body into v. It
// writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id")
		return 0, false
	}
	return id, true
}

// requireField writes a 400 naming field unless present holds.
func requireField(w http.ResponseWriter, present bool, field string) bool {
	if !present {
		writeError(w, http.StatusBadRequest, "invalid_request", field)
	}
	return present
}

func queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_query", key)
		return 0, false
	}
	return n, true
}

func queryCoord(w http.ResponseWriter, r *http.Request) (geo.Coord, bool) {
	x, ok := queryInt(w, r, "x")
	if !ok {
		return geo.NoCoord, false
	}
	y, ok := queryInt(w, r, "y")
	if !ok {
		return geo.NoCoord, false
	}
	return geo.Coord{X: x, Y: y}, true
}

// writeStoreError maps domain errors onto HTTP statuses.
func (h *Handlers) writeStoreError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, graph.ErrDuplicateID), errors.Is(err, registry.ErrDuplicateID):
		status, code = http.StatusConflict, "duplicate_id"
	case errors.Is(err, area.ErrInvalidParent):
		status, code = http.StatusConflict, "invalid_parent"
	case errors.Is(err, routing.ErrPointTooFar):
		status, code = http.StatusUnprocessableEntity, "point_too_far_from_road"
	case errors.Is(err, routing.ErrNoRoute):
		status, code = http.StatusNotFound, "no_route_found"
	case errors.Is(err, graph.ErrNotFound), errors.Is(err, registry.ErrNotFound), errors.Is(err, area.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, graph.ErrInvalidWay), errors.Is(err, registry.ErrReservedID):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusServiceUnavailable, "request_timeout"
	default:
		h.log.Error("request failed", zap.Error(err))
		writeError(w, status, code, "")
		return
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
