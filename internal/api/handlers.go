package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"liveroute/internal/demo"
	"liveroute/internal/model"
)

// LocationsHandler handles POST/GET/DELETE /v1/locations
func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/locations" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodPost:
		var in model.LocationInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := s.validate.Struct(in); err != nil {
			writeError(w, r, err)
			return
		}
		loc, err := s.Locations.CreateLocation(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, loc)
	case http.MethodGet:
		items, err := s.Locations.Locations(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodDelete:
		if err := s.Locations.RemoveAll(r.Context()); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// LocationByIDHandler handles DELETE /v1/locations/{id}
func (s *Server) LocationByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/locations/")
	if rest == "" || strings.Contains(rest, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid id", err.Error(), r.URL.Path)
		return
	}
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.Locations.RemoveLocation(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RouteHandler handles GET /v1/route
func (s *Server) RouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Routes.Latest())
}

// DemoIndexHandler handles GET /v1/demo
func (s *Server) DemoIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items := []map[string]any{}
	for _, name := range demo.Names() {
		ds, _ := demo.Get(name)
		items = append(items, map[string]any{"name": name, "locations": len(ds.Locations)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// DemoLoadHandler handles POST /v1/demo/{name}
func (s *Server) DemoLoadHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/v1/demo/")
	if name == "" || strings.Contains(name, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing demo name", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	locs, err := s.Locations.LoadDemo(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"name": name, "items": locs})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	if s.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := s.Store.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
