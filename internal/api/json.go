package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"liveroute/internal/demo"
	"liveroute/internal/planner"
	"liveroute/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeProblem(w, http.StatusBadRequest, "Validation failed", err.Error(), r.URL.Path)
	case errors.Is(err, store.ErrNotFound), errors.Is(err, demo.ErrUnknownDataset):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, planner.ErrInvalidOperation):
		writeProblem(w, http.StatusConflict, "Invalid operation", err.Error(), r.URL.Path)
	case errors.Is(err, planner.ErrSolveFailure):
		log.Printf("api: %s %s solver failure: %v", r.Method, r.URL.Path, err)
		writeProblem(w, http.StatusInternalServerError, "Solver failed", err.Error(), r.URL.Path)
	default:
		log.Printf("api: %s %s error: %v", r.Method, r.URL.Path, err)
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", err.Error(), r.URL.Path)
	}
}
