package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/ports"
	"vrp-solver-service/internal/solver"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Warn("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ports.ErrActiveRequest):
		writeError(w, r, http.StatusConflict, "problem is already being solved")
	case errors.Is(err, solver.ErrSolverNotFound):
		writeError(w, r, http.StatusNotFound, "unknown solver")
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func problemIDFrom(r *http.Request) (int64, error) {
	raw := r.PathValue("problemID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid problem id %q", raw)
	}
	return id, nil
}

// viewerIDFrom reads the viewer from the query string or the X-Viewer-ID header.
func viewerIDFrom(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("viewer")); v != "" {
		return v
	}
	return strings.TrimSpace(r.Header.Get("X-Viewer-ID"))
}

// decodeBody decodes exactly one JSON object, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}
