package handlers

import (
	"net/http"
	"strings"

	"vrp-solver-service/internal/api/dto"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

type PanelHandler struct {
	Panels ports.PanelStore
}

func (h *PanelHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer := strings.TrimSpace(r.PathValue("viewerID"))
	if viewer == "" {
		writeError(w, r, http.StatusBadRequest, "viewer is required")
		return
	}

	panel, err := h.Panels.Get(r.Context(), viewer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, panel)
}

func (h *PanelHandler) Put(w http.ResponseWriter, r *http.Request) {
	viewer := strings.TrimSpace(r.PathValue("viewerID"))
	if viewer == "" {
		writeError(w, r, http.StatusBadRequest, "viewer is required")
		return
	}

	var req dto.PanelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsDetailedPath == nil {
		writeError(w, r, http.StatusBadRequest, "isDetailedPath is required")
		return
	}

	panel := domain.SolverPanel{IsDetailedPath: *req.IsDetailedPath}
	if err := h.Panels.Put(r.Context(), viewer, panel); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, panel)
}
