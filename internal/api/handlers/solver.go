package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"vrp-solver-service/internal/api/dto"
	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/ports"
)

// SolverService is the part of solver.Service the HTTP surface drives.
type SolverService interface {
	SolverNames() []string
	ShowStatus(ctx context.Context, problemID int64) (domain.SolverStatus, error)
	CurrentSolutionRequest(ctx context.Context, problemID int64) (*domain.VrpSolutionRequest, error)
	ShowDetailedPath(ctx context.Context, problemID int64) error
	EnqueueSolverRequest(ctx context.Context, problemID int64, solverName string) (uuid.UUID, error)
	Terminate(ctx context.Context, key uuid.UUID) error
	Clear(ctx context.Context, key uuid.UUID) error
}

type SolverHandler struct {
	Service SolverService
	Panels  ports.PanelStore
}

func (h *SolverHandler) SolverNames(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Service.SolverNames())
}

func (h *SolverHandler) Status(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	h.writeStatus(w, r, problemID)
}

func (h *SolverHandler) writeStatus(w http.ResponseWriter, r *http.Request, problemID int64) {
	status, err := h.Service.ShowStatus(r.Context(), problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.StatusResponse{Status: status})
}

func (h *SolverHandler) Solution(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	solReq, err := h.Service.CurrentSolutionRequest(r.Context(), problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, solReq)
}

// SolutionPanel returns the current solution together with the viewer's panel.
func (h *SolverHandler) SolutionPanel(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	solReq, err := h.Service.CurrentSolutionRequest(r.Context(), problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var panel domain.SolverPanel
	if viewer := viewerIDFrom(r); viewer != "" && h.Panels != nil {
		if panel, err = h.Panels.Get(r.Context(), viewer); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	writeJSON(w, r, http.StatusOK, dto.PanelSolutionState{SolverPanel: panel, SolutionState: *solReq})
}

func (h *SolverHandler) Solve(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	solverName := r.PathValue("solverName")

	key, err := h.Service.EnqueueSolverRequest(r.Context(), problemID, solverName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status, err := h.Service.ShowStatus(r.Context(), problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, dto.SolveResponse{SolverKey: key, Status: status})
}

func (h *SolverHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, h.Service.Terminate)
}

func (h *SolverHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.stop(w, r, h.Service.Clear)
}

// stop resolves {target} as a solver key, or as a problem id whose current
// request is stopped, then answers with the resulting status.
func (h *SolverHandler) stop(w http.ResponseWriter, r *http.Request, action func(context.Context, uuid.UUID) error) {
	target := r.PathValue("target")
	ctx := r.Context()

	if key, err := uuid.Parse(target); err == nil {
		if err := action(ctx, key); err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusAccepted, dto.SolveResponse{SolverKey: key})
		return
	}

	problemID, err := strconv.ParseInt(target, 10, 64)
	if err != nil || problemID <= 0 {
		writeError(w, r, http.StatusBadRequest, "target must be a solver key or a problem id")
		return
	}

	solReq, err := h.Service.CurrentSolutionRequest(ctx, problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if solReq.SolverKey != nil {
		if err := action(ctx, *solReq.SolverKey); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}
	h.writeStatus(w, r, problemID)
}

// DetailedPath stores the viewer's panel choice and re-broadcasts the current
// solution so it is redrawn at the new detail level.
func (h *SolverHandler) DetailedPath(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
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

	viewer := viewerIDFrom(r)
	if viewer == "" {
		writeError(w, r, http.StatusBadRequest, "viewer is required")
		return
	}
	if h.Panels != nil {
		if err := h.Panels.Put(r.Context(), viewer, domain.SolverPanel{IsDetailedPath: *req.IsDetailedPath}); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	if err := h.Service.ShowDetailedPath(r.Context(), problemID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeStatus(w, r, problemID)
}
