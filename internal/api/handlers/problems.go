package handlers

import (
	"net/http"

	"vrp-solver-service/internal/api/dto"
	"vrp-solver-service/internal/ports"
)

// ProblemHandler exposes read-only problem retrieval.
type ProblemHandler struct {
	Problems ports.ProblemPort
}

func (h *ProblemHandler) Get(w http.ResponseWriter, r *http.Request) {
	problemID, err := problemIDFrom(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.Problems.GetByID(r.Context(), problemID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ProblemResponse{
		ID:           p.ID,
		Name:         p.Name,
		NumVehicles:  p.NumVehicles(),
		NumLocations: p.NumLocations(),
		Vehicles:     p.Vehicles,
		Customers:    p.Customers,
	}
	for _, c := range p.Customers {
		res.TotalDemand += c.Demand
	}
	for _, v := range p.Vehicles {
		res.TotalCapacity += v.Capacity
	}

	writeJSON(w, r, http.StatusOK, res)
}
