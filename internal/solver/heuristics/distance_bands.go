package heuristics

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/solver"
)

const DistanceBandsName = "distance-bands"

// DistanceBands sorts customers by distance from their depot and hands each
// vehicle a contiguous band, then orders every band by nearest neighbor.
// Bands ignore capacity, so the result may be infeasible for uneven demands.
type DistanceBands struct{}

func (DistanceBands) Name() string { return DistanceBandsName }

func (DistanceBands) SolveFlow(
	ctx context.Context,
	initial domain.VrpSolution,
	m matrix.Matrix,
	_ solver.Config,
	emit func(domain.VrpSolution),
) error {
	problem := initial.Problem
	if len(problem.Vehicles) == 0 {
		return errNoVehicles
	}
	hub := problem.Vehicles[0].Depot.ID

	ids := make([]int64, 0, len(problem.Customers))
	for _, c := range problem.Customers {
		ids = append(ids, c.ID)
	}
	slices.SortFunc(ids, func(a, b int64) int {
		da, db := m.Distance(hub, a), m.Distance(hub, b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	})

	nVehicles := len(problem.Vehicles)
	// ceiling division spreads customers as evenly as possible
	chunk := (len(ids) + nVehicles - 1) / nVehicles

	p := make(plan, nVehicles)
	for vi := 0; vi < nVehicles; vi++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := vi * chunk
		if start >= len(ids) {
			break
		}
		end := min(start+chunk, len(ids))
		p[vi] = orderByNearest(m, problem.Vehicles[vi].Depot.ID, ids[start:end])
	}

	emit(p.solution(problem, m))
	return nil
}

// orderByNearest sequences stops greedily from depot.
func orderByNearest(m matrix.Matrix, depot int64, stops []int64) []int64 {
	left := append([]int64(nil), stops...)
	out := make([]int64, 0, len(stops))
	current := depot
	for len(left) > 0 {
		bi := 0
		for i := 1; i < len(left); i++ {
			d, bd := m.Distance(current, left[i]), m.Distance(current, left[bi])
			if d < bd || (d == bd && left[i] < left[bi]) {
				bi = i
			}
		}
		current = left[bi]
		out = append(out, current)
		left = slices.Delete(left, bi, bi+1)
	}
	return out
}

func distanceBandsFactory() solver.Factory {
	return solver.FactoryFunc{
		FactoryName: DistanceBandsName,
		New:         func(uuid.UUID, solver.Config) solver.Solver { return DistanceBands{} },
	}
}
