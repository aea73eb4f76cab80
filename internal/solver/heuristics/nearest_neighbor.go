package heuristics

import (
	"context"
	"errors"
	"math"
	"slices"

	"github.com/google/uuid"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/solver"
)

const NearestNeighborName = "nearest-neighbor"

var errNoVehicles = errors.New("problem has no vehicles")

// NearestNeighbor fills vehicles one at a time, always driving to the closest
// customer that still fits. It emits a single solution.
type NearestNeighbor struct{}

func (NearestNeighbor) Name() string { return NearestNeighborName }

func (NearestNeighbor) SolveFlow(
	ctx context.Context,
	initial domain.VrpSolution,
	m matrix.Matrix,
	_ solver.Config,
	emit func(domain.VrpSolution),
) error {
	p, err := nearestNeighborPlan(ctx, initial.Problem, m)
	if err != nil {
		return err
	}
	emit(p.solution(initial.Problem, m))
	return nil
}

// nearestNeighborPlan visits customers greedily by distance. The tie-breaker on
// id keeps the result deterministic. Customers that fit no vehicle go to the
// one with most spare capacity, leaving the plan infeasible.
func nearestNeighborPlan(ctx context.Context, problem domain.VrpProblem, m matrix.Matrix) (plan, error) {
	if len(problem.Vehicles) == 0 {
		return nil, errNoVehicles
	}

	remaining := make(map[int64]int, len(problem.Customers))
	for _, c := range problem.Customers {
		remaining[c.ID] = c.Demand
	}

	p := make(plan, len(problem.Vehicles))
	for vi, v := range problem.Vehicles {
		current := v.Depot.ID
		free := v.Capacity

		for len(remaining) > 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			best := int64(-1)
			bestDist := math.Inf(1)
			for id, demand := range remaining {
				if demand > free {
					continue
				}
				d := m.Distance(current, id)
				if d < bestDist || (d == bestDist && id < best) {
					best, bestDist = id, d
				}
			}
			if best < 0 {
				break
			}

			p[vi] = append(p[vi], best)
			free -= remaining[best]
			delete(remaining, best)
			current = best
		}
	}

	if len(remaining) > 0 {
		demand := demands(problem)
		left := make([]int64, 0, len(remaining))
		for id := range remaining {
			left = append(left, id)
		}
		slices.Sort(left)
		for _, id := range left {
			vi := mostSpare(problem, p, demand)
			p[vi] = append(p[vi], id)
		}
	}
	return p, nil
}

func mostSpare(problem domain.VrpProblem, p plan, demand map[int64]int) int {
	best, bestSpare := 0, math.MinInt
	for i, v := range problem.Vehicles {
		spare := v.Capacity - load(p[i], demand)
		if spare > bestSpare {
			best, bestSpare = i, spare
		}
	}
	return best
}

func nearestNeighborFactory() solver.Factory {
	return solver.FactoryFunc{
		FactoryName: NearestNeighborName,
		New:         func(uuid.UUID, solver.Config) solver.Solver { return NearestNeighbor{} },
	}
}
