package heuristics

import (
	"context"
	"slices"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
	"vrp-solver-service/internal/solver"
)

const LocalSearchName = "local-search"

// improvement below this many meters is noise
const epsilon = 1e-6

// LocalSearch starts from the incoming solution (or nearest neighbor when it has
// none) and applies first-improvement moves until none shortens the plan or the
// run is stopped. Moves are 2-opt inside a route, relocation of one customer to
// another route and exchange of two customers between routes. Every improvement
// is emitted.
type LocalSearch struct {
	key uuid.UUID
}

func (LocalSearch) Name() string { return LocalSearchName }

func (s LocalSearch) SolveFlow(
	ctx context.Context,
	initial domain.VrpSolution,
	m matrix.Matrix,
	_ solver.Config,
	emit func(domain.VrpSolution),
) error {
	problem := initial.Problem

	p, ok := planOf(initial)
	if !ok || initial.IsEmpty() {
		var err error
		if p, err = nearestNeighborPlan(ctx, problem, m); err != nil {
			return err
		}
	}
	emit(p.solution(problem, m))

	demand := demands(problem)
	moves := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		improved := twoOpt(ctx, problem, m, p) || relocate(ctx, problem, m, p, demand) || exchange(ctx, problem, m, p, demand)
		if !improved {
			break
		}
		moves++
		emit(p.solution(problem, m))
	}

	log.WithFields(log.Fields{"solver_key": s.key, "moves": moves}).Debug("local search reached local optimum")
	return nil
}

// twoOpt applies the first segment reversal that shortens any route.
func twoOpt(ctx context.Context, problem domain.VrpProblem, m matrix.Matrix, p plan) bool {
	for vi, stops := range p {
		depot := problem.Vehicles[vi].Depot.ID
		base := tourDistance(m, depot, stops)

		for i := 0; i < len(stops)-1; i++ {
			if ctx.Err() != nil {
				return false
			}
			for j := i + 1; j < len(stops); j++ {
				candidate := append([]int64(nil), stops...)
				slices.Reverse(candidate[i : j+1])
				if tourDistance(m, depot, candidate) < base-epsilon {
					p[vi] = candidate
					return true
				}
			}
		}
	}
	return false
}

// relocate applies the first move of one customer to another route (or another
// position) that shortens the plan without breaking capacity.
func relocate(ctx context.Context, problem domain.VrpProblem, m matrix.Matrix, p plan, demand map[int64]int) bool {
	for from := range p {
		fromDepot := problem.Vehicles[from].Depot.ID
		for i, id := range p[from] {
			if ctx.Err() != nil {
				return false
			}
			without := slices.Delete(append([]int64(nil), p[from]...), i, i+1)
			saved := tourDistance(m, fromDepot, p[from]) - tourDistance(m, fromDepot, without)

			for to := range p {
				if to == from {
					continue
				}
				if load(p[to], demand)+demand[id] > problem.Vehicles[to].Capacity {
					continue
				}
				toDepot := problem.Vehicles[to].Depot.ID
				before := tourDistance(m, toDepot, p[to])
				for pos := 0; pos <= len(p[to]); pos++ {
					with := slices.Insert(append([]int64(nil), p[to]...), pos, id)
					if tourDistance(m, toDepot, with)-before < saved-epsilon {
						p[from], p[to] = without, with
						return true
					}
				}
			}
		}
	}
	return false
}

// exchange swaps two customers of different routes when it shortens the plan
// and both routes keep within capacity.
func exchange(ctx context.Context, problem domain.VrpProblem, m matrix.Matrix, p plan, demand map[int64]int) bool {
	for a := range p {
		depotA := problem.Vehicles[a].Depot.ID
		loadA := load(p[a], demand)
		baseA := tourDistance(m, depotA, p[a])

		for b := a + 1; b < len(p); b++ {
			depotB := problem.Vehicles[b].Depot.ID
			loadB := load(p[b], demand)
			base := baseA + tourDistance(m, depotB, p[b])

			for i, x := range p[a] {
				if ctx.Err() != nil {
					return false
				}
				for j, y := range p[b] {
					if loadA-demand[x]+demand[y] > problem.Vehicles[a].Capacity ||
						loadB-demand[y]+demand[x] > problem.Vehicles[b].Capacity {
						continue
					}
					ra := append([]int64(nil), p[a]...)
					rb := append([]int64(nil), p[b]...)
					ra[i], rb[j] = y, x
					if tourDistance(m, depotA, ra)+tourDistance(m, depotB, rb) < base-epsilon {
						p[a], p[b] = ra, rb
						return true
					}
				}
			}
		}
	}
	return false
}

func localSearchFactory() solver.Factory {
	return solver.FactoryFunc{
		FactoryName: LocalSearchName,
		New:         func(key uuid.UUID, _ solver.Config) solver.Solver { return LocalSearch{key: key} },
	}
}
