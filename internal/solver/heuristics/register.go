package heuristics

import "vrp-solver-service/internal/solver"

// Register adds the built-in solvers to reg.
func Register(reg *solver.Registry) {
	reg.Register(nearestNeighborFactory())
	reg.Register(distanceBandsFactory())
	reg.Register(localSearchFactory())
}
