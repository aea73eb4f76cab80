// Package domaintest provides small problems and matrices for tests.
package domaintest

import (
	"math"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

// Problem returns a problem whose locations sit on a line, one kilometer apart:
// depot 1 at x=0 and customers 2..n+1 at x=1..n. Every customer demands 1.
func Problem(id int64, customers, vehicles, capacity int) domain.VrpProblem {
	depot := domain.Depot{ID: 1, Name: "depot", Lat: 0, Lng: 0}

	p := domain.VrpProblem{ID: id, Name: "line"}
	for v := 0; v < vehicles; v++ {
		p.Vehicles = append(p.Vehicles, domain.Vehicle{
			ID: int64(v + 1), Name: "vehicle", Capacity: capacity, Depot: depot,
		})
	}
	for c := 1; c <= customers; c++ {
		p.Customers = append(p.Customers, domain.Customer{
			ID: int64(c + 1), Name: "customer", Lat: 0, Lng: float64(c) * 0.01, Demand: 1,
		})
	}
	return p
}

// Matrix is the line metric of Problem: 1000 m per step at 10 m/s.
func Matrix(p domain.VrpProblem) *matrix.ProblemMatrix {
	ids := p.LocationIDs()
	n := len(ids)

	dists := make([]float64, 0, n*n)
	times := make([]int64, 0, n*n)
	for _, a := range ids {
		for _, b := range ids {
			d := math.Abs(float64(x(a)-x(b))) * 1000
			dists = append(dists, d)
			times = append(times, int64(d/10*1000))
		}
	}
	return matrix.MustProblemMatrix(ids, dists, times)
}

// x is the position of a location on the line.
func x(id int64) int64 {
	if id == 1 {
		return 0
	}
	return id - 1
}

// Detailed bundles the empty solution of p with its matrix.
func Detailed(p domain.VrpProblem) domain.VrpDetailedSolution {
	return domain.VrpDetailedSolution{Solution: domain.EmptySolution(p), Matrix: Matrix(p)}
}
