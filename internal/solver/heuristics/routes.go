// Package heuristics holds the solvers shipped with the service.
package heuristics

import (
	"github.com/shopspring/decimal"

	"vrp-solver-service/internal/domain"
	"vrp-solver-service/internal/matrix"
)

// plan is one customer id sequence per vehicle, same index as Problem.Vehicles.
type plan [][]int64

func (p plan) clone() plan {
	out := make(plan, len(p))
	for i, r := range p {
		out[i] = append([]int64(nil), r...)
	}
	return out
}

// tourDistance is the length in meters of depot -> stops -> depot.
func tourDistance(m matrix.Matrix, depot int64, stops []int64) float64 {
	if len(stops) == 0 {
		return 0
	}
	total := m.Distance(depot, stops[0])
	for i := 0; i+1 < len(stops); i++ {
		total += m.Distance(stops[i], stops[i+1])
	}
	return total + m.Distance(stops[len(stops)-1], depot)
}

func tourTime(m matrix.Matrix, depot int64, stops []int64) int64 {
	if len(stops) == 0 {
		return 0
	}
	total := m.Time(depot, stops[0])
	for i := 0; i+1 < len(stops); i++ {
		total += m.Time(stops[i], stops[i+1])
	}
	return total + m.Time(stops[len(stops)-1], depot)
}

func (p plan) distance(problem domain.VrpProblem, m matrix.Matrix) float64 {
	total := 0.0
	for i, stops := range p {
		total += tourDistance(m, problem.Vehicles[i].Depot.ID, stops)
	}
	return total
}

// solution renders the plan with kilometers and minutes rounded to two places.
func (p plan) solution(problem domain.VrpProblem, m matrix.Matrix) domain.VrpSolution {
	customers := make(map[int64]domain.Customer, len(problem.Customers))
	for _, c := range problem.Customers {
		customers[c.ID] = c
	}

	routes := make([]domain.Route, 0, len(p))
	for i, stops := range p {
		depot := problem.Vehicles[i].Depot
		r := domain.Route{
			Distance:    decimal.Zero,
			Time:        decimal.Zero,
			Order:       []domain.LatLng{},
			CustomerIDs: append([]int64{}, stops...),
		}
		if len(stops) > 0 {
			r.Order = append(r.Order, domain.LatLng{Lat: depot.Lat, Lng: depot.Lng})
			for _, id := range stops {
				c := customers[id]
				r.TotalDemand += c.Demand
				r.Order = append(r.Order, domain.LatLng{Lat: c.Lat, Lng: c.Lng})
			}
			r.Order = append(r.Order, domain.LatLng{Lat: depot.Lat, Lng: depot.Lng})

			r.Distance = decimal.NewFromFloat(tourDistance(m, depot.ID, stops) / 1000).Round(2)
			r.Time = decimal.NewFromFloat(float64(tourTime(m, depot.ID, stops)) / 60000).Round(2)
		}
		routes = append(routes, r)
	}
	return domain.VrpSolution{Problem: problem, Routes: routes}
}

// planOf recovers the plan of a solution, or false when it does not cover the
// problem's vehicles and customers exactly once.
func planOf(sol domain.VrpSolution) (plan, bool) {
	if len(sol.Routes) != len(sol.Problem.Vehicles) {
		return nil, false
	}

	seen := make(map[int64]struct{}, len(sol.Problem.Customers))
	p := make(plan, len(sol.Routes))
	for i, r := range sol.Routes {
		for _, id := range r.CustomerIDs {
			if _, ok := sol.Problem.CustomerByID(id); !ok {
				return nil, false
			}
			if _, dup := seen[id]; dup {
				return nil, false
			}
			seen[id] = struct{}{}
		}
		p[i] = append([]int64{}, r.CustomerIDs...)
	}
	if len(seen) != len(sol.Problem.Customers) {
		return nil, false
	}
	return p, true
}

func demands(problem domain.VrpProblem) map[int64]int {
	out := make(map[int64]int, len(problem.Customers))
	for _, c := range problem.Customers {
		out[c.ID] = c.Demand
	}
	return out
}

func load(stops []int64, demand map[int64]int) int {
	total := 0
	for _, id := range stops {
		total += demand[id]
	}
	return total
}
