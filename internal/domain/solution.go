package domain

import "github.com/shopspring/decimal"

// Route travelled by one vehicle.
//
// Distance is expressed in kilometers and Time in minutes, both rounded to two places.
// Order holds the stop coordinates including the depot at both ends; CustomerIDs holds
// only the visited customers, in visiting order.
type Route struct {
	Distance    decimal.Decimal `json:"distance"`
	Time        decimal.Decimal `json:"time"`
	TotalDemand int             `json:"totalDemand"`
	Order       []LatLng        `json:"order"`
	CustomerIDs []int64         `json:"customerIds"`
}

// VrpSolution pairs a problem with one route per vehicle (same index as Problem.Vehicles).
// Solutions are replaced, never mutated in place.
type VrpSolution struct {
	Problem VrpProblem `json:"problem"`
	Routes  []Route    `json:"routes"`
}

// EmptySolution returns a solution without routes for problem.
func EmptySolution(problem VrpProblem) VrpSolution {
	return VrpSolution{Problem: problem, Routes: []Route{}}
}

// IsFeasible reports whether every route respects its vehicle capacity.
func (s VrpSolution) IsFeasible() bool {
	for i, r := range s.Routes {
		if i >= len(s.Problem.Vehicles) {
			break
		}
		if r.TotalDemand > s.Problem.Vehicles[i].Capacity {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the solution has no routes or only routes without stops.
func (s VrpSolution) IsEmpty() bool {
	for _, r := range s.Routes {
		if len(r.Order) > 0 {
			return false
		}
	}
	return true
}

// TotalDistance is the sum of route distances.
func (s VrpSolution) TotalDistance() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.Routes {
		total = total.Add(r.Distance)
	}
	return total
}

// TotalTime is the longest route time, since routes run in parallel.
func (s VrpSolution) TotalTime() decimal.Decimal {
	longest := decimal.Zero
	for _, r := range s.Routes {
		if r.Time.GreaterThan(longest) {
			longest = r.Time
		}
	}
	return longest
}

// WithRoutes returns a copy of the solution holding routes.
func (s VrpSolution) WithRoutes(routes []Route) VrpSolution {
	return VrpSolution{Problem: s.Problem, Routes: routes}
}
