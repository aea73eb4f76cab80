package solver

import (
	"github.com/shopspring/decimal"

	"vrp-solver-service/internal/domain"
)

// MonotonicFilter turns raw solver output into a non-increasing sequence of
// total distances with no empty solutions and no consecutive repeats.
//
// It is not safe for concurrent use.
type MonotonicFilter struct {
	best    domain.VrpSolution
	hasBest bool
	last    decimal.Decimal
	hasLast bool
}

func NewMonotonicFilter() *MonotonicFilter { return &MonotonicFilter{} }

// Offer feeds one raw emission and returns what should be published, if anything.
func (f *MonotonicFilter) Offer(sol domain.VrpSolution) (domain.VrpSolution, bool) {
	if !sol.IsEmpty() {
		if !f.hasBest || f.best.IsEmpty() || !sol.TotalDistance().GreaterThan(f.best.TotalDistance()) {
			f.best = sol
			f.hasBest = true
		}
	}

	if !f.hasBest || f.best.IsEmpty() {
		return domain.VrpSolution{}, false
	}

	dist := f.best.TotalDistance()
	if f.hasLast && dist.Equal(f.last) {
		return domain.VrpSolution{}, false
	}
	f.last = dist
	f.hasLast = true
	return f.best, true
}

// Best is the best non-empty solution seen so far.
func (f *MonotonicFilter) Best() (domain.VrpSolution, bool) {
	return f.best, f.hasBest
}
