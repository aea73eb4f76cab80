package domain

// VrpProblem is the immutable input of a solve: a fleet and the customers it must serve.
// Problems are created by an external problem-definition source and are read-only here.
type VrpProblem struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Vehicles  []Vehicle  `json:"vehicles"`
	Customers []Customer `json:"customers"`
}

// Depots returns the distinct vehicle depots in first-seen order.
func (p VrpProblem) Depots() []Depot {
	seen := make(map[int64]struct{}, len(p.Vehicles))
	depots := make([]Depot, 0, len(p.Vehicles))
	for _, v := range p.Vehicles {
		if _, ok := seen[v.Depot.ID]; ok {
			continue
		}
		seen[v.Depot.ID] = struct{}{}
		depots = append(depots, v.Depot)
	}
	return depots
}

// Locations returns depots followed by customers.
func (p VrpProblem) Locations() []Location {
	depots := p.Depots()
	locs := make([]Location, 0, len(depots)+len(p.Customers))
	for _, d := range depots {
		locs = append(locs, d)
	}
	for _, c := range p.Customers {
		locs = append(locs, c)
	}
	return locs
}

// LocationIDs returns the ids of Locations in the same order.
func (p VrpProblem) LocationIDs() []int64 {
	locs := p.Locations()
	ids := make([]int64, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.LocationID())
	}
	return ids
}

func (p VrpProblem) NumLocations() int { return len(p.Depots()) + len(p.Customers) }
func (p VrpProblem) NumVehicles() int  { return len(p.Vehicles) }

// CustomerByID returns the customer with id, if present.
func (p VrpProblem) CustomerByID(id int64) (Customer, bool) {
	for _, c := range p.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}
