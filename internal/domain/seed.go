package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseProblems decodes and validates a JSON array of problems.
func ParseProblems(raw []byte) ([]VrpProblem, error) {
	var data []VrpProblem
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse problems: %w", err)
	}

	seen := make(map[int64]struct{}, len(data))
	for i, p := range data {
		if p.ID <= 0 {
			return nil, fmt.Errorf("parse problems: invalid problem id at index %d: %d", i, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("parse problems: duplicated problem id %d", p.ID)
		}
		seen[p.ID] = struct{}{}

		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("parse problems: problem %d: name cannot be empty", p.ID)
		}
		if len(p.Vehicles) == 0 {
			return nil, fmt.Errorf("parse problems: problem %d: needs at least one vehicle", p.ID)
		}
		for _, v := range p.Vehicles {
			if v.Capacity <= 0 {
				return nil, fmt.Errorf("parse problems: problem %d: vehicle %d has no capacity", p.ID, v.ID)
			}
		}

		ids := make(map[int64]struct{})
		for _, l := range p.Locations() {
			if _, dup := ids[l.LocationID()]; dup {
				return nil, fmt.Errorf("parse problems: problem %d: location id %d used twice", p.ID, l.LocationID())
			}
			ids[l.LocationID()] = struct{}{}
		}
	}
	return data, nil
}
