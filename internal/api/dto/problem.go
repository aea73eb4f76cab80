package dto

import "vrp-solver-service/internal/domain"

type ProblemResponse struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	NumVehicles   int               `json:"numVehicles"`
	NumLocations  int               `json:"numLocations"`
	TotalDemand   int               `json:"totalDemand"`
	TotalCapacity int               `json:"totalCapacity"`
	Vehicles      []domain.Vehicle  `json:"vehicles"`
	Customers     []domain.Customer `json:"customers"`
}
