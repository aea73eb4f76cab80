// Package matrix provides distance/time lookups between problem locations.
//
// Distances are in meters and times in milliseconds for every implementation.
package matrix

import "errors"

// Matrix answers travel distance and time between two location ids.
type Matrix interface {
	Distance(originID, targetID int64) float64
	Time(originID, targetID int64) int64
}

// ErrMatrixShape is returned when the flat arrays do not describe an n x n matrix.
var ErrMatrixShape = errors.New("travel times/distances must have the squared number of elements on locations")

// ErrUnknownLocation is returned when a matrix is asked to build around a
// location id it cannot index.
var ErrUnknownLocation = errors.New("unknown location id")
