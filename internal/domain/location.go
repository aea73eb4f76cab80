package domain

// Coordinate is anything placed on the map.
type Coordinate interface {
	Latitude() float64
	Longitude() float64
}

// Immutable geographic point (latitude, longitude).
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) Latitude() float64  { return l.Lat }
func (l LatLng) Longitude() float64 { return l.Lng }

// Return coordinates as [lon, lat] for external API compatibility.
func CoordsToList(c Coordinate) []float64 { return []float64{c.Longitude(), c.Latitude()} }

// Location is a coordinate with an identity inside a problem (a depot or a customer).
type Location interface {
	Coordinate
	LocationID() int64
	LocationName() string
}

// Depot is the start and end point of one or more vehicles.
type Depot struct {
	ID   int64   `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (d Depot) Latitude() float64    { return d.Lat }
func (d Depot) Longitude() float64   { return d.Lng }
func (d Depot) LocationID() int64    { return d.ID }
func (d Depot) LocationName() string { return d.Name }

// Customer is a stop with a demand that must be served by exactly one vehicle.
type Customer struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Demand int     `json:"demand"`
}

func (c Customer) Latitude() float64    { return c.Lat }
func (c Customer) Longitude() float64   { return c.Lng }
func (c Customer) LocationID() int64    { return c.ID }
func (c Customer) LocationName() string { return c.Name }

// Vehicle with a fixed capacity, starting and ending its route at Depot.
type Vehicle struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Depot    Depot  `json:"depot"`
}

// Path is the result of routing between two coordinates.
// Distance is in meters and Time in milliseconds.
type Path struct {
	Distance    float64  `json:"distance"`
	Time        int64    `json:"time"`
	Coordinates []LatLng `json:"coordinates"`
}
