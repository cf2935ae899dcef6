// Package models defines shared data types
package models

import "time"

// Coordinate is a geographic point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within the WGS84 range
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Place is a single geocoder candidate for a free-text query
type Place struct {
	Label    string     `json:"label"`
	Location Coordinate `json:"location"`
}

// Stop is a bus stop as returned by the passenger-info API.
// Instances are immutable once fetched and live for one query cycle.
type Stop struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Location       Coordinate `json:"location"`
	DistanceMeters int        `json:"distance_meters"`
}

// LineArrival is one real-time line entry at a stop. Minutes is nil when
// the API reported no countdown; Scheduled is zero when there is no
// timetabled arrival.
type LineArrival struct {
	StopID      string    `json:"stop_id"`
	Line        string    `json:"line"`
	Destination string    `json:"destination"`
	Operator    string    `json:"operator,omitempty"`
	Minutes     *int      `json:"minutes,omitempty"`
	DistanceKm  int       `json:"distance_km,omitempty"`
	Scheduled   time.Time `json:"scheduled,omitempty"`
}
