// Package osm provides utilities for working with OpenStreetMap data.
package osm

import (
	"fmt"
)

const (
	// APIBaseURL is the OSM editing API v0.6 root, including the trailing slash
	APIBaseURL = "https://api.openstreetmap.org/api/0.6/"

	// UserAgent for API requests (required by the OSMF API usage policy)
	UserAgent = "osmbuildings/0.1.0"
)

// ValidateCoords validates latitude and longitude values
// Returns an error if the coordinates are invalid
func ValidateCoords(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", lon)
	}
	return nil
}
