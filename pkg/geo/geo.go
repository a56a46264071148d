// Package geo provides geographic primitives shared by the building pipeline:
// locations, bounding boxes and great-circle distances.
package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadius is the WGS84 semi-major axis in meters
	EarthRadius = 6378137.0

	// BBoxPrecision is the number of decimal places used when a bounding box
	// is rendered for the map API. 7 places keep roughly 1cm resolution.
	BBoxPrecision = 7
)

// Location is a WGS84 coordinate in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// BoundingBox is a geographic rectangle in decimal degrees
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// NewBoundingBox creates an empty bounding box that any extension will replace
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

// IsEmpty reports whether no point has been added to the box
func (b *BoundingBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// ExtendWithPoint grows the box to include the given coordinate
func (b *BoundingBox) ExtendWithPoint(lat, lon float64) {
	b.MinLat = math.Min(b.MinLat, lat)
	b.MinLon = math.Min(b.MinLon, lon)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MaxLon = math.Max(b.MaxLon, lon)
}

// Pad returns a copy of the box expanded by margin degrees on every side,
// clamped to valid coordinate ranges.
func (b BoundingBox) Pad(margin float64) BoundingBox {
	return BoundingBox{
		MinLat: math.Max(b.MinLat-margin, -90),
		MinLon: math.Max(b.MinLon-margin, -180),
		MaxLat: math.Min(b.MaxLat+margin, 90),
		MaxLon: math.Min(b.MaxLon+margin, 180),
	}
}

// Center returns the midpoint of the box
func (b BoundingBox) Center() Location {
	return Location{
		Latitude:  (b.MinLat + b.MaxLat) / 2,
		Longitude: (b.MinLon + b.MaxLon) / 2,
	}
}

// Contains reports whether the coordinate lies inside the box (inclusive)
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Validate checks the box is non-empty and within coordinate ranges
func (b BoundingBox) Validate() error {
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("bounding box out of range: %s", b.String())
	}
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon {
		return fmt.Errorf("bounding box is inverted: %s", b.String())
	}
	return nil
}

// String formats the box as minLon,minLat,maxLon,maxLat, the order used by
// the OSM map API bbox parameter.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%.*f,%.*f,%.*f,%.*f",
		BBoxPrecision, b.MinLon,
		BBoxPrecision, b.MinLat,
		BBoxPrecision, b.MaxLon,
		BBoxPrecision, b.MaxLat)
}

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}
