package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Projection maps WGS84 coordinates to a local tangent plane in meters.
//
// It is an equirectangular projection centered on Origin: x grows east, y grows
// north. Over the extent of a single building the distortion is far below the
// precision of the source data, so edge lengths and angles can be treated as
// Euclidean.
type Projection struct {
	Origin Location
	cosLat float64
}

// NewProjection creates a projection centered on the given origin
func NewProjection(origin Location) Projection {
	return Projection{
		Origin: origin,
		cosLat: math.Cos(toRadians(origin.Latitude)),
	}
}

// Forward projects a coordinate to local meters
func (p Projection) Forward(lat, lon float64) orb.Point {
	x := toRadians(lon-p.Origin.Longitude) * EarthRadius * p.cosLat
	y := toRadians(lat-p.Origin.Latitude) * EarthRadius
	return orb.Point{x, y}
}

// Inverse converts local meters back to a coordinate
func (p Projection) Inverse(pt orb.Point) Location {
	lat := p.Origin.Latitude + toDegrees(pt[1]/EarthRadius)
	lon := p.Origin.Longitude
	if p.cosLat != 0 {
		lon += toDegrees(pt[0] / (EarthRadius * p.cosLat))
	}
	return Location{Latitude: lat, Longitude: lon}
}
