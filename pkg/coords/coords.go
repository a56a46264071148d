// Package coords parses positions typed by users and formats building
// centres as MGRS grid references.
//
// Accepted inputs:
//   - MGRS, e.g. "16QCE1234567890"
//   - Degrees minutes seconds, e.g. "17°15'30"N 88°59'36"W"
//   - Decimal degrees, e.g. "17.2580, -88.9934"
package coords

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/akhenakh/mgrs"

	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

// Format is the notation a position was written in
type Format int

const (
	FormatUnknown Format = iota
	FormatDecimal
	FormatDMS
	FormatMGRS
)

// String returns the format name
func (f Format) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	case FormatDMS:
		return "dms"
	case FormatMGRS:
		return "mgrs"
	default:
		return "unknown"
	}
}

// DefaultPrecision is the MGRS precision used for building centres (1m)
const DefaultPrecision = 5

var (
	// zone, latitude band, 100km square, easting+northing digits
	mgrsRegex    = regexp.MustCompile(`(?i)^(\d{1,2})([C-HJ-NP-X])([A-HJ-NP-Z]{2})(\d{2,10})$`)
	dmsRegex     = regexp.MustCompile(`(?i)^(\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([NS])[\s,]+(\d+)[°d\s]+(\d+)[′'m\s]+(\d+(?:\.\d+)?)[″"s]?\s*([EW])$`)
	decimalRegex = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)[,\s]+(-?\d+(?:\.\d+)?)$`)
)

// Parse detects the notation of input and converts it to decimal degrees
func Parse(input string) (geo.Location, Format, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return geo.Location{}, FormatUnknown, fmt.Errorf("empty coordinate string")
	}
	compact := strings.ReplaceAll(strings.ToUpper(input), " ", "")

	switch {
	case mgrsRegex.MatchString(compact):
		lat, lon, err := mgrs.MGRSToLatLng(compact)
		if err != nil {
			return geo.Location{}, FormatMGRS, fmt.Errorf("MGRS conversion failed: %w", err)
		}
		loc := geo.Location{Latitude: lat, Longitude: lon}
		return loc, FormatMGRS, validate(loc)
	case dmsRegex.MatchString(input):
		loc, err := parseDMS(input)
		return loc, FormatDMS, err
	case decimalRegex.MatchString(input):
		m := decimalRegex.FindStringSubmatch(input)
		lat, _ := strconv.ParseFloat(m[1], 64)
		lon, _ := strconv.ParseFloat(m[2], 64)
		loc := geo.Location{Latitude: lat, Longitude: lon}
		return loc, FormatDecimal, validate(loc)
	}
	return geo.Location{}, FormatUnknown, fmt.Errorf("unrecognized coordinate format: %q", input)
}

func parseDMS(input string) (geo.Location, error) {
	m := dmsRegex.FindStringSubmatch(input)
	part := func(deg, min, sec string, max float64) (float64, error) {
		d, _ := strconv.ParseFloat(deg, 64)
		mi, _ := strconv.ParseFloat(min, 64)
		s, _ := strconv.ParseFloat(sec, 64)
		if d > max || mi >= 60 || s >= 60 {
			return 0, fmt.Errorf("invalid DMS value %s %s %s", deg, min, sec)
		}
		return d + mi/60 + s/3600, nil
	}

	lat, err := part(m[1], m[2], m[3], 90)
	if err != nil {
		return geo.Location{}, err
	}
	lon, err := part(m[5], m[6], m[7], 180)
	if err != nil {
		return geo.Location{}, err
	}
	if strings.EqualFold(m[4], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[8], "W") {
		lon = -lon
	}
	loc := geo.Location{Latitude: lat, Longitude: lon}
	return loc, validate(loc)
}

func validate(loc geo.Location) error {
	return osm.ValidateCoords(loc.Latitude, loc.Longitude)
}

// ToMGRS converts a position to an MGRS string. Precision is 1-5 digits per
// axis (10km down to 1m); values out of range use DefaultPrecision.
func ToMGRS(loc geo.Location, precision int) (string, error) {
	if precision < 1 || precision > 5 {
		precision = DefaultPrecision
	}
	if err := validate(loc); err != nil {
		return "", err
	}
	ref, err := mgrs.LatLngToMGRS(loc.Latitude, loc.Longitude, precision)
	if err != nil {
		return "", fmt.Errorf("MGRS conversion failed: %w", err)
	}
	return ref, nil
}
