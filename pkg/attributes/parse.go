package attributes

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const metresPerFoot = 0.3048

var (
	feetInches = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*'\s*(\d+(?:\.\d+)?)\s*"$`)
	lengthExpr = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(m|metres|meters|ft|feet|'|)$`)
)

// ParseLength parses a length tag value in metres. Feet are accepted as
// "40 ft", "40'" or "12'6\"". ok is false for anything else.
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)

	if m := feetInches.FindStringSubmatch(s); m != nil {
		ft, _ := strconv.ParseFloat(m[1], 64)
		in, _ := strconv.ParseFloat(m[2], 64)
		return (ft + in/12) * metresPerFoot, true
	}

	m := lengthExpr.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	switch m[2] {
	case "ft", "feet", "'":
		v *= metresPerFoot
	}
	return v, true
}

// ParseCount parses a non-negative level count. Fractions are rounded.
func ParseCount(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.Replace(s, ",", ".", 1)), 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Round(v)), true
}

var cardinals = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// ParseDirection parses a bearing in degrees or a 16-wind compass point.
// The result is normalized to [0, 360).
func ParseDirection(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if deg, ok := cardinals[strings.ToUpper(s)]; ok {
		return deg, true
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "°"), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v, true
}

// ParseAngle parses a roof pitch in degrees, strictly between 0 and 90
func ParseAngle(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "°"), 64)
	if err != nil || v <= 0 || v >= 90 {
		return 0, false
	}
	return v, true
}
