// Package attributes derives heights and roof parameters from building tags.
package attributes

import (
	"math"

	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/footprint"
)

// Config holds the defaults used when tags are missing. It is passed by
// value and never modified.
type Config struct {
	// LevelHeight is the height of one level in metres
	LevelHeight float64 `yaml:"level_height" json:"level_height"`
	// DefaultHeight is the wall height when no height or levels are tagged
	DefaultHeight float64 `yaml:"default_height" json:"default_height"`
	// BBoxMargin pads the neighbor query around a building, in degrees
	BBoxMargin float64 `yaml:"bbox_margin" json:"bbox_margin"`
	// RoofRatios is the roof height per metre of footprint width by shape
	RoofRatios map[RoofShape]float64 `yaml:"roof_ratios" json:"roof_ratios"`
}

// DefaultConfig returns the stock defaults
func DefaultConfig() Config {
	return Config{
		LevelHeight:   3,
		DefaultHeight: 3,
		BBoxMargin:    0.0001,
		RoofRatios: map[RoofShape]float64{
			RoofSkillion:   0.2,
			RoofGabled:     0.3,
			RoofHipped:     0.3,
			RoofHalfHipped: 0.3,
			RoofPyramidal:  0.3,
			RoofGambrel:    0.3,
			RoofMansard:    0.3,
			RoofDome:       0.5,
			RoofRound:      0.5,
		},
	}
}

// ratio returns the roof height ratio for shape, falling back to the defaults
func (c Config) ratio(shape RoofShape) float64 {
	if r, ok := c.RoofRatios[shape]; ok {
		return r
	}
	return DefaultConfig().RoofRatios[shape]
}

func (c Config) levelHeight() float64 {
	if c.LevelHeight > 0 {
		return c.LevelHeight
	}
	return 3
}

func (c Config) defaultHeight() float64 {
	if c.DefaultHeight > 0 {
		return c.DefaultHeight
	}
	return 3
}

// Attributes are the resolved dimensions of a building or part. Walls run
// from BaseElevation to BaseElevation+Height; the roof sits on top.
type Attributes struct {
	BaseElevation float64      `json:"base_elevation"`
	Height        float64      `json:"height"`
	Levels        int          `json:"levels"`
	Roof          Roof         `json:"roof"`
	Parts         []Attributes `json:"parts,omitempty"`
}

// Top returns the elevation of the highest point of the roof
func (a Attributes) Top() float64 {
	top := a.BaseElevation + a.Height + a.Roof.Height
	for _, p := range a.Parts {
		top = math.Max(top, p.Top())
	}
	return top
}

// Part is a building:part element with its own footprint
type Part struct {
	Tags      gosm.Tags
	Footprint *footprint.RingSet
}

// Resolve derives the attributes of a building from its tags and footprint.
// Each part is resolved independently from its own tags. Tag values that
// cannot be parsed are ignored.
func Resolve(tags gosm.Tags, parts []Part, fp *footprint.RingSet, cfg Config) Attributes {
	a := resolveOne(tags, fp, cfg)
	for _, p := range parts {
		a.Parts = append(a.Parts, resolveOne(p.Tags, p.Footprint, cfg))
	}
	return a
}

func resolveOne(tags gosm.Tags, fp *footprint.RingSet, cfg Config) Attributes {
	lh := cfg.levelHeight()
	roof := resolveRoof(tags, fp, cfg)

	base := 0.0
	if v, ok := ParseLength(tags.Find("min_height")); ok && v >= 0 {
		base = v
	} else if n, ok := ParseCount(tags.Find("building:min_level")); ok {
		base = float64(n) * lh
	}

	var top float64
	levels, hasLevels := ParseCount(tags.Find("building:levels"))
	if total, ok := ParseLength(tags.Find("height")); ok && total > 0 {
		if base >= total {
			base = 0
		}
		roof.Height = math.Min(roof.Height, total-base)
		top = total - roof.Height
	} else {
		switch {
		case hasLevels && levels > 0:
			top = float64(levels) * lh
		default:
			top = cfg.defaultHeight()
		}
		if base >= top {
			base = 0
		}
	}

	height := top - base
	if !hasLevels || levels == 0 {
		levels = int(math.Max(1, math.Round(height/lh)))
	}

	return Attributes{
		BaseElevation: base,
		Height:        height,
		Levels:        levels,
		Roof:          roof,
	}
}

func resolveRoof(tags gosm.Tags, fp *footprint.RingSet, cfg Config) Roof {
	shapeTag := tags.Find("roof:shape")
	if shapeTag == "" {
		shapeTag = tags.Find("building:roof:shape")
	}
	roof := Roof{
		Shape:       ParseRoofShape(shapeTag),
		Orientation: OrientationAlong,
	}
	if tags.Find("roof:orientation") == string(OrientationAcross) {
		roof.Orientation = OrientationAcross
	}

	dir := tags.Find("roof:direction")
	if dir == "" {
		dir = tags.Find("roof:slope:direction")
	}
	if d, ok := ParseDirection(dir); ok {
		roof.Direction = &d
	}

	if roof.Shape == RoofFlat {
		return roof
	}

	switch {
	case positiveLength(tags.Find("roof:height")):
		roof.Height, _ = ParseLength(tags.Find("roof:height"))
	case positiveCount(tags.Find("roof:levels")):
		n, _ := ParseCount(tags.Find("roof:levels"))
		roof.Height = float64(n) * cfg.levelHeight()
	default:
		span := roofSpan(roof, fp)
		if angle, ok := ParseAngle(tags.Find("roof:angle")); ok {
			run := span / 2
			if roof.Shape == RoofSkillion {
				run = span
			}
			roof.Height = math.Tan(angle*math.Pi/180) * run
		} else {
			roof.Height = cfg.ratio(roof.Shape) * span
		}
	}
	return roof
}

// roofSpan is the horizontal extent the roof slopes across: along the
// slope for a skillion, across the ridge for the other shapes
func roofSpan(roof Roof, fp *footprint.RingSet) float64 {
	if fp == nil || len(fp.Outer) == 0 {
		return 0
	}
	if roof.Shape == RoofSkillion && roof.Direction != nil {
		return fp.FrameAt(BearingToAngle(*roof.Direction)).Length()
	}
	f := fp.PrincipalFrame()
	if roof.Orientation == OrientationAcross && roof.Shape != RoofSkillion {
		return f.Length()
	}
	return f.Width()
}

// BearingToAngle converts a compass bearing in degrees to radians
// counter-clockwise from east
func BearingToAngle(bearing float64) float64 {
	return (90 - bearing) * math.Pi / 180
}

func positiveLength(s string) bool {
	v, ok := ParseLength(s)
	return ok && v > 0
}

func positiveCount(s string) bool {
	n, ok := ParseCount(s)
	return ok && n > 0
}
