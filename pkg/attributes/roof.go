package attributes

import "strings"

// RoofShape is the closed set of roof algorithms. Values are the
// roof:shape tag values they are selected by.
type RoofShape string

// Supported roof shapes
const (
	RoofFlat       RoofShape = "flat"
	RoofSkillion   RoofShape = "skillion"
	RoofGabled     RoofShape = "gabled"
	RoofHipped     RoofShape = "hipped"
	RoofHalfHipped RoofShape = "half-hipped"
	RoofPyramidal  RoofShape = "pyramidal"
	RoofDome       RoofShape = "dome"
	RoofGambrel    RoofShape = "gambrel"
	RoofMansard    RoofShape = "mansard"
	RoofRound      RoofShape = "round"
)

// RoofShapes lists every supported shape
var RoofShapes = []RoofShape{
	RoofFlat, RoofSkillion, RoofGabled, RoofHipped, RoofHalfHipped,
	RoofPyramidal, RoofDome, RoofGambrel, RoofMansard, RoofRound,
}

// ParseRoofShape maps a roof:shape value to a shape. Unknown values are flat.
func ParseRoofShape(s string) RoofShape {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skillion", "lean_to", "lean-to", "shed":
		return RoofSkillion
	case "gabled", "gable":
		return RoofGabled
	case "hipped", "hip":
		return RoofHipped
	case "half-hipped", "half_hipped", "halfhipped":
		return RoofHalfHipped
	case "pyramidal", "pyramid":
		return RoofPyramidal
	case "dome", "onion":
		return RoofDome
	case "gambrel":
		return RoofGambrel
	case "mansard":
		return RoofMansard
	case "round", "barrel":
		return RoofRound
	default:
		return RoofFlat
	}
}

// Orientation places the ridge of gabled roofs relative to the principal axis
type Orientation string

const (
	OrientationAlong  Orientation = "along"
	OrientationAcross Orientation = "across"
)

// Roof describes the roof cap of a building
type Roof struct {
	Shape RoofShape `json:"shape"`
	// Height is measured from the eave to the highest point
	Height float64 `json:"height"`
	// Direction is the compass bearing in degrees along which the roof
	// rises. Nil means derived from the footprint.
	Direction   *float64    `json:"direction,omitempty"`
	Orientation Orientation `json:"orientation"`
}
