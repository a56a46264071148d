package footprint

import (
	"math"

	"github.com/paulmach/orb"
)

// Frame is a local coordinate frame aligned with a footprint. U runs along
// the longest outer edge and V is U rotated a quarter turn counter-clockwise.
// Min and Max are the extents of the outer rings in frame coordinates.
type Frame struct {
	Origin orb.Point
	U, V   orb.Point
	Min    orb.Point
	Max    orb.Point
}

// PrincipalFrame returns the frame aligned with the longest outer edge,
// centered on the footprint centroid
func (rs *RingSet) PrincipalFrame() Frame {
	a, b := rs.LongestEdge()
	angle := math.Atan2(b[1]-a[1], b[0]-a[0])
	return rs.FrameAt(angle)
}

// FrameAt returns the frame whose U axis points at angle radians
// counter-clockwise from east, centered on the footprint centroid
func (rs *RingSet) FrameAt(angle float64) Frame {
	f := Frame{
		Origin: rs.Centroid(),
		U:      orb.Point{math.Cos(angle), math.Sin(angle)},
		V:      orb.Point{-math.Sin(angle), math.Cos(angle)},
		Min:    orb.Point{math.Inf(1), math.Inf(1)},
		Max:    orb.Point{math.Inf(-1), math.Inf(-1)},
	}
	for _, r := range rs.Outer {
		for _, p := range r {
			q := f.ToLocal(p)
			f.Min[0] = math.Min(f.Min[0], q[0])
			f.Min[1] = math.Min(f.Min[1], q[1])
			f.Max[0] = math.Max(f.Max[0], q[0])
			f.Max[1] = math.Max(f.Max[1], q[1])
		}
	}
	return f
}

// ToLocal converts a footprint point to frame coordinates
func (f Frame) ToLocal(p orb.Point) orb.Point {
	dx, dy := p[0]-f.Origin[0], p[1]-f.Origin[1]
	return orb.Point{dx*f.U[0] + dy*f.U[1], dx*f.V[0] + dy*f.V[1]}
}

// ToWorld converts frame coordinates back to footprint coordinates
func (f Frame) ToWorld(q orb.Point) orb.Point {
	return orb.Point{
		f.Origin[0] + q[0]*f.U[0] + q[1]*f.V[0],
		f.Origin[1] + q[0]*f.U[1] + q[1]*f.V[1],
	}
}

// Length is the extent along U
func (f Frame) Length() float64 { return f.Max[0] - f.Min[0] }

// Width is the extent along V, across the principal axis
func (f Frame) Width() float64 { return f.Max[1] - f.Min[1] }
