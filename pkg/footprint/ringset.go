package footprint

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RingSet is a building footprint in local metres. Rings are implicitly
// closed: the first point is not repeated at the end. Outer rings wind
// counter-clockwise and inner rings clockwise (x east, y north).
type RingSet struct {
	Outer []orb.Ring
	Inner []orb.Ring
}

// Polygon is one outer ring with the holes it contains
type Polygon struct {
	Outer orb.Ring
	Holes []orb.Ring
}

// Polygons pairs every inner ring with the first outer ring containing it.
// Inner rings outside every outer ring are left out.
func (rs *RingSet) Polygons() []Polygon {
	polys := make([]Polygon, len(rs.Outer))
	for i, outer := range rs.Outer {
		polys[i].Outer = outer
	}
	for _, inner := range rs.Inner {
		if i := containingOuter(rs.Outer, inner); i >= 0 {
			polys[i].Holes = append(polys[i].Holes, inner)
		}
	}
	return polys
}

func containingOuter(outers []orb.Ring, inner orb.Ring) int {
	if len(inner) == 0 {
		return -1
	}
	pt := interiorPoint(inner)
	for i, outer := range outers {
		if planar.RingContains(Closed(outer), pt) {
			return i
		}
	}
	return -1
}

// interiorPoint returns a point just inside the ring, next to its first edge
func interiorPoint(r orb.Ring) orb.Point {
	a, b := r[0], r[1%len(r)]
	mid := orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	if l == 0 {
		return a
	}
	// left of the edge is inside a CCW ring, right of it inside a CW ring
	side := 1.0
	if r.Orientation() == orb.CW {
		side = -1
	}
	const eps = 1e-3
	return orb.Point{mid[0] - side*dy/l*eps, mid[1] + side*dx/l*eps}
}

// Area returns the footprint area in square metres, holes excluded
func (rs *RingSet) Area() float64 {
	var a float64
	for _, r := range rs.Outer {
		a += math.Abs(planar.Area(Closed(r)))
	}
	for _, r := range rs.Inner {
		a -= math.Abs(planar.Area(Closed(r)))
	}
	return a
}

// Bound returns the bounds of the outer rings
func (rs *RingSet) Bound() orb.Bound {
	var mp orb.MultiPoint
	for _, r := range rs.Outer {
		mp = append(mp, r...)
	}
	return mp.Bound()
}

// Centroid returns the area weighted centroid of the footprint
func (rs *RingSet) Centroid() orb.Point {
	var mp orb.MultiPolygon
	for _, p := range rs.Polygons() {
		poly := orb.Polygon{Closed(p.Outer)}
		for _, h := range p.Holes {
			poly = append(poly, Closed(h))
		}
		mp = append(mp, poly)
	}
	c, _ := planar.CentroidArea(mp)
	return c
}

// PointCount returns the number of points over all rings
func (rs *RingSet) PointCount() int {
	n := 0
	for _, r := range rs.Outer {
		n += len(r)
	}
	for _, r := range rs.Inner {
		n += len(r)
	}
	return n
}

// Contains reports whether pt lies inside the footprint and outside its holes
func (rs *RingSet) Contains(pt orb.Point) bool {
	for _, p := range rs.Polygons() {
		if !planar.RingContains(Closed(p.Outer), pt) {
			continue
		}
		inHole := false
		for _, h := range p.Holes {
			if planar.RingContains(Closed(h), pt) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// LongestEdge returns the endpoints of the longest outer edge, in ring order
func (rs *RingSet) LongestEdge() (a, b orb.Point) {
	best := -1.0
	for _, r := range rs.Outer {
		for i := range r {
			p, q := r[i], r[(i+1)%len(r)]
			if d := planar.Distance(p, q); d > best {
				best, a, b = d, p, q
			}
		}
	}
	return a, b
}

// Closed returns r with its first point repeated at the end, the form orb expects
func Closed(r orb.Ring) orb.Ring {
	if len(r) == 0 || r[0] == r[len(r)-1] {
		return r
	}
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	return append(out, r[0])
}

// orient returns r wound counter-clockwise when ccw is true, clockwise otherwise
func orient(r orb.Ring, ccw bool) orb.Ring {
	if (r.Orientation() == orb.CCW) != ccw {
		r.Reverse()
	}
	return r
}
