package mesh

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/rclancey/earcut"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
)

// Triangulate splits a polygon with holes into triangles by ear clipping.
// The outer ring must wind counter-clockwise and the holes clockwise, all
// implicitly closed. The returned points are the outer ring followed by
// each hole in order, and every triangle indexes into them counter-clockwise.
//
// Crossing rings are rejected up front, and a triangulation whose area
// differs from the footprint's fails with UNMESHABLE_FOOTPRINT.
func Triangulate(outer orb.Ring, holes []orb.Ring) ([]orb.Point, [][3]int, error) {
	if len(outer) < 3 {
		return nil, nil, core.NewError(core.ErrUnmeshableFootprint, "outer ring has fewer than 3 points")
	}
	if err := checkSimple(outer, holes); err != nil {
		return nil, nil, err
	}

	pts := make([]orb.Point, 0, len(outer))
	pts = append(pts, outer...)
	poly := orb.Polygon{footprint.Closed(outer)}
	var holeStarts []int
	for _, h := range holes {
		if len(h) < 3 {
			continue
		}
		holeStarts = append(holeStarts, len(pts))
		pts = append(pts, h...)
		poly = append(poly, footprint.Closed(h))
	}

	data := make([]float64, 0, 2*len(pts))
	for _, p := range pts {
		data = append(data, p[0], p[1])
	}
	idx, err := earcut.Earcut(data, holeStarts, 2)
	if err != nil {
		return nil, nil, core.NewError(core.ErrUnmeshableFootprint, "ear clipping failed").WithCause(err)
	}

	tris := make([][3]int, 0, len(idx)/3)
	var got float64
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, c := idx[i], idx[i+1], idx[i+2]
		area := cross(pts[a], pts[b], pts[c])
		switch {
		case area == 0:
			continue
		case area < 0:
			b, c = c, b
			area = -area
		}
		tris = append(tris, [3]int{a, b, c})
		got += area / 2
	}

	want := planar.Area(poly)
	if want == 0 || math.Abs(got-want) > 1e-6*want+1e-9 {
		return nil, nil, core.Errorf(core.ErrUnmeshableFootprint, "triangulated area %.3f does not match footprint area %.3f", got, want)
	}
	return pts, tris, nil
}

// cross is twice the signed area of the triangle o, a, b
func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

// properlyIntersect reports whether segments p1p2 and q1q2 cross at a
// single point interior to both
func properlyIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

type segment struct{ a, b orb.Point }

func ringSegments(r orb.Ring) []segment {
	segs := make([]segment, 0, len(r))
	for i := range r {
		segs = append(segs, segment{r[i], r[(i+1)%len(r)]})
	}
	return segs
}

// checkSimple rejects rings that cross themselves or each other. The ear
// clipper accepts such input and returns overlapping triangles.
func checkSimple(outer orb.Ring, holes []orb.Ring) error {
	var segs []segment
	segs = append(segs, ringSegments(outer)...)
	for _, h := range holes {
		segs = append(segs, ringSegments(h)...)
	}
	for i := range segs {
		for j := i + 1; j < len(segs); j++ {
			if properlyIntersect(segs[i].a, segs[i].b, segs[j].a, segs[j].b) {
				return core.Errorf(core.ErrUnmeshableFootprint,
					"rings self-intersect near (%.2f, %.2f)", segs[i].a[0], segs[i].a[1]).
					WithGuidance("Fix the crossing edges of the building outline in OSM")
			}
		}
	}
	return nil
}
