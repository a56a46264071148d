package mesh

import (
	"math"
	"sort"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/paulmach/orb"
)

// Facet is an affine function f(x, y) = A·x + B·y + C over the footprint.
// A roof is the height field H·min(f) over its facets.
type Facet struct {
	A, B, C float64
}

// At evaluates the facet at p
func (f Facet) At(p orb.Point) float64 { return f.A*p[0] + f.B*p[1] + f.C }

// frameFacet converts a facet given in frame coordinates (u, v) to one in
// footprint coordinates
func frameFacet(fr footprint.Frame, au, av, c float64) Facet {
	// u = (p-o)·U, v = (p-o)·V
	a := au*fr.U[0] + av*fr.V[0]
	b := au*fr.U[1] + av*fr.V[1]
	return Facet{A: a, B: b, C: c - a*fr.Origin[0] - b*fr.Origin[1]}
}

// domeRings are the normalized radii at which dome tangent planes touch
var domeRings = []float64{0.35, 0.6, 0.8, 0.93}

// roundSamples are the normalized offsets at which barrel tangent planes touch
var roundSamples = []float64{-0.93, -0.75, -0.45, 0, 0.45, 0.75, 0.93}

const domeAzimuths = 12

// RoofFacets returns the facets of roof over the footprint. Every facet is
// non-negative over the footprint's frame extents; Synthesize scales the
// field so its peak is the roof height. Flat roofs have no facets.
func RoofFacets(rs *footprint.RingSet, roof attributes.Roof) []Facet {
	if roof.Shape == attributes.RoofFlat || len(rs.Outer) == 0 {
		return nil
	}

	if roof.Shape == attributes.RoofSkillion {
		fr := rs.PrincipalFrame()
		if roof.Direction != nil {
			fr = rs.FrameAt(attributes.BearingToAngle(*roof.Direction) - math.Pi/2)
		}
		// rises along V from the low eave
		w := fr.Width()
		if w <= 0 {
			return nil
		}
		return []Facet{frameFacet(fr, 0, 1/w, -fr.Min[1]/w)}
	}

	fr := rs.PrincipalFrame()
	if roof.Orientation == attributes.OrientationAcross {
		fr = rs.FrameAt(math.Atan2(fr.V[1], fr.V[0]))
	}
	u0, u1 := fr.Min[0], fr.Max[0]
	v0, v1 := fr.Min[1], fr.Max[1]
	w := (v1 - v0) / 2
	if w <= 0 || u1 <= u0 {
		return nil
	}
	vc := (v0 + v1) / 2

	switch roof.Shape {
	case attributes.RoofGabled:
		return []Facet{
			frameFacet(fr, 0, 1/w, -v0/w),
			frameFacet(fr, 0, -1/w, v1/w),
		}
	case attributes.RoofHipped, attributes.RoofHalfHipped:
		raise := 0.0
		if roof.Shape == attributes.RoofHalfHipped {
			raise = 0.5
		}
		return []Facet{
			frameFacet(fr, 0, 1/w, -v0/w),
			frameFacet(fr, 0, -1/w, v1/w),
			frameFacet(fr, 1/w, 0, raise-u0/w),
			frameFacet(fr, -1/w, 0, raise+u1/w),
		}
	case attributes.RoofPyramidal:
		// apex above the centroid, the frame origin
		if u0 >= 0 || u1 <= 0 || v0 >= 0 || v1 <= 0 {
			return pyramidFallback(fr)
		}
		return []Facet{
			frameFacet(fr, -1/u1, 0, 1),
			frameFacet(fr, -1/u0, 0, 1),
			frameFacet(fr, 0, -1/v1, 1),
			frameFacet(fr, 0, -1/v0, 1),
		}
	case attributes.RoofGambrel:
		// w' = (v-vc)/w; lower slopes 1.4(1∓w'), upper slopes 1∓0.6w'
		return []Facet{
			frameFacet(fr, 0, 1.4/w, 1.4-1.4*vc/w),
			frameFacet(fr, 0, -1.4/w, 1.4+1.4*vc/w),
			frameFacet(fr, 0, 0.6/w, 1-0.6*vc/w),
			frameFacet(fr, 0, -0.6/w, 1+0.6*vc/w),
		}
	case attributes.RoofMansard:
		return []Facet{
			frameFacet(fr, 0, 3/w, -3*v0/w),
			frameFacet(fr, 0, -3/w, 3*v1/w),
			frameFacet(fr, 3/w, 0, -3*u0/w),
			frameFacet(fr, -3/w, 0, 3*u1/w),
			{C: 1},
		}
	case attributes.RoofRound:
		facets := make([]Facet, 0, len(roundSamples))
		for _, s := range roundSamples {
			// tangent of sqrt(1-x²) at s, x = (v-vc)/w
			h := math.Sqrt(1 - s*s)
			slope := -s / h
			facets = append(facets, frameFacet(fr, 0, slope/w, h-slope*s-slope*vc/w))
		}
		return facets
	case attributes.RoofDome:
		return domeFacets(rs, fr)
	}
	return nil
}

// pyramidFallback centres the apex on the frame extents when the centroid
// lies outside them
func pyramidFallback(fr footprint.Frame) []Facet {
	uc, vc := (fr.Min[0]+fr.Max[0])/2, (fr.Min[1]+fr.Max[1])/2
	lu, lv := fr.Length()/2, fr.Width()/2
	return []Facet{
		frameFacet(fr, -1/lu, 0, 1+uc/lu),
		frameFacet(fr, 1/lu, 0, 1-uc/lu),
		frameFacet(fr, 0, -1/lv, 1+vc/lv),
		frameFacet(fr, 0, 1/lv, 1-vc/lv),
	}
}

// domeFacets approximates a spherical cap over the centroid by tangent planes
func domeFacets(rs *footprint.RingSet, fr footprint.Frame) []Facet {
	c := fr.Origin
	var r float64
	for _, ring := range rs.Outer {
		for _, p := range ring {
			r = math.Max(r, math.Hypot(p[0]-c[0], p[1]-c[1]))
		}
	}
	if r == 0 {
		return nil
	}
	facets := []Facet{{C: 1}}
	for _, q := range domeRings {
		h := math.Sqrt(1 - q*q)
		slope := -q / h
		for k := 0; k < domeAzimuths; k++ {
			phi := 2 * math.Pi * float64(k) / domeAzimuths
			ex, ey := math.Cos(phi), math.Sin(phi)
			// f = h + slope·(d/r - q), d = (p-c)·e
			a, b := slope*ex/r, slope*ey/r
			facets = append(facets, Facet{A: a, B: b, C: h - slope*q - a*c[0] - b*c[1]})
		}
	}
	return facets
}

// field evaluates min over facets
func field(facets []Facet, p orb.Point) float64 {
	m := math.Inf(1)
	for _, f := range facets {
		m = math.Min(m, f.At(p))
	}
	return math.Max(0, m)
}

// clipRegion cuts a convex polygon down to the part where facet i is the
// lowest of all facets
func clipRegion(poly []orb.Point, facets []Facet, i int) []orb.Point {
	fi := facets[i]
	for j, fj := range facets {
		if j == i || len(poly) < 3 {
			continue
		}
		// keep fi - fj <= 0
		d := Facet{A: fi.A - fj.A, B: fi.B - fj.B, C: fi.C - fj.C}
		if d.A == 0 && d.B == 0 {
			if d.C > 0 || (d.C == 0 && j < i) {
				return nil
			}
			continue
		}
		poly = clipHalfPlane(poly, d)
	}
	if len(poly) < 3 {
		return nil
	}
	return poly
}

// clipHalfPlane keeps the part of poly where d <= 0 (Sutherland–Hodgman)
func clipHalfPlane(poly []orb.Point, d Facet) []orb.Point {
	out := make([]orb.Point, 0, len(poly)+1)
	for k := range poly {
		p, q := poly[k], poly[(k+1)%len(poly)]
		dp, dq := d.At(p), d.At(q)
		if dp <= 0 {
			out = append(out, p)
		}
		if (dp < 0 && dq > 0) || (dp > 0 && dq < 0) {
			t := dp / (dp - dq)
			out = append(out, orb.Point{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])})
		}
	}
	return out
}

// edgeBreaks returns the parameters in (0, 1) along p→q at which the
// lowest facet changes, sorted, with 0 and 1 at the ends
func edgeBreaks(facets []Facet, p, q orb.Point) []float64 {
	ts := []float64{0, 1}
	for i := range facets {
		for j := i + 1; j < len(facets); j++ {
			fi, fj := facets[i], facets[j]
			ai, aj := fi.At(p), fj.At(p)
			bi, bj := fi.At(q), fj.At(q)
			den := (ai - aj) - (bi - bj)
			if den == 0 {
				continue
			}
			t := (ai - aj) / den
			if t <= 1e-9 || t >= 1-1e-9 {
				continue
			}
			x := orb.Point{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])}
			v := fi.At(x)
			if math.Abs(v-field(facets, x)) <= 1e-9*math.Max(1, math.Abs(v)) {
				ts = append(ts, t)
			}
		}
	}
	sort.Float64s(ts)
	out := ts[:1]
	for _, t := range ts[1:] {
		if t-out[len(out)-1] > 1e-9 {
			out = append(out, t)
		}
	}
	out[len(out)-1] = 1
	return out
}
