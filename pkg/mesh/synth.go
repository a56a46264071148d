package mesh

import (
	"math"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

type capMesh struct {
	pts  []orb.Point
	tris [][3]int
}

type piece struct {
	poly  []orb.Point
	facet int
}

// Synthesize builds the mesh of one building or part: walls from the base
// elevation up to the eave, a downward facing floor and the roof.
func Synthesize(rs *footprint.RingSet, attrs attributes.Attributes) (*Mesh, error) {
	if rs == nil || len(rs.Outer) == 0 {
		return nil, core.NewError(core.ErrUnmeshableFootprint, "footprint has no outer ring")
	}
	polys := rs.Polygons()
	caps := make([]capMesh, 0, len(polys))
	for _, p := range polys {
		pts, tris, err := Triangulate(p.Outer, p.Holes)
		if err != nil {
			return nil, err
		}
		caps = append(caps, capMesh{pts: pts, tris: tris})
	}

	base := attrs.BaseElevation
	eave := base + attrs.Height

	m := &Mesh{}
	if attrs.Height > 0 {
		m.BeginSurface(SurfaceWall)
		for _, p := range polys {
			addWalls(m, p.Outer, base, eave)
			for _, h := range p.Holes {
				addWalls(m, h, base, eave)
			}
		}
	}

	m.BeginSurface(SurfaceFloor)
	for _, c := range caps {
		first := len(m.Vertices)
		for _, p := range c.pts {
			m.AddVertex(Vec3{p[0], p[1], base})
		}
		for _, t := range c.tris {
			m.AddFace(first+t[0], first+t[2], first+t[1])
		}
	}

	addRoof(m, rs, polys, caps, attrs.Roof, eave)
	m.compact()
	return m, nil
}

// Walls returns the extruded rings of rs between base and top, without
// caps. A ring of N points yields 2N vertices and 2N faces.
func Walls(rs *footprint.RingSet, base, top float64) *Mesh {
	m := &Mesh{}
	m.BeginSurface(SurfaceWall)
	for _, r := range rs.Outer {
		addWalls(m, r, base, top)
	}
	for _, r := range rs.Inner {
		addWalls(m, r, base, top)
	}
	m.compact()
	return m
}

func addWalls(m *Mesh, r orb.Ring, base, top float64) {
	n := len(r)
	first := len(m.Vertices)
	for _, p := range r {
		m.AddVertex(Vec3{p[0], p[1], base})
	}
	for _, p := range r {
		m.AddVertex(Vec3{p[0], p[1], top})
	}
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		b0, b1 := first+i, first+j
		t0, t1 := first+n+i, first+n+j
		m.AddFace(b0, b1, t1)
		m.AddFace(b0, t1, t0)
	}
}

func addRoof(m *Mesh, rs *footprint.RingSet, polys []footprint.Polygon, caps []capMesh, roof attributes.Roof, eave float64) {
	var facets []Facet
	if roof.Height > 0 {
		facets = RoofFacets(rs, roof)
	}

	var pieces []piece
	peak := 0.0
	for _, c := range caps {
		for _, t := range c.tris {
			tri := []orb.Point{c.pts[t[0]], c.pts[t[1]], c.pts[t[2]]}
			for i := range facets {
				poly := clipRegion(tri, facets, i)
				if poly == nil || math.Abs(planar.Area(footprint.Closed(orb.Ring(poly)))) < minFaceArea {
					continue
				}
				pieces = append(pieces, piece{poly: poly, facet: i})
				for _, p := range poly {
					peak = math.Max(peak, facets[i].At(p))
				}
			}
		}
	}

	m.BeginSurface(SurfaceRoof)
	if len(pieces) == 0 || peak <= 0 {
		for _, c := range caps {
			first := len(m.Vertices)
			for _, p := range c.pts {
				m.AddVertex(Vec3{p[0], p[1], eave})
			}
			for _, t := range c.tris {
				m.AddFace(first+t[0], first+t[1], first+t[2])
			}
		}
		return
	}

	scale := roof.Height / peak
	vs := newVertexSet(m)
	for _, pc := range pieces {
		f := facets[pc.facet]
		idx := make([]int, len(pc.poly))
		for k, p := range pc.poly {
			idx[k] = vs.add(Vec3{p[0], p[1], eave + scale*math.Max(0, f.At(p))})
		}
		for k := 1; k+1 < len(idx); k++ {
			m.AddFace(idx[0], idx[k], idx[k+1])
		}
	}

	// close the gap between the eave and the roof along the outline
	m.BeginSurface(SurfaceWall)
	for _, p := range polys {
		rings := append([]orb.Ring{p.Outer}, p.Holes...)
		for _, r := range rings {
			for i := range r {
				addRoofWall(m, facets, scale, r[i], r[(i+1)%len(r)], eave)
			}
		}
	}
}

func addRoofWall(m *Mesh, facets []Facet, scale float64, p, q orb.Point, eave float64) {
	ts := edgeBreaks(facets, p, q)
	hs := make([]float64, len(ts))
	pts := make([]orb.Point, len(ts))
	tall := false
	for k, t := range ts {
		pts[k] = orb.Point{p[0] + t*(q[0]-p[0]), p[1] + t*(q[1]-p[1])}
		hs[k] = scale * field(facets, pts[k])
		if hs[k] > 1e-6 {
			tall = true
		}
	}
	if !tall {
		return
	}
	for k := 0; k+1 < len(ts); k++ {
		b0 := m.AddVertex(Vec3{pts[k][0], pts[k][1], eave})
		b1 := m.AddVertex(Vec3{pts[k+1][0], pts[k+1][1], eave})
		t1 := m.AddVertex(Vec3{pts[k+1][0], pts[k+1][1], eave + hs[k+1]})
		t0 := m.AddVertex(Vec3{pts[k][0], pts[k][1], eave + hs[k]})
		m.AddFace(b0, b1, t1)
		m.AddFace(b0, t1, t0)
	}
}

// vertexSet shares roof vertices between neighbouring pieces
type vertexSet struct {
	m    *Mesh
	seen map[[3]int64]int
}

func newVertexSet(m *Mesh) *vertexSet {
	return &vertexSet{m: m, seen: make(map[[3]int64]int)}
}

func (s *vertexSet) add(v Vec3) int {
	key := [3]int64{
		int64(math.Round(v[0] * 1e6)),
		int64(math.Round(v[1] * 1e6)),
		int64(math.Round(v[2] * 1e6)),
	}
	if i, ok := s.seen[key]; ok {
		return i
	}
	i := s.m.AddVertex(v)
	s.seen[key] = i
	return i
}
