package mesh

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/osm/osmtest"
	"github.com/NERVsystems/osmbuildings/pkg/store"
)

func rect(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func box(w, d float64) *footprint.RingSet {
	return &footprint.RingSet{Outer: []orb.Ring{rect(0, 0, w, d)}}
}

func courtyard() *footprint.RingSet {
	inner := rect(8, 8, 12, 12)
	inner.Reverse()
	return &footprint.RingSet{Outer: []orb.Ring{rect(0, 0, 20, 20)}, Inner: []orb.Ring{inner}}
}

func fixture(t *testing.T) *footprint.RingSet {
	t.Helper()
	doc, err := store.Decode(strings.NewReader(osmtest.Way201181659))
	if err != nil {
		t.Fatal(err)
	}
	st := store.FromOSM(doc)
	ref := osm.WayRef(201181659)
	origin, err := footprint.Origin(st, ref)
	if err != nil {
		t.Fatal(err)
	}
	rs, err := footprint.Extract(st, ref, geo.NewProjection(origin))
	if err != nil {
		t.Fatal(err)
	}
	return rs
}

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

// projectedArea is the signed area of the faces seen from above
func projectedArea(m *Mesh, kind SurfaceKind) float64 {
	var a float64
	for _, i := range m.FacesOf(kind) {
		f := m.Faces[i]
		p, q, r := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		a += ((q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])) / 2
	}
	return a
}

func TestWallsVertexCount(t *testing.T) {
	tests := []struct {
		name  string
		rs    *footprint.RingSet
		verts int
	}{
		{"box", box(10, 6), 8},
		{"courtyard", courtyard(), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Walls(tt.rs, 0, 9)
			if len(m.Vertices) != tt.verts {
				t.Errorf("vertices = %d, want %d", len(m.Vertices), tt.verts)
			}
			if len(m.Faces) != tt.verts {
				t.Errorf("faces = %d, want %d", len(m.Faces), tt.verts)
			}
		})
	}
}

func TestWallNormals(t *testing.T) {
	m := Walls(courtyard(), 0, 3)
	center := Vec3{10, 10, 1.5}
	for i, f := range m.Faces {
		a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
		mid := Vec3{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3, 1.5}
		out := mid.Sub(center)
		n := m.Normals[i]
		if math.Abs(n[2]) > 1e-9 {
			t.Errorf("face %d normal %v not horizontal", i, n)
		}
		// outer wall faces point away from the courtyard, inner ones into it
		onInner := math.Abs(out[0]) <= 2+1e-9 && math.Abs(out[1]) <= 2+1e-9
		if d := n.Dot(out); (d > 0) == onInner {
			t.Errorf("face %d normal %v wrong side (inner=%v)", i, n, onInner)
		}
	}
}

func TestSynthesizeFlatBox(t *testing.T) {
	attrs := attributes.Attributes{Height: 9, Levels: 3, Roof: attributes.Roof{Shape: attributes.RoofFlat}}
	m, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	lo, hi := m.Bounds()
	if lo != (Vec3{0, 0, 0}) || hi != (Vec3{10, 6, 9}) {
		t.Errorf("bounds = %v..%v, want (0,0,0)..(10,6,9)", lo, hi)
	}
	if a := m.SurfaceArea(SurfaceWall); !near(a, 2*(10+6)*9, 1e-9) {
		t.Errorf("wall area = %v", a)
	}
	if a := m.SurfaceArea(SurfaceFloor); !near(a, 60, 1e-9) {
		t.Errorf("floor area = %v", a)
	}
	if a := projectedArea(m, SurfaceRoof); !near(a, 60, 1e-9) {
		t.Errorf("roof area = %v", a)
	}
	for _, i := range m.FacesOf(SurfaceFloor) {
		if m.Normals[i][2] > -1+1e-9 {
			t.Errorf("floor face %d normal %v should face down", i, m.Normals[i])
		}
	}
	for _, i := range m.FacesOf(SurfaceRoof) {
		if m.Normals[i][2] < 1-1e-9 {
			t.Errorf("roof face %d normal %v should face up", i, m.Normals[i])
		}
	}
}

func TestSynthesizeCourtyard(t *testing.T) {
	attrs := attributes.Attributes{Height: 6, Roof: attributes.Roof{Shape: attributes.RoofFlat}}
	m, err := Synthesize(courtyard(), attrs)
	if err != nil {
		t.Fatal(err)
	}
	if a := m.SurfaceArea(SurfaceFloor); !near(a, 400-16, 1e-6) {
		t.Errorf("floor area = %v, want 384", a)
	}
	if a := projectedArea(m, SurfaceRoof); !near(a, 384, 1e-6) {
		t.Errorf("roof area = %v, want 384", a)
	}
	if a := m.SurfaceArea(SurfaceWall); !near(a, (80+16)*6, 1e-6) {
		t.Errorf("wall area = %v", a)
	}
}

func TestSynthesizeZeroHeightWalls(t *testing.T) {
	attrs := attributes.Attributes{Height: 0, Roof: attributes.Roof{Shape: attributes.RoofGabled, Height: 2}}
	m, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	// only the two gable triangles
	if a := m.SurfaceArea(SurfaceWall); !near(a, 12, 1e-6) {
		t.Errorf("wall area = %v, want 12", a)
	}
}

func TestGabledRoof(t *testing.T) {
	attrs := attributes.Attributes{Height: 3, Roof: attributes.Roof{Shape: attributes.RoofGabled, Height: 2}}
	m, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	_, hi := m.Bounds()
	if !near(hi[2], 5, 1e-9) {
		t.Errorf("ridge at %v, want 5", hi[2])
	}
	if a := m.SurfaceArea(SurfaceRoof); !near(a, 20*math.Sqrt(13), 1e-6) {
		t.Errorf("roof area = %v, want %v", a, 20*math.Sqrt(13))
	}
	// side walls plus two gable ends of 6 m² each
	if a := m.SurfaceArea(SurfaceWall); !near(a, 96+12, 1e-6) {
		t.Errorf("wall area = %v, want 108", a)
	}
	if n := distinctNormals(m, SurfaceRoof); n != 2 {
		t.Errorf("roof has %d planes, want 2", n)
	}
	for _, i := range m.FacesOf(SurfaceRoof) {
		v := m.Vertices[m.Faces[i][0]]
		if v[0] < 0 || v[0] > 10 {
			t.Errorf("roof vertex %v outside footprint", v)
		}
	}
}

func TestHippedRoofHasNoGables(t *testing.T) {
	attrs := attributes.Attributes{Height: 3, Roof: attributes.Roof{Shape: attributes.RoofHipped, Height: 2}}
	m, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	if a := m.SurfaceArea(SurfaceWall); !near(a, 96, 1e-6) {
		t.Errorf("wall area = %v, want 96", a)
	}
	if n := distinctNormals(m, SurfaceRoof); n != 4 {
		t.Errorf("roof has %d planes, want 4", n)
	}
	_, hi := m.Bounds()
	if !near(hi[2], 5, 1e-9) {
		t.Errorf("ridge at %v, want 5", hi[2])
	}
}

func TestPyramidalRoof(t *testing.T) {
	attrs := attributes.Attributes{Height: 3, Roof: attributes.Roof{Shape: attributes.RoofPyramidal, Height: 4}}
	m, err := Synthesize(box(10, 10), attrs)
	if err != nil {
		t.Fatal(err)
	}
	if n := distinctNormals(m, SurfaceRoof); n != 4 {
		t.Errorf("roof has %d planes, want 4", n)
	}
	var apex Vec3
	for _, v := range m.Vertices {
		if v[2] > apex[2] {
			apex = v
		}
	}
	if !near(apex[0], 5, 1e-6) || !near(apex[1], 5, 1e-6) || !near(apex[2], 7, 1e-9) {
		t.Errorf("apex = %v, want (5,5,7)", apex)
	}
}

func TestRoofShapesCoverFootprint(t *testing.T) {
	shapes := []struct {
		name string
		rs   func(t *testing.T) *footprint.RingSet
	}{
		{"box", func(*testing.T) *footprint.RingSet { return box(10, 6) }},
		{"courtyard", func(*testing.T) *footprint.RingSet { return courtyard() }},
		{"fixture", fixture},
	}
	for _, s := range shapes {
		for _, shape := range attributes.RoofShapes {
			t.Run(s.name+" "+string(shape), func(t *testing.T) {
				rs := s.rs(t)
				attrs := attributes.Attributes{Height: 6, Roof: attributes.Roof{Shape: shape, Height: 3}}
				if shape == attributes.RoofFlat {
					attrs.Roof.Height = 0
				}
				m, err := Synthesize(rs, attrs)
				if err != nil {
					t.Fatal(err)
				}
				if a := projectedArea(m, SurfaceRoof); !near(a, rs.Area(), 1e-3*rs.Area()) {
					t.Errorf("roof covers %.3f m², footprint is %.3f m²", a, rs.Area())
				}
				_, hi := m.Bounds()
				if !near(hi[2], 6+attrs.Roof.Height, 1e-6) {
					t.Errorf("top at %v, want %v", hi[2], 6+attrs.Roof.Height)
				}
				for _, i := range m.FacesOf(SurfaceRoof) {
					if m.Normals[i][2] <= 0 {
						t.Fatalf("roof face %d faces down: %v", i, m.Normals[i])
					}
					for _, vi := range m.Faces[i] {
						if z := m.Vertices[vi][2]; z < 6-1e-9 {
							t.Fatalf("roof vertex below eave: %v", m.Vertices[vi])
						}
					}
				}
			})
		}
	}
}

// The concave 29 point footprint of way 201181659 once produced a skillion
// roof made of crossing triangles.
func TestSkillionConcaveFootprint(t *testing.T) {
	rs := fixture(t)
	attrs := attributes.Attributes{Height: 6, Roof: attributes.Roof{Shape: attributes.RoofSkillion, Height: 3}}
	m, err := Synthesize(rs, attrs)
	if err != nil {
		t.Fatal(err)
	}

	roof := m.FacesOf(SurfaceRoof)
	if len(roof) == 0 {
		t.Fatal("no roof faces")
	}
	if n := distinctNormals(m, SurfaceRoof); n != 1 {
		t.Errorf("skillion has %d planes, want 1", n)
	}

	fr := rs.PrincipalFrame()
	for _, i := range roof {
		for _, vi := range m.Faces[i] {
			v := m.Vertices[vi]
			local := fr.ToLocal(orb.Point{v[0], v[1]})
			want := 6 + 3*(local[1]-fr.Min[1])/fr.Width()
			if !near(v[2], want, 1e-6) {
				t.Fatalf("vertex %v at height %v, want %v", v, v[2], want)
			}
		}
	}

	tris := make([][3]orb.Point, len(roof))
	for k, i := range roof {
		f := m.Faces[i]
		for j := 0; j < 3; j++ {
			v := m.Vertices[f[j]]
			tris[k][j] = orb.Point{v[0], v[1]}
		}
	}
	for a := range tris {
		for b := a + 1; b < len(tris); b++ {
			if trianglesOverlap(tris[a], tris[b]) {
				t.Errorf("roof triangles %d and %d overlap: %v %v", a, b, tris[a], tris[b])
			}
		}
	}
	if a := projectedArea(m, SurfaceRoof); !near(a, rs.Area(), 1e-6*rs.Area()) {
		t.Errorf("roof covers %.3f m², footprint is %.3f m²", a, rs.Area())
	}
}

func TestTriangulate(t *testing.T) {
	lshape := orb.Ring{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}}
	hole := rect(4, 4, 6, 6)
	hole.Reverse()
	hole2 := rect(1, 1, 2, 2)
	hole2.Reverse()

	tests := []struct {
		name  string
		outer orb.Ring
		holes []orb.Ring
		area  float64
		tris  int
	}{
		{"triangle", orb.Ring{{0, 0}, {4, 0}, {0, 3}}, nil, 6, 1},
		{"square", rect(0, 0, 10, 10), nil, 100, 2},
		{"concave", lshape, nil, 64, 4},
		{"collinear", orb.Ring{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}}, nil, 100, 3},
		{"hole", rect(0, 0, 10, 10), []orb.Ring{hole}, 96, 8},
		{"two holes", rect(0, 0, 10, 10), []orb.Ring{hole, hole2}, 95, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts, tris, err := Triangulate(tt.outer, tt.holes)
			if err != nil {
				t.Fatal(err)
			}
			var a float64
			for _, tri := range tris {
				c := cross(pts[tri[0]], pts[tri[1]], pts[tri[2]])
				if c <= 0 {
					t.Errorf("triangle %v is not counter-clockwise", tri)
				}
				a += c / 2
			}
			if !near(a, tt.area, 1e-9) {
				t.Errorf("area = %v, want %v", a, tt.area)
			}
			if len(tris) > tt.tris {
				t.Errorf("got %d triangles, want at most %d", len(tris), tt.tris)
			}
		})
	}
}

func TestTriangulateUnmeshable(t *testing.T) {
	tests := []struct {
		name  string
		outer orb.Ring
		holes []orb.Ring
	}{
		{"bow tie", orb.Ring{{0, 0}, {10, 10}, {10, 0}, {0, 10}}, nil},
		{"two points", orb.Ring{{0, 0}, {1, 1}}, nil},
		{"hole crossing outer", rect(0, 0, 10, 10), []orb.Ring{{{8, 8}, {8, 12}, {12, 12}, {12, 8}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Triangulate(tt.outer, tt.holes)
			if !core.HasCode(err, core.ErrUnmeshableFootprint) {
				t.Fatalf("err = %v, want %s", err, core.ErrUnmeshableFootprint)
			}
		})
	}

	rs := &footprint.RingSet{Outer: []orb.Ring{{{0, 0}, {10, 10}, {10, 0}, {0, 10}}}}
	if _, err := Synthesize(rs, attributes.Attributes{Height: 3}); !core.HasCode(err, core.ErrUnmeshableFootprint) {
		t.Errorf("Synthesize err = %v", err)
	}
	if _, err := Synthesize(&footprint.RingSet{}, attributes.Attributes{Height: 3}); !core.HasCode(err, core.ErrUnmeshableFootprint) {
		t.Errorf("Synthesize empty err = %v", err)
	}
}

func TestMerge(t *testing.T) {
	attrs := attributes.Attributes{Height: 3}
	a, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Synthesize(&footprint.RingSet{Outer: []orb.Ring{rect(20, 0, 24, 4)}}, attrs)
	if err != nil {
		t.Fatal(err)
	}
	m := Merge(a, nil, b)
	if len(m.Vertices) != len(a.Vertices)+len(b.Vertices) {
		t.Errorf("vertices = %d", len(m.Vertices))
	}
	if len(m.Faces) != len(a.Faces)+len(b.Faces) || len(m.Normals) != len(m.Faces) {
		t.Errorf("faces = %d, normals = %d", len(m.Faces), len(m.Normals))
	}
	if len(m.Surfaces) != len(a.Surfaces)+len(b.Surfaces) {
		t.Errorf("surfaces = %d", len(m.Surfaces))
	}
	last := m.Surfaces[len(m.Surfaces)-1]
	if last.First+last.Count != len(m.Faces) {
		t.Errorf("last surface %+v does not end at face %d", last, len(m.Faces))
	}
	lo, hi := m.Bounds()
	if lo != (Vec3{0, 0, 0}) || hi != (Vec3{24, 6, 3}) {
		t.Errorf("bounds = %v..%v", lo, hi)
	}
}

func TestWriteOBJ(t *testing.T) {
	attrs := attributes.Attributes{Height: 3, Roof: attributes.Roof{Shape: attributes.RoofGabled, Height: 1}}
	m, err := Synthesize(box(10, 6), attrs)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := m.WriteOBJ(&buf, "way_1"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"o way_1\n", "g wall\n", "g floor\n", "g roof\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	var v, vn, f int
	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.HasPrefix(line, "v "):
			v++
		case strings.HasPrefix(line, "vn "):
			vn++
		case strings.HasPrefix(line, "f "):
			f++
		}
	}
	if v != len(m.Vertices) || vn != len(m.Normals) || f != len(m.Faces) {
		t.Errorf("wrote %d v, %d vn, %d f; mesh has %d, %d, %d", v, vn, f, len(m.Vertices), len(m.Normals), len(m.Faces))
	}
}

func distinctNormals(m *Mesh, kind SurfaceKind) int {
	var seen []Vec3
	for _, i := range m.FacesOf(kind) {
		n := m.Normals[i]
		dup := false
		for _, s := range seen {
			if n.Dot(s) > 1-1e-9 {
				dup = true
				break
			}
		}
		if !dup {
			seen = append(seen, n)
		}
	}
	return len(seen)
}

// trianglesOverlap reports whether two triangles share interior area,
// using edge normals as separating axes
func trianglesOverlap(a, b [3]orb.Point) bool {
	for _, tri := range [][3]orb.Point{a, b} {
		for i := 0; i < 3; i++ {
			p, q := tri[i], tri[(i+1)%3]
			axis := orb.Point{q[1] - p[1], p[0] - q[0]}
			amin, amax := project(a, axis)
			bmin, bmax := project(b, axis)
			tol := 1e-7 * math.Hypot(axis[0], axis[1])
			if amax <= bmin+tol || bmax <= amin+tol {
				return false
			}
		}
	}
	return true
}

func project(tri [3]orb.Point, axis orb.Point) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, p := range tri {
		d := p[0]*axis[0] + p[1]*axis[1]
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	return lo, hi
}
