// Package mesh synthesizes triangle meshes of buildings from footprints and
// resolved attributes.
package mesh

import (
	"math"
)

// Vec3 is a point or direction in the local frame: x east, y north, z up, in metres
type Vec3 [3]float64

// Sub returns v-w
func (v Vec3) Sub(w Vec3) Vec3 { return Vec3{v[0] - w[0], v[1] - w[1], v[2] - w[2]} }

// Cross returns the cross product v×w
func (v Vec3) Cross(w Vec3) Vec3 {
	return Vec3{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Dot returns the dot product
func (v Vec3) Dot(w Vec3) float64 { return v[0]*w[0] + v[1]*w[1] + v[2]*w[2] }

// Len returns the Euclidean length
func (v Vec3) Len() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length; the zero vector is returned unchanged
func (v Vec3) Normalize() Vec3 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec3{v[0] / l, v[1] / l, v[2] / l}
}

// SurfaceKind classifies faces for rendering
type SurfaceKind string

const (
	SurfaceWall  SurfaceKind = "wall"
	SurfaceRoof  SurfaceKind = "roof"
	SurfaceFloor SurfaceKind = "floor"
)

// Surface is a run of consecutive faces of one kind
type Surface struct {
	Kind  SurfaceKind `json:"kind"`
	First int         `json:"first"`
	Count int         `json:"count"`
}

// Mesh is an indexed triangle mesh with one normal per face. Faces wind
// counter-clockwise when seen from outside the solid.
type Mesh struct {
	Vertices []Vec3    `json:"vertices"`
	Faces    [][3]int  `json:"faces"`
	Normals  []Vec3    `json:"normals"`
	Surfaces []Surface `json:"surfaces"`
}

// minFaceArea drops slivers below a square millimetre
const minFaceArea = 1e-6

// AddVertex appends a vertex and returns its index
func (m *Mesh) AddVertex(v Vec3) int {
	m.Vertices = append(m.Vertices, v)
	return len(m.Vertices) - 1
}

// AddFace appends the triangle a, b, c to the current surface. Triangles
// with negligible area are skipped and reported as false.
func (m *Mesh) AddFace(a, b, c int) bool {
	n := m.Vertices[b].Sub(m.Vertices[a]).Cross(m.Vertices[c].Sub(m.Vertices[a]))
	if n.Len()/2 < minFaceArea {
		return false
	}
	m.Faces = append(m.Faces, [3]int{a, b, c})
	m.Normals = append(m.Normals, n.Normalize())
	if len(m.Surfaces) > 0 {
		m.Surfaces[len(m.Surfaces)-1].Count++
	}
	return true
}

// BeginSurface starts a new run of faces of the given kind
func (m *Mesh) BeginSurface(kind SurfaceKind) {
	if k := len(m.Surfaces); k > 0 && m.Surfaces[k-1].Count == 0 {
		m.Surfaces = m.Surfaces[:k-1]
	}
	m.Surfaces = append(m.Surfaces, Surface{Kind: kind, First: len(m.Faces)})
}

// compact drops a trailing empty surface
func (m *Mesh) compact() {
	if k := len(m.Surfaces); k > 0 && m.Surfaces[k-1].Count == 0 {
		m.Surfaces = m.Surfaces[:k-1]
	}
}

// FacesOf returns the indices of all faces of the given kind
func (m *Mesh) FacesOf(kind SurfaceKind) []int {
	var out []int
	for _, s := range m.Surfaces {
		if s.Kind != kind {
			continue
		}
		for i := s.First; i < s.First+s.Count; i++ {
			out = append(out, i)
		}
	}
	return out
}

// FaceArea returns the area of face i
func (m *Mesh) FaceArea(i int) float64 {
	f := m.Faces[i]
	a, b, c := m.Vertices[f[0]], m.Vertices[f[1]], m.Vertices[f[2]]
	return b.Sub(a).Cross(c.Sub(a)).Len() / 2
}

// SurfaceArea returns the total area of faces of the given kind
func (m *Mesh) SurfaceArea(kind SurfaceKind) float64 {
	var a float64
	for _, i := range m.FacesOf(kind) {
		a += m.FaceArea(i)
	}
	return a
}

// Bounds returns the axis aligned bounds of the vertices
func (m *Mesh) Bounds() (lo, hi Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	lo, hi = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], v[k])
			hi[k] = math.Max(hi[k], v[k])
		}
	}
	return lo, hi
}

// Merge concatenates meshes into a new mesh
func Merge(meshes ...*Mesh) *Mesh {
	out := &Mesh{}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		vOff, fOff := len(out.Vertices), len(out.Faces)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			out.Faces = append(out.Faces, [3]int{f[0] + vOff, f[1] + vOff, f[2] + vOff})
		}
		out.Normals = append(out.Normals, m.Normals...)
		for _, s := range m.Surfaces {
			s.First += fOff
			out.Surfaces = append(out.Surfaces, s)
		}
	}
	return out
}
