package mesh

import (
	"bufio"
	"fmt"
	"io"
)

// WriteOBJ writes the mesh as Wavefront OBJ with one group per surface.
// Coordinates are written as stored, z up.
func (m *Mesh) WriteOBJ(w io.Writer, name string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# osmbuildings: %d vertices, %d faces\n", len(m.Vertices), len(m.Faces))
	if name != "" {
		fmt.Fprintf(bw, "o %s\n", name)
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %.4f %.4f %.4f\n", v[0], v[1], v[2])
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn %.4f %.4f %.4f\n", n[0], n[1], n[2])
	}
	for _, s := range m.Surfaces {
		fmt.Fprintf(bw, "g %s\n", s.Kind)
		for i := s.First; i < s.First+s.Count; i++ {
			f := m.Faces[i]
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n", f[0]+1, i+1, f[1]+1, i+1, f[2]+1, i+1)
		}
	}
	return bw.Flush()
}
