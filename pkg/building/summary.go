package building

import (
	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/coords"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
)

// Summary is the JSON description of a reconstructed building
type Summary struct {
	Ref        string                `json:"ref"`
	Name       string                `json:"name,omitempty"`
	Center     geo.Location          `json:"center"`
	MGRS       string                `json:"mgrs,omitempty"`
	Area       float64               `json:"footprint_area_m2"`
	OuterRings int                   `json:"outer_rings"`
	InnerRings int                   `json:"inner_rings"`
	Attributes attributes.Attributes `json:"attributes"`
	Top        float64               `json:"top_m"`
	Parts      []string              `json:"parts,omitempty"`
	Neighbors  []string              `json:"neighbors,omitempty"`
	Vertices   int                   `json:"vertices"`
	Faces      int                   `json:"faces"`
}

// Summary describes the building. The MGRS reference is left empty when
// the centre cannot be converted.
func (b *Building) Summary() Summary {
	s := Summary{
		Ref:        b.ref.String(),
		Name:       b.Name(),
		Center:     b.center,
		Area:       b.footprint.Area(),
		OuterRings: len(b.footprint.Outer),
		InnerRings: len(b.footprint.Inner),
		Attributes: b.attrs,
		Top:        b.attrs.Top(),
		Vertices:   len(b.mesh.Vertices),
		Faces:      len(b.mesh.Faces),
	}
	if ref, err := coords.ToMGRS(b.center, coords.DefaultPrecision); err == nil {
		s.MGRS = ref
	}
	for _, p := range b.parts {
		s.Parts = append(s.Parts, p.Ref.String())
	}
	for _, n := range b.neighbors {
		s.Neighbors = append(s.Neighbors, n.String())
	}
	return s
}
