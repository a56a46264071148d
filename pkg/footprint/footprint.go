// Package footprint turns ways and multipolygon relations into planar rings.
package footprint

import (
	"log/slog"

	"github.com/paulmach/orb"
	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/store"
)

// MaxRelationDepth bounds how far building relations are followed to their outline
const MaxRelationDepth = 2

// Extractor builds footprints from the elements of a store
type Extractor struct {
	st     *store.Store
	proj   geo.Projection
	logger *slog.Logger
}

// NewExtractor creates an extractor projecting with proj. A nil logger
// selects slog.Default().
func NewExtractor(st *store.Store, proj geo.Projection, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{st: st, proj: proj, logger: logger.With("component", "footprint")}
}

// Extract returns the footprint of ref
func Extract(st *store.Store, ref osm.ElementRef, proj geo.Projection) (*RingSet, error) {
	return NewExtractor(st, proj, nil).Extract(ref)
}

// Extract returns the footprint of ref. Inner rings that lie in no outer
// ring are dropped.
func (e *Extractor) Extract(ref osm.ElementRef) (*RingSet, error) {
	rs, err := e.extract(ref, 0, make(map[osm.ElementRef]bool))
	if err != nil {
		return nil, err
	}

	inner := rs.Inner[:0]
	for _, r := range rs.Inner {
		if containingOuter(rs.Outer, r) < 0 {
			e.logger.Warn("dropping inner ring outside every outer ring", "element", ref.String())
			continue
		}
		inner = append(inner, r)
	}
	rs.Inner = inner
	return rs, nil
}

func (e *Extractor) extract(ref osm.ElementRef, depth int, visited map[osm.ElementRef]bool) (*RingSet, error) {
	if visited[ref] {
		return nil, core.NewError(core.ErrUnresolvedReference, "relation refers to itself").WithElement(ref)
	}
	if depth > MaxRelationDepth {
		return nil, core.Errorf(core.ErrUnresolvedReference, "outline nested deeper than %d relations", MaxRelationDepth).WithElement(ref)
	}
	visited[ref] = true

	switch ref.Kind {
	case osm.KindWay:
		w, ok := e.st.Way(ref.ID)
		if !ok {
			return nil, core.NewError(core.ErrUnresolvedReference, "way is not loaded").WithElement(ref)
		}
		ring, err := e.wayRing(w)
		if err != nil {
			return nil, err
		}
		return &RingSet{Outer: []orb.Ring{orient(ring, true)}}, nil

	case osm.KindRelation:
		rel, ok := e.st.Relation(ref.ID)
		if !ok {
			return nil, core.NewError(core.ErrUnresolvedReference, "relation is not loaded").WithElement(ref)
		}
		if rel.Tags.Find("type") == "building" {
			if outline, ok := outlineMember(rel); ok {
				return e.extract(outline, depth+1, visited)
			}
			e.logger.Debug("building relation without outline, using outer members", "element", ref.String())
		}
		return e.multipolygon(rel)
	}

	return nil, core.Errorf(core.ErrInvalidInput, "%s cannot have a footprint", ref.Kind).WithElement(ref)
}

// outlineMember returns the first member with role outline
func outlineMember(rel *gosm.Relation) (osm.ElementRef, bool) {
	for _, m := range rel.Members {
		if m.Role == "outline" && (m.Type == gosm.TypeWay || m.Type == gosm.TypeRelation) {
			return osm.ElementRef{Kind: m.Type, ID: m.Ref}, true
		}
	}
	return osm.ElementRef{}, false
}

// wayRing converts a single way to a ring, closing it if needed
func (e *Extractor) wayRing(w *gosm.Way) (orb.Ring, error) {
	ref := osm.WayRef(int64(w.ID))
	nodes, err := e.st.WayNodes(w)
	if err != nil {
		return nil, err
	}
	if len(nodes) > 1 && nodes[0].ID != nodes[len(nodes)-1].ID {
		e.logger.Debug("closing open way", "element", ref.String())
	}
	return e.ring(nodes, ref)
}

// ring projects nodes into an implicitly closed ring
func (e *Extractor) ring(nodes []*gosm.Node, owner osm.ElementRef) (orb.Ring, error) {
	ring := make(orb.Ring, 0, len(nodes))
	for _, n := range nodes {
		pt := e.proj.Forward(n.Lat, n.Lon)
		if len(ring) > 0 && ring[len(ring)-1] == pt {
			continue
		}
		ring = append(ring, pt)
	}
	for len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}

	if len(ring) < 3 {
		return nil, core.Errorf(core.ErrDegenerateFootprint, "ring has %d distinct points", len(ring)).WithElement(owner)
	}
	if ring.Orientation() == 0 {
		return nil, core.NewError(core.ErrDegenerateFootprint, "ring has no area").WithElement(owner)
	}
	return ring, nil
}

// multipolygon assembles the outer and inner rings of rel
func (e *Extractor) multipolygon(rel *gosm.Relation) (*RingSet, error) {
	ref := osm.RelationRef(int64(rel.ID))
	logger := e.logger.With("element", ref.String())

	var outerSeqs, innerSeqs [][]int64
	for _, m := range rel.Members {
		if m.Type != gosm.TypeWay {
			continue
		}
		var target *[][]int64
		switch m.Role {
		case "outer", "":
			target = &outerSeqs
		case "inner":
			target = &innerSeqs
		default:
			continue
		}

		w, ok := e.st.Way(m.Ref)
		if !ok {
			return nil, core.Errorf(core.ErrUnresolvedReference, "member way %d is not loaded", m.Ref).WithElement(ref)
		}
		if _, err := e.st.WayNodes(w); err != nil {
			return nil, err
		}
		seq := make([]int64, len(w.Nodes))
		for i, wn := range w.Nodes {
			seq[i] = int64(wn.ID)
		}
		*target = append(*target, seq)
	}

	if len(outerSeqs) == 0 {
		return nil, core.NewError(core.ErrIncompleteRing, "relation has no outer ring").WithElement(ref)
	}

	closedOuter, openOuter := AssembleRings(outerSeqs)
	if len(openOuter) > 0 {
		return nil, core.Errorf(core.ErrIncompleteRing, "%d outer chain(s) do not close", len(openOuter)).
			WithElement(ref).
			WithGuidance("The outer ways must form closed rings")
	}

	rs := &RingSet{}
	for _, seq := range closedOuter {
		ring, err := e.ring(e.nodes(seq), ref)
		if err != nil {
			return nil, err
		}
		rs.Outer = append(rs.Outer, orient(ring, true))
	}

	closedInner, openInner := AssembleRings(innerSeqs)
	if len(openInner) > 0 {
		logger.Warn("dropping inner chains that do not close", "count", len(openInner))
	}
	for _, seq := range closedInner {
		ring, err := e.ring(e.nodes(seq), ref)
		if err != nil {
			logger.Warn("dropping degenerate inner ring", "error", err)
			continue
		}
		rs.Inner = append(rs.Inner, orient(ring, false))
	}

	return rs, nil
}

// nodes looks up ids already checked by WayNodes
func (e *Extractor) nodes(ids []int64) []*gosm.Node {
	out := make([]*gosm.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := e.st.Node(id); ok {
			out = append(out, n)
		}
	}
	return out
}
