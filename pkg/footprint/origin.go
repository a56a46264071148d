package footprint

import (
	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/store"
)

// OutlineNodeIDs returns the distinct nodes of the outer outline of ref,
// in first-seen order
func OutlineNodeIDs(st *store.Store, ref osm.ElementRef) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(w *gosm.Way) {
		for _, wn := range w.Nodes {
			if id := int64(wn.ID); !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	visited := make(map[osm.ElementRef]bool)
	var walk func(ref osm.ElementRef, depth int) error
	walk = func(ref osm.ElementRef, depth int) error {
		if visited[ref] || depth > MaxRelationDepth {
			return nil
		}
		visited[ref] = true

		switch ref.Kind {
		case osm.KindWay:
			w, ok := st.Way(ref.ID)
			if !ok {
				return core.NewError(core.ErrUnresolvedReference, "way is not loaded").WithElement(ref)
			}
			add(w)
			return nil
		case osm.KindRelation:
			rel, ok := st.Relation(ref.ID)
			if !ok {
				return core.NewError(core.ErrUnresolvedReference, "relation is not loaded").WithElement(ref)
			}
			if rel.Tags.Find("type") == "building" {
				if outline, ok := outlineMember(rel); ok {
					return walk(outline, depth+1)
				}
			}
			for _, m := range rel.Members {
				if m.Type != gosm.TypeWay || (m.Role != "outer" && m.Role != "") {
					continue
				}
				if w, ok := st.Way(m.Ref); ok {
					add(w)
				}
			}
			return nil
		}
		return core.Errorf(core.ErrInvalidInput, "%s cannot have an outline", ref.Kind).WithElement(ref)
	}

	if err := walk(ref, 0); err != nil {
		return nil, err
	}
	return ids, nil
}

// Origin returns the mean position of the outline nodes of ref, the
// origin of the local frame shared by a building and its parts
func Origin(st *store.Store, ref osm.ElementRef) (geo.Location, error) {
	ids, err := OutlineNodeIDs(st, ref)
	if err != nil {
		return geo.Location{}, err
	}

	var lat, lon float64
	n := 0
	for _, id := range ids {
		node, ok := st.Node(id)
		if !ok {
			return geo.Location{}, core.Errorf(core.ErrUnresolvedReference, "node %d is not loaded", id).WithElement(ref)
		}
		lat += node.Lat
		lon += node.Lon
		n++
	}
	if n == 0 {
		return geo.Location{}, core.NewError(core.ErrDegenerateFootprint, "outline has no nodes").WithElement(ref)
	}
	return geo.Location{Latitude: lat / float64(n), Longitude: lon / float64(n)}, nil
}
