package building

import (
	"log/slog"
	"sort"

	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/store"
)

// isPart reports whether tags mark a building:part
func isPart(tags gosm.Tags) bool {
	v := tags.Find("building:part")
	return v != "" && v != "no"
}

// isBuilding reports whether tags mark a building
func isBuilding(tags gosm.Tags) bool {
	v := tags.Find("building")
	return v != "" && v != "no"
}

// findParts collects the building:part elements of ref: role=part members
// of a building relation, and tagged parts whose centroid lies inside the
// outline. Parts of parts are not followed. A role=part member that cannot
// be extracted fails the building; tagged candidates from the surrounding
// map that cannot be extracted are skipped.
func findParts(st *store.Store, ex *footprint.Extractor, ref osm.ElementRef, outline *footprint.RingSet, logger *slog.Logger) ([]Part, error) {
	seen := map[osm.ElementRef]bool{ref: true}
	var parts []Part

	add := func(pref osm.ElementRef, explicit bool) error {
		if seen[pref] {
			return nil
		}
		seen[pref] = true
		rs, err := ex.Extract(pref)
		if err != nil {
			if explicit {
				return err
			}
			logger.Debug("skipping unresolvable part candidate", "part", pref.String(), "error", err)
			return nil
		}
		if !explicit && !outline.Contains(rs.Centroid()) {
			return nil
		}
		parts = append(parts, Part{Ref: pref, Footprint: rs})
		return nil
	}

	if ref.Kind == osm.KindRelation {
		rel, _ := st.Relation(ref.ID)
		if rel.Tags.Find("type") == "building" {
			for _, m := range rel.Members {
				if m.Role == "part" && (m.Type == gosm.TypeWay || m.Type == gosm.TypeRelation) {
					if err := add(osm.ElementRef{Kind: m.Type, ID: m.Ref}, true); err != nil {
						return nil, err
					}
				}
			}
		}
		// the outline members themselves are never parts
		for _, m := range rel.Members {
			if m.Role != "part" {
				seen[osm.ElementRef{Kind: m.Type, ID: m.Ref}] = true
			}
		}
	}

	for _, w := range st.Ways() {
		if isPart(w.Tags) {
			_ = add(osm.WayRef(int64(w.ID)), false)
		}
	}
	for _, r := range st.Relations() {
		if isPart(r.Tags) && r.Tags.Find("type") == "multipolygon" {
			_ = add(osm.RelationRef(int64(r.ID)), false)
		}
	}

	sort.Slice(parts, func(i, j int) bool { return refLess(parts[i].Ref, parts[j].Ref) })
	return parts, nil
}

// neighbors returns the buildings sharing a node with the outline ways of ref
func neighbors(st *store.Store, ref osm.ElementRef) []osm.ElementRef {
	own := map[int64]bool{}
	var outline []int64
	switch ref.Kind {
	case osm.KindWay:
		own[ref.ID] = true
		outline = append(outline, ref.ID)
	case osm.KindRelation:
		rel, _ := st.Relation(ref.ID)
		for _, m := range rel.Members {
			if m.Type == gosm.TypeWay {
				own[m.Ref] = true
				if m.Role != "part" {
					outline = append(outline, m.Ref)
				}
			}
		}
	}

	found := map[osm.ElementRef]bool{}
	for _, id := range outline {
		for _, w := range st.WaysSharingNodes(id) {
			if own[int64(w.ID)] || !isBuilding(w.Tags) {
				continue
			}
			found[osm.WayRef(int64(w.ID))] = true
		}
	}

	out := make([]osm.ElementRef, 0, len(found))
	for r := range found {
		out = append(out, r)
	}
	sortRefs(out)
	return out
}
