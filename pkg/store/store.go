// Package store holds the map elements fetched for one building resolution.
package store

import (
	"io"
	"sort"

	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

// Store is an id-keyed collection of nodes, ways and relations. When the
// same element is merged twice the higher version wins; on equal versions
// the later merge wins.
//
// A Store is not safe for concurrent mutation. It is filled by one
// resolution and read-only afterwards.
type Store struct {
	nodes     map[gosm.NodeID]*gosm.Node
	ways      map[gosm.WayID]*gosm.Way
	relations map[gosm.RelationID]*gosm.Relation
}

// New returns an empty store
func New() *Store {
	return &Store{
		nodes:     make(map[gosm.NodeID]*gosm.Node),
		ways:      make(map[gosm.WayID]*gosm.Way),
		relations: make(map[gosm.RelationID]*gosm.Relation),
	}
}

// Decode parses an OSM XML document
func Decode(r io.Reader) (*gosm.OSM, error) {
	return core.DecodeOSM(r)
}

// FromOSM returns a store holding the elements of doc
func FromOSM(docs ...*gosm.OSM) *Store {
	s := New()
	for _, doc := range docs {
		s.Merge(doc)
	}
	return s
}

// Merge inserts every element of doc
func (s *Store) Merge(doc *gosm.OSM) {
	if doc == nil {
		return
	}
	for _, n := range doc.Nodes {
		if old, ok := s.nodes[n.ID]; !ok || n.Version >= old.Version {
			s.nodes[n.ID] = n
		}
	}
	for _, w := range doc.Ways {
		if old, ok := s.ways[w.ID]; !ok || w.Version >= old.Version {
			s.ways[w.ID] = w
		}
	}
	for _, r := range doc.Relations {
		if old, ok := s.relations[r.ID]; !ok || r.Version >= old.Version {
			s.relations[r.ID] = r
		}
	}
}

// Node returns the node with the given id
func (s *Store) Node(id int64) (*gosm.Node, bool) {
	n, ok := s.nodes[gosm.NodeID(id)]
	return n, ok
}

// Way returns the way with the given id
func (s *Store) Way(id int64) (*gosm.Way, bool) {
	w, ok := s.ways[gosm.WayID(id)]
	return w, ok
}

// Relation returns the relation with the given id
func (s *Store) Relation(id int64) (*gosm.Relation, bool) {
	r, ok := s.relations[gosm.RelationID(id)]
	return r, ok
}

// Has reports whether the referenced element is present
func (s *Store) Has(ref osm.ElementRef) bool {
	switch ref.Kind {
	case osm.KindNode:
		_, ok := s.Node(ref.ID)
		return ok
	case osm.KindWay:
		_, ok := s.Way(ref.ID)
		return ok
	case osm.KindRelation:
		_, ok := s.Relation(ref.ID)
		return ok
	}
	return false
}

// Tags returns the tags of the referenced element, nil if absent
func (s *Store) Tags(ref osm.ElementRef) gosm.Tags {
	switch ref.Kind {
	case osm.KindNode:
		if n, ok := s.Node(ref.ID); ok {
			return n.Tags
		}
	case osm.KindWay:
		if w, ok := s.Way(ref.ID); ok {
			return w.Tags
		}
	case osm.KindRelation:
		if r, ok := s.Relation(ref.ID); ok {
			return r.Tags
		}
	}
	return nil
}

// NodeCount returns the number of nodes
func (s *Store) NodeCount() int { return len(s.nodes) }

// WayCount returns the number of ways
func (s *Store) WayCount() int { return len(s.ways) }

// RelationCount returns the number of relations
func (s *Store) RelationCount() int { return len(s.relations) }

// Ways returns all ways ordered by id
func (s *Store) Ways() []*gosm.Way {
	ways := make([]*gosm.Way, 0, len(s.ways))
	for _, w := range s.ways {
		ways = append(ways, w)
	}
	sort.Slice(ways, func(i, j int) bool { return ways[i].ID < ways[j].ID })
	return ways
}

// Relations returns all relations ordered by id
func (s *Store) Relations() []*gosm.Relation {
	rels := make([]*gosm.Relation, 0, len(s.relations))
	for _, r := range s.relations {
		rels = append(rels, r)
	}
	sort.Slice(rels, func(i, j int) bool { return rels[i].ID < rels[j].ID })
	return rels
}

// ParentRelations returns the relations having ref as a member, ordered by id
func (s *Store) ParentRelations(ref osm.ElementRef) []*gosm.Relation {
	var parents []*gosm.Relation
	for _, r := range s.Relations() {
		for _, m := range r.Members {
			if m.Type == ref.Kind && m.Ref == ref.ID {
				parents = append(parents, r)
				break
			}
		}
	}
	return parents
}

// WayNodes resolves the nodes of a way in order. A missing node is an
// UNRESOLVED_REFERENCE naming the way.
func (s *Store) WayNodes(w *gosm.Way) ([]*gosm.Node, error) {
	nodes := make([]*gosm.Node, 0, len(w.Nodes))
	for _, wn := range w.Nodes {
		n, ok := s.nodes[wn.ID]
		if !ok {
			return nil, core.Errorf(core.ErrUnresolvedReference, "node %d is not loaded", wn.ID).
				WithElement(osm.WayRef(int64(w.ID)))
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// NodeBounds returns the geographic bounds of the given nodes
func (s *Store) NodeBounds(ids []int64) (geo.BoundingBox, error) {
	bbox := geo.NewBoundingBox()
	for _, id := range ids {
		n, ok := s.Node(id)
		if !ok {
			return geo.BoundingBox{}, core.Errorf(core.ErrUnresolvedReference, "node %d is not loaded", id).
				WithElement(osm.ElementRef{Kind: osm.KindNode, ID: id})
		}
		bbox.ExtendWithPoint(n.Lat, n.Lon)
	}
	return *bbox, nil
}

// Bounds returns the geographic bounds of every node in the store
func (s *Store) Bounds() geo.BoundingBox {
	bbox := geo.NewBoundingBox()
	for _, n := range s.nodes {
		bbox.ExtendWithPoint(n.Lat, n.Lon)
	}
	return *bbox
}

// WaysSharingNodes returns the ways sharing a node with way id, ordered by
// id and excluding the way itself
func (s *Store) WaysSharingNodes(id int64) []*gosm.Way {
	w, ok := s.Way(id)
	if !ok {
		return nil
	}
	own := make(map[gosm.NodeID]struct{}, len(w.Nodes))
	for _, wn := range w.Nodes {
		own[wn.ID] = struct{}{}
	}

	var out []*gosm.Way
	for _, other := range s.Ways() {
		if other.ID == w.ID {
			continue
		}
		for _, wn := range other.Nodes {
			if _, shared := own[wn.ID]; shared {
				out = append(out, other)
				break
			}
		}
	}
	return out
}
