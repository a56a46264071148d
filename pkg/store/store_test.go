package store

import (
	"strings"
	"testing"

	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/osm/osmtest"
)

func TestDecodeFixture(t *testing.T) {
	doc, err := Decode(strings.NewReader(osmtest.Way201181659))
	if err != nil {
		t.Fatal(err)
	}
	s := FromOSM(doc)

	if s.NodeCount() != 29 || s.WayCount() != 1 || s.RelationCount() != 0 {
		t.Fatalf("counts = %d/%d/%d", s.NodeCount(), s.WayCount(), s.RelationCount())
	}
	w, ok := s.Way(201181659)
	if !ok {
		t.Fatal("way 201181659 missing")
	}
	if len(w.Nodes) != 30 {
		t.Errorf("expected 30 node refs, got %d", len(w.Nodes))
	}
	if w.Version != 2 {
		t.Errorf("expected version 2, got %d", w.Version)
	}
	if !s.Has(osm.WayRef(201181659)) {
		t.Error("Has(way) = false")
	}
	if s.Tags(osm.WayRef(201181659)).Find("name") != "Country Foods" {
		t.Error("name tag not found")
	}
}

func TestDecodeInvalid(t *testing.T) {
	if _, err := Decode(strings.NewReader("<osm><node")); !core.HasCode(err, core.ErrParseError) {
		t.Fatalf("expected PARSE_ERROR, got %v", err)
	}
}

func TestMergeByVersion(t *testing.T) {
	older := &gosm.OSM{Nodes: gosm.Nodes{{ID: 1, Version: 1, Lat: 1, Lon: 1}}}
	newer := &gosm.OSM{Nodes: gosm.Nodes{{ID: 1, Version: 3, Lat: 3, Lon: 3}}}
	tie := &gosm.OSM{Nodes: gosm.Nodes{{ID: 1, Version: 3, Lat: 4, Lon: 4}}}

	tests := []struct {
		name  string
		order []*gosm.OSM
		lat   float64
	}{
		{"newer after older", []*gosm.OSM{older, newer}, 3},
		{"older after newer", []*gosm.OSM{newer, older}, 3},
		{"tie goes to later merge", []*gosm.OSM{newer, tie}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := FromOSM(tt.order...)
			n, ok := s.Node(1)
			if !ok {
				t.Fatal("node missing")
			}
			if n.Lat != tt.lat {
				t.Errorf("lat = %v, want %v", n.Lat, tt.lat)
			}
		})
	}
}

func TestParentRelations(t *testing.T) {
	b := osmtest.NewBuilder().
		Rect(10, 1, 0, 0, 10, 10, "building", "yes").
		Relation(30, []osmtest.Member{{Type: gosm.TypeWay, Ref: 10, Role: "outline"}}, "type", "building").
		Relation(20, []osmtest.Member{{Type: gosm.TypeWay, Ref: 10, Role: "outer"}}, "type", "multipolygon").
		Relation(40, []osmtest.Member{{Type: gosm.TypeNode, Ref: 10}}, "type", "site")
	s := FromOSM(b.OSM())

	parents := s.ParentRelations(osm.WayRef(10))
	if len(parents) != 2 {
		t.Fatalf("expected 2 parents, got %d", len(parents))
	}
	if parents[0].ID != 20 || parents[1].ID != 30 {
		t.Errorf("parents not ordered by id: %d, %d", parents[0].ID, parents[1].ID)
	}
}

func TestWayNodesMissing(t *testing.T) {
	b := osmtest.NewBuilder().NodeXY(1, 0, 0).NodeXY(2, 1, 0).Way(5, []int64{1, 2, 3, 1})
	s := FromOSM(b.OSM())

	w, _ := s.Way(5)
	_, err := s.WayNodes(w)
	if !core.HasCode(err, core.ErrUnresolvedReference) {
		t.Fatalf("expected UNRESOLVED_REFERENCE, got %v", err)
	}
	if core.AsError(err).Element != osm.WayRef(5) {
		t.Errorf("error should name way/5, got %v", core.AsError(err).Element)
	}
}

func TestNodeBounds(t *testing.T) {
	doc, err := Decode(strings.NewReader(osmtest.Way201181659))
	if err != nil {
		t.Fatal(err)
	}
	s := FromOSM(doc)
	w, _ := s.Way(201181659)

	var ids []int64
	for _, wn := range w.Nodes {
		ids = append(ids, int64(wn.ID))
	}
	bbox, err := s.NodeBounds(ids)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := bbox.String(), "-88.9937212,17.2576137,-88.9931210,17.2584351"; got != want {
		t.Errorf("bbox = %s, want %s", got, want)
	}

	if _, err := s.NodeBounds([]int64{1}); !core.HasCode(err, core.ErrUnresolvedReference) {
		t.Errorf("expected UNRESOLVED_REFERENCE, got %v", err)
	}
}

func TestWaysSharingNodes(t *testing.T) {
	b := osmtest.NewBuilder().
		Rect(10, 1, 0, 0, 10, 10, "building", "yes").
		NodeXY(5, 20, 0).NodeXY(6, 20, 10).
		Way(11, []int64{2, 5, 6, 3, 2}, "building", "yes").
		Rect(12, 100, 50, 50, 60, 60, "building", "yes")
	s := FromOSM(b.OSM())

	shared := s.WaysSharingNodes(10)
	if len(shared) != 1 || shared[0].ID != 11 {
		t.Errorf("expected way 11 to share nodes with way 10, got %v", shared)
	}
}
