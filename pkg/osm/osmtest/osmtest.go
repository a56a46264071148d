// Package osmtest provides map fixtures and a fake map API server for tests.
package osmtest

import (
	_ "embed"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	gosm "github.com/paulmach/osm"

	"github.com/NERVsystems/osmbuildings/pkg/geo"
)

// Way201181659 is the full response of an industrial building in Belize
// whose 30-node concave outline exercises roof synthesis.
//
//go:embed testdata/way_201181659.osm
var Way201181659 string

// Origin is the reference point used by Builder.NodeXY
var Origin = geo.Location{Latitude: 51.5, Longitude: -0.12}

// Member is a relation member used by Builder
type Member struct {
	Type gosm.Type
	Ref  int64
	Role string
}

// Builder assembles small map documents in code
type Builder struct {
	proj      geo.Projection
	nodes     []*gosm.Node
	ways      []*gosm.Way
	relations []*gosm.Relation
}

// NewBuilder returns an empty builder
func NewBuilder() *Builder {
	return &Builder{proj: geo.NewProjection(Origin)}
}

// Node adds a node at lat/lon
func (b *Builder) Node(id int64, lat, lon float64, tags ...string) *Builder {
	b.nodes = append(b.nodes, &gosm.Node{
		ID:      gosm.NodeID(id),
		Lat:     lat,
		Lon:     lon,
		Version: 1,
		Visible: true,
		Tags:    makeTags(tags),
	})
	return b
}

// NodeXY adds a node at x metres east and y metres north of Origin
func (b *Builder) NodeXY(id int64, x, y float64) *Builder {
	loc := b.proj.Inverse(orb.Point{x, y})
	return b.Node(id, loc.Latitude, loc.Longitude)
}

// Way adds a way over the given node ids. tags are key, value pairs.
func (b *Builder) Way(id int64, nodes []int64, tags ...string) *Builder {
	w := &gosm.Way{ID: gosm.WayID(id), Version: 1, Visible: true, Tags: makeTags(tags)}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, gosm.WayNode{ID: gosm.NodeID(n)})
	}
	b.ways = append(b.ways, w)
	return b
}

// Relation adds a relation with the given members
func (b *Builder) Relation(id int64, members []Member, tags ...string) *Builder {
	r := &gosm.Relation{ID: gosm.RelationID(id), Version: 1, Visible: true, Tags: makeTags(tags)}
	for _, m := range members {
		r.Members = append(r.Members, gosm.Member{Type: m.Type, Ref: m.Ref, Role: m.Role})
	}
	b.relations = append(b.relations, r)
	return b
}

// Rect adds four nodes starting at firstNode and a closed way around the
// axis-aligned rectangle [x0,x1]x[y0,y1] in local metres.
func (b *Builder) Rect(wayID, firstNode int64, x0, y0, x1, y1 float64, tags ...string) *Builder {
	n := firstNode
	b.NodeXY(n, x0, y0).NodeXY(n+1, x1, y0).NodeXY(n+2, x1, y1).NodeXY(n+3, x0, y1)
	return b.Way(wayID, []int64{n, n + 1, n + 2, n + 3, n}, tags...)
}

// OSM returns the document built so far
func (b *Builder) OSM() *gosm.OSM {
	return &gosm.OSM{
		Nodes:     append(gosm.Nodes(nil), b.nodes...),
		Ways:      append(gosm.Ways(nil), b.ways...),
		Relations: append(gosm.Relations(nil), b.relations...),
	}
}

// XML renders the document as an API response body
func (b *Builder) XML() string {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<osm version=\"0.6\" generator=\"osmtest\">\n")
	for _, n := range b.nodes {
		fmt.Fprintf(&sb, `<node id="%d" visible="true" version="%d" lat="%.7f" lon="%.7f"`, n.ID, n.Version, n.Lat, n.Lon)
		writeTags(&sb, n.Tags, "node")
	}
	for _, w := range b.ways {
		fmt.Fprintf(&sb, `<way id="%d" visible="true" version="%d">`+"\n", w.ID, w.Version)
		for _, wn := range w.Nodes {
			fmt.Fprintf(&sb, `<nd ref="%d"/>`+"\n", wn.ID)
		}
		writeTagList(&sb, w.Tags)
		sb.WriteString("</way>\n")
	}
	for _, r := range b.relations {
		fmt.Fprintf(&sb, `<relation id="%d" visible="true" version="%d">`+"\n", r.ID, r.Version)
		for _, m := range r.Members {
			fmt.Fprintf(&sb, `<member type="%s" ref="%d" role="%s"/>`+"\n", m.Type, m.Ref, escape(m.Role))
		}
		writeTagList(&sb, r.Tags)
		sb.WriteString("</relation>\n")
	}
	sb.WriteString("</osm>\n")
	return sb.String()
}

func writeTags(sb *strings.Builder, tags gosm.Tags, elem string) {
	if len(tags) == 0 {
		sb.WriteString("/>\n")
		return
	}
	sb.WriteString(">\n")
	writeTagList(sb, tags)
	fmt.Fprintf(sb, "</%s>\n", elem)
}

func writeTagList(sb *strings.Builder, tags gosm.Tags) {
	for _, t := range tags {
		fmt.Fprintf(sb, `<tag k="%s" v="%s"/>`+"\n", escape(t.Key), escape(t.Value))
	}
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func makeTags(kv []string) gosm.Tags {
	if len(kv)%2 != 0 {
		panic("osmtest: tags must be key, value pairs")
	}
	var tags gosm.Tags
	for i := 0; i < len(kv); i += 2 {
		tags = append(tags, gosm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return tags
}

// Server is a fake map API. Responses are keyed by request path relative
// to the API root, query string included ("way/1/full", "map?bbox=...").
// A "map" key without query answers every bbox request.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]string
	requests  []string
}

// NewServer starts a fake API answering with responses
func NewServer(responses map[string]string) *Server {
	s := &Server{responses: responses}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL returns the API root for this server
func (s *Server) BaseURL() string {
	return s.URL + "/api/0.6/"
}

// Requests returns the request paths received so far, in order
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Paths returns the configured response keys, sorted
func (s *Server) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.responses))
	for k := range s.responses {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/0.6/")
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	s.mu.Lock()
	s.requests = append(s.requests, path)
	body, ok := s.responses[path]
	if !ok && strings.HasPrefix(path, "map?") {
		body, ok = s.responses["map"]
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(body))
}
