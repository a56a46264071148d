// Package cache keeps recently reconstructed meshes so MCP clients can read
// them back as resources without another reconstruction.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NERVsystems/osmbuildings/pkg/mesh"
	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

const (
	// Scheme prefixes every mesh resource URI
	Scheme = "building://"

	// URITemplate matches every mesh resource URI
	URITemplate = Scheme + "{kind}/{id}"

	// MIMEType is the type of the resource contents
	MIMEType = "model/obj"

	// DefaultSize is the number of meshes kept
	DefaultSize = 64

	// DefaultTTL bounds how long a mesh stays readable
	DefaultTTL = 30 * time.Minute

	cacheType = "mesh_resource"
)

// MeshResource is a rendered mesh
type MeshResource struct {
	URI      string
	Name     string
	Ref      osm.ElementRef
	OBJ      string
	Vertices int
	Faces    int
	Created  time.Time
}

// MeshResources is a bounded, expiring set of mesh resources.
// It is safe for concurrent use.
type MeshResources struct {
	lru    *expirable.LRU[string, *MeshResource]
	logger *slog.Logger
}

// NewMeshResources creates a store holding up to size meshes for ttl
func NewMeshResources(size int, ttl time.Duration, logger *slog.Logger) *MeshResources {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MeshResources{
		lru:    expirable.NewLRU[string, *MeshResource](size, nil, ttl),
		logger: logger.With("component", "mesh_resources"),
	}
}

// URI returns the resource URI of an element
func URI(ref osm.ElementRef) string {
	return Scheme + ref.String()
}

// ParseURI returns the element a resource URI names
func ParseURI(uri string) (osm.ElementRef, error) {
	rest, ok := strings.CutPrefix(uri, Scheme)
	if !ok {
		return osm.ElementRef{}, fmt.Errorf("resource URI %q does not start with %s", uri, Scheme)
	}
	return osm.ParseElementRef(rest)
}

// Put renders m as OBJ and stores it under the element's URI
func (r *MeshResources) Put(ref osm.ElementRef, name string, m *mesh.Mesh) (*MeshResource, error) {
	var sb strings.Builder
	if err := m.WriteOBJ(&sb, ref.String()); err != nil {
		return nil, err
	}
	if name == "" {
		name = ref.String()
	}
	res := &MeshResource{
		URI:      URI(ref),
		Name:     name,
		Ref:      ref,
		OBJ:      sb.String(),
		Vertices: len(m.Vertices),
		Faces:    len(m.Faces),
		Created:  time.Now(),
	}
	r.lru.Add(res.URI, res)
	monitoring.UpdateCacheSize(cacheType, r.lru.Len())
	r.logger.Debug("mesh cached as resource", "uri", res.URI, "bytes", len(res.OBJ))
	return res, nil
}

// Get returns the resource stored under uri
func (r *MeshResources) Get(uri string) (*MeshResource, bool) {
	res, ok := r.lru.Get(uri)
	if ok {
		monitoring.RecordCacheHit(cacheType)
	} else {
		monitoring.RecordCacheMiss(cacheType)
	}
	return res, ok
}

// Len returns the number of stored meshes
func (r *MeshResources) Len() int {
	return r.lru.Len()
}

// List describes the stored meshes, oldest first
func (r *MeshResources) List() []mcp.Resource {
	var out []mcp.Resource
	for _, res := range r.lru.Values() {
		out = append(out, mcp.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: fmt.Sprintf("%d vertices, %d faces", res.Vertices, res.Faces),
			MIMEType:    MIMEType,
		})
	}
	return out
}

// Read returns the OBJ text of a stored mesh
func (r *MeshResources) Read(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
	_, span := tracing.StartSpan(ctx, "mesh_resources.read")
	span.SetAttributes(attribute.String("resource.uri", uri))

	ref, err := ParseURI(uri)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}
	res, ok := r.Get(URI(ref))
	span.SetAttributes(tracing.CacheAttributes(ok, uri)...)
	if !ok {
		err := fmt.Errorf("no mesh for %s; reconstruct it with building_mesh first", ref)
		tracing.EndSpan(span, err)
		return nil, err
	}
	tracing.EndSpan(span, nil)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      res.URI,
			MIMEType: MIMEType,
			Text:     res.OBJ,
		},
	}, nil
}
