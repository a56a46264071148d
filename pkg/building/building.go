// Package building reconstructs a single building from map data. It ties
// the element store, footprint extraction, attribute resolution and mesh
// synthesis together behind one value.
package building

import (
	"context"
	"log/slog"
	"sort"
	"time"

	gosm "github.com/paulmach/osm"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmbuildings/pkg/attributes"
	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/mesh"
	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/resolver"
	"github.com/NERVsystems/osmbuildings/pkg/store"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

// Config carries the defaults used during reconstruction
type Config struct {
	Attributes attributes.Config
	Logger     *slog.Logger
}

// DefaultConfig returns the stock attribute defaults and slog.Default()
func DefaultConfig() Config {
	return Config{Attributes: attributes.DefaultConfig()}
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Part is a building:part rendered in place of the outline
type Part struct {
	Ref        osm.ElementRef        `json:"ref"`
	Footprint  *footprint.RingSet    `json:"-"`
	Attributes attributes.Attributes `json:"attributes"`
	Mesh       *mesh.Mesh            `json:"-"`
}

// Building is the reconstructed solid of one way or relation. It is
// computed once on construction and never changes.
type Building struct {
	ref       osm.ElementRef
	tags      gosm.Tags
	center    geo.Location
	footprint *footprint.RingSet
	attrs     attributes.Attributes
	parts     []Part
	mesh      *mesh.Mesh
	neighbors []osm.ElementRef
}

// New reconstructs ref from a populated store
func New(st *store.Store, ref osm.ElementRef, cfg Config) (b *Building, err error) {
	start := time.Now()
	defer func() {
		monitoring.RecordReconstruction(string(ref.Kind), time.Since(start), string(core.CodeOf(err)))
	}()
	return build(context.Background(), st, ref, cfg)
}

// Fetch resolves the map context of ref through f and reconstructs it
func Fetch(ctx context.Context, f resolver.Fetcher, ref osm.ElementRef, cfg Config) (b *Building, err error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "building.fetch",
		trace.WithAttributes(tracing.ElementAttributes(string(ref.Kind), ref.ID)...))
	defer func() {
		span.SetAttributes(tracing.ErrorAttributes(string(core.CodeOf(err)), err)...)
		tracing.EndSpan(span, err)
		monitoring.RecordReconstruction(string(ref.Kind), time.Since(start), string(core.CodeOf(err)))
	}()

	st, err := resolver.New(f, resolver.Config{
		BBoxMargin: cfg.Attributes.BBoxMargin,
		Logger:     cfg.Logger,
	}).Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	return build(ctx, st, ref, cfg)
}

func build(ctx context.Context, st *store.Store, ref osm.ElementRef, cfg Config) (*Building, error) {
	if err := core.ValidateRef(ref); err != nil {
		return nil, err
	}
	if !st.Has(ref) {
		return nil, core.NewError(core.ErrNotFound, "element is not in the store").WithElement(ref)
	}
	logger := cfg.logger().With("component", "building", "element", ref.String())

	center, err := footprint.Origin(st, ref)
	if err != nil {
		return nil, err
	}
	ex := footprint.NewExtractor(st, geo.NewProjection(center), cfg.Logger)
	rs, err := ex.Extract(ref)
	if err != nil {
		return nil, err
	}

	b := &Building{
		ref:       ref,
		tags:      st.Tags(ref),
		center:    center,
		footprint: rs,
	}
	b.parts, err = findParts(st, ex, ref, rs, logger)
	if err != nil {
		return nil, err
	}

	attrParts := make([]attributes.Part, len(b.parts))
	for i, p := range b.parts {
		attrParts[i] = attributes.Part{Tags: st.Tags(p.Ref), Footprint: p.Footprint}
	}
	b.attrs = attributes.Resolve(b.tags, attrParts, rs, cfg.Attributes)
	for i := range b.parts {
		b.parts[i].Attributes = b.attrs.Parts[i]
	}

	if err := b.synthesize(ctx); err != nil {
		return nil, err
	}
	b.neighbors = neighbors(st, ref)

	logger.Debug("building reconstructed",
		"outer_rings", len(rs.Outer),
		"inner_rings", len(rs.Inner),
		"parts", len(b.parts),
		"roof", b.attrs.Roof.Shape,
		"height", b.attrs.Height,
		"faces", len(b.mesh.Faces))
	return b, nil
}

// synthesize meshes the parts when there are any, otherwise the outline.
// A part that cannot be meshed fails the whole building.
func (b *Building) synthesize(ctx context.Context) (err error) {
	_, span := tracing.StartSpan(ctx, "building.synthesize",
		trace.WithAttributes(tracing.ElementAttributes(string(b.ref.Kind), b.ref.ID)...))
	defer func() { tracing.EndSpan(span, err) }()

	meshes := make([]*mesh.Mesh, 0, len(b.parts))
	for i, p := range b.parts {
		m, err := mesh.Synthesize(p.Footprint, p.Attributes)
		if err != nil {
			return core.AsError(err).WithElement(p.Ref)
		}
		b.parts[i].Mesh = m
		meshes = append(meshes, m)
		monitoring.RecordMesh(string(p.Attributes.Roof.Shape), len(m.Faces))
	}

	if len(meshes) > 0 {
		b.mesh = mesh.Merge(meshes...)
	} else {
		m, err := mesh.Synthesize(b.footprint, b.attrs)
		if err != nil {
			return core.AsError(err).WithElement(b.ref)
		}
		b.mesh = m
		monitoring.RecordMesh(string(b.attrs.Roof.Shape), len(m.Faces))
	}

	span.SetAttributes(tracing.MeshAttributes(string(b.attrs.Roof.Shape), len(b.mesh.Vertices), len(b.mesh.Faces))...)
	return nil
}

// ID returns the id of the root element
func (b *Building) ID() int64 { return b.ref.ID }

// Ref returns the root element reference
func (b *Building) Ref() osm.ElementRef { return b.ref }

// Tags returns the tags of the root element
func (b *Building) Tags() gosm.Tags { return b.tags }

// Name returns the name tag, if any
func (b *Building) Name() string { return b.tags.Find("name") }

// Footprint returns the outline rings in metres around Center
func (b *Building) Footprint() *footprint.RingSet { return b.footprint }

// Attributes returns the resolved dimensions
func (b *Building) Attributes() attributes.Attributes { return b.attrs }

// Mesh returns the reconstructed solid in metres around Center
func (b *Building) Mesh() *mesh.Mesh { return b.mesh }

// Parts returns the building:part elements rendered instead of the outline
func (b *Building) Parts() []Part { return b.parts }

// Neighbors returns the buildings sharing at least one node with the outline
func (b *Building) Neighbors() []osm.ElementRef { return b.neighbors }

// Center returns the origin of the local frame, the mean of the outline nodes
func (b *Building) Center() geo.Location { return b.center }

func refLess(a, b osm.ElementRef) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.ID < b.ID
}

func sortRefs(refs []osm.ElementRef) {
	sort.Slice(refs, func(i, j int) bool { return refLess(refs[i], refs[j]) })
}
