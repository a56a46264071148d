// Package resolver gathers the map context needed to reconstruct a building.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	gosm "github.com/paulmach/osm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/store"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

// DefaultBBoxMargin pads the neighbor query, in degrees
const DefaultBBoxMargin = 0.0001

// Fetcher performs the two map API queries. core.MapAPI implements it.
type Fetcher interface {
	FetchFull(ctx context.Context, ref osm.ElementRef) (*gosm.OSM, error)
	FetchMap(ctx context.Context, bbox geo.BoundingBox) (*gosm.OSM, error)
}

// Config tunes a Resolver
type Config struct {
	// BBoxMargin pads the bounding box of the full response, in degrees
	BBoxMargin float64
	Logger     *slog.Logger
}

// Resolver loads a building and its surroundings in two sequential requests:
// the full element, then everything inside its padded bounding box.
type Resolver struct {
	fetcher Fetcher
	margin  float64
	logger  *slog.Logger
}

// New creates a resolver
func New(f Fetcher, cfg Config) *Resolver {
	if cfg.BBoxMargin <= 0 {
		cfg.BBoxMargin = DefaultBBoxMargin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Resolver{
		fetcher: f,
		margin:  cfg.BBoxMargin,
		logger:  cfg.Logger.With("component", "resolver"),
	}
}

// Resolve fetches ref and its neighborhood into a new store.
//
// Parent relations of ref are only known from the bbox query, so they carry
// just the members that query returned. No further fetch completes them.
func (r *Resolver) Resolve(ctx context.Context, ref osm.ElementRef) (st *store.Store, err error) {
	ctx, span := tracing.StartSpan(ctx, "building.resolve_context",
		trace.WithAttributes(tracing.ElementAttributes(string(ref.Kind), ref.ID)...))
	defer func() { tracing.EndSpan(span, err) }()

	if err := core.ValidateRef(ref); err != nil {
		return nil, err
	}
	logger := r.logger.With("element", ref.String())

	full, err := r.fetcher.FetchFull(ctx, ref)
	if err != nil {
		return nil, err
	}

	st = store.FromOSM(full)
	if err := checkRoot(st, ref); err != nil {
		return nil, err
	}
	if len(full.Nodes) == 0 {
		return nil, core.NewError(core.ErrUnresolvedReference, "full response contains no nodes").WithElement(ref)
	}

	bbox := fullBounds(full).Pad(r.margin)
	span.SetAttributes(attribute.String(tracing.AttrFetchBBox, bbox.String()))

	neighborhood, err := r.fetcher.FetchMap(ctx, bbox)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", ref, err)
	}
	st.Merge(neighborhood)

	for _, parent := range st.ParentRelations(ref) {
		logger.Debug("element has parent relation",
			"relation", parent.ID,
			"type", parent.Tags.Find("type"))
	}

	span.SetAttributes(
		attribute.Int(tracing.AttrStoreNodes, st.NodeCount()),
		attribute.Int(tracing.AttrStoreWays, st.WayCount()),
		attribute.Int(tracing.AttrStoreRelations, st.RelationCount()),
	)
	logger.Debug("context resolved",
		"bbox", bbox.String(),
		"nodes", st.NodeCount(),
		"ways", st.WayCount(),
		"relations", st.RelationCount())

	return st, nil
}

// checkRoot verifies that the full response actually contains ref
func checkRoot(st *store.Store, ref osm.ElementRef) error {
	if !st.Has(ref) {
		return core.NewError(core.ErrNotFound, "element missing from full response").WithElement(ref)
	}
	if ref.Kind != osm.KindRelation {
		return nil
	}

	rel, _ := st.Relation(ref.ID)
	for _, m := range rel.Members {
		if m.Type != gosm.TypeWay {
			continue
		}
		if _, ok := st.Way(m.Ref); ok {
			return nil
		}
	}
	return core.NewError(core.ErrNotFound, "relation has no way members").WithElement(ref)
}

func fullBounds(doc *gosm.OSM) geo.BoundingBox {
	bbox := geo.NewBoundingBox()
	for _, n := range doc.Nodes {
		bbox.ExtendWithPoint(n.Lat, n.Lon)
	}
	return *bbox
}
