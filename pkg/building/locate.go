package building

import (
	"context"

	"github.com/paulmach/orb"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
	"github.com/NERVsystems/osmbuildings/pkg/resolver"
	"github.com/NERVsystems/osmbuildings/pkg/store"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

// LocateRadius is the half size of the map query around a position, in degrees
const LocateRadius = 0.0003

// Locate finds the building whose footprint contains loc
func Locate(ctx context.Context, f resolver.Fetcher, loc geo.Location, cfg Config) (ref osm.ElementRef, err error) {
	ctx, span := tracing.StartSpan(ctx, "building.locate")
	defer func() { tracing.EndSpan(span, err) }()

	if err := osm.ValidateCoords(loc.Latitude, loc.Longitude); err != nil {
		return osm.ElementRef{}, core.NewError(core.ErrInvalidInput, err.Error())
	}
	bbox := geo.BoundingBox{
		MinLat: loc.Latitude, MinLon: loc.Longitude,
		MaxLat: loc.Latitude, MaxLon: loc.Longitude,
	}.Pad(LocateRadius)
	span.SetAttributes(attribute.String(tracing.AttrFetchBBox, bbox.String()))

	doc, err := f.FetchMap(ctx, bbox)
	if err != nil {
		return osm.ElementRef{}, err
	}
	return LocateIn(store.FromOSM(doc), loc, cfg)
}

// LocateIn finds the building in st whose footprint contains loc. When
// footprints overlap the smallest one wins.
func LocateIn(st *store.Store, loc geo.Location, cfg Config) (osm.ElementRef, error) {
	ex := footprint.NewExtractor(st, geo.NewProjection(loc), cfg.Logger)
	var (
		best     osm.ElementRef
		bestArea float64
	)
	consider := func(ref osm.ElementRef) {
		rs, err := ex.Extract(ref)
		if err != nil || !rs.Contains(orb.Point{0, 0}) {
			return
		}
		if a := rs.Area(); best.IsZero() || a < bestArea {
			best, bestArea = ref, a
		}
	}

	for _, r := range st.Relations() {
		switch r.Tags.Find("type") {
		case "multipolygon":
			if isBuilding(r.Tags) {
				consider(osm.RelationRef(int64(r.ID)))
			}
		case "building":
			consider(osm.RelationRef(int64(r.ID)))
		}
	}
	// ways last: on equal area a building relation beats its outline way
	for _, w := range st.Ways() {
		if isBuilding(w.Tags) {
			consider(osm.WayRef(int64(w.ID)))
		}
	}

	if best.IsZero() {
		return osm.ElementRef{}, core.Errorf(core.ErrNotFound, "no building at %.7f,%.7f", loc.Latitude, loc.Longitude).
			WithGuidance("Check the position or pass the building reference directly")
	}
	return best, nil
}
