package tools

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/NERVsystems/osmbuildings/pkg/building"
	"github.com/NERVsystems/osmbuildings/pkg/cache"
	"github.com/NERVsystems/osmbuildings/pkg/coords"
	"github.com/NERVsystems/osmbuildings/pkg/footprint"
	"github.com/NERVsystems/osmbuildings/pkg/geo"
	"github.com/NERVsystems/osmbuildings/pkg/mesh"
	"github.com/NERVsystems/osmbuildings/pkg/resolver"
)

// Buildings serves the building tools from a map API
type Buildings struct {
	fetcher   resolver.Fetcher
	cfg       building.Config
	resources *cache.MeshResources
	logger    *slog.Logger
}

// NewBuildings creates the building tool handlers
func NewBuildings(f resolver.Fetcher, cfg building.Config) *Buildings {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Buildings{fetcher: f, cfg: cfg, logger: logger}
}

// SetResources makes every mesh built by building_mesh readable as a resource
func (b *Buildings) SetResources(r *cache.MeshResources) {
	b.resources = r
}

// Resources returns the mesh resource store, nil when none is set
func (b *Buildings) Resources() *cache.MeshResources {
	return b.resources
}

// MeshOutput is the JSON result of building_mesh
type MeshOutput struct {
	Building    building.Summary `json:"building"`
	ResourceURI string           `json:"resource_uri,omitempty"`
	Mesh        *mesh.Mesh       `json:"mesh"`
}

// AtInput is the input of building_at
type AtInput struct {
	Position  string   `json:"position"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// AtOutput is the result of building_at
type AtOutput struct {
	Position geo.Location     `json:"position"`
	Format   string           `json:"format"`
	Building building.Summary `json:"building"`
}

// BuildingMeshTool returns the building_mesh tool definition
func BuildingMeshTool() mcp.Tool {
	return mcp.NewTool("building_mesh",
		mcp.WithDescription("Reconstruct the 3D mesh of an OpenStreetMap building from its footprint, height and roof tags"),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Element reference, for example way/201181659 or relation/2195398"),
		),
		mcp.WithString("format",
			mcp.Description("json for vertices, faces and normals; obj for Wavefront OBJ text"),
			mcp.Enum("json", "obj"),
		),
	)
}

// BuildingFootprintTool returns the building_footprint tool definition
func BuildingFootprintTool() mcp.Tool {
	return mcp.NewTool("building_footprint",
		mcp.WithDescription("Get the assembled footprint of an OpenStreetMap building as a GeoJSON MultiPolygon feature"),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Element reference, for example way/201181659"),
		),
	)
}

// BuildingAtTool returns the building_at tool definition
func BuildingAtTool() mcp.Tool {
	return mcp.NewTool("building_at",
		mcp.WithDescription("Find the building enclosing a position and describe its reconstruction"),
		mcp.WithString("position",
			mcp.Description("Position as decimal degrees, DMS or MGRS"),
		),
		mcp.WithNumber("latitude",
			mcp.Description("Latitude in decimal degrees, used when position is empty"),
		),
		mcp.WithNumber("longitude",
			mcp.Description("Longitude in decimal degrees, used when position is empty"),
		),
	)
}

// HandleMesh reconstructs a building and returns its mesh
func (b *Buildings) HandleMesh(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := b.logger.With("tool", "building_mesh")

	ref, res := parseRef(req)
	if res != nil {
		return res, nil
	}
	format := strings.ToLower(mcp.ParseString(req, "format", "json"))
	if format != "json" && format != "obj" {
		return InvalidInput(GuidanceFormat, "unknown format %q", format), nil
	}

	bld, err := building.Fetch(ctx, b.fetcher, ref, b.cfg)
	if err != nil {
		logger.Warn("reconstruction failed", "ref", ref.String(), "error", err)
		return ErrorResult(err), nil
	}

	out := MeshOutput{Building: bld.Summary(), Mesh: bld.Mesh()}
	if b.resources != nil {
		res, err := b.resources.Put(ref, bld.Name(), bld.Mesh())
		if err != nil {
			return ErrorResult(err), nil
		}
		out.ResourceURI = res.URI
		if format == "obj" {
			return mcp.NewToolResultText(res.OBJ), nil
		}
	}

	if format == "obj" {
		var sb strings.Builder
		if err := bld.Mesh().WriteOBJ(&sb, ref.String()); err != nil {
			return ErrorResult(err), nil
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
	return jsonResult(out)
}

// HandleFootprint returns the footprint in WGS84
func (b *Buildings) HandleFootprint(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := b.logger.With("tool", "building_footprint")

	ref, res := parseRef(req)
	if res != nil {
		return res, nil
	}
	bld, err := building.Fetch(ctx, b.fetcher, ref, b.cfg)
	if err != nil {
		logger.Warn("reconstruction failed", "ref", ref.String(), "error", err)
		return ErrorResult(err), nil
	}

	f := geojson.NewFeature(footprintGeometry(bld.Footprint(), geo.NewProjection(bld.Center())))
	f.ID = ref.String()
	f.Properties["area_m2"] = bld.Footprint().Area()
	f.Properties["height_m"] = bld.Attributes().Height
	f.Properties["roof_shape"] = string(bld.Attributes().Roof.Shape)
	if name := bld.Name(); name != "" {
		f.Properties["name"] = name
	}
	return jsonResult(f)
}

// HandleAt locates the building at a position and reconstructs it
func (b *Buildings) HandleAt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := b.logger.With("tool", "building_at")

	input, res, err := InputParser[AtInput](req)
	if err != nil {
		return res, nil
	}

	var loc geo.Location
	format := coords.FormatDecimal
	switch {
	case strings.TrimSpace(input.Position) != "":
		loc, format, err = coords.Parse(input.Position)
		if err != nil {
			return InvalidInput(GuidancePosition, "%v", err), nil
		}
	case input.Latitude != nil && input.Longitude != nil:
		loc = geo.Location{Latitude: *input.Latitude, Longitude: *input.Longitude}
		if math.IsNaN(loc.Latitude) || math.IsNaN(loc.Longitude) {
			return InvalidInput(GuidancePosition, "coordinates must be numbers"), nil
		}
	default:
		return InvalidInput(GuidancePosition, "missing position"), nil
	}

	ref, err := building.Locate(ctx, b.fetcher, loc, b.cfg)
	if err != nil {
		return ErrorResult(err), nil
	}
	bld, err := building.Fetch(ctx, b.fetcher, ref, b.cfg)
	if err != nil {
		logger.Warn("reconstruction failed", "ref", ref.String(), "error", err)
		return ErrorResult(err), nil
	}
	return jsonResult(AtOutput{Position: loc, Format: format.String(), Building: bld.Summary()})
}

// footprintGeometry converts a footprint to a closed [lon, lat] MultiPolygon
func footprintGeometry(rs *footprint.RingSet, proj geo.Projection) orb.MultiPolygon {
	toGeo := func(r orb.Ring) orb.Ring {
		closed := footprint.Closed(r)
		out := make(orb.Ring, len(closed))
		for i, p := range closed {
			loc := proj.Inverse(p)
			out[i] = orb.Point{loc.Longitude, loc.Latitude}
		}
		return out
	}

	var mp orb.MultiPolygon
	for _, poly := range rs.Polygons() {
		pg := orb.Polygon{toGeo(poly.Outer)}
		for _, h := range poly.Holes {
			pg = append(pg, toGeo(h))
		}
		mp = append(mp, pg)
	}
	return mp
}
