package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for building reconstruction
const (
	// Element attributes
	AttrElementKind = "osm.element.kind"
	AttrElementID   = "osm.element.id"

	// Context fetch attributes
	AttrFetchOperation = "osm.fetch.operation"
	AttrFetchURL       = "osm.fetch.url"
	AttrFetchBBox      = "osm.fetch.bbox"
	AttrStoreNodes     = "osm.store.nodes"
	AttrStoreWays      = "osm.store.ways"
	AttrStoreRelations = "osm.store.relations"

	// Geometry attributes
	AttrOuterRings = "building.footprint.outer_rings"
	AttrInnerRings = "building.footprint.inner_rings"
	AttrRoofShape  = "building.roof.shape"
	AttrParts      = "building.parts"
	AttrVertices   = "building.mesh.vertices"
	AttrFaces      = "building.mesh.faces"

	// Cache attributes
	AttrCacheHit = "osm.cache.hit"
	AttrCacheKey = "osm.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "osm.ratelimit.service"
	AttrRateLimitWaitMs  = "osm.ratelimit.wait_ms"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPPath       = "http.path"

	// MCP tool attributes
	AttrMCPToolName   = "mcp.tool.name"
	AttrMCPToolStatus = "mcp.tool.status"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Service names
const (
	ServiceMapAPI = "osmapi"
)

// ElementAttributes returns attributes identifying a map element
func ElementAttributes(kind string, id int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrElementKind, kind),
		attribute.Int64(AttrElementID, id),
	}
}

// MeshAttributes returns attributes describing a synthesized mesh
func MeshAttributes(roofShape string, vertices, faces int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRoofShape, roofShape),
		attribute.Int(AttrVertices, vertices),
		attribute.Int(AttrFaces, faces),
	}
}

// CacheAttributes returns attributes for cache lookups
func CacheAttributes(hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors. errType is usually an error code.
func ErrorAttributes(errType string, err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errType),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
