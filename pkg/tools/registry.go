// Package tools exposes building reconstruction as MCP tools.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmbuildings/pkg/monitoring"
	"github.com/NERVsystems/osmbuildings/pkg/tracing"
)

// Registry contains all tool definitions and handlers
type Registry struct {
	logger    *slog.Logger
	buildings *Buildings
}

// NewRegistry creates a new tool registry
func NewRegistry(buildings *Buildings, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:    logger,
		buildings: buildings,
	}
}

// ToolDefinition represents an MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_version",
			Description: "Get the version information for this server",
			Tool:        GetVersionTool(),
			Handler:     HandleGetVersion,
		},
		{
			Name:        "building_mesh",
			Description: "Reconstruct a 3D mesh of an OpenStreetMap building. Parameters: ref (string, e.g. way/201181659), format (string: json, obj)",
			Tool:        BuildingMeshTool(),
			Handler:     r.buildings.HandleMesh,
		},
		{
			Name:        "building_footprint",
			Description: "Get the footprint of an OpenStreetMap building as a GeoJSON feature. Parameters: ref (string)",
			Tool:        BuildingFootprintTool(),
			Handler:     r.buildings.HandleFootprint,
		},
		{
			Name:        "building_at",
			Description: "Find and describe the building at a position. Parameters: position (string: decimal, DMS or MGRS) or latitude and longitude (numbers)",
			Tool:        BuildingAtTool(),
			Handler:     r.buildings.HandleAt,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, r.wrap(def.Name, def.Handler))
	}
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// wrap adds a span and request metrics around a handler. Error results
// count as failures even when the handler returns a nil error.
func (r *Registry) wrap(toolName string, handler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("mcp.tool.%s", toolName),
			trace.WithAttributes(attribute.String(tracing.AttrMCPToolName, toolName)),
		)
		start := time.Now()

		result, err := handler(ctx, req)

		duration := time.Since(start)
		success := err == nil && (result == nil || !result.IsError)
		status := tracing.StatusSuccess
		if !success {
			status = tracing.StatusError
		}
		span.SetAttributes(attribute.String(tracing.AttrMCPToolStatus, status))
		tracing.EndSpan(span, err)
		monitoring.RecordMCPRequest(toolName, duration, success)

		r.logger.Debug("tool executed",
			"tool", toolName,
			"duration_ms", duration.Milliseconds(),
			"status", status,
		)
		return result, err
	}
}
