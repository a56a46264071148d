// Package server serves the building tools over MCP.
package server

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/osmbuildings/pkg/cache"
	"github.com/NERVsystems/osmbuildings/pkg/tools"
	"github.com/NERVsystems/osmbuildings/pkg/version"
)

// ServerName is the name reported to MCP clients
const ServerName = "osmbuildings"

// Server is an MCP server with the building tools registered
type Server struct {
	srv      *mcpserver.MCPServer
	registry *tools.Registry
	logger   *slog.Logger
}

// NewServer creates an MCP server for buildings. When buildings has a
// mesh resource store, stored meshes are also served as resources.
func NewServer(buildings *tools.Buildings, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("initializing MCP server", "name", ServerName, "version", version.Version)

	srv := mcpserver.NewMCPServer(
		ServerName,
		version.Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithRecovery(),
	)

	registry := tools.NewRegistry(buildings, logger)
	registry.RegisterTools(srv)

	if res := buildings.Resources(); res != nil {
		registerMeshResources(srv, res, logger)
	}

	return &Server{srv: srv, registry: registry, logger: logger}
}

func registerMeshResources(srv *mcpserver.MCPServer, res *cache.MeshResources, logger *slog.Logger) {
	tmpl := mcp.NewResourceTemplate(cache.URITemplate, "Building mesh",
		mcp.WithTemplateDescription("Wavefront OBJ of a building reconstructed by building_mesh"),
		mcp.WithTemplateMIMEType(cache.MIMEType),
	)
	srv.AddResourceTemplate(tmpl, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return res.Read(ctx, req.Params.URI)
	})
	logger.Info("registered resource template", "uri", cache.URITemplate)
}

// MCPServer returns the underlying MCP server for other transports
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.srv
}

// ToolNames lists the registered tools
func (s *Server) ToolNames() []string {
	return s.registry.GetToolNames()
}

// ServeStdio serves MCP over in and out until ctx is done or in is closed
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.srv)
	err := stdio.Listen(ctx, in, out)
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		s.logger.Info("stdio transport stopped")
		return nil
	}
	return err
}
