package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmbuildings/pkg/core"
)

// Guidance attached to input errors
const (
	GuidanceRef      = "Pass an element reference such as way/201181659 or relation/2195398."
	GuidancePosition = "Pass position as decimal degrees (51.5, -0.12), DMS or MGRS, or give latitude and longitude."
	GuidanceFormat   = "Use format json or obj."
)

// ErrorResult converts any error into an MCP error result carrying its code
func ErrorResult(err error) *mcp.CallToolResult {
	return core.AsError(err).ToMCPResult()
}

// InvalidInput returns an INVALID_INPUT error result
func InvalidInput(guidance, format string, args ...any) *mcp.CallToolResult {
	return core.NewError(core.ErrInvalidInput, fmt.Sprintf(format, args...)).
		WithGuidance(guidance).
		ToMCPResult()
}
