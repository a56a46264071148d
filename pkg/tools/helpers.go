package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmbuildings/pkg/core"
	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

// InputParser is a generic function to parse request arguments into a strongly typed struct
func InputParser[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult, error) {
	var input T

	inputJSON, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return input, InvalidInput("", "invalid input format: %v", err), err
	}
	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, InvalidInput("", "failed to parse input: %v", err), err
	}

	return input, nil, nil
}

// parseRef reads the required ref argument
func parseRef(req mcp.CallToolRequest) (osm.ElementRef, *mcp.CallToolResult) {
	s := mcp.ParseString(req, "ref", "")
	if s == "" {
		return osm.ElementRef{}, InvalidInput(GuidanceRef, "missing ref")
	}
	ref, err := core.ParseRef(s)
	if err != nil {
		return osm.ElementRef{}, ErrorResult(err)
	}
	return ref, nil
}

// jsonResult marshals v into a text result
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
