package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

type healthResult struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	QueryLanguage string `json:"query_language"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server status, version, and backend query language.
func RegisterHealthTool(s *server.MCPServer, version string, language models.QueryLanguage) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version, and the backend query language"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{
			Status:        "ok",
			Version:       version,
			QueryLanguage: string(language),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
