package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// SchemaToolDeps contains dependencies for the schema discovery tool.
type SchemaToolDeps struct {
	Schema services.SchemaService
	Logger *zap.Logger
}

// RegisterSchemaTools registers tools for sampling the graph schema.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerDiscoverSchemaTool(s, deps)
}

// registerDiscoverSchemaTool - Samples the connected graph and returns the schema document.
func registerDiscoverSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"discover_schema",
		mcp.WithDescription(
			"Sample the connected graph database and return its schema: vertex and edge types "+
				"with counts, property names, inferred data types and example values. "+
				"The document is persisted server-side and merged with earlier samples. "+
				"Run this before writing queries against an unfamiliar database.",
		),
		mcp.WithReadOnlyHintAnnotation(true), // Probes are read queries; only a local snapshot is written
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := deps.Schema.Discover(ctx)
		if err != nil {
			if errors.Is(err, apperrors.ErrPartialDiscovery) && doc != nil {
				// Keep what was discovered; tell the caller which probes failed.
				deps.Logger.Warn("Schema discovery completed with failed probes",
					zap.Strings("failed_probes", doc.DatabaseInfo.FailedProbes))
				return NewErrorResultWithDetails(
					llm.CodePartialDiscoveryFailure,
					err.Error(),
					map[string]any{
						"failed_probes": doc.DatabaseInfo.FailedProbes,
						"document":      doc,
					},
				), nil
			}
			deps.Logger.Error("Schema discovery tool failed", zap.Error(err))
			return NewErrorResultFromErr(err), nil
		}

		jsonResult, _ := json.Marshal(doc)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
