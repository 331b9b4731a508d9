package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// QueryToolDeps contains dependencies for the query execution tool.
type QueryToolDeps struct {
	Queries services.QueryService
	Logger  *zap.Logger
}

// RegisterQueryTools registers tools for executing graph queries.
func RegisterQueryTools(s *server.MCPServer, deps *QueryToolDeps) {
	registerExecuteQueryTool(s, deps)
}

// registerExecuteQueryTool - Executes a read query and returns a bounded preview.
func registerExecuteQueryTool(s *server.MCPServer, deps *QueryToolDeps) {
	tool := mcp.NewTool(
		"execute_query",
		mcp.WithDescription(
			"Execute a read query against the connected graph database and return a bounded preview. "+
				"Write the query in the backend's language (sparql, gremlin or cypher). "+
				"Destructive statements (DELETE, DROP, CLEAR and similar) are refused. "+
				"The full result set is retained server-side; use export_to_csv to write it to a file.",
		),
		mcp.WithString(
			"query_text",
			mcp.Required(),
			mcp.Description("The query to execute, written in the backend's query language"),
		),
		mcp.WithString(
			"language",
			mcp.Description("Query language of query_text: 'sparql', 'gremlin' or 'cypher'. Defaults to the configured backend language."),
			mcp.Enum("sparql", "gremlin", "cypher"),
		),
		mcp.WithReadOnlyHintAnnotation(true), // Destructive statements are screened out
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		queryText, _ := getOptionalString(req, "query_text")
		queryText = strings.TrimSpace(queryText)
		if queryText == "" {
			return NewErrorResult(llm.CodeInvalidToolCall, "query_text is required"), nil
		}

		var language models.QueryLanguage
		if raw, ok := getOptionalString(req, "language"); ok && raw != "" {
			parsed, err := models.ParseQueryLanguage(raw)
			if err != nil {
				return NewErrorResult(llm.CodeInvalidToolCall, err.Error()), nil
			}
			language = parsed
		}

		preview, err := deps.Queries.Run(ctx, queryText, language)
		if err != nil {
			if IsUserError(err) {
				deps.Logger.Debug("Query tool rejected input",
					zap.String("query", logging.SanitizeQuery(queryText)),
					zap.Error(err))
			} else {
				deps.Logger.Error("Query tool failed",
					zap.String("query", logging.SanitizeQuery(queryText)),
					zap.Error(err))
			}
			return NewErrorResultFromErr(err), nil
		}

		jsonResult, _ := json.Marshal(preview)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
