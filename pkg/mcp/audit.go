package mcp

import (
	"context"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
)

// maxAuditPreviewChars caps the result preview recorded in audit fields.
const maxAuditPreviewChars = 200

// AuditHooks captures MCP tool-call events into the structured audit log.
// Every tools/call is recorded with its duration and outcome; query text
// in the arguments is run through the log sanitizer first.
type AuditHooks struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditHooks creates hooks that record MCP tool activity.
func NewAuditHooks(logger *zap.Logger) *AuditHooks {
	return &AuditHooks{
		logger: logger.Named("mcp-audit"),
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
// Pass the result to NewServer.
func (a *AuditHooks) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditHooks) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditHooks) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	startTime, _ := a.loadAndDeleteStart(id)

	isError, preview := summarizeResult(result)

	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()),
		zap.Any("arguments", sanitizeArguments(req.Params.Arguments)),
		zap.Bool("is_error", isError),
	}
	if preview != "" {
		fields = append(fields, zap.String("result_preview", preview))
	}

	if isError {
		a.logger.Warn("MCP tool call returned an error result", fields...)
		return
	}
	a.logger.Info("MCP tool call completed", fields...)
}

func (a *AuditHooks) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}

	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	startTime, _ := a.loadAndDeleteStart(id)

	a.logger.Error("MCP tool call failed",
		zap.String("tool", req.Params.Name),
		zap.Int64("duration_ms", time.Since(startTime).Milliseconds()),
		zap.Any("arguments", sanitizeArguments(req.Params.Arguments)),
		zap.String("error", logging.SanitizeError(err)))
}

func (a *AuditHooks) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Now(), false
}

// sanitizeArguments prepares tool arguments for logging. Query parameters
// go through the query sanitizer, which truncates and redacts credential
// patterns; the remaining parameters are filename hints and flags.
func sanitizeArguments(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok && isQueryParam(k) {
			sanitized[k] = logging.SanitizeQuery(s)
			continue
		}
		sanitized[k] = v
	}
	return sanitized
}

// isQueryParam returns true if a parameter key carries query text.
func isQueryParam(key string) bool {
	lower := strings.ToLower(key)
	return lower == "query" || lower == "query_text" || strings.HasSuffix(lower, "_query")
}

// summarizeResult reduces a tool result to its error flag and a short
// preview of the first text content.
func summarizeResult(result *mcplib.CallToolResult) (bool, string) {
	if result == nil {
		return false, ""
	}

	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return result.IsError, logging.TruncateString(tc.Text, maxAuditPreviewChars)
		}
	}
	return result.IsError, ""
}
