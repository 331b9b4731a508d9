package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Error codes carried in tool results handed back to the model.
const (
	CodeInvalidToolCall         = "invalid_tool_call"
	CodeExecutionError          = "execution_error"
	CodeNoResultAvailable       = "no_result_available"
	CodeExecutorUnavailable     = "executor_unavailable"
	CodePartialDiscoveryFailure = "partial_discovery_failure"
)

// QueryRunner executes a model-written query and returns a bounded preview.
// An empty language means the session's configured language.
// This interface breaks the import cycle between llm and services packages.
type QueryRunner interface {
	Run(ctx context.Context, queryText string, language models.QueryLanguage) (*models.ResultPreview, error)
}

// Exporter writes the full retained query result to a CSV file.
type Exporter interface {
	Export(ctx context.Context, filenameHint string) (*models.ExportRecord, error)
}

// SchemaDiscoverer samples the connected graph and persists the document.
// On partial failure it returns the incomplete document together with an
// error wrapping apperrors.ErrPartialDiscovery.
type SchemaDiscoverer interface {
	Discover(ctx context.Context) (*models.SchemaDocument, error)
}

// DatabaseResetter wipes all data from the connected graph.
type DatabaseResetter interface {
	Reset(ctx context.Context) error
}

// GraphToolExecutor implements ToolExecutor for graph chat. Tool-level
// failures never surface as Go errors: every failure is serialized as a
// structured error result so the model can read it and revise its next
// call. The returned error is reserved for infrastructure problems.
type GraphToolExecutor struct {
	queries QueryRunner
	exports Exporter
	schema  SchemaDiscoverer
	reset   DatabaseResetter
	logger  *zap.Logger
}

// GraphToolExecutorConfig holds dependencies for creating a GraphToolExecutor.
type GraphToolExecutorConfig struct {
	Queries QueryRunner
	Exports Exporter
	Schema  SchemaDiscoverer
	Reset   DatabaseResetter
	Logger  *zap.Logger
}

// NewGraphToolExecutor creates a new tool executor for graph operations.
func NewGraphToolExecutor(cfg *GraphToolExecutorConfig) *GraphToolExecutor {
	return &GraphToolExecutor{
		queries: cfg.Queries,
		exports: cfg.Exports,
		schema:  cfg.Schema,
		reset:   cfg.Reset,
		logger:  cfg.Logger.Named("tool-executor"),
	}
}

// Ensure GraphToolExecutor implements ToolExecutor.
var _ ToolExecutor = (*GraphToolExecutor)(nil)

// ExecuteTool dispatches to the appropriate tool handler based on name.
func (e *GraphToolExecutor) ExecuteTool(ctx context.Context, name string, arguments string) (string, error) {
	e.logger.Debug("Executing tool",
		zap.String("tool", name),
		zap.String("arguments", arguments))

	switch name {
	case "generate_and_execute_query":
		return e.generateAndExecuteQuery(ctx, arguments)
	case "export_to_csv":
		return e.exportToCSV(ctx, arguments)
	case "discover_schema":
		return e.discoverSchema(ctx, arguments)
	case "reset_database":
		return e.resetDatabase(ctx, arguments)
	default:
		return errorResult(CodeInvalidToolCall, fmt.Sprintf("unknown tool: %s", name), nil), nil
	}
}

// ============================================================================
// Tool: generate_and_execute_query
// ============================================================================

type generateAndExecuteQueryArgs struct {
	QueryText string `json:"query_text"`
	Language  string `json:"language"`
}

func (e *GraphToolExecutor) generateAndExecuteQuery(ctx context.Context, arguments string) (string, error) {
	var args generateAndExecuteQueryArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return errorResult(CodeInvalidToolCall, fmt.Sprintf("invalid arguments: %v", err), nil), nil
	}

	if strings.TrimSpace(args.QueryText) == "" {
		return errorResult(CodeInvalidToolCall, "query_text is required", nil), nil
	}

	var language models.QueryLanguage
	if args.Language != "" {
		parsed, err := models.ParseQueryLanguage(args.Language)
		if err != nil {
			return errorResult(CodeInvalidToolCall, err.Error(), nil), nil
		}
		language = parsed
	}

	if e.queries == nil {
		return errorResult(CodeExecutorUnavailable, "query engine not configured", nil), nil
	}

	preview, err := e.queries.Run(ctx, args.QueryText, language)
	if err != nil {
		e.logger.Warn("Query tool failed",
			zap.String("language", string(language)),
			zap.Error(err))
		return errorResultFromErr(err), nil
	}

	payload, err := json.Marshal(preview)
	if err != nil {
		return errorResult(CodeExecutionError, fmt.Sprintf("failed to marshal preview: %v", err), nil), nil
	}

	return string(payload), nil
}

// ============================================================================
// Tool: export_to_csv
// ============================================================================

type exportToCSVArgs struct {
	FilenameHint string `json:"filename_hint"`
}

func (e *GraphToolExecutor) exportToCSV(ctx context.Context, arguments string) (string, error) {
	var args exportToCSVArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return errorResult(CodeInvalidToolCall, fmt.Sprintf("invalid arguments: %v", err), nil), nil
	}

	if e.exports == nil {
		return errorResult(CodeExecutorUnavailable, "export manager not configured", nil), nil
	}

	record, err := e.exports.Export(ctx, args.FilenameHint)
	if err != nil {
		e.logger.Warn("Export tool failed", zap.Error(err))
		return errorResultFromErr(err), nil
	}

	e.logger.Info("Exported query result",
		zap.String("filename", record.Filename),
		zap.Int("rows", record.RowCount),
		zap.Int64("size_bytes", record.SizeBytes))

	response := map[string]any{
		"status":     "ok",
		"filename":   record.Filename,
		"path":       record.Path,
		"rows":       record.RowCount,
		"size_bytes": record.SizeBytes,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return errorResult(CodeExecutionError, fmt.Sprintf("failed to marshal response: %v", err), nil), nil
	}

	return string(responseJSON), nil
}

// ============================================================================
// Tool: discover_schema
// ============================================================================

func (e *GraphToolExecutor) discoverSchema(ctx context.Context, arguments string) (string, error) {
	if e.schema == nil {
		return errorResult(CodeExecutorUnavailable, "schema sampler not configured", nil), nil
	}

	doc, err := e.schema.Discover(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrPartialDiscovery) && doc != nil {
			// Keep what was discovered; tell the model which probes failed.
			details := map[string]any{
				"failed_probes": doc.DatabaseInfo.FailedProbes,
				"discovered":    schemaSummary(doc),
			}
			return errorResult(CodePartialDiscoveryFailure, err.Error(), details), nil
		}
		e.logger.Warn("Schema discovery tool failed", zap.Error(err))
		return errorResultFromErr(err), nil
	}

	response := schemaSummary(doc)
	response["status"] = "ok"

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return errorResult(CodeExecutionError, fmt.Sprintf("failed to marshal response: %v", err), nil), nil
	}

	return string(responseJSON), nil
}

// schemaSummary builds a compact model-facing view of a schema document.
// The full document is injected into the system prompt separately.
func schemaSummary(doc *models.SchemaDocument) map[string]any {
	vertices := make([]string, 0, len(doc.Vertices))
	for _, v := range doc.Vertices {
		vertices = append(vertices, v.Label)
	}
	edges := make([]string, 0, len(doc.Edges))
	for _, ed := range doc.Edges {
		edges = append(edges, ed.Label)
	}
	return map[string]any{
		"vertex_count": len(vertices),
		"edge_count":   len(edges),
		"vertices":     vertices,
		"edges":        edges,
	}
}

// ============================================================================
// Tool: reset_database
// ============================================================================

type resetDatabaseArgs struct {
	Confirmation string `json:"confirmation"`
}

func (e *GraphToolExecutor) resetDatabase(ctx context.Context, arguments string) (string, error) {
	var args resetDatabaseArgs
	if err := unmarshalArgs(arguments, &args); err != nil {
		return errorResult(CodeInvalidToolCall, fmt.Sprintf("invalid arguments: %v", err), nil), nil
	}

	if args.Confirmation != ResetConfirmationPhrase {
		return errorResult(CodeInvalidToolCall,
			fmt.Sprintf("reset requires the exact confirmation phrase %q; ask the user to confirm first", ResetConfirmationPhrase),
			nil), nil
	}

	if e.reset == nil {
		return errorResult(CodeExecutorUnavailable, "reset not configured", nil), nil
	}

	if err := e.reset.Reset(ctx); err != nil {
		e.logger.Error("Database reset failed", zap.Error(err))
		return errorResultFromErr(err), nil
	}

	e.logger.Warn("Database reset executed via tool call")

	return `{"status": "ok", "message": "All data has been deleted from the database"}`, nil
}

// ============================================================================
// Error results
// ============================================================================

// toolError is the wire shape of a failed tool result.
type toolError struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// errorResult serializes a tool failure for the model.
func errorResult(code, message string, details any) string {
	payload, err := json.Marshal(toolError{Error: true, Code: code, Message: message, Details: details})
	if err != nil {
		return fmt.Sprintf(`{"error": true, "code": %q, "message": %q}`, code, message)
	}
	return string(payload)
}

// errorResultFromErr maps a classified service error to its wire code.
func errorResultFromErr(err error) string {
	return errorResult(CodeForError(err), err.Error(), nil)
}

// CodeForError maps a classified service error to its wire code. The MCP
// tool surface uses the same mapping so both interfaces speak one taxonomy.
func CodeForError(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInvalidToolCall):
		return CodeInvalidToolCall
	case errors.Is(err, apperrors.ErrNoResultAvailable):
		return CodeNoResultAvailable
	case errors.Is(err, apperrors.ErrExecutorUnavailable):
		return CodeExecutorUnavailable
	case errors.Is(err, apperrors.ErrPartialDiscovery):
		return CodePartialDiscoveryFailure
	default:
		return CodeExecutionError
	}
}

// unmarshalArgs decodes tool arguments, treating an empty string as {}.
func unmarshalArgs(arguments string, v any) error {
	if strings.TrimSpace(arguments) == "" {
		return nil
	}
	return json.Unmarshal([]byte(arguments), v)
}
