package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/services"
)

// ExportToolDeps contains dependencies for the CSV export tool.
type ExportToolDeps struct {
	Exports services.ExportService
	Logger  *zap.Logger
}

// RegisterExportTools registers tools for exporting retained results.
func RegisterExportTools(s *server.MCPServer, deps *ExportToolDeps) {
	registerExportToCSVTool(s, deps)
}

// registerExportToCSVTool - Writes the retained result set to a CSV file.
func registerExportToCSVTool(s *server.MCPServer, deps *ExportToolDeps) {
	tool := mcp.NewTool(
		"export_to_csv",
		mcp.WithDescription(
			"Export the most recent query result to a CSV file on the server. "+
				"The file contains every row of the result, not just the preview returned by execute_query. "+
				"Run execute_query first; exporting with no retained result fails with no_result_available.",
		),
		mcp.WithString(
			"filename_hint",
			mcp.Description("Optional base name for the file (e.g. 'airport_routes'). Unsafe characters are replaced and a timestamp is appended."),
		),
		mcp.WithReadOnlyHintAnnotation(false), // Writes a file into the export directory
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		hint, _ := getOptionalString(req, "filename_hint")

		record, err := deps.Exports.Export(ctx, hint)
		if err != nil {
			if IsUserError(err) {
				deps.Logger.Debug("Export tool has nothing to export", zap.Error(err))
			} else {
				deps.Logger.Error("Export tool failed", zap.Error(err))
			}
			return NewErrorResultFromErr(err), nil
		}

		deps.Logger.Info("Exported query result",
			zap.String("filename", record.Filename),
			zap.Int("rows", record.RowCount),
			zap.Int64("size_bytes", record.SizeBytes))

		response := struct {
			Status    string `json:"status"`
			Filename  string `json:"filename"`
			Path      string `json:"path"`
			Rows      int    `json:"rows"`
			SizeBytes int64  `json:"size_bytes"`
		}{
			Status:    "ok",
			Filename:  record.Filename,
			Path:      record.Path,
			Rows:      record.RowCount,
			SizeBytes: record.SizeBytes,
		}

		jsonResult, _ := json.Marshal(response)
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
