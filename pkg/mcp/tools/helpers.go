package tools

import "github.com/mark3labs/mcp-go/mcp"

// getOptionalString extracts an optional string parameter from the request.
// The second return reports whether the parameter was present.
func getOptionalString(req mcp.CallToolRequest, key string) (string, bool) {
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		if val, ok := args[key].(string); ok {
			return val, true
		}
	}
	return "", false
}
