package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

// TestServer_HTTPRoundTrip verifies a tools/call request posted to the
// streamable HTTP transport reaches the registered handler and the
// handler's result comes back in the response body.
func TestServer_HTTPRoundTrip(t *testing.T) {
	handlerCalled := false

	s := NewServer("test-server", "1.0.0", nil, zap.NewNop())

	tool := mcp.NewTool("echo", mcp.WithDescription("Returns a fixed payload"))
	s.RegisterTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		handlerCalled = true
		return mcp.NewToolResultText(`{"status":"ok"}`), nil
	})

	httpServer := s.NewStreamableHTTPServer()

	toolCallRequest := map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"params": map[string]any{
			"name": "echo",
		},
		"id": 1,
	}
	body, _ := json.Marshal(toolCallRequest)

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	rec := httptest.NewRecorder()
	httpServer.ServeHTTP(rec, req)

	if !handlerCalled {
		t.Fatal("expected tool handler to run for the posted tools/call request")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"status\":\"ok\"`)) &&
		!bytes.Contains(rec.Body.Bytes(), []byte(`"status":"ok"`)) {
		t.Errorf("expected handler payload in response, got: %s", rec.Body.String())
	}
}
