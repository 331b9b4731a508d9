package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// resetGremlinQuery drops every vertex (and with them every edge).
const resetGremlinQuery = "g.V().drop()"

// GremlinExecutor runs Gremlin traversals against an HTTP endpoint (the
// TinkerPop HTTP channelizer or Neptune's /gremlin endpoint).
type GremlinExecutor struct {
	cfg      *config.GraphConfig
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewGremlinExecutor creates an executor for an HTTP(S) Gremlin endpoint.
func NewGremlinExecutor(cfg *config.GraphConfig, logger *zap.Logger) *GremlinExecutor {
	return &GremlinExecutor{
		cfg:      cfg,
		endpoint: config.ResolveEndpointForDocker(cfg.Endpoint),
		client: &http.Client{
			Timeout: time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		},
		logger: logger.Named("graph.gremlin"),
	}
}

// gremlinResponse is the HTTP response envelope. The data payload may be a
// plain JSON array or a GraphSON-typed g:List depending on the server's
// serializer version.
type gremlinResponse struct {
	RequestID string `json:"requestId"`
	Status    struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"status"`
	Result struct {
		Data json.RawMessage `json:"data"`
	} `json:"result"`
}

// Execute submits the traversal and flattens the response into rows.
// Vertices and edges collapse to identity fields plus properties; scalar
// results become single-column "value" rows.
func (e *GremlinExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	payload, err := json.Marshal(map[string]string{"gremlin": query})
	if err != nil {
		return nil, fmt.Errorf("encode gremlin request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gremlin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.Username != "" {
		req.SetBasicAuth(e.cfg.Username, e.cfg.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gremlin endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read gremlin response: %w", err)
	}

	var envelope gremlinResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("gremlin endpoint returned %d: %s",
				resp.StatusCode, logging.TruncateString(string(body), 500))
		}
		return nil, fmt.Errorf("parse gremlin response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := envelope.Status.Message
		if msg == "" {
			msg = logging.TruncateString(string(body), 500)
		}
		return nil, fmt.Errorf("gremlin query failed (%d): %s", resp.StatusCode, msg)
	}

	rows, err := flattenGremlinData(envelope.Result.Data)
	if err != nil {
		return nil, err
	}

	result := &Result{Columns: columnsFromRows(rows), Rows: rows}
	e.logger.Debug("query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", result.RowCount()))
	return result, nil
}

// Reset drops every vertex in the graph.
func (e *GremlinExecutor) Reset(ctx context.Context) error {
	if _, err := e.Execute(ctx, resetGremlinQuery); err != nil {
		return fmt.Errorf("gremlin reset failed: %w", err)
	}
	e.logger.Warn("database reset executed", zap.String("endpoint", logging.SanitizeEndpoint(e.endpoint)))
	return nil
}

// Ping injects a constant to verify the endpoint evaluates traversals.
func (e *GremlinExecutor) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := e.Execute(pingCtx, "g.inject(0)"); err != nil {
		return fmt.Errorf("gremlin endpoint unreachable: %w", err)
	}
	return nil
}

// Language reports gremlin.
func (e *GremlinExecutor) Language() models.QueryLanguage {
	return models.LanguageGremlin
}

// Close releases idle connections.
func (e *GremlinExecutor) Close(ctx context.Context) error {
	e.client.CloseIdleConnections()
	return nil
}

// flattenGremlinData turns the result payload into one map per item.
// Map-shaped items become rows directly; scalars land under a "value"
// column so mixed result shapes still tabulate.
func flattenGremlinData(data json.RawMessage) ([]map[string]any, error) {
	if len(data) == 0 || string(data) == "null" {
		return []map[string]any{}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse gremlin data: %w", err)
	}

	items, ok := unwrapGraphSON(raw).([]any)
	if !ok {
		items = []any{unwrapGraphSON(raw)}
	}

	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, m)
			continue
		}
		rows = append(rows, map[string]any{"value": item})
	}
	return rows, nil
}

// unwrapGraphSON strips GraphSON v2/v3 type wrappers recursively. Plain
// JSON (GraphSON v1 / untyped serializers) passes through with its values
// unwrapped in place.
func unwrapGraphSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		typ, hasType := val["@type"].(string)
		inner, hasValue := val["@value"]
		if hasType && hasValue {
			return unwrapTyped(typ, inner)
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = unwrapGraphSON(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = unwrapGraphSON(item)
		}
		return out
	default:
		return v
	}
}

func unwrapTyped(typ string, inner any) any {
	switch typ {
	case "g:Vertex":
		return flattenVertex(inner)
	case "g:Edge":
		return flattenEdge(inner)
	case "g:Map":
		return flattenGraphSONMap(inner)
	case "g:List", "g:Set":
		return unwrapGraphSON(inner)
	case "g:Int32", "g:Int64":
		if f, ok := inner.(float64); ok {
			return int64(f)
		}
		return unwrapGraphSON(inner)
	case "g:Float", "g:Double":
		return unwrapGraphSON(inner)
	case "g:Date", "g:Timestamp":
		if f, ok := inner.(float64); ok {
			return time.UnixMilli(int64(f)).UTC().Format(time.RFC3339)
		}
		return unwrapGraphSON(inner)
	case "g:VertexProperty", "g:Property":
		if m, ok := inner.(map[string]any); ok {
			return unwrapGraphSON(m["value"])
		}
		return unwrapGraphSON(inner)
	default:
		return unwrapGraphSON(inner)
	}
}

// flattenVertex collapses a GraphSON vertex to its identity fields plus
// first property values, the shape the other backends produce for nodes.
func flattenVertex(inner any) any {
	data, ok := inner.(map[string]any)
	if !ok {
		return unwrapGraphSON(inner)
	}

	row := map[string]any{
		"id":    unwrapGraphSON(data["id"]),
		"label": unwrapGraphSON(data["label"]),
		"type":  "vertex",
	}

	props, ok := data["properties"].(map[string]any)
	if !ok {
		return row
	}
	for name, values := range props {
		// Vertex properties are lists; keep the first value.
		if list, ok := values.([]any); ok && len(list) > 0 {
			row[name] = propertyValue(unwrapGraphSON(list[0]))
			continue
		}
		row[name] = propertyValue(unwrapGraphSON(values))
	}
	return row
}

// propertyValue extracts the scalar from the {"id": ..., "value": ...}
// property shape that untyped serializers leave behind.
func propertyValue(v any) any {
	if m, ok := v.(map[string]any); ok {
		if val, exists := m["value"]; exists {
			return val
		}
	}
	return v
}

// flattenEdge collapses a GraphSON edge to identity and endpoint fields
// plus properties.
func flattenEdge(inner any) any {
	data, ok := inner.(map[string]any)
	if !ok {
		return unwrapGraphSON(inner)
	}

	row := map[string]any{
		"id":    unwrapGraphSON(data["id"]),
		"label": unwrapGraphSON(data["label"]),
		"type":  "edge",
		"outV":  unwrapGraphSON(data["outV"]),
		"inV":   unwrapGraphSON(data["inV"]),
	}

	if props, ok := data["properties"].(map[string]any); ok {
		for name, value := range props {
			row[name] = unwrapGraphSON(value)
		}
	}
	return row
}

// flattenGraphSONMap converts the alternating key/value list of a typed
// g:Map into a plain map with string keys.
func flattenGraphSONMap(inner any) any {
	list, ok := inner.([]any)
	if !ok {
		return unwrapGraphSON(inner)
	}

	out := make(map[string]any, len(list)/2)
	for i := 0; i+1 < len(list); i += 2 {
		key := unwrapGraphSON(list[i])
		out[fmt.Sprintf("%v", key)] = unwrapGraphSON(list[i+1])
	}
	return out
}

// Ensure GremlinExecutor implements Executor at compile time.
var _ Executor = (*GremlinExecutor)(nil)
