package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/queryscan"
)

const (
	sparqlQueryContentType  = "application/sparql-query"
	sparqlUpdateContentType = "application/sparql-update"
	sparqlResultsAccept     = "application/sparql-results+json"

	// resetSPARQLQuery drops every graph in the store.
	resetSPARQLQuery = "CLEAR ALL"
)

// SPARQLExecutor runs SPARQL queries against an HTTP endpoint following the
// SPARQL 1.1 protocol: the query travels as the raw request body, and update
// operations switch to the update content type and endpoint.
type SPARQLExecutor struct {
	cfg       *config.GraphConfig
	queryURL  string
	updateURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewSPARQLExecutor creates an executor for an HTTP(S) SPARQL endpoint.
// When no update endpoint is configured, updates go to the query endpoint
// with the update content type, which is how Neptune and Fuseki both accept
// them on a combined endpoint.
func NewSPARQLExecutor(cfg *config.GraphConfig, logger *zap.Logger) *SPARQLExecutor {
	queryURL := config.ResolveEndpointForDocker(cfg.Endpoint)
	updateURL := config.ResolveEndpointForDocker(cfg.UpdateEndpoint)
	if updateURL == "" {
		updateURL = queryURL
	}

	return &SPARQLExecutor{
		cfg:       cfg,
		queryURL:  queryURL,
		updateURL: updateURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		},
		logger: logger.Named("graph.sparql"),
	}
}

// sparqlTerm is one bound value in a SPARQL JSON results binding.
type sparqlTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"xml:lang,omitempty"`
}

// sparqlResponse is the SPARQL 1.1 JSON results format. SELECT fills
// head/results; ASK fills boolean.
type sparqlResponse struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean,omitempty"`
}

// Execute runs a SPARQL query or update. Anything the destructive scan
// flags (INSERT, DELETE, CLEAR, ...) is sent as an update; everything else
// as a query expecting the JSON results format.
func (e *SPARQLExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	if queryscan.IsDestructive(query, models.LanguageSPARQL) {
		return e.executeUpdate(ctx, query)
	}
	return e.executeQuery(ctx, query)
}

func (e *SPARQLExecutor) executeQuery(ctx context.Context, query string) (*Result, error) {
	body, _, err := e.post(ctx, e.queryURL, sparqlQueryContentType, query)
	if err != nil {
		return nil, err
	}

	var resp sparqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse SPARQL results: %w", err)
	}

	// ASK queries carry a single boolean instead of bindings.
	if resp.Boolean != nil {
		return &Result{
			Columns: []string{"boolean"},
			Rows:    []map[string]any{{"boolean": *resp.Boolean}},
		}, nil
	}

	rows := make([]map[string]any, 0, len(resp.Results.Bindings))
	for _, binding := range resp.Results.Bindings {
		row := make(map[string]any, len(binding))
		for name, term := range binding {
			row[name] = convertSPARQLTerm(term)
		}
		rows = append(rows, row)
	}

	result := &Result{Columns: resp.Head.Vars, Rows: rows}
	e.logger.Debug("query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", result.RowCount()))
	return result, nil
}

func (e *SPARQLExecutor) executeUpdate(ctx context.Context, query string) (*Result, error) {
	body, contentType, err := e.post(ctx, e.updateURL, sparqlUpdateContentType, query)
	if err != nil {
		return nil, err
	}

	// Update responses are commonly empty or non-JSON; a 2xx is success.
	if !strings.Contains(strings.ToLower(contentType), "json") || len(body) == 0 {
		return &Result{
			Columns: []string{"status"},
			Rows:    []map[string]any{{"status": "success"}},
		}, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return &Result{
			Columns: []string{"status"},
			Rows:    []map[string]any{{"status": "success"}},
		}, nil
	}
	row := make(map[string]any, len(payload)+1)
	row["status"] = "success"
	for k, v := range payload {
		row[k] = v
	}
	return &Result{Columns: columnsFromRows([]map[string]any{row}), Rows: []map[string]any{row}}, nil
}

// post sends the query as the raw request body and returns the response
// body and content type. Non-2xx responses become errors carrying a
// truncated body snippet.
func (e *SPARQLExecutor) post(ctx context.Context, url, contentType, query string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(query))
	if err != nil {
		return nil, "", fmt.Errorf("build SPARQL request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", sparqlResultsAccept)
	if e.cfg.Username != "" {
		req.SetBasicAuth(e.cfg.Username, e.cfg.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("SPARQL endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read SPARQL response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("SPARQL endpoint returned %d: %s",
			resp.StatusCode, logging.TruncateString(string(body), 500))
	}

	return body, resp.Header.Get("Content-Type"), nil
}

// Reset clears every graph in the store.
func (e *SPARQLExecutor) Reset(ctx context.Context) error {
	if _, err := e.executeUpdate(ctx, resetSPARQLQuery); err != nil {
		return fmt.Errorf("sparql reset failed: %w", err)
	}
	e.logger.Warn("database reset executed", zap.String("endpoint", logging.SanitizeEndpoint(e.updateURL)))
	return nil
}

// Ping issues a minimal ASK query to verify the endpoint answers.
func (e *SPARQLExecutor) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := e.executeQuery(pingCtx, "ASK { }"); err != nil {
		return fmt.Errorf("sparql endpoint unreachable: %w", err)
	}
	return nil
}

// Language reports sparql.
func (e *SPARQLExecutor) Language() models.QueryLanguage {
	return models.LanguageSPARQL
}

// Close releases idle connections.
func (e *SPARQLExecutor) Close(ctx context.Context) error {
	e.client.CloseIdleConnections()
	return nil
}

// convertSPARQLTerm maps a JSON results term to a Go value. Typed literals
// become native numbers and booleans so downstream type inference and
// previews see real types; URIs and plain literals stay strings.
func convertSPARQLTerm(term sparqlTerm) any {
	if term.Type != "literal" && term.Type != "typed-literal" {
		return term.Value
	}

	switch {
	case strings.HasSuffix(term.Datatype, "#integer"),
		strings.HasSuffix(term.Datatype, "#int"),
		strings.HasSuffix(term.Datatype, "#long"),
		strings.HasSuffix(term.Datatype, "#short"),
		strings.HasSuffix(term.Datatype, "#byte"),
		strings.HasSuffix(term.Datatype, "#nonNegativeInteger"):
		if n, err := strconv.ParseInt(term.Value, 10, 64); err == nil {
			return n
		}
	case strings.HasSuffix(term.Datatype, "#float"),
		strings.HasSuffix(term.Datatype, "#double"),
		strings.HasSuffix(term.Datatype, "#decimal"):
		if f, err := strconv.ParseFloat(term.Value, 64); err == nil {
			return f
		}
	case strings.HasSuffix(term.Datatype, "#boolean"):
		if b, err := strconv.ParseBool(term.Value); err == nil {
			return b
		}
	}
	return term.Value
}

// Ensure SPARQLExecutor implements Executor at compile time.
var _ Executor = (*SPARQLExecutor)(nil)
