package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/logging"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
	"github.com/graphscout-inc/graphscout-engine/pkg/queryscan"
)

// resetCypherQuery removes every node and relationship in the database.
const resetCypherQuery = "MATCH (n) DETACH DELETE n"

// CypherExecutor runs openCypher queries over a Bolt connection.
type CypherExecutor struct {
	cfg    *config.GraphConfig
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewCypherExecutor creates an executor for a bolt:// or neo4j:// endpoint.
// The driver is lazy; the first Ping or Execute establishes connectivity.
func NewCypherExecutor(cfg *config.GraphConfig, logger *zap.Logger) (*CypherExecutor, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}

	// Inside Docker a localhost endpoint means the host machine.
	endpoint := config.ResolveEndpointForDocker(cfg.Endpoint)

	driver, err := neo4j.NewDriverWithContext(endpoint, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = 10
		c.ConnectionAcquisitionTimeout = 30 * time.Second
		c.MaxTransactionRetryTime = 15 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("create bolt driver for %s: %w", logging.SanitizeEndpoint(cfg.Endpoint), err)
	}

	return &CypherExecutor{
		cfg:    cfg,
		driver: driver,
		logger: logger.Named("graph.cypher"),
	}, nil
}

// Execute runs a cypher query. Read-only queries go through a read
// transaction; anything the destructive scan flags runs in a write
// transaction so the server routes it to a writer.
func (e *CypherExecutor) Execute(ctx context.Context, query string) (*Result, error) {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.cfg.Database,
	})
	defer session.Close(ctx)

	work := func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}

		keys, err := res.Keys()
		if err != nil {
			return nil, err
		}

		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}

		return collectCypherRows(keys, records), nil
	}

	var raw any
	var err error
	if queryscan.IsDestructive(query, models.LanguageCypher) {
		raw, err = session.ExecuteWrite(ctx, work)
	} else {
		raw, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, fmt.Errorf("cypher execution failed: %w", err)
	}

	result := raw.(*Result)
	e.logger.Debug("query executed",
		zap.String("query", logging.SanitizeQuery(query)),
		zap.Int("rows", result.RowCount()))
	return result, nil
}

// Reset deletes all nodes and relationships.
func (e *CypherExecutor) Reset(ctx context.Context) error {
	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: e.cfg.Database,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, resetCypherQuery, nil)
		if err != nil {
			return nil, err
		}
		return nil, res.Err()
	})
	if err != nil {
		return fmt.Errorf("cypher reset failed: %w", err)
	}

	e.logger.Warn("database reset executed", zap.String("database", e.cfg.Database))
	return nil
}

// Ping verifies connectivity and credentials.
func (e *CypherExecutor) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := e.driver.VerifyConnectivity(pingCtx); err != nil {
		return fmt.Errorf("bolt endpoint unreachable: %w", err)
	}
	return nil
}

// Language reports cypher.
func (e *CypherExecutor) Language() models.QueryLanguage {
	return models.LanguageCypher
}

// Close shuts down the driver and its connection pool.
func (e *CypherExecutor) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

// collectCypherRows converts driver records into plain rows, preserving
// the record key order as the column order.
func collectCypherRows(keys []string, records []*neo4j.Record) *Result {
	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = normalizeCypherValue(record.Values[i])
		}
		rows = append(rows, row)
	}
	return &Result{Columns: keys, Rows: rows}
}

// normalizeCypherValue converts driver-specific types into plain Go values
// so rows survive JSON serialization and CSV flattening. Nodes collapse to
// their property map plus identity fields, matching what the other backends
// produce for vertices.
func normalizeCypherValue(v any) any {
	switch val := v.(type) {
	case neo4j.Node:
		m := map[string]any{
			"id":    val.ElementId,
			"type":  "vertex",
			"label": joinLabels(val.Labels),
		}
		for k, p := range val.Props {
			m[k] = normalizeCypherValue(p)
		}
		return m
	case neo4j.Relationship:
		m := map[string]any{
			"id":    val.ElementId,
			"type":  "edge",
			"label": val.Type,
			"outV":  val.StartElementId,
			"inV":   val.EndElementId,
		}
		for k, p := range val.Props {
			m[k] = normalizeCypherValue(p)
		}
		return m
	case neo4j.Path:
		hops := make([]any, 0, len(val.Nodes)+len(val.Relationships))
		for _, n := range val.Nodes {
			hops = append(hops, normalizeCypherValue(n))
		}
		for _, r := range val.Relationships {
			hops = append(hops, normalizeCypherValue(r))
		}
		return hops
	case neo4j.Date:
		return val.Time().Format("2006-01-02")
	case neo4j.LocalDateTime:
		return val.Time().Format(time.RFC3339)
	case neo4j.LocalTime:
		return val.Time().Format("15:04:05")
	case neo4j.Time:
		return val.Time().Format("15:04:05Z07:00")
	case neo4j.Duration:
		return val.String()
	case neo4j.Point2D:
		return val.String()
	case neo4j.Point3D:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeCypherValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeCypherValue(item)
		}
		return out
	default:
		return v
	}
}

func joinLabels(labels []string) string {
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return labels[0]
	}
	joined := labels[0]
	for _, l := range labels[1:] {
		joined += ":" + l
	}
	return joined
}

// Ensure CypherExecutor implements Executor at compile time.
var _ Executor = (*CypherExecutor)(nil)
