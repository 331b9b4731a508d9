package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/llm"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

func newTestSchemaService(t *testing.T, executor graph.Executor, client llm.ChatClient, enrich bool) (*schemaService, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema", "user_schema.json")
	svc := NewSchemaService(&SchemaServiceConfig{
		Executor: executor,
		Client:   client,
		Config: config.SchemaConfig{
			Path:               path,
			SampleVertices:     2,
			SampleValues:       10,
			EnrichDescriptions: enrich,
			EnrichWorkers:      2,
		},
		Endpoint: "wss://db.example.com:8182/gremlin",
		Logger:   zap.NewNop(),
	}).(*schemaService)
	return svc, path
}

func scriptGremlinGraph(executor *scriptedExecutor) {
	executor.on("g.V().label().groupCount()", &graph.Result{
		Columns: []string{"airport", "country"},
		Rows:    []map[string]any{{"airport": int64(3), "country": int64(1)}},
	})
	executor.on("g.V().hasLabel('airport').limit(2).valueMap()", &graph.Result{
		Columns: []string{"city", "code"},
		Rows: []map[string]any{
			{"code": []any{"ZRH"}, "city": []any{"Zurich"}},
			{"code": []any{"GVA"}, "city": []any{"Geneva"}},
		},
	})
	executor.on("g.V().hasLabel('country').limit(2).valueMap()", &graph.Result{
		Columns: []string{"name"},
		Rows:    []map[string]any{{"name": []any{"Switzerland"}}},
	})
	executor.on("g.E().label().groupCount()", &graph.Result{
		Columns: []string{"route"},
		Rows:    []map[string]any{{"route": int64(5)}},
	})
	executor.on("g.E().hasLabel('route').limit(2).valueMap()", &graph.Result{
		Columns: []string{"dist"},
		Rows:    []map[string]any{{"dist": []any{int64(120)}}},
	})
	executor.on("g.E().hasLabel('route').limit(1).project('from','to').by(outV().label()).by(inV().label())", &graph.Result{
		Columns: []string{"from", "to"},
		Rows:    []map[string]any{{"from": "airport", "to": "airport"}},
	})
}

func TestSchemaService_Discover_Gremlin(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	scriptGremlinGraph(executor)
	svc, path := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, models.LanguageGremlin, doc.DatabaseInfo.Language)
	assert.Equal(t, "wss://db.example.com:8182/gremlin", doc.DatabaseInfo.Endpoint)
	assert.False(t, doc.DatabaseInfo.SampledAt.IsZero())
	assert.False(t, doc.DatabaseInfo.Incomplete)
	assert.Empty(t, doc.DatabaseInfo.FailedProbes)

	require.Len(t, doc.Vertices, 2)
	assert.Equal(t, "airport", doc.Vertices[0].Label, "types are ordered by count")
	assert.Equal(t, int64(3), doc.Vertices[0].Count)
	assert.Equal(t, "country", doc.Vertices[1].Label)

	require.Len(t, doc.Vertices[0].Properties, 2)
	city := doc.Vertices[0].Properties[0]
	assert.Equal(t, "city", city.Name)
	assert.Equal(t, models.PropertyTypeString, city.DataType)
	assert.Contains(t, city.Examples, "Zurich")

	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "route", doc.Edges[0].Label)
	assert.Equal(t, "airport", doc.Edges[0].From)
	assert.Equal(t, "airport", doc.Edges[0].To)
	assert.Equal(t, int64(5), doc.Edges[0].Count)
	require.Len(t, doc.Edges[0].Properties, 1)
	assert.Equal(t, models.PropertyTypeInteger, doc.Edges[0].Properties[0].DataType)

	// The document is persisted for the next session.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var persisted models.SchemaDocument
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Len(t, persisted.Vertices, 2)
	require.Len(t, persisted.Edges, 1)
	assert.Equal(t, "airport", persisted.Edges[0].From, "endpoints survive the round trip to disk")
	assert.Equal(t, "airport", persisted.Edges[0].To)

	assert.Same(t, doc, svc.Current())
}

func TestSchemaService_Discover_PartialFailureKeepsSuccesses(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	executor.on("g.V().label().groupCount()", &graph.Result{
		Columns: []string{"airport"},
		Rows:    []map[string]any{{"airport": int64(3)}},
	})
	executor.failOn("g.V().hasLabel('airport').limit(2).valueMap()", errors.New("lock timeout"))
	executor.on("g.E().label().groupCount()", &graph.Result{Columns: []string{}, Rows: nil})
	svc, _ := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Discover(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPartialDiscovery)
	require.NotNil(t, doc, "partial discovery still returns the document")

	assert.True(t, doc.DatabaseInfo.Incomplete)
	assert.Contains(t, doc.DatabaseInfo.FailedProbes, "vertex property sample for airport")

	require.Len(t, doc.Vertices, 1)
	assert.Equal(t, "airport", doc.Vertices[0].Label)
	assert.Equal(t, int64(3), doc.Vertices[0].Count)
	assert.Empty(t, doc.Vertices[0].Properties)
}

func TestSchemaService_Discover_TransportFailureAborts(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	executor.failOn("g.V().label().groupCount()", errors.New("dial tcp: connection refused"))
	svc, path := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Discover(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExecutorUnavailable)
	assert.Nil(t, doc)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "an aborted pass must not overwrite the persisted schema")
}

func TestSchemaService_Discover_MergesWithPersisted(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	scriptGremlinGraph(executor)
	svc, path := newTestSchemaService(t, executor, nil, false)

	previous := &models.SchemaDocument{
		DatabaseInfo: models.DatabaseInfo{
			Language:  models.LanguageGremlin,
			SampledAt: time.Now().Add(-24 * time.Hour),
		},
		Vertices: []models.VertexType{
			{Label: "legacy", Count: 9},
			{Label: "airport", Count: 2, Description: "A place planes land."},
		},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	data, err := json.Marshal(previous)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Vertices, 3, "union keeps types the fresh pass did not see")

	airport := doc.VertexByLabel("airport")
	require.NotNil(t, airport)
	assert.Equal(t, int64(3), airport.Count, "fresher count wins")
	assert.Equal(t, "A place planes land.", airport.Description, "resample must not erase descriptions")

	legacy := doc.VertexByLabel("legacy")
	require.NotNil(t, legacy)
	assert.Equal(t, int64(9), legacy.Count)
}

func TestSchemaService_Discover_Cypher(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageCypher)
	executor.on("CALL db.labels()", &graph.Result{
		Columns: []string{"label"},
		Rows:    []map[string]any{{"label": "Person"}},
	})
	executor.on("MATCH (n:`Person`) RETURN count(n) AS count", &graph.Result{
		Columns: []string{"count"},
		Rows:    []map[string]any{{"count": int64(7)}},
	})
	executor.on("MATCH (n:`Person`) RETURN n LIMIT 2", &graph.Result{
		Columns: []string{"n"},
		Rows: []map[string]any{
			{"n": map[string]any{"id": "4:abc:1", "type": "vertex", "label": "Person", "name": "Alice", "age": int64(30)}},
			{"n": map[string]any{"id": "4:abc:2", "type": "vertex", "label": "Person", "name": "Bob", "age": int64(25)}},
		},
	})
	executor.on("CALL db.relationshipTypes()", &graph.Result{
		Columns: []string{"relationshipType"},
		Rows:    []map[string]any{{"relationshipType": "KNOWS"}},
	})
	executor.on("MATCH ()-[r:`KNOWS`]->() RETURN count(r) AS count", &graph.Result{
		Columns: []string{"count"},
		Rows:    []map[string]any{{"count": int64(4)}},
	})
	executor.on("MATCH ()-[r:`KNOWS`]->() RETURN r LIMIT 2", &graph.Result{
		Columns: []string{"r"},
		Rows: []map[string]any{
			{"r": map[string]any{"id": "5:x", "type": "edge", "label": "KNOWS", "outV": "1", "inV": "2", "since": int64(2020)}},
		},
	})
	executor.on("MATCH (a)-[r:`KNOWS`]->(b) RETURN labels(a) AS from, labels(b) AS to LIMIT 1", &graph.Result{
		Columns: []string{"from", "to"},
		Rows:    []map[string]any{{"from": []any{"Person"}, "to": []any{"Person"}}},
	})
	svc, _ := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Vertices, 1)

	person := doc.Vertices[0]
	assert.Equal(t, "Person", person.Label)
	assert.Equal(t, int64(7), person.Count)
	require.Len(t, person.Properties, 2, "identity fields are not properties")
	assert.Equal(t, "age", person.Properties[0].Name)
	assert.Equal(t, models.PropertyTypeInteger, person.Properties[0].DataType)
	assert.Equal(t, "name", person.Properties[1].Name)

	require.Len(t, doc.Edges, 1)
	knows := doc.Edges[0]
	assert.Equal(t, "KNOWS", knows.Label)
	assert.Equal(t, "Person", knows.From, "endpoint sample resolves node labels")
	assert.Equal(t, "Person", knows.To)
	assert.Equal(t, int64(4), knows.Count)
	require.Len(t, knows.Properties, 1)
	assert.Equal(t, "since", knows.Properties[0].Name)
}

func TestSchemaService_Discover_SPARQL(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageSPARQL)
	executor.on(sparqlClassCensusQuery, &graph.Result{
		Columns: []string{"type", "count"},
		Rows: []map[string]any{
			{"type": "http://example.org/ont#Person", "count": int64(10)},
		},
	})
	executor.on("SELECT ?p ?o WHERE { ?s a <http://example.org/ont#Person> . ?s ?p ?o } LIMIT 10", &graph.Result{
		Columns: []string{"p", "o"},
		Rows: []map[string]any{
			{"p": "http://example.org/ont#name", "o": "Alice"},
			{"p": "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", "o": "http://example.org/ont#Person"},
			{"p": "http://example.org/ont#age", "o": int64(30)},
		},
	})
	executor.on(sparqlPredicateCensusQuery, &graph.Result{
		Columns: []string{"p", "count"},
		Rows: []map[string]any{
			{"p": "http://example.org/ont#knows", "count": int64(5)},
			{"p": "http://www.w3.org/1999/02/22-rdf-syntax-ns#type", "count": int64(10)},
		},
	})
	executor.on("SELECT ?from ?to WHERE { ?s <http://example.org/ont#knows> ?o . ?s a ?from . ?o a ?to } LIMIT 1", &graph.Result{
		Columns: []string{"from", "to"},
		Rows: []map[string]any{
			{"from": "http://example.org/ont#Person", "to": "http://example.org/ont#Person"},
		},
	})
	svc, _ := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Vertices, 1)

	person := doc.Vertices[0]
	assert.Equal(t, "Person", person.Label, "class URIs reduce to local names")
	assert.Equal(t, int64(10), person.Count)
	require.Len(t, person.Properties, 2, "rdf:type is not a property")
	assert.Equal(t, "age", person.Properties[0].Name)
	assert.Equal(t, models.PropertyTypeInteger, person.Properties[0].DataType)

	require.Len(t, doc.Edges, 1)
	assert.Equal(t, "knows", doc.Edges[0].Label)
	assert.Equal(t, "Person", doc.Edges[0].From, "endpoint classes reduce to local names")
	assert.Equal(t, "Person", doc.Edges[0].To)

	require.NotNil(t, doc.RDFNamespaces)
	assert.Equal(t, "http://example.org/ont#", doc.RDFNamespaces["ont"])
}

func TestSchemaService_Discover_EnrichmentFillsDescriptions(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	executor.on("g.V().label().groupCount()", &graph.Result{
		Columns: []string{"airport"},
		Rows:    []map[string]any{{"airport": int64(3)}},
	})
	executor.on("g.V().hasLabel('airport').limit(2).valueMap()", &graph.Result{
		Columns: []string{"code"},
		Rows:    []map[string]any{{"code": []any{"ZRH"}}},
	})
	executor.on("g.E().label().groupCount()", &graph.Result{Columns: []string{}, Rows: nil})

	client := &scriptedChatClient{}
	client.generations = append(client.generations,
		`{"description":"An airport served by at least one route.","properties":{"code":"IATA airport code"}}`)
	svc, _ := newTestSchemaService(t, executor, client, true)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Vertices, 1)
	assert.Equal(t, "An airport served by at least one route.", doc.Vertices[0].Description)
	require.Len(t, doc.Vertices[0].Properties, 1)
	assert.Equal(t, "IATA airport code", doc.Vertices[0].Properties[0].Description)
}

func TestSchemaService_Discover_EnrichmentToleratesNonStringValues(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	executor.on("g.V().label().groupCount()", &graph.Result{
		Columns: []string{"airport"},
		Rows:    []map[string]any{{"airport": int64(3)}},
	})
	executor.on("g.V().hasLabel('airport').limit(2).valueMap()", &graph.Result{
		Columns: []string{"code"},
		Rows:    []map[string]any{{"code": []any{"ZRH"}}},
	})
	executor.on("g.E().label().groupCount()", &graph.Result{Columns: []string{}, Rows: nil})

	client := &scriptedChatClient{}
	client.generations = append(client.generations,
		`{"description": "Airports.", "properties": {"code": 747}}`)
	svc, _ := newTestSchemaService(t, executor, client, true)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err)
	require.Len(t, doc.Vertices, 1)
	require.Len(t, doc.Vertices[0].Properties, 1)
	assert.Equal(t, "747", doc.Vertices[0].Properties[0].Description,
		"non-string property descriptions convert instead of failing the parse")
}

func TestSchemaService_Discover_EnrichmentFailureIsTolerated(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	executor.on("g.V().label().groupCount()", &graph.Result{
		Columns: []string{"airport"},
		Rows:    []map[string]any{{"airport": int64(3)}},
	})
	executor.on("g.V().hasLabel('airport').limit(2).valueMap()", &graph.Result{
		Columns: []string{"code"},
		Rows:    []map[string]any{{"code": []any{"ZRH"}}},
	})
	executor.on("g.E().label().groupCount()", &graph.Result{Columns: []string{}, Rows: nil})

	// No scripted generations: every enrichment call fails.
	svc, _ := newTestSchemaService(t, executor, &scriptedChatClient{}, true)

	doc, err := svc.Discover(context.Background())

	require.NoError(t, err, "enrichment failures must not fail discovery")
	require.Len(t, doc.Vertices, 1)
	assert.Empty(t, doc.Vertices[0].Description)
}

func TestSchemaService_Load_MissingFile(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	svc, _ := newTestSchemaService(t, executor, nil, false)

	doc, err := svc.Load()

	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestSchemaService_Current_LazyLoadsPersisted(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	svc, path := newTestSchemaService(t, executor, nil, false)

	persisted := &models.SchemaDocument{
		Vertices: []models.VertexType{{Label: "airport", Count: 3}},
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	data, err := json.Marshal(persisted)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	doc := svc.Current()

	require.NotNil(t, doc)
	assert.Equal(t, "airport", doc.Vertices[0].Label)
	assert.Empty(t, executor.executed, "Current must not probe the backend")
}

func TestSchemaService_Current_NothingSampled(t *testing.T) {
	executor := newScriptedExecutor(models.LanguageGremlin)
	svc, _ := newTestSchemaService(t, executor, nil, false)

	assert.Nil(t, svc.Current())
}
