package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/graphscout-inc/graphscout-engine/pkg/apperrors"
	"github.com/graphscout-inc/graphscout-engine/pkg/config"
	"github.com/graphscout-inc/graphscout-engine/pkg/graph"
	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// maxTypesProbed caps how many vertex and edge types get per-type detail
// probes. The census always reports every type; only the property and
// count probes are capped.
const maxTypesProbed = 25

// prober runs the sequential probe sequence for one discovery pass and
// collects the names of the probes that failed.
type prober struct {
	executor     graph.Executor
	cfg          config.SchemaConfig
	logger       *zap.Logger
	failedProbes []string
}

func newProber(executor graph.Executor, cfg config.SchemaConfig, logger *zap.Logger) *prober {
	return &prober{executor: executor, cfg: cfg, logger: logger}
}

// census runs the opening probe of a pass. A transport-level failure here
// aborts discovery: the endpoint is gone, and every later probe would
// fail the same way. Any other failure is recorded and the pass
// continues with nothing sampled from this probe.
func (p *prober) census(ctx context.Context, name, query string) (*graph.Result, error) {
	result, err := p.executor.Execute(ctx, query)
	if err != nil {
		if isTransportError(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrExecutorUnavailable, err)
		}
		p.fail(name, err)
		return nil, nil
	}
	return result, nil
}

// run executes one mid-pass probe. A nil result means the probe failed
// and was recorded; the pass continues.
func (p *prober) run(ctx context.Context, name, query string) *graph.Result {
	result, err := p.executor.Execute(ctx, query)
	if err != nil {
		p.fail(name, err)
		return nil
	}
	return result
}

func (p *prober) fail(name string, err error) {
	p.logger.Warn("schema probe failed",
		zap.String("probe", name),
		zap.Error(err))
	p.failedProbes = append(p.failedProbes, name)
}

// ----------------------------------------------------------------------------
// SPARQL
// ----------------------------------------------------------------------------

const (
	sparqlClassCensusQuery = `SELECT ?type (COUNT(?s) AS ?count)
WHERE { ?s a ?type }
GROUP BY ?type
ORDER BY DESC(?count)`

	sparqlPredicateCensusQuery = `SELECT ?p (COUNT(*) AS ?count)
WHERE { ?s ?p ?o . FILTER(isIRI(?o)) }
GROUP BY ?p
ORDER BY DESC(?count)
LIMIT 100`
)

func (p *prober) probeSPARQL(ctx context.Context) (*models.SchemaDocument, error) {
	doc := &models.SchemaDocument{}
	namespaces := newNamespaceIndex()

	census, err := p.census(ctx, "class census", sparqlClassCensusQuery)
	if err != nil {
		return nil, err
	}

	type sparqlClass struct {
		uri   string
		count int64
	}
	var classes []sparqlClass
	if census != nil {
		for _, row := range census.Rows {
			uri, _ := row["type"].(string)
			if uri == "" {
				continue
			}
			classes = append(classes, sparqlClass{uri: uri, count: toInt64(row["count"])})
		}
	}

	for i, class := range classes {
		vertex := models.VertexType{
			Label: namespaces.localName(class.uri),
			Count: class.count,
		}
		if i < maxTypesProbed {
			vertex.Properties = p.sampleSPARQLProperties(ctx, class.uri, namespaces)
		}
		doc.Vertices = append(doc.Vertices, vertex)
	}

	// IRI-valued predicates read as edges between resources.
	if predicates := p.run(ctx, "predicate census", sparqlPredicateCensusQuery); predicates != nil {
		for _, row := range predicates.Rows {
			uri, _ := row["p"].(string)
			if uri == "" || isRDFTypePredicate(uri) {
				continue
			}
			edge := models.EdgeType{
				Label: namespaces.localName(uri),
				Count: toInt64(row["count"]),
			}
			if len(doc.Edges) < maxTypesProbed {
				edge.From, edge.To = p.sampleSPARQLEndpoints(ctx, uri, namespaces)
			}
			doc.Edges = append(doc.Edges, edge)
		}
	}

	doc.RDFNamespaces = namespaces.prefixes()
	sortSchemaTypes(doc)
	return doc, nil
}

// sampleSPARQLProperties samples predicate/object pairs for one class and
// accumulates literal-valued properties.
func (p *prober) sampleSPARQLProperties(ctx context.Context, classURI string, namespaces *namespaceIndex) []models.PropertyInfo {
	query := fmt.Sprintf("SELECT ?p ?o WHERE { ?s a <%s> . ?s ?p ?o } LIMIT %d",
		classURI, p.cfg.SampleValues)

	sample := p.run(ctx, fmt.Sprintf("property sample for %s", namespaces.localName(classURI)), query)
	if sample == nil {
		return nil
	}

	props := newPropertyAccumulator()
	for _, row := range sample.Rows {
		predicate, _ := row["p"].(string)
		if predicate == "" || isRDFTypePredicate(predicate) {
			continue
		}
		props.observe(namespaces.localName(predicate), row["o"])
	}
	return props.build()
}

// sampleSPARQLEndpoints resolves the subject and object classes one
// instance of a predicate connects. Predicates whose endpoints carry no
// rdf:type yield nothing.
func (p *prober) sampleSPARQLEndpoints(ctx context.Context, predicateURI string, namespaces *namespaceIndex) (string, string) {
	query := fmt.Sprintf("SELECT ?from ?to WHERE { ?s <%s> ?o . ?s a ?from . ?o a ?to } LIMIT 1",
		predicateURI)

	sample := p.run(ctx, fmt.Sprintf("edge endpoint sample for %s", namespaces.localName(predicateURI)), query)
	if sample == nil || len(sample.Rows) == 0 {
		return "", ""
	}
	from, _ := sample.Rows[0]["from"].(string)
	to, _ := sample.Rows[0]["to"].(string)
	if from == "" || to == "" {
		return "", ""
	}
	return namespaces.localName(from), namespaces.localName(to)
}

func isRDFTypePredicate(uri string) bool {
	return uri == "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
}

// ----------------------------------------------------------------------------
// Gremlin
// ----------------------------------------------------------------------------

func (p *prober) probeGremlin(ctx context.Context) (*models.SchemaDocument, error) {
	doc := &models.SchemaDocument{}

	census, err := p.census(ctx, "vertex label census", "g.V().label().groupCount()")
	if err != nil {
		return nil, err
	}
	for _, entry := range groupCountEntries(census) {
		doc.Vertices = append(doc.Vertices, models.VertexType{Label: entry.label, Count: entry.count})
	}

	for i := range doc.Vertices {
		if i >= maxTypesProbed {
			break
		}
		v := &doc.Vertices[i]
		query := fmt.Sprintf("g.V().hasLabel('%s').limit(%d).valueMap()",
			escapeGremlinString(v.Label), p.cfg.SampleVertices)
		if sample := p.run(ctx, fmt.Sprintf("vertex property sample for %s", v.Label), query); sample != nil {
			v.Properties = gremlinProperties(sample)
		}
	}

	edgeCensus := p.run(ctx, "edge label census", "g.E().label().groupCount()")
	for _, entry := range groupCountEntries(edgeCensus) {
		doc.Edges = append(doc.Edges, models.EdgeType{Label: entry.label, Count: entry.count})
	}

	for i := range doc.Edges {
		if i >= maxTypesProbed {
			break
		}
		e := &doc.Edges[i]
		query := fmt.Sprintf("g.E().hasLabel('%s').limit(%d).valueMap()",
			escapeGremlinString(e.Label), p.cfg.SampleVertices)
		if sample := p.run(ctx, fmt.Sprintf("edge property sample for %s", e.Label), query); sample != nil {
			e.Properties = gremlinProperties(sample)
		}

		endpointQuery := fmt.Sprintf("g.E().hasLabel('%s').limit(1).project('from','to').by(outV().label()).by(inV().label())",
			escapeGremlinString(e.Label))
		if sample := p.run(ctx, fmt.Sprintf("edge endpoint sample for %s", e.Label), endpointQuery); sample != nil && len(sample.Rows) > 0 {
			e.From, _ = sample.Rows[0]["from"].(string)
			e.To, _ = sample.Rows[0]["to"].(string)
		}
	}

	sortSchemaTypes(doc)
	return doc, nil
}

type labelCount struct {
	label string
	count int64
}

// groupCountEntries flattens a label().groupCount() result: one row whose
// keys are the labels and whose values are the counts.
func groupCountEntries(result *graph.Result) []labelCount {
	if result == nil {
		return nil
	}

	var entries []labelCount
	for _, row := range result.Rows {
		for label, count := range row {
			entries = append(entries, labelCount{label: label, count: toInt64(count)})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].label < entries[j].label
	})
	return entries
}

// gremlinProperties accumulates valueMap() samples. Property values
// arrive as lists; every element counts as one observation.
func gremlinProperties(sample *graph.Result) []models.PropertyInfo {
	props := newPropertyAccumulator()
	for _, row := range sample.Rows {
		for name, value := range row {
			switch name {
			case "id", "label", "type":
				continue
			}
			if list, ok := value.([]any); ok {
				for _, item := range list {
					props.observe(name, item)
				}
				continue
			}
			props.observe(name, value)
		}
	}
	return props.build()
}

// escapeGremlinString escapes a label for embedding in single quotes.
func escapeGremlinString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// ----------------------------------------------------------------------------
// Cypher
// ----------------------------------------------------------------------------

func (p *prober) probeCypher(ctx context.Context) (*models.SchemaDocument, error) {
	doc := &models.SchemaDocument{}

	labels, err := p.census(ctx, "label census", "CALL db.labels()")
	if err != nil {
		return nil, err
	}
	if labels != nil {
		for _, row := range labels.Rows {
			if label := singleString(row, "label"); label != "" {
				doc.Vertices = append(doc.Vertices, models.VertexType{Label: label})
			}
		}
	}

	for i := range doc.Vertices {
		if i >= maxTypesProbed {
			break
		}
		v := &doc.Vertices[i]
		ident := escapeCypherIdent(v.Label)

		countQuery := fmt.Sprintf("MATCH (n:`%s`) RETURN count(n) AS count", ident)
		if res := p.run(ctx, fmt.Sprintf("count for %s", v.Label), countQuery); res != nil && len(res.Rows) > 0 {
			v.Count = toInt64(res.Rows[0]["count"])
		}

		sampleQuery := fmt.Sprintf("MATCH (n:`%s`) RETURN n LIMIT %d", ident, p.cfg.SampleVertices)
		if res := p.run(ctx, fmt.Sprintf("vertex property sample for %s", v.Label), sampleQuery); res != nil {
			v.Properties = cypherEntityProperties(res, "n")
		}
	}

	if relTypes := p.run(ctx, "relationship type census", "CALL db.relationshipTypes()"); relTypes != nil {
		for _, row := range relTypes.Rows {
			if label := singleString(row, "relationshipType"); label != "" {
				doc.Edges = append(doc.Edges, models.EdgeType{Label: label})
			}
		}
	}

	for i := range doc.Edges {
		if i >= maxTypesProbed {
			break
		}
		e := &doc.Edges[i]
		ident := escapeCypherIdent(e.Label)

		countQuery := fmt.Sprintf("MATCH ()-[r:`%s`]->() RETURN count(r) AS count", ident)
		if res := p.run(ctx, fmt.Sprintf("count for %s", e.Label), countQuery); res != nil && len(res.Rows) > 0 {
			e.Count = toInt64(res.Rows[0]["count"])
		}

		sampleQuery := fmt.Sprintf("MATCH ()-[r:`%s`]->() RETURN r LIMIT %d", ident, p.cfg.SampleVertices)
		if res := p.run(ctx, fmt.Sprintf("edge property sample for %s", e.Label), sampleQuery); res != nil {
			e.Properties = cypherEntityProperties(res, "r")
		}

		endpointQuery := fmt.Sprintf("MATCH (a)-[r:`%s`]->(b) RETURN labels(a) AS from, labels(b) AS to LIMIT 1", ident)
		if res := p.run(ctx, fmt.Sprintf("edge endpoint sample for %s", e.Label), endpointQuery); res != nil && len(res.Rows) > 0 {
			e.From = firstLabel(res.Rows[0]["from"])
			e.To = firstLabel(res.Rows[0]["to"])
		}
	}

	sortSchemaTypes(doc)
	return doc, nil
}

// firstLabel picks a vertex type out of a labels() value. Nodes can carry
// several labels; the first one stands in for the type.
func firstLabel(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				return s
			}
		}
	case []string:
		if len(val) > 0 {
			return val[0]
		}
	}
	return ""
}

// singleString returns row[key] when it is a string, falling back to the
// row's only value. Procedure column names differ across server versions.
func singleString(row map[string]any, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	if len(row) == 1 {
		for _, v := range row {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// cypherEntityProperties accumulates properties from returned nodes or
// relationships, which arrive flattened to maps with identity fields.
func cypherEntityProperties(sample *graph.Result, column string) []models.PropertyInfo {
	props := newPropertyAccumulator()
	for _, row := range sample.Rows {
		entity, ok := row[column].(map[string]any)
		if !ok {
			continue
		}
		for name, value := range entity {
			switch name {
			case "id", "label", "type", "outV", "inV":
				continue
			}
			props.observe(name, value)
		}
	}
	return props.build()
}

// escapeCypherIdent escapes a label for embedding in backticks.
func escapeCypherIdent(s string) string {
	return strings.ReplaceAll(s, "`", "``")
}

// sortSchemaTypes puts types in canonical order: count descending, then
// label. Every probe pass and every merge produces the same ordering.
func sortSchemaTypes(doc *models.SchemaDocument) {
	sort.Slice(doc.Vertices, func(i, j int) bool {
		if doc.Vertices[i].Count != doc.Vertices[j].Count {
			return doc.Vertices[i].Count > doc.Vertices[j].Count
		}
		return doc.Vertices[i].Label < doc.Vertices[j].Label
	})
	sort.Slice(doc.Edges, func(i, j int) bool {
		if doc.Edges[i].Count != doc.Edges[j].Count {
			return doc.Edges[i].Count > doc.Edges[j].Count
		}
		return doc.Edges[i].Label < doc.Edges[j].Label
	})
}
