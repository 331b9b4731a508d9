package models

import "time"

// ============================================================================
// Schema Documents
// ============================================================================

// MaxPropertyExamples caps the example values kept per property. Merges
// deduplicate before applying the cap.
const MaxPropertyExamples = 5

// PropertyDataType is the inferred type of a sampled property.
type PropertyDataType string

const (
	PropertyTypeString   PropertyDataType = "string"
	PropertyTypeInteger  PropertyDataType = "integer"
	PropertyTypeFloat    PropertyDataType = "float"
	PropertyTypeBoolean  PropertyDataType = "boolean"
	PropertyTypeDateTime PropertyDataType = "datetime"
)

// PropertyInfo describes one property observed on a vertex or edge type.
type PropertyInfo struct {
	Name        string           `json:"name"`
	DataType    PropertyDataType `json:"data_type"`
	Examples    []string         `json:"examples,omitempty"`
	Description string           `json:"description,omitempty"`
}

// VertexType describes one vertex label (or RDF class) found in the graph.
type VertexType struct {
	Label       string         `json:"label"`
	Count       int64          `json:"count"`
	Properties  []PropertyInfo `json:"properties,omitempty"`
	Description string         `json:"description,omitempty"`
}

// EdgeType describes one edge label (or RDF predicate) found in the graph.
// From and To hold the vertex types a sampled instance connects; they stay
// empty when the endpoint sample failed or the store has no typed endpoints.
type EdgeType struct {
	Label       string         `json:"label"`
	From        string         `json:"from,omitempty"`
	To          string         `json:"to,omitempty"`
	Count       int64          `json:"count"`
	Properties  []PropertyInfo `json:"properties,omitempty"`
	Description string         `json:"description,omitempty"`
}

// DatabaseInfo records where and how a schema document was sampled.
type DatabaseInfo struct {
	Endpoint     string        `json:"endpoint"`
	Language     QueryLanguage `json:"query_language"`
	SampledAt    time.Time     `json:"sampled_at"`
	Incomplete   bool          `json:"incomplete,omitempty"`
	FailedProbes []string      `json:"failed_probes,omitempty"`
}

// QueryExample pairs a natural-language description with a known-good query,
// used to seed the generation prompt.
type QueryExample struct {
	Description string `json:"description"`
	Query       string `json:"query"`
}

// SchemaDocument is the sampled description of the remote graph. It is
// persisted as JSON and injected into the generation prompt so the model
// writes queries against real labels and properties.
type SchemaDocument struct {
	DatabaseInfo  DatabaseInfo      `json:"database_info"`
	Vertices      []VertexType      `json:"vertices"`
	Edges         []EdgeType        `json:"edges"`
	RDFNamespaces map[string]string `json:"rdf_namespaces,omitempty"`
	QueryExamples []QueryExample    `json:"query_examples,omitempty"`
}

// VertexByLabel returns the vertex type with the given label, or nil.
func (d *SchemaDocument) VertexByLabel(label string) *VertexType {
	for i := range d.Vertices {
		if d.Vertices[i].Label == label {
			return &d.Vertices[i]
		}
	}
	return nil
}

// EdgeByLabel returns the edge type with the given label, or nil.
func (d *SchemaDocument) EdgeByLabel(label string) *EdgeType {
	for i := range d.Edges {
		if d.Edges[i].Label == label {
			return &d.Edges[i]
		}
	}
	return nil
}

// IsEmpty returns true when the document describes no types at all.
func (d *SchemaDocument) IsEmpty() bool {
	return d == nil || (len(d.Vertices) == 0 && len(d.Edges) == 0)
}
