// Package prompts builds the model-facing prompt text for conversation and
// schema enrichment. Prompts are plain strings assembled per call so the
// injected schema context is always current.
package prompts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// BuildGraphChatSystemPrompt creates the system prompt for the conversational
// query agent: role, tool rules, language guidance, and the sampled schema.
// The orchestrator rebuilds it every turn.
func BuildGraphChatSystemPrompt(language models.QueryLanguage, schema *models.SchemaDocument) string {
	var prompt strings.Builder

	prompt.WriteString("You are a graph database assistant. You answer questions about the connected database by writing ")
	prompt.WriteString(language.DisplayName())
	prompt.WriteString(" queries and executing them with your tools.\n\n")

	prompt.WriteString("## Rules\n\n")
	prompt.WriteString("- ALWAYS execute queries through the generate_and_execute_query tool. Never answer from memory and never fabricate results; use only the data the tool returned.\n")
	prompt.WriteString("- Tool results are previews: a limited number of rows, with long string values cut and suffixed \"...\". The total_rows field always carries the true count. Report the true count to the user and present the preview rows as a sample.\n")
	prompt.WriteString("- When the user wants the data as a file, call export_to_csv. The export always contains the complete result set of the most recent query, regardless of how few rows the preview showed.\n")
	prompt.WriteString("- If you are unsure which labels or properties exist, call discover_schema before guessing.\n")
	prompt.WriteString(fmt.Sprintf("- Never write mutating statements (%s). If a query is refused as destructive, do not rephrase it; explain that data changes go through the reset flow.\n", destructiveOperations(language)))
	prompt.WriteString("- reset_database deletes ALL data. Only call it when the user has explicitly confirmed with the exact phrase \"DELETE ALL DATA\". Never supply that phrase yourself.\n")
	prompt.WriteString("- If a tool returns an error object, read its message, then either correct the query and retry or explain the problem to the user. Do not retry the identical query.\n\n")

	prompt.WriteString(languageInstructions(language))
	prompt.WriteString(schemaContext(language, schema))

	return prompt.String()
}

// destructiveOperations lists the mutating keywords of a language for the
// rules section, matching what the screening layer refuses.
func destructiveOperations(language models.QueryLanguage) string {
	switch language {
	case models.LanguageSPARQL:
		return "INSERT, DELETE, CLEAR, DROP, CREATE, LOAD"
	case models.LanguageGremlin:
		return "addV, addE, drop, property writes"
	case models.LanguageCypher:
		return "CREATE, DELETE, MERGE, SET, REMOVE, DETACH DELETE"
	default:
		return "INSERT, DELETE, CREATE, DROP"
	}
}

// languageInstructions returns query-writing guidance for the active language.
func languageInstructions(language models.QueryLanguage) string {
	switch language {
	case models.LanguageSPARQL:
		return `## Writing SPARQL

- Declare PREFIX lines for every namespace you use; prefer the namespaces listed in the schema context.
- To survey the data, aggregate: SELECT DISTINCT ?type (COUNT(?s) AS ?count) WHERE { ?s a ?type } GROUP BY ?type ORDER BY DESC(?count).
- Use FILTER for value conditions and isURI(?o) to distinguish object references from literals.
- Always LIMIT exploratory queries (LIMIT 50 or less).
- Bind human-readable values with OPTIONAL { ?s rdfs:label ?label } rather than assuming every subject has one.

`
	case models.LanguageGremlin:
		return `## Writing Gremlin

- Surveys: g.V().label().groupCount() and g.E().label().groupCount() show what exists.
- Read properties with valueMap() or elementMap(); select specific keys with values('name', 'age').
- Filter early: g.V().hasLabel('person').has('age', gt(30)) before traversing out()/in().
- Always limit(n) exploratory traversals; unbounded traversals over a large graph will time out.
- Counts come from count(); do not fetch all elements just to count them.

`
	case models.LanguageCypher:
		return `## Writing openCypher

- Surveys: CALL db.labels() and CALL db.relationshipTypes() list what exists.
- Match with labels and inline property filters: MATCH (p:Person {name: 'Alice'})-[:WORKS_AT]->(c:Company) RETURN p, c.
- Aggregate with count(*), collect(), and ORDER BY on the aggregated value.
- Always LIMIT exploratory queries.
- RETURN the specific properties the user asked for rather than whole nodes when possible.

`
	default:
		return ""
	}
}

// schemaContext renders the sampled schema document for the prompt, or an
// instruction to discover one first.
func schemaContext(language models.QueryLanguage, schema *models.SchemaDocument) string {
	if schema.IsEmpty() {
		return "## Database Schema\n\nNo schema has been sampled yet. Call discover_schema before writing queries that depend on specific labels or properties.\n"
	}

	var b strings.Builder
	b.WriteString("## Database Schema\n\n")
	if schema.DatabaseInfo.Incomplete {
		b.WriteString("Note: the last discovery pass was incomplete; types beyond those listed may exist.\n\n")
	}

	if len(schema.Vertices) > 0 {
		b.WriteString("### Vertex types\n\n")
		for _, v := range schema.Vertices {
			writeTypeLine(&b, v.Label, v.Count, v.Description)
			writeProperties(&b, v.Properties)
		}
		b.WriteString("\n")
	}

	if len(schema.Edges) > 0 {
		b.WriteString("### Edge types\n\n")
		for _, e := range schema.Edges {
			writeEdgeLine(&b, e)
			writeProperties(&b, e.Properties)
		}
		b.WriteString("\n")
	}

	if language == models.LanguageSPARQL && len(schema.RDFNamespaces) > 0 {
		b.WriteString("### RDF namespaces\n\n")
		for _, prefix := range sortedKeys(schema.RDFNamespaces) {
			b.WriteString(fmt.Sprintf("- PREFIX %s: <%s>\n", prefix, schema.RDFNamespaces[prefix]))
		}
		b.WriteString("\n")
	}

	if len(schema.QueryExamples) > 0 {
		b.WriteString("### Example queries\n\n")
		for _, ex := range schema.QueryExamples {
			b.WriteString(fmt.Sprintf("- %s:\n  %s\n", ex.Description, ex.Query))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func writeTypeLine(b *strings.Builder, label string, count int64, description string) {
	b.WriteString(fmt.Sprintf("**%s** (%d)", label, count))
	if description != "" {
		b.WriteString(" - ")
		b.WriteString(description)
	}
	b.WriteString("\n")
}

// writeEdgeLine renders an edge type with its sampled endpoints when the
// discovery pass resolved them.
func writeEdgeLine(b *strings.Builder, e models.EdgeType) {
	b.WriteString(fmt.Sprintf("**%s** (%d)", e.Label, e.Count))
	if e.From != "" && e.To != "" {
		b.WriteString(fmt.Sprintf(", %s -> %s", e.From, e.To))
	}
	if e.Description != "" {
		b.WriteString(" - ")
		b.WriteString(e.Description)
	}
	b.WriteString("\n")
}

func writeProperties(b *strings.Builder, properties []models.PropertyInfo) {
	for _, p := range properties {
		b.WriteString(fmt.Sprintf("- %s (%s)", p.Name, p.DataType))
		if p.Description != "" {
			b.WriteString(": ")
			b.WriteString(p.Description)
		}
		if len(p.Examples) > 0 {
			b.WriteString(fmt.Sprintf(" e.g. %s", strings.Join(p.Examples, ", ")))
		}
		b.WriteString("\n")
	}
}

// sortedKeys keeps the namespace section stable between turns.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
