package llm

// ResetConfirmationPhrase must be passed verbatim in the reset_database
// tool call. The interactive shell asks the user to type the same phrase.
const ResetConfirmationPhrase = "DELETE ALL DATA"

// ToolDefinition defines a tool that can be called by the LLM.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// NewToolDefinition creates a new tool definition with standard JSON Schema parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		props[k] = map[string]any{
			"type":        v.Type,
			"description": v.Description,
		}
		if len(v.Enum) > 0 {
			props[k].(map[string]any)["enum"] = v.Enum
		}
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// GetGraphChatTools returns the tool definitions for graph chat.
func GetGraphChatTools() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			"generate_and_execute_query",
			"Execute a query you wrote against the connected graph database. Returns a preview of the result; the full result is retained server-side for export. Write read-only queries - data modification is refused.",
			map[string]ParameterProperty{
				"query_text": {
					Type:        "string",
					Description: "The complete query to execute, written in the active query language",
				},
				"language": {
					Type:        "string",
					Description: "Query language of query_text. Omit to use the session's configured language.",
					Enum:        []string{"cypher", "sparql", "gremlin"},
				},
			},
			[]string{"query_text"},
		),
		NewToolDefinition(
			"export_to_csv",
			"Export the full result of the most recent successful query to a CSV file. Every retained row is written, not just the preview rows you saw.",
			map[string]ParameterProperty{
				"filename_hint": {
					Type:        "string",
					Description: "Optional base name for the file; it is sanitized and a timestamp is appended",
				},
			},
			[]string{},
		),
		NewToolDefinition(
			"discover_schema",
			"Sample the connected database to discover its schema: vertex and edge types, properties with inferred types and example values. Refreshes the schema context used for writing queries.",
			map[string]ParameterProperty{},
			[]string{},
		),
		NewToolDefinition(
			"reset_database",
			"Delete ALL data in the connected database. Irreversible. Only call this after the user has explicitly confirmed in their own words, and pass the exact confirmation phrase.",
			map[string]ParameterProperty{
				"confirmation": {
					Type:        "string",
					Description: "Must be exactly \"DELETE ALL DATA\"",
				},
			},
			[]string{"confirmation"},
		),
	}
}
