package prompts

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// BuildTypeDescriptionPrompt creates the enrichment prompt for one sampled
// vertex or edge type. The model returns a short description of the type and
// one per property, inferred from names and example values.
func BuildTypeDescriptionPrompt(kind string, label string, count int64, properties []models.PropertyInfo) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("Describe the %s type `%s` found in a graph database (%d instances sampled).\n", kind, label, count))
	if entity := EntityName(label); kind == "vertex" && !strings.EqualFold(entity, label) {
		prompt.WriteString(fmt.Sprintf("Each instance is one %s.\n", strings.ToLower(entity)))
	}
	prompt.WriteString("\n")

	if len(properties) > 0 {
		prompt.WriteString("Observed properties:\n")
		for _, p := range properties {
			prompt.WriteString(fmt.Sprintf("- %s (%s)", p.Name, p.DataType))
			if len(p.Examples) > 0 {
				prompt.WriteString(fmt.Sprintf(", examples: %s", strings.Join(p.Examples, ", ")))
			}
			prompt.WriteString("\n")
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("Base your descriptions ONLY on the label, property names, and example values above. Do not invent domain facts the data does not show.\n\n")

	prompt.WriteString("Respond in JSON with:\n")
	prompt.WriteString("- `description`: one sentence describing what this type represents\n")
	prompt.WriteString("- `properties`: object mapping each property name to a one-sentence description\n\n")

	prompt.WriteString("Example:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "description": "A person in the organization with contact details.",
  "properties": {
    "name": "The person's full name.",
    "age": "The person's age in years."
  }
}
`)
	prompt.WriteString("```\n\n")

	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// BuildTypeDescriptionSystemMessage returns the system message for enrichment.
func BuildTypeDescriptionSystemMessage() string {
	return `You are a data documentation specialist. Your task is to write short, factual descriptions of graph database types from sampled labels, properties, and example values.`
}

// EntityName converts a type label to the name of one instance.
// Examples: "airports" -> "Airport", "foaf:Person" -> "Person",
// "http://example.org/ns#Cities" -> "City".
func EntityName(label string) string {
	name := label

	// RDF labels arrive as prefixed names or full IRIs; keep the local part.
	for _, sep := range []string{"#", "/", ":"} {
		if idx := strings.LastIndex(name, sep); idx >= 0 {
			name = name[idx+1:]
		}
	}

	name = inflection.Singular(name)

	if len(name) > 0 {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return name
}
