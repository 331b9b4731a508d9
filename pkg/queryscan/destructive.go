package queryscan

import (
	"strings"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// Destructive operations per language. SPARQL and cypher match on word
// boundaries; gremlin matches mutating step calls. All matching happens
// on the non-literal text, so a query filtering on the string "DELETE"
// is not flagged.
var (
	sparqlDestructiveOps = []string{
		"INSERT", "DELETE", "CLEAR", "DROP", "CREATE", "LOAD", "MOVE", "COPY", "ADD",
	}

	cypherDestructiveOps = []string{
		"CREATE", "DELETE", "DETACH", "MERGE", "SET", "REMOVE", "DROP", "FOREACH",
	}

	gremlinDestructiveSteps = []string{
		"drop(", "addv(", "adde(", "property(",
	}
)

// DestructiveOperations returns the destructive operations found in the
// query. An empty result means the query is read-only as far as screening
// can tell.
func DestructiveOperations(query string, language models.QueryLanguage) []string {
	text, _ := SplitLiterals(query)

	switch language {
	case models.LanguageGremlin:
		return matchSteps(text, gremlinDestructiveSteps)
	case models.LanguageCypher:
		return matchKeywords(text, cypherDestructiveOps)
	default:
		return matchKeywords(text, sparqlDestructiveOps)
	}
}

// IsDestructive reports whether the query contains any destructive
// operation.
func IsDestructive(query string, language models.QueryLanguage) bool {
	return len(DestructiveOperations(query, language)) > 0
}

// matchKeywords finds whole-word, case-insensitive keyword matches.
func matchKeywords(text string, keywords []string) []string {
	var found []string
	words := strings.FieldsFunc(strings.ToUpper(text), func(r rune) bool {
		return !isWordChar(r)
	})

	for _, kw := range keywords {
		for _, w := range words {
			if w == kw {
				found = append(found, kw)
				break
			}
		}
	}
	return found
}

// matchSteps finds case-insensitive substring matches for gremlin step
// calls.
func matchSteps(text string, steps []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, step := range steps {
		if strings.Contains(lower, step) {
			found = append(found, strings.TrimSuffix(step, "(")+"()")
		}
	}
	return found
}

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
