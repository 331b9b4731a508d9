package models

import (
	"fmt"
	"strings"
)

// QueryLanguage identifies the graph query language used for generation
// and execution.
type QueryLanguage string

const (
	LanguageSPARQL  QueryLanguage = "sparql"
	LanguageGremlin QueryLanguage = "gremlin"
	LanguageCypher  QueryLanguage = "cypher"
)

// ValidQueryLanguages contains all supported query language values.
var ValidQueryLanguages = []QueryLanguage{
	LanguageSPARQL,
	LanguageGremlin,
	LanguageCypher,
}

// IsValidQueryLanguage checks if the given language is supported.
func IsValidQueryLanguage(l QueryLanguage) bool {
	for _, v := range ValidQueryLanguages {
		if v == l {
			return true
		}
	}
	return false
}

// ParseQueryLanguage normalizes a user-supplied language name. It accepts
// common aliases ("opencypher" for cypher) case-insensitively.
func ParseQueryLanguage(s string) (QueryLanguage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sparql":
		return LanguageSPARQL, nil
	case "gremlin":
		return LanguageGremlin, nil
	case "cypher", "opencypher", "open-cypher":
		return LanguageCypher, nil
	default:
		return "", fmt.Errorf("unsupported query language: %q (expected sparql, gremlin, or cypher)", s)
	}
}

// DisplayName returns the human-readable name of the language.
func (l QueryLanguage) DisplayName() string {
	switch l {
	case LanguageSPARQL:
		return "SPARQL"
	case LanguageGremlin:
		return "Gremlin"
	case LanguageCypher:
		return "openCypher"
	default:
		return string(l)
	}
}
