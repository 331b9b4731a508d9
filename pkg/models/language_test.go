package models

import "testing"

func TestParseQueryLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  QueryLanguage
	}{
		{"sparql", LanguageSPARQL},
		{"SPARQL", LanguageSPARQL},
		{"gremlin", LanguageGremlin},
		{"cypher", LanguageCypher},
		{"opencypher", LanguageCypher},
		{"open-cypher", LanguageCypher},
		{"  Cypher  ", LanguageCypher},
	}

	for _, tt := range tests {
		got, err := ParseQueryLanguage(tt.input)
		if err != nil {
			t.Errorf("ParseQueryLanguage(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseQueryLanguage(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseQueryLanguage_Unknown(t *testing.T) {
	for _, input := range []string{"sql", "graphql", ""} {
		if _, err := ParseQueryLanguage(input); err == nil {
			t.Errorf("ParseQueryLanguage(%q) should fail", input)
		}
	}
}

func TestQueryLanguage_DisplayName(t *testing.T) {
	tests := []struct {
		language QueryLanguage
		want     string
	}{
		{LanguageSPARQL, "SPARQL"},
		{LanguageGremlin, "Gremlin"},
		{LanguageCypher, "openCypher"},
	}

	for _, tt := range tests {
		if got := tt.language.DisplayName(); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.language, got, tt.want)
		}
	}
}
