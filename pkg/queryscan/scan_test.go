package queryscan

import (
	"strings"
	"testing"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

func TestSplitLiterals(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantLiterals []string
		wantInText   string
		notInText    string
	}{
		{
			name:       "no literals",
			query:      "MATCH (n:Person) RETURN n",
			wantInText: "MATCH (n:Person) RETURN n",
		},
		{
			name:         "single quoted literal",
			query:        "MATCH (n:Person {name: 'Alice'}) RETURN n",
			wantLiterals: []string{"Alice"},
			notInText:    "Alice",
		},
		{
			name:         "double quoted literal",
			query:        `SELECT ?s WHERE { ?s rdfs:label "Widget" }`,
			wantLiterals: []string{"Widget"},
			notInText:    "Widget",
		},
		{
			name:         "doubled single quote stays inside literal",
			query:        "MATCH (n {name: 'O''Brien'}) RETURN n",
			wantLiterals: []string{"O'Brien"},
			notInText:    "Brien",
		},
		{
			name:         "escaped quote stays inside literal",
			query:        `g.V().has('note', 'it\'s fine')`,
			wantLiterals: []string{"note", `it\'s fine`},
			notInText:    "fine",
		},
		{
			name:         "unterminated literal still captured",
			query:        "MATCH (n {name: 'dangling",
			wantLiterals: []string{"dangling"},
			notInText:    "dangling",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, literals := SplitLiterals(tt.query)

			if len(literals) != len(tt.wantLiterals) {
				t.Fatalf("expected %d literals, got %d: %v", len(tt.wantLiterals), len(literals), literals)
			}
			for i, want := range tt.wantLiterals {
				if literals[i] != want {
					t.Errorf("literal %d: expected %q, got %q", i, want, literals[i])
				}
			}
			if tt.wantInText != "" && text != tt.wantInText {
				t.Errorf("expected text %q, got %q", tt.wantInText, text)
			}
			if tt.notInText != "" && strings.Contains(text, tt.notInText) {
				t.Errorf("literal content %q leaked into text %q", tt.notInText, text)
			}
		})
	}
}

func TestDestructiveOperations_SPARQL(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		destructive bool
	}{
		{"select is read-only", "SELECT ?s ?p ?o WHERE { ?s ?p ?o } LIMIT 10", false},
		{"construct is read-only", "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }", false},
		{"insert data", "INSERT DATA { <urn:a> <urn:b> <urn:c> }", true},
		{"delete where", "DELETE WHERE { ?s ?p ?o }", true},
		{"clear all", "CLEAR ALL", true},
		{"drop graph", "DROP GRAPH <urn:g>", true},
		{"load", "LOAD <http://example.com/data.ttl>", true},
		{"keyword inside literal not flagged", `SELECT ?s WHERE { ?s rdfs:label "DELETE ME" }`, false},
		{"keyword as substring not flagged", "SELECT ?inserted WHERE { ?inserted a ?type }", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDestructive(tt.query, models.LanguageSPARQL)
			if got != tt.destructive {
				t.Errorf("IsDestructive(%q) = %v, expected %v", tt.query, got, tt.destructive)
			}
		})
	}
}

func TestDestructiveOperations_Cypher(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		destructive bool
	}{
		{"match return is read-only", "MATCH (n:Person) RETURN n.name LIMIT 10", false},
		{"create node", "CREATE (n:Person {name: 'x'})", true},
		{"detach delete", "MATCH (n) DETACH DELETE n", true},
		{"merge", "MERGE (n:Person {name: 'x'})", true},
		{"set property", "MATCH (n) SET n.flag = true", true},
		{"remove property", "MATCH (n) REMOVE n.flag", true},
		{"keyword inside literal not flagged", "MATCH (n {note: 'please DELETE later'}) RETURN n", false},
		{"offset is not set", "MATCH (n) RETURN n SKIP 5 LIMIT 5", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDestructive(tt.query, models.LanguageCypher)
			if got != tt.destructive {
				t.Errorf("IsDestructive(%q) = %v, expected %v", tt.query, got, tt.destructive)
			}
		})
	}
}

func TestDestructiveOperations_Gremlin(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		destructive bool
	}{
		{"count is read-only", "g.V().hasLabel('person').count()", false},
		{"valueMap is read-only", "g.V().limit(20).valueMap()", false},
		{"properties step is read-only", "g.V().properties('name')", false},
		{"drop", "g.V().hasLabel('person').drop()", true},
		{"addV", "g.addV('person').property('name', 'x')", true},
		{"addE", "g.V(1).addE('knows').to(g.V(2))", true},
		{"property mutation", "g.V(1).property('age', 30)", true},
		{"drop inside literal not flagged", "g.V().has('note', 'drop() me')", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsDestructive(tt.query, models.LanguageGremlin)
			if got != tt.destructive {
				t.Errorf("IsDestructive(%q) = %v, expected %v", tt.query, got, tt.destructive)
			}
		})
	}
}

func TestDestructiveOperations_ReportsOperations(t *testing.T) {
	ops := DestructiveOperations("MATCH (n) DETACH DELETE n", models.LanguageCypher)
	if len(ops) != 2 {
		t.Fatalf("expected 2 operations, got %v", ops)
	}

	ops = DestructiveOperations("SELECT ?s WHERE { ?s ?p ?o }", models.LanguageSPARQL)
	if len(ops) != 0 {
		t.Errorf("expected no operations, got %v", ops)
	}
}

func TestScreenLiterals(t *testing.T) {
	t.Run("clean literals produce no findings", func(t *testing.T) {
		findings := ScreenLiterals("MATCH (n {name: 'Alice', city: 'Portland'}) RETURN n")
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %d", len(findings))
		}
	})

	t.Run("injection pattern in literal is flagged", func(t *testing.T) {
		findings := ScreenLiterals("MATCH (n {name: '1'' OR ''1''=''1'}) RETURN n")
		if len(findings) == 0 {
			t.Fatal("expected at least one finding")
		}
		if findings[0].Fingerprint == "" {
			t.Error("expected a non-empty fingerprint")
		}
	})

	t.Run("no literals means no findings", func(t *testing.T) {
		findings := ScreenLiterals("MATCH (n) RETURN count(n)")
		if len(findings) != 0 {
			t.Errorf("expected no findings, got %d", len(findings))
		}
	})
}

func TestCheckLiteral(t *testing.T) {
	if finding := CheckLiteral(""); finding != nil {
		t.Error("empty literal should not produce a finding")
	}
	if finding := CheckLiteral("ordinary text"); finding != nil {
		t.Error("ordinary text should not produce a finding")
	}
	if finding := CheckLiteral("' OR 1=1--"); finding == nil {
		t.Error("classic injection pattern should produce a finding")
	}
}
