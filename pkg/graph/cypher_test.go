package graph

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestNormalizeCypherValue_Node(t *testing.T) {
	node := neo4j.Node{
		ElementId: "4:abc:0",
		Labels:    []string{"Person", "Employee"},
		Props: map[string]any{
			"name": "Alice",
			"age":  int64(34),
		},
	}

	got, ok := normalizeCypherValue(node).(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", normalizeCypherValue(node))
	}

	if got["id"] != "4:abc:0" {
		t.Errorf("expected element id, got %v", got["id"])
	}
	if got["label"] != "Person:Employee" {
		t.Errorf("expected joined labels, got %v", got["label"])
	}
	if got["type"] != "vertex" {
		t.Errorf("expected type vertex, got %v", got["type"])
	}
	if got["name"] != "Alice" || got["age"] != int64(34) {
		t.Errorf("expected properties inlined, got %v", got)
	}
}

func TestNormalizeCypherValue_Relationship(t *testing.T) {
	rel := neo4j.Relationship{
		ElementId:      "5:abc:7",
		StartElementId: "4:abc:0",
		EndElementId:   "4:abc:1",
		Type:           "KNOWS",
		Props:          map[string]any{"since": int64(2020)},
	}

	got, ok := normalizeCypherValue(rel).(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", normalizeCypherValue(rel))
	}

	if got["type"] != "edge" || got["label"] != "KNOWS" {
		t.Errorf("unexpected edge identity: %v", got)
	}
	if got["outV"] != "4:abc:0" || got["inV"] != "4:abc:1" {
		t.Errorf("unexpected endpoints: %v", got)
	}
	if got["since"] != int64(2020) {
		t.Errorf("expected since property, got %v", got)
	}
}

func TestNormalizeCypherValue_Temporal(t *testing.T) {
	date := neo4j.Date(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if got := normalizeCypherValue(date); got != "2024-03-15" {
		t.Errorf("expected date string, got %v", got)
	}

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	if got := normalizeCypherValue(ts); got != "2024-03-15T10:30:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %v", got)
	}
}

func TestNormalizeCypherValue_Collections(t *testing.T) {
	input := []any{
		int64(1),
		neo4j.Node{ElementId: "4:x:9", Labels: []string{"Tag"}, Props: map[string]any{}},
	}

	got, ok := normalizeCypherValue(input).([]any)
	if !ok || len(got) != 2 {
		t.Fatalf("expected 2-element slice, got %v", got)
	}
	if got[0] != int64(1) {
		t.Errorf("scalar should pass through, got %v", got[0])
	}
	if inner, ok := got[1].(map[string]any); !ok || inner["label"] != "Tag" {
		t.Errorf("nested node should normalize, got %v", got[1])
	}
}

func TestCollectCypherRows(t *testing.T) {
	keys := []string{"n", "count"}
	records := []*neo4j.Record{
		{
			Keys: keys,
			Values: []any{
				neo4j.Node{ElementId: "4:a:1", Labels: []string{"City"}, Props: map[string]any{"name": "Oslo"}},
				int64(3),
			},
		},
	}

	result := collectCypherRows(keys, records)

	if len(result.Columns) != 2 || result.Columns[0] != "n" || result.Columns[1] != "count" {
		t.Errorf("record keys should become columns in order, got %v", result.Columns)
	}
	if result.RowCount() != 1 {
		t.Fatalf("expected 1 row, got %d", result.RowCount())
	}
	if result.Rows[0]["count"] != int64(3) {
		t.Errorf("expected count=3, got %v", result.Rows[0])
	}
}

func TestJoinLabels(t *testing.T) {
	tests := []struct {
		labels []string
		want   string
	}{
		{nil, ""},
		{[]string{"Person"}, "Person"},
		{[]string{"Person", "Employee"}, "Person:Employee"},
	}

	for _, tt := range tests {
		if got := joinLabels(tt.labels); got != tt.want {
			t.Errorf("joinLabels(%v) = %q, want %q", tt.labels, got, tt.want)
		}
	}
}
