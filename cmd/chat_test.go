package cmd

import "testing"

func TestCondenseQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		max   int
		want  string
	}{
		{
			name:  "collapses whitespace",
			query: "MATCH (n)\n  RETURN n\n",
			max:   80,
			want:  "MATCH (n) RETURN n",
		},
		{
			name:  "cuts long queries",
			query: "MATCH (a)-[r]->(b) RETURN a, r, b",
			max:   10,
			want:  "MATCH (a)-...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := condenseQuery(tt.query, tt.max); got != tt.want {
				t.Errorf("condenseQuery(%q, %d) = %q, want %q", tt.query, tt.max, got, tt.want)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{3 << 20, "3.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestChatLogLevel(t *testing.T) {
	if got := chatLogLevel("info"); got != "warn" {
		t.Errorf("info console level should floor to warn, got %q", got)
	}
	if got := chatLogLevel("debug"); got != "debug" {
		t.Errorf("debug should pass through, got %q", got)
	}
	if got := chatLogLevel(" DEBUG "); got != "debug" {
		t.Errorf("debug matching should be case/space tolerant, got %q", got)
	}
}
