package graph

import "sort"

// keyFieldOrder pins identity-ish columns to the front of synthesized
// column lists so previews and CSV exports lead with them.
var keyFieldOrder = []string{"id", "guid", "name", "label", "type", "set", "outV", "inV"}

// columnsFromRows derives a deterministic column order for backends that
// return unordered maps per row: known key fields first in a fixed order,
// then the remaining keys alphabetically.
func columnsFromRows(rows []map[string]any) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for key := range row {
			seen[key] = true
		}
	}

	columns := make([]string, 0, len(seen))
	for _, key := range keyFieldOrder {
		if seen[key] {
			columns = append(columns, key)
			delete(seen, key)
		}
	}

	rest := make([]string, 0, len(seen))
	for key := range seen {
		rest = append(rest, key)
	}
	sort.Strings(rest)

	return append(columns, rest...)
}
