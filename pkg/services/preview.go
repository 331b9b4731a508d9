package services

import (
	"strings"
	"unicode/utf8"

	"github.com/graphscout-inc/graphscout-engine/pkg/models"
)

// BuildPreview projects a retained result down to the bounded view the
// model sees: at most maxRows rows, string cells cut at maxCellChars with
// the truncation marker appended, and the true retained row count in
// TotalRows. Numbers and booleans pass through untouched. SPARQL results
// additionally get their RDF terms cleaned for readability; the retained
// rows themselves are never modified, so exports keep raw values.
func BuildPreview(result *models.QueryResult, maxRows, maxCellChars int) *models.ResultPreview {
	preview := &models.ResultPreview{
		Columns:   result.Columns,
		TotalRows: result.RowCount,
	}

	rows := result.Rows
	if len(rows) > maxRows {
		rows = rows[:maxRows]
		preview.TruncatedRows = true
	}

	clean := result.Language == models.LanguageSPARQL
	preview.Rows = make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out := make(map[string]any, len(row))
		for column, value := range row {
			cell, truncated := previewCell(value, maxCellChars, clean)
			if truncated {
				preview.TruncatedCells = true
			}
			out[column] = cell
		}
		preview.Rows = append(preview.Rows, out)
	}

	return preview
}

// previewCell bounds one cell. Collections flatten to a joined string
// before the cap applies.
func previewCell(value any, maxChars int, clean bool) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, false
	case string:
		return capCell(v, maxChars, clean)
	default:
		return capCell(flattenValue(v), maxChars, clean)
	}
}

func capCell(s string, maxChars int, clean bool) (any, bool) {
	if clean {
		s = cleanRDFValue(s)
	}
	if maxChars > 0 && len(s) > maxChars {
		cut := maxChars
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + models.TruncationMarker, true
	}
	return s, false
}

// cleanRDFValue reduces an RDF term to its readable core: typed-literal
// suffixes drop, URIs keep the fragment or last path segment, surrounding
// quotes and angle brackets go away.
func cleanRDFValue(s string) string {
	if i := strings.Index(s, "^^"); i >= 0 {
		s = strings.Trim(s[:i], `"`)
	}

	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && len(s) >= 2 {
		s = s[1 : len(s)-1]
	}

	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if i := strings.LastIndexAny(s, "/#"); i >= 0 && i < len(s)-1 {
			s = s[i+1:]
		}
	}

	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}

	return s
}
