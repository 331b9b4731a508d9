// Package queryscan screens generated graph queries before execution:
// destructive-operation detection and injection screening of string
// literals.
package queryscan

import "strings"

// SplitLiterals separates a query into its non-literal text and the
// contents of its string literals. Backslash escapes (\') and doubled
// quotes ('') both keep the quote inside the literal. Literal positions
// are replaced with a single space in the returned text so keyword
// matching never sees literal content.
func SplitLiterals(query string) (text string, literals []string) {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	runes := []rune(query)

	var textBuilder strings.Builder
	var literalBuilder strings.Builder
	state := stateNormal

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch state {
		case stateNormal:
			switch c {
			case '\'':
				state = stateSingleQuote
				literalBuilder.Reset()
			case '"':
				state = stateDoubleQuote
				literalBuilder.Reset()
			default:
				textBuilder.WriteRune(c)
			}

		case stateSingleQuote:
			switch {
			case c == '\\' && i+1 < len(runes):
				literalBuilder.WriteRune(c)
				i++
				literalBuilder.WriteRune(runes[i])
			case c == '\'' && i+1 < len(runes) && runes[i+1] == '\'':
				literalBuilder.WriteRune('\'')
				i++
			case c == '\'':
				state = stateNormal
				literals = append(literals, literalBuilder.String())
				textBuilder.WriteRune(' ')
			default:
				literalBuilder.WriteRune(c)
			}

		case stateDoubleQuote:
			switch {
			case c == '\\' && i+1 < len(runes):
				literalBuilder.WriteRune(c)
				i++
				literalBuilder.WriteRune(runes[i])
			case c == '"':
				state = stateNormal
				literals = append(literals, literalBuilder.String())
				textBuilder.WriteRune(' ')
			default:
				literalBuilder.WriteRune(c)
			}
		}
	}

	// Unterminated literal: keep what accumulated so it is still screened.
	if state != stateNormal && literalBuilder.Len() > 0 {
		literals = append(literals, literalBuilder.String())
	}

	return textBuilder.String(), literals
}
