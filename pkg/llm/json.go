package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Enrichment prompts ask the model for a bare JSON document, but replies
// often arrive wrapped in prose, markdown fences, or a <think> preamble.
// DecodeReply digs the first well-formed JSON value out of whatever came
// back and unmarshals it.

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// DecodeReply extracts the first JSON value from a model reply and
// unmarshals it into T.
func DecodeReply[T any](reply string) (T, error) {
	var out T

	raw, err := firstJSONValue(reply)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("decode model reply: %w", err)
	}
	return out, nil
}

// firstJSONValue returns the earliest balanced JSON object or array in
// reply, after stripping think blocks and unwrapping markdown code fences.
func firstJSONValue(reply string) (string, error) {
	cleaned := thinkBlockPattern.ReplaceAllString(reply, "")
	if m := codeFencePattern.FindStringSubmatch(cleaned); m != nil {
		cleaned = m[1]
	}

	for i := 0; i < len(cleaned); i++ {
		open := cleaned[i]
		if open != '{' && open != '[' {
			continue
		}
		candidate, ok := carveBalanced(cleaned[i:], open)
		if ok && json.Valid([]byte(candidate)) {
			return candidate, nil
		}
		// Unbalanced or invalid from this position; a later bracket may
		// still open a valid value.
	}

	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return trimmed, nil
	}
	return "", fmt.Errorf("reply contains no JSON value")
}

// carveBalanced returns the prefix of s that forms one balanced bracket
// pair, respecting string literals and backslash escapes. s must start
// with open.
func carveBalanced(s string, open byte) (string, bool) {
	var closing byte = '}'
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch c {
			case '\\':
				i++ // skip the escaped byte
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}
