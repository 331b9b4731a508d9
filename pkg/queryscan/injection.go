package queryscan

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding records an injection-style pattern detected inside a
// query's string literal. Findings are an audit signal, not a block: graph
// queries legitimately embed user-shaped text, so the caller logs findings
// through the security audit trail rather than refusing the query.
type InjectionFinding struct {
	Fingerprint string // libinjection fingerprint of the detected pattern
	Literal     string // the literal that was checked
}

// CheckLiteral runs libinjection over a single string literal. Returns
// nil when the literal looks clean.
func CheckLiteral(literal string) *InjectionFinding {
	if literal == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(literal)
	if isSQLi {
		return &InjectionFinding{
			Fingerprint: string(fingerprint),
			Literal:     literal,
		}
	}

	return nil
}

// ScreenLiterals extracts every string literal from the query and checks
// each for injection patterns. Returns one finding per flagged literal,
// or an empty slice when all literals are clean.
func ScreenLiterals(query string) []*InjectionFinding {
	_, literals := SplitLiterals(query)

	var findings []*InjectionFinding
	for _, lit := range literals {
		if finding := CheckLiteral(lit); finding != nil {
			findings = append(findings, finding)
		}
	}
	return findings
}
