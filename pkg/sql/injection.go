package sql

import (
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a SQL injection pattern detected inside a string
// literal of a statement.
type InjectionFinding struct {
	// Literal is the decoded literal body that triggered the detection.
	Literal string
	// Fingerprint is the libinjection fingerprint of the detected pattern.
	Fingerprint string
	// Offset is the byte offset of the literal's opening quote in the
	// statement text.
	Offset int
}

// CheckLiteralInjection runs libinjection over the body of every single-quoted
// string literal in text and returns the first finding, or nil when all
// literals are clean.
//
// Running the detector on literal bodies rather than the whole statement is
// deliberate: a full SELECT is valid SQL and would always fingerprint as SQLi,
// while a payload smuggled into a literal ("' OR 1=1 --") is exactly the
// boundary break this backstop exists to catch.
func CheckLiteralInjection(text string) *InjectionFinding {
	for _, lit := range stringLiterals(text) {
		if lit.body == "" {
			continue
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(lit.body); isSQLi {
			return &InjectionFinding{
				Literal:     lit.body,
				Fingerprint: string(fingerprint),
				Offset:      lit.offset,
			}
		}
	}
	return nil
}

type literal struct {
	body   string
	offset int
}

// stringLiterals extracts the decoded bodies of all single-quoted literals in
// text. Doubled quotes inside a literal decode to a single quote. An
// unterminated literal runs to end of input.
func stringLiterals(text string) []literal {
	var lits []literal
	i := 0
	for i < len(text) {
		if text[i] != '\'' {
			i++
			continue
		}
		start := i
		i++
		var b strings.Builder
		for i < len(text) {
			if text[i] == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				i++
				break
			}
			b.WriteByte(text[i])
			i++
		}
		lits = append(lits, literal{body: b.String(), offset: start})
	}
	return lits
}
