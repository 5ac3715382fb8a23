package sql

import (
	"regexp"
	"strings"
)

var (
	// Matches a statement fully wrapped in a fenced code block, with an
	// optional language tag after the opening fence.
	codeFencePattern = regexp.MustCompile("(?s)^```[a-zA-Z0-9]*\\s*(.*?)\\s*```$")

	// Tag-shaped tokens only: a bare comparison like "a < 5 AND b > 2" must
	// survive sanitization.
	htmlTagPattern = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9]*\s*/?>`)
)

// Sanitize normalizes raw model output into a bare SQL statement: it strips
// markdown code fences and HTML-like tags, removes line and block comments
// outside string literals, collapses whitespace runs outside literals, and
// ensures exactly one trailing semicolon. It never fails; empty input yields
// an empty string.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	s = stripCodeFences(s)
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = stripComments(s)
	s = normalize(s)
	return s
}

// stripCodeFences removes markdown fence wrappers. A fully fenced statement
// is unwrapped; otherwise any line consisting of a fence marker (with an
// optional language tag) is dropped, which covers unbalanced fences.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	if m := codeFencePattern.FindStringSubmatch(s); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") && !strings.ContainsAny(strings.TrimPrefix(trimmed, "```"), " \t") && len(strings.TrimPrefix(trimmed, "```")) <= 16 {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripComments removes -- line comments and /* */ block comments, but only
// outside single-quoted string literals and double-quoted identifiers. An
// unterminated block comment runs to end of input.
func stripComments(s string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var b strings.Builder
	b.Grow(len(s))
	state := stateNormal
	i := 0

	for i < len(s) {
		c := s[i]

		if state == stateSingleQuote {
			b.WriteByte(c)
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				state = stateNormal
			}
			i++
			continue
		}
		if state == stateDoubleQuote {
			b.WriteByte(c)
			if c == '"' {
				state = stateNormal
			}
			i++
			continue
		}

		switch {
		case c == '\'':
			state = stateSingleQuote
			b.WriteByte(c)
			i++
		case c == '"':
			state = stateDoubleQuote
			b.WriteByte(c)
			i++
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i < len(s) {
				if s[i] == '*' && i+1 < len(s) && s[i+1] == '/' {
					i += 2
					break
				}
				i++
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String()
}

// normalize collapses whitespace runs outside string literals and
// double-quoted identifiers into a single space, trims the result, and
// ensures exactly one trailing semicolon.
func normalize(s string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var b strings.Builder
	b.Grow(len(s))
	state := stateNormal
	pendingSpace := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if state == stateSingleQuote {
			b.WriteByte(c)
			if c == '\'' {
				if i+1 < len(s) && s[i+1] == '\'' {
					b.WriteByte(s[i+1])
					i++
					continue
				}
				state = stateNormal
			}
			continue
		}
		if state == stateDoubleQuote {
			b.WriteByte(c)
			if c == '"' {
				state = stateNormal
			}
			continue
		}

		switch c {
		case ' ', '\t', '\n', '\r':
			pendingSpace = b.Len() > 0
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			switch c {
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
			b.WriteByte(c)
		}
	}

	out := b.String()
	if state == stateNormal {
		out = strings.TrimRight(out, "; ")
	}
	if out == "" {
		return ""
	}
	return out + ";"
}
