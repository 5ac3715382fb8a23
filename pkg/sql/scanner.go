package sql

import "strings"

// token is a whole word found at the top nesting level of a statement,
// outside of string literals.
type token struct {
	text   string
	offset int
}

func (t token) end() int { return t.offset + len(t.text) }

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= '0' && c <= '9') ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z')
}

// topLevelWords returns the identifier-shaped tokens of text that appear at
// parenthesis depth 0 and outside single-quoted string literals. This is the
// shared state machine under the clause scanner, the repair engine and the
// injector's idempotence check.
//
// States are explicit so every transition is total: normal text, inside a
// single-quoted literal, or inside a double-quoted identifier. A doubled
// quote ('') inside a literal is the SQL escape and does not terminate it.
func topLevelWords(text string) []token {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var tokens []token
	state := stateNormal
	depth := 0
	i := 0

	for i < len(text) {
		c := text[i]

		if state == stateSingleQuote {
			if c == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					i += 2 // escaped quote, still inside the literal
					continue
				}
				state = stateNormal
			}
			i++
			continue
		}
		if state == stateDoubleQuote {
			if c == '"' {
				state = stateNormal
			}
			i++
			continue
		}

		switch {
		case c == '\'':
			state = stateSingleQuote
			i++
		case c == '"':
			state = stateDoubleQuote
			i++
		case c == '(':
			depth++
			i++
		case c == ')':
			if depth > 0 {
				depth--
			}
			i++
		case isIdentChar(c):
			start := i
			for i < len(text) && isIdentChar(text[i]) {
				i++
			}
			if depth == 0 {
				tokens = append(tokens, token{text: text[start:i], offset: start})
			}
		default:
			i++
		}
	}

	return tokens
}

// scanResult holds everything one left-to-right pass discovers about a
// statement: the first top-level occurrence of each clause keyword, and the
// first top-level FROM with its target table.
type scanResult struct {
	clauses    []ClausePosition
	fromOffset int
	fromTable  string
}

// scanStatement locates the top-level clause keywords of text. Keyword
// occurrences inside string literals or parenthesized sub-expressions
// (sub-selects, function arguments) are not reported; only whole-word matches
// count, so identifiers like order_by_field never match. For each clause kind
// only the first occurrence is kept.
//
// Clauses are returned in the order found. For well-formed SQL that is also
// canonical order; for malformed SQL it may not be, which is exactly what the
// repair engine consumes.
func scanStatement(text string) scanResult {
	res := scanResult{fromOffset: -1}
	tokens := topLevelWords(text)
	var seen [clauseKindCount]bool

	record := func(kind ClauseKind, offset int) {
		if !seen[kind] {
			seen[kind] = true
			res.clauses = append(res.clauses, ClausePosition{Kind: kind, Offset: offset})
		}
	}

	for i := 0; i < len(tokens); i++ {
		switch strings.ToUpper(tokens[i].text) {
		case "WHERE":
			record(ClauseWhere, tokens[i].offset)
		case "GROUP":
			if i+1 < len(tokens) && strings.EqualFold(tokens[i+1].text, "BY") {
				record(ClauseGroupBy, tokens[i].offset)
				i++
			}
		case "HAVING":
			record(ClauseHaving, tokens[i].offset)
		case "ORDER":
			if i+1 < len(tokens) && strings.EqualFold(tokens[i+1].text, "BY") {
				record(ClauseOrderBy, tokens[i].offset)
				i++
			}
		case "LIMIT":
			record(ClauseLimit, tokens[i].offset)
		case "FROM":
			if res.fromOffset < 0 {
				res.fromOffset = tokens[i].offset
				res.fromTable = fromTarget(text, tokens, i)
			}
		}
	}

	return res
}

// fromTarget extracts the table name following the FROM token at index idx.
// Qualified names (schema.table) resolve to their final segment, which is the
// key used for column overrides. A parenthesized sub-select yields no table.
func fromTarget(text string, tokens []token, idx int) string {
	j := idx + 1
	if j >= len(tokens) {
		return ""
	}
	// Anything between FROM and the next top-level token other than
	// whitespace means the target is not a plain table reference.
	between := strings.TrimSpace(text[tokens[idx].end():tokens[j].offset])
	if between != "" {
		return ""
	}
	name := tokens[j]
	for j+1 < len(tokens) && name.end() < len(text) && text[name.end()] == '.' && tokens[j+1].offset == name.end()+1 {
		j++
		name = tokens[j]
	}
	return name.text
}

// statementEnd returns the offset of the trailing semicolon of text, or
// len(text) when there is none. Trailing whitespace after the semicolon is
// tolerated.
func statementEnd(text string) int {
	i := len(text)
	for i > 0 {
		c := text[i-1]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i--
			continue
		}
		if c == ';' {
			return i - 1
		}
		break
	}
	return len(text)
}

// ScanClauses returns the top-level clause positions of text in the order
// they appear.
func ScanClauses(text string) []ClausePosition {
	return scanStatement(text).clauses
}

// clausesInCanonicalOrder reports whether the clause positions, when present,
// strictly increase in canonical precedence order (WHERE before GROUP BY
// before HAVING before ORDER BY before LIMIT).
func clausesInCanonicalOrder(clauses []ClausePosition) bool {
	lastOffset := -1
	for kind := ClauseKind(0); kind < clauseKindCount; kind++ {
		for _, cp := range clauses {
			if cp.Kind != kind {
				continue
			}
			if cp.Offset <= lastOffset {
				return false
			}
			lastOffset = cp.Offset
			break
		}
	}
	return true
}
