package sql

import "strings"

// Names of the repair rules, reported for diagnostics and audit logging.
const (
	RuleTrailingGarbage = "trailing_garbage_removal"
	RuleMisplacedWhere  = "misplaced_where_relocation"
	RuleNormalize       = "whitespace_normalization"
	RuleColumnAlias     = "scope_column_aliasing"
)

// maxRepairPasses bounds the fixed-point loop. Model-generated malformations
// resolve in one or two passes; the cap guarantees termination.
const maxRepairPasses = 5

// Repair fixes the clause malformations observed in model-generated SQL:
// boolean garbage trailing a GROUP BY / ORDER BY / LIMIT clause, a WHERE
// clause positioned after those clauses, whitespace and semicolon residue,
// and scope-column naming against tables with a column override.
//
// Rules are applied in a fixed order, clause positions are re-scanned after
// every edit, and the sequence runs to a fixed point bounded by
// maxRepairPasses. Repair is idempotent: repairing already-repaired text is a
// no-op. The returned slice names the rules that changed the text.
func Repair(text string, ctx TenantContext) (string, []string) {
	var fired []string
	seen := map[string]bool{}
	record := func(rule string, changed bool) {
		if changed && !seen[rule] {
			seen[rule] = true
			fired = append(fired, rule)
		}
	}

	for pass := 0; pass < maxRepairPasses; pass++ {
		before := text
		var changed bool

		text, changed = removeTrailingGarbage(text)
		record(RuleTrailingGarbage, changed)

		text, changed = relocateMisplacedWhere(text)
		record(RuleMisplacedWhere, changed)

		normalized := normalize(text)
		record(RuleNormalize, normalized != text)
		text = normalized

		text, changed = aliasScopeColumn(text, ctx)
		record(RuleColumnAlias, changed)

		if text == before {
			break
		}
	}

	return text, fired
}

// isTailClause reports whether kind takes no boolean condition; an AND/OR
// continuation after one of these clauses is always garbage.
func isTailClause(kind ClauseKind) bool {
	return kind == ClauseGroupBy || kind == ClauseOrderBy || kind == ClauseLimit
}

// removeTrailingGarbage deletes a stray boolean continuation that follows a
// GROUP BY, ORDER BY or LIMIT clause, e.g. "ORDER BY year AND tenant_id =
// 'x'". The fragment is unreachable SQL and empirically always a duplicate
// rewriting artifact, so it is removed rather than relocated. One fragment is
// removed per call; the fixed-point loop in Repair handles the rest.
func removeTrailingGarbage(text string) (string, bool) {
	sc := scanStatement(text)
	end := statementEnd(text)
	tokens := topLevelWords(text)

	for _, cp := range sc.clauses {
		if !isTailClause(cp.Kind) {
			continue
		}
		segEnd := end
		for _, other := range sc.clauses {
			if other.Offset > cp.Offset && other.Offset < segEnd {
				segEnd = other.Offset
			}
		}
		for _, tok := range tokens {
			if tok.offset <= cp.Offset || tok.offset >= segEnd {
				continue
			}
			upper := strings.ToUpper(tok.text)
			if upper != "AND" && upper != "OR" {
				continue
			}
			head := strings.TrimRight(text[:tok.offset], " ")
			tail := strings.TrimLeft(text[segEnd:], " ")
			if tail != "" && !strings.HasPrefix(tail, ";") {
				head += " "
			}
			return head + tail, true
		}
	}

	return text, false
}

// relocateMisplacedWhere moves a WHERE clause that appears after GROUP BY,
// HAVING, ORDER BY or LIMIT back to its canonical position: the condition is
// extracted, the stray clause deleted, and the condition re-inserted before
// the earliest tail clause, merged via AND with any WHERE already present
// there. Unlike trailing garbage, a misplaced WHERE carries information and
// is preserved.
func relocateMisplacedWhere(text string) (string, bool) {
	end := statementEnd(text)
	tokens := topLevelWords(text)

	tailMin := -1
	for _, cp := range scanStatement(text).clauses {
		if cp.Kind == ClauseWhere {
			continue
		}
		if tailMin < 0 || cp.Offset < tailMin {
			tailMin = cp.Offset
		}
	}
	if tailMin < 0 {
		return text, false
	}

	misplacedIdx := -1
	for i, tok := range tokens {
		if strings.EqualFold(tok.text, "WHERE") && tok.offset > tailMin {
			misplacedIdx = i
			break
		}
	}
	if misplacedIdx < 0 {
		return text, false
	}
	misplaced := tokens[misplacedIdx]

	condEnd := end
	for i := misplacedIdx + 1; i < len(tokens); i++ {
		if isClauseKeyword(tokens, i) {
			condEnd = tokens[i].offset
			break
		}
	}
	cond := strings.TrimSpace(text[misplaced.end():condEnd])

	removed := strings.TrimRight(text[:misplaced.offset], " ")
	removedTail := strings.TrimLeft(text[condEnd:], " ")
	if removedTail != "" && !strings.HasPrefix(removedTail, ";") {
		removed += " "
	}
	removed += removedTail
	if cond == "" {
		return removed, true
	}

	// Re-scan the text with the stray clause deleted before re-inserting.
	sc := scanStatement(removed)
	insertion := statementEnd(removed)
	wherePos := -1
	for _, cp := range sc.clauses {
		if cp.Kind == ClauseWhere {
			wherePos = cp.Offset
			continue
		}
		if cp.Offset < insertion {
			insertion = cp.Offset
		}
	}

	head := strings.TrimRight(removed[:insertion], " ")
	tail := strings.TrimLeft(removed[insertion:], " ")
	if wherePos >= 0 && wherePos < insertion {
		head += " AND " + cond
	} else {
		head += " WHERE " + cond
	}
	if tail != "" && !strings.HasPrefix(tail, ";") {
		head += " "
	}
	return head + tail, true
}

// isClauseKeyword reports whether the token at index i starts a top-level
// clause keyword (WHERE, GROUP BY, HAVING, ORDER BY, LIMIT).
func isClauseKeyword(tokens []token, i int) bool {
	switch strings.ToUpper(tokens[i].text) {
	case "WHERE", "HAVING", "LIMIT":
		return true
	case "GROUP", "ORDER":
		return i+1 < len(tokens) && strings.EqualFold(tokens[i+1].text, "BY")
	}
	return false
}

// aliasScopeColumn rewrites predicate uses of the default scope column to the
// table-specific override when the top-level FROM target has one configured,
// e.g. "WHERE tenant_id = ..." against the tenants table becomes "WHERE id =
// ...". Both the leading WHERE form and AND continuations are covered. Only
// top-level tokens are candidates, so predicates inside sub-selects (which
// target other tables) and text inside string literals are never touched.
func aliasScopeColumn(text string, ctx TenantContext) (string, bool) {
	sc := scanStatement(text)
	if sc.fromTable == "" {
		return text, false
	}
	override, ok := ctx.ColumnOverrides[strings.ToLower(sc.fromTable)]
	if !ok {
		return text, false
	}
	base := ctx.BaseScopeColumn()
	if strings.EqualFold(override, base) {
		return text, false
	}

	tokens := topLevelWords(text)
	var columns []token
	for i := 0; i+1 < len(tokens); i++ {
		switch strings.ToUpper(tokens[i].text) {
		case "WHERE", "AND":
		default:
			continue
		}
		col := tokens[i+1]
		if !strings.EqualFold(col.text, base) {
			continue
		}
		j := col.end()
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j < len(text) && text[j] == '=' {
			columns = append(columns, col)
		}
	}
	if len(columns) == 0 {
		return text, false
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, col := range columns {
		b.WriteString(text[last:col.offset])
		b.WriteString(override)
		last = col.end()
	}
	b.WriteString(text[last:])
	return b.String(), true
}
