package sql

import (
	"fmt"
	"strings"

	"github.com/1274866478-stack/data-agent-sub001/pkg/apperrors"
)

// InjectTenantScope inserts the tenant-isolation predicate into text at the
// syntactically correct position. It is the only function permitted to add
// the scoping predicate.
//
// The operation is idempotent: when a top-level predicate on the resolved
// scope column already exists it returns text unchanged, and never overwrites
// an existing predicate with a different tenant value. A statement without a
// top-level FROM clause cannot be scoped and yields ErrNoFromClause; callers
// must treat such a statement as unsafe to execute.
//
// The tenant identifier is interpolated as a quoted literal without escaping.
// Tenant IDs are trusted, internally generated values from an authenticated
// identity source, never end-user strings; see TenantContext.
func InjectTenantScope(text string, ctx TenantContext) (string, error) {
	sc := scanStatement(text)
	if sc.fromOffset < 0 {
		return text, fmt.Errorf("cannot apply tenant scope: %w", apperrors.ErrNoFromClause)
	}

	column := ctx.ScopeColumnFor(sc.fromTable)

	if hasScopePredicate(text, column) {
		return text, nil
	}

	end := statementEnd(text)
	if end < 0 || end > len(text) {
		return text, fmt.Errorf("cannot apply tenant scope: %w", apperrors.ErrScanInvariant)
	}

	insertion := end
	wherePos := -1
	for _, cp := range sc.clauses {
		if cp.Offset < 0 {
			return text, fmt.Errorf("cannot apply tenant scope: %w", apperrors.ErrScanInvariant)
		}
		if cp.Kind == ClauseWhere {
			wherePos = cp.Offset
			continue
		}
		if cp.Offset < insertion {
			insertion = cp.Offset
		}
	}

	predicate := column + " = '" + ctx.TenantID + "'"
	head := strings.TrimRight(text[:insertion], " ")
	tail := strings.TrimLeft(text[insertion:], " ")

	if wherePos >= 0 && wherePos < insertion {
		head += " AND " + predicate
	} else {
		head += " WHERE " + predicate
	}
	if tail != "" && !strings.HasPrefix(tail, ";") {
		head += " "
	}
	out := head + tail

	if !clausesInCanonicalOrder(ScanClauses(out)) {
		return text, fmt.Errorf("tenant scope injection produced invalid SQL: %w", apperrors.ErrClauseOrder)
	}

	return out, nil
}

// hasScopePredicate reports whether text already contains a top-level
// predicate on column inside the WHERE chain, i.e. the column name (bare or
// qualified) directly followed by an equals sign, between the top-level WHERE
// and the earliest tail clause. An equality on the scope column elsewhere in
// the statement, such as a boolean expression in the select list, is not a
// tenant predicate and must not suppress injection.
func hasScopePredicate(text string, column string) bool {
	sc := scanStatement(text)
	wherePos := -1
	chainEnd := statementEnd(text)
	for _, cp := range sc.clauses {
		if cp.Kind == ClauseWhere {
			wherePos = cp.Offset
			continue
		}
		if cp.Offset < chainEnd {
			chainEnd = cp.Offset
		}
	}
	if wherePos < 0 {
		return false
	}
	for _, tok := range topLevelWords(text) {
		if tok.offset <= wherePos || tok.offset >= chainEnd {
			continue
		}
		if !strings.EqualFold(tok.text, column) {
			continue
		}
		i := tok.end()
		for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
			i++
		}
		if i < len(text) && text[i] == '=' {
			return true
		}
	}
	return false
}
