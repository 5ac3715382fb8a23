// Package sql implements the statement rewriting and safety enforcement
// pipeline for model-generated SQL: sanitization, clause-position scanning,
// read-only classification, clause repair, and tenant-scope injection.
//
// The pipeline operates on token and clause positions, not an AST. That is a
// deliberate choice: the rewriting task only needs top-level clause boundaries,
// and a full parser would expand scope far beyond what is needed.
package sql

import "strings"

// DefaultScopeColumn is the tenant-scoping column used when a TenantContext
// does not name one and no table override applies.
const DefaultScopeColumn = "tenant_id"

// ClauseKind identifies one of the top-level SQL clauses the pipeline reasons
// about. The declaration order is the canonical precedence order: in valid SQL
// WHERE precedes all others and LIMIT is last.
type ClauseKind int

const (
	ClauseWhere ClauseKind = iota
	ClauseGroupBy
	ClauseHaving
	ClauseOrderBy
	ClauseLimit

	clauseKindCount
)

// String returns the SQL keyword for the clause kind.
func (k ClauseKind) String() string {
	switch k {
	case ClauseWhere:
		return "WHERE"
	case ClauseGroupBy:
		return "GROUP BY"
	case ClauseHaving:
		return "HAVING"
	case ClauseOrderBy:
		return "ORDER BY"
	case ClauseLimit:
		return "LIMIT"
	default:
		return "UNKNOWN"
	}
}

// ClausePosition is the byte offset of a top-level clause keyword in a
// statement's current text. Offsets are only valid for the exact text they
// were scanned from; any edit invalidates them.
type ClausePosition struct {
	Kind   ClauseKind
	Offset int
}

// Statement is an immutable snapshot of a SQL candidate at one pipeline stage.
// Raw preserves the original input for audit logging; Text is the current
// (possibly rewritten) form; Clauses, FromOffset and FromTable are always
// consistent with Text.
type Statement struct {
	Raw        string
	Text       string
	Clauses    []ClausePosition
	FromOffset int
	FromTable  string
}

// NewStatement builds a Statement for text, scanning clause positions.
// Raw is carried through unchanged for audit purposes.
func NewStatement(raw, text string) Statement {
	sc := scanStatement(text)
	return Statement{
		Raw:        raw,
		Text:       text,
		Clauses:    sc.clauses,
		FromOffset: sc.fromOffset,
		FromTable:  sc.fromTable,
	}
}

// WithText returns a new Statement for the edited text with freshly scanned
// clause positions. The receiver is not modified.
func (s Statement) WithText(text string) Statement {
	return NewStatement(s.Raw, text)
}

// Clause returns the position of the given clause kind and whether it is
// present at the top level of the statement.
func (s Statement) Clause(kind ClauseKind) (ClausePosition, bool) {
	for _, cp := range s.Clauses {
		if cp.Kind == kind {
			return cp, true
		}
	}
	return ClausePosition{}, false
}

// TenantContext carries the authenticated tenant identity and the scoping
// column configuration for one rewrite invocation. TenantID is trusted: it
// must come from an authenticated identity source, never from end-user input,
// because the injector interpolates it into the statement verbatim.
type TenantContext struct {
	TenantID string
	// ScopeColumn is the default tenant-scoping column. Empty means
	// DefaultScopeColumn.
	ScopeColumn string
	// ColumnOverrides maps a table name (lowercase) to the scoping column to
	// use when that table is the top-level FROM target. Handles schema
	// irregularities such as a tenants table whose tenant key is literally id.
	ColumnOverrides map[string]string
}

// BaseScopeColumn returns the default scoping column for this context.
func (c TenantContext) BaseScopeColumn() string {
	if c.ScopeColumn != "" {
		return c.ScopeColumn
	}
	return DefaultScopeColumn
}

// ScopeColumnFor resolves the scoping column for the given FROM target table,
// applying ColumnOverrides before falling back to the context default.
func (c TenantContext) ScopeColumnFor(table string) string {
	if table != "" {
		if col, ok := c.ColumnOverrides[strings.ToLower(table)]; ok {
			return col
		}
	}
	return c.BaseScopeColumn()
}
