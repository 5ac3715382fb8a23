package sql

import "testing"

func TestNewStatementScansClauses(t *testing.T) {
	stmt := NewStatement("raw input", "SELECT * FROM users WHERE x = 1 ORDER BY name;")

	if stmt.Raw != "raw input" {
		t.Errorf("Raw = %q", stmt.Raw)
	}
	if stmt.FromTable != "users" {
		t.Errorf("FromTable = %q", stmt.FromTable)
	}
	if _, ok := stmt.Clause(ClauseWhere); !ok {
		t.Error("WHERE clause not found")
	}
	if _, ok := stmt.Clause(ClauseLimit); ok {
		t.Error("LIMIT clause reported but absent")
	}
}

func TestWithTextRescansPositions(t *testing.T) {
	stmt := NewStatement("raw", "SELECT * FROM users;")
	if _, ok := stmt.Clause(ClauseWhere); ok {
		t.Fatal("unexpected WHERE in original")
	}

	edited := stmt.WithText("SELECT * FROM users WHERE x = 1;")
	where, ok := edited.Clause(ClauseWhere)
	if !ok {
		t.Fatal("WHERE clause not found after edit")
	}
	if edited.Text[where.Offset:where.Offset+5] != "WHERE" {
		t.Errorf("stale offset %d for edited text", where.Offset)
	}
	if stmt.Raw != edited.Raw {
		t.Errorf("Raw must be carried through edits")
	}

	// The original snapshot is unchanged.
	if _, ok := stmt.Clause(ClauseWhere); ok {
		t.Error("original statement mutated by WithText")
	}
}

func TestTenantContextColumnResolution(t *testing.T) {
	ctx := TenantContext{
		TenantID:        "t1",
		ColumnOverrides: map[string]string{"tenants": "id"},
	}

	if got := ctx.BaseScopeColumn(); got != DefaultScopeColumn {
		t.Errorf("BaseScopeColumn = %q", got)
	}
	if got := ctx.ScopeColumnFor("tenants"); got != "id" {
		t.Errorf("ScopeColumnFor(tenants) = %q", got)
	}
	if got := ctx.ScopeColumnFor("Tenants"); got != "id" {
		t.Errorf("override lookup must be case-insensitive, got %q", got)
	}
	if got := ctx.ScopeColumnFor("users"); got != "tenant_id" {
		t.Errorf("ScopeColumnFor(users) = %q", got)
	}

	custom := TenantContext{TenantID: "t1", ScopeColumn: "org_id"}
	if got := custom.ScopeColumnFor(""); got != "org_id" {
		t.Errorf("ScopeColumnFor with custom column = %q", got)
	}
}

func TestClauseKindString(t *testing.T) {
	expected := map[ClauseKind]string{
		ClauseWhere:   "WHERE",
		ClauseGroupBy: "GROUP BY",
		ClauseHaving:  "HAVING",
		ClauseOrderBy: "ORDER BY",
		ClauseLimit:   "LIMIT",
	}
	for kind, want := range expected {
		if got := kind.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", kind, got, want)
		}
	}
}
