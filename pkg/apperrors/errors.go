package apperrors

import "errors"

var (
	// ErrEmptyStatement indicates the input contained no SQL after sanitization.
	ErrEmptyStatement = errors.New("statement is empty after sanitization")
	// ErrNoFromClause indicates the statement has no top-level FROM clause and
	// therefore cannot be tenant-scoped. An unscoped statement is never safe to
	// execute.
	ErrNoFromClause = errors.New("no FROM clause found; cannot scope query")
	// ErrClauseOrder indicates the rewritten statement violates the canonical
	// clause precedence. This is an internal defect surfaced as a structural
	// error rather than emitted silently.
	ErrClauseOrder = errors.New("clause order invariant violated after rewrite")
	// ErrScanInvariant indicates the clause scanner produced an invalid
	// position. Internal invariant violations are reported through the same
	// error path as expected failures so callers handle one taxonomy.
	ErrScanInvariant = errors.New("clause scanner produced an invalid position")
)
