package sql

import (
	"errors"
	"fmt"

	"github.com/1274866478-stack/data-agent-sub001/pkg/apperrors"
)

// RewriteError is the terminal error of the rewriting pipeline. It carries
// either a policy rejection (Verdict) or a structural failure (wrapped
// sentinel from pkg/apperrors); both mean the statement must not be executed.
type RewriteError struct {
	// Verdict holds the classifier rejection when Reason is a policy one.
	Verdict SafetyVerdict
	// Err is the underlying structural error, nil for policy rejections.
	Err error
}

// Error implements the error interface.
func (e *RewriteError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Verdict.Describe()
}

// Unwrap exposes the structural cause for errors.Is checks.
func (e *RewriteError) Unwrap() error { return e.Err }

// Reason returns the safety reason of a policy rejection, or ReasonNone for
// structural failures.
func (e *RewriteError) Reason() SafetyReason {
	if e.Err != nil {
		return ReasonNone
	}
	return e.Verdict.Reason
}

// IsStructural reports whether the failure is structural rather than a policy
// rejection.
func (e *RewriteError) IsStructural() bool { return e.Err != nil }

// AsRewriteError extracts a *RewriteError from an error chain.
func AsRewriteError(err error) (*RewriteError, bool) {
	var re *RewriteError
	ok := errors.As(err, &re)
	return re, ok
}

// RewriteResult is the successful outcome of one pipeline invocation.
type RewriteResult struct {
	// Statement is the final snapshot: the original input, the rewritten
	// text, and its clause positions.
	Statement Statement
	// SQL is the final statement text: normalized, read-only, tenant-scoped,
	// terminated by exactly one semicolon.
	SQL string
	// Sanitized is the statement after sanitization, before repair and
	// injection. Kept for audit logging.
	Sanitized string
	// RepairRules names the repair rules that changed the statement.
	RepairRules []string
}

// Pipeline composes the rewriting stages: sanitize, classify (fail closed),
// repair, inject, classify again. It is immutable and safe for concurrent
// use; every invocation operates on its own copies.
type Pipeline struct {
	classifier *Classifier
}

// NewPipeline builds a Pipeline with the given classifier thresholds.
func NewPipeline(cfg ClassifierConfig) *Pipeline {
	return &Pipeline{classifier: NewClassifier(cfg)}
}

// Rewrite takes arbitrary model-generated SQL and a tenant identity and
// produces a repaired, safety-checked, tenant-scoped statement, or an error
// naming the specific safety or structural reason. Ambiguity always resolves
// toward rejection, never toward permissive execution.
//
// The classifier runs twice: once on the sanitized input so a forbidden
// statement is rejected before any rewriting, and once on the final output so
// the repair and injection stages can never turn a safe statement into an
// unsafe one.
func (p *Pipeline) Rewrite(raw string, tenant TenantContext) (RewriteResult, error) {
	sanitized := Sanitize(raw)
	if sanitized == "" {
		return RewriteResult{}, &RewriteError{
			Err: fmt.Errorf("rewrite failed: %w", apperrors.ErrEmptyStatement),
		}
	}

	if verdict := p.classifier.Classify(sanitized); !verdict.Allowed {
		return RewriteResult{}, &RewriteError{Verdict: verdict}
	}

	repaired, rules := Repair(sanitized, tenant)

	scoped, err := InjectTenantScope(repaired, tenant)
	if err != nil {
		return RewriteResult{}, &RewriteError{Err: err}
	}

	if verdict := p.classifier.Classify(scoped); !verdict.Allowed {
		return RewriteResult{}, &RewriteError{Verdict: verdict}
	}

	final := NewStatement(raw, scoped)
	if !clausesInCanonicalOrder(final.Clauses) {
		return RewriteResult{}, &RewriteError{
			Err: fmt.Errorf("rewrite produced invalid SQL: %w", apperrors.ErrClauseOrder),
		}
	}

	return RewriteResult{Statement: final, SQL: final.Text, Sanitized: sanitized, RepairRules: rules}, nil
}
