package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/1274866478-stack/data-agent-sub001/pkg/audit"
	"github.com/1274866478-stack/data-agent-sub001/pkg/config"
	"github.com/1274866478-stack/data-agent-sub001/pkg/logging"
	"github.com/1274866478-stack/data-agent-sub001/pkg/sql"
)

// QueryRewriteService is the entry point the agent/tool-execution layer uses
// to turn model-generated SQL into a statement that is safe to execute:
// read-only, syntactically repaired, and scoped to exactly one tenant.
type QueryRewriteService interface {
	// RewriteForTenant rewrites rawSQL for the given authenticated tenant.
	// On success the returned SQL ends in exactly one semicolon, is read-only,
	// and carries the tenant-scoping predicate. On failure the error is a
	// *sql.RewriteError carrying the safety reason or structural cause; the
	// statement must not be executed.
	RewriteForTenant(ctx context.Context, rawSQL string, tenantID string) (string, error)
}

type queryRewriteService struct {
	pipeline *sql.Pipeline
	rewriter config.RewriterConfig
	auditor  *audit.RewriteAuditor
	logger   *zap.Logger
}

// NewQueryRewriteService creates a QueryRewriteService with the injected
// thresholds from cfg. The returned service is stateless and safe for
// concurrent use.
func NewQueryRewriteService(cfg *config.Config, auditor *audit.RewriteAuditor, logger *zap.Logger) QueryRewriteService {
	return &queryRewriteService{
		pipeline: sql.NewPipeline(cfg.Rewriter.ClassifierConfig()),
		rewriter: cfg.Rewriter,
		auditor:  auditor,
		logger:   logger.Named("query-rewrite-service"),
	}
}

var _ QueryRewriteService = (*queryRewriteService)(nil)

func (s *queryRewriteService) RewriteForTenant(ctx context.Context, rawSQL string, tenantID string) (string, error) {
	requestID := uuid.New()
	tenant := s.rewriter.TenantContext(tenantID)

	res, err := s.pipeline.Rewrite(rawSQL, tenant)
	if err != nil {
		reason := err.Error()
		if re, ok := sql.AsRewriteError(err); ok && !re.IsStructural() {
			reason = re.Reason().String()
		}
		s.logger.Warn("Rejected SQL rewrite",
			zap.String("request_id", requestID.String()),
			zap.String("tenant_id", tenantID),
			zap.String("query", logging.SanitizeQuery(rawSQL)),
			zap.String("reason", reason))
		s.auditor.LogRejection(requestID, tenantID, rawSQL, reason)
		return "", err
	}

	if len(res.RepairRules) > 0 {
		s.logger.Debug("Repaired malformed clauses",
			zap.String("request_id", requestID.String()),
			zap.Strings("repair_rules", res.RepairRules),
			zap.String("sanitized", logging.SanitizeQuery(res.Sanitized)))
	}

	s.logger.Info("Rewrote SQL for tenant",
		zap.String("request_id", requestID.String()),
		zap.String("tenant_id", tenantID),
		zap.String("query", logging.SanitizeQuery(res.SQL)))
	s.auditor.LogScopeApplied(requestID, tenantID, res.SQL, res.RepairRules)

	return res.SQL, nil
}
