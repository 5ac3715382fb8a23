// Package audit provides security audit logging for SIEM consumption. Every
// rewrite decision that matters to tenant isolation (an applied scope, a
// repaired statement, a rejection) is logged as a structured JSON event.
package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/1274866478-stack/data-agent-sub001/pkg/logging"
)

// RewriteEventType categorizes rewrite audit events for filtering and alerting.
type RewriteEventType string

const (
	// EventQueryRejected is logged when the safety classifier or a structural
	// check refuses a statement.
	EventQueryRejected RewriteEventType = "query_rejected"
	// EventTenantScopeApplied is logged when a statement is successfully
	// rewritten and tenant-scoped.
	EventTenantScopeApplied RewriteEventType = "tenant_scope_applied"
	// EventClauseRepaired is logged when the repair engine changed a
	// statement before scoping.
	EventClauseRepaired RewriteEventType = "clause_repaired"
)

// RewriteEvent is an auditable rewrite decision with the context a SIEM needs
// to reconstruct it. Query text is sanitized and truncated before it is
// embedded.
type RewriteEvent struct {
	Timestamp time.Time        `json:"timestamp"`
	EventType RewriteEventType `json:"event_type"`
	RequestID uuid.UUID        `json:"request_id"`
	TenantID  string           `json:"tenant_id"`
	Reason    string           `json:"reason,omitempty"`
	Query     string           `json:"query,omitempty"`
	Rules     []string         `json:"repair_rules,omitempty"`
	Severity  string           `json:"severity"` // info, warning, critical
}

// RewriteAuditor logs rewrite decisions for SIEM consumption.
type RewriteAuditor struct {
	logger *zap.Logger
}

// NewRewriteAuditor creates an auditor with a dedicated logger namespace so
// SIEM pipelines can filter rewrite events.
func NewRewriteAuditor(logger *zap.Logger) *RewriteAuditor {
	return &RewriteAuditor{logger: logger.Named("rewrite_audit")}
}

// LogRejection records a refused statement. Rejections are logged at WARN
// level with "warning" severity: they are expected outcomes for adversarial
// or malformed input, but spikes warrant alerting.
func (a *RewriteAuditor) LogRejection(requestID uuid.UUID, tenantID, rawSQL, reason string) {
	event := RewriteEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventQueryRejected,
		RequestID: requestID,
		TenantID:  tenantID,
		Reason:    reason,
		Query:     logging.SanitizeQuery(rawSQL),
		Severity:  "warning",
	}
	a.log(event, eventFields(event)...)
}

// LogScopeApplied records a successful, tenant-scoped rewrite. Logged at INFO
// level; repair rule names are included when the statement needed fixing.
func (a *RewriteAuditor) LogScopeApplied(requestID uuid.UUID, tenantID, finalSQL string, repairRules []string) {
	eventType := EventTenantScopeApplied
	if len(repairRules) > 0 {
		eventType = EventClauseRepaired
	}
	event := RewriteEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		RequestID: requestID,
		TenantID:  tenantID,
		Query:     logging.SanitizeQuery(finalSQL),
		Rules:     repairRules,
		Severity:  "info",
	}
	a.log(event, eventFields(event)...)
}

func (a *RewriteAuditor) log(event RewriteEvent, fields ...zap.Field) {
	// Marshaling known types does not fail; the error is deliberately dropped.
	eventJSON, _ := json.Marshal(event)
	fields = append(fields, zap.String("event_json", string(eventJSON)))

	switch event.Severity {
	case "critical":
		a.logger.Error(string(event.EventType), fields...)
	case "warning":
		a.logger.Warn(string(event.EventType), fields...)
	default:
		a.logger.Info(string(event.EventType), fields...)
	}
}

func eventFields(event RewriteEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("request_id", event.RequestID.String()),
		zap.String("tenant_id", event.TenantID),
		zap.String("severity", event.Severity),
	}
	if event.Reason != "" {
		fields = append(fields, zap.String("reason", event.Reason))
	}
	if len(event.Rules) > 0 {
		fields = append(fields, zap.Strings("repair_rules", event.Rules))
	}
	return fields
}
