package audit

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return logger, recorded
}

func TestNewRewriteAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewRewriteAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogRejection(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewRewriteAuditor(logger)

	requestID := uuid.New()
	auditor.LogRejection(requestID, "tenant-1", "DROP TABLE users", "dangerous_keyword")

	entries := recorded.All()
	require.Len(t, entries, 1)
	entry := entries[0]

	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, string(EventQueryRejected), entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, requestID.String(), fields["request_id"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.Equal(t, "dangerous_keyword", fields["reason"])

	var event RewriteEvent
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, EventQueryRejected, event.EventType)
	assert.Equal(t, "warning", event.Severity)
	assert.Contains(t, event.Query, "DROP TABLE users")
}

func TestLogScopeApplied(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewRewriteAuditor(logger)

	requestID := uuid.New()
	auditor.LogScopeApplied(requestID, "tenant-1",
		"SELECT * FROM users WHERE tenant_id = 'tenant-1';", nil)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, string(EventTenantScopeApplied), entries[0].Message)
}

func TestLogScopeAppliedWithRepairs(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewRewriteAuditor(logger)

	auditor.LogScopeApplied(uuid.New(), "tenant-1",
		"SELECT year FROM sales WHERE tenant_id = 'tenant-1' GROUP BY year;",
		[]string{"misplaced_where_relocation"})

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(EventClauseRepaired), entries[0].Message)

	var event RewriteEvent
	fields := entries[0].ContextMap()
	require.NoError(t, json.Unmarshal([]byte(fields["event_json"].(string)), &event))
	assert.Equal(t, []string{"misplaced_where_relocation"}, event.Rules)
}
