package logging

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		{
			name:     "plain query unchanged",
			input:    "SELECT * FROM users WHERE tenant_id = 't1';",
			contains: "SELECT * FROM users",
		},
		{
			name:     "password redacted",
			input:    "SELECT * FROM t WHERE conn = 'password=hunter2'",
			contains: RedactedText,
			excludes: "hunter2",
		},
		{
			name:     "api key redacted",
			input:    "SELECT 'api_key=abcdefghijklmnopqrstuv' FROM t",
			contains: RedactedText,
			excludes: "abcdefghijklmnopqrstuv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeQuery(tt.input)
			if tt.contains != "" && !strings.Contains(got, tt.contains) {
				t.Errorf("SanitizeQuery(%q) = %q, want it to contain %q", tt.input, got, tt.contains)
			}
			if tt.excludes != "" && strings.Contains(got, tt.excludes) {
				t.Errorf("SanitizeQuery(%q) = %q, must not contain %q", tt.input, got, tt.excludes)
			}
		})
	}
}

func TestSanitizeQueryTruncates(t *testing.T) {
	long := strings.Repeat("SELECT * FROM users UNION ALL ", 50)
	got := SanitizeQuery(long)
	if len(got) > MaxQueryLogLength+len("...") {
		t.Errorf("length %d exceeds limit", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated query should end with ellipsis: %q", got)
	}
}

func TestSanitizeError(t *testing.T) {
	if got := SanitizeError(nil); got != "" {
		t.Errorf("SanitizeError(nil) = %q, want empty", got)
	}

	err := errors.New("connect postgres://admin:s3cret@db:5432/x failed")
	got := SanitizeError(err)
	if strings.Contains(got, "s3cret") {
		t.Errorf("credential survived redaction: %q", got)
	}
	if !strings.Contains(got, RedactedText) {
		t.Errorf("expected redaction marker in %q", got)
	}
}

func TestSanitizeConnectionString(t *testing.T) {
	got := SanitizeConnectionString("postgres://user:pw@localhost:5432/db?password=pw2")
	if strings.Contains(got, "pw") && !strings.Contains(got, RedactedText) {
		t.Errorf("credentials survived: %q", got)
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := TruncateString("0123456789", 4); got != "0123..." {
		t.Errorf("got %q", got)
	}
}
