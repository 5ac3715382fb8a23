package sql

import "testing"

func TestClassifyAllowed(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	allowed := []string{
		"SELECT * FROM users;",
		"SELECT year, SUM(sales) FROM sales_data GROUP BY year ORDER BY year;",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent;",
		"SHOW search_path;",
		"EXPLAIN SELECT * FROM users;",
		"select lower(name) from users where status = 'active';",
	}
	for _, q := range allowed {
		if v := c.Classify(q); !v.Allowed {
			t.Errorf("Classify(%q) rejected: %s", q, v.Describe())
		}
	}
}

func TestClassifyRejections(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	tests := []struct {
		name    string
		input   string
		reason  SafetyReason
		keyword string
	}{
		{
			name:    "drop statement",
			input:   "DROP TABLE users;",
			reason:  ReasonDangerousKeyword,
			keyword: "DROP",
		},
		{
			name:    "delete hidden mid-statement",
			input:   "SELECT * FROM users; DELETE FROM users;",
			reason:  ReasonDangerousKeyword,
			keyword: "DELETE",
		},
		{
			name:    "keyword inside string literal still rejected",
			input:   "SELECT * FROM audit WHERE action = 'DROP';",
			reason:  ReasonDangerousKeyword,
			keyword: "DROP",
		},
		{
			name:   "not read-only verb",
			input:  "VACUUM users;",
			reason: ReasonNotReadOnly,
		},
		{
			name:   "empty statement",
			input:  "",
			reason: ReasonNotReadOnly,
		},
		{
			name:   "stacked select statements",
			input:  "SELECT 1; SELECT 2;",
			reason: ReasonStackedStatement,
		},
		{
			name:   "union select after terminator inside literal",
			input:  "SELECT * FROM users WHERE name = 'x; UNION SELECT password FROM accounts';",
			reason: ReasonSuspectedInjection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Classify(tt.input)
			if v.Allowed {
				t.Fatalf("Classify(%q) allowed, want rejection %v", tt.input, tt.reason)
			}
			if v.Reason != tt.reason {
				t.Errorf("reason = %v, want %v", v.Reason, tt.reason)
			}
			if tt.keyword != "" && v.Keyword != tt.keyword {
				t.Errorf("keyword = %q, want %q", v.Keyword, tt.keyword)
			}
		})
	}
}

func TestClassifyInjectionLiteralBackstop(t *testing.T) {
	c := NewClassifier(DefaultClassifierConfig())

	v := c.Classify("SELECT * FROM users WHERE name = 'x'' OR ''1''=''1';")
	if v.Allowed {
		t.Fatal("expected injection-shaped literal to be rejected")
	}
	if v.Reason != ReasonSuspectedInjection {
		t.Errorf("reason = %v, want %v", v.Reason, ReasonSuspectedInjection)
	}

	// Ordinary literal values must not trip the backstop.
	if v := c.Classify("SELECT * FROM users WHERE status = 'active';"); !v.Allowed {
		t.Errorf("plain literal rejected: %s", v.Describe())
	}
	if v := c.Classify("SELECT * FROM users WHERE tenant_id = 'test_tenant_123';"); !v.Allowed {
		t.Errorf("tenant literal rejected: %s", v.Describe())
	}
}

func TestClassifyComplexityGuard(t *testing.T) {
	c := NewClassifier(ClassifierConfig{MaxSelectCount: 2, MaxJoinCount: 1})

	v := c.Classify("SELECT a, (SELECT 1), (SELECT 2) FROM t;")
	if v.Allowed || v.Reason != ReasonExcessiveComplexity {
		t.Errorf("expected SELECT complexity rejection, got %+v", v)
	}
	if v.Count != 3 || v.Limit != 2 {
		t.Errorf("count/limit = %d/%d, want 3/2", v.Count, v.Limit)
	}

	v = c.Classify("SELECT * FROM a JOIN b ON a.id = b.id JOIN c ON b.id = c.id;")
	if v.Allowed || v.Reason != ReasonExcessiveComplexity {
		t.Errorf("expected JOIN complexity rejection, got %+v", v)
	}

	// Within limits.
	if v := c.Classify("SELECT * FROM a JOIN b ON a.id = b.id;"); !v.Allowed {
		t.Errorf("within-limit query rejected: %s", v.Describe())
	}
}

func TestClassifyCustomKeywords(t *testing.T) {
	c := NewClassifier(ClassifierConfig{DangerousKeywords: []string{"MERGE", "COPY"}})

	v := c.Classify("SELECT * FROM users; MERGE INTO archive USING users;")
	if v.Allowed || v.Reason != ReasonDangerousKeyword || v.Keyword != "MERGE" {
		t.Errorf("expected MERGE rejection, got %+v", v)
	}

	// The default blacklist is replaced, not extended.
	if v := c.Classify("SELECT * FROM audit WHERE action = 'DROP';"); !v.Allowed {
		t.Errorf("DROP should be permitted with custom keyword set: %s", v.Describe())
	}
}
