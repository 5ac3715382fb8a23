package sql

import (
	"fmt"
	"regexp"
	"strings"
)

// SafetyReason is the closed enumeration of rejection causes a Classifier can
// produce.
type SafetyReason int

const (
	// ReasonNone means the statement was allowed.
	ReasonNone SafetyReason = iota
	// ReasonNotReadOnly means the statement does not begin with a read-only verb.
	ReasonNotReadOnly
	// ReasonDangerousKeyword means a blacklisted keyword appears in the text.
	ReasonDangerousKeyword
	// ReasonStackedStatement means a second statement follows a semicolon.
	ReasonStackedStatement
	// ReasonSuspectedInjection means an injection-shaped pattern was found.
	ReasonSuspectedInjection
	// ReasonExcessiveComplexity means a complexity guard threshold was exceeded.
	ReasonExcessiveComplexity
)

// String returns a stable machine-readable name for the reason.
func (r SafetyReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNotReadOnly:
		return "not_read_only"
	case ReasonDangerousKeyword:
		return "dangerous_keyword"
	case ReasonStackedStatement:
		return "stacked_statement"
	case ReasonSuspectedInjection:
		return "suspected_injection_pattern"
	case ReasonExcessiveComplexity:
		return "excessive_complexity"
	default:
		return "unknown"
	}
}

// SafetyVerdict is the outcome of classifying one statement. When Allowed is
// false, Reason identifies the rule that fired and the remaining fields carry
// its specifics: Keyword for dangerous-keyword hits, Detail for injection
// findings, Metric/Count/Limit for complexity rejections.
type SafetyVerdict struct {
	Allowed bool
	Reason  SafetyReason
	Keyword string
	Detail  string
	Metric  string
	Count   int
	Limit   int
}

// Describe renders a human-readable explanation of a rejection, suitable for
// surfacing to the caller that generated the statement.
func (v SafetyVerdict) Describe() string {
	switch v.Reason {
	case ReasonNone:
		return "allowed"
	case ReasonNotReadOnly:
		return "statement is not read-only; only SELECT, WITH, SHOW and EXPLAIN are permitted"
	case ReasonDangerousKeyword:
		return fmt.Sprintf("statement contains forbidden keyword %s", v.Keyword)
	case ReasonStackedStatement:
		return "multiple SQL statements are not allowed"
	case ReasonSuspectedInjection:
		if v.Detail != "" {
			return "statement matches a SQL injection pattern: " + v.Detail
		}
		return "statement matches a SQL injection pattern"
	case ReasonExcessiveComplexity:
		return fmt.Sprintf("statement exceeds the %s limit (%d > %d)", v.Metric, v.Count, v.Limit)
	default:
		return "rejected"
	}
}

func allowedVerdict() SafetyVerdict {
	return SafetyVerdict{Allowed: true, Reason: ReasonNone}
}

// DefaultDangerousKeywords is the blacklist applied when a ClassifierConfig
// does not supply one.
var DefaultDangerousKeywords = []string{
	"DROP", "DELETE", "INSERT", "UPDATE", "ALTER", "CREATE",
	"TRUNCATE", "EXEC", "EXECUTE", "CALL", "GRANT", "REVOKE",
}

// readOnlyVerbs are the statement-leading keywords accepted as read-only.
var readOnlyVerbs = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"SHOW":    true,
	"EXPLAIN": true,
}

const (
	// DefaultMaxSelectCount bounds SELECT occurrences per statement.
	DefaultMaxSelectCount = 5
	// DefaultMaxJoinCount bounds JOIN occurrences per statement.
	DefaultMaxJoinCount = 10
)

// ClassifierConfig holds the caller-injected thresholds of the safety
// classifier. Zero values fall back to the package defaults.
type ClassifierConfig struct {
	MaxSelectCount    int
	MaxJoinCount      int
	DangerousKeywords []string
}

// DefaultClassifierConfig returns the default thresholds and keyword set.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MaxSelectCount:    DefaultMaxSelectCount,
		MaxJoinCount:      DefaultMaxJoinCount,
		DangerousKeywords: DefaultDangerousKeywords,
	}
}

// Classifier decides whether a sanitized statement is safe to execute
// read-only. It is immutable after construction and safe for concurrent use.
type Classifier struct {
	maxSelect        int
	maxJoin          int
	dangerousPattern *regexp.Regexp
	keywords         []string
}

var (
	selectCountPattern = regexp.MustCompile(`(?i)\bSELECT\b`)
	joinCountPattern   = regexp.MustCompile(`(?i)\bJOIN\b`)

	// A UNION ... SELECT appearing after a statement terminator is the classic
	// shape of an appended injection. The semicolon here is matched anywhere,
	// including inside string literals: a terminator smuggled through a broken
	// literal boundary is precisely the case this heuristic exists for.
	unionAfterTerminatorPattern = regexp.MustCompile(`(?is);\s*UNION\b.*\bSELECT\b`)
)

// NewClassifier builds a Classifier from cfg, substituting defaults for any
// zero-valued field.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	if cfg.MaxSelectCount <= 0 {
		cfg.MaxSelectCount = DefaultMaxSelectCount
	}
	if cfg.MaxJoinCount <= 0 {
		cfg.MaxJoinCount = DefaultMaxJoinCount
	}
	keywords := cfg.DangerousKeywords
	if len(keywords) == 0 {
		keywords = DefaultDangerousKeywords
	}
	upper := make([]string, len(keywords))
	for i, k := range keywords {
		upper[i] = strings.ToUpper(strings.TrimSpace(k))
	}
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(upper, "|") + `)\b`)
	return &Classifier{
		maxSelect:        cfg.MaxSelectCount,
		maxJoin:          cfg.MaxJoinCount,
		dangerousPattern: pattern,
		keywords:         upper,
	}
}

// Classify applies the safety rules to text in fixed order: dangerous-keyword
// blacklist, statement-kind check, stacked-statement check, injection
// heuristics, complexity guard. The first rule that fires wins; Allowed is
// returned only when none fire.
//
// The blacklist is deliberately not scoped to string literals: an attacker
// who can slip a keyword past a literal boundary error must still be caught,
// and a keyword that only occurs inside a legitimate literal value is an
// accepted false positive in favor of safety.
func (c *Classifier) Classify(text string) SafetyVerdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return SafetyVerdict{Allowed: false, Reason: ReasonNotReadOnly}
	}

	// The blacklist runs before the statement-kind check so that a statement
	// leading with a forbidden verb reports the keyword itself, which is the
	// more actionable rejection.
	if hit := c.dangerousPattern.FindString(trimmed); hit != "" {
		return SafetyVerdict{
			Allowed: false,
			Reason:  ReasonDangerousKeyword,
			Keyword: strings.ToUpper(hit),
		}
	}

	if !readOnlyVerbs[strings.ToUpper(firstWord(trimmed))] {
		return SafetyVerdict{Allowed: false, Reason: ReasonNotReadOnly}
	}

	if hasStackedStatement(trimmed) {
		return SafetyVerdict{Allowed: false, Reason: ReasonStackedStatement}
	}

	if unionAfterTerminatorPattern.MatchString(trimmed) {
		return SafetyVerdict{
			Allowed: false,
			Reason:  ReasonSuspectedInjection,
			Detail:  "UNION SELECT after statement terminator",
		}
	}
	if finding := CheckLiteralInjection(trimmed); finding != nil {
		return SafetyVerdict{
			Allowed: false,
			Reason:  ReasonSuspectedInjection,
			Detail:  "literal fingerprint " + finding.Fingerprint,
		}
	}

	if n := len(selectCountPattern.FindAllStringIndex(trimmed, -1)); n > c.maxSelect {
		return SafetyVerdict{
			Allowed: false,
			Reason:  ReasonExcessiveComplexity,
			Metric:  "SELECT count",
			Count:   n,
			Limit:   c.maxSelect,
		}
	}
	if n := len(joinCountPattern.FindAllStringIndex(trimmed, -1)); n > c.maxJoin {
		return SafetyVerdict{
			Allowed: false,
			Reason:  ReasonExcessiveComplexity,
			Metric:  "JOIN count",
			Count:   n,
			Limit:   c.maxJoin,
		}
	}

	return allowedVerdict()
}

// firstWord returns the leading identifier-shaped word of s.
func firstWord(s string) string {
	i := 0
	for i < len(s) && isIdentChar(s[i]) {
		i++
	}
	return s[:i]
}

// hasStackedStatement reports whether a semicolon outside string literals is
// followed by any further non-whitespace content. The trailing terminator of
// a single statement does not count.
func hasStackedStatement(text string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
	)

	state := stateNormal
	for i := 0; i < len(text); i++ {
		c := text[i]
		if state == stateSingleQuote {
			if c == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					i++
					continue
				}
				state = stateNormal
			}
			continue
		}
		switch c {
		case '\'':
			state = stateSingleQuote
		case ';':
			if strings.TrimSpace(text[i+1:]) != "" {
				return true
			}
		}
	}
	return false
}
