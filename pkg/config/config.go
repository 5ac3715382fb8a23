// Package config loads the rewriter's injected configuration values.
// Configuration can come from YAML file (config.yaml) or environment
// variables; environment variables always override YAML values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/1274866478-stack/data-agent-sub001/pkg/sql"
)

// Config holds all configuration for the rewriting service.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Rewriter RewriterConfig `yaml:"rewriter"`
}

// RewriterConfig holds the thresholds and scoping rules injected into the
// rewriting pipeline. The pipeline itself owns no configuration surface; these
// values are plain data handed to it at construction.
type RewriterConfig struct {
	// MaxSelectCount bounds SELECT occurrences per statement (complexity guard).
	MaxSelectCount int `yaml:"max_select_count" env:"REWRITER_MAX_SELECT_COUNT" env-default:"5"`
	// MaxJoinCount bounds JOIN occurrences per statement (complexity guard).
	MaxJoinCount int `yaml:"max_join_count" env:"REWRITER_MAX_JOIN_COUNT" env-default:"10"`

	// DangerousKeywordsStr is a comma-separated keyword blacklist. Empty means
	// the built-in default set.
	DangerousKeywordsStr string `yaml:"dangerous_keywords" env:"REWRITER_DANGEROUS_KEYWORDS" env-default:""`
	// DangerousKeywords is the parsed form of DangerousKeywordsStr.
	DangerousKeywords []string `yaml:"-"`

	// ScopeColumn is the default tenant-scoping column.
	ScopeColumn string `yaml:"scope_column" env:"REWRITER_SCOPE_COLUMN" env-default:"tenant_id"`

	// ColumnOverridesStr is a comma-separated list of table=column pairs for
	// tables whose tenant key is not the default scope column, e.g.
	// "tenants=id".
	ColumnOverridesStr string `yaml:"column_overrides" env:"REWRITER_COLUMN_OVERRIDES" env-default:"tenants=id"`
	// ColumnOverrides is the parsed form of ColumnOverridesStr, keyed by
	// lowercase table name.
	ColumnOverrides map[string]string `yaml:"-"`
}

// Load reads configuration from config.yaml (if present) with environment
// variable overrides, then parses the compound fields.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) parseComplexFields() error {
	r := &c.Rewriter

	r.DangerousKeywords = nil
	if s := strings.TrimSpace(r.DangerousKeywordsStr); s != "" {
		for _, k := range strings.Split(s, ",") {
			k = strings.TrimSpace(k)
			if k != "" {
				r.DangerousKeywords = append(r.DangerousKeywords, strings.ToUpper(k))
			}
		}
	}

	r.ColumnOverrides = map[string]string{}
	if s := strings.TrimSpace(r.ColumnOverridesStr); s != "" {
		for _, pair := range strings.Split(s, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			table, column, ok := strings.Cut(pair, "=")
			table = strings.TrimSpace(table)
			column = strings.TrimSpace(column)
			if !ok || table == "" || column == "" {
				return fmt.Errorf("malformed column override %q (want table=column)", pair)
			}
			r.ColumnOverrides[strings.ToLower(table)] = column
		}
	}

	return nil
}

// Validate checks that the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Rewriter.MaxSelectCount <= 0 {
		return fmt.Errorf("max_select_count must be positive, got %d", c.Rewriter.MaxSelectCount)
	}
	if c.Rewriter.MaxJoinCount <= 0 {
		return fmt.Errorf("max_join_count must be positive, got %d", c.Rewriter.MaxJoinCount)
	}
	if strings.TrimSpace(c.Rewriter.ScopeColumn) == "" {
		return fmt.Errorf("scope_column must not be empty")
	}
	return nil
}

// ClassifierConfig maps the rewriter configuration onto the classifier's
// threshold struct.
func (r *RewriterConfig) ClassifierConfig() sql.ClassifierConfig {
	return sql.ClassifierConfig{
		MaxSelectCount:    r.MaxSelectCount,
		MaxJoinCount:      r.MaxJoinCount,
		DangerousKeywords: r.DangerousKeywords,
	}
}

// TenantContext builds the per-request tenant context for tenantID using the
// configured scope column and overrides.
func (r *RewriterConfig) TenantContext(tenantID string) sql.TenantContext {
	return sql.TenantContext{
		TenantID:        tenantID,
		ScopeColumn:     r.ScopeColumn,
		ColumnOverrides: r.ColumnOverrides,
	}
}
