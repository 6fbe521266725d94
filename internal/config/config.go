// Package config loads the optional picodb.yml configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFilename is looked up in the working directory when no explicit
// config path is given.
const DefaultFilename = "picodb.yml"

// Config holds the runtime settings of the front ends. Zero values are
// usable: current directory as root, confirmation required, cache and audit
// log on, no backup schedule.
type Config struct {
	// Root is the database directory. Empty means the current directory.
	Root string `yaml:"root"`
	// RequireConfirm guards drop_table and delete without a where clause.
	// The REPL prompts; the one-shot CLI demands --yes.
	RequireConfirm *bool `yaml:"require_confirm"`
	// Cache toggles the select result cache.
	Cache *bool `yaml:"cache"`
	// AuditLog toggles the best-effort command log.
	AuditLog *bool `yaml:"audit_log"`
	// BackupCron, when set, schedules periodic snapshots (five-field CRON
	// expression, UTC).
	BackupCron string `yaml:"backup_cron"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{Root: "."}
}

// Load reads a YAML config file. A missing file at the default path is not
// an error; an explicitly named missing file is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultFilename
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// ConfirmRequired resolves the confirmation policy (default true).
func (c *Config) ConfirmRequired() bool {
	if c.RequireConfirm == nil {
		return true
	}
	return *c.RequireConfirm
}

// CacheEnabled resolves the cache toggle (default true).
func (c *Config) CacheEnabled() bool {
	if c.Cache == nil {
		return true
	}
	return *c.Cache
}

// AuditEnabled resolves the audit log toggle (default true).
func (c *Config) AuditEnabled() bool {
	if c.AuditLog == nil {
		return true
	}
	return *c.AuditLog
}
