// Package config loads auditgate configuration from YAML with sane
// defaults. A missing file yields the defaults; a malformed file is an
// error.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/auditgate/internal/notify"
	"github.com/ppiankov/auditgate/internal/risk"
)

// LedgerConfig configures the audit chain.
type LedgerConfig struct {
	Path        string `yaml:"path"`
	KeyPath     string `yaml:"key_path"`
	MaxEntries  int    `yaml:"max_entries"`
	ArchivePath string `yaml:"archive_path"`
}

// ForwardConfig configures best-effort delivery to a remote collector.
// Empty base URL disables forwarding.
type ForwardConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// ConsentConfig configures the approval workflow.
type ConsentConfig struct {
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	RiskThreshold  risk.Level `yaml:"risk_threshold"`
	AlwaysRequire  []string   `yaml:"always_require"`
	NeverRequire   []string   `yaml:"never_require"`
	SpoolDir       string     `yaml:"spool_dir"`
}

// Config is the full auditgate configuration.
type Config struct {
	Ledger  LedgerConfig         `yaml:"ledger"`
	Forward ForwardConfig        `yaml:"forward"`
	Consent ConsentConfig        `yaml:"consent"`
	Notify  notify.WebhookConfig `yaml:"notify"`
}

// DefaultDir returns the auditgate home directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "auditgate")
	}
	return filepath.Join(home, ".auditgate")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Ledger: LedgerConfig{
			Path:        filepath.Join(dir, "ledger.json"),
			KeyPath:     filepath.Join(dir, "ledger.key"),
			MaxEntries:  10000,
			ArchivePath: filepath.Join(dir, "archive.db"),
		},
		Consent: ConsentConfig{
			TimeoutSeconds: 300,
			RiskThreshold:  risk.LevelHigh,
			SpoolDir:       filepath.Join(dir, "spool"),
		},
	}
}

// LoadConfig reads the config at path, overlaying the defaults. A missing
// file returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash additionally returns "sha256:<hex>" of the raw config
// bytes, for recording which policy was in force. The hash of the defaults
// (no file) is the empty string.
func LoadConfigWithHash(path string) (*Config, string, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, "", nil
		}
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Timeout returns the consent timeout as a duration.
func (c *ConsentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Gate converts the consent section into the classifier's gate config.
func (c *ConsentConfig) Gate() risk.GateConfig {
	return risk.GateConfig{
		Threshold:     c.RiskThreshold,
		AlwaysRequire: c.AlwaysRequire,
		NeverRequire:  c.NeverRequire,
	}
}
