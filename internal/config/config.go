// Package config provides configuration management for onboard.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrz1836/onboard/internal/fileutil"
)

// Store backend names.
const (
	StoreBolt   = "bolt"
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
	StoreFile   = "file"
)

// Config represents the application configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Home       string           `yaml:"home"`
	Store      StoreConfig      `yaml:"store"`
	Backend    ServiceConfig    `yaml:"backend"`
	Chat       ServiceConfig    `yaml:"chat"`
	Rates      RatesConfig      `yaml:"rates"`
	Push       PushConfig       `yaml:"push"`
	Encryption EncryptionConfig `yaml:"encryption"`
	Onboarding OnboardingConfig `yaml:"onboarding"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// StoreConfig selects the local state store backend.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ServiceConfig describes a remote HTTP collaborator.
type ServiceConfig struct {
	URL            string  `yaml:"url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	Burst          int     `yaml:"burst"`
}

// RatesConfig defines the exchange-rate service settings.
type RatesConfig struct {
	ServiceConfig `yaml:",inline"`
	Fiat          []string `yaml:"fiat"`
}

// PushConfig defines the push notification token source.
type PushConfig struct {
	Token string `yaml:"token"`
}

// EncryptionConfig defines wallet encryption settings.
type EncryptionConfig struct {
	// WorkFactor is the log2 scrypt cost. 14 corresponds to N=16384.
	WorkFactor int    `yaml:"work_factor"`
	PINSalt    string `yaml:"pin_salt"`
}

// OnboardingConfig holds the UI-yield delays used between workflow steps.
type OnboardingConfig struct {
	UIYieldMillis       int `yaml:"ui_yield_ms"`
	RetryDelayMillis    int `yaml:"retry_delay_ms"`
	UsernameDelayMillis int `yaml:"username_delay_ms"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	Color         string `yaml:"color"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.ReplaceFile(path, data)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// GetHome returns the home directory path with "~/" expanded.
func (c *Config) GetHome() string {
	return ExpandHome(c.Home)
}

// GetStorePath returns the store path, relative paths resolved against home.
func (c *Config) GetStorePath() string {
	p := ExpandHome(c.Store.Path)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.GetHome(), p)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// GetOnboarding returns the onboarding delay configuration.
func (c *Config) GetOnboarding() OnboardingConfig {
	return c.Onboarding
}

// Timeout returns the request timeout for a service, falling back to 30 seconds.
func (s ServiceConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// UIYield returns the delay used to let the UI render before heavy work.
func (o OnboardingConfig) UIYield() time.Duration {
	return time.Duration(o.UIYieldMillis) * time.Millisecond
}

// RetryDelay returns the delay before a deferred backend registration.
func (o OnboardingConfig) RetryDelay() time.Duration {
	return time.Duration(o.RetryDelayMillis) * time.Millisecond
}

// UsernameDelay returns the delay before a username availability check.
func (o OnboardingConfig) UsernameDelay() time.Duration {
	return time.Duration(o.UsernameDelayMillis) * time.Millisecond
}

// DefaultHome returns the default onboard home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".onboard"
	}
	return filepath.Join(home, ".onboard")
}

// ExpandHome expands a leading "~/" to the user's home directory.
func ExpandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
