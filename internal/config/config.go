// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/taskview/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete taskview configuration.
type Config struct {
	// Version of the config schema
	Version string `toml:"version" json:"version"`

	// Storage configuration (where task directories live)
	Storage StorageConfig `toml:"storage" json:"storage"`

	// Query configuration (limits, timeouts, cache behavior)
	Query QueryConfig `toml:"query" json:"query"`

	// Advice configuration (external-advice writes)
	Advice AdviceConfig `toml:"advice" json:"advice"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging" json:"logging"`
}

// StorageConfig controls which task roots are scanned.
type StorageConfig struct {
	// ExtraRoots are additional task directories searched before the
	// standard VSCode globalStorage locations. Useful for portable
	// installs and tests.
	ExtraRoots []string `toml:"extra_roots" json:"extra_roots"`
	// DisableDefaultRoots skips the standard VSCode locations entirely,
	// leaving only ExtraRoots. Mostly useful for tests.
	DisableDefaultRoots bool `toml:"disable_default_roots" json:"disable_default_roots"`
}

// QueryConfig controls query bounds and read behavior.
type QueryConfig struct {
	// CacheTTLSecs is how long resolved locations and query results stay
	// fresh before being re-read from disk
	CacheTTLSecs int `toml:"cache_ttl_secs" json:"cache_ttl_secs"`
	// DefaultLimit is the message count used when a tool call omits one
	DefaultLimit int `toml:"default_limit" json:"default_limit"`
	// MaxLimit caps the message count regardless of what a tool call asks for
	MaxLimit int `toml:"max_limit" json:"max_limit"`
	// ReadTimeoutMs bounds a single read-and-parse of one conversation file
	ReadTimeoutMs int `toml:"read_timeout_ms" json:"read_timeout_ms"`
	// MaxFileSizeMB refuses conversation files larger than this
	MaxFileSizeMB int `toml:"max_file_size_mb" json:"max_file_size_mb"`
}

// AdviceConfig controls writes into task directories.
type AdviceConfig struct {
	// Enabled allows send_external_advice to write advice files.
	// When false taskview is strictly read-only.
	Enabled bool `toml:"enabled" json:"enabled"`
}

// LoggingConfig controls diagnostic output.
// Logs go to stderr and optionally to a file; stdout carries the
// protocol stream and must stay clean.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error"
	Level string `toml:"level" json:"level"`
	// File is an optional path for a JSON log file (empty = stderr only)
	File string `toml:"file" json:"file"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Storage: StorageConfig{
			ExtraRoots:          nil,
			DisableDefaultRoots: false,
		},

		Query: QueryConfig{
			CacheTTLSecs:  30,
			DefaultLimit:  20,
			MaxLimit:      100,
			ReadTimeoutMs: 3000,
			MaxFileSizeMB: 50,
		},

		Advice: AdviceConfig{
			Enabled: true,
		},

		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// CacheTTL returns the query cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Query.CacheTTLSecs) * time.Second
}

// ReadTimeout returns the per-file read timeout as a duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.Query.ReadTimeoutMs) * time.Millisecond
}

// MaxFileSize returns the conversation file size cap in bytes.
func (c *Config) MaxFileSize() int64 {
	return int64(c.Query.MaxFileSizeMB) * 1024 * 1024
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the taskview configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".taskview"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only); extra
// roots can reveal project locations to other local users.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err // File doesn't exist or not accessible
	}

	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}

	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finish(cfg)
			}
		}
	}

	// Defaults only (with any load error for informational purposes)
	cfg, err = finish(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Missing keys keep their default values.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		// Default to TOML
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// finish applies env overrides, normalization, and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file into cfg.
// Decoding on top of a Default() keeps defaults for absent keys.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Log warning but don't fail - permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file into cfg.
// SECURITY: Checks and fixes file permissions on load.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		// Log warning but don't fail - permissions might not be fixable on all systems
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// SECURITY: Ensure permissions are correct even if file already existed
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	// Write header comment
	fmt.Fprintln(file, "# taskview configuration file")
	fmt.Fprintln(file, "# Generated by taskview - edit with care")
	fmt.Fprintln(file, "#")
	fmt.Fprintln(file, "# Documentation: https://github.com/jeranaias/taskview")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// SaveJSON saves the configuration to a JSON file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Query.DefaultLimit < 1 {
		errs = append(errs, ValidationError{
			Field:   "query.default_limit",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Query.DefaultLimit),
		})
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		errs = append(errs, ValidationError{
			Field:   "query.max_limit",
			Message: fmt.Sprintf("must be at least default_limit (%d), got %d", c.Query.DefaultLimit, c.Query.MaxLimit),
		})
	}
	if c.Query.CacheTTLSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "query.cache_ttl_secs",
			Message: fmt.Sprintf("cannot be negative, got %d", c.Query.CacheTTLSecs),
		})
	}
	if c.Query.ReadTimeoutMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "query.read_timeout_ms",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Query.ReadTimeoutMs),
		})
	}
	if c.Query.MaxFileSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "query.max_file_size_mb",
			Message: fmt.Sprintf("must be at least 1, got %d", c.Query.MaxFileSizeMB),
		})
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if c.Logging.Level != "" && !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults normalizes values and fills anything a partial config
// file or env override left empty.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Query.CacheTTLSecs == 0 {
		c.Query.CacheTTLSecs = defaults.Query.CacheTTLSecs
	}
	if c.Query.DefaultLimit == 0 {
		c.Query.DefaultLimit = defaults.Query.DefaultLimit
	}
	if c.Query.MaxLimit == 0 {
		c.Query.MaxLimit = defaults.Query.MaxLimit
	}
	if c.Query.ReadTimeoutMs == 0 {
		c.Query.ReadTimeoutMs = defaults.Query.ReadTimeoutMs
	}
	if c.Query.MaxFileSizeMB == 0 {
		c.Query.MaxFileSizeMB = defaults.Query.MaxFileSizeMB
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	// Drop blank root entries so path scanning never sees them.
	var roots []string
	for _, r := range c.Storage.ExtraRoots {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			roots = append(roots, trimmed)
		}
	}
	c.Storage.ExtraRoots = roots
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
// Supported variables:
//   - TASKVIEW_EXTRA_ROOTS: path-list of extra task roots (overrides storage.extra_roots)
//   - TASKVIEW_DISABLE_DEFAULT_ROOTS: "1"/"true" skips standard VSCode locations
//   - TASKVIEW_CACHE_TTL_SECS: overrides query.cache_ttl_secs
//   - TASKVIEW_READ_TIMEOUT_MS: overrides query.read_timeout_ms
//   - TASKVIEW_ADVICE_ENABLED: "0"/"false" makes taskview strictly read-only
//   - TASKVIEW_LOG_LEVEL: overrides logging.level
//   - TASKVIEW_LOG_FILE: overrides logging.file
func (c *Config) ApplyEnvOverrides() {
	// TASKVIEW_EXTRA_ROOTS
	if roots := os.Getenv("TASKVIEW_EXTRA_ROOTS"); roots != "" {
		c.Storage.ExtraRoots = filepath.SplitList(roots)
	}

	// TASKVIEW_DISABLE_DEFAULT_ROOTS
	if disable := os.Getenv("TASKVIEW_DISABLE_DEFAULT_ROOTS"); disable != "" {
		c.Storage.DisableDefaultRoots = disable == "1" || strings.ToLower(disable) == "true"
	}

	// TASKVIEW_CACHE_TTL_SECS
	if ttl := os.Getenv("TASKVIEW_CACHE_TTL_SECS"); ttl != "" {
		if secs, err := strconv.Atoi(ttl); err == nil && secs >= 0 {
			c.Query.CacheTTLSecs = secs
		}
	}

	// TASKVIEW_READ_TIMEOUT_MS
	if timeout := os.Getenv("TASKVIEW_READ_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil && ms > 0 {
			c.Query.ReadTimeoutMs = ms
		}
	}

	// TASKVIEW_ADVICE_ENABLED
	if advice := os.Getenv("TASKVIEW_ADVICE_ENABLED"); advice != "" {
		c.Advice.Enabled = advice == "1" || strings.ToLower(advice) == "true"
	}

	// TASKVIEW_LOG_LEVEL
	if level := os.Getenv("TASKVIEW_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}

	// TASKVIEW_LOG_FILE
	if file := os.Getenv("TASKVIEW_LOG_FILE"); file != "" {
		c.Logging.File = file
	}
}
