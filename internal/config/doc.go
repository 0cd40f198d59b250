// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for taskview.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - StorageConfig: Task root locations
//   - QueryConfig: Limits, timeouts, and cache TTL
//   - LoggingConfig: Diagnostic output settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (TASKVIEW_*)
//   - ~/.taskview/config.toml
//   - ~/.taskview/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	ttl := cfg.CacheTTL()
//	limit := cfg.Query.DefaultLimit
package config
