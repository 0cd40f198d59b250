// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the structured logger used across taskview.
//
// taskview speaks MCP over stdout, so all diagnostics MUST go to stderr or
// to a log file. Writing anything else to stdout corrupts the protocol
// stream and desynchronizes the client.
//
// # Key Functions
//
//   - New: Build a zap logger from config (stderr console + optional file)
//   - Nop: No-op logger for tests
//
// # Usage
//
//	logger, err := logging.New(cfg.Logging)
//	if err != nil {
//	    // fall back to stderr-only defaults
//	}
//	defer logger.Sync()
package logging
