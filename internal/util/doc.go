// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across taskview.
//
// This package contains common helper functions for string handling and
// crash-safe file operations.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Truncate long message previews safely
//	preview := util.TruncateRunes(content, 100)
//
//	// Write advice files atomically to prevent partial reads
//	err := util.AtomicWriteFile(path, data, 0644)
package util
