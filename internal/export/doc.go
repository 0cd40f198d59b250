// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export renders task conversations for consumption outside the
// editor.
//
// # Supported Formats
//
//   - JSON: machine-readable, faithful to the normalized messages
//   - Markdown: human-readable transcript with YAML frontmatter
//
// # Usage
//
//	content, err := export.Render(conv, "markdown", nil)
//
// The rendered document is returned as a string; callers decide whether
// it lands in a file or goes straight back over the wire.
package export
