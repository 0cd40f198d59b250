// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workspace reads VSCode's per-workspace state database
// (state.vscdb), a SQLite file holding one ItemTable of key/value
// pairs. The extensions keep their per-workspace settings there; this
// package exposes them read-only so a query can report which task a
// workspace is wired to without touching editor state.
package workspace
