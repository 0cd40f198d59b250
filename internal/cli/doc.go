// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses taskview's command line and implements the small
// commands that run instead of the server: doctor, version, and help.
//
// The default command is serve, which speaks MCP on stdio. Everything
// this package prints goes to stdout only when the server is NOT about
// to run; the serve path prints nothing, because stdout belongs to the
// protocol.
package cli
