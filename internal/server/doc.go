// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the task store over the Model Context Protocol.
//
// The server speaks MCP on stdio: stdout carries the protocol frames,
// which is why every log line in this program goes to stderr. Each tool
// handler validates and clamps its arguments, calls one store
// operation, and returns plain data for the SDK to serialize.
//
// # Tools
//
//   - list_recent_tasks
//   - get_last_n_messages
//   - get_messages_since
//   - search_conversations
//   - get_conversation_context
//   - get_active_task
//   - send_external_advice
//   - export_task
//   - get_git_context
//   - get_workspace_state
package server
