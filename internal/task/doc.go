// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package task provides read access to the conversation files the
// RigCoder VSCode extensions write under their task directories.
//
// The extensions own these files and rewrite them at will, sometimes
// mid-write, so everything in this package leans defensive: reads are
// retried, parses are repaired, slow files are abandoned on a timer,
// and a partial answer always beats a hard failure.
//
// # Key Types
//
//   - Store: Facade over resolution, extraction, search, and advice
//   - Locator: Maps task ids to directories across candidate roots
//   - Extractor: Bounded, filtered message extraction from one file
//   - Message: One normalized conversation turn
//   - ActiveMarker: Which task an editor window currently has open
//
// # Usage
//
// Build a store and query it:
//
//	store := task.NewStore(cfg, logger)
//	msgs, err := store.GetLastMessages(ctx, "1712345678901", 20)
//
// Resolve the active conversation:
//
//	id, err := store.ResolveTaskID(ctx, task.TaskActiveA)
//
// # File Layout
//
// Each task directory holds api_conversation_history.json (the API
// message sequence) and ui_messages.json (the rendered chat records).
// A root-level active_tasks.json records per-window active tasks.
// Advice written by this package goes to external-advice/, one file
// per advice id, never overwritten.
package task
