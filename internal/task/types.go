// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"path/filepath"

	"github.com/jeranaias/taskview/internal/paths"
)

// =============================================================================
// ROLES
// =============================================================================

// Canonical message roles. Raw files use varying vocabulary ("user",
// "human"); NormalizeRole maps everything onto these three.
const (
	RoleHuman     = "human"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// =============================================================================
// FILE LAYOUT
// =============================================================================

// Per-task files written by the RigCoder extensions.
const (
	// HistoryFileName holds the API message sequence for a task.
	HistoryFileName = "api_conversation_history.json"
	// UIFileName holds the rendered chat records shown in the extension panel.
	UIFileName = "ui_messages.json"
	// ActiveTasksFileName sits at a root and records which task each
	// editor window currently has open.
	ActiveTasksFileName = "active_tasks.json"

	// adviceDirName is the per-task directory advice files are written to.
	adviceDirName = "external-advice"
)

// Sentinel task ids accepted wherever a real id is.
const (
	// TaskActiveA resolves to the conversation active in window A.
	TaskActiveA = "ACTIVE_A"
	// TaskActiveB resolves to the conversation active in window B.
	TaskActiveB = "ACTIVE_B"
)

// Active marker window labels.
const (
	ActiveLabelA = "A"
	ActiveLabelB = "B"
)

// =============================================================================
// CORE TYPES
// =============================================================================

// Message is one conversation turn, normalized from either on-disk form.
type Message struct {
	// Role is one of RoleHuman, RoleAssistant, RoleSystem.
	Role string `json:"role"`
	// Content is the display rendering of the message body.
	Content string `json:"content"`
	// Timestamp is epoch milliseconds; 0 when the record carried none.
	Timestamp int64 `json:"timestamp,omitempty"`
}

// Location is a resolved task directory: which root holds the task and
// which extension variant that root belongs to.
type Location struct {
	TaskID  string        `json:"taskId"`
	RootDir string        `json:"rootDir"`
	Variant paths.Variant `json:"variant"`
}

// Dir returns the task directory itself.
func (l Location) Dir() string {
	return filepath.Join(l.RootDir, l.TaskID)
}

// HistoryPath returns the path of the task's API history file.
func (l Location) HistoryPath() string {
	return filepath.Join(l.RootDir, l.TaskID, HistoryFileName)
}

// UIPath returns the path of the task's UI message file.
func (l Location) UIPath() string {
	return filepath.Join(l.RootDir, l.TaskID, UIFileName)
}

// AdviceDir returns the task's external-advice directory.
func (l Location) AdviceDir() string {
	return filepath.Join(l.RootDir, l.TaskID, adviceDirName)
}

// ActiveMarker records which task an editor window currently has open.
type ActiveMarker struct {
	TaskID string `json:"taskId"`
	// Label is ActiveLabelA or ActiveLabelB.
	Label string `json:"label"`
	// LastActivated is epoch milliseconds of the window's last activation.
	LastActivated int64 `json:"lastActivated"`
}

// Options bound and filter one extraction.
type Options struct {
	// Limit caps how many messages are returned; 0 means unbounded.
	Limit int
	// Since drops messages whose timestamp is present and earlier than
	// this epoch-millisecond value. Messages without timestamps pass.
	Since int64
	// Search drops messages whose content does not contain this term,
	// compared case-folded. Empty matches everything.
	Search string
}

// IsValidTaskID reports whether id is safe to use as a directory name
// under a task root.
// SECURITY: Rejects path separators and dot names so a hostile id can
// never escape the scanned roots.
func IsValidTaskID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
