// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package paths enumerates the candidate task storage roots for the
// RigCoder family of VSCode extensions.
//
// The extensions persist each task under VSCode global storage:
//
//	<globalStorage>/morganforge.rigcoder-ultra/tasks/<taskId>/   (ultra)
//	<globalStorage>/morganforge.rigcoder/tasks/<taskId>/         (standard)
//
// Where <globalStorage> depends on the platform and the VSCode install
// channel (stable vs Insiders). The search order returned by CandidateRoots
// is a contract, not an accident: configured extra roots come first, then
// for each platform convention the ultra variant before the standard one,
// stable installs before Insiders. Resolution elsewhere takes the first
// root that contains the task.
//
// # Usage
//
//	roots := paths.CandidateRoots(cfg.Storage.ExtraRoots)
//	for _, root := range roots {
//	    // probe root.Dir/<taskId>
//	}
package paths
