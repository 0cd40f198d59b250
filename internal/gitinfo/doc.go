// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gitinfo reads a repository's current state by shelling out to
// git. It answers one question: what is the working tree a conversation
// refers to sitting on right now (branch, commit, dirtiness, recent
// history)? Nothing here mutates the repository.
package gitinfo
