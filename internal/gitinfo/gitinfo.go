// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gitinfo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// commandTimeout bounds each git invocation. Git on a local repository
// answers in milliseconds; anything slower means a wedged filesystem
// and the request should not wait on it.
const commandTimeout = 5 * time.Second

// recentCommitCount is how many recent subjects a snapshot carries.
const recentCommitCount = 5

// ErrNotRepository is returned when the directory is not inside a git
// working tree. Absence is not transient, so there is no retry.
var ErrNotRepository = errors.New("not a git repository")

// Info is one point-in-time view of a repository.
type Info struct {
	Branch        string   `json:"branch"`
	Commit        string   `json:"commit"`
	Dirty         bool     `json:"dirty"`
	RecentCommits []string `json:"recentCommits,omitempty"`
}

// Snapshot inspects the repository containing dir.
func Snapshot(ctx context.Context, dir string) (*Info, error) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	if _, err := run(ctx, dir, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}

	info := &Info{}

	branch, err := run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		// A repository with no commits yet has no HEAD to name.
		return info, nil
	}
	info.Branch = branch

	if commit, err := run(ctx, dir, "rev-parse", "--short", "HEAD"); err == nil {
		info.Commit = commit
	}

	if status, err := run(ctx, dir, "status", "--porcelain"); err == nil {
		info.Dirty = status != ""
	}

	if log, err := run(ctx, dir, "log", fmt.Sprintf("-%d", recentCommitCount), "--pretty=format:%h %s"); err == nil && log != "" {
		info.RecentCommits = strings.Split(log, "\n")
	}

	return info, nil
}

// run executes one git subcommand in dir and returns trimmed stdout.
func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}
