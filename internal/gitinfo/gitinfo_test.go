// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gitinfo

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// gitOrSkip skips tests on machines without git on PATH.
func gitOrSkip(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// initRepo creates a repository with one commit and returns its path.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, args := range [][]string{
		{"init"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, args := range [][]string{
		{"add", "README.md"},
		{"commit", "-m", "initial commit"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v\n%s", args, err, out)
		}
	}
	return dir
}

func TestSnapshot_CleanRepo(t *testing.T) {
	gitOrSkip(t)
	dir := initRepo(t)

	info, err := Snapshot(context.Background(), dir)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if info.Branch == "" {
		t.Error("branch is empty")
	}
	if info.Commit == "" {
		t.Error("commit is empty")
	}
	if info.Dirty {
		t.Error("fresh commit reported dirty")
	}
	if len(info.RecentCommits) != 1 {
		t.Fatalf("recent commits = %d, want 1", len(info.RecentCommits))
	}
}

func TestSnapshot_DirtyRepo(t *testing.T) {
	gitOrSkip(t)
	dir := initRepo(t)

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("changed\n"), 0644); err != nil {
		t.Fatal(err)
	}

	info, err := Snapshot(context.Background(), dir)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !info.Dirty {
		t.Error("modified tree not reported dirty")
	}
}

func TestSnapshot_NotARepository(t *testing.T) {
	gitOrSkip(t)
	_, err := Snapshot(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("err = %v, want ErrNotRepository", err)
	}
}

func TestSnapshot_MissingDirectory(t *testing.T) {
	_, err := Snapshot(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNotRepository) {
		t.Fatalf("err = %v, want ErrNotRepository", err)
	}
}
