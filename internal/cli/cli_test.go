// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jeranaias/taskview/internal/config"
	"github.com/jeranaias/taskview/internal/task"
)

func TestParse_Defaults(t *testing.T) {
	opts, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Command != CmdServe {
		t.Errorf("default command = %v, want CmdServe", opts.Command)
	}
}

func TestParse_Commands(t *testing.T) {
	tests := []struct {
		args []string
		want Command
	}{
		{[]string{"serve"}, CmdServe},
		{[]string{"doctor"}, CmdDoctor},
		{[]string{"diag"}, CmdDoctor},
		{[]string{"version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"--version"}, CmdVersion},
		{[]string{"-v"}, CmdVersion},
		{[]string{"-h"}, CmdHelp},
	}
	for _, tt := range tests {
		opts, err := Parse(tt.args)
		if err != nil {
			t.Errorf("Parse(%v): %v", tt.args, err)
			continue
		}
		if opts.Command != tt.want {
			t.Errorf("Parse(%v) = %v, want %v", tt.args, opts.Command, tt.want)
		}
	}
}

func TestParse_Flags(t *testing.T) {
	opts, err := Parse([]string{
		"doctor",
		"--config", "/tmp/tv.toml",
		"--log-level=debug",
		"--root", "/a",
		"--root=/b",
		"--json",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Command != CmdDoctor {
		t.Errorf("command = %v", opts.Command)
	}
	if opts.ConfigPath != "/tmp/tv.toml" {
		t.Errorf("config = %q", opts.ConfigPath)
	}
	if opts.LogLevel != "debug" {
		t.Errorf("log level = %q", opts.LogLevel)
	}
	if len(opts.ExtraRoots) != 2 || opts.ExtraRoots[0] != "/a" || opts.ExtraRoots[1] != "/b" {
		t.Errorf("roots = %v", opts.ExtraRoots)
	}
	if !opts.JSON {
		t.Error("json flag not set")
	}
}

func TestParse_Errors(t *testing.T) {
	for _, args := range [][]string{
		{"frobnicate"},
		{"--unknown"},
		{"--config"}, // value missing
	} {
		if _, err := Parse(args); err == nil {
			t.Errorf("Parse(%v) accepted", args)
		}
	}
}

func TestDoctor_ExitCodes(t *testing.T) {
	root := t.TempDir()

	cfg := config.Default()
	cfg.Storage.ExtraRoots = []string{root}
	cfg.Storage.DisableDefaultRoots = true

	// Empty root: unhealthy.
	store := task.NewStore(cfg, nil)
	if code := Doctor(context.Background(), store, true); code != 1 {
		t.Errorf("empty storage exit code = %d, want 1", code)
	}

	// One task directory: healthy. Fresh store so nothing is cached.
	if err := os.MkdirAll(filepath.Join(root, "100"), 0755); err != nil {
		t.Fatal(err)
	}
	store = task.NewStore(cfg, nil)
	if code := Doctor(context.Background(), store, true); code != 0 {
		t.Errorf("populated storage exit code = %d, want 0", code)
	}
}
