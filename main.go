// taskview - read access to RigCoder task conversations over MCP.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/cli"
	"github.com/jeranaias/taskview/internal/config"
	"github.com/jeranaias/taskview/internal/logging"
	"github.com/jeranaias/taskview/internal/server"
	"github.com/jeranaias/taskview/internal/task"
)

// Build-time version information, set through -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "taskview: %v\n", err)
		fmt.Fprint(os.Stderr, cli.Usage())
		return 2
	}

	switch opts.Command {
	case cli.CmdHelp:
		fmt.Print(cli.Usage())
		return 0
	case cli.CmdVersion:
		cli.PrintVersion(cli.NewVersionInfo(version, commit, date), opts.JSON)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "taskview: %v\n", err)
		return 1
	}

	logger, err := logging.New(logging.Options{
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "taskview: logger: %v\n", err)
		logger = logging.Nop()
	}
	defer logger.Sync()

	store := task.NewStore(cfg, logger)

	if opts.Command == cli.CmdDoctor {
		return cli.Doctor(context.Background(), store, opts.JSON)
	}

	// Serve. Stdout now belongs to the protocol.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("taskview starting",
		zap.String("version", version),
		zap.Int("roots", len(store.Roots())))

	srv := server.NewServer(store, version, logger)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server exited", zap.Error(err))
		return 1
	}
	return 0
}

// loadConfig loads configuration and folds the command line into it.
// Flags win over environment, environment wins over file.
func loadConfig(opts *cli.Options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromPath(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if len(opts.ExtraRoots) > 0 {
		cfg.Storage.ExtraRoots = append(opts.ExtraRoots, cfg.Storage.ExtraRoots...)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.LogFile != "" {
		cfg.Logging.File = opts.LogFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
