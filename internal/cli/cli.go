// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// Command is what the invocation asked taskview to do.
type Command int

const (
	// CmdServe runs the MCP server on stdio. The default.
	CmdServe Command = iota
	// CmdDoctor runs configuration and storage diagnostics.
	CmdDoctor
	// CmdVersion prints version information.
	CmdVersion
	// CmdHelp prints usage.
	CmdHelp
)

// Options is the parsed command line.
type Options struct {
	Command Command

	// ConfigPath overrides the default config file location.
	ConfigPath string
	// LogLevel overrides logging.level from config.
	LogLevel string
	// LogFile overrides logging.file from config.
	LogFile string
	// ExtraRoots are prepended to the configured task roots (--root,
	// repeatable).
	ExtraRoots []string
	// JSON switches doctor/version output to JSON.
	JSON bool
}

// Parse interprets the arguments after the program name.
func Parse(args []string) (*Options, error) {
	opts := &Options{Command: CmdServe}

	i := 0
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "serve":
			opts.Command = CmdServe
		case "doctor", "diag", "diagnose":
			opts.Command = CmdDoctor
		case "version":
			opts.Command = CmdVersion
		case "help":
			opts.Command = CmdHelp
		default:
			return nil, fmt.Errorf("unknown command: %s", args[0])
		}
		i = 1
	}

	for ; i < len(args); i++ {
		arg := args[i]

		name, value, hasValue := strings.Cut(arg, "=")
		takeValue := func() (string, error) {
			if hasValue {
				return value, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("flag %s needs a value", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "--config":
			v, err := takeValue()
			if err != nil {
				return nil, err
			}
			opts.ConfigPath = v
		case "--log-level":
			v, err := takeValue()
			if err != nil {
				return nil, err
			}
			opts.LogLevel = v
		case "--log-file":
			v, err := takeValue()
			if err != nil {
				return nil, err
			}
			opts.LogFile = v
		case "--root":
			v, err := takeValue()
			if err != nil {
				return nil, err
			}
			opts.ExtraRoots = append(opts.ExtraRoots, v)
		case "--json":
			opts.JSON = true
		case "--version", "-v":
			opts.Command = CmdVersion
		case "--help", "-h":
			opts.Command = CmdHelp
		default:
			return nil, fmt.Errorf("unknown flag: %s", name)
		}
	}

	return opts, nil
}

// Usage returns the help text.
func Usage() string {
	return `taskview - read access to RigCoder task conversations over MCP

Usage:
  taskview [command] [flags]

Commands:
  serve      Run the MCP server on stdio (default)
  doctor     Check configuration and task storage
  version    Print version information
  help       Show this help

Flags:
  --config <path>      Config file to load instead of ~/.taskview/config.toml
  --root <dir>         Extra task root to scan first (repeatable)
  --log-level <level>  Log level: debug, info, warn, error
  --log-file <path>    Also write JSON logs to this file
  --json               JSON output (doctor, version)
  -v, --version        Print version information
  -h, --help           Show this help
`
}
