// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"
)

// VersionInfo describes the running binary. Fields are set at build
// time through -ldflags.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

// NewVersionInfo fills the runtime fields around the build-time ones.
func NewVersionInfo(version, commit, date string) VersionInfo {
	return VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
}

// PrintVersion writes version information to stdout.
func PrintVersion(info VersionInfo, jsonOut bool) {
	if jsonOut {
		NewJSONResponse("version", info).Print()
		return
	}
	fmt.Printf("taskview %s (%s, built %s, %s %s/%s)\n",
		info.Version, info.Commit, info.Date, info.Go, info.OS, info.Arch)
}
