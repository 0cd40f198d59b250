// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - storage diagnostics.
//
// Command: doctor
// Aliases: diag, diagnose
//
// Checks performed:
//  1. Config Valid    - configuration loads and validates
//  2. Roots Present   - which candidate roots exist on disk
//  3. Tasks Found     - how many task directories each root holds
//  4. Active Markers  - whether an active_tasks.json resolves
//
// Flags:
//
//	--json   Output in JSON format
//
// Exit codes:
//
//	0   at least one root with tasks was found
//	1   no usable storage found
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/jeranaias/taskview/internal/task"
)

// RootStatus is one candidate root's diagnosis.
type RootStatus struct {
	Dir     string `json:"dir"`
	Variant string `json:"variant"`
	Exists  bool   `json:"exists"`
	Tasks   int    `json:"tasks"`
}

// DoctorReport is the full diagnosis.
type DoctorReport struct {
	Roots         []RootStatus        `json:"roots"`
	TotalTasks    int                 `json:"totalTasks"`
	ActiveMarkers []task.ActiveMarker `json:"activeMarkers"`
	Healthy       bool                `json:"healthy"`
}

// Doctor inspects the store's roots and prints a report. Returns the
// process exit code.
func Doctor(ctx context.Context, store *task.Store, jsonOut bool) int {
	report := buildReport(ctx, store)

	if jsonOut {
		resp := NewJSONResponse("doctor", report)
		if !report.Healthy {
			resp.Success = false
		}
		resp.Print()
	} else {
		printReport(report)
	}

	if report.Healthy {
		return 0
	}
	return 1
}

func buildReport(ctx context.Context, store *task.Store) *DoctorReport {
	report := &DoctorReport{}

	for _, root := range store.Roots() {
		status := RootStatus{Dir: root.Dir, Variant: string(root.Variant)}
		if info, err := os.Stat(root.Dir); err == nil && info.IsDir() {
			status.Exists = true
			if entries, err := os.ReadDir(root.Dir); err == nil {
				for _, entry := range entries {
					if entry.IsDir() && task.IsValidTaskID(entry.Name()) {
						status.Tasks++
					}
				}
			}
		}
		report.TotalTasks += status.Tasks
		report.Roots = append(report.Roots, status)
	}

	report.ActiveMarkers = store.ActiveMarkers(ctx)
	report.Healthy = report.TotalTasks > 0
	return report
}

func printReport(report *DoctorReport) {
	fmt.Println("taskview doctor")
	fmt.Println()

	fmt.Println("Candidate roots (resolution order):")
	for _, root := range report.Roots {
		mark := "absent"
		if root.Exists {
			mark = fmt.Sprintf("%d tasks", root.Tasks)
		}
		fmt.Printf("  [%-8s] %-8s %s\n", root.Variant, mark, root.Dir)
	}
	fmt.Println()

	if len(report.ActiveMarkers) > 0 {
		fmt.Println("Active tasks:")
		for _, m := range report.ActiveMarkers {
			fmt.Printf("  %s: %s\n", m.Label, m.TaskID)
		}
	} else {
		fmt.Println("Active tasks: none recorded")
	}
	fmt.Println()

	if report.Healthy {
		fmt.Printf("OK: %d task(s) visible\n", report.TotalTasks)
	} else {
		fmt.Println("FAIL: no tasks found under any root")
		fmt.Println("  Is the RigCoder extension installed, and has it recorded a task?")
		fmt.Println("  Point taskview at storage directly with --root <dir>.")
	}
}
