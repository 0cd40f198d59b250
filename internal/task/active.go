// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/paths"
)

// activeTasksFile mirrors active_tasks.json on disk.
type activeTasksFile struct {
	ActiveTasks []activeTaskRecord `json:"activeTasks"`
}

type activeTaskRecord struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	LastActivated int64  `json:"lastActivated"`
}

// ReadActiveMarkers scans the roots in resolution order and returns the
// markers from the first root whose active_tasks.json parses into at
// least one usable marker, mirroring the first-match rule used for task
// directories. A file that parses but holds no markers says nothing
// about the other roots, so the scan continues past it. The file is
// written by the same crash-prone path as the conversations, so it gets
// the same repair treatment. No root having a usable file is normal
// (the extension may never have marked a task) and yields nil.
func ReadActiveMarkers(ctx context.Context, roots []paths.Root, reader *Reader, logger *zap.Logger) []ActiveMarker {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, root := range roots {
		path := filepath.Join(root.Dir, ActiveTasksFileName)
		data, err := reader.ReadWithRetry(ctx, path)
		if err != nil {
			continue
		}
		repaired, ok := ParseWithRepair(data)
		if !ok {
			logger.Warn("active tasks file unparseable even after repair",
				zap.String("path", path))
			continue
		}
		var f activeTasksFile
		if err := json.Unmarshal(repaired, &f); err != nil {
			continue
		}

		markers := make([]ActiveMarker, 0, len(f.ActiveTasks))
		for _, rec := range f.ActiveTasks {
			if rec.ID == "" {
				continue
			}
			markers = append(markers, ActiveMarker{
				TaskID:        rec.ID,
				Label:         strings.ToUpper(strings.TrimSpace(rec.Label)),
				LastActivated: rec.LastActivated,
			})
		}
		if len(markers) > 0 {
			return markers
		}
	}
	return nil
}

// SelectActiveMarker picks which marker an "active task" request refers
// to. This is the single place the selection policy lives:
//
//  1. An explicit label matches that label or nothing.
//  2. With no label, window A wins over window B.
//  3. With neither labeled window present, the most recently
//     activated marker wins.
func SelectActiveMarker(markers []ActiveMarker, label string) (ActiveMarker, bool) {
	if len(markers) == 0 {
		return ActiveMarker{}, false
	}

	if label != "" {
		want := strings.ToUpper(strings.TrimSpace(label))
		for _, m := range markers {
			if m.Label == want {
				return m, true
			}
		}
		return ActiveMarker{}, false
	}

	for _, m := range markers {
		if m.Label == ActiveLabelA {
			return m, true
		}
	}
	for _, m := range markers {
		if m.Label == ActiveLabelB {
			return m, true
		}
	}

	best := markers[0]
	for _, m := range markers[1:] {
		if m.LastActivated > best.LastActivated {
			best = m
		}
	}
	return best, true
}
