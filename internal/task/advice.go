// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/util"
)

// Advice is a note dropped into a task's external-advice directory for
// the extension to surface inside the editor. It is the one thing
// taskview writes into a task, and the write is append-only: an id is
// never reused and an existing file is never replaced.
type Advice struct {
	ID        string `json:"id"`
	Type      string `json:"type,omitempty"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	Read      bool   `json:"read"`
}

// WriteAdvice stores advice for the task and returns it with the id
// and timestamp filled in. The target file is created atomically so
// the extension, which polls this directory, never sees a half-written
// document.
func (s *Store) WriteAdvice(ctx context.Context, taskID string, advice Advice) (Advice, error) {
	if !s.cfg.Advice.Enabled {
		return Advice{}, ErrAdviceDisabled
	}
	if advice.Content == "" {
		return Advice{}, fmt.Errorf("advice content is empty")
	}

	loc, err := s.Resolve(ctx, taskID)
	if err != nil {
		return Advice{}, err
	}

	if advice.ID == "" {
		advice.ID = uuid.NewString()
	} else if !IsValidTaskID(advice.ID) {
		// Same character rules as task ids; the id becomes a file name.
		return Advice{}, fmt.Errorf("invalid advice id %q", advice.ID)
	}
	if advice.CreatedAt == 0 {
		advice.CreatedAt = time.Now().UnixMilli()
	}

	dir := loc.AdviceDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Advice{}, fmt.Errorf("failed to create advice directory: %w", err)
	}

	path := filepath.Join(dir, advice.ID+".json")
	if _, err := os.Lstat(path); err == nil {
		return Advice{}, fmt.Errorf("%w: %s", ErrAdviceExists, advice.ID)
	}

	data, err := json.MarshalIndent(advice, "", "  ")
	if err != nil {
		return Advice{}, fmt.Errorf("failed to encode advice: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return Advice{}, fmt.Errorf("failed to write advice: %w", err)
	}

	s.logger.Info("advice written",
		zap.String("taskId", loc.TaskID),
		zap.String("adviceId", advice.ID))
	return advice, nil
}
