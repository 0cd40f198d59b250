// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/cache"
	"github.com/jeranaias/taskview/internal/paths"
)

// Locator resolves task ids to directories across the candidate roots.
// Root order is significant: the first root containing the task wins,
// which is what lets the ultra variant shadow the standard one.
type Locator struct {
	roots  []paths.Root
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewLocator creates a Locator caching resolutions in c for ttl.
// A nil logger is replaced with a nop.
func NewLocator(roots []paths.Root, c *cache.Cache, ttl time.Duration, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{roots: roots, cache: c, ttl: ttl, logger: logger}
}

// Roots returns the candidate roots in resolution order.
func (l *Locator) Roots() []paths.Root {
	return l.roots
}

// Resolve returns the location of the task directory for id. Hits are
// cached for the TTL; absence is never cached, so a task created a
// moment after a miss is found on the very next call.
func (l *Locator) Resolve(id string) (Location, error) {
	if !IsValidTaskID(id) {
		return Location{}, fmt.Errorf("%w: invalid task id %q", ErrTaskNotFound, id)
	}
	v, err := l.cache.GetOrComputeTTL("loc:"+id, l.ttl, func() (any, error) {
		return l.ResolveUncached(id)
	})
	if err != nil {
		return Location{}, err
	}
	return v.(Location), nil
}

// ResolveUncached walks the roots in order and stats root/id.
func (l *Locator) ResolveUncached(id string) (Location, error) {
	for _, root := range l.roots {
		info, err := os.Stat(filepath.Join(root.Dir, id))
		if err == nil && info.IsDir() {
			return Location{TaskID: id, RootDir: root.Dir, Variant: root.Variant}, nil
		}
	}
	l.logger.Debug("task not found in any root",
		zap.String("taskId", id),
		zap.Int("roots", len(l.roots)))
	return Location{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

// List returns every task directory across the roots, the first
// occurrence of an id winning. Order is scan order, not recency;
// callers sort. The snapshot is cached for the TTL.
func (l *Locator) List() []Location {
	v, err := l.cache.GetOrComputeTTL("loc:list", l.ttl, func() (any, error) {
		return l.listUncached(), nil
	})
	if err != nil {
		return nil
	}
	return v.([]Location)
}

func (l *Locator) listUncached() []Location {
	seen := make(map[string]struct{})
	var out []Location
	for _, root := range l.roots {
		entries, err := os.ReadDir(root.Dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			id := entry.Name()
			if strings.HasPrefix(id, ".") || !IsValidTaskID(id) {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, Location{TaskID: id, RootDir: root.Dir, Variant: root.Variant})
		}
	}
	return out
}
