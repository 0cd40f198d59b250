// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/taskview/internal/cache"
	"github.com/jeranaias/taskview/internal/config"
	"github.com/jeranaias/taskview/internal/paths"
	"github.com/jeranaias/taskview/internal/util"
)

// previewRunes caps listing previews.
const previewRunes = 120

// Store is the facade the server talks to. It owns the locator, the
// per-concern caches, and the configured limits; everything is plain
// dependency injection so tests build stores over temp directories.
type Store struct {
	cfg       *config.Config
	logger    *zap.Logger
	roots     []paths.Root
	reader    *Reader
	extractor *Extractor
	locator   *Locator

	// Caches are split by concern so invalidation and key shapes stay
	// independent: resolved locations (inside the locator), active
	// marker snapshots, and per-file query results.
	markers *cache.Cache
	queries *cache.Cache

	ttl         time.Duration
	readTimeout time.Duration
}

// TaskSummary describes one conversation for listings.
type TaskSummary struct {
	TaskID       string        `json:"taskId"`
	Variant      paths.Variant `json:"variant"`
	LastActivity int64         `json:"lastActivity,omitempty"`
	Preview      string        `json:"preview,omitempty"`
	ActiveLabel  string        `json:"activeLabel,omitempty"`
}

// NewStore builds a Store from configuration. A nil logger is replaced
// with a nop.
func NewStore(cfg *config.Config, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	roots := RootsFromConfig(cfg)
	ttl := cfg.CacheTTL()
	reader := NewReader(cfg.MaxFileSize(), logger)

	return &Store{
		cfg:         cfg,
		logger:      logger,
		roots:       roots,
		reader:      reader,
		extractor:   NewExtractor(reader, logger),
		locator:     NewLocator(roots, cache.New(ttl), ttl, logger),
		markers:     cache.New(ttl),
		queries:     cache.New(ttl),
		ttl:         ttl,
		readTimeout: cfg.ReadTimeout(),
	}
}

// RootsFromConfig derives the candidate roots for cfg: configured extra
// roots first, then the platform defaults unless disabled.
func RootsFromConfig(cfg *config.Config) []paths.Root {
	if cfg.Storage.DisableDefaultRoots {
		return paths.ExtraRootsOnly(cfg.Storage.ExtraRoots)
	}
	return paths.CandidateRoots(cfg.Storage.ExtraRoots)
}

// Roots returns the candidate roots in resolution order.
func (s *Store) Roots() []paths.Root {
	return s.roots
}

// clampLimit pins a requested limit into the configured window.
func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.Query.DefaultLimit
	}
	if max := s.cfg.Query.MaxLimit; max > 0 && limit > max {
		return max
	}
	return limit
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveTaskID maps sentinel ids onto the task they currently denote
// and passes real ids through untouched.
func (s *Store) ResolveTaskID(ctx context.Context, id string) (string, error) {
	switch id {
	case TaskActiveA:
		m, err := s.ActiveTask(ctx, ActiveLabelA)
		if err != nil {
			return "", err
		}
		return m.TaskID, nil
	case TaskActiveB:
		m, err := s.ActiveTask(ctx, ActiveLabelB)
		if err != nil {
			return "", err
		}
		return m.TaskID, nil
	default:
		return id, nil
	}
}

// Resolve returns the location for id, following sentinels first.
func (s *Store) Resolve(ctx context.Context, id string) (Location, error) {
	resolved, err := s.ResolveTaskID(ctx, id)
	if err != nil {
		return Location{}, err
	}
	return s.locator.Resolve(resolved)
}

// TaskFiles returns the task's conversation files that exist on disk.
func (s *Store) TaskFiles(ctx context.Context, id string) ([]string, error) {
	loc, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, path := range []string{loc.HistoryPath(), loc.UIPath()} {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			files = append(files, path)
		}
	}
	return files, nil
}

// =============================================================================
// MESSAGE QUERIES
// =============================================================================

// GetLastMessages returns the most recent limit messages of a task in
// ascending timestamp order. The API history is preferred; tasks whose
// history is missing or hopeless fall back to the UI records, so a
// damaged task still answers with something.
func (s *Store) GetLastMessages(ctx context.Context, id string, limit int) ([]Message, error) {
	loc, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.queryMessages(ctx, loc, Options{Limit: s.clampLimit(limit)}), nil
}

// GetMessagesSince returns up to limit messages at or after the given
// epoch-millisecond timestamp, ascending. Messages without timestamps
// are included.
func (s *Store) GetMessagesSince(ctx context.Context, id string, since int64, limit int) ([]Message, error) {
	loc, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.queryMessages(ctx, loc, Options{Limit: s.clampLimit(limit), Since: since}), nil
}

// AllMessages returns a task's complete message sequence, ascending.
// Used where truncation would lose information, such as exports.
func (s *Store) AllMessages(ctx context.Context, id string) ([]Message, error) {
	loc, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fullSequence(ctx, loc), nil
}

// queryMessages runs one bounded extraction through the query cache.
func (s *Store) queryMessages(ctx context.Context, loc Location, opts Options) []Message {
	key := fmt.Sprintf("q:%s?limit=%d&since=%d&search=%s", loc.Dir(), opts.Limit, opts.Since, opts.Search)
	v, err := s.queries.GetOrComputeTTL(key, s.ttl, func() (any, error) {
		msgs := s.extractor.ReadMessagesWithTimeout(ctx, loc.HistoryPath(), opts, s.readTimeout)
		if len(msgs) == 0 {
			msgs = s.extractor.ReadMessagesWithTimeout(ctx, loc.UIPath(), opts, s.readTimeout)
		}
		return msgs, nil
	})
	if err != nil {
		return nil
	}
	return v.([]Message)
}

// =============================================================================
// LISTINGS
// =============================================================================

// candidate pairs a location with its activity recency and a preview,
// computed once per cache window.
type candidate struct {
	loc     Location
	recency int64
	preview string
}

// candidatesByRecency lists every known task, most recently active
// first. Recency is the newest message timestamp, falling back to the
// directory mtime for tasks whose files are empty or unreadable.
func (s *Store) candidatesByRecency(ctx context.Context) []candidate {
	v, err := s.queries.GetOrComputeTTL("candidates", s.ttl, func() (any, error) {
		locs := s.locator.List()
		cands := make([]candidate, 0, len(locs))
		for _, loc := range locs {
			c := candidate{loc: loc}
			msgs := s.extractor.ReadMessagesWithTimeout(ctx, loc.HistoryPath(), Options{Limit: 1}, s.readTimeout)
			if len(msgs) == 0 {
				msgs = s.extractor.ReadMessagesWithTimeout(ctx, loc.UIPath(), Options{Limit: 1}, s.readTimeout)
			}
			if len(msgs) > 0 {
				last := msgs[len(msgs)-1]
				c.recency = last.Timestamp
				c.preview = util.TruncateRunes(last.Content, previewRunes)
			}
			if c.recency == 0 {
				if info, err := os.Stat(loc.Dir()); err == nil {
					c.recency = info.ModTime().UnixMilli()
				}
			}
			cands = append(cands, c)
		}
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].recency > cands[j].recency
		})
		return cands, nil
	})
	if err != nil {
		return nil
	}
	return v.([]candidate)
}

// ListRecentTasks returns summaries of the most recently active tasks.
func (s *Store) ListRecentTasks(ctx context.Context, limit int) ([]TaskSummary, error) {
	limit = s.clampLimit(limit)

	active := make(map[string]string)
	for _, m := range s.ActiveMarkers(ctx) {
		active[m.TaskID] = m.Label
	}

	cands := s.candidatesByRecency(ctx)
	if len(cands) > limit {
		cands = cands[:limit]
	}
	summaries := make([]TaskSummary, 0, len(cands))
	for _, c := range cands {
		summaries = append(summaries, TaskSummary{
			TaskID:       c.loc.TaskID,
			Variant:      c.loc.Variant,
			LastActivity: c.recency,
			Preview:      c.preview,
			ActiveLabel:  active[c.loc.TaskID],
		})
	}
	return summaries, nil
}

// =============================================================================
// ACTIVE TASKS
// =============================================================================

// ActiveMarkers returns the active-marker snapshot, cached for the TTL.
func (s *Store) ActiveMarkers(ctx context.Context) []ActiveMarker {
	v, err := s.markers.GetOrComputeTTL("markers", s.ttl, func() (any, error) {
		return ReadActiveMarkers(ctx, s.roots, s.reader, s.logger), nil
	})
	if err != nil {
		return nil
	}
	return v.([]ActiveMarker)
}

// ActiveTask returns the marker selected by label ("" applies the
// default preference policy). No usable marker is ErrTaskNotFound.
func (s *Store) ActiveTask(ctx context.Context, label string) (ActiveMarker, error) {
	m, ok := SelectActiveMarker(s.ActiveMarkers(ctx), label)
	if !ok {
		if label != "" {
			return ActiveMarker{}, fmt.Errorf("%w: no active task under label %s", ErrTaskNotFound, label)
		}
		return ActiveMarker{}, fmt.Errorf("%w: no active task", ErrTaskNotFound)
	}
	return m, nil
}
