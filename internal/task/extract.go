// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"container/heap"
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

var errNoMessageArray = errors.New("no message array in document")

// Extractor pulls bounded, filtered message slices out of conversation
// files. The fast path walks strict JSON with gjson, retaining at most
// Limit records; when the document is malformed it falls back to
// repair-and-reparse over the whole file. Parse trouble never surfaces
// as an error, only as fewer messages.
type Extractor struct {
	reader *Reader
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger is replaced with a nop.
func NewExtractor(reader *Reader, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{reader: reader, logger: logger}
}

// Extract reads one conversation file and returns at most opts.Limit
// matching messages, ordered by ascending timestamp. When more than
// Limit messages match, the most recent Limit win.
//
// The only errors returned are read errors; a file that reads but will
// not parse degrades to an empty slice.
func (e *Extractor) Extract(ctx context.Context, path string, opts Options) ([]Message, error) {
	data, err := e.reader.ReadWithRetry(ctx, path)
	if err != nil {
		return nil, err
	}
	return e.ExtractBytes(data, opts), nil
}

// ExtractBytes is Extract over already-read file contents.
func (e *Extractor) ExtractBytes(data []byte, opts Options) []Message {
	msgs, err := e.extractStream(data, opts)
	if err != nil {
		e.logger.Debug("strict extract failed, trying repair",
			zap.Error(err))
		msgs = e.extractDirect(data, opts)
	}
	return msgs
}

// =============================================================================
// STREAMING STRATEGY
// =============================================================================

// extractStream walks a strictly-valid document, keeping only a
// bounded window of matching records.
// PERFORMANCE: gjson walks the raw bytes without building a document
// tree, and the window caps retained messages at opts.Limit, so a
// 10k-message history costs one pass and Limit allocations.
func (e *Extractor) extractStream(data []byte, opts Options) ([]Message, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("document is not strict JSON")
	}
	arr, ok := messageArray(gjson.ParseBytes(data))
	if !ok {
		return nil, errNoMessageArray
	}

	window := newBoundedWindow(opts.Limit)
	arr.ForEach(func(_, rec gjson.Result) bool {
		msg, ok := messageFromRecord(rec)
		if !ok || !matchesQuery(msg, opts) {
			return true
		}
		window.add(msg)
		return true
	})
	return window.items(), nil
}

// =============================================================================
// DIRECT (REPAIR) STRATEGY
// =============================================================================

// extractDirect repairs the document and takes everything it can get.
// Any failure here degrades to an empty result.
func (e *Extractor) extractDirect(data []byte, opts Options) []Message {
	repaired, ok := ParseWithRepair(data)
	if !ok {
		e.logger.Warn("conversation file unparseable even after repair",
			zap.Int("bytes", len(data)))
		return nil
	}
	arr, ok := messageArray(gjson.ParseBytes(repaired))
	if !ok {
		return nil
	}

	var msgs []Message
	arr.ForEach(func(_, rec gjson.Result) bool {
		msg, ok := messageFromRecord(rec)
		if ok && matchesQuery(msg, opts) {
			msgs = append(msgs, msg)
		}
		return true
	})
	sortByTimestamp(msgs)
	return lastN(msgs, opts.Limit)
}

// messageArray locates the record array in a parsed document: either
// the document itself or a wrapper object's messages/conversation
// array.
func messageArray(root gjson.Result) (gjson.Result, bool) {
	if root.IsArray() {
		return root, true
	}
	if root.IsObject() {
		for _, key := range []string{"messages", "conversation"} {
			if arr := root.Get(key); arr.IsArray() {
				return arr, true
			}
		}
	}
	return gjson.Result{}, false
}

// =============================================================================
// FILTERS AND ORDERING
// =============================================================================

// matchesQuery applies the since and search filters. A message without
// a timestamp always passes since; only a present-and-older timestamp
// excludes. The since boundary itself is included.
func matchesQuery(msg Message, opts Options) bool {
	if opts.Since > 0 && msg.Timestamp > 0 && msg.Timestamp < opts.Since {
		return false
	}
	if opts.Search != "" && !containsFold(msg.Content, opts.Search) {
		return false
	}
	return true
}

// containsFold reports whether haystack contains needle under Unicode
// case folding.
// UNICODE: Folding handles cases ASCII lowering misses (İ, ß, Σ vs ς),
// and conversation content is arbitrary user text.
func containsFold(haystack, needle string) bool {
	folder := cases.Fold()
	return strings.Contains(folder.String(haystack), folder.String(needle))
}

// sortByTimestamp orders messages by ascending timestamp. Messages
// without one (Timestamp 0) sort oldest; the stable sort keeps file
// order among equals.
func sortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}

// lastN returns the final n elements: the most recent, given ascending
// order. n <= 0 means no bound.
func lastN(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// =============================================================================
// BOUNDED WINDOW
// =============================================================================

// boundedWindow retains the limit values with the greatest timestamps.
// Files normally append in order, but crash recovery can interleave
// records, so retention is keyed on the timestamp rather than arrival:
// a min-heap holds the current winners and each new value either evicts
// the smallest or is dropped. Among equal timestamps the later file
// position wins, matching the stable sort used elsewhere.
type boundedWindow struct {
	limit int
	seq   int
	ents  windowEntries
}

type windowEntry struct {
	msg Message
	seq int
}

// windowEntries is a min-heap ordered by (timestamp, file position).
type windowEntries []windowEntry

func (h windowEntries) Len() int { return len(h) }
func (h windowEntries) Less(i, j int) bool {
	if h[i].msg.Timestamp != h[j].msg.Timestamp {
		return h[i].msg.Timestamp < h[j].msg.Timestamp
	}
	return h[i].seq < h[j].seq
}
func (h windowEntries) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *windowEntries) Push(x any) {
	*h = append(*h, x.(windowEntry))
}

func (h *windowEntries) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

func newBoundedWindow(limit int) *boundedWindow {
	return &boundedWindow{limit: limit}
}

func (w *boundedWindow) add(msg Message) {
	e := windowEntry{msg: msg, seq: w.seq}
	w.seq++
	if w.limit <= 0 {
		w.ents = append(w.ents, e)
		return
	}
	if len(w.ents) < w.limit {
		heap.Push(&w.ents, e)
		return
	}
	// The heap root is the smallest retained timestamp. An older value
	// is dropped; anything else replaces the root. Equal timestamps
	// replace too: the new value sits later in the file.
	if msg.Timestamp < w.ents[0].msg.Timestamp {
		return
	}
	w.ents[0] = e
	heap.Fix(&w.ents, 0)
}

// items returns the retained values in ascending timestamp order,
// file order among equals.
func (w *boundedWindow) items() []Message {
	ents := make(windowEntries, len(w.ents))
	copy(ents, w.ents)
	sort.Sort(ents)
	out := make([]Message, len(ents))
	for i, e := range ents {
		out[i] = e.msg
	}
	return out
}
