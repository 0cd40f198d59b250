// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"context"
	"fmt"

	"github.com/jeranaias/taskview/internal/paths"
)

// SearchResult is one hit from a broad conversation search: the first
// matching message of one conversation.
type SearchResult struct {
	TaskID     string        `json:"taskId"`
	Variant    paths.Variant `json:"variant"`
	MatchIndex int           `json:"matchIndex"`
	Total      int           `json:"total"`
	Message    Message       `json:"message"`
}

// SearchMatch is one context window around a matching message.
// Start and End are inclusive indexes into the conversation's full
// sequence, already clamped to its bounds.
type SearchMatch struct {
	TaskID     string    `json:"taskId"`
	MatchIndex int       `json:"matchIndex"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Total      int       `json:"total"`
	Messages   []Message `json:"messages"`
}

// SearchConversations finds conversations mentioning term, most
// recently active first. Each conversation contributes at most one
// result: its first matching message. Conversations that cannot be
// read are skipped, not fatal.
func (s *Store) SearchConversations(ctx context.Context, term string, maxResults int) ([]SearchResult, error) {
	if term == "" {
		return nil, nil
	}
	maxResults = s.clampLimit(maxResults)

	var results []SearchResult
	for _, cand := range s.candidatesByRecency(ctx) {
		msgs := s.fullSequence(ctx, cand.loc)
		for i, msg := range msgs {
			if !containsFold(msg.Content, term) {
				continue
			}
			results = append(results, SearchResult{
				TaskID:     cand.loc.TaskID,
				Variant:    cand.loc.Variant,
				MatchIndex: i,
				Total:      len(msgs),
				Message:    msg,
			})
			break
		}
		if len(results) >= maxResults {
			break
		}
	}
	return results, nil
}

// SearchWithContext finds occurrences of term and returns each match
// inside a window of up to contextLines messages on either side.
//
// With a task id the named conversation is searched exhaustively, up
// to maxResults windows. With an empty id, conversations are visited
// most recently active first and each contributes its first match.
func (s *Store) SearchWithContext(ctx context.Context, taskID, term string, contextLines, maxResults int) ([]SearchMatch, error) {
	if term == "" {
		return nil, nil
	}
	if contextLines < 0 {
		contextLines = 0
	}
	maxResults = s.clampLimit(maxResults)

	if taskID != "" {
		loc, err := s.Resolve(ctx, taskID)
		if err != nil {
			return nil, err
		}
		msgs := s.fullSequence(ctx, loc)
		return contextWindows(loc.TaskID, msgs, term, contextLines, maxResults), nil
	}

	var matches []SearchMatch
	for _, cand := range s.candidatesByRecency(ctx) {
		msgs := s.fullSequence(ctx, cand.loc)
		ws := contextWindows(cand.loc.TaskID, msgs, term, contextLines, 1)
		matches = append(matches, ws...)
		if len(matches) >= maxResults {
			matches = matches[:maxResults]
			break
		}
	}
	return matches, nil
}

// contextWindows scans one sequence for matches and cuts the clamped
// window around each, stopping at maxWindows.
func contextWindows(taskID string, msgs []Message, term string, contextLines, maxWindows int) []SearchMatch {
	var out []SearchMatch
	for i, msg := range msgs {
		if !containsFold(msg.Content, term) {
			continue
		}
		start := i - contextLines
		if start < 0 {
			start = 0
		}
		end := i + contextLines
		if end > len(msgs)-1 {
			end = len(msgs) - 1
		}
		window := make([]Message, end-start+1)
		copy(window, msgs[start:end+1])

		out = append(out, SearchMatch{
			TaskID:     taskID,
			MatchIndex: i,
			Start:      start,
			End:        end,
			Total:      len(msgs),
			Messages:   window,
		})
		if maxWindows > 0 && len(out) >= maxWindows {
			break
		}
	}
	return out
}

// fullSequence loads a conversation's complete message sequence,
// preferring the API history and falling back to the UI records.
// Everything degrades to empty rather than erroring; context search
// over a broken file finds nothing instead of failing the request.
func (s *Store) fullSequence(ctx context.Context, loc Location) []Message {
	key := fmt.Sprintf("seq:%s", loc.Dir())
	v, err := s.queries.GetOrComputeTTL(key, s.ttl, func() (any, error) {
		msgs := s.extractor.ReadMessagesWithTimeout(ctx, loc.HistoryPath(), Options{}, s.readTimeout)
		if len(msgs) == 0 {
			msgs = s.extractor.ReadMessagesWithTimeout(ctx, loc.UIPath(), Options{}, s.readTimeout)
		}
		return msgs, nil
	})
	if err != nil {
		return nil
	}
	return v.([]Message)
}
