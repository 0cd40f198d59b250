// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"strings"

	"github.com/tidwall/gjson"
)

// NormalizeRole maps the vocabulary found in conversation files onto
// the canonical role set. Anything unrecognized reads as assistant
// output, which is what the extensions emit for their own records.
func NormalizeRole(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "user", "human":
		return RoleHuman
	case "assistant":
		return RoleAssistant
	case "system":
		return RoleSystem
	default:
		return RoleAssistant
	}
}

// NormalizeContent renders a message body as a display string.
// Bodies appear as a plain string, an array of content parts, or a
// single object; parts without text contribute a bracketed type tag so
// mixed-media turns stay visible in transcripts.
func NormalizeContent(v gjson.Result) string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.Str
	case v.IsArray():
		var parts []string
		v.ForEach(func(_, part gjson.Result) bool {
			if s := normalizePart(part); s != "" {
				parts = append(parts, s)
			}
			return true
		})
		return strings.Join(parts, "\n")
	case v.IsObject():
		if text := v.Get("text"); text.Exists() {
			return text.String()
		}
		return v.Raw
	default:
		return v.String()
	}
}

func normalizePart(part gjson.Result) string {
	if part.Type == gjson.String {
		return part.Str
	}
	if part.IsObject() {
		if text := part.Get("text"); text.Exists() {
			return text.String()
		}
		if t := part.Get("type"); t.Exists() {
			return "[" + t.String() + "]"
		}
		return part.Raw
	}
	return part.String()
}

// messageFromRecord maps one raw record to a Message. It accepts both
// on-disk forms: API history records carry role/content, UI records
// carry say/text/ts. Records with no renderable content are dropped.
func messageFromRecord(rec gjson.Result) (Message, bool) {
	if rec.Get("role").Exists() {
		msg := Message{
			Role:      NormalizeRole(rec.Get("role").String()),
			Content:   NormalizeContent(rec.Get("content")),
			Timestamp: recordTimestamp(rec),
		}
		if msg.Content == "" {
			return Message{}, false
		}
		return msg, true
	}
	return messageFromUI(rec)
}

// messageFromUI maps a ui_messages.json record. The extension tags the
// human's turns say="user_feedback"; every other record is its own
// output and reads as assistant.
func messageFromUI(rec gjson.Result) (Message, bool) {
	text := rec.Get("text").String()
	if strings.TrimSpace(text) == "" {
		return Message{}, false
	}
	role := RoleAssistant
	if rec.Get("say").String() == "user_feedback" {
		role = RoleHuman
	}
	return Message{
		Role:      role,
		Content:   text,
		Timestamp: recordTimestamp(rec),
	}, true
}

// recordTimestamp pulls an epoch-millisecond timestamp from whichever
// field the record uses. Missing or non-numeric values become 0.
func recordTimestamp(rec gjson.Result) int64 {
	for _, field := range []string{"ts", "timestamp"} {
		if v := rec.Get(field); v.Exists() {
			if n := v.Int(); n > 0 {
				return n
			}
		}
	}
	return 0
}
