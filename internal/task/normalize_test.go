// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"testing"

	"github.com/tidwall/gjson"
)

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"user", RoleHuman},
		{"User", RoleHuman},
		{"human", RoleHuman},
		{"assistant", RoleAssistant},
		{"ASSISTANT", RoleAssistant},
		{"system", RoleSystem},
		{" system ", RoleSystem},
		{"tool", RoleAssistant},
		{"", RoleAssistant},
	}
	for _, tt := range tests {
		if got := NormalizeRole(tt.raw); got != tt.want {
			t.Errorf("NormalizeRole(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{
			name: "plain string",
			json: `{"content": "hello"}`,
			want: "hello",
		},
		{
			name: "array of text parts",
			json: `{"content": [{"type": "text", "text": "first"}, {"type": "text", "text": "second"}]}`,
			want: "first\nsecond",
		},
		{
			name: "array with non-text part",
			json: `{"content": [{"type": "text", "text": "look:"}, {"type": "image", "source": "..."}]}`,
			want: "look:\n[image]",
		},
		{
			name: "array of bare strings",
			json: `{"content": ["one", "two"]}`,
			want: "one\ntwo",
		},
		{
			name: "object with text field",
			json: `{"content": {"text": "wrapped"}}`,
			want: "wrapped",
		},
		{
			name: "null",
			json: `{"content": null}`,
			want: "",
		},
		{
			name: "missing",
			json: `{}`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := gjson.Get(tt.json, "content")
			if got := NormalizeContent(v); got != tt.want {
				t.Errorf("NormalizeContent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMessageFromRecord_History(t *testing.T) {
	rec := gjson.Parse(`{"role": "user", "content": "hi there", "ts": 1712000000001}`)
	msg, ok := messageFromRecord(rec)
	if !ok {
		t.Fatal("record dropped")
	}
	if msg.Role != RoleHuman {
		t.Errorf("Role = %q, want human", msg.Role)
	}
	if msg.Content != "hi there" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Timestamp != 1712000000001 {
		t.Errorf("Timestamp = %d", msg.Timestamp)
	}
}

func TestMessageFromRecord_TimestampField(t *testing.T) {
	rec := gjson.Parse(`{"role": "assistant", "content": "ok", "timestamp": 1712000000002}`)
	msg, ok := messageFromRecord(rec)
	if !ok {
		t.Fatal("record dropped")
	}
	if msg.Timestamp != 1712000000002 {
		t.Errorf("Timestamp = %d, want value from timestamp field", msg.Timestamp)
	}
}

func TestMessageFromRecord_DropsEmptyContent(t *testing.T) {
	rec := gjson.Parse(`{"role": "assistant", "content": ""}`)
	if _, ok := messageFromRecord(rec); ok {
		t.Error("empty-content record kept")
	}
}

func TestMessageFromUI(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantRole string
		wantOK   bool
	}{
		{
			name:     "user feedback reads as human",
			json:     `{"say": "user_feedback", "text": "do it differently", "ts": 5}`,
			wantRole: RoleHuman,
			wantOK:   true,
		},
		{
			name:     "extension text reads as assistant",
			json:     `{"say": "text", "text": "working on it", "ts": 6}`,
			wantRole: RoleAssistant,
			wantOK:   true,
		},
		{
			name:     "completion result reads as assistant",
			json:     `{"say": "completion_result", "text": "done", "ts": 7}`,
			wantRole: RoleAssistant,
			wantOK:   true,
		},
		{
			name:   "blank text dropped",
			json:   `{"say": "text", "text": "   ", "ts": 8}`,
			wantOK: false,
		},
		{
			name:   "no text dropped",
			json:   `{"say": "api_req_started", "ts": 9}`,
			wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, ok := messageFromUI(gjson.Parse(tt.json))
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && msg.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", msg.Role, tt.wantRole)
			}
		})
	}
}
