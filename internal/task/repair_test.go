// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"encoding/json"
	"testing"
)

func TestParseWithRepair_ValidPassthrough(t *testing.T) {
	input := []byte(`{"messages": [{"role": "user", "content": "hi"}]}`)
	out, ok := ParseWithRepair(input)
	if !ok {
		t.Fatal("valid document rejected")
	}
	if string(out) != string(input) {
		t.Errorf("valid document was modified: %s", out)
	}
}

func TestParseWithRepair_Heuristics(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name: "missing opening brace before known key",
			input: `"messages": [
  {"role": "user", "content": "hi"}
]}`,
		},
		{
			name: "missing closing brace after array",
			input: `{"messages": [
  {"role": "user", "content": "hi"}
]`,
		},
		{
			name: "missing both braces",
			input: `"conversation": [
  {"role": "user", "content": "hi"}
]`,
		},
		{
			name: "missing comma between key-value lines",
			input: `[
  {
    "role": "user"
    "content": "hi"
  }
]`,
		},
		{
			name: "missing comma between adjacent objects",
			input: `[
  {"role": "user", "content": "hi"}
  {"role": "assistant", "content": "hello"}
]`,
		},
		{
			name: "missing comma after numeric value",
			input: `[
  {
    "ts": 1712000000001
    "content": "hi"
  }
]`,
		},
		{
			name: "truncated active tasks file",
			input: `"activeTasks": [
  {"id": "100", "label": "A", "lastActivated": 1712000000001}
]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := ParseWithRepair([]byte(tt.input))
			if !ok {
				t.Fatal("repair failed")
			}
			if !json.Valid(out) {
				t.Errorf("repaired document is not strict JSON: %s", out)
			}
		})
	}
}

func TestParseWithRepair_Unsalvageable(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "nil", input: nil},
		{name: "empty", input: []byte("")},
		{name: "whitespace", input: []byte("  \n\t ")},
		{name: "binary garbage", input: []byte{0x00, 0xff, 0x1b, 0x7f}},
		{name: "prose", input: []byte("this is not json at all")},
		{name: "truncated mid-string", input: []byte(`{"messages": [{"role": "us`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := ParseWithRepair(tt.input)
			if ok {
				t.Errorf("unsalvageable input reported as repaired: %s", out)
			}
		})
	}
}

func TestParseWithRepair_DoesNotBreakValidEdgeCases(t *testing.T) {
	// Documents that look like repair candidates but are already valid.
	tests := []string{
		`[]`,
		`{}`,
		`{"messages": []}`,
		`[{"role": "user", "content": "line one\nline two"}]`,
		`[{"role": "user", "content": "a \"quoted\" word"}]`,
	}
	for _, input := range tests {
		out, ok := ParseWithRepair([]byte(input))
		if !ok {
			t.Errorf("valid input %q rejected", input)
			continue
		}
		if string(out) != input {
			t.Errorf("valid input %q was modified to %q", input, out)
		}
	}
}

func TestRepairJSON_CommaInsertionIsConservative(t *testing.T) {
	// The second line is a key whose value sits on the next line; the
	// comma pass must leave it alone while still fixing the real gap
	// after "user".
	input := `{
  "role":
  "user"
  "content": "hi"
}`
	out, ok := ParseWithRepair([]byte(input))
	if !ok {
		t.Fatal("repair failed")
	}
	if !json.Valid(out) {
		t.Errorf("conservative case broken by repair: %s", out)
	}
}
