// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// knownTopLevelKeys are the wrapper keys conversation files open with.
// A document that starts directly at one of these lost its opening
// brace to truncation.
var knownTopLevelKeys = []string{"messages", "conversation", "activeTasks"}

// ParseWithRepair returns a strictly-parseable JSON document, repairing
// the truncation artifacts the extensions leave behind when they are
// killed mid-write. The input is returned unchanged when it already
// parses. ok is false when no repair salvages it; callers degrade to an
// empty result instead of failing.
//
// The repairs are deliberately narrow:
//   - prepend "{" when the text opens directly with a known top-level key
//   - append "}" when a braced document ends at a closing "]"
//   - insert commas between adjacent key-value lines and between
//     adjacent "}"/"{" lines
//
// The comma pass assumes one property per line, which is how the
// extensions serialize. Documents formatted differently fail repair and
// degrade, which is the safe outcome.
func ParseWithRepair(data []byte) ([]byte, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false
	}
	if gjson.ValidBytes(data) {
		return data, true
	}
	repaired := repairJSON(data)
	if gjson.ValidBytes(repaired) {
		return repaired, true
	}
	return nil, false
}

func repairJSON(data []byte) []byte {
	s := strings.TrimSpace(string(data))

	// Truncated head: document opens at a known wrapper key.
	for _, key := range knownTopLevelKeys {
		if strings.HasPrefix(s, `"`+key+`"`) {
			s = "{" + s
			break
		}
	}

	// Truncated tail: the inner array closed but the object never did.
	if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "]") {
		s += "}"
	}

	// Missing commas between lines.
	lines := strings.Split(s, "\n")
	for i := 0; i < len(lines)-1; i++ {
		cur := strings.TrimRight(lines[i], " \t\r")
		next := strings.TrimSpace(lines[i+1])
		if cur == "" || next == "" {
			continue
		}
		if needsComma(cur, next) {
			lines[i] = cur + ","
		}
	}
	return []byte(strings.Join(lines, "\n"))
}

// needsComma reports whether a comma belongs at the end of cur given
// the start of the next non-blank line. JSON strings cannot contain
// raw newlines, so judging line boundaries is safe.
func needsComma(cur, next string) bool {
	if strings.HasSuffix(cur, ",") || strings.HasSuffix(cur, "{") || strings.HasSuffix(cur, "[") || strings.HasSuffix(cur, ":") {
		return false
	}
	// Adjacent object elements of an array.
	if strings.HasSuffix(cur, "}") && strings.HasPrefix(next, "{") {
		return true
	}
	// A completed key-value line followed by the next key.
	if strings.HasPrefix(next, `"`) && endsWithValue(cur) {
		return true
	}
	return false
}

func endsWithValue(cur string) bool {
	switch {
	case strings.HasSuffix(cur, `"`),
		strings.HasSuffix(cur, "}"),
		strings.HasSuffix(cur, "]"),
		strings.HasSuffix(cur, "true"),
		strings.HasSuffix(cur, "false"),
		strings.HasSuffix(cur, "null"):
		return true
	}
	last := cur[len(cur)-1]
	return last >= '0' && last <= '9'
}
