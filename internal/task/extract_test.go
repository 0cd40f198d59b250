// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package task

import (
	"fmt"
	"strings"
	"testing"
)

// historyJSON builds a strict history array with count sequential
// timestamped messages.
func historyJSON(count int) []byte {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 0; i < count; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"role":"user","content":"message %d","timestamp":%d}`,
			i, 1712000000000+int64(i)*1000)
	}
	sb.WriteString("]")
	return []byte(sb.String())
}

func TestExtractBytes_LastNMostRecentAscending(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)

	msgs := e.ExtractBytes(historyJSON(45), Options{Limit: 20})
	if len(msgs) != 20 {
		t.Fatalf("len = %d, want 20", len(msgs))
	}
	if msgs[0].Content != "message 25" {
		t.Errorf("first = %q, want message 25", msgs[0].Content)
	}
	if msgs[19].Content != "message 44" {
		t.Errorf("last = %q, want message 44", msgs[19].Content)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp < msgs[i-1].Timestamp {
			t.Fatalf("not ascending at %d", i)
		}
	}
}

func TestExtractBytes_LimitLargerThanFile(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)
	msgs := e.ExtractBytes(historyJSON(5), Options{Limit: 50})
	if len(msgs) != 5 {
		t.Fatalf("len = %d, want 5", len(msgs))
	}
}

func TestExtractBytes_SinceBoundaryInclusive(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)

	msgs := e.ExtractBytes(historyJSON(10), Options{Since: 1712000005000})
	if len(msgs) != 5 {
		t.Fatalf("len = %d, want 5", len(msgs))
	}
	// The message at exactly since is included.
	if msgs[0].Timestamp != 1712000005000 {
		t.Errorf("first timestamp = %d", msgs[0].Timestamp)
	}
}

func TestExtractBytes_SinceKeepsUntimestamped(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)
	data := []byte(`[
		{"role":"user","content":"old","timestamp":100},
		{"role":"user","content":"undated"},
		{"role":"user","content":"new","timestamp":900}
	]`)

	msgs := e.ExtractBytes(data, Options{Since: 500})
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	// Undated sorts as 0, so it comes first.
	if msgs[0].Content != "undated" || msgs[1].Content != "new" {
		t.Errorf("got %q, %q", msgs[0].Content, msgs[1].Content)
	}
}

func TestExtractBytes_SearchCaseFolded(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)
	data := []byte(`[
		{"role":"user","content":"Deploy the API","timestamp":1},
		{"role":"assistant","content":"rolling it out now","timestamp":2},
		{"role":"user","content":"STRASSE is the street","timestamp":3}
	]`)

	msgs := e.ExtractBytes(data, Options{Search: "deploy"})
	if len(msgs) != 1 || msgs[0].Content != "Deploy the API" {
		t.Fatalf("search hit = %v", msgs)
	}

	// Unicode folding: ß folds to ss.
	msgs = e.ExtractBytes(data, Options{Search: "straße"})
	if len(msgs) != 1 || msgs[0].Timestamp != 3 {
		t.Fatalf("folded search hit = %v", msgs)
	}

	if msgs := e.ExtractBytes(data, Options{Search: "nowhere"}); len(msgs) != 0 {
		t.Fatalf("missing term returned %v", msgs)
	}
}

func TestExtractBytes_WrapperObjects(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)
	for _, key := range []string{"messages", "conversation"} {
		data := []byte(fmt.Sprintf(`{%q: [{"role":"user","content":"hi","timestamp":1}]}`, key))
		msgs := e.ExtractBytes(data, Options{})
		if len(msgs) != 1 {
			t.Errorf("wrapper %q: len = %d, want 1", key, len(msgs))
		}
	}
}

func TestExtractBytes_MalformedFallsBackToRepair(t *testing.T) {
	// Missing comma between the two objects: strict parse fails, the
	// direct strategy repairs it.
	data := []byte(`[
  {"role": "user", "content": "first", "timestamp": 1}
  {"role": "assistant", "content": "second", "timestamp": 2}
]`)
	e := NewExtractor(NewReader(0, nil), nil)
	msgs := e.ExtractBytes(data, Options{})
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2 after repair", len(msgs))
	}
	if msgs[0].Content != "first" || msgs[1].Content != "second" {
		t.Errorf("order wrong: %v", msgs)
	}
}

func TestExtractBytes_OutOfOrderKeepsNewest(t *testing.T) {
	// Crash recovery can leave records out of order on disk. The limit
	// still selects the greatest timestamps, not the last file positions.
	data := []byte(`[
		{"role":"user","content":"newest","timestamp":9000},
		{"role":"user","content":"middle","timestamp":5000},
		{"role":"user","content":"oldest","timestamp":1000}
	]`)
	e := NewExtractor(NewReader(0, nil), nil)

	msgs := e.ExtractBytes(data, Options{Limit: 2})
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
	if msgs[0].Timestamp != 5000 || msgs[1].Timestamp != 9000 {
		t.Errorf("got timestamps %d,%d; want 5000,9000", msgs[0].Timestamp, msgs[1].Timestamp)
	}

	// Both strategies select the same set.
	streamed, err := e.extractStream(data, Options{Limit: 2})
	if err != nil {
		t.Fatalf("extractStream: %v", err)
	}
	direct := e.extractDirect(data, Options{Limit: 2})
	if len(streamed) != 2 || len(direct) != 2 || streamed[0] != direct[0] || streamed[1] != direct[1] {
		t.Errorf("strategies disagree: %v vs %v", streamed, direct)
	}
}

func TestExtractBytes_UnsalvageableIsEmpty(t *testing.T) {
	e := NewExtractor(NewReader(0, nil), nil)
	if msgs := e.ExtractBytes([]byte("not json at all"), Options{}); len(msgs) != 0 {
		t.Fatalf("garbage produced %v", msgs)
	}
}

func TestExtractBytes_StrategiesAgree(t *testing.T) {
	// The same document through the streaming and the direct path must
	// give the same answer.
	data := historyJSON(30)
	opts := Options{Limit: 7, Since: 1712000010000}

	e := NewExtractor(NewReader(0, nil), nil)
	streamed, err := e.extractStream(data, opts)
	if err != nil {
		t.Fatalf("extractStream: %v", err)
	}
	direct := e.extractDirect(data, opts)

	if len(streamed) != len(direct) {
		t.Fatalf("stream %d vs direct %d", len(streamed), len(direct))
	}
	for i := range streamed {
		if streamed[i] != direct[i] {
			t.Errorf("mismatch at %d: %v vs %v", i, streamed[i], direct[i])
		}
	}
}

func TestBoundedWindow(t *testing.T) {
	w := newBoundedWindow(3)
	for i := 0; i < 5; i++ {
		w.add(Message{Timestamp: int64(i)})
	}
	items := w.items()
	if len(items) != 3 {
		t.Fatalf("len = %d, want 3", len(items))
	}
	for i, want := range []int64{2, 3, 4} {
		if items[i].Timestamp != want {
			t.Errorf("items[%d].Timestamp = %d, want %d", i, items[i].Timestamp, want)
		}
	}

	// Out-of-order arrivals: the greatest timestamps survive.
	w = newBoundedWindow(2)
	for _, ts := range []int64{9000, 5000, 1000, 7000} {
		w.add(Message{Timestamp: ts})
	}
	items = w.items()
	if len(items) != 2 || items[0].Timestamp != 7000 || items[1].Timestamp != 9000 {
		t.Errorf("out-of-order items = %v, want 7000,9000", items)
	}

	// Equal timestamps: the later arrival wins, and ties keep arrival
	// order in the output.
	w = newBoundedWindow(2)
	w.add(Message{Content: "a", Timestamp: 100})
	w.add(Message{Content: "b", Timestamp: 100})
	w.add(Message{Content: "c", Timestamp: 100})
	items = w.items()
	if len(items) != 2 || items[0].Content != "b" || items[1].Content != "c" {
		t.Errorf("tied items = %v, want b,c", items)
	}

	// Unbounded window keeps everything, sorted.
	w = newBoundedWindow(0)
	for _, ts := range []int64{3, 1, 2, 0} {
		w.add(Message{Timestamp: ts})
	}
	items = w.items()
	if len(items) != 4 || items[0].Timestamp != 0 || items[3].Timestamp != 3 {
		t.Errorf("unbounded items = %v", items)
	}
}

func TestLastN(t *testing.T) {
	msgs := []Message{{Timestamp: 1}, {Timestamp: 2}, {Timestamp: 3}}
	if got := lastN(msgs, 2); len(got) != 2 || got[0].Timestamp != 2 {
		t.Errorf("lastN(2) = %v", got)
	}
	if got := lastN(msgs, 0); len(got) != 3 {
		t.Errorf("lastN(0) = %v", got)
	}
	if got := lastN(msgs, 10); len(got) != 3 {
		t.Errorf("lastN(10) = %v", got)
	}
}
