package state

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewSessionID(t *testing.T) {
	start := time.Date(2026, 8, 25, 14, 30, 5, 123_000_000, time.UTC)
	id := NewSessionID(start)
	if strings.ContainsAny(id, ":.") {
		t.Errorf("session id %q contains reserved characters", id)
	}
	if !strings.HasPrefix(id, "2026-08-25T14-30-05") {
		t.Errorf("unexpected session id %q", id)
	}
}

func TestNewSessionIDDistinctForSameInstant(t *testing.T) {
	now := time.Now()
	if a, b := NewSessionID(now), NewSessionID(now); a == b {
		t.Errorf("session ids collide for one instant: %q", a)
	}
}

func TestAuditLoggerAppendsJSONLines(t *testing.T) {
	dir := t.TempDir()
	logger := NewAuditLogger(dir, "session-1")

	logger.Log("task_start", map[string]any{"goal": "fix the bug"})
	logger.Log("action_result", map[string]any{"ok": false})

	f, err := os.Open(logger.Path())
	if err != nil {
		t.Fatalf("audit file missing: %v", err)
	}
	defer f.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != "task_start" || events[1].Type != "action_result" {
		t.Errorf("event order wrong: %+v", events)
	}
	for _, ev := range events {
		if ev.SessionID != "session-1" {
			t.Errorf("sessionId = %q", ev.SessionID)
		}
		if _, err := time.Parse(time.RFC3339Nano, ev.TS); err != nil {
			t.Errorf("ts %q is not RFC3339: %v", ev.TS, err)
		}
	}
}

func TestAuditLoggerNeverTruncates(t *testing.T) {
	dir := t.TempDir()

	first := NewAuditLogger(dir, "s")
	first.Log("task_start", nil)
	second := NewAuditLogger(dir, "s")
	second.Log("task_end", nil)

	data, err := os.ReadFile(first.Path())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(strings.TrimSpace(string(data)), "\n") + 1
	if lines != 2 {
		t.Errorf("expected 2 lines after append, got %d", lines)
	}
}

func TestAuditLoggerSwallowsIOErrors(t *testing.T) {
	// A state dir that cannot be created: parent is a regular file.
	dir := t.TempDir()
	blocker := dir + "/blocker"
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := NewAuditLogger(blocker+"/nested", "s")
	logger.Log("task_start", nil) // must not panic
}
