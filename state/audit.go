package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEvent is one line of the session audit log.
type AuditEvent struct {
	TS        string `json:"ts"`
	SessionID string `json:"sessionId"`
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
}

// AuditLogger appends session events to <stateDir>/audit/<sessionID>.jsonl,
// one JSON object per line. It is strictly best-effort: IO failures are
// swallowed so audit can never crash a task. Files are never truncated or
// rotated within a session.
type AuditLogger struct {
	path      string
	sessionID string

	mu      sync.Mutex
	created bool
}

// NewAuditLogger returns a logger for one session. Nothing is written
// until the first Log call.
func NewAuditLogger(stateDir, sessionID string) *AuditLogger {
	return &AuditLogger{
		path:      filepath.Join(AuditDir(stateDir), sessionID+".jsonl"),
		sessionID: sessionID,
	}
}

// Path returns the audit file location.
func (l *AuditLogger) Path() string {
	return l.path
}

// SessionID returns the session identifier stamped on every event.
func (l *AuditLogger) SessionID() string {
	return l.sessionID
}

// Log appends one event. Serialization and IO errors are dropped.
func (l *AuditLogger) Log(eventType string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(AuditEvent{
		TS:        time.Now().UTC().Format(time.RFC3339Nano),
		SessionID: l.sessionID,
		Type:      eventType,
		Data:      data,
	})
	if err != nil {
		return
	}
	if !l.created {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			return
		}
		l.created = true
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.Write(append(line, '\n'))
}
