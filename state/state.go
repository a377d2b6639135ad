// Package state owns everything the agent persists between tasks: project
// memory, the execution policy, the secret scanner that gates writes, and
// the per-session audit log. All files live under one state directory
// (<workspace>/.vibe-agent by default) with a fixed JSON layout.
package state

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// MemoryPath returns the project memory file within stateDir.
func MemoryPath(stateDir string) string {
	return filepath.Join(stateDir, "memory.json")
}

// PolicyPath returns the policy file within stateDir.
func PolicyPath(stateDir string) string {
	return filepath.Join(stateDir, "policy.json")
}

// AuditDir returns the audit log directory within stateDir.
func AuditDir(stateDir string) string {
	return filepath.Join(stateDir, "audit")
}

var sessionSeq atomic.Uint64

// NewSessionID derives a filename-safe session identifier from the task
// start time: the UTC ISO-8601 timestamp with ":" and "." replaced by
// "-", plus a process-wide sequence number so two tasks started in the
// same millisecond never share an audit log.
func NewSessionID(start time.Time) string {
	id := start.UTC().Format("2006-01-02T15:04:05.000Z")
	id = strings.ReplaceAll(id, ":", "-")
	id = strings.ReplaceAll(id, ".", "-")
	return fmt.Sprintf("%s-%03d", id, sessionSeq.Add(1))
}
