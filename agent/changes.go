package agent

import (
	"errors"

	"github.com/vibeagent/vibe-agent/workspace"
)

// snapshot is the before and after state of one written file.
type snapshot struct {
	path          string
	existedBefore bool
	before        string
	after         string
}

// Tracker records the pre-task state of every file the task writes so the
// whole task can be rolled back. One tracker lives exactly one task.
type Tracker struct {
	toolkit *workspace.Toolkit
	order   []string
	snaps   map[string]*snapshot
}

// NewTracker returns an empty tracker over the toolkit.
func NewTracker(toolkit *workspace.Toolkit) *Tracker {
	return &Tracker{toolkit: toolkit, snaps: map[string]*snapshot{}}
}

// RecordBefore snapshots path ahead of a write. First observation wins:
// re-recording an already tracked path is a no-op, so rollback restores
// the pre-task state rather than a mid-task one.
func (t *Tracker) RecordBefore(path string, existed bool, before string) {
	if _, ok := t.snaps[path]; ok {
		return
	}
	t.snaps[path] = &snapshot{path: path, existedBefore: existed, before: before, after: before}
	t.order = append(t.order, path)
}

// RecordAfter captures the content written to a tracked path.
func (t *Tracker) RecordAfter(path, after string) {
	if snap, ok := t.snaps[path]; ok {
		snap.after = after
	}
}

// HasChanges reports whether any tracked file differs from its snapshot.
func (t *Tracker) HasChanges() bool {
	for _, snap := range t.snaps {
		if snap.before != snap.after {
			return true
		}
	}
	return false
}

// Rollback restores snapshots in reverse insertion order: files that
// existed get their before bytes back, files that did not are deleted.
// Restored paths come back in chronological order. Individual failures do
// not stop the remaining restores.
func (t *Tracker) Rollback() ([]string, error) {
	var restored []string
	var errs []error
	for i := len(t.order) - 1; i >= 0; i-- {
		snap := t.snaps[t.order[i]]
		var err error
		if snap.existedBefore {
			err = t.toolkit.WriteFile(snap.path, snap.before)
		} else {
			err = t.toolkit.DeleteIfExists(snap.path)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		restored = append(restored, snap.path)
	}
	for i, j := 0, len(restored)-1; i < j; i, j = i+1, j-1 {
		restored[i], restored[j] = restored[j], restored[i]
	}
	return restored, errors.Join(errs...)
}

// FileChange is the per-file line delta of one task.
type FileChange struct {
	Path    string
	Added   int
	Removed int
}

// Stats summarizes every changed file in chronological order.
func (t *Tracker) Stats() []FileChange {
	var out []FileChange
	for _, path := range t.order {
		snap := t.snaps[path]
		if snap.before == snap.after {
			continue
		}
		added, removed := DiffStats(UnifiedDiff(path, snap.before, snap.after))
		out = append(out, FileChange{Path: path, Added: added, Removed: removed})
	}
	return out
}
