package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultIgnoreDirs are pruned from listings, scans, and fallback search.
var DefaultIgnoreDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
	".next":        true,
	".turbo":       true,
	".idea":        true,
	".vscode":      true,
}

const (
	defaultListDepth   = 3
	defaultListEntries = 2000
)

// ListOptions bounds a directory listing.
type ListOptions struct {
	Depth      int // directory levels below the start, default 3
	MaxEntries int // hard cap on returned entries, default 2000
}

// Toolkit is the sandboxed file surface. All paths in and out are
// workspace-relative; gating (policy, secrets, approval) is the caller's
// job, never the toolkit's.
type Toolkit struct {
	sandbox *Sandbox
}

// NewToolkit returns a toolkit over the given sandbox.
func NewToolkit(sandbox *Sandbox) *Toolkit {
	return &Toolkit{sandbox: sandbox}
}

// Sandbox exposes the underlying sandbox for collaborators that resolve
// paths themselves.
func (t *Toolkit) Sandbox() *Sandbox {
	return t.sandbox
}

// List walks dir pre-order with sorted entries, pruning the ignore set.
// Directories carry a trailing slash. The cap applies exactly: the walk
// stops as soon as MaxEntries entries are collected.
func (t *Toolkit) List(dir string, opts ListOptions) ([]string, error) {
	depth := opts.Depth
	if depth <= 0 {
		depth = defaultListDepth
	}
	max := opts.MaxEntries
	if max <= 0 {
		max = defaultListEntries
	}
	abs, err := t.sandbox.Resolve(dir)
	if err != nil {
		return nil, err
	}

	var out []string
	var walk func(string, int)
	walk = func(d string, remaining int) {
		if remaining <= 0 || len(out) >= max {
			return
		}
		entries, err := os.ReadDir(d) // sorted by filename
		if err != nil {
			return // unreadable directories are skipped, not fatal
		}
		for _, e := range entries {
			if len(out) >= max {
				return
			}
			if e.IsDir() && DefaultIgnoreDirs[e.Name()] {
				continue
			}
			child := filepath.Join(d, e.Name())
			rel := t.sandbox.Rel(child)
			if e.IsDir() {
				out = append(out, rel+"/")
				walk(child, remaining-1)
			} else {
				out = append(out, rel)
			}
		}
	}
	walk(abs, depth)
	return out, nil
}

// ReadSegment reads path and returns lines [startLine, endLine], 1-based
// inclusive. Zero bounds default to the whole file. Results longer than
// maxChars are clipped with a visible marker noting the bytes dropped.
func (t *Toolkit) ReadSegment(path string, startLine, endLine, maxChars int) (string, error) {
	content, err := t.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(content, "\n")

	if startLine <= 0 {
		startLine = 1
	}
	if endLine <= 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > len(lines) {
		return "", nil
	}
	if endLine < startLine {
		endLine = startLine
	}
	segment := strings.Join(lines[startLine-1:endLine], "\n")

	if maxChars > 0 && len(segment) > maxChars {
		dropped := len(segment) - maxChars
		segment = segment[:maxChars] + fmt.Sprintf("\n...[truncated %d chars]", dropped)
	}
	return segment, nil
}

// ReadFile reads the whole file as UTF-8 text.
func (t *Toolkit) ReadFile(path string) (string, error) {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// ReadIfExists reads path, returning "" when it does not exist.
func (t *Toolkit) ReadIfExists(path string) (string, error) {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// WriteFile writes content, creating parent directories as needed.
func (t *Toolkit) WriteFile(path string, content string) error {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("write %s: create parents: %w", path, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path names an existing file or directory.
func (t *Toolkit) Exists(path string) (bool, error) {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteIfExists removes path; a missing file is a no-op.
func (t *Toolkit) DeleteIfExists(path string) error {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Stat resolves path and stats it without following a trailing symlink.
func (t *Toolkit) Stat(path string) (os.FileInfo, error) {
	abs, err := t.sandbox.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.Lstat(abs)
}
