package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrPathEscape marks a user-supplied path that resolves outside the
// workspace root. It is fatal for the requesting action only.
var ErrPathEscape = errors.New("path escapes workspace")

// Sandbox confines every user-supplied path to one workspace root.
// The root is stored absolute and symlink-resolved so descendant checks
// compare canonical paths.
type Sandbox struct {
	root string
}

// NewSandbox canonicalizes root and returns a sandbox anchored there.
func NewSandbox(root string) (*Sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Sandbox{root: filepath.Clean(abs)}, nil
}

// Root returns the canonical workspace root.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve joins userPath against the root and verifies the result is the
// root itself or a proper descendant. Symlinks in the existing portion of
// the path are resolved first so a link cannot step past the root.
func (s *Sandbox) Resolve(userPath string) (string, error) {
	p := userPath
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = resolveExisting(filepath.Clean(p))
	if !s.contains(p) {
		return "", fmt.Errorf("%w: %q is outside workspace root", ErrPathEscape, userPath)
	}
	return p, nil
}

// Rel converts an absolute path inside the root to a forward-slash
// relative path.
func (s *Sandbox) Rel(abs string) string {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

func (s *Sandbox) contains(abs string) bool {
	root, p := s.root, abs
	if runtime.GOOS == "windows" {
		root = strings.ToLower(root)
		p = strings.ToLower(p)
	}
	if p == root {
		return true
	}
	return strings.HasPrefix(p, root+string(filepath.Separator))
}

// resolveExisting resolves symlinks over the longest existing prefix of
// path and rejoins the remainder. Writes may target files that do not
// exist yet, so a full EvalSymlinks is not an option.
func resolveExisting(path string) string {
	var tail []string
	p := path
	for {
		if resolved, err := filepath.EvalSymlinks(p); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved
		}
		parent := filepath.Dir(p)
		if parent == p {
			return path
		}
		tail = append(tail, filepath.Base(p))
		p = parent
	}
}
