package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Policy gates the two side-effecting tools: shell commands and file
// writes. Patterns come from a user-editable file, so compile failures are
// contained (substring fallback), never fatal.
type Policy struct {
	AllowRunCommand        bool     `json:"allowRunCommand"`
	AllowWrite             bool     `json:"allowWrite"`
	AllowedCommandPrefixes []string `json:"allowedCommandPrefixes"`
	BlockedCommandPatterns []string `json:"blockedCommandPatterns"`
	BlockedWriteGlobs      []string `json:"blockedWriteGlobs"`
	AllowPotentialSecrets  bool     `json:"allowPotentialSecrets"`
}

// DefaultPolicy blocks the classic destructive commands and the usual
// credential files while allowing everything else.
func DefaultPolicy() Policy {
	return Policy{
		AllowRunCommand:        true,
		AllowWrite:             true,
		AllowedCommandPrefixes: []string{},
		BlockedCommandPatterns: []string{
			`rm\s+-rf\s+/`,
			`del\s+/s\s+/q\s+c:\\`,
			`shutdown`,
			`reboot`,
			`mkfs`,
			`format\s+[a-z]:`,
			`curl\s+.*\|\s*sh`,
			`wget\s+.*\|\s*sh`,
			`powershell\s+-enc`,
		},
		BlockedWriteGlobs: []string{
			".env",
			".env.*",
			"**/.env",
			"**/.env.*",
			"**/*.pem",
			"**/*.key",
			"**/id_rsa",
			".git/**",
		},
		AllowPotentialSecrets: false,
	}
}

// commandPatternCache holds compiled (?i) blocked-command regexes keyed by
// source pattern. A nil entry records a pattern that failed to compile.
var commandPatternCache sync.Map

func compileBlockedPattern(pattern string) *regexp.Regexp {
	if cached, ok := commandPatternCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = nil
	}
	commandPatternCache.Store(pattern, re)
	return re
}

// CheckCommand decides whether command may run. A non-empty reason means
// denied; the reason names the policy rule that fired.
func (p Policy) CheckCommand(command string) (reason string) {
	if !p.AllowRunCommand {
		return "command execution is disabled by policy"
	}
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return "empty command"
	}
	// The pattern is quoted by hand: %q would escape its backslashes and
	// the reason must contain the pattern verbatim.
	for _, pattern := range p.BlockedCommandPatterns {
		if re := compileBlockedPattern(pattern); re != nil {
			if re.MatchString(command) {
				return fmt.Sprintf("Blocked by policy: matched pattern \"%s\"", pattern)
			}
		} else if strings.Contains(strings.ToLower(command), strings.ToLower(pattern)) {
			return fmt.Sprintf("Blocked by policy: matched pattern \"%s\"", pattern)
		}
	}
	if len(p.AllowedCommandPrefixes) > 0 {
		for _, prefix := range p.AllowedCommandPrefixes {
			if strings.HasPrefix(trimmed, prefix) {
				return ""
			}
		}
		return "command does not match any allowed prefix"
	}
	return ""
}

// CheckWritePath decides whether path may be written. The path is
// normalized to forward slashes before glob matching; a malformed glob
// falls back to a substring test, mirroring the command-pattern fallback.
func (p Policy) CheckWritePath(path string) (reason string) {
	if !p.AllowWrite {
		return "file writes are disabled by policy"
	}
	normalized := strings.TrimPrefix(filepath.ToSlash(path), "./")
	for _, glob := range p.BlockedWriteGlobs {
		matched, err := doublestar.Match(glob, normalized)
		if err != nil {
			matched = strings.Contains(normalized, glob)
		}
		if matched {
			return fmt.Sprintf("Blocked by policy: path matches %q", glob)
		}
	}
	return ""
}

// PolicyStore persists Policy at <stateDir>/policy.json. When the file is
// absent the defaults are written, so the user always has something to
// edit.
type PolicyStore struct {
	path string

	mu     sync.Mutex
	cached *Policy
}

// NewPolicyStore returns a store over <stateDir>/policy.json.
func NewPolicyStore(stateDir string) *PolicyStore {
	return &PolicyStore{path: PolicyPath(stateDir)}
}

// Get returns the current policy, loading it on first access and writing
// defaults when no file exists. A corrupt file falls back to defaults
// without overwriting the user's file.
func (s *PolicyStore) Get() Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}
	pol := DefaultPolicy()
	data, err := os.ReadFile(s.path)
	switch {
	case os.IsNotExist(err):
		s.persistLocked(pol)
	case err == nil:
		if jsonErr := json.Unmarshal(data, &pol); jsonErr != nil {
			pol = DefaultPolicy()
		}
	}
	s.cached = &pol
	return pol
}

// persistLocked is best-effort: policy defaults still apply in memory when
// the state directory cannot be created.
func (s *PolicyStore) persistLocked(pol Policy) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(pol, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o644)
}
