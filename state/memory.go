package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	maxListEntries = 200 // per memory list
	maxKVPerBatch  = 50  // kv keys accepted in one update
)

// Memory is the persisted project knowledge the model can read and extend:
// rules, architecture notes, useful commands, and a free-form KV map.
type Memory struct {
	ProjectRules      []string          `json:"projectRules"`
	ArchitectureNotes []string          `json:"architectureNotes"`
	CommonCommands    []string          `json:"commonCommands"`
	KV                map[string]string `json:"kv"`
	UpdatedAt         string            `json:"updatedAt"`
}

func emptyMemory() *Memory {
	return &Memory{
		ProjectRules:      []string{},
		ArchitectureNotes: []string{},
		CommonCommands:    []string{},
		KV:                map[string]string{},
	}
}

// MemoryUpdates is one batch of additions proposed by the model.
type MemoryUpdates struct {
	ProjectRules      []string          `json:"projectRules,omitempty"`
	ArchitectureNotes []string          `json:"architectureNotes,omitempty"`
	CommonCommands    []string          `json:"commonCommands,omitempty"`
	KV                map[string]string `json:"kv,omitempty"`
}

// IsZero reports whether the batch carries no updates at all.
func (u MemoryUpdates) IsZero() bool {
	return len(u.ProjectRules) == 0 && len(u.ArchitectureNotes) == 0 &&
		len(u.CommonCommands) == 0 && len(u.KV) == 0
}

// MemoryStore persists Memory at <stateDir>/memory.json. The in-memory
// cache is authoritative; every mutation completes its disk write before
// the store accepts another one.
type MemoryStore struct {
	path string

	mu     sync.Mutex
	cached *Memory
}

// NewMemoryStore returns a store over <stateDir>/memory.json. The file is
// loaded lazily on first access; an absent file means empty memory.
func NewMemoryStore(stateDir string) *MemoryStore {
	return &MemoryStore{path: MemoryPath(stateDir)}
}

// Get returns a copy of the current memory.
func (s *MemoryStore) Get() Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.loadLocked()
}

// GetKV returns one KV entry and whether it exists.
func (s *MemoryStore) GetKV(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.loadLocked().KV[key]
	return v, ok
}

// ApplyUpdates merges a batch into memory: deduplicating append for each
// list (trimmed, empties dropped, capped at 200 entries), overwrite for KV
// (at most 50 keys per batch). Any change bumps UpdatedAt and rewrites the
// file before returning. The returned tags name what changed, e.g.
// "projectRules(+2)" or "kv.style.imports".
func (s *MemoryStore) ApplyUpdates(u MemoryUpdates) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mem := s.loadLocked()
	var tags []string

	merge := func(name string, dst *[]string, add []string) {
		added := 0
		seen := make(map[string]bool, len(*dst))
		for _, e := range *dst {
			seen[e] = true
		}
		for _, e := range add {
			e = strings.TrimSpace(e)
			if e == "" || seen[e] || len(*dst) >= maxListEntries {
				continue
			}
			*dst = append(*dst, e)
			seen[e] = true
			added++
		}
		if added > 0 {
			tags = append(tags, fmt.Sprintf("%s(+%d)", name, added))
		}
	}

	merge("projectRules", &mem.ProjectRules, u.ProjectRules)
	merge("architectureNotes", &mem.ArchitectureNotes, u.ArchitectureNotes)
	merge("commonCommands", &mem.CommonCommands, u.CommonCommands)

	if len(u.KV) > 0 {
		keys := make([]string, 0, len(u.KV))
		for k := range u.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > maxKVPerBatch {
			keys = keys[:maxKVPerBatch]
		}
		if mem.KV == nil {
			mem.KV = map[string]string{}
		}
		for _, k := range keys {
			if mem.KV[k] == u.KV[k] {
				continue
			}
			mem.KV[k] = u.KV[k]
			tags = append(tags, "kv."+k)
		}
	}

	if len(tags) == 0 {
		return nil, nil
	}
	mem.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.persistLocked(mem); err != nil {
		return tags, err
	}
	return tags, nil
}

// loadLocked returns the cached memory, reading the file on first access.
// A missing or unreadable file yields fresh empty memory.
func (s *MemoryStore) loadLocked() *Memory {
	if s.cached != nil {
		return s.cached
	}
	mem := emptyMemory()
	if data, err := os.ReadFile(s.path); err == nil {
		if err := json.Unmarshal(data, mem); err != nil {
			mem = emptyMemory()
		}
	}
	if mem.KV == nil {
		mem.KV = map[string]string{}
	}
	s.cached = mem
	return mem
}

func (s *MemoryStore) persistLocked(mem *Memory) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	data, err := json.MarshalIndent(mem, "", "  ")
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	return nil
}
