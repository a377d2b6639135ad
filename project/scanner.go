package project

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vibeagent/vibe-agent/workspace"
)

const (
	scanDepth     = 16
	maxParseBytes = 1 << 20 // larger files are summarized, not parsed

	defaultSymbolLimit = 80
	maxSymbolLimit     = 2000
	defaultRefLimit    = 120
)

// ScanOptions controls one scan request.
type ScanOptions struct {
	Refresh  bool // drop the cached index and rebuild
	MaxFiles int  // per-request cap, bounded by the scanner's own limit
}

// LookupOptions filters symbol and reference lookups.
type LookupOptions struct {
	Language string
	Limit    int
}

// Scanner builds, caches, and persists the project index. The cached
// index is process-scoped; concurrent Scan callers share one in-flight
// build.
type Scanner struct {
	toolkit  *workspace.Toolkit
	stateDir string
	maxFiles int
	logger   *zap.Logger
	parsers  *Parsers

	mu     sync.Mutex
	cached *Index
	gen    atomic.Uint64
	group  singleflight.Group
}

// NewScanner returns a scanner persisting under stateDir. maxFiles bounds
// every scan; logger may be nil.
func NewScanner(toolkit *workspace.Toolkit, stateDir string, maxFiles int, logger *zap.Logger) *Scanner {
	if maxFiles <= 0 {
		maxFiles = 6000
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		toolkit:  toolkit,
		stateDir: stateDir,
		maxFiles: maxFiles,
		logger:   logger,
		parsers:  NewParsers(),
	}
}

// Scan returns the cached index, or builds one. Refresh invalidates the
// cache first. Callers arriving while a build is running are handed the
// same result. The flight key carries a generation count bumped by every
// refresh, so a refresh never joins a build that started before it.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*Index, error) {
	var gen uint64
	if opts.Refresh {
		s.mu.Lock()
		s.cached = nil
		s.mu.Unlock()
		gen = s.gen.Add(1)
	} else {
		s.mu.Lock()
		if idx := s.cached; idx != nil {
			s.mu.Unlock()
			return idx, nil
		}
		s.mu.Unlock()
		gen = s.gen.Load()
	}

	maxFiles := opts.MaxFiles
	if maxFiles <= 0 || maxFiles > s.maxFiles {
		maxFiles = s.maxFiles
	}

	v, err, _ := s.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		idx, err := s.build(ctx, maxFiles)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		current := s.gen.Load() == gen
		if current {
			s.cached = idx
		}
		s.mu.Unlock()
		if current {
			s.persist(idx)
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (s *Scanner) ensure(ctx context.Context) (*Index, error) {
	return s.Scan(ctx, ScanOptions{})
}

// Summary renders a short human block describing the current index,
// scanning first if needed.
func (s *Scanner) Summary(ctx context.Context) (string, error) {
	idx, err := s.ensure(ctx)
	if err != nil {
		return "", err
	}

	langs := make([]string, 0, len(idx.Languages))
	for lang, count := range idx.Languages {
		langs = append(langs, fmt.Sprintf("%s:%d", lang, count))
	}
	sort.Strings(langs)

	var b strings.Builder
	fmt.Fprintf(&b, "Files scanned: %d\n", idx.TotalFilesScanned)
	fmt.Fprintf(&b, "Languages: %s\n", strings.Join(langs, ", "))
	fmt.Fprintf(&b, "Symbols: %d, imports: %d, uses: %d\n",
		len(idx.Symbols), len(idx.Imports), len(idx.Uses))
	fmt.Fprintf(&b, "Dependencies: node %d (+%d dev), python %d (+%d dev)",
		len(idx.Dependencies.Node), len(idx.Dependencies.NodeDev),
		len(idx.Dependencies.Python), len(idx.Dependencies.PythonDev))
	return b.String(), nil
}

// LookupSymbols matches query as a case-folded substring of symbol names.
// Exact matches sort first; within each tier index order is preserved.
func (s *Scanner) LookupSymbols(ctx context.Context, query string, opts LookupOptions) ([]Symbol, error) {
	idx, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSymbolLimit
	}
	if limit > maxSymbolLimit {
		limit = maxSymbolLimit
	}

	q := strings.ToLower(strings.TrimSpace(query))
	var exact, partial []Symbol
	for _, sym := range idx.Symbols {
		if opts.Language != "" && sym.Language != opts.Language {
			continue
		}
		name := strings.ToLower(sym.Name)
		switch {
		case name == q:
			exact = append(exact, sym)
		case strings.Contains(name, q):
			partial = append(partial, sym)
		}
	}
	out := append(exact, partial...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindReferences returns uses whose name matches exactly.
func (s *Scanner) FindReferences(ctx context.Context, name string, opts LookupOptions) ([]Use, error) {
	idx, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRefLimit
	}

	var out []Use
	for _, use := range idx.Uses {
		if use.Name != name {
			continue
		}
		if opts.Language != "" && use.Language != opts.Language {
			continue
		}
		out = append(out, use)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// DependencyMap returns the manifest-declared dependencies.
func (s *Scanner) DependencyMap(ctx context.Context) (Dependencies, error) {
	idx, err := s.ensure(ctx)
	if err != nil {
		return Dependencies{}, err
	}
	return idx.Dependencies, nil
}

func (s *Scanner) build(ctx context.Context, maxFiles int) (*Index, error) {
	start := time.Now()
	entries, err := s.toolkit.List(".", workspace.ListOptions{
		Depth:      scanDepth,
		MaxEntries: 2 * maxFiles,
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !strings.HasSuffix(e, "/") {
			files = append(files, e)
		}
	}
	sort.Strings(files)
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}

	idx := &Index{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		WorkspaceRoot: s.toolkit.Sandbox().Root(),
		Languages:     map[string]int{},
		Files:         []FileInfo{},
		Symbols:       []Symbol{},
		Imports:       []Import{},
		Uses:          []Use{},
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := s.toolkit.Stat(rel)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		lang := DetectLanguage(rel)
		idx.Languages[lang]++
		idx.TotalFilesScanned++

		fi := FileInfo{Path: rel, Language: lang, SizeBytes: info.Size()}
		if info.Size() > maxParseBytes || lang == "unknown" {
			idx.Files = append(idx.Files, fi)
			continue
		}
		content, err := s.toolkit.ReadFile(rel)
		if err != nil {
			idx.Files = append(idx.Files, fi)
			continue
		}
		fi.LineCount = strings.Count(content, "\n") + 1
		idx.Files = append(idx.Files, fi)

		parsed := s.parsers.ParseFile(rel, lang, content)
		idx.Symbols = append(idx.Symbols, parsed.Symbols...)
		idx.Imports = append(idx.Imports, parsed.Imports...)
		idx.Uses = append(idx.Uses, parsed.Uses...)
	}

	idx.Dependencies = s.dependencyMap()

	s.logger.Debug("project scan complete",
		zap.Int("files", idx.TotalFilesScanned),
		zap.Int("symbols", len(idx.Symbols)),
		zap.Duration("took", time.Since(start)))
	return idx, nil
}

// persist writes the index after a successful build. Best-effort: the
// in-memory cache is authoritative.
func (s *Scanner) persist(idx *Index) {
	dir := filepath.Join(s.stateDir, "index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Debug("index dir create failed", zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(dir, "project-index.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Debug("index persist failed", zap.Error(err))
	}
}
