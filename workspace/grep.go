package workspace

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Match is one search hit, path relative to the workspace root.
type Match struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// binaryExtensions are skipped by the fallback walker.
var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".tgz": true, ".bz2": true, ".xz": true, ".7z": true,
	".rar": true, ".exe": true, ".dll": true, ".so": true, ".dylib": true,
	".bin": true, ".class": true, ".jar": true, ".war": true, ".mp3": true,
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".wav": true,
	".flac": true, ".ogg": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".otf": true,
}

// Grep searches workspace text. It prefers an external ripgrep, probed
// once per process, and falls back to a pure-Go walker when rg is absent
// or errors out.
type Grep struct {
	sandbox *Sandbox

	probeOnce     sync.Once
	rgPath        string
	forceFallback bool // test seam
}

// NewGrep returns a search engine over the toolkit's sandbox.
func NewGrep(toolkit *Toolkit) *Grep {
	return &Grep{sandbox: toolkit.Sandbox()}
}

// Search finds up to maxMatches occurrences of pattern under dir.
func (g *Grep) Search(ctx context.Context, pattern, dir string, maxMatches int) ([]Match, error) {
	if maxMatches <= 0 {
		maxMatches = 200
	}
	if dir == "" {
		dir = "."
	}
	abs, err := g.sandbox.Resolve(dir)
	if err != nil {
		return nil, err
	}

	if !g.forceFallback && g.ripgrepPath() != "" {
		if matches, ok := g.searchRipgrep(ctx, pattern, abs, maxMatches); ok {
			return matches, nil
		}
	}
	return g.searchFallback(pattern, abs, maxMatches)
}

// ripgrepPath probes for rg once and caches the result for the process.
func (g *Grep) ripgrepPath() string {
	g.probeOnce.Do(func() {
		path, err := exec.LookPath("rg")
		if err != nil {
			return
		}
		if err := exec.Command(path, "--version").Run(); err != nil {
			return
		}
		g.rgPath = path
	})
	return g.rgPath
}

type rgEvent struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		Lines struct {
			Text string `json:"text"`
		} `json:"lines"`
		LineNumber int `json:"line_number"`
	} `json:"data"`
}

// searchRipgrep shells out to rg --json. The second return is false when
// rg failed hard (exit >= 2 or spawn error) and the caller should fall
// back; exit 1 just means no matches.
func (g *Grep) searchRipgrep(ctx context.Context, pattern, absDir string, maxMatches int) ([]Match, bool) {
	relArg := g.sandbox.Rel(absDir)
	if relArg == "" {
		relArg = "."
	}

	cmd := exec.CommandContext(ctx, g.rgPath, "--json", "-n", pattern, relArg)
	cmd.Dir = g.sandbox.Root()
	// Bound memory on pathological result sets; a clipped trailing event
	// fails to decode and is skipped.
	out := &capWriter{max: 4 << 20}
	cmd.Stdout = out
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
			return nil, false
		}
	}

	matches := []Match{}
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() && len(matches) < maxMatches {
		var ev rgEvent
		if json.Unmarshal(scanner.Bytes(), &ev) != nil || ev.Type != "match" {
			continue
		}
		matches = append(matches, Match{
			Path: filepath.ToSlash(ev.Data.Path.Text),
			Line: ev.Data.LineNumber,
			Text: strings.TrimRight(ev.Data.Lines.Text, "\r\n"),
		})
	}
	return matches, true
}

// searchFallback walks the tree in-process. The pattern compiles as a
// regex when possible and degrades to a case-insensitive substring test
// when it does not.
func (g *Grep) searchFallback(pattern, absDir string, maxMatches int) ([]Match, error) {
	re, reErr := regexp.Compile(pattern)
	var substr string
	if reErr != nil {
		substr = strings.ToLower(pattern)
	}
	lineMatches := func(line string) bool {
		if reErr != nil {
			return strings.Contains(strings.ToLower(line), substr)
		}
		return re.MatchString(line)
	}

	matches := []Match{}
	errStop := errors.New("stop walk")
	err := filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped
		}
		if d.IsDir() {
			if DefaultIgnoreDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || binaryExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel := g.sandbox.Rel(path)
		for i, line := range strings.Split(string(data), "\n") {
			if lineMatches(line) {
				matches = append(matches, Match{Path: rel, Line: i + 1, Text: line})
				if len(matches) >= maxMatches {
					return errStop
				}
			}
		}
		return nil
	})
	if err != nil && err != errStop {
		return nil, err
	}
	return matches, nil
}
