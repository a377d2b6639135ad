package agent

import (
	"encoding/json"
	"strings"

	"github.com/vibeagent/vibe-agent/state"
	"github.com/vibeagent/vibe-agent/workspace"
)

// verifyMemoryPrefix marks a memory commonCommands entry as a verify
// command.
const verifyMemoryPrefix = "verify:"

// pythonConfigFiles are checked for tool mentions during discovery.
var pythonConfigFiles = []string{
	"pyproject.toml",
	"setup.cfg",
	"tox.ini",
	"requirements-dev.txt",
	"requirements.txt",
}

// DiscoverVerifyCommands collects verify commands from project memory,
// package.json scripts, and Python config files, in that priority order.
// The result is deduplicated preserving order and truncated to max.
func DiscoverVerifyCommands(memory state.Memory, toolkit *workspace.Toolkit, max int) []string {
	var commands []string

	for _, entry := range memory.CommonCommands {
		if strings.HasPrefix(entry, verifyMemoryPrefix) {
			if cmd := strings.TrimSpace(strings.TrimPrefix(entry, verifyMemoryPrefix)); cmd != "" {
				commands = append(commands, cmd)
			}
		}
	}

	commands = append(commands, npmScriptCommands(toolkit)...)
	commands = append(commands, pythonToolCommands(toolkit)...)

	seen := make(map[string]bool, len(commands))
	var out []string
	for _, cmd := range commands {
		if seen[cmd] {
			continue
		}
		seen[cmd] = true
		out = append(out, cmd)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

func npmScriptCommands(toolkit *workspace.Toolkit) []string {
	raw, err := toolkit.ReadIfExists("package.json")
	if err != nil || raw == "" {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return nil
	}

	var out []string
	add := func(name string) {
		if _, ok := pkg.Scripts[name]; ok {
			out = append(out, "npm run -s "+name+" --if-present")
		}
	}
	add("test")
	add("lint")
	if _, ok := pkg.Scripts["format:check"]; ok {
		add("format:check")
	} else {
		add("format")
	}
	add("typecheck")
	add("check")
	return out
}

func pythonToolCommands(toolkit *workspace.Toolkit) []string {
	var combined strings.Builder
	for _, name := range pythonConfigFiles {
		content, err := toolkit.ReadIfExists(name)
		if err == nil && content != "" {
			combined.WriteString(strings.ToLower(content))
			combined.WriteByte('\n')
		}
	}
	text := combined.String()
	if text == "" {
		return nil
	}

	var out []string
	if strings.Contains(text, "pytest") {
		out = append(out, "pytest -q")
	}
	if strings.Contains(text, "ruff") {
		out = append(out, "ruff check .")
	}
	if strings.Contains(text, "black") {
		out = append(out, "black --check .")
	}
	if strings.Contains(text, "mypy") {
		out = append(out, "mypy .")
	}
	return out
}
