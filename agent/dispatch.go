package agent

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vibeagent/vibe-agent/project"
	"github.com/vibeagent/vibe-agent/state"
	"github.com/vibeagent/vibe-agent/workspace"
)

const maxDiffPreviewChars = 30000

// ToolResult is the outcome of one dispatched action, fed back into the
// conversation and mirrored to the audit log.
type ToolResult struct {
	Tool    string `json:"tool"`
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
	Changed bool   `json:"changed,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// dispatch executes one action. It never lets a failure escape: panics
// and errors become ok:false results so a bad action cannot kill the
// loop.
func (t *task) dispatch(ctx context.Context, action Action) (result ToolResult) {
	actionID := uuid.NewString()
	result.Tool = action.Tool()

	defer func() {
		if r := recover(); r != nil {
			result = ToolResult{Tool: action.Tool(), OK: false, Summary: fmt.Sprintf("Tool failed: %v", r)}
		}
		t.audit.Log("action_result", map[string]any{
			"actionId": actionID,
			"tool":     result.Tool,
			"ok":       result.OK,
			"summary":  result.Summary,
		})
		t.emit(EventActionResult, map[string]any{
			"actionId": actionID,
			"tool":     result.Tool,
			"ok":       result.OK,
			"summary":  result.Summary,
		})
	}()

	t.emit(EventActionStart, map[string]any{"actionId": actionID, "tool": action.Tool()})

	switch a := action.(type) {
	case ListFilesAction:
		result = t.listFiles(a)
	case ReadFileAction:
		result = t.readFile(a)
	case GrepAction:
		result = t.grep(ctx, a)
	case RunCommandAction:
		result = t.runCommand(ctx, a)
	case WriteFileAction:
		result = t.writeFile(a)
	case ScanProjectAction:
		result = t.scanProject(ctx, a)
	case SymbolLookupAction:
		result = t.symbolLookup(ctx, a)
	case FindReferencesAction:
		result = t.findReferences(ctx, a)
	case DependencyMapAction:
		result = t.dependencyMap(ctx)
	case MemorySetAction:
		result = t.memorySet(a)
	case MemoryGetAction:
		result = t.memoryGet(a)
	default:
		result = ToolResult{Tool: action.Tool(), OK: false, Summary: "Tool failed: unknown action"}
	}
	return result
}

func toolFailed(tool string, err error) ToolResult {
	return ToolResult{Tool: tool, OK: false, Summary: fmt.Sprintf("Tool failed: %v", err)}
}

func (t *task) listFiles(a ListFilesAction) ToolResult {
	dir := a.Dir
	if dir == "" {
		dir = "."
	}
	entries, err := t.s.toolkit.List(dir, workspace.ListOptions{Depth: a.Depth, MaxEntries: a.MaxEntries})
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Listed %d entries under %s", len(entries), dir),
		Data:    map[string]any{"entries": entries},
	}
}

func (t *task) readFile(a ReadFileAction) ToolResult {
	content, err := t.s.toolkit.ReadSegment(a.Path, a.StartLine, a.EndLine, t.s.cfg.MaxToolOutputChars)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Read %s (%d chars)", a.Path, len(content)),
		Data:    map[string]any{"path": a.Path, "content": content},
	}
}

func (t *task) grep(ctx context.Context, a GrepAction) ToolResult {
	dir := a.Dir
	if dir == "" {
		dir = "."
	}
	max := a.MaxMatches
	if max <= 0 {
		max = 100
	}
	matches, err := t.s.grep.Search(ctx, a.Pattern, dir, max)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Found %d matches for %q", len(matches), a.Pattern),
		Data:    map[string]any{"matches": matches},
	}
}

func (t *task) runCommand(ctx context.Context, a RunCommandAction) ToolResult {
	if reason := t.policy.CheckCommand(a.Command); reason != "" {
		return ToolResult{Tool: a.Tool(), OK: false, Summary: reason}
	}
	res, err := t.s.runner.Run(ctx, a.Command, t.s.cfg.ToolTimeout)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	data := map[string]any{"result": res}
	if res.Failed() {
		data["failure"] = ParseFailure(res.Combined())
		summary := fmt.Sprintf("Command failed: %s", a.Command)
		if res.TimedOut {
			summary = fmt.Sprintf("Command timed out after %dms: %s", res.DurationMs, a.Command)
		}
		return ToolResult{Tool: a.Tool(), OK: false, Summary: summary, Data: data}
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Command succeeded: %s", a.Command),
		Data:    data,
	}
}

// writeFile is the gated write path: policy, secret scan, diff preview,
// user approval, then commit with before and after snapshots.
func (t *task) writeFile(a WriteFileAction) ToolResult {
	if reason := t.policy.CheckWritePath(a.Path); reason != "" {
		return ToolResult{Tool: a.Tool(), OK: false, Summary: reason}
	}
	if !t.policy.AllowPotentialSecrets {
		if findings := state.DetectSecrets(a.Content); len(findings) > 0 {
			return ToolResult{
				Tool: a.Tool(), OK: false,
				Summary: fmt.Sprintf("Write blocked: content contains %d potential secret(s)", len(findings)),
				Data:    map[string]any{"findings": findings},
			}
		}
	}

	existed, err := t.s.toolkit.Exists(a.Path)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	before, err := t.s.toolkit.ReadIfExists(a.Path)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	if before == a.Content {
		return ToolResult{
			Tool: a.Tool(), OK: true, Changed: false,
			Summary: fmt.Sprintf("No changes to %s", a.Path),
		}
	}

	diff := ClipChars(UnifiedDiff(a.Path, before, a.Content), maxDiffPreviewChars)
	t.emit(EventDiffPreview, map[string]any{"path": a.Path, "diff": diff})

	approved, err := t.s.prompter.ApproveDiff(a.Path, diff)
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	if !approved {
		return ToolResult{Tool: a.Tool(), OK: false, Summary: fmt.Sprintf("Write to %s was not approved", a.Path)}
	}

	t.tracker.RecordBefore(a.Path, existed, before)
	if err := t.s.toolkit.WriteFile(a.Path, a.Content); err != nil {
		return toolFailed(a.Tool(), err)
	}
	t.tracker.RecordAfter(a.Path, a.Content)

	added, removed := DiffStats(diff)
	t.audit.Log("write_applied", map[string]any{
		"path": a.Path, "added": added, "removed": removed,
	})
	return ToolResult{
		Tool: a.Tool(), OK: true, Changed: true,
		Summary: fmt.Sprintf("Wrote %s (+%d/-%d)", a.Path, added, removed),
	}
}

func (t *task) scanProject(ctx context.Context, a ScanProjectAction) ToolResult {
	idx, err := t.s.scanner.Scan(ctx, project.ScanOptions{Refresh: a.Refresh, MaxFiles: a.MaxFiles})
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Scanned %d files, %d symbols", idx.TotalFilesScanned, len(idx.Symbols)),
		Data: map[string]any{
			"totalFilesScanned": idx.TotalFilesScanned,
			"languages":         idx.Languages,
			"symbols":           len(idx.Symbols),
			"imports":           len(idx.Imports),
		},
	}
}

func (t *task) symbolLookup(ctx context.Context, a SymbolLookupAction) ToolResult {
	symbols, err := t.s.scanner.LookupSymbols(ctx, a.Query, project.LookupOptions{Language: a.Language, Limit: a.Limit})
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Found %d symbols matching %q", len(symbols), a.Query),
		Data:    map[string]any{"symbols": symbols},
	}
}

func (t *task) findReferences(ctx context.Context, a FindReferencesAction) ToolResult {
	uses, err := t.s.scanner.FindReferences(ctx, a.Name, project.LookupOptions{Language: a.Language, Limit: a.Limit})
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Found %d references to %q", len(uses), a.Name),
		Data:    map[string]any{"references": uses},
	}
}

func (t *task) dependencyMap(ctx context.Context) ToolResult {
	deps, err := t.s.scanner.DependencyMap(ctx)
	if err != nil {
		return toolFailed("dependency_map", err)
	}
	return ToolResult{
		Tool: "dependency_map", OK: true,
		Summary: fmt.Sprintf("Dependencies: node %d (+%d dev), python %d (+%d dev)",
			len(deps.Node), len(deps.NodeDev), len(deps.Python), len(deps.PythonDev)),
		Data: map[string]any{"dependencies": deps},
	}
}

func (t *task) memorySet(a MemorySetAction) ToolResult {
	tags, err := t.s.memory.ApplyUpdates(state.MemoryUpdates{KV: map[string]string{a.Key: a.Value}})
	if err != nil {
		return toolFailed(a.Tool(), err)
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Memory key %q set", a.Key),
		Data:    map[string]any{"tags": tags},
	}
}

func (t *task) memoryGet(a MemoryGetAction) ToolResult {
	value, ok := t.s.memory.GetKV(a.Key)
	if !ok {
		return ToolResult{Tool: a.Tool(), OK: true, Summary: fmt.Sprintf("Memory key %q is not set", a.Key)}
	}
	return ToolResult{
		Tool: a.Tool(), OK: true,
		Summary: fmt.Sprintf("Memory key %q read", a.Key),
		Data:    map[string]any{"key": a.Key, "value": value},
	}
}
