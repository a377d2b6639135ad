package agent

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/vibeagent/vibe-agent/state"
)

// Status is the model's verdict on the task after one iteration.
type Status string

const (
	StatusContinue Status = "continue"
	StatusDone     Status = "done"
	StatusNeedUser Status = "need_user"
)

const (
	maxPlanSteps      = 12
	maxActions        = 6
	maxVerifyCommands = 8
	maxMemoryListAdds = 30
	maxMemoryKVAdds   = 50
)

// Action is one typed operation the model may request. The set is closed;
// the dispatcher switches exhaustively over these types.
type Action interface {
	Tool() string
}

type ListFilesAction struct {
	Dir        string
	Depth      int
	MaxEntries int
}

type ReadFileAction struct {
	Path      string
	StartLine int
	EndLine   int
}

type GrepAction struct {
	Pattern    string
	Dir        string
	MaxMatches int
}

type RunCommandAction struct {
	Command string
}

type WriteFileAction struct {
	Path    string
	Content string
}

type ScanProjectAction struct {
	Refresh  bool
	MaxFiles int
}

type SymbolLookupAction struct {
	Query    string
	Language string
	Limit    int
}

type FindReferencesAction struct {
	Name     string
	Language string
	Limit    int
}

type DependencyMapAction struct{}

type MemorySetAction struct {
	Key   string
	Value string
}

type MemoryGetAction struct {
	Key string
}

func (ListFilesAction) Tool() string      { return "list_files" }
func (ReadFileAction) Tool() string       { return "read_file" }
func (GrepAction) Tool() string           { return "grep" }
func (RunCommandAction) Tool() string     { return "run_command" }
func (WriteFileAction) Tool() string      { return "write_file" }
func (ScanProjectAction) Tool() string    { return "scan_project" }
func (SymbolLookupAction) Tool() string   { return "symbol_lookup" }
func (FindReferencesAction) Tool() string { return "find_references" }
func (DependencyMapAction) Tool() string  { return "dependency_map" }
func (MemorySetAction) Tool() string      { return "memory_set" }
func (MemoryGetAction) Tool() string      { return "memory_get" }

// Response is the normalized model reply for one iteration.
type Response struct {
	Status           Status
	AssistantMessage string
	Plan             []string
	Actions          []Action
	Verify           []string
	Question         string
	MemoryUpdates    state.MemoryUpdates
}

// ParseModelResponse normalizes raw model text into a Response. It is
// total: any input yields a valid response, malformed JSON downgrades to
// need_user with a retry request, and invalid actions are dropped rather
// than propagated.
func ParseModelResponse(raw string) Response {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return Response{
			Status: StatusNeedUser,
			Plan:   []string{}, Actions: []Action{}, Verify: []string{},
			Question: "Your last reply was not valid JSON. Reply again with a single strict-JSON object matching the response schema, with no surrounding text.",
		}
	}

	resp := Response{
		Status:           coerceStatus(stringField(obj, "status")),
		AssistantMessage: stringField(obj, "assistant_message"),
		Plan:             stringList(obj["plan"], maxPlanSteps),
		Actions:          []Action{},
		Verify:           verifyList(obj["verify"]),
		Question:         strings.TrimSpace(stringField(obj, "question")),
		MemoryUpdates:    memoryUpdates(obj["memory_updates"]),
	}

	if rawActions, ok := obj["actions"].([]any); ok {
		for _, entry := range rawActions {
			if len(resp.Actions) >= maxActions {
				break
			}
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if action, ok := decodeAction(m); ok {
				resp.Actions = append(resp.Actions, action)
			}
		}
	}

	if resp.Status == StatusNeedUser && resp.Question == "" {
		resp.Question = "What should I do next?"
	}
	return resp
}

// extractJSONObject pulls the first JSON object out of model text,
// tolerating code fences and surrounding prose.
func extractJSONObject(raw string) (map[string]any, bool) {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```"); idx >= 0 {
		rest := text[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{") {
			rest = rest[nl+1:] // drop the language tag line
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = rest[:end]
		} else {
			text = rest
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text[start:end+1]), &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func coerceStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusDone:
		return StatusDone
	case StatusNeedUser:
		return StatusNeedUser
	default:
		return StatusContinue
	}
}

// stringList collects trimmed non-empty strings up to max.
func stringList(v any, max int) []string {
	out := []string{}
	entries, ok := v.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		if len(out) >= max {
			break
		}
		s, ok := entry.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// verifyList accepts plain strings or {command} objects.
func verifyList(v any) []string {
	out := []string{}
	entries, ok := v.([]any)
	if !ok {
		return out
	}
	for _, entry := range entries {
		if len(out) >= maxVerifyCommands {
			break
		}
		var cmd string
		switch e := entry.(type) {
		case string:
			cmd = e
		case map[string]any:
			cmd = stringField(e, "command")
		}
		if cmd = strings.TrimSpace(cmd); cmd != "" {
			out = append(out, cmd)
		}
	}
	return out
}

func memoryUpdates(v any) state.MemoryUpdates {
	m, ok := v.(map[string]any)
	if !ok {
		return state.MemoryUpdates{}
	}
	updates := state.MemoryUpdates{
		ProjectRules:      stringList(m["projectRules"], maxMemoryListAdds),
		ArchitectureNotes: stringList(m["architectureNotes"], maxMemoryListAdds),
		CommonCommands:    stringList(m["commonCommands"], maxMemoryListAdds),
	}
	if kv, ok := m["kv"].(map[string]any); ok {
		updates.KV = map[string]string{}
		for k, raw := range kv {
			if len(updates.KV) >= maxMemoryKVAdds {
				break
			}
			if s, ok := raw.(string); ok {
				updates.KV[k] = s
			}
		}
	}
	return updates
}

// decodeAction builds the typed variant for one raw action, reporting
// false when the tool is unknown or a required field is missing or
// mistyped.
func decodeAction(m map[string]any) (Action, bool) {
	switch stringField(m, "tool") {
	case "list_files":
		return ListFilesAction{
			Dir:        stringField(m, "dir"),
			Depth:      intField(m, "depth"),
			MaxEntries: intField(m, "maxEntries"),
		}, true
	case "read_file":
		path, ok := requiredString(m, "path")
		if !ok {
			return nil, false
		}
		return ReadFileAction{
			Path:      path,
			StartLine: intField(m, "startLine"),
			EndLine:   intField(m, "endLine"),
		}, true
	case "grep":
		pattern, ok := requiredString(m, "pattern")
		if !ok {
			return nil, false
		}
		return GrepAction{
			Pattern:    pattern,
			Dir:        stringField(m, "dir"),
			MaxMatches: intField(m, "maxMatches"),
		}, true
	case "run_command":
		command, ok := requiredString(m, "command")
		if !ok {
			return nil, false
		}
		return RunCommandAction{Command: command}, true
	case "write_file":
		path, ok := requiredString(m, "path")
		if !ok {
			return nil, false
		}
		content, ok := m["content"].(string)
		if !ok {
			return nil, false
		}
		return WriteFileAction{Path: path, Content: content}, true
	case "scan_project":
		return ScanProjectAction{
			Refresh:  boolField(m, "refresh"),
			MaxFiles: intField(m, "maxFiles"),
		}, true
	case "symbol_lookup":
		query, ok := requiredString(m, "query")
		if !ok {
			return nil, false
		}
		return SymbolLookupAction{
			Query:    query,
			Language: stringField(m, "language"),
			Limit:    intField(m, "limit"),
		}, true
	case "find_references":
		name, ok := requiredString(m, "name")
		if !ok {
			return nil, false
		}
		return FindReferencesAction{
			Name:     name,
			Language: stringField(m, "language"),
			Limit:    intField(m, "limit"),
		}, true
	case "dependency_map":
		return DependencyMapAction{}, true
	case "memory_set":
		key, ok := requiredString(m, "key")
		if !ok {
			return nil, false
		}
		value, ok := m["value"].(string)
		if !ok {
			return nil, false
		}
		return MemorySetAction{Key: key, Value: value}, true
	case "memory_get":
		key, ok := requiredString(m, "key")
		if !ok {
			return nil, false
		}
		return MemoryGetAction{Key: key}, true
	default:
		return nil, false
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func requiredString(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	s = strings.TrimSpace(s)
	return s, ok && s != ""
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}
