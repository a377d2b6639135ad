package agent

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseModelResponseGarbage(t *testing.T) {
	for _, input := range []string{"garbage not json", "", "{broken", "[1,2,3]", "null"} {
		resp := ParseModelResponse(input)
		if resp.Status != StatusNeedUser {
			t.Errorf("%q: status = %q, want need_user", input, resp.Status)
		}
		if resp.Question == "" {
			t.Errorf("%q: question is empty", input)
		}
		if len(resp.Actions) != 0 || len(resp.Verify) != 0 || len(resp.Plan) != 0 {
			t.Errorf("%q: expected empty plan/actions/verify", input)
		}
	}
}

func TestParseModelResponseBasic(t *testing.T) {
	raw := `{
		"status": "continue",
		"assistant_message": "looking around",
		"plan": ["read the config", "  ", "fix the bug"],
		"actions": [
			{"tool": "read_file", "path": "src/app.ts", "startLine": 1, "endLine": 40},
			{"tool": "run_command", "command": "npm test"}
		],
		"verify": ["npm test", {"command": "npm run lint"}]
	}`
	resp := ParseModelResponse(raw)

	if resp.Status != StatusContinue {
		t.Errorf("status = %q", resp.Status)
	}
	if diff := cmp.Diff([]string{"read the config", "fix the bug"}, resp.Plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"npm test", "npm run lint"}, resp.Verify); diff != "" {
		t.Errorf("verify mismatch (-want +got):\n%s", diff)
	}
	if len(resp.Actions) != 2 {
		t.Fatalf("actions = %d, want 2", len(resp.Actions))
	}
	read, ok := resp.Actions[0].(ReadFileAction)
	if !ok || read.Path != "src/app.ts" || read.StartLine != 1 || read.EndLine != 40 {
		t.Errorf("action[0] = %#v", resp.Actions[0])
	}
	run, ok := resp.Actions[1].(RunCommandAction)
	if !ok || run.Command != "npm test" {
		t.Errorf("action[1] = %#v", resp.Actions[1])
	}
}

func TestParseModelResponseFenced(t *testing.T) {
	raw := "Here is my response:\n```json\n{\"status\": \"done\", \"assistant_message\": \"finished\"}\n```\nthanks"
	resp := ParseModelResponse(raw)
	if resp.Status != StatusDone || resp.AssistantMessage != "finished" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestParseModelResponseCaps(t *testing.T) {
	var plan, actions, verify []string
	for i := 0; i < 30; i++ {
		plan = append(plan, fmt.Sprintf(`"step %d"`, i))
		actions = append(actions, fmt.Sprintf(`{"tool":"run_command","command":"echo %d"}`, i))
		verify = append(verify, fmt.Sprintf(`"cmd %d"`, i))
	}
	raw := fmt.Sprintf(`{"status":"continue","plan":[%s],"actions":[%s],"verify":[%s]}`,
		strings.Join(plan, ","), strings.Join(actions, ","), strings.Join(verify, ","))

	resp := ParseModelResponse(raw)
	if len(resp.Plan) != 12 {
		t.Errorf("plan capped at %d, want 12", len(resp.Plan))
	}
	if len(resp.Actions) != 6 {
		t.Errorf("actions capped at %d, want 6", len(resp.Actions))
	}
	if len(resp.Verify) != 8 {
		t.Errorf("verify capped at %d, want 8", len(resp.Verify))
	}
}

func TestParseModelResponseDropsInvalidActions(t *testing.T) {
	raw := `{
		"status": "continue",
		"actions": [
			{"tool": "read_file"},
			{"tool": "read_file", "path": 42},
			{"tool": "write_file", "path": "a.txt"},
			{"tool": "teleport", "dest": "moon"},
			{"tool": "grep", "pattern": "TODO"},
			"not an object"
		]
	}`
	resp := ParseModelResponse(raw)
	if len(resp.Actions) != 1 {
		t.Fatalf("actions = %d, want 1 (only the valid grep)", len(resp.Actions))
	}
	if g, ok := resp.Actions[0].(GrepAction); !ok || g.Pattern != "TODO" {
		t.Errorf("surviving action = %#v", resp.Actions[0])
	}
}

func TestParseModelResponseStatusCoercion(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"done", StatusDone},
		{"DONE", StatusDone},
		{"need_user", StatusNeedUser},
		{"continue", StatusContinue},
		{"wandering", StatusContinue},
		{"", StatusContinue},
	}
	for _, tt := range tests {
		resp := ParseModelResponse(fmt.Sprintf(`{"status": %q, "question": "q"}`, tt.in))
		if resp.Status != tt.want {
			t.Errorf("status %q coerced to %q, want %q", tt.in, resp.Status, tt.want)
		}
	}
}

func TestParseModelResponseNeedUserSynthesizesQuestion(t *testing.T) {
	resp := ParseModelResponse(`{"status": "need_user"}`)
	if resp.Question == "" {
		t.Error("need_user without a question should synthesize one")
	}
}

func TestParseModelResponseMemoryUpdates(t *testing.T) {
	raw := `{
		"status": "continue",
		"memory_updates": {
			"projectRules": ["use tabs", ""],
			"kv": {"style.imports": "absolute"}
		}
	}`
	resp := ParseModelResponse(raw)
	if diff := cmp.Diff([]string{"use tabs"}, resp.MemoryUpdates.ProjectRules); diff != "" {
		t.Errorf("projectRules mismatch (-want +got):\n%s", diff)
	}
	if resp.MemoryUpdates.KV["style.imports"] != "absolute" {
		t.Errorf("kv = %v", resp.MemoryUpdates.KV)
	}
}
