package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vibeagent/vibe-agent/llm"
	"github.com/vibeagent/vibe-agent/project"
	"github.com/vibeagent/vibe-agent/state"
	"github.com/vibeagent/vibe-agent/workspace"
)

// TaskState is the terminal state of one task.
type TaskState string

const (
	TaskCompleted    TaskState = "completed"
	TaskNeedUser     TaskState = "need_user"
	TaskAborted      TaskState = "aborted"
	TaskIterLimit    TaskState = "iteration_limit"
	TaskStoppedEarly TaskState = "stopped_early"
)

// TaskResult summarizes one finished task.
type TaskResult struct {
	State         TaskState
	Iterations    int
	Changes       []FileChange
	RolledBack    bool
	RestoredFiles []string
	AuditPath     string
}

// Session wires the model, the sandboxed tools, and the persistent stores
// together. One session can run tasks sequentially; each task gets its
// own conversation, change tracker, and audit log.
type Session struct {
	cfg      Config
	client   llm.ChatClient
	toolkit  *workspace.Toolkit
	runner   *workspace.Runner
	grep     *workspace.Grep
	scanner  *project.Scanner
	memory   *state.MemoryStore
	policy   *state.PolicyStore
	prompter Prompter
	emitter  *EventEmitter
	logger   *zap.Logger
}

// NewSession builds a session over the configured workspace. A nil
// prompter auto-approves writes; a nil logger disables diagnostics.
func NewSession(cfg Config, client llm.ChatClient, prompter Prompter, logger *zap.Logger) (*Session, error) {
	if prompter == nil {
		prompter = AutoPrompter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sandbox, err := workspace.NewSandbox(cfg.WorkspaceRoot)
	if err != nil {
		return nil, err
	}
	toolkit := workspace.NewToolkit(sandbox)
	return &Session{
		cfg:      cfg,
		client:   client,
		toolkit:  toolkit,
		runner:   workspace.NewRunner(sandbox.Root(), cfg.MaxToolOutputChars),
		grep:     workspace.NewGrep(toolkit),
		scanner:  project.NewScanner(toolkit, cfg.StateDir, cfg.MaxScanFiles, logger),
		memory:   state.NewMemoryStore(cfg.StateDir),
		policy:   state.NewPolicyStore(cfg.StateDir),
		prompter: prompter,
		emitter:  NewEventEmitter(0),
		logger:   logger,
	}, nil
}

// Events returns the session's event stream.
func (s *Session) Events() <-chan Event {
	return s.emitter.Events()
}

// Close closes the event stream. Call after the last task.
func (s *Session) Close() {
	s.emitter.Close()
}

// task is the per-RunTask state: one conversation, one tracker, one audit
// log, and the policy loaded at task start.
type task struct {
	s       *Session
	policy  state.Policy
	tracker *Tracker
	audit   *state.AuditLogger
}

func (t *task) emit(kind EventKind, data map[string]any) {
	t.s.emitter.Emit(kind, data)
}

// RunTask drives the plan, act, verify, repair loop for one goal.
func (s *Session) RunTask(ctx context.Context, goal string) (*TaskResult, error) {
	if strings.TrimSpace(s.cfg.APIKey) == "" && s.cfg.Provider == "" {
		err := &llm.ConfigurationError{SDKError: llm.SDKError{
			Message: "no API key configured; set VIBE_API_KEY, GROQ_API_KEY, or OPENAI_API_KEY",
		}}
		s.emitter.Emit(EventError, map[string]any{"error": err.Error()})
		return nil, err
	}

	t := &task{
		s:       s,
		policy:  s.policy.Get(),
		tracker: NewTracker(s.toolkit),
		audit:   state.NewAuditLogger(s.cfg.StateDir, state.NewSessionID(time.Now())),
	}
	t.audit.Log("task_start", map[string]any{"goal": goal, "model": s.cfg.Model})
	t.emit(EventTaskStart, map[string]any{"goal": goal, "sessionId": t.audit.SessionID()})

	conv := NewConversation(SystemPrompt())
	scannerSummary, err := s.scanner.Summary(ctx)
	if err != nil {
		s.logger.Debug("initial scan failed", zap.Error(err))
		scannerSummary = ""
	}
	conv.AddUser(ContextMessage(s.cfg.WorkspaceRoot, scannerSummary, s.memory.Get(), t.policy))
	conv.AddUser("User task: " + goal)

	result := &TaskResult{State: TaskIterLimit}
	aborted := false
	anyVerifyFailed := false
	consecutiveVerifyFailures := 0
	var loopErr error

loop:
	for i := 1; i <= s.cfg.MaxIterations; i++ {
		result.Iterations = i

		raw, err := s.client.Complete(ctx, conv.Messages(), s.cfg.ToolTimeout)
		if err != nil {
			t.audit.Log("model_error", map[string]any{"error": err.Error()})
			t.emit(EventError, map[string]any{"error": err.Error()})
			result.State = TaskAborted
			aborted = true
			loopErr = err
			break
		}

		resp := ParseModelResponse(raw)
		if resp.AssistantMessage != "" {
			t.emit(EventAssistantMessage, map[string]any{"message": resp.AssistantMessage})
		}
		if len(resp.Plan) > 0 {
			t.emit(EventPlan, map[string]any{"steps": resp.Plan})
		}
		t.audit.Log("model_response", map[string]any{
			"status":  string(resp.Status),
			"plan":    len(resp.Plan),
			"actions": len(resp.Actions),
		})

		if !resp.MemoryUpdates.IsZero() {
			tags, err := s.memory.ApplyUpdates(resp.MemoryUpdates)
			if err != nil {
				s.logger.Debug("memory update failed", zap.Error(err))
			}
			if len(tags) > 0 {
				t.emit(EventMemoryUpdate, map[string]any{"tags": tags})
			}
		}

		var results []ToolResult
		wroteThisIteration := false
		for _, action := range resp.Actions {
			res := t.dispatch(ctx, action)
			if res.Tool == "write_file" && res.OK && res.Changed {
				wroteThisIteration = true
			}
			results = append(results, res)
		}

		verifySet := t.verifyCommands(resp.Verify, wroteThisIteration)
		outcomes, verifyFailed := t.runVerify(ctx, verifySet)
		if verifyFailed {
			anyVerifyFailed = true
			consecutiveVerifyFailures++
		} else if len(verifySet) > 0 {
			consecutiveVerifyFailures = 0
		}

		if consecutiveVerifyFailures >= s.cfg.AutoRepairRounds && t.tracker.HasChanges() {
			t.emit(EventRepairPrompt, map[string]any{"failures": consecutiveVerifyFailures})
			cont, err := s.prompter.Confirm(fmt.Sprintf(
				"Verification has failed %d times in a row. Keep trying?", consecutiveVerifyFailures))
			if err != nil || !cont {
				result.State = TaskStoppedEarly
				break
			}
			consecutiveVerifyFailures = 0
		}

		conv.AddAssistant(raw)
		conv.AddUser(resultsMessage(results, outcomes, s.cfg.MaxToolOutputChars))

		switch resp.Status {
		case StatusNeedUser:
			t.emit(EventUserQuestion, map[string]any{"question": resp.Question})
			answer, err := s.prompter.Ask(resp.Question)
			if err != nil {
				result.State = TaskNeedUser
				break loop
			}
			conv.AddUser(answer)
		case StatusDone:
			if verifyFailed {
				t.audit.Log("done_overridden", map[string]any{"iteration": i})
				conv.AddUser("Verification failed. Continue and fix errors before marking done.")
				continue
			}
			result.State = TaskCompleted
			break loop
		}
	}

	if result.State != TaskCompleted && !aborted && t.tracker.HasChanges() && anyVerifyFailed {
		rollback, err := s.prompter.Confirm("Verification failed and file changes remain. Roll back all changes from this task?")
		if err == nil && rollback {
			restored, rbErr := t.tracker.Rollback()
			if rbErr != nil {
				s.logger.Warn("rollback incomplete", zap.Error(rbErr))
			}
			result.RolledBack = true
			result.RestoredFiles = restored
			t.audit.Log("rollback", map[string]any{"restoredFiles": restored})
			t.emit(EventRollback, map[string]any{"restoredFiles": restored})
		}
	}

	result.Changes = t.tracker.Stats()
	if len(result.Changes) > 0 {
		changes := make([]map[string]any, 0, len(result.Changes))
		for _, c := range result.Changes {
			changes = append(changes, map[string]any{"path": c.Path, "added": c.Added, "removed": c.Removed})
		}
		t.emit(EventWriteSummary, map[string]any{"changes": changes})
	}
	result.AuditPath = t.audit.Path()
	t.audit.Log("task_end", map[string]any{
		"state":      string(result.State),
		"iterations": result.Iterations,
	})
	t.emit(EventTaskEnd, map[string]any{
		"state":     string(result.State),
		"auditPath": result.AuditPath,
	})
	return result, loopErr
}

// resultsMessage serializes the iteration's tool and verify results for
// the conversation, each entry clipped independently.
func resultsMessage(results []ToolResult, outcomes []VerifyOutcome, maxChars int) string {
	var b strings.Builder
	b.WriteString("Tool results:\n")
	if len(results) == 0 {
		b.WriteString("(no actions were requested)\n")
	}
	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"tool":%q,"ok":false,"summary":"result serialization failed"}`, r.Tool))
		}
		b.WriteString(ClipChars(string(data), maxChars))
		b.WriteByte('\n')
	}
	if len(outcomes) > 0 {
		b.WriteString("Verify results:\n")
		for _, o := range outcomes {
			data, err := json.Marshal(o)
			if err != nil {
				continue
			}
			b.WriteString(ClipChars(string(data), maxChars))
			b.WriteByte('\n')
		}
	}
	return b.String()
}
