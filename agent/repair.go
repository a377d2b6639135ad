package agent

import (
	"context"
	"fmt"
)

// VerifyOutcome is the result of one verify command.
type VerifyOutcome struct {
	Command string         `json:"command"`
	OK      bool           `json:"ok"`
	Summary string         `json:"summary"`
	Failure *FailureReport `json:"failure,omitempty"`
}

// runVerify runs verify commands serially in declared order through the
// command policy gate. Failures get a parsed failure report attached.
func (t *task) runVerify(ctx context.Context, commands []string) ([]VerifyOutcome, bool) {
	var outcomes []VerifyOutcome
	failed := false

	for _, cmd := range commands {
		outcome := VerifyOutcome{Command: cmd}

		if reason := t.policy.CheckCommand(cmd); reason != "" {
			outcome.Summary = reason
			failed = true
		} else if res, err := t.s.runner.Run(ctx, cmd, t.s.cfg.ToolTimeout); err != nil {
			outcome.Summary = fmt.Sprintf("verify failed to start: %v", err)
			failed = true
		} else if res.Failed() {
			outcome.Failure = ParseFailure(res.Combined())
			if res.TimedOut {
				outcome.Summary = fmt.Sprintf("timed out after %dms", res.DurationMs)
			} else {
				outcome.Summary = outcome.Failure.Summary
			}
			failed = true
		} else {
			outcome.OK = true
			outcome.Summary = "passed"
		}

		t.audit.Log("verify_result", map[string]any{
			"command": outcome.Command,
			"ok":      outcome.OK,
			"summary": outcome.Summary,
		})
		t.emit(EventVerifyResult, map[string]any{
			"command": outcome.Command,
			"ok":      outcome.OK,
			"summary": outcome.Summary,
		})
		outcomes = append(outcomes, outcome)
	}
	return outcomes, failed
}

// verifyCommands assembles the iteration's verify set: the model's own
// commands first, then discovered ones when auto-verify is on and the
// iteration wrote something. Order-preserving dedup, capped.
func (t *task) verifyCommands(requested []string, wroteThisIteration bool) []string {
	commands := append([]string{}, requested...)
	if t.s.cfg.AutoVerify && wroteThisIteration {
		commands = append(commands, DiscoverVerifyCommands(t.s.memory.Get(), t.s.toolkit, maxVerifyCommands)...)
	}

	seen := make(map[string]bool, len(commands))
	var out []string
	for _, cmd := range commands {
		if cmd == "" || seen[cmd] {
			continue
		}
		seen[cmd] = true
		out = append(out, cmd)
		if len(out) >= maxVerifyCommands {
			break
		}
	}
	return out
}
