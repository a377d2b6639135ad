package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"time"
)

// RunResult holds the outcome of one shell command.
type RunResult struct {
	Command    string `json:"command"`
	ExitCode   *int   `json:"exitCode"` // nil when the process died on a signal
	TimedOut   bool   `json:"timedOut"`
	DurationMs int64  `json:"durationMs"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// Failed reports whether the run counts as a failure: a timeout or
// anything other than a clean zero exit.
func (r *RunResult) Failed() bool {
	return r.TimedOut || r.ExitCode == nil || *r.ExitCode != 0
}

// Combined returns stderr followed by stdout, the order the stack-trace
// parser scans.
func (r *RunResult) Combined() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stderr + "\n" + r.Stdout
}

// Runner spawns shell commands in the workspace with independent stdout
// and stderr caps and a wall-clock timeout that kills the whole process
// group.
type Runner struct {
	dir            string
	maxOutputChars int
}

// NewRunner returns a runner rooted at dir. maxOutputChars caps each
// stream independently; once a stream is full further bytes are dropped
// but the process keeps running.
func NewRunner(dir string, maxOutputChars int) *Runner {
	if maxOutputChars <= 0 {
		maxOutputChars = 18000
	}
	return &Runner{dir: dir, maxOutputChars: maxOutputChars}
}

// Run executes command through the OS shell with the inherited
// environment. The returned error covers spawn failures only; command
// failures and timeouts are reported in the result.
func (r *Runner) Run(ctx context.Context, command string, timeout time.Duration) (*RunResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell, args := shellCommand(command)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = r.dir
	setProcessGroup(cmd)
	// Grandchildren can hold the output pipes open after the leader is
	// killed; don't let Wait block on them forever.
	cmd.WaitDelay = 3 * time.Second

	stdout := &capWriter{max: r.maxOutputChars}
	stderr := &capWriter{max: r.maxOutputChars}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	result := &RunResult{
		Command:    command,
		DurationMs: time.Since(start).Milliseconds(),
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		killProcessGroup(cmd)
		return result, nil
	}
	if err == nil {
		zero := 0
		result.ExitCode = &zero
		return result, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			result.ExitCode = &code
		}
		return result, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// Output pipes abandoned after exit; the exit status was clean.
		zero := 0
		result.ExitCode = &zero
		return result, nil
	}
	return nil, fmt.Errorf("run command: %w", err)
}

func shellCommand(command string) (string, []string) {
	if runtime.GOOS == "windows" {
		return "cmd.exe", []string{"/d", "/s", "/c", command}
	}
	return "/bin/sh", []string{"-lc", command}
}

// capWriter accepts every write but keeps only the first max bytes.
// Returning the full length keeps the writing process alive; a cap is a
// display bound, not a kill signal.
type capWriter struct {
	buf bytes.Buffer
	max int
}

func (w *capWriter) Write(p []byte) (int, error) {
	if remaining := w.max - w.buf.Len(); remaining > 0 {
		if len(p) > remaining {
			w.buf.Write(p[:remaining])
		} else {
			w.buf.Write(p)
		}
	}
	return len(p), nil
}

func (w *capWriter) String() string {
	return w.buf.String()
}
