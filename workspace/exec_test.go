package workspace

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
)

func newTestRunner(t *testing.T, maxOutput int) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell tests are POSIX-only")
	}
	return NewRunner(t.TempDir(), maxOutput)
}

func TestRunSuccess(t *testing.T) {
	r := newTestRunner(t, 0)

	res, err := r.Run(context.Background(), "echo hi", time.Minute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("expected exit 0, got %v", res.ExitCode)
	}
	if res.Failed() {
		t.Error("expected success")
	}
	if strings.TrimSpace(res.Stdout) != "hi" {
		t.Errorf("expected stdout hi, got %q", res.Stdout)
	}
}

func TestRunNonZeroExit(t *testing.T) {
	r := newTestRunner(t, 0)

	res, err := r.Run(context.Background(), "exit 3", time.Minute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode == nil || *res.ExitCode != 3 {
		t.Errorf("expected exit 3, got %v", res.ExitCode)
	}
	if !res.Failed() {
		t.Error("expected failure")
	}
	if res.TimedOut {
		t.Error("unexpected timeout")
	}
}

func TestRunSeparateStreams(t *testing.T) {
	r := newTestRunner(t, 0)

	res, err := r.Run(context.Background(), "echo out; echo err 1>&2", time.Minute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(res.Stdout) != "out" {
		t.Errorf("stdout: expected out, got %q", res.Stdout)
	}
	if strings.TrimSpace(res.Stderr) != "err" {
		t.Errorf("stderr: expected err, got %q", res.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	r := newTestRunner(t, 0)

	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 5", 200*time.Millisecond)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.TimedOut {
		t.Error("expected TimedOut")
	}
	if !res.Failed() {
		t.Error("timeout must count as failure")
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("timeout did not kill promptly, took %v", elapsed)
	}
}

func TestRunOutputCapDoesNotKill(t *testing.T) {
	r := newTestRunner(t, 1000)

	// Produces far more than the cap, then exits cleanly.
	res, err := r.Run(context.Background(), `i=0; while [ $i -lt 200 ]; do printf '0123456789012345678901234567890123456789'; i=$((i+1)); done`, time.Minute)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Stdout) != 1000 {
		t.Errorf("expected capped stdout of 1000 chars, got %d", len(res.Stdout))
	}
	if res.TimedOut {
		t.Error("cap must not look like a timeout")
	}
	if res.ExitCode == nil || *res.ExitCode != 0 {
		t.Errorf("process should finish cleanly, got exit %v", res.ExitCode)
	}
}

func TestRunCombinedOrder(t *testing.T) {
	res := &RunResult{Stdout: "out", Stderr: "err"}
	if got := res.Combined(); got != "err\nout" {
		t.Errorf("expected stderr first, got %q", got)
	}
}
