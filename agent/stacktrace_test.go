package agent

import (
	"fmt"
	"strings"
	"testing"
)

func TestParseFailureNode(t *testing.T) {
	output := `Error: boom
    at doThing (src/app.ts:10:5)
    at Object.<anonymous> (src/index.js:3:1)
    src/loose.mjs:7:2`
	report := ParseFailure(output)

	if report.ExceptionLine != "Error: boom" {
		t.Errorf("exception line = %q", report.ExceptionLine)
	}
	if report.Summary != "Error: boom" {
		t.Errorf("summary = %q", report.Summary)
	}
	if len(report.Frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(report.Frames))
	}
	first := report.Frames[0]
	if first.Path != "src/app.ts" || first.Line != 10 || first.Column != 5 ||
		first.Function != "doThing" || first.Language != "typescript" {
		t.Errorf("frame[0] = %+v", first)
	}
	if report.Frames[1].Language != "javascript" {
		t.Errorf("frame[1].Language = %q", report.Frames[1].Language)
	}
}

func TestParseFailurePython(t *testing.T) {
	output := `Traceback (most recent call last):
  File "app/main.py", line 12, in run
  File "app/util.py", line 4, in helper
ValueError: nope`
	report := ParseFailure(output)

	if !strings.HasPrefix(report.ExceptionLine, "Traceback") {
		t.Errorf("exception line = %q", report.ExceptionLine)
	}
	if len(report.Frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(report.Frames))
	}
	f := report.Frames[0]
	if f.Path != "app/main.py" || f.Line != 12 || f.Function != "run" || f.Language != "python" {
		t.Errorf("frame[0] = %+v", f)
	}
}

func TestParseFailureFrameCap(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "    at fn (src/f%d.ts:%d:1)\n", i, i)
	}
	report := ParseFailure(b.String())
	if len(report.Frames) != 20 {
		t.Errorf("frames = %d, want capped 20", len(report.Frames))
	}
}

func TestParseFailureNoFrames(t *testing.T) {
	report := ParseFailure("something went sideways\nno trace here")
	if report.Summary != "something went sideways" {
		t.Errorf("summary = %q", report.Summary)
	}
	if len(report.Frames) != 0 {
		t.Errorf("frames = %d, want 0", len(report.Frames))
	}

	empty := ParseFailure("")
	if empty.Summary == "" {
		t.Error("summary must be present even for empty output")
	}
}
