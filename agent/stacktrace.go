package agent

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const maxTraceFrames = 20

// Frame is one stack frame extracted from tool output.
type Frame struct {
	Path     string `json:"path"`
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Function string `json:"function,omitempty"`
	Language string `json:"language"`
}

// FailureReport summarizes a failed command: a human line, up to 20
// frames, and the exception line when one was found.
type FailureReport struct {
	Summary       string  `json:"summary"`
	Frames        []Frame `json:"frames"`
	ExceptionLine string  `json:"exceptionLine,omitempty"`
}

var (
	nodeFrameRe   = regexp.MustCompile(`(?:at ([^()\n]+) \()?([^\s()]+\.(?:ts|tsx|js|jsx|mjs|cjs)):(\d+):(\d+)\)?`)
	pythonFrameRe = regexp.MustCompile(`^\s*File "([^"]+)", line (\d+), in (.+)$`)
)

// ParseFailure extracts stack frames from combined stderr and stdout in
// the Node and Python dialects. A report is always returned, with a
// summary even when no frames were found.
func ParseFailure(output string) *FailureReport {
	report := &FailureReport{Frames: []Frame{}}

	for _, line := range strings.Split(output, "\n") {
		if report.ExceptionLine == "" {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "Error:") || strings.HasPrefix(trimmed, "Traceback") ||
				strings.Contains(trimmed, "Exception") {
				report.ExceptionLine = trimmed
			}
		}
		if len(report.Frames) >= maxTraceFrames {
			continue
		}
		if m := pythonFrameRe.FindStringSubmatch(line); m != nil {
			n, _ := strconv.Atoi(m[2])
			report.Frames = append(report.Frames, Frame{
				Path: m[1], Line: n, Function: strings.TrimSpace(m[3]), Language: "python",
			})
			continue
		}
		for _, m := range nodeFrameRe.FindAllStringSubmatch(line, -1) {
			if len(report.Frames) >= maxTraceFrames {
				break
			}
			n, _ := strconv.Atoi(m[3])
			col, _ := strconv.Atoi(m[4])
			report.Frames = append(report.Frames, Frame{
				Path: m[2], Line: n, Column: col,
				Function: strings.TrimSpace(m[1]), Language: frameLanguage(m[2]),
			})
		}
	}

	switch {
	case report.ExceptionLine != "":
		report.Summary = report.ExceptionLine
	case len(report.Frames) > 0:
		f := report.Frames[0]
		report.Summary = fmt.Sprintf("failure at %s:%d", f.Path, f.Line)
	default:
		report.Summary = firstNonEmptyLine(output)
	}
	return report
}

func frameLanguage(path string) string {
	switch filepath.Ext(path) {
	case ".ts", ".tsx":
		return "typescript"
	default:
		return "javascript"
	}
}

func firstNonEmptyLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return ClipChars(trimmed, 200)
		}
	}
	return "command failed with no output"
}
