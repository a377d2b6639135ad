package agent

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContextLines = 3

// lineOp is one line of a line-level diff.
type lineOp struct {
	kind byte // ' ', '-', '+'
	text string
}

// diffLines computes a line-level diff between two texts. Lines are
// mapped to runes by hand before diffing: the library's own line
// encoding emits decimal index strings, and diffing those character by
// character misaligns once a file has more than ten distinct lines.
func diffLines(before, after string) []lineOp {
	lineRunes := map[string]rune{}
	runeLines := map[rune]string{}
	next := rune(1)
	encode := func(text string) []rune {
		if text == "" {
			return nil
		}
		lines := strings.SplitAfter(text, "\n")
		if lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		out := make([]rune, len(lines))
		for i, line := range lines {
			r, ok := lineRunes[line]
			if !ok {
				r = next
				next++
				if next == 0xD800 {
					next = 0xE000 // surrogates are not valid in strings
				}
				lineRunes[line] = r
				runeLines[r] = line
			}
			out[i] = r
		}
		return out
	}

	a, b := encode(before), encode(after)
	diffs := diffmatchpatch.New().DiffMainRunes(a, b, false)

	var ops []lineOp
	for _, d := range diffs {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, r := range d.Text {
			ops = append(ops, lineOp{kind, strings.TrimSuffix(runeLines[r], "\n")})
		}
	}
	return ops
}

// UnifiedDiff renders a unified diff of the change to path with three
// lines of context per hunk. Identical inputs yield "".
func UnifiedDiff(path, before, after string) string {
	if before == after {
		return ""
	}
	ops := diffLines(before, after)

	var changed []int
	for i, op := range ops {
		if op.kind != ' ' {
			changed = append(changed, i)
		}
	}
	if len(changed) == 0 {
		return ""
	}

	// Line number of each op in the old and new file.
	oldPos := make([]int, len(ops)+1)
	newPos := make([]int, len(ops)+1)
	oldPos[0], newPos[0] = 1, 1
	for i, op := range ops {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if op.kind != '+' {
			oldPos[i+1]++
		}
		if op.kind != '-' {
			newPos[i+1]++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", path)
	fmt.Fprintf(&b, "+++ b/%s\n", path)

	// Group changes separated by more than 2*context into distinct hunks.
	for g := 0; g < len(changed); {
		first := changed[g]
		last := first
		for g+1 < len(changed) && changed[g+1]-last <= 2*diffContextLines {
			g++
			last = changed[g]
		}
		g++

		start := first - diffContextLines
		if start < 0 {
			start = 0
		}
		end := last + diffContextLines
		if end > len(ops)-1 {
			end = len(ops) - 1
		}

		oldCount, newCount := 0, 0
		for i := start; i <= end; i++ {
			if ops[i].kind != '+' {
				oldCount++
			}
			if ops[i].kind != '-' {
				newCount++
			}
		}
		oldStart, newStart := oldPos[start], newPos[start]
		if oldCount == 0 {
			oldStart--
		}
		if newCount == 0 {
			newStart--
		}

		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
		for i := start; i <= end; i++ {
			b.WriteByte(ops[i].kind)
			b.WriteString(ops[i].text)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// DiffStats counts added and removed lines in a unified diff, ignoring
// the file and hunk headers.
func DiffStats(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
