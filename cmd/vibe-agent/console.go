package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vibeagent/vibe-agent/agent"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	planStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	delStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	questStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
)

// console renders session events and doubles as the interactive prompter.
// All terminal writes go through one mutex so prompts and event lines do
// not interleave.
type console struct {
	mu       sync.Mutex
	out      io.Writer
	in       *bufio.Reader
	markdown *glamour.TermRenderer
}

func newConsole(out io.Writer, in io.Reader) *console {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}
	return &console{out: out, in: bufio.NewReader(in), markdown: renderer}
}

// Render prints one session event.
func (c *console) Render(ev agent.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Kind {
	case agent.EventTaskStart:
		fmt.Fprintln(c.out, headerStyle.Render("Task: "+dataString(ev, "goal")))
	case agent.EventAssistantMessage:
		c.renderMarkdown(dataString(ev, "message"))
	case agent.EventPlan:
		for i, step := range dataStrings(ev, "steps") {
			fmt.Fprintln(c.out, planStyle.Render(fmt.Sprintf("  %d. %s", i+1, step)))
		}
	case agent.EventMemoryUpdate:
		fmt.Fprintln(c.out, dimStyle.Render("memory: "+strings.Join(dataStrings(ev, "tags"), ", ")))
	case agent.EventActionResult:
		mark := okStyle.Render("ok")
		if ok, _ := ev.Data["ok"].(bool); !ok {
			mark = failStyle.Render("fail")
		}
		fmt.Fprintf(c.out, "  [%s] %s: %s\n", mark, dataString(ev, "tool"), dataString(ev, "summary"))
	case agent.EventDiffPreview:
		fmt.Fprintln(c.out, headerStyle.Render("--- proposed change: "+dataString(ev, "path")))
		c.renderDiff(dataString(ev, "diff"))
	case agent.EventVerifyResult:
		mark := okStyle.Render("pass")
		if ok, _ := ev.Data["ok"].(bool); !ok {
			mark = failStyle.Render("FAIL")
		}
		fmt.Fprintf(c.out, "  verify [%s] %s: %s\n", mark, dataString(ev, "command"), dataString(ev, "summary"))
	case agent.EventRepairPrompt:
		fmt.Fprintln(c.out, failStyle.Render(fmt.Sprintf("verification failed %v times in a row", ev.Data["failures"])))
	case agent.EventUserQuestion:
		fmt.Fprintln(c.out, questStyle.Render("? "+dataString(ev, "question")))
	case agent.EventWriteSummary:
		fmt.Fprintln(c.out, headerStyle.Render("Changed files:"))
		if changes, ok := ev.Data["changes"].([]map[string]any); ok {
			for _, change := range changes {
				fmt.Fprintf(c.out, "  %s %s%s\n", change["path"],
					addStyle.Render(fmt.Sprintf("+%v", change["added"])),
					delStyle.Render(fmt.Sprintf("/-%v", change["removed"])))
			}
		}
	case agent.EventRollback:
		fmt.Fprintln(c.out, failStyle.Render("rolled back: "+strings.Join(dataStrings(ev, "restoredFiles"), ", ")))
	case agent.EventTaskEnd:
		fmt.Fprintln(c.out, headerStyle.Render("Task ended: "+dataString(ev, "state")))
		fmt.Fprintln(c.out, dimStyle.Render("audit log: "+dataString(ev, "auditPath")))
	case agent.EventError:
		fmt.Fprintln(c.out, failStyle.Render("error: "+dataString(ev, "error")))
	}
}

func (c *console) renderMarkdown(text string) {
	if text == "" {
		return
	}
	if c.markdown != nil {
		if rendered, err := c.markdown.Render(text); err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

func (c *console) renderDiff(diff string) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			fmt.Fprintln(c.out, dimStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			fmt.Fprintln(c.out, addStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			fmt.Fprintln(c.out, delStyle.Render(line))
		default:
			fmt.Fprintln(c.out, line)
		}
	}
}

// ApproveDiff asks whether to apply a pending write. The diff itself was
// already rendered from the diff_preview event.
func (c *console) ApproveDiff(path, diff string) (bool, error) {
	return c.yesNo(fmt.Sprintf("Apply changes to %s?", path))
}

// Confirm asks a yes/no question.
func (c *console) Confirm(question string) (bool, error) {
	return c.yesNo(question)
}

// Ask poses a free-text question.
func (c *console) Ask(question string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, questStyle.Render(question)+" ")
	line, err := c.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (c *console) yesNo(question string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, questStyle.Render(question)+" [y/N] ")
	line, err := c.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func dataString(ev agent.Event, key string) string {
	s, _ := ev.Data[key].(string)
	return s
}

func dataStrings(ev agent.Event, key string) []string {
	switch v := ev.Data[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
