package agent

import "errors"

// ErrNoInteraction reports that a question reached a front-end that
// cannot ask the user anything.
var ErrNoInteraction = errors.New("no interactive prompter available")

// Prompter is the session's channel to the human: diff approvals,
// continue/stop and rollback confirmations, and free-text questions.
// Implementations may block indefinitely.
type Prompter interface {
	// ApproveDiff shows a pending write and asks whether to apply it.
	ApproveDiff(path, diff string) (bool, error)
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)
	// Ask poses a free-text question and returns the user's answer.
	Ask(question string) (string, error)
}

// AutoPrompter is the non-interactive prompter behind --yes: writes are
// approved, confirmations declined (never roll back or stop unattended),
// and free-text questions cannot be answered.
type AutoPrompter struct{}

func (AutoPrompter) ApproveDiff(path, diff string) (bool, error) { return true, nil }

func (AutoPrompter) Confirm(question string) (bool, error) { return false, nil }

func (AutoPrompter) Ask(question string) (string, error) { return "", ErrNoInteraction }
