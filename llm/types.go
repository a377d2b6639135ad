// Package llm is the chat-completion client the agent core talks through.
// The surface is deliberately small: an ordered message list in, one text
// completion out. Provider routing covers any OpenAI-compatible endpoint
// (Groq, OpenAI, local gateways) plus the providers gollm speaks natively,
// behind one typed error taxonomy and one retry policy.
package llm

import (
	"context"
	"time"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation. Content is plain text; the
// agent protocol is JSON carried inside assistant text, not tool calls.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ChatClient is the contract the agent orchestrator depends on. Complete
// sends the whole conversation and returns the assistant text; an empty
// completion is an error, never "".
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, timeout time.Duration) (string, error)
}
