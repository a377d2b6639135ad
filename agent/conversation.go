package agent

import "github.com/vibeagent/vibe-agent/llm"

// Conversation is the ordered message history for one task. Messages are
// only ever appended.
type Conversation struct {
	messages []llm.Message
}

// NewConversation starts a conversation seeded with a system prompt.
func NewConversation(systemPrompt string) *Conversation {
	return &Conversation{messages: []llm.Message{llm.SystemMessage(systemPrompt)}}
}

// AddUser appends a user message.
func (c *Conversation) AddUser(content string) {
	c.messages = append(c.messages, llm.UserMessage(content))
}

// AddAssistant appends an assistant message.
func (c *Conversation) AddAssistant(content string) {
	c.messages = append(c.messages, llm.AssistantMessage(content))
}

// Messages returns the history in order. The slice is shared; callers
// must not mutate it.
func (c *Conversation) Messages() []llm.Message {
	return c.messages
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}
