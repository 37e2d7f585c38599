package core

import "encoding/json"

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolCall is a tool invocation requested by the model. It only lives for
// the duration of one agent turn.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResultContent is the observation returned for one ToolCall.
type ToolResultContent struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// Message is one entry of the sequence sent to the model. A user message
// carries either Content or ToolResults; an assistant message carries
// Content and optionally ToolCalls.
type Message struct {
	Role        Role                `json:"role"`
	Content     string              `json:"content,omitempty"`
	ToolCalls   []ToolCall          `json:"tool_calls,omitempty"`
	ToolResults []ToolResultContent `json:"tool_results,omitempty"`
}

// NewUserMessage creates a plain user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a plain assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolCallMessage records the assistant's tool requests.
func NewToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolResultMessage feeds tool observations back to the model.
func NewToolResultMessage(results []ToolResultContent) Message {
	return Message{Role: RoleUser, ToolResults: results}
}

// ChatTurn is one entry of the per-connection chat history.
type ChatTurn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Message converts the turn into a model message.
func (t ChatTurn) Message() Message {
	return Message{Role: t.Role, Content: t.Text}
}

// TokenUsage reports model token consumption.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// TotalTokens returns input plus output tokens.
func (u TokenUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// Add accumulates another usage report.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}
