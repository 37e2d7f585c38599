// Package core defines the contracts shared by the agent loop, the tool
// registry and the transport: tools, their parameters and results, and the
// messages exchanged with the language model.
package core

import (
	"context"
	"encoding/json"
)

// Tool is a named operation the agent may invoke.
type Tool interface {
	// Name is the identifier the model uses to call the tool.
	Name() string

	// Description tells the model when the tool applies.
	Description() string

	// Schema is the JSON schema of the tool input (an "object" schema).
	Schema() map[string]interface{}

	// Execute runs the tool. Implementations report domain failures through
	// ToolResult.Success=false; a returned error means the tool itself broke.
	Execute(ctx context.Context, params *ToolParams) (*ToolResult, error)
}

// ToolParams carries the owner-scoped context of one tool invocation.
type ToolParams struct {
	// UserID is the owner every ledger operation is scoped to.
	UserID string

	// SessionID identifies the conversation the call came from.
	SessionID string

	// RequestID correlates logs for a single agent turn.
	RequestID string

	// Utterance is the user message that led to the call, kept as provenance.
	Utterance string

	// Input is the raw JSON arguments supplied by the model.
	Input json.RawMessage
}

// ToolResult is the serializable outcome of a tool call.
type ToolResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ToolFailure builds a failed result.
func ToolFailure(code, message string) *ToolResult {
	return &ToolResult{Success: false, Code: code, Error: message}
}

// ToolSuccess builds a successful result.
func ToolSuccess(data interface{}) *ToolResult {
	return &ToolResult{Success: true, Data: data}
}

// Observation renders the result as the text fed back to the model.
func (r *ToolResult) Observation() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"error":"unserializable tool result"}`
	}
	return string(b)
}

// ToolDefinition is the provider-neutral description of a tool.
type ToolDefinition struct {
	ToolName        string                 `json:"name"`
	ToolDescription string                 `json:"description"`
	InputSchema     map[string]interface{} `json:"input_schema"`
}

// Definition extracts the provider-neutral definition of a tool.
func Definition(t Tool) ToolDefinition {
	return ToolDefinition{
		ToolName:        t.Name(),
		ToolDescription: t.Description(),
		InputSchema:     t.Schema(),
	}
}
