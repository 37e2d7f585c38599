package server

import "github.com/chitieu/finbot/forecast"

// Client frame types.
const (
	TypeMessage  = "message"
	TypeReset    = "reset"
	TypeForecast = "forecast"
)

// Server frame types.
const (
	TypeSessionStarted = "session_started"
	TypeThinking       = "thinking"
	TypeProgress       = "progress"
	TypeText           = "text"
	TypeComplete       = "complete"
	TypeError          = "error"
)

// ClientMessage is a frame sent by the client.
type ClientMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`

	// Budget overrides the monthly budget for forecast requests.
	Budget int64 `json:"budget,omitempty"`
}

// ServerMessage is a frame sent to the client.
type ServerMessage struct {
	Type       string           `json:"type"`
	SessionID  string           `json:"session_id,omitempty"`
	Content    string           `json:"content,omitempty"`
	Success    *bool            `json:"success,omitempty"`
	ToolCalls  []string         `json:"tool_calls,omitempty"`
	TokenUsage *TokenUsage      `json:"token_usage,omitempty"`
	Forecast   *forecast.Result `json:"forecast,omitempty"`
}

// TokenUsage reports model token consumption for a completed turn.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}
