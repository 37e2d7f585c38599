package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chitieu/finbot/core"
	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/metrics"
)

// Apology is the only text a user sees when a turn fails.
const Apology = "Xin lỗi, mình đang gặp sự cố khi xử lý yêu cầu của bạn. Bạn vui lòng thử lại sau nhé."

// Progress event names emitted during a turn. Tool events are "tool:<name>".
const (
	ProgressThinking   = "thinking"
	ProgressAnswering  = "answering"
	progressToolPrefix = "tool:"
)

// ModelRequest is one call to the language model.
type ModelRequest struct {
	System    string
	Messages  []core.Message
	Tools     []core.ToolDefinition
	Model     string
	MaxTokens int64
}

// ModelResponse is the model's reply: text, tool calls, or both.
type ModelResponse struct {
	Text      string
	ToolCalls []core.ToolCall
	Usage     core.TokenUsage
}

// Model is a tool-calling language model.
type Model interface {
	Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error)
}

// Config configures the engine.
type Config struct {
	// SystemPrompt overrides the built-in Vietnamese prompt.
	SystemPrompt string

	// Model is the model name passed through to the provider.
	Model string

	// MaxTokens is the maximum response tokens per model call.
	MaxTokens int64

	// Location is the user's timezone, used for "today" in the prompt.
	Location *time.Location

	// Tools limits the tools offered to the model by name. Empty offers
	// every registered tool.
	Tools []string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Input is a single user message to process.
type Input struct {
	UserMessage string
	Context     *core.Context
	History     []core.ChatTurn

	// ProgressCallback, if set, receives progress events.
	ProgressCallback func(event string)
}

// ToolCallRecord describes one tool execution within a turn.
type ToolCallRecord struct {
	Name    string `json:"name"`
	Input   string `json:"input"`
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
}

// Output is the result of one turn.
type Output struct {
	Text       string
	Success    bool
	ToolCalls  []ToolCallRecord
	TokensUsed core.TokenUsage
	Duration   time.Duration

	// Err is kept for diagnostics and never shown to the user.
	Err error
}

// Engine runs the agent loop: one model call, at most one round of tool
// dispatch, then one finalization call.
type Engine struct {
	model    Model
	registry *ToolRegistry
	enabled  func(core.Tool) bool
	cfg      Config
}

// NewEngine creates a new engine.
func NewEngine(model Model, registry *ToolRegistry, cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	enabled := allTools
	if len(cfg.Tools) > 0 {
		enabled = FilterByNames(cfg.Tools...)
	}
	return &Engine{model: model, registry: registry, enabled: enabled, cfg: cfg}
}

// Run processes one user message. It always returns an Output; failures are
// reported as the apology with Success=false.
func (e *Engine) Run(ctx context.Context, input *Input) *Output {
	start := time.Now()
	out := &Output{}
	if input.Context == nil {
		input.Context = core.NewContext("", "")
	}

	err := e.run(ctx, input, out)
	out.Duration = time.Since(start)
	metrics.AgentTurnDuration.Observe(out.Duration.Seconds())

	log := logger.Get().With("request_id", input.Context.RequestID, "user", input.Context.UserID, "session", input.Context.SessionID)
	if err != nil {
		out.Text = Apology
		out.Success = false
		out.Err = err
		metrics.AgentTurns.WithLabelValues("failure").Inc()
		log.Errorw("agent turn failed", "error", err, "duration", out.Duration)
		return out
	}

	out.Success = true
	metrics.AgentTurns.WithLabelValues("success").Inc()
	log.Infow("agent turn completed",
		"tool_calls", len(out.ToolCalls), "input_tokens", out.TokensUsed.InputTokens,
		"output_tokens", out.TokensUsed.OutputTokens, "duration", out.Duration)
	return out
}

func (e *Engine) run(ctx context.Context, input *Input, out *Output) error {
	progress := func(event string) {
		if input.ProgressCallback != nil {
			input.ProgressCallback(event)
		}
	}

	defs := e.registry.DefinitionsFiltered(e.enabled)
	system := e.cfg.SystemPrompt
	if system == "" {
		system = BuildSystemPrompt(e.cfg.Now().In(e.cfg.Location), defs)
	}

	messages := make([]core.Message, 0, len(input.History)+3)
	for _, turn := range input.History {
		messages = append(messages, turn.Message())
	}
	messages = append(messages, core.NewUserMessage(input.UserMessage))

	req := &ModelRequest{
		System:    system,
		Messages:  messages,
		Tools:     defs,
		Model:     e.cfg.Model,
		MaxTokens: e.cfg.MaxTokens,
	}

	progress(ProgressThinking)
	resp, err := e.generate(ctx, req)
	if err != nil {
		return err
	}
	out.TokensUsed = out.TokensUsed.Add(resp.Usage)

	if len(resp.ToolCalls) == 0 {
		return finalText(resp, out)
	}

	params := core.ToolParams{
		UserID:    input.Context.UserID,
		SessionID: input.Context.SessionID,
		RequestID: input.Context.RequestID,
		Utterance: input.UserMessage,
	}
	results := make([]core.ToolResultContent, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		progress(progressToolPrefix + call.Name)
		result := e.registry.ExecuteFiltered(ctx, call, params, e.enabled)

		out.ToolCalls = append(out.ToolCalls, ToolCallRecord{
			Name:    call.Name,
			Input:   string(call.Input),
			Success: result.Success,
			Code:    result.Code,
		})
		results = append(results, core.ToolResultContent{
			ToolUseID: call.ID,
			Content:   result.Observation(),
			IsError:   !result.Success,
		})
	}

	req.Messages = append(req.Messages,
		core.NewToolCallMessage(resp.Text, resp.ToolCalls),
		core.NewToolResultMessage(results),
	)

	progress(ProgressAnswering)
	final, err := e.generate(ctx, req)
	if err != nil {
		return err
	}
	out.TokensUsed = out.TokensUsed.Add(final.Usage)
	if len(final.ToolCalls) > 0 {
		logger.Get().Debugw("ignoring tool calls requested during finalization", "count", len(final.ToolCalls))
	}
	return finalText(final, out)
}

func (e *Engine) generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := e.model.Generate(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProvider, fmt.Errorf("model call failed: %w", err))
	}
	if resp == nil {
		return nil, apperrors.WithMessage(apperrors.ErrProvider, "model returned no response")
	}
	return resp, nil
}

var errEmptyAnswer = errors.New("model returned an empty answer")

func finalText(resp *ModelResponse, out *Output) error {
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return errEmptyAnswer
	}
	out.Text = text
	return nil
}
