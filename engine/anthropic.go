package engine

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/tools"
)

// AnthropicModel is a Model backed by the Claude Messages API.
type AnthropicModel struct {
	client *anthropic.Client
}

// NewAnthropicModel creates a model client. An empty key falls back to the
// ANTHROPIC_API_KEY environment variable read by the SDK.
func NewAnthropicModel(apiKey string, opts ...option.RequestOption) *AnthropicModel {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicModel{client: &client}
}

// Generate sends one Messages request and splits the reply into text and
// tool calls.
func (m *AnthropicModel) Generate(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toAPIMessages(req.Messages),
		Tools:     toAPITools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	resp := &ModelResponse{
		Usage: core.TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		case anthropic.ToolUseBlock:
			resp.ToolCalls = append(resp.ToolCalls, core.ToolCall{
				ID:    b.ID,
				Name:  b.Name,
				Input: b.Input,
			})
		}
	}
	resp.Text = text.String()
	return resp, nil
}

func toAPIMessages(messages []core.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch {
		case m.Role == core.RoleUser && len(m.ToolResults) > 0:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolResults))
			for _, r := range m.ToolResults {
				blocks = append(blocks, anthropic.NewToolResultBlock(r.ToolUseID, r.Content, r.IsError))
			}
			out = append(out, anthropic.NewUserMessage(blocks...))

		case m.Role == core.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))

		default:
			blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				input := call.Input
				if len(input) == 0 {
					input = []byte("{}")
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return out
}

// toAPITools converts tool definitions to Claude API format.
func toAPITools(defs []core.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.ToolName,
				Description: anthropic.String(def.ToolDescription),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: tools.Properties(def.InputSchema),
					Required:   tools.Required(def.InputSchema),
				},
			},
		})
	}
	return out
}
