package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/tools"
)

func echoTool(name string) core.Tool {
	return tools.New(name).
		Description("echo " + name).
		HandlerFunc(func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return string(input), nil
		}).
		Build()
}

func TestRegistryDefinitionsAreSorted(t *testing.T) {
	r := NewToolRegistry()
	r.RegisterAll(echoTool("zeta"), echoTool("alpha"), echoTool("mid"))

	defs := r.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "alpha", defs[0].ToolName)
	assert.Equal(t, "zeta", defs[2].ToolName)
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.List())

	filtered := r.DefinitionsFiltered(FilterByNames("mid"))
	require.Len(t, filtered, 1)
	assert.Equal(t, "mid", filtered[0].ToolName)
}

func TestRegistryExecute(t *testing.T) {
	r := NewToolRegistry()
	r.Register(echoTool("echo"))
	r.Register(tools.New("broken").Handler(func(ctx context.Context, p *core.ToolParams) (*core.ToolResult, error) {
		return nil, errors.New("database password is hunter2")
	}).Build())
	r.Register(tools.New("panics").Handler(func(ctx context.Context, p *core.ToolParams) (*core.ToolResult, error) {
		panic("boom")
	}).Build())
	r.Register(tools.New("whoami").Handler(func(ctx context.Context, p *core.ToolParams) (*core.ToolResult, error) {
		return core.ToolSuccess(p.UserID), nil
	}).Build())

	ctx := context.Background()
	params := core.ToolParams{UserID: "alice"}

	res := r.Execute(ctx, core.ToolCall{Name: "echo", Input: json.RawMessage(`{"a":1}`)}, params)
	assert.True(t, res.Success)
	assert.Equal(t, `{"a":1}`, res.Data)

	res = r.Execute(ctx, core.ToolCall{Name: "whoami"}, params)
	assert.Equal(t, "alice", res.Data)

	res = r.Execute(ctx, core.ToolCall{Name: "missing"}, params)
	assert.False(t, res.Success)
	assert.Equal(t, "UNKNOWN_TOOL", res.Code)

	res = r.Execute(ctx, core.ToolCall{Name: "broken"}, params)
	assert.False(t, res.Success)
	assert.Equal(t, "EXECUTION", res.Code)
	assert.NotContains(t, res.Error, "hunter2")

	res = r.Execute(ctx, core.ToolCall{Name: "panics"}, params)
	assert.False(t, res.Success)
	assert.Equal(t, "EXECUTION", res.Code)
}

func TestRegistryExecuteFiltered(t *testing.T) {
	r := NewToolRegistry()
	r.RegisterAll(echoTool("allowed"), echoTool("hidden"))
	only := FilterByNames("allowed")
	ctx := context.Background()

	res := r.ExecuteFiltered(ctx, core.ToolCall{Name: "allowed", Input: json.RawMessage(`{}`)}, core.ToolParams{}, only)
	assert.True(t, res.Success)

	res = r.ExecuteFiltered(ctx, core.ToolCall{Name: "hidden", Input: json.RawMessage(`{}`)}, core.ToolParams{}, only)
	assert.False(t, res.Success)
	assert.Equal(t, "UNKNOWN_TOOL", res.Code)
}

func TestToAPITools(t *testing.T) {
	defs := []core.ToolDefinition{{
		ToolName:        "add_expense",
		ToolDescription: "Record an expense",
		InputSchema: tools.ObjectSchema(map[string]interface{}{
			"amount": tools.NumberProperty("amount"),
		}, "amount"),
	}}

	apiTools := toAPITools(defs)
	require.Len(t, apiTools, 1)
	require.NotNil(t, apiTools[0].OfTool)
	assert.Equal(t, "add_expense", apiTools[0].OfTool.Name)
	assert.Equal(t, []string{"amount"}, apiTools[0].OfTool.InputSchema.Required)
}

func TestToAPIMessages(t *testing.T) {
	msgs := toAPIMessages([]core.Message{
		core.NewUserMessage("hôm nay ăn 50k"),
		core.NewToolCallMessage("", []core.ToolCall{{ID: "c1", Name: "add_expense", Input: json.RawMessage(`{"amount":50000}`)}}),
		core.NewToolResultMessage([]core.ToolResultContent{{ToolUseID: "c1", Content: `{"success":true}`}}),
		core.NewAssistantMessage("Đã ghi."),
	})

	require.Len(t, msgs, 4)
	assert.Equal(t, "user", string(msgs[0].Role))
	assert.Equal(t, "assistant", string(msgs[1].Role))
	assert.Len(t, msgs[1].Content, 1)
	assert.Equal(t, "user", string(msgs[2].Role))
	assert.Equal(t, "assistant", string(msgs[3].Role))
}
