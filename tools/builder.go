package tools

import (
	"context"
	"encoding/json"

	"github.com/chitieu/finbot/core"
	apperrors "github.com/chitieu/finbot/errors"
)

// Handler executes a tool with full access to the invocation parameters.
type Handler func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error)

// Builder assembles a core.Tool.
type Builder struct {
	name        string
	description string
	schema      map[string]interface{}
	handler     Handler
}

// New starts building a tool with the given name.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		schema: ObjectSchema(map[string]interface{}{}),
	}
}

// Description sets the description the model reads.
func (b *Builder) Description(description string) *Builder {
	b.description = description
	return b
}

// Schema sets the input schema.
func (b *Builder) Schema(schema map[string]interface{}) *Builder {
	b.schema = schema
	return b
}

// Handler sets the tool handler.
func (b *Builder) Handler(h Handler) *Builder {
	b.handler = h
	return b
}

// HandlerFunc sets a handler that only needs the raw input. A returned value
// becomes a successful result and a returned error a failed one.
func (b *Builder) HandlerFunc(fn func(ctx context.Context, input json.RawMessage) (interface{}, error)) *Builder {
	b.handler = func(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
		data, err := fn(ctx, params.Input)
		if err != nil {
			code := apperrors.CodeOf(err)
			if code == "" {
				code = apperrors.ErrExecution.Code
			}
			return core.ToolFailure(code, err.Error()), nil
		}
		return core.ToolSuccess(data), nil
	}
	return b
}

// Build returns the finished tool.
func (b *Builder) Build() core.Tool {
	return &builtTool{
		name:        b.name,
		description: b.description,
		schema:      b.schema,
		handler:     b.handler,
	}
}

type builtTool struct {
	name        string
	description string
	schema      map[string]interface{}
	handler     Handler
}

func (t *builtTool) Name() string                   { return t.name }
func (t *builtTool) Description() string            { return t.description }
func (t *builtTool) Schema() map[string]interface{} { return t.schema }

func (t *builtTool) Execute(ctx context.Context, params *core.ToolParams) (*core.ToolResult, error) {
	if t.handler == nil {
		return core.ToolFailure(apperrors.ErrExecution.Code, "tool has no handler"), nil
	}
	return t.handler(ctx, params)
}
