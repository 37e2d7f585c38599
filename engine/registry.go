// Package engine provides the agent execution loop.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chitieu/finbot/core"
	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/metrics"
)

// ToolRegistry manages available tools for an agent.
type ToolRegistry struct {
	mu    sync.RWMutex
	tools map[string]core.Tool
}

// NewToolRegistry creates a new tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]core.Tool),
	}
}

// Register adds a tool to the registry, replacing any tool of the same name.
func (r *ToolRegistry) Register(tool core.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// RegisterAll adds multiple tools to the registry.
func (r *ToolRegistry) RegisterAll(tools ...core.Tool) {
	for _, tool := range tools {
		r.Register(tool)
	}
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (core.Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tool names in sorted order.
func (r *ToolRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func allTools(core.Tool) bool { return true }

// Definitions returns the definitions of every registered tool, sorted by name.
func (r *ToolRegistry) Definitions() []core.ToolDefinition {
	return r.DefinitionsFiltered(allTools)
}

// DefinitionsFiltered returns definitions of the tools matching the filter.
func (r *ToolRegistry) DefinitionsFiltered(filter func(core.Tool) bool) []core.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]core.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		if filter(tool) {
			defs = append(defs, core.Definition(tool))
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ToolName < defs[j].ToolName })
	return defs
}

// FilterByNames returns a filter that matches tools by name.
func FilterByNames(names ...string) func(core.Tool) bool {
	nameSet := make(map[string]bool)
	for _, name := range names {
		nameSet[name] = true
	}
	return func(t core.Tool) bool {
		return nameSet[t.Name()]
	}
}

// Execute runs a model-requested tool call. It never fails: an unknown tool,
// a tool error or a panic all come back as a failed result the model can
// read.
func (r *ToolRegistry) Execute(ctx context.Context, call core.ToolCall, params core.ToolParams) *core.ToolResult {
	return r.ExecuteFiltered(ctx, call, params, allTools)
}

// ExecuteFiltered is Execute restricted to tools matching the filter. A
// registered tool the filter rejects is reported as unknown.
func (r *ToolRegistry) ExecuteFiltered(ctx context.Context, call core.ToolCall, params core.ToolParams, filter func(core.Tool) bool) (result *core.ToolResult) {
	log := logger.Get().With("tool", call.Name, "request_id", params.RequestID, "user", params.UserID)

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorw("tool panicked", "panic", fmt.Sprint(rec))
			result = core.ToolFailure(apperrors.ErrExecution.Code, apperrors.ErrExecution.Message)
		}
		code := "ok"
		if !result.Success {
			code = result.Code
		}
		metrics.ToolCalls.WithLabelValues(call.Name, code).Inc()
	}()

	tool, ok := r.Get(call.Name)
	if !ok || !filter(tool) {
		log.Warnw("model requested unknown tool")
		return core.ToolFailure(apperrors.ErrUnknownTool.Code, fmt.Sprintf("unknown tool %q", call.Name))
	}

	params.Input = call.Input
	res, err := tool.Execute(ctx, &params)
	if err != nil {
		log.Errorw("tool execution failed", "error", err)
		return core.ToolFailure(apperrors.ErrExecution.Code, apperrors.ErrExecution.Message)
	}
	if res == nil {
		return core.ToolFailure(apperrors.ErrExecution.Code, "tool returned no result")
	}
	if !res.Success {
		log.Infow("tool reported failure", "code", res.Code, "error", res.Error)
	}
	return res
}
