package mode

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/toolbridge/toolbridge/internal/tool"
)

// ToolRunner executes a catalogue tool. Implemented by the request
// handler; the indirection keeps this package transport-free.
type ToolRunner interface {
	RunTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// Executor is the execute_mode half of the optimizer plus the legacy
// compatibility stubs.
type Executor struct {
	runner  ToolRunner
	schemas *tool.SchemaCache
	tools   *tool.Registry
}

// NewExecutor creates an Executor dispatching into the given runner.
func NewExecutor(runner ToolRunner, tools *tool.Registry, schemas *tool.SchemaCache) *Executor {
	return &Executor{runner: runner, schemas: schemas, tools: tools}
}

// Describe completes a Selection with the schema, example, and next
// step the client needs to execute the selected mode.
func (e *Executor) Describe(sel Selection) map[string]any {
	toolName := modeToTool[sel.SelectedMode]
	var schema json.RawMessage
	if d, ok := e.tools.Get(toolName); ok {
		schema = e.schemas.InputSchema(d)
	}

	return map[string]any{
		"selected_mode":   sel.SelectedMode,
		"complexity":      sel.Complexity,
		"confidence":      sel.Confidence,
		"required_schema": schema,
		"working_example": MinimalRequest(sel.SelectedMode, sel.Complexity),
		"next_step": map[string]any{
			"instruction": fmt.Sprintf("Call execute_mode with mode=%q and complexity=%q", sel.SelectedMode, sel.Complexity),
		},
	}
}

// ExecuteMode dispatches a request to the concrete tool behind a mode.
// The request must match the shape advertised by select_mode; missing
// mandatory workflow fields are filled from the minimal-request
// builder only where a safe default exists.
func (e *Executor) ExecuteMode(ctx context.Context, modeName, complexity string, request map[string]any) (map[string]any, error) {
	toolName, ok := modeToTool[modeName]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", modeName)
	}
	if complexity != "simple" && complexity != "workflow" {
		return nil, fmt.Errorf("complexity must be \"simple\" or \"workflow\", got %q", complexity)
	}

	args := make(map[string]any, len(request)+8)
	if complexity == "workflow" {
		// Safe defaults for the step-machine plumbing only; substantive
		// fields (step, findings, models, ...) must come from the caller.
		for k, v := range MinimalRequest(modeName, complexity) {
			args[k] = v
		}
	}
	for k, v := range request {
		args[k] = v
	}

	return e.runner.RunTool(ctx, toolName, args)
}

// MinimalRequest builds the smallest request shape valid for a
// (mode, complexity) pair. It is shared by execute_mode, the working
// examples in select_mode responses, and the legacy stubs.
func MinimalRequest(modeName, complexity string) map[string]any {
	if complexity != "workflow" {
		switch modeName {
		case "chat":
			return map[string]any{"prompt": "<your question>"}
		case "consensus":
			return map[string]any{
				"step":               "<proposal to evaluate>",
				"step_number":        1,
				"total_steps":        1,
				"next_step_required": false,
				"findings":           "<your own assessment>",
				"models":             []string{"<model-id>"},
			}
		default:
			return map[string]any{"prompt": "<task description>"}
		}
	}

	return map[string]any{
		"step_number":        1,
		"total_steps":        1,
		"next_step_required": false,
		"confidence":         "low",
	}
}
