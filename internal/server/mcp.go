package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/toolbridge/toolbridge/internal/mode"
	"github.com/toolbridge/toolbridge/internal/tool"
)

// NewMCPServer builds the MCP server advertising this handler's tools.
//
// Two surfaces exist so a client can choose its own verbosity budget:
// the full catalogue (every tool with its complete schema), or the
// token-optimized surface (select_mode / execute_mode plus thin legacy
// stubs), selected by MCP_TOKEN_OPTIMIZED.
func (h *Handler) NewMCPServer() *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer("toolbridge", Version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	executor := mode.NewExecutor(h, h.tools, h.schemas)

	if h.cfg.TokenOptimized {
		h.addOptimizedSurface(s, executor)
	} else {
		h.addFullSurface(s)
	}
	h.addMetaTools(s, executor)
	return s
}

// ServeStdio runs the MCP server over stdio until the client hangs up.
func (h *Handler) ServeStdio() error {
	return mcpserver.ServeStdio(h.NewMCPServer())
}

// addFullSurface advertises every catalogue tool with its full schema.
func (h *Handler) addFullSurface(s *mcpserver.MCPServer) {
	for _, d := range h.tools.List() {
		descriptor := d
		t := mcp.NewToolWithRawSchema(d.Name, d.Description, h.schemas.InputSchema(d))
		s.AddTool(t, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return h.callToolResult(ctx, descriptor.Name, request.GetArguments())
		})
	}
}

// addOptimizedSurface advertises version, listmodels and chat plus one thin stub per
// legacy tool name; the stub fabricates only step-machine plumbing and
// forwards through execute_mode.
func (h *Handler) addOptimizedSurface(s *mcpserver.MCPServer, executor *mode.Executor) {
	for _, name := range []string{"version", "listmodels", "chat"} {
		if d, ok := h.tools.Get(name); ok {
			descriptor := d
			t := mcp.NewToolWithRawSchema(d.Name, d.Description, h.schemas.InputSchema(d))
			s.AddTool(t, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return h.callToolResult(ctx, descriptor.Name, request.GetArguments())
			})
		}
	}

	stubSchema := tool.BuildSchema(
		tool.SchemaParam{Name: "prompt", Type: "string", Required: true,
			Description: "What you need this tool to do."},
		tool.SchemaParam{Name: "continuation_id", Type: "string",
			Description: "Thread continuation UUID from a prior response."},
		tool.SchemaParam{Name: "model", Type: "string",
			Description: "Model to use, or 'auto'."},
	)
	for _, name := range mode.LegacyStubModes {
		stubName := name
		t := mcp.NewToolWithRawSchema(stubName,
			fmt.Sprintf("Compatibility stub for %s; forwards through execute_mode.", stubName),
			stubSchema)
		s.AddTool(t, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			env, err := executor.ExecuteStub(ctx, stubName, request.GetArguments())
			var te *ToolError
			if err != nil && !errors.As(err, &te) {
				err = invalidRequest("%v", err)
			}
			return h.renderResult(stubName, env, err)
		})
	}
}

// addMetaTools registers select_mode and execute_mode on both surfaces.
func (h *Handler) addMetaTools(s *mcpserver.MCPServer, executor *mode.Executor) {
	selectSchema := tool.BuildSchema(
		tool.SchemaParam{Name: "task_description", Type: "string", Required: true,
			Description: "Plain description of what you are trying to do."},
		tool.SchemaParam{Name: "context_size", Type: "string",
			Description: "Optional hint about how much context the task needs.",
			Enum:        []string{"minimal", "standard", "comprehensive"}},
		tool.SchemaParam{Name: "confidence_level", Type: "string",
			Description: "Optional hint about how well you already understand the task.",
			Enum:        []string{"exploring", "medium", "high"}},
	)
	s.AddTool(mcp.NewToolWithRawSchema("select_mode",
		"Pick the right tool mode for a task and return the minimal schema needed to execute it.",
		selectSchema),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			task, _ := args["task_description"].(string)
			if task == "" {
				return h.renderResult("select_mode", nil, invalidRequest("task_description is required"))
			}
			ctxSize, _ := args["context_size"].(string)
			confidence, _ := args["confidence_level"].(string)
			sel := mode.SelectMode(task, ctxSize, confidence)
			return h.renderResult("select_mode", executor.Describe(sel), nil)
		})

	executeSchema := tool.BuildSchema(
		tool.SchemaParam{Name: "mode", Type: "string", Required: true,
			Description: "Mode returned by select_mode."},
		tool.SchemaParam{Name: "complexity", Type: "string", Required: true,
			Description: "Complexity returned by select_mode.",
			Enum:        []string{"simple", "workflow"}},
		tool.SchemaParam{Name: "request", Type: "string", Required: true,
			Description: "JSON object matching the schema select_mode returned."},
	)
	s.AddTool(mcp.NewToolWithRawSchema("execute_mode",
		"Execute a mode previously chosen via select_mode.",
		executeSchema),
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			modeName, _ := args["mode"].(string)
			complexity, _ := args["complexity"].(string)

			payload := map[string]any{}
			switch raw := args["request"].(type) {
			case string:
				if raw != "" {
					if err := json.Unmarshal([]byte(raw), &payload); err != nil {
						return h.renderResult("execute_mode", nil, invalidRequest("request is not valid JSON: %v", err))
					}
				}
			case map[string]any:
				payload = raw
			}

			env, err := executor.ExecuteMode(ctx, modeName, complexity, payload)
			return h.renderResult("execute_mode", env, err)
		})
}

// callToolResult runs a catalogue tool and serialises the outcome.
func (h *Handler) callToolResult(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	env, err := h.RunTool(ctx, name, args)
	return h.renderResult(name, env, err)
}

// renderResult converts an envelope or error into the single JSON text
// payload every response uses, so clients parse one shape.
func (h *Handler) renderResult(name string, env map[string]any, err error) (*mcp.CallToolResult, error) {
	h.LogCall(name, err)
	if err != nil {
		env = classify(err).Envelope()
	}
	data, marshalErr := json.MarshalIndent(env, "", "  ")
	if marshalErr != nil {
		return nil, fmt.Errorf("serialise %s response: %w", name, marshalErr)
	}
	return mcp.NewToolResultText(string(data)), nil
}
