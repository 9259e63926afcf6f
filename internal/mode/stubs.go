package mode

import (
	"context"
	"fmt"
	"strings"
)

// LegacyStubModes are the legacy tool names that get a thin
// compatibility stub forwarding into execute_mode.
var LegacyStubModes = []string{
	"debug", "codereview", "analyze", "security", "refactor", "testgen", "planner",
}

// ExecuteStub handles a call to a legacy tool name: it derives the
// complexity from the request text and forwards to ExecuteMode.
//
// The stub fabricates only the step-machine plumbing. A call whose
// substantive fields cannot be mapped (no prompt/step content at all)
// is rejected rather than silently defaulted.
func (e *Executor) ExecuteStub(ctx context.Context, modeName string, request map[string]any) (map[string]any, error) {
	if _, ok := modeToTool[modeName]; !ok {
		return nil, fmt.Errorf("unknown legacy tool %q", modeName)
	}

	prompt, _ := request["prompt"].(string)
	step, _ := request["step"].(string)
	if strings.TrimSpace(prompt) == "" && strings.TrimSpace(step) == "" {
		return nil, fmt.Errorf("legacy %s call carries neither prompt nor step content", modeName)
	}

	complexity := "simple"
	if modesDefaultingToWorkflow[modeName] {
		complexity = "workflow"
	}
	text := strings.ToLower(prompt + " " + step)
	for _, indicator := range workflowIndicators {
		if strings.Contains(text, indicator) {
			complexity = "workflow"
			break
		}
	}

	args := make(map[string]any, len(request)+4)
	for k, v := range request {
		args[k] = v
	}
	if complexity == "workflow" && step == "" {
		// Map the free-form prompt onto the step machine's first step.
		args["step"] = prompt
		if _, ok := args["findings"]; !ok {
			args["findings"] = prompt
		}
	}

	return e.ExecuteMode(ctx, modeName, complexity, args)
}
