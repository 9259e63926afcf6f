package workflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/toolbridge/toolbridge/internal/fileio"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/model"
	"github.com/toolbridge/toolbridge/internal/tool"
)

// modelSpec is one entry of a consensus models list: a model name with
// an optional stance suffix ("o3:for", "gemini-2.5-pro:against").
type modelSpec struct {
	Name   string
	Stance string
}

// parseModelSpecs reads the request's models list. Blank entries are
// dropped; the stance (if any) rides in the model:option suffix.
func parseModelSpecs(raw any) []modelSpec {
	var entries []string
	switch v := raw.(type) {
	case []string:
		entries = v
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				entries = append(entries, s)
			}
		}
	}

	var specs []modelSpec
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, option := model.ParseModelOption(entry)
		specs = append(specs, modelSpec{Name: name, Stance: option})
	}
	return specs
}

// callConsensus runs the terminal multi-model pass: every listed model
// is consulted independently with its stance, individual failures are
// recorded rather than fatal, and the collected verdicts are returned
// for synthesis by the caller. All models failing is an error.
func (e *Engine) callConsensus(ctx context.Context, envelope Envelope, d *tool.Descriptor, sa StepArgs, st *state, cf *ConsolidatedFindings) (string, bool) {
	specs := parseModelSpecs(sa.Raw["models"])
	if len(specs) == 0 {
		envelope["status"] = "error"
		envelope["content"] = fmt.Sprintf("%s requires a non-empty models list", d.Name)
		return "", false
	}
	if e.resolver == nil {
		envelope["status"] = "error"
		envelope["content"] = "consensus requested but no model resolver is configured"
		return "", false
	}

	sharedContext := fmt.Sprintf("Initial request: %s\n\n%s", st.initialRequest, cf.WorkSummary(d.Name, len(st.history)))
	if files := sortedKeys(cf.RelevantFiles); len(files) > 0 {
		sharedContext += "\n\n=== ESSENTIAL FILES ===\n" + fileio.ReadFiles(files, fileio.ReadOptions{})
	}
	systemPrompt := e.prompts.Get(d.SystemPromptID)

	responses := make([]map[string]any, 0, len(specs))
	var verdicts []string
	succeeded := 0

	for _, spec := range specs {
		res, err := e.resolver.Resolve(spec.Name, d.Name, d.Category)
		if err != nil {
			log.Printf("[Workflow] consensus: cannot resolve %s: %v", spec.Name, err)
			responses = append(responses, map[string]any{
				"model": spec.Name, "stance": spec.Stance,
				"status": "error", "error": err.Error(),
			})
			continue
		}

		req := llm.GenerateRequest{
			Model:       res.Name,
			Temperature: d.DefaultTemperature,
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: systemPrompt},
				{Role: llm.RoleUser, Content: sharedContext + stanceInstruction(spec.Stance)},
			},
		}
		if res.Capabilities.SupportsExtendedThinking {
			req.ReasoningEffort = "high"
		}

		resp, err := res.Provider.Generate(ctx, req)
		if err != nil {
			log.Printf("[Workflow] consensus: %s failed: %v", res.Name, err)
			responses = append(responses, map[string]any{
				"model": res.Name, "stance": spec.Stance,
				"status": "error", "error": err.Error(),
			})
			continue
		}

		succeeded++
		responses = append(responses, map[string]any{
			"model": res.Name, "stance": spec.Stance,
			"status": "success", "verdict": resp.Content,
		})
		label := res.Name
		if spec.Stance != "" {
			label += " (" + spec.Stance + ")"
		}
		verdicts = append(verdicts, fmt.Sprintf("=== %s ===\n%s", label, resp.Content))
	}

	if succeeded == 0 {
		envelope["status"] = "error"
		envelope["content"] = fmt.Sprintf("all %d consensus model(s) failed; see metadata for per-model errors", len(specs))
		envelope["metadata"] = map[string]any{"responses": responses}
		return "", false
	}

	envelope["status"] = d.Name + "_complete"
	envelope["expert_analysis"] = map[string]any{
		"status":           "consensus_complete",
		"models_consulted": len(specs),
		"models_succeeded": succeeded,
		"responses":        responses,
	}
	envelope["complete_"+d.Name] = e.completeBlock(d, st, cf)
	envelope["next_steps"] = "Synthesise the collected verdicts, weighing each stance, and present the consensus to the user."

	return strings.Join(verdicts, "\n\n"), true
}

// stanceInstruction appends the perspective a stanced model must argue.
func stanceInstruction(stance string) string {
	switch stance {
	case "for":
		return "\n\nTake the supportive stance: argue the strongest case FOR the proposal, then state your honest confidence."
	case "against":
		return "\n\nTake the critical stance: argue the strongest case AGAINST the proposal, then state your honest confidence."
	case "":
		return "\n\nGive your neutral, independent verdict on the proposal with your confidence."
	default:
		return fmt.Sprintf("\n\nEvaluate the proposal from the %q perspective and state your confidence.", stance)
	}
}
