package server

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/toolbridge/toolbridge/internal/cache"
	"github.com/toolbridge/toolbridge/internal/conversation"
	"github.com/toolbridge/toolbridge/internal/fileio"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/model"
	"github.com/toolbridge/toolbridge/internal/tool"
)

// runSimple executes a one-shot tool: prepare prompt, call the
// provider once, append turns, format the envelope.
func (h *Handler) runSimple(ctx context.Context, d *tool.Descriptor, args map[string]any, resolved *model.Resolved) (map[string]any, error) {
	switch d.Name {
	case "listmodels":
		return h.runListModels()
	case "version":
		return h.runVersion()
	}

	// Conversational simple tool (chat).
	promptText, _ := args["prompt"].(string)
	if strings.TrimSpace(promptText) == "" {
		return nil, invalidRequest("%s requires a non-empty prompt", d.Name)
	}
	if resolved == nil {
		return nil, invalidRequest("%s requires a model", d.Name)
	}

	threadID, _ := args["continuation_id"].(string)
	if threadID == "" {
		threadID = h.store.Create(d.Name, args, "")
		h.store.AddTurn(threadID, conversation.Turn{
			Role:     llm.RoleUser,
			Content:  promptText,
			ToolName: d.Name,
			Files:    stringList(args["files"]),
			Images:   stringList(args["images"]),
		})
	}

	fullPrompt := promptText
	if files := stringList(args["files"]); len(files) > 0 {
		resolvedFiles, errs := fileio.ExpandPaths(files)
		for _, err := range errs {
			return nil, invalidRequest("invalid file: %v", err)
		}
		fullPrompt = fileio.ReadFiles(resolvedFiles, fileio.ReadOptions{}) + "\n\n" + fullPrompt
	}

	temperature := d.DefaultTemperature
	if t, ok := args["temperature"].(float64); ok {
		if t < 0 || t > 1 {
			return nil, invalidRequest("temperature must be within [0,1], got %v", t)
		}
		temperature = float32(t)
	}

	req := llm.GenerateRequest{
		Model:       resolved.Name,
		Temperature: temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: h.prompts.Get(d.SystemPromptID)},
			{Role: llm.RoleUser, Content: fullPrompt},
		},
	}
	if mode, _ := args["thinking_mode"].(string); mode != "" && resolved.Capabilities.SupportsExtendedThinking {
		req.ReasoningEffort = thinkingModeToEffort(mode)
	}

	resp, err := resolved.Provider.Generate(ctx, req)
	if err != nil {
		return nil, &ToolError{
			Kind:    KindProviderFailure,
			Content: fmt.Sprintf("provider %s failed: %v", resolved.Provider.Name(), err),
			Metadata: map[string]any{
				"model_name": resolved.Name,
				"provider":   resolved.Provider.Name(),
			},
		}
	}

	h.store.AddTurn(threadID, conversation.Turn{
		Role:          llm.RoleAssistant,
		Content:       resp.Content,
		ToolName:      d.Name,
		ModelName:     resolved.Name,
		ModelProvider: resolved.Provider.Name(),
	})

	return map[string]any{
		"status":          "success",
		"content":         resp.Content,
		"content_type":    "text",
		"continuation_id": threadID,
		"metadata": map[string]any{
			"model_name": resolved.Name,
			"provider":   resolved.Provider.Name(),
		},
	}, nil
}

// thinkingModeToEffort maps the advertised thinking_mode enum onto the
// provider reasoning-effort parameter.
func thinkingModeToEffort(mode string) string {
	switch mode {
	case "minimal", "low":
		return "low"
	case "high", "max":
		return "high"
	default:
		return "medium"
	}
}

func (h *Handler) runListModels() (map[string]any, error) {
	providers := make([]map[string]any, 0)
	for name, models := range h.providers.AllModels() {
		providers = append(providers, map[string]any{
			"provider": name,
			"models":   models,
		})
	}
	return map[string]any{
		"status":        "success",
		"content_type":  "json",
		"providers":     providers,
		"default_model": h.cfg.DefaultModel,
	}, nil
}

func (h *Handler) runVersion() (map[string]any, error) {
	stats := []cache.Stats{h.est.CacheStats(), h.schemas.Stats()}
	stats = append(stats, h.resolver.CacheStats()...)

	cacheReport := make([]map[string]any, 0, len(stats))
	for _, s := range stats {
		cacheReport = append(cacheReport, map[string]any{
			"name":        s.Name,
			"entries":     s.Entries,
			"hits":        s.Hits,
			"misses":      s.Misses,
			"evictions":   s.Evictions,
			"expirations": s.Expirations,
			"hit_rate":    s.HitRate(),
		})
	}

	return map[string]any{
		"status":       "success",
		"content_type": "json",
		"version":      Version,
		"go_version":   runtime.Version(),
		"uptime_secs":  int64(time.Since(h.startTime).Seconds()),
		"configuration": map[string]any{
			"default_model":  h.cfg.DefaultModel,
			"disabled_tools": h.cfg.DisabledTools,
			"log_level":      h.cfg.LogLevel,
			"providers":      len(h.providers.Providers()),
		},
		"caches":           cacheReport,
		"streaming_reader": fileio.CurrentStreamStats(),
		"active_threads":   h.store.Count(),
	}, nil
}
