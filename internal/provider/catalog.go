// Package provider enumerates configured providers from the
// environment, maps model names to providers, and exposes model
// capability descriptors.
package provider

import (
	"strings"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// builtinModels is the capability table for each native provider.
// models.yaml (MODELS_CONFIG_PATH) can override or extend any entry.
var builtinModels = map[string][]llm.Capabilities{
	"gemini": {
		{Model: "gemini-2.5-pro", ContextWindow: 1_048_576, MaxOutputTokens: 65_536,
			SupportsImages: true, SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerProviderSpecific},
		{Model: "gemini-2.5-flash", ContextWindow: 1_048_576, MaxOutputTokens: 65_536,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerProviderSpecific},
		{Model: "gemini-2.0-flash", ContextWindow: 1_048_576, MaxOutputTokens: 8_192,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerProviderSpecific},
	},
	"openai": {
		{Model: "o3", ContextWindow: 200_000, MaxOutputTokens: 100_000,
			SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "o4-mini", ContextWindow: 200_000, MaxOutputTokens: 100_000,
			SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "gpt-4.1", ContextWindow: 1_000_000, MaxOutputTokens: 32_768,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "gpt-4o", ContextWindow: 128_000, MaxOutputTokens: 16_384,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "gpt-5", ContextWindow: 400_000, MaxOutputTokens: 128_000,
			SupportsImages: true, SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
	},
	"xai": {
		{Model: "grok-4", ContextWindow: 256_000, MaxOutputTokens: 65_536,
			SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerRatio4},
		{Model: "grok-3", ContextWindow: 131_072, MaxOutputTokens: 32_768,
			SupportsFunctionCalling: true, Tokenizer: llm.TokenizerRatio4},
		{Model: "grok-3-fast", ContextWindow: 131_072, MaxOutputTokens: 32_768,
			SupportsFunctionCalling: true, Tokenizer: llm.TokenizerRatio4},
	},
	// DIAL fronts a fixed set of deployments under its own ids.
	"dial": {
		{Model: "o3-2025-04-16", ContextWindow: 200_000, MaxOutputTokens: 100_000,
			SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "gpt-4o-2024-08-06", ContextWindow: 128_000, MaxOutputTokens: 16_384,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "gemini-2.5-pro-preview-05-06", ContextWindow: 1_048_576, MaxOutputTokens: 65_536,
			SupportsImages: true, SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerRatio4},
	},
	// OpenRouter aliases for frequently requested models; any other
	// "vendor/model" id is accepted and synthesised on demand.
	"openrouter": {
		{Model: "openai/gpt-4o", ContextWindow: 128_000, MaxOutputTokens: 16_384,
			SupportsImages: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerO200K},
		{Model: "anthropic/claude-sonnet-4", ContextWindow: 200_000, MaxOutputTokens: 64_000,
			SupportsImages: true, SupportsExtendedThinking: true, SupportsFunctionCalling: true,
			Tokenizer: llm.TokenizerRatio4},
		{Model: "deepseek/deepseek-r1", ContextWindow: 64_000, MaxOutputTokens: 16_384,
			SupportsExtendedThinking: true, Tokenizer: llm.TokenizerRatio4},
	},
}

// modelAliases maps short names users actually type to canonical ids.
var modelAliases = map[string]string{
	"pro":    "gemini-2.5-pro",
	"flash":  "gemini-2.5-flash",
	"mini":   "o4-mini",
	"grok":   "grok-4",
	"sonnet": "anthropic/claude-sonnet-4",
}

// Preference order for auto resolution, per tool category. The first
// configured model wins.
var categoryPreferences = map[llm.ToolCategory][]string{
	llm.ExtendedReasoning: {
		"gemini-2.5-pro", "o3", "gpt-5", "grok-4",
		"o3-2025-04-16", "anthropic/claude-sonnet-4",
	},
	llm.FastResponse: {
		"gemini-2.5-flash", "gpt-4o", "o4-mini", "grok-3-fast",
		"gpt-4o-2024-08-06", "openai/gpt-4o",
	},
}

// filterAllowed drops models absent from the provider's allow-list.
// An empty allow-list keeps everything.
func filterAllowed(models []llm.Capabilities, allowed []string) []llm.Capabilities {
	if len(allowed) == 0 {
		return models
	}
	allowSet := make(map[string]bool, len(allowed))
	for _, m := range allowed {
		allowSet[strings.ToLower(m)] = true
	}
	var kept []llm.Capabilities
	for _, m := range models {
		if allowSet[strings.ToLower(m.Model)] {
			kept = append(kept, m)
		}
	}
	return kept
}
