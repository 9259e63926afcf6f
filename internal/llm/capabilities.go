package llm

import "strings"

// DetectTokenizer selects the tokenizer for a model by name.
//
// Detection strategy (priority order):
//  1. o200k_base families — GPT-4o, GPT-4.1, GPT-5 and the o3/o4 reasoning series
//  2. cl100k_base — everything else in the OpenAI family
//  3. provider-specific — Gemini models
//  4. ratio heuristic — all other models
func DetectTokenizer(modelName string) TokenizerKind {
	base := baseModelName(modelName)

	o200kPrefixes := []string{"gpt-4o", "gpt-4.1", "gpt-5", "o3", "o4", "chatgpt-4o"}
	for _, p := range o200kPrefixes {
		if strings.HasPrefix(base, p) {
			return TokenizerO200K
		}
	}

	cl100kPrefixes := []string{"gpt-4", "gpt-3.5", "text-embedding"}
	for _, p := range cl100kPrefixes {
		if strings.HasPrefix(base, p) {
			return TokenizerCL100K
		}
	}

	if strings.HasPrefix(base, "gemini") {
		return TokenizerProviderSpecific
	}

	return TokenizerRatio4
}

// DetectExtendedThinking determines if a model supports a native
// extended-thinking / reasoning pass based on model name patterns.
//
// Detection strategy (priority order):
//  1. Known model list — exact prefix matches for confirmed models
//  2. Keyword matching — model name contains reasoning-related keywords
//  3. Default — assume no extended thinking
func DetectExtendedThinking(modelName string) bool {
	base := baseModelName(modelName)

	knownThinkingModels := []string{
		"o1", "o3", "o4-mini", "o4",
		"deepseek-reasoner", "deepseek-r1",
		"gemini-2.5-pro", "gemini-2.0-flash-thinking",
		"grok-3", "grok-4",
	}
	for _, known := range knownThinkingModels {
		if strings.HasPrefix(base, known) {
			return true
		}
	}

	thinkingKeywords := []string{"-r1", "reasoner", "thinking"}
	for _, kw := range thinkingKeywords {
		if strings.Contains(base, kw) {
			return true
		}
	}

	return false
}

// DefaultContextWindow returns a context window for a model whose
// provider supplied no explicit descriptor. Returns 0 for unknown
// models so the caller can apply its own conservative default.
func DefaultContextWindow(modelName string) int {
	base := baseModelName(modelName)

	windows := []struct {
		prefix string
		tokens int
	}{
		{"gemini-2.5-pro", 1_048_576},
		{"gemini-2.5-flash", 1_048_576},
		{"gemini", 1_000_000},
		{"gpt-4.1", 1_000_000},
		{"gpt-5", 400_000},
		{"gpt-4o", 128_000},
		{"o3", 200_000},
		{"o4", 200_000},
		{"grok-4", 256_000},
		{"grok", 131_072},
		{"deepseek", 64_000},
		{"llama", 128_000},
	}
	for _, w := range windows {
		if strings.HasPrefix(base, w.prefix) {
			return w.tokens
		}
	}
	return 0
}

// baseModelName lowercases and strips provider prefixes
// (e.g. "openai/gpt-4o" -> "gpt-4o").
func baseModelName(modelName string) string {
	lower := strings.ToLower(modelName)
	parts := strings.Split(lower, "/")
	return parts[len(parts)-1]
}
