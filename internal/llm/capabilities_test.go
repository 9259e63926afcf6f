package llm

import "testing"

func TestDetectTokenizer(t *testing.T) {
	cases := []struct {
		model string
		want  TokenizerKind
	}{
		{"gpt-4o", TokenizerO200K},
		{"gpt-4o-mini", TokenizerO200K},
		{"o3", TokenizerO200K},
		{"o4-mini", TokenizerO200K},
		{"gpt-4", TokenizerCL100K},
		{"gpt-3.5-turbo", TokenizerCL100K},
		{"gemini-2.5-flash", TokenizerProviderSpecific},
		{"grok-4", TokenizerRatio4},
		{"some-custom-model", TokenizerRatio4},
		// Provider prefixes are stripped before matching.
		{"openai/gpt-4o", TokenizerO200K},
	}
	for _, c := range cases {
		if got := DetectTokenizer(c.model); got != c.want {
			t.Errorf("DetectTokenizer(%q) = %v, want %v", c.model, got, c.want)
		}
	}
}

func TestDetectExtendedThinking(t *testing.T) {
	thinking := []string{"o3", "o4-mini", "deepseek-r1", "gemini-2.5-pro", "grok-4", "qwen-thinking-32b"}
	for _, m := range thinking {
		if !DetectExtendedThinking(m) {
			t.Errorf("expected %q to support extended thinking", m)
		}
	}
	plain := []string{"gpt-4o-mini", "gemini-2.0-flash", "llama-3.3-70b"}
	for _, m := range plain {
		if DetectExtendedThinking(m) {
			t.Errorf("expected %q to not support extended thinking", m)
		}
	}
}

func TestDefaultContextWindow(t *testing.T) {
	if w := DefaultContextWindow("gemini-2.5-pro"); w != 1_048_576 {
		t.Errorf("gemini-2.5-pro window = %d", w)
	}
	if w := DefaultContextWindow("gpt-4o"); w != 128_000 {
		t.Errorf("gpt-4o window = %d", w)
	}
	if w := DefaultContextWindow("never-heard-of-it"); w != 0 {
		t.Errorf("unknown model window = %d, want 0", w)
	}
}
