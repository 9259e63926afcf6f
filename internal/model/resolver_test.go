package model

import (
	"strings"
	"testing"

	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/provider"
)

func TestParseModelOption(t *testing.T) {
	cases := []struct {
		input      string
		wantName   string
		wantOption string
	}{
		{"o3", "o3", ""},
		{"gemini-2.5-pro:high", "gemini-2.5-pro", "high"},
		{"http://localhost:11434", "http://localhost:11434", ""},
		// Aggregator flavors stay part of the model id.
		{"openai/gpt-4o:free", "openai/gpt-4o:free", ""},
		{"deepseek/deepseek-r1:nitro", "deepseek/deepseek-r1:nitro", ""},
		// Unknown suffix after a slash form is a real option.
		{"openai/gpt-4o:custom", "openai/gpt-4o", "custom"},
		{" o3 : high ", "o3", "high"},
	}
	for _, c := range cases {
		name, option := ParseModelOption(c.input)
		if name != c.wantName || option != c.wantOption {
			t.Errorf("ParseModelOption(%q) = (%q, %q), want (%q, %q)",
				c.input, name, option, c.wantName, c.wantOption)
		}
	}
}

func TestParseModelOption_RoundTrip(t *testing.T) {
	for _, input := range []string{"o3", "o3:high", "openai/gpt-4o:free", "http://host:1234"} {
		name, option := ParseModelOption(input)
		rejoined := FormatModelOption(name, option)
		name2, option2 := ParseModelOption(rejoined)
		if name2 != name || option2 != option {
			t.Errorf("round trip of %q changed: (%q,%q) vs (%q,%q)", input, name, option, name2, option2)
		}
	}
}

// testResolver builds a resolver backed only by the custom provider, so
// no network credentials are needed.
func testResolver(t *testing.T) *Resolver {
	t.Helper()
	t.Setenv("CUSTOM_API_URL", "http://localhost:11434/v1")
	t.Setenv("CUSTOM_MODEL_NAME", "llama3.2")
	cfg := config.FromEnv()
	reg, err := provider.NewRegistry(cfg)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return NewResolver(reg, "auto")
}

func TestResolve_ConcreteModel(t *testing.T) {
	r := testResolver(t)
	resolved, err := r.Resolve("llama3.2", "chat", llm.FastResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Name != "llama3.2" || resolved.Provider.Name() != "custom" {
		t.Errorf("unexpected resolution: %+v", resolved)
	}
}

func TestResolve_Auto(t *testing.T) {
	r := testResolver(t)
	resolved, err := r.Resolve("auto", "chat", llm.FastResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Name != "llama3.2" {
		t.Errorf("auto should fall back to the only configured model, got %q", resolved.Name)
	}
}

func TestResolve_Option(t *testing.T) {
	r := testResolver(t)
	resolved, err := r.Resolve("llama3.2:fast", "chat", llm.FastResponse)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Option != "fast" {
		t.Errorf("expected option %q, got %q", "fast", resolved.Option)
	}
}

func TestValidate_UnknownModelListsConfigured(t *testing.T) {
	r := testResolver(t)
	err := r.Validate("gpt-nonexistent", "chat")
	if err == nil {
		t.Fatal("expected validation error for unknown model")
	}
	if !strings.Contains(err.Error(), "llama3.2") {
		t.Errorf("diagnostic should list configured models, got: %v", err)
	}
}

func TestValidate_NegativeVerdictCached(t *testing.T) {
	r := testResolver(t)
	if err := r.Validate("missing-model", "chat"); err == nil {
		t.Fatal("expected error")
	}
	// Second call must come from the cache.
	if err := r.Validate("missing-model", "chat"); err == nil {
		t.Fatal("expected cached negative verdict")
	}
	stats := r.CacheStats()
	var hits uint64
	for _, s := range stats {
		if s.Name == "model-validation" {
			hits = s.Hits
		}
	}
	if hits == 0 {
		t.Error("expected a validation cache hit")
	}
}
