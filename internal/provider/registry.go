package provider

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/llm/gemini"
	"github.com/toolbridge/toolbridge/internal/llm/openai"
)

// Registry holds the configured providers in priority order:
// native APIs first, then the custom endpoint, then the aggregator.
// The first provider claiming a model name serves it.
type Registry struct {
	providers []llm.Provider
	aliases   map[string]string
}

// NewRegistry enumerates providers from the environment. Returns an
// error when no provider at all is configured — the server cannot do
// anything useful without one.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	r := &Registry{aliases: modelAliases}

	base := builtinModels
	if cfg.CustomAPIURL != "" {
		// The custom endpoint's one declared model joins the tables so
		// models.yaml can override or extend it like any other provider.
		base = mergeModelTables(builtinModels, map[string][]llm.Capabilities{
			"custom": {openai.SynthesizeCapabilities(cfg.CustomModelName)},
		})
	}

	tables := base
	if cfg.ModelsConfigPath != "" {
		overrides, err := loadModelConfig(cfg.ModelsConfigPath)
		if err != nil {
			log.Printf("[Providers] models config %s: %v", cfg.ModelsConfigPath, err)
		} else {
			tables = mergeModelTables(base, overrides)
			log.Printf("[Providers] Applied model overrides from %s", cfg.ModelsConfigPath)
		}
	}

	register := func(p llm.Provider, err error) {
		if err != nil {
			log.Printf("[Providers] Skipping provider: %v", err)
			return
		}
		r.providers = append(r.providers, p)
		log.Printf("[Providers] Registered %s (%d models)", p.Name(), len(p.Models()))
	}

	if cfg.GeminiAPIKey != "" {
		register(gemini.NewClient(gemini.Options{
			APIKey:          cfg.GeminiAPIKey,
			Models:          filterAllowed(tables["gemini"], cfg.AllowedModels["gemini"]),
			HTTPTimeoutSecs: cfg.HTTPTimeoutSecs,
		}))
	}
	if cfg.OpenAIAPIKey != "" {
		register(openai.NewClient(openai.Options{
			Name:            "openai",
			APIKey:          cfg.OpenAIAPIKey,
			Models:          filterAllowed(tables["openai"], cfg.AllowedModels["openai"]),
			HTTPTimeoutSecs: cfg.HTTPTimeoutSecs,
			MaxRetries:      1,
		}))
	}
	if cfg.XAIAPIKey != "" {
		register(openai.NewClient(openai.Options{
			Name:            "xai",
			APIKey:          cfg.XAIAPIKey,
			BaseURL:         "https://api.x.ai/v1",
			Models:          filterAllowed(tables["xai"], cfg.AllowedModels["xai"]),
			HTTPTimeoutSecs: cfg.HTTPTimeoutSecs,
			MaxRetries:      1,
		}))
	}
	if cfg.DIALAPIKey != "" {
		register(openai.NewClient(openai.Options{
			Name:            "dial",
			APIKey:          cfg.DIALAPIKey,
			BaseURL:         "https://core.dialx.ai/openai/v1",
			Models:          filterAllowed(tables["dial"], cfg.AllowedModels["dial"]),
			HTTPTimeoutSecs: cfg.HTTPTimeoutSecs,
			MaxRetries:      1,
		}))
	}
	if cfg.CustomAPIURL != "" {
		register(openai.NewClient(openai.Options{
			Name:            "custom",
			APIKey:          cfg.CustomAPIKey, // empty permitted
			BaseURL:         cfg.CustomAPIURL,
			Models:          filterAllowed(tables["custom"], cfg.AllowedModels["custom"]),
			HTTPTimeoutSecs: cfg.HTTPTimeoutSecs,
			MaxRetries:      1,
		}))
	}
	if cfg.OpenRouterAPIKey != "" {
		register(openai.NewClient(openai.Options{
			Name:              "openrouter",
			APIKey:            cfg.OpenRouterAPIKey,
			BaseURL:           "https://openrouter.ai/api/v1",
			Models:            filterAllowed(tables["openrouter"], cfg.AllowedModels["openrouter"]),
			AcceptSlashModels: true,
			HTTPTimeoutSecs:   cfg.HTTPTimeoutSecs,
			MaxRetries:        1,
		}))
	}

	if len(r.providers) == 0 {
		return nil, fmt.Errorf("no providers configured: set at least one of GEMINI_API_KEY, OPENAI_API_KEY, XAI_API_KEY, DIAL_API_KEY, OPENROUTER_API_KEY, or CUSTOM_API_URL")
	}

	return r, nil
}

// Providers returns the registered providers in priority order.
func (r *Registry) Providers() []llm.Provider {
	return r.providers
}

// ResolveAlias expands a short model alias; unknown names pass through.
func (r *Registry) ResolveAlias(name string) string {
	if canonical, ok := r.aliases[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// ProviderFor finds the highest-priority provider serving model.
func (r *Registry) ProviderFor(model string) (llm.Provider, llm.Capabilities, bool) {
	model = r.ResolveAlias(model)
	for _, p := range r.providers {
		if caps, ok := p.Capabilities(model); ok {
			return p, caps, true
		}
	}
	return nil, llm.Capabilities{}, false
}

// PreferredModel picks the auto-mode fallback for a tool category:
// the first entry of the category's preference list that a configured
// provider serves, else the first model of the first provider.
func (r *Registry) PreferredModel(category llm.ToolCategory) (string, bool) {
	for _, candidate := range categoryPreferences[category] {
		if _, _, ok := r.ProviderFor(candidate); ok {
			return candidate, true
		}
	}
	for _, p := range r.providers {
		if models := p.Models(); len(models) > 0 {
			return models[0], true
		}
	}
	return "", false
}

// AllModels lists every configured model grouped by provider name,
// models sorted. The map itself carries no provider order.
func (r *Registry) AllModels() map[string][]string {
	out := make(map[string][]string, len(r.providers))
	for _, p := range r.providers {
		models := p.Models()
		sort.Strings(models)
		out[p.Name()] = models
	}
	return out
}
