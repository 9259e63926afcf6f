// Package model parses model[:option] syntax, resolves the "auto"
// sentinel, and validates model availability against the provider
// registry, caching verdicts.
package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/toolbridge/toolbridge/internal/cache"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/provider"
)

// AutoSentinel requests category-directed model selection.
const AutoSentinel = "auto"

// aggregatorFlavors are suffixes that belong to an aggregator model id
// rather than being a user option ("openai/gpt-4o:free" is one name).
var aggregatorFlavors = map[string]bool{
	"free": true, "beta": true, "preview": true, "extended": true, "nitro": true,
}

// ParseModelOption splits "name[:option]" input.
//
// Rules:
//   - URL-bearing strings (containing "://") are never split.
//   - "vendor/model:flavor" with a recognised aggregator flavor stays
//     whole; the flavor is part of the model id.
//   - Otherwise split at the first ":".
func ParseModelOption(input string) (name, option string) {
	input = strings.TrimSpace(input)

	if strings.Contains(input, "://") {
		return input, ""
	}

	if strings.Count(input, "/") == 1 && strings.Count(input, ":") == 1 {
		suffix := input[strings.Index(input, ":")+1:]
		if aggregatorFlavors[strings.ToLower(strings.TrimSpace(suffix))] {
			return input, ""
		}
	}

	if idx := strings.Index(input, ":"); idx >= 0 {
		return strings.TrimSpace(input[:idx]), strings.TrimSpace(input[idx+1:])
	}
	return input, ""
}

// FormatModelOption is the inverse of ParseModelOption for well-formed
// input: it re-joins a parsed pair.
func FormatModelOption(name, option string) string {
	if option == "" {
		return name
	}
	return name + ":" + option
}

// Resolved carries a per-request model binding. The provider reference
// is a shared non-owning handle into the registry.
type Resolved struct {
	Name         string
	Option       string
	Provider     llm.Provider
	Capabilities llm.Capabilities
}

type verdict struct {
	ok  bool
	msg string
}

// Resolver binds logical model names to providers.
type Resolver struct {
	registry     *provider.Registry
	defaultModel string

	autoCache       *cache.Cache[string, string]
	validationCache *cache.Cache[string, verdict]
}

const (
	resolverCacheEntries = 512
	resolverCacheTTL     = 10 * time.Minute
)

// NewResolver creates a Resolver over the given registry.
// defaultModel is the DEFAULT_MODEL setting ("auto" or a concrete id).
func NewResolver(registry *provider.Registry, defaultModel string) *Resolver {
	if defaultModel == "" {
		defaultModel = AutoSentinel
	}
	return &Resolver{
		registry:        registry,
		defaultModel:    defaultModel,
		autoCache:       cache.New[string, string]("auto-resolution", resolverCacheEntries, resolverCacheTTL),
		validationCache: cache.New[string, verdict]("model-validation", resolverCacheEntries, resolverCacheTTL),
	}
}

// Resolve maps a requested model (possibly empty or "auto") to a
// concrete provider binding for the given tool.
func (r *Resolver) Resolve(requested, toolName string, category llm.ToolCategory) (*Resolved, error) {
	if requested == "" {
		requested = r.defaultModel
	}

	name, option := ParseModelOption(requested)
	if strings.EqualFold(name, AutoSentinel) {
		auto, err := r.resolveAuto(toolName, category)
		if err != nil {
			return nil, err
		}
		name = auto
	}

	if err := r.Validate(name, toolName); err != nil {
		return nil, err
	}

	p, caps, _ := r.registry.ProviderFor(name)
	return &Resolved{
		Name:         r.registry.ResolveAlias(name),
		Option:       option,
		Provider:     p,
		Capabilities: caps,
	}, nil
}

// resolveAuto picks the category fallback, cached per (tool, category).
func (r *Resolver) resolveAuto(toolName string, category llm.ToolCategory) (string, error) {
	key := toolName + "|" + category.String()
	if m, ok := r.autoCache.Get(key); ok {
		return m, nil
	}
	m, ok := r.registry.PreferredModel(category)
	if !ok {
		return "", fmt.Errorf("auto mode: no configured provider offers a %s model", category)
	}
	r.autoCache.Put(key, m)
	return m, nil
}

// Validate checks that a model is served by a configured provider.
// Verdicts — positive and negative — are cached per (model, tool).
func (r *Resolver) Validate(modelName, toolName string) error {
	key := strings.ToLower(modelName) + "|" + toolName
	if v, ok := r.validationCache.Get(key); ok {
		if v.ok {
			return nil
		}
		return fmt.Errorf("%s", v.msg)
	}

	if _, _, ok := r.registry.ProviderFor(modelName); ok {
		r.validationCache.Put(key, verdict{ok: true})
		return nil
	}

	msg := r.unavailableMessage(modelName, toolName)
	r.validationCache.Put(key, verdict{ok: false, msg: msg})
	return fmt.Errorf("%s", msg)
}

// unavailableMessage builds the diagnostic listing configured models.
func (r *Resolver) unavailableMessage(modelName, toolName string) string {
	var available []string
	for providerName, models := range r.registry.AllModels() {
		for _, m := range models {
			available = append(available, fmt.Sprintf("%s (%s)", m, providerName))
		}
	}
	sort.Strings(available)
	return fmt.Sprintf(
		"model %q is not available for tool %q; configured models: %s",
		modelName, toolName, strings.Join(available, ", "))
}

// CacheStats exposes the resolver cache counters for the stats report.
func (r *Resolver) CacheStats() []cache.Stats {
	return []cache.Stats{r.autoCache.Stats(), r.validationCache.Stats()}
}

// CleanupCaches sweeps expired resolver cache entries.
func (r *Resolver) CleanupCaches() int {
	return r.autoCache.Cleanup() + r.validationCache.Cleanup()
}
