package provider

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// modelConfigFile mirrors the structure of models.yaml:
//
//	models:
//	  - model: my-local-model
//	    provider: custom
//	    context_window: 128000
//	    max_output_tokens: 8192
//	    supports_images: false
//	    supports_extended_thinking: false
type modelConfigFile struct {
	Models []modelConfigEntry `yaml:"models"`
}

type modelConfigEntry struct {
	Model                    string `yaml:"model"`
	Provider                 string `yaml:"provider"`
	ContextWindow            int    `yaml:"context_window"`
	MaxOutputTokens          int    `yaml:"max_output_tokens"`
	SupportsImages           bool   `yaml:"supports_images"`
	SupportsExtendedThinking bool   `yaml:"supports_extended_thinking"`
	SupportsFunctionCalling  bool   `yaml:"supports_function_calling"`
}

// loadModelConfig parses a models.yaml file into per-provider
// capability lists. Entries with no provider or model name are
// rejected; the tokenizer is detected from the model name.
func loadModelConfig(path string) (map[string][]llm.Capabilities, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read models config: %w", err)
	}

	var file modelConfigFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse models config: %w", err)
	}

	out := make(map[string][]llm.Capabilities)
	for i, entry := range file.Models {
		if entry.Model == "" || entry.Provider == "" {
			return nil, fmt.Errorf("models config entry %d: model and provider are required", i)
		}
		caps := llm.Capabilities{
			Model:                    entry.Model,
			ContextWindow:            entry.ContextWindow,
			MaxOutputTokens:          entry.MaxOutputTokens,
			SupportsImages:           entry.SupportsImages,
			SupportsExtendedThinking: entry.SupportsExtendedThinking,
			SupportsFunctionCalling:  entry.SupportsFunctionCalling,
			Tokenizer:                llm.DetectTokenizer(entry.Model),
		}
		if caps.ContextWindow <= 0 {
			caps.ContextWindow = llm.DefaultContextWindow(entry.Model)
		}
		provider := strings.ToLower(entry.Provider)
		out[provider] = append(out[provider], caps)
	}
	return out, nil
}

// mergeModelTables overlays config entries onto the builtin tables:
// a config entry for an existing model replaces it; a new model is
// appended to its provider's list.
func mergeModelTables(builtin, overrides map[string][]llm.Capabilities) map[string][]llm.Capabilities {
	merged := make(map[string][]llm.Capabilities, len(builtin))
	for provider, models := range builtin {
		merged[provider] = append([]llm.Capabilities(nil), models...)
	}

	for provider, models := range overrides {
		for _, m := range models {
			replaced := false
			for i, existing := range merged[provider] {
				if strings.EqualFold(existing.Model, m.Model) {
					merged[provider][i] = m
					replaced = true
					break
				}
			}
			if !replaced {
				merged[provider] = append(merged[provider], m)
			}
		}
	}
	return merged
}
