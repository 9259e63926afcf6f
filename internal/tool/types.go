// Package tool declares the catalogue of tools the server advertises:
// immutable descriptors, their JSON schemas, and the registry that
// filters and serves them.
package tool

import (
	"encoding/json"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// Shape distinguishes one-shot tools from client-driven workflows.
type Shape int

const (
	// Simple tools answer in one call, possibly via one provider call.
	Simple Shape = iota
	// Workflow tools consume one investigation step per call.
	Workflow
)

// WorkflowPolicy captures the per-tool decisions the workflow engine
// consults. The zero value disables the expert pass; default gating
// is RequiresExpertAnalysis alone.
type WorkflowPolicy struct {
	// RequiresExpertAnalysis disables the expert pass entirely when
	// false (planner, docgen).
	RequiresExpertAnalysis bool

	// ForceExpert always calls the expert on the terminal step,
	// ignoring the findings-based gate and the certain shortcut
	// (analyze, consensus).
	ForceExpert bool

	// HonorCertainShortcut lets confidence=certain complete the
	// workflow without an expert call.
	HonorCertainShortcut bool

	// RequireRelevantFilesOnStep1 rejects a first step that names no
	// relevant files.
	RequireRelevantFilesOnStep1 bool

	// MultiModel makes the terminal step consult every entry of the
	// request's models list instead of one expert model (consensus).
	// The models list is required non-empty on step 1 and on the
	// terminal call.
	MultiModel bool
}

// Descriptor is an immutable tool declaration. Owned by the registry;
// lifetime = process.
type Descriptor struct {
	Name               string
	Description        string
	Category           llm.ToolCategory
	RequiresModel      bool
	Shape              Shape
	DefaultTemperature float32
	SystemPromptID     string
	Version            string // bumped on schema changes; keys the schema cache

	// ExtraParams extends the shared schema field set.
	ExtraParams []SchemaParam

	// Policy is consulted only for Workflow tools.
	Policy WorkflowPolicy
}

// SchemaParam describes a single parameter for the schema builder.
type SchemaParam struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "integer", "boolean", "number", "array"
	Description string   `json:"description"`
	Required    bool     `json:"-"`
	Enum        []string `json:"enum,omitempty"`
	Items       string   `json:"-"` // item type for arrays
}

// BuildSchema generates a standard JSON Schema object from a list of
// SchemaParams, so tools avoid hand-writing JSON strings.
func BuildSchema(params ...SchemaParam) json.RawMessage {
	properties := make(map[string]any)
	var required []string

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Type == "array" {
			itemType := p.Items
			if itemType == "" {
				itemType = "string"
			}
			prop["items"] = map[string]any{"type": itemType}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	data, _ := json.Marshal(schema)
	return data
}
