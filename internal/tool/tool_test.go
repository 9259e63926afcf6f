package tool

import (
	"encoding/json"
	"testing"
)

func TestBuildSchema_RequiredAndEnum(t *testing.T) {
	schema := BuildSchema(
		SchemaParam{Name: "prompt", Type: "string", Description: "q", Required: true},
		SchemaParam{Name: "mode", Type: "string", Description: "m", Enum: []string{"a", "b"}},
		SchemaParam{Name: "files", Type: "array", Description: "f"},
	)

	var parsed map[string]any
	if err := json.Unmarshal(schema, &parsed); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	props := parsed["properties"].(map[string]any)
	if _, ok := props["prompt"]; !ok {
		t.Error("missing prompt property")
	}
	mode := props["mode"].(map[string]any)
	if len(mode["enum"].([]any)) != 2 {
		t.Error("enum not emitted")
	}
	files := props["files"].(map[string]any)
	if files["items"] == nil {
		t.Error("array property needs items")
	}
	required := parsed["required"].([]any)
	if len(required) != 1 || required[0] != "prompt" {
		t.Errorf("unexpected required list: %v", required)
	}
}

func TestRegistry_DisabledToolsFiltered(t *testing.T) {
	r := NewRegistry()
	r.RegisterAll(Catalogue(), []string{"debug", "version"})

	if _, ok := r.Get("debug"); ok {
		t.Error("debug should be disabled")
	}
	// Essential tools cannot be disabled.
	if _, ok := r.Get("version"); !ok {
		t.Error("version is essential and must survive DISABLED_TOOLS")
	}
	if _, ok := r.Get("chat"); !ok {
		t.Error("chat should remain registered")
	}
}

func TestCatalogue_WorkflowToolsExposeStepFields(t *testing.T) {
	sc := NewSchemaCache()
	r := NewRegistry()
	r.RegisterAll(Catalogue(), nil)

	d, _ := r.Get("debug")
	var parsed map[string]any
	if err := json.Unmarshal(sc.InputSchema(d), &parsed); err != nil {
		t.Fatal(err)
	}
	props := parsed["properties"].(map[string]any)
	for _, field := range []string{"step", "step_number", "total_steps", "next_step_required", "findings", "confidence", "backtrack_from_step"} {
		if _, ok := props[field]; !ok {
			t.Errorf("workflow schema missing %s", field)
		}
	}
}

func TestSchemaCache_Memoises(t *testing.T) {
	sc := NewSchemaCache()
	d := Catalogue()[0]
	first := sc.InputSchema(d)
	second := sc.InputSchema(d)
	if string(first) != string(second) {
		t.Error("schema changed between builds")
	}
	if sc.Stats().Hits == 0 {
		t.Error("expected a schema cache hit")
	}
}

func TestCatalogue_PolicyTable(t *testing.T) {
	byName := make(map[string]*Descriptor)
	for _, d := range Catalogue() {
		byName[d.Name] = d
	}

	if !byName["debug"].Policy.HonorCertainShortcut {
		t.Error("debug must honour the certain shortcut")
	}
	if byName["analyze"].Policy.HonorCertainShortcut {
		t.Error("analyze must not honour the certain shortcut")
	}
	if !byName["analyze"].Policy.ForceExpert {
		t.Error("analyze must force expert analysis")
	}
	if byName["planner"].Policy.RequiresExpertAnalysis {
		t.Error("planner never calls an expert")
	}
	if byName["docgen"].Policy.RequiresExpertAnalysis {
		t.Error("docgen never calls an expert")
	}
	if byName["planner"].RequiresModel {
		t.Error("planner must not require a model")
	}
}
