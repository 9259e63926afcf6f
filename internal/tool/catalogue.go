package tool

import "github.com/toolbridge/toolbridge/internal/llm"

// Default temperatures by category.
const (
	TemperatureBalanced   = 0.5 // conversational tools
	TemperatureAnalytical = 0.2 // investigation and review tools
)

// Catalogue is the fixed set of tools this server ships.
// Versions key the schema cache; bump on any schema change.
func Catalogue() []*Descriptor {
	return []*Descriptor{
		{
			Name:               "chat",
			Description:        "General conversation and collaborative thinking with a single model call.",
			Category:           llm.FastResponse,
			RequiresModel:      true,
			Shape:              Simple,
			DefaultTemperature: TemperatureBalanced,
			SystemPromptID:     "chat",
			Version:            "1.0",
			ExtraParams: []SchemaParam{
				{Name: "prompt", Type: "string", Required: true,
					Description: "Your question or idea for the model."},
			},
		},
		{
			Name:          "listmodels",
			Description:   "List configured providers and the models each one serves.",
			Category:      llm.FastResponse,
			RequiresModel: false,
			Shape:         Simple,
			Version:       "1.0",
		},
		{
			Name:          "version",
			Description:   "Report server version, configuration, and cache statistics.",
			Category:      llm.FastResponse,
			RequiresModel: false,
			Shape:         Simple,
			Version:       "1.0",
		},
		{
			Name:               "debug",
			Description:        "Step-by-step root cause analysis. Each call is one investigation step; the final step can escalate to an expert model.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "debug",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis: true,
				HonorCertainShortcut:   true,
			},
			ExtraParams: []SchemaParam{
				{Name: "hypothesis", Type: "string",
					Description: "Current best explanation of the root cause."},
			},
		},
		{
			Name:               "analyze",
			Description:        "Holistic architecture and code analysis workflow. Always concludes with an expert validation pass.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "analyze",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis:      true,
				ForceExpert:                 true,
				RequireRelevantFilesOnStep1: true,
			},
			ExtraParams: []SchemaParam{
				{Name: "analysis_type", Type: "string",
					Description: "Focus of the analysis.",
					Enum:        []string{"architecture", "performance", "security", "quality", "general"}},
			},
		},
		{
			Name:               "codereview",
			Description:        "Systematic code review workflow covering correctness, security, and maintainability.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "codereview",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis:      true,
				HonorCertainShortcut:        true,
				RequireRelevantFilesOnStep1: true,
			},
			ExtraParams: []SchemaParam{
				{Name: "review_type", Type: "string",
					Description: "Review emphasis.",
					Enum:        []string{"full", "security", "performance", "quick"}},
			},
		},
		{
			Name:               "thinkdeep",
			Description:        "Multi-step extension of prior reasoning: challenge assumptions, surface alternatives, find edge cases.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "thinkdeep",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis: true,
			},
			ExtraParams: []SchemaParam{
				{Name: "problem_context", Type: "string",
					Description: "The reasoning being extended or challenged."},
			},
		},
		{
			Name:               "testgen",
			Description:        "Test generation workflow: investigate code paths, then produce a covering test plan.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "testgen",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis:      true,
				HonorCertainShortcut:        true,
				RequireRelevantFilesOnStep1: true,
			},
		},
		{
			Name:               "planner",
			Description:        "Incremental planning workflow. Produces ordered steps; never calls an expert model.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      false,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "planner",
			Version:            "1.0",
			Policy:             WorkflowPolicy{RequiresExpertAnalysis: false},
		},
		{
			Name:               "docgen",
			Description:        "Documentation generation workflow over the investigated code. Local-only; no expert pass.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      false,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "docgen",
			Version:            "1.0",
			Policy:             WorkflowPolicy{RequiresExpertAnalysis: false},
		},
		{
			Name:               "secaudit",
			Description:        "Security audit workflow: OWASP-aligned investigation with expert validation.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "secaudit",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis:      true,
				HonorCertainShortcut:        true,
				RequireRelevantFilesOnStep1: true,
			},
			ExtraParams: []SchemaParam{
				{Name: "audit_focus", Type: "string",
					Description: "Audit emphasis.",
					Enum:        []string{"owasp", "compliance", "infrastructure", "dependencies", "comprehensive"}},
			},
		},
		{
			Name:               "refactor",
			Description:        "Refactoring analysis workflow: find code smells and safe decomposition opportunities.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "refactor",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis:      true,
				HonorCertainShortcut:        true,
				RequireRelevantFilesOnStep1: true,
			},
			ExtraParams: []SchemaParam{
				{Name: "refactor_type", Type: "string",
					Description: "Refactoring emphasis.",
					Enum:        []string{"codesmells", "decompose", "modernize", "organization"}},
			},
		},
		{
			Name:               "consensus",
			Description:        "Gather verdicts from multiple models on a proposal and synthesise them. The models array is required.",
			Category:           llm.ExtendedReasoning,
			RequiresModel:      true,
			Shape:              Workflow,
			DefaultTemperature: TemperatureAnalytical,
			SystemPromptID:     "consensus",
			Version:            "1.0",
			Policy: WorkflowPolicy{
				RequiresExpertAnalysis: true,
				ForceExpert:            true,
				MultiModel:             true,
			},
			ExtraParams: []SchemaParam{
				{Name: "models", Type: "array", Required: true,
					Description: "Models to consult, each optionally with a stance suffix (e.g. o3:for, gemini-2.5-pro:against)."},
			},
		},
	}
}
