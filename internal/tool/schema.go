package tool

import (
	"encoding/json"
	"time"

	"github.com/toolbridge/toolbridge/internal/cache"
)

// commonParams is the shared field set every tool advertises.
var commonParams = []SchemaParam{
	{Name: "model", Type: "string",
		Description: "Model to use, or 'auto' to let the server pick by tool category. Accepts model:option syntax."},
	{Name: "temperature", Type: "number",
		Description: "Response creativity between 0 and 1. Tool default applies when omitted."},
	{Name: "thinking_mode", Type: "string",
		Description: "Depth of reasoning for models with extended thinking.",
		Enum:        []string{"minimal", "low", "medium", "high", "max"}},
	{Name: "use_websearch", Type: "boolean",
		Description: "Allow the model to request web lookups in its answer."},
	{Name: "continuation_id", Type: "string",
		Description: "Thread continuation UUID from a prior response. Omit on the first call."},
	{Name: "files", Type: "array",
		Description: "Absolute paths of files to include as context."},
	{Name: "images", Type: "array",
		Description: "Absolute paths of images to include for vision-capable models."},
}

// workflowParams are the additional fields every workflow tool exposes.
var workflowParams = []SchemaParam{
	{Name: "step", Type: "string", Required: true,
		Description: "Description of what you did or plan to do in this investigation step."},
	{Name: "step_number", Type: "integer", Required: true,
		Description: "Current step number, starting at 1."},
	{Name: "total_steps", Type: "integer", Required: true,
		Description: "Your current estimate of the steps needed. Adjustable on later calls."},
	{Name: "next_step_required", Type: "boolean", Required: true,
		Description: "True while more investigation is needed; false on the final step."},
	{Name: "findings", Type: "string", Required: true,
		Description: "What this step uncovered. Required non-empty."},
	{Name: "files_checked", Type: "array",
		Description: "Absolute paths of every file examined so far, including dead ends."},
	{Name: "relevant_files", Type: "array",
		Description: "Absolute paths of the files directly relevant to the task."},
	{Name: "relevant_context", Type: "array",
		Description: "Symbols involved, as ClassName.method or function_name."},
	{Name: "issues_found", Type: "array",
		Description: "Issues discovered so far, each with severity and description."},
	{Name: "confidence", Type: "string",
		Description: "Confidence in the current conclusion.",
		Enum:        []string{"exploring", "low", "medium", "high", "very_high", "almost_certain", "certain"}},
	{Name: "backtrack_from_step", Type: "integer",
		Description: "Step number to discard from, when an earlier path proved wrong."},
}

const (
	schemaCacheEntries = 256
	schemaCacheTTL     = time.Hour
)

// SchemaCache memoises built tool schemas keyed by (name, version).
type SchemaCache struct {
	cache *cache.Cache[string, json.RawMessage]
}

// NewSchemaCache creates an empty schema cache.
func NewSchemaCache() *SchemaCache {
	return &SchemaCache{cache: cache.New[string, json.RawMessage]("schema", schemaCacheEntries, schemaCacheTTL)}
}

// Stats exposes the schema cache counters.
func (sc *SchemaCache) Stats() cache.Stats {
	return sc.cache.Stats()
}

// Cleanup sweeps expired schema entries.
func (sc *SchemaCache) Cleanup() int {
	return sc.cache.Cleanup()
}

// InputSchema builds (or returns the cached) JSON schema for a tool.
func (sc *SchemaCache) InputSchema(d *Descriptor) json.RawMessage {
	key := d.Name + "@" + d.Version
	return sc.cache.GetOrCompute(key, func() json.RawMessage {
		return buildInputSchema(d)
	})
}

func buildInputSchema(d *Descriptor) json.RawMessage {
	params := make([]SchemaParam, 0, len(commonParams)+len(workflowParams)+len(d.ExtraParams))
	params = append(params, commonParams...)
	if d.Shape == Workflow {
		params = append(params, workflowParams...)
	}
	params = append(params, d.ExtraParams...)
	return BuildSchema(params...)
}
