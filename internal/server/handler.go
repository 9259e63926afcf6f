package server

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/toolbridge/toolbridge/internal/config"
	"github.com/toolbridge/toolbridge/internal/conversation"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/model"
	"github.com/toolbridge/toolbridge/internal/prompt"
	"github.com/toolbridge/toolbridge/internal/provider"
	"github.com/toolbridge/toolbridge/internal/tokens"
	"github.com/toolbridge/toolbridge/internal/tool"
	"github.com/toolbridge/toolbridge/internal/workflow"
)

// Version is the server release identifier reported by the version tool.
const Version = "1.0.0"

// cleanupEvery triggers activity-driven cache maintenance once per this
// many calls; the time-driven sweep runs independently.
const cleanupEvery = 256

// Handler is the top-level dispatcher: continuation reconstruction,
// model resolution, file pre-flight, and tool execution.
type Handler struct {
	cfg       *config.Config
	tools     *tool.Registry
	schemas   *tool.SchemaCache
	store     *conversation.Store
	resolver  *model.Resolver
	providers *provider.Registry
	engine    *workflow.Engine
	est       *tokens.Estimator
	prompts   *prompt.Catalogue
	startTime time.Time

	calls atomic.Int64
}

// NewHandler wires the core components together.
func NewHandler(cfg *config.Config, providers *provider.Registry) *Handler {
	store := conversation.NewStore(conversation.DefaultThreadTTL)
	prompts := prompt.NewCatalogue("")
	tools := tool.NewRegistry()
	tools.RegisterAll(tool.Catalogue(), cfg.DisabledTools)
	resolver := model.NewResolver(providers, cfg.DefaultModel)

	return &Handler{
		cfg:       cfg,
		tools:     tools,
		schemas:   tool.NewSchemaCache(),
		store:     store,
		resolver:  resolver,
		providers: providers,
		engine:    workflow.NewEngine(store, prompts, resolver),
		est:       tokens.NewEstimator(),
		prompts:   prompts,
		startTime: time.Now(),
	}
}

// Tools exposes the registry for transport advertisement.
func (h *Handler) Tools() *tool.Registry { return h.tools }

// Schemas exposes the schema cache for transport advertisement.
func (h *Handler) Schemas() *tool.SchemaCache { return h.schemas }

// Store exposes the conversation store (health reporting, shutdown).
func (h *Handler) Store() *conversation.Store { return h.store }

// RunTool executes one inbound tool call and returns the response
// envelope. Errors are *ToolError values ready for serialisation.
func (h *Handler) RunTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	if n := h.calls.Add(1); n%cleanupEvery == 0 {
		go h.CleanupCaches()
	}

	d, ok := h.tools.Get(name)
	if !ok {
		return nil, &ToolError{
			Kind:    KindUnknownTool,
			Content: fmt.Sprintf("unknown tool %q; call list_tools for the available set", name),
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	// Continuation reconstruction, model inheritance, user-turn append.
	var thread *conversation.Thread
	if id, _ := args["continuation_id"].(string); id != "" {
		t, ok := h.store.Get(id)
		if !ok {
			return nil, classify(conversation.ErrUnknownContinuation)
		}
		if m, _ := args["model"].(string); m == "" {
			if inherited, _ := conversation.InheritedModel(t); inherited != "" {
				args["model"] = inherited
			}
		}
		// Workflow steps record their own user turn inside the engine;
		// simple tools record the new user turn here, before history
		// reconstruction.
		if d.Shape == tool.Simple {
			h.store.AddTurn(id, conversation.Turn{
				Role:     llm.RoleUser,
				Content:  userTurnContent(args),
				ToolName: name,
				Files:    stringList(args["files"]),
				Images:   stringList(args["images"]),
			})
		}
		if t2, ok := h.store.Get(id); ok {
			thread = &t2
		}
	}

	// Model resolution.
	var resolved *model.Resolved
	if d.RequiresModel {
		requested, _ := args["model"].(string)
		res, err := h.resolver.Resolve(requested, d.Name, d.Category)
		if err != nil {
			return nil, &ToolError{
				Kind:     KindModelUnavailable,
				Content:  err.Error(),
				Metadata: map[string]any{"requested_model": requested, "tool": d.Name},
			}
		}
		resolved = res
	}

	// History folding needs the resolved capabilities for its budget.
	if thread != nil && resolved != nil {
		history, used := conversation.BuildHistory(*thread, resolved.Capabilities, h.est)
		if history != "" {
			if p, _ := args["prompt"].(string); p != "" {
				args["prompt"] = history + "\n" + p
			} else {
				args["_history"] = history
			}
			alloc := tokens.Allocate(resolved.Capabilities)
			args["_remaining_tokens"] = alloc.ContentTokens - used
		}
	}

	// File-size pre-flight: reject rather than truncate. Workflow tools
	// carry their selection in relevant_files, so the check covers the
	// de-duplicated union of both fields before any dispatch.
	if resolved != nil {
		files := stringList(args["files"])
		if d.Shape == tool.Workflow {
			files = append(files, stringList(args["relevant_files"])...)
		}
		if files = dedupStrings(files); len(files) > 0 {
			if err := h.preflightFiles(files, resolved); err != nil {
				return nil, err
			}
		}
	}

	// Dispatch.
	switch d.Shape {
	case tool.Workflow:
		env, err := h.engine.ExecuteStep(ctx, d, args, resolved)
		if err != nil {
			te := classify(err)
			if te.Kind == KindInternal {
				te.Kind = KindInvalidRequest
			}
			return nil, te
		}
		return env, nil
	default:
		return h.runSimple(ctx, d, args, resolved)
	}
}

// preflightFiles estimates the total token cost of the request's files
// and fails fast with code_too_large when the model's budget cannot
// hold them. Partial inclusion is explicitly disallowed.
func (h *Handler) preflightFiles(files []string, resolved *model.Resolved) error {
	total := 0
	for _, f := range files {
		n, err := h.est.EstimateFile(f, resolved.Capabilities)
		if err != nil {
			return classify(err)
		}
		total += n
	}

	limit := tokens.FileRejectionLimit(resolved.Capabilities)
	if total > limit {
		return &ToolError{
			Kind: KindCodeTooLarge,
			Content: fmt.Sprintf(
				"selected files are estimated at %d tokens, above the %d-token limit for %s; reduce the selection",
				total, limit, resolved.Name),
			Metadata: map[string]any{
				"total_estimated_tokens": total,
				"limit":                  limit,
				"model_name":             resolved.Name,
				"model_context_window":   resolved.Capabilities.ContextWindow,
			},
		}
	}
	return nil
}

// CleanupCaches sweeps expired entries from every cache. Called on a
// low-frequency cadence, both time-driven and activity-driven.
func (h *Handler) CleanupCaches() {
	removed := h.est.CleanupCache() + h.schemas.Cleanup() + h.resolver.CleanupCaches()
	if removed > 0 {
		h.cfg.Debugf("[Handler] Cache cleanup removed %d expired entries", removed)
	}
}

// StartCacheMaintenance runs the time-driven cleanup until ctx ends.
func (h *Handler) StartCacheMaintenance(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CleanupCaches()
			}
		}
	}()
}

// userTurnContent extracts the user-authored text of a call.
func userTurnContent(args map[string]any) string {
	if p, _ := args["prompt"].(string); p != "" {
		return p
	}
	if s, _ := args["step"].(string); s != "" {
		if f, _ := args["findings"].(string); f != "" {
			return s + "\n\nFindings: " + f
		}
		return s
	}
	return "(no content)"
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// LogCall is the single per-call log line used by the transports.
func (h *Handler) LogCall(name string, err error) {
	if err != nil {
		log.Printf("[Handler] %s failed: %v", name, err)
		return
	}
	h.cfg.Debugf("[Handler] %s ok", name)
}
