package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/toolbridge/toolbridge/internal/conversation"
	"github.com/toolbridge/toolbridge/internal/fileio"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/model"
	"github.com/toolbridge/toolbridge/internal/prompt"
	"github.com/toolbridge/toolbridge/internal/tool"
)

// Envelope is the JSON object a workflow step returns. Keys vary by
// tool name (<tool>_status, complete_<tool>, pause_for_<tool>), so the
// envelope stays a generic map assembled by the engine.
type Envelope map[string]any

// state is the per-thread workflow memory: the work history from which
// ConsolidatedFindings is always derived.
type state struct {
	mu             sync.Mutex
	history        []StepRecord
	initialRequest string
}

// ModelResolver binds additional model names for multi-model tools.
// Satisfied by model.Resolver; the interface keeps tests provider-free.
type ModelResolver interface {
	Resolve(requested, toolName string, category llm.ToolCategory) (*model.Resolved, error)
}

// Engine drives paused, client-led, multi-step investigations.
// It never advances on its own: every call consumes exactly one
// externally supplied step.
type Engine struct {
	store    *conversation.Store
	prompts  *prompt.Catalogue
	resolver ModelResolver

	mu     sync.Mutex
	states map[string]*state // keyed by thread id
}

// NewEngine creates a workflow engine over the given stores. resolver
// is consulted only by multi-model tools (consensus).
func NewEngine(store *conversation.Store, prompts *prompt.Catalogue, resolver ModelResolver) *Engine {
	return &Engine{
		store:    store,
		prompts:  prompts,
		resolver: resolver,
		states:   make(map[string]*state),
	}
}

// ExecuteStep processes one workflow step for the given tool.
//
// resolved may be nil for tools with RequiresModel=false; such tools
// never reach the expert path. Input-contract violations return a Go
// error with no thread mutation; expert provider failures return an
// error-status envelope because the user-side step itself succeeded.
func (e *Engine) ExecuteStep(ctx context.Context, d *tool.Descriptor, args map[string]any, resolved *model.Resolved) (Envelope, error) {
	sa, err := ParseStepArgs(args)
	if err != nil {
		return nil, err
	}

	if d.Policy.RequireRelevantFilesOnStep1 && sa.StepNumber == 1 && len(sa.RelevantFiles) == 0 {
		return nil, fmt.Errorf("%s requires relevant_files on step 1", d.Name)
	}

	if d.Policy.MultiModel && (sa.StepNumber == 1 || !sa.NextStepRequired) {
		if len(parseModelSpecs(sa.Raw["models"])) == 0 {
			return nil, fmt.Errorf("%s requires a non-empty models list", d.Name)
		}
	}

	threadID := sa.ContinuationID
	if threadID == "" {
		threadID = e.store.Create(d.Name, args, "")
	} else if _, ok := e.store.Get(threadID); !ok {
		return nil, conversation.ErrUnknownContinuation
	}

	st := e.stateFor(threadID)
	st.mu.Lock()
	defer st.mu.Unlock()

	// Backtrack first, then process the current step as a fresh entry
	// at its declared number. The caller is authoritative for numbering.
	if sa.BacktrackFrom > 0 {
		kept := st.history[:0:0]
		for _, rec := range st.history {
			if rec.StepNumber < sa.BacktrackFrom {
				kept = append(kept, rec)
			}
		}
		st.history = kept
		log.Printf("[Workflow] %s: backtracked from step %d, %d record(s) kept", d.Name, sa.BacktrackFrom, len(kept))
	}

	if st.initialRequest == "" {
		st.initialRequest = sa.Step
	}
	st.history = append(st.history, sa.record())
	cf := Replay(st.history)

	// Each step is user-side work and is recorded as a user turn.
	// Assistant turns exist only for provider-generated content: a
	// failed expert call leaves no partial assistant turn behind.
	e.appendUserTurn(threadID, d, sa)

	envelope := e.baseEnvelope(d, sa, &cf, threadID)

	if sa.NextStepRequired {
		e.handleContinuation(envelope, d, sa)
		return envelope, nil
	}

	expertContent, ok := e.handleCompletion(ctx, envelope, d, sa, st, &cf, resolved)
	if ok && expertContent != "" {
		e.appendAssistantTurn(threadID, d, expertContent, sortedKeys(cf.RelevantFiles), resolved)
	}
	return envelope, nil
}

func (e *Engine) appendUserTurn(threadID string, d *tool.Descriptor, sa StepArgs) {
	content := sa.Step
	if sa.Findings != "" {
		content += "\n\nFindings: " + sa.Findings
	}
	if !e.store.AddTurn(threadID, conversation.Turn{
		Role:     llm.RoleUser,
		Content:  content,
		ToolName: d.Name,
		Files:    sa.RelevantFiles,
		Images:   sa.Images,
	}) {
		log.Printf("[Workflow] Could not record user turn on thread %s", threadID)
	}
}

func (e *Engine) stateFor(threadID string) *state {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.states[threadID]
	if !ok {
		st = &state{}
		e.states[threadID] = st
	}
	return st
}

func (e *Engine) baseEnvelope(d *tool.Descriptor, sa StepArgs, cf *ConsolidatedFindings, threadID string) Envelope {
	return Envelope{
		"status":             d.Name + "_in_progress",
		"step_number":        sa.StepNumber,
		"total_steps":        sa.TotalSteps,
		"next_step_required": sa.NextStepRequired,
		"continuation_id":    threadID,
		d.Name + "_status": map[string]any{
			"files_checked":      len(cf.FilesChecked),
			"relevant_files":     len(cf.RelevantFiles),
			"relevant_context":   len(cf.RelevantContext),
			"issues_found":       len(cf.IssuesFound),
			"images_collected":   len(cf.Images),
			"current_confidence": sa.Confidence,
		},
	}
}

// handleContinuation forces a pause: the client must do the required
// actions before calling again. Intermediate steps never embed file
// content — only paths travel in the envelope.
func (e *Engine) handleContinuation(envelope Envelope, d *tool.Descriptor, sa StepArgs) {
	actions := RequiredActions(d.Name, sa.StepNumber, sa.TotalSteps, sa.Confidence)
	envelope["status"] = "pause_for_" + d.Name
	envelope[d.Name+"_required"] = true
	envelope["required_actions"] = actions
	envelope["next_steps"] = StepGuidance(d.Name, sa.StepNumber, len(actions))
	if len(sa.RelevantFiles) > 0 {
		envelope["relevant_files"] = sa.RelevantFiles
	}
}

// handleCompletion runs the terminal-step logic: certain shortcut,
// self-contained completion, the expert gate, or local completion.
// It returns the provider-generated text (empty when no provider ran)
// and ok=false when the expert call failed.
func (e *Engine) handleCompletion(ctx context.Context, envelope Envelope, d *tool.Descriptor, sa StepArgs, st *state, cf *ConsolidatedFindings, resolved *model.Resolved) (string, bool) {
	switch {
	case d.Policy.HonorCertainShortcut && sa.Confidence == "certain" && !d.Policy.ForceExpert:
		envelope["status"] = "certain_confidence_proceed_with_fix"
		envelope["skip_expert_analysis"] = true
		envelope["expert_analysis"] = map[string]any{
			"status": "skipped_due_to_certain_confidence",
			"reason": "Caller declared certain confidence; local work is authoritative",
		}
		envelope["complete_"+d.Name] = e.completeBlock(d, st, cf)
		envelope["next_steps"] = "Proceed with the fix based on the confirmed analysis."
		return "", true

	case !d.Policy.RequiresExpertAnalysis:
		envelope["status"] = d.Name + "_complete"
		envelope["complete_"+d.Name] = e.completeBlock(d, st, cf)
		envelope["next_steps"] = fmt.Sprintf("%s work complete. Present the results to the user.", d.Name)
		return "", true

	case d.Policy.MultiModel:
		return e.callConsensus(ctx, envelope, d, sa, st, cf)

	case d.Policy.ForceExpert || len(cf.RelevantFiles) > 0 || len(cf.Findings) >= 2 || len(cf.IssuesFound) > 0:
		return e.callExpert(ctx, envelope, d, st, cf, resolved)

	default:
		envelope["status"] = "local_work_complete"
		envelope["complete_"+d.Name] = e.completeBlock(d, st, cf)
		envelope["next_steps"] = fmt.Sprintf(
			"Local %s complete with sufficient confidence. Present the findings to the user.", d.Name)
		return "", true
	}
}

func (e *Engine) completeBlock(d *tool.Descriptor, st *state, cf *ConsolidatedFindings) map[string]any {
	return map[string]any{
		"initial_request":  st.initialRequest,
		"steps_taken":      len(st.history),
		"files_examined":   sortedKeys(cf.FilesChecked),
		"relevant_files":   sortedKeys(cf.RelevantFiles),
		"relevant_context": sortedKeys(cf.RelevantContext),
		"issues_found":     cf.IssuesFound,
		"work_summary":     cf.WorkSummary(d.Name, len(st.history)),
		"confidence_level": cf.Confidence,
	}
}

// callExpert performs the terminal expert pass. File content is
// forcibly embedded here and in callConsensus: the union of
// relevant_files goes into the expert prompt.
func (e *Engine) callExpert(ctx context.Context, envelope Envelope, d *tool.Descriptor, st *state, cf *ConsolidatedFindings, resolved *model.Resolved) (string, bool) {
	if resolved == nil || resolved.Provider == nil {
		envelope["status"] = "error"
		envelope["content"] = "expert analysis requested but no model was resolved for this call"
		return "", false
	}

	expertContext := cf.WorkSummary(d.Name, len(st.history))
	expertContext = fmt.Sprintf("Initial request: %s\n\n%s", st.initialRequest, expertContext)
	if files := sortedKeys(cf.RelevantFiles); len(files) > 0 {
		expertContext += "\n\n=== ESSENTIAL FILES ===\n" + fileio.ReadFiles(files, fileio.ReadOptions{})
	}

	req := llm.GenerateRequest{
		Model:       resolved.Name,
		Temperature: d.DefaultTemperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: e.prompts.Get(d.SystemPromptID)},
			{Role: llm.RoleUser, Content: expertContext +
				"\n\nValidate the findings above. Respond in JSON when possible."},
		},
	}
	if resolved.Capabilities.SupportsExtendedThinking {
		req.ReasoningEffort = "high"
	}

	resp, err := resolved.Provider.Generate(ctx, req)
	if err != nil {
		log.Printf("[Workflow] %s expert analysis failed: %v", d.Name, err)
		envelope["status"] = "error"
		envelope["content"] = fmt.Sprintf("Expert analysis failed: %v", err)
		envelope["content_type"] = "text"
		return "", false
	}

	expert := parseExpertResponse(resp.Content)
	envelope["expert_analysis"] = expert

	// Provider-requested statuses are promoted to the top level.
	if special, ok := expert["status"].(string); ok &&
		(special == "files_required_to_continue" || special == "investigation_paused") {
		envelope["status"] = special
		if raw, ok := expert["raw_analysis"].(string); ok {
			envelope["content"] = raw
		}
		delete(envelope, "expert_analysis")
		if special == "files_required_to_continue" {
			envelope["next_steps"] = "Provide the requested files and continue the analysis."
		}
	} else {
		envelope["status"] = d.Name + "_complete"
		envelope["next_steps"] = fmt.Sprintf(
			"%s complete. Combine the expert analysis with your local findings and present them to the user.", d.Name)
	}

	envelope["complete_"+d.Name] = e.completeBlock(d, st, cf)
	return resp.Content, true
}

// parseExpertResponse tries to interpret the expert reply as JSON and
// falls back to a raw-analysis wrapper when it is not.
func parseExpertResponse(content string) map[string]any {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		return parsed
	}
	return map[string]any{
		"status":       "analysis_complete",
		"raw_analysis": content,
		"parse_error":  "Response was not valid JSON",
	}
}

// appendAssistantTurn records provider-generated expert output as the
// assistant's turn. files carries the relevant set the expert saw.
func (e *Engine) appendAssistantTurn(threadID string, d *tool.Descriptor, content string, files []string, resolved *model.Resolved) {
	turn := conversation.Turn{
		Role:     llm.RoleAssistant,
		Content:  content,
		ToolName: d.Name,
		Files:    files,
	}
	if resolved != nil {
		turn.ModelName = resolved.Name
		if resolved.Provider != nil {
			turn.ModelProvider = resolved.Provider.Name()
		}
	}
	if !e.store.AddTurn(threadID, turn) {
		log.Printf("[Workflow] Could not record assistant turn on thread %s", threadID)
	}
}

// History exposes a thread's work history for tests and diagnostics.
func (e *Engine) History(threadID string) []StepRecord {
	e.mu.Lock()
	st, ok := e.states[threadID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]StepRecord, len(st.history))
	copy(out, st.history)
	return out
}
