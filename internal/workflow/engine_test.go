package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toolbridge/toolbridge/internal/conversation"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/model"
	"github.com/toolbridge/toolbridge/internal/prompt"
	"github.com/toolbridge/toolbridge/internal/tool"
)

type fakeProvider struct {
	calls      int
	lastPrompt string
	prompts    []string
	response   string
	err        error
}

func (f *fakeProvider) Name() string     { return "fake" }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }
func (f *fakeProvider) Capabilities(m string) (llm.Capabilities, bool) {
	return llm.Capabilities{Model: "fake-model", ContextWindow: 200_000}, true
}
func (f *fakeProvider) Generate(_ context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	f.calls++
	for _, m := range req.Messages {
		if m.Role == llm.RoleUser {
			f.lastPrompt = m.Content
			f.prompts = append(f.prompts, m.Content)
		}
	}
	if f.err != nil {
		return llm.GenerateResponse{}, f.err
	}
	return llm.GenerateResponse{Content: f.response, Model: req.Model}, nil
}

// fakeResolver binds any requested name to the shared fake provider,
// failing the names listed in failNames.
type fakeResolver struct {
	provider  *fakeProvider
	failNames map[string]bool
}

func (r *fakeResolver) Resolve(requested, toolName string, category llm.ToolCategory) (*model.Resolved, error) {
	if r.failNames[requested] {
		return nil, fmt.Errorf("model %q is not available for tool %q", requested, toolName)
	}
	return &model.Resolved{
		Name:         requested,
		Provider:     r.provider,
		Capabilities: llm.Capabilities{Model: requested, ContextWindow: 200_000},
	}, nil
}

type fixture struct {
	engine   *Engine
	store    *conversation.Store
	provider *fakeProvider
	resolver *fakeResolver
	resolved *model.Resolved
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := conversation.NewStore(time.Minute)
	t.Cleanup(store.Close)
	fp := &fakeProvider{response: `{"status": "analysis_complete", "verdict": "confirmed"}`}
	fr := &fakeResolver{provider: fp}
	return &fixture{
		engine:   NewEngine(store, prompt.NewCatalogue(""), fr),
		store:    store,
		provider: fp,
		resolver: fr,
		resolved: &model.Resolved{
			Name:         "fake-model",
			Provider:     fp,
			Capabilities: llm.Capabilities{Model: "fake-model", ContextWindow: 200_000},
		},
	}
}

func descriptorByName(t *testing.T, name string) *tool.Descriptor {
	t.Helper()
	for _, d := range tool.Catalogue() {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("no descriptor %s", name)
	return nil
}

func stepArgs(overrides map[string]any) map[string]any {
	args := map[string]any{
		"step":               "investigate the reported symptom",
		"step_number":        1,
		"total_steps":        3,
		"next_step_required": true,
		"findings":           "symptom X observed",
		"confidence":         "low",
	}
	for k, v := range overrides {
		args[k] = v
	}
	return args
}

func TestExecuteStep_PauseEnvelope(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"relevant_files": []any{"/a.py"},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env["status"] != "pause_for_debug" {
		t.Errorf("status = %v, want pause_for_debug", env["status"])
	}
	if env["debug_required"] != true {
		t.Error("pause envelope must set debug_required")
	}
	if actions, ok := env["required_actions"].([]string); !ok || len(actions) == 0 {
		t.Error("pause envelope must carry required_actions")
	}
	if env["continuation_id"] == "" {
		t.Error("continuation_id missing")
	}
	// Intermediate steps reference files, never embed them.
	if files, ok := env["relevant_files"].([]string); !ok || files[0] != "/a.py" {
		t.Errorf("relevant_files reference missing: %v", env["relevant_files"])
	}
	if fx.provider.calls != 0 {
		t.Errorf("pause step must not call the provider, got %d calls", fx.provider.calls)
	}
}

func TestExecuteStep_PauseIsIdempotentOnProviderEffects(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, _ := fx.engine.ExecuteStep(context.Background(), d, stepArgs(nil), fx.resolved)
	id := env["continuation_id"].(string)
	for i := 2; i <= 3; i++ {
		_, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
			"step_number":     i,
			"continuation_id": id,
		}), fx.resolved)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if fx.provider.calls != 0 {
		t.Errorf("no pause step may call the provider, got %d calls", fx.provider.calls)
	}
}

func TestExecuteStep_FinalStepCallsExpert(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.go")
	if err := os.WriteFile(path, []byte("package a // unique-embed-marker"), 0o644); err != nil {
		t.Fatal(err)
	}

	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, _ := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"relevant_files": []any{path},
	}), fx.resolved)
	id := env["continuation_id"].(string)

	final, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"step_number":        3,
		"total_steps":        3,
		"next_step_required": false,
		"findings":           "root cause: stale import cache",
		"confidence":         "high",
		"continuation_id":    id,
		"relevant_files":     []any{path},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if final["status"] != "debug_complete" {
		t.Errorf("status = %v, want debug_complete", final["status"])
	}
	if fx.provider.calls != 1 {
		t.Fatalf("expected exactly one expert call, got %d", fx.provider.calls)
	}
	if got := strings.Count(fx.provider.lastPrompt, "unique-embed-marker"); got != 1 {
		t.Errorf("relevant file must be embedded exactly once in the expert prompt, got %d", got)
	}
	expert, ok := final["expert_analysis"].(map[string]any)
	if !ok || expert["verdict"] != "confirmed" {
		t.Errorf("expert analysis not propagated: %v", final["expert_analysis"])
	}
	if _, ok := final["complete_debug"]; !ok {
		t.Error("completion block missing")
	}

	// Two steps recorded as user turns, one assistant turn for the
	// expert response.
	thread, _ := fx.store.Get(id)
	users, assistants := 0, 0
	for _, turn := range thread.Turns {
		switch turn.Role {
		case llm.RoleUser:
			users++
		case llm.RoleAssistant:
			assistants++
		}
	}
	if users != 2 || assistants != 1 {
		t.Errorf("expected 2 user + 1 assistant turns, got %d + %d", users, assistants)
	}
}

func TestExecuteStep_CertainShortcutSkipsExpert(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"confidence":         "certain",
		"findings":           "confirmed: null deref at L44",
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fx.provider.calls != 0 {
		t.Errorf("certain shortcut must not call the provider, got %d calls", fx.provider.calls)
	}
	if env["status"] != "certain_confidence_proceed_with_fix" {
		t.Errorf("status = %v", env["status"])
	}
	expert := env["expert_analysis"].(map[string]any)
	if expert["status"] != "skipped_due_to_certain_confidence" {
		t.Errorf("expert status = %v", expert["status"])
	}
}

func TestExecuteStep_AnalyzeIgnoresCertainShortcut(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "analyze")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"confidence":         "certain",
		"relevant_files":     []any{"/project/main.go"},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fx.provider.calls != 1 {
		t.Errorf("analyze must force the expert pass even at certain confidence, got %d calls", fx.provider.calls)
	}
	if env["status"] != "analyze_complete" {
		t.Errorf("status = %v", env["status"])
	}
}

func TestExecuteStep_PlannerCompletesWithoutExpert(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "planner")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"findings":           "plan drafted",
	}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["status"] != "planner_complete" {
		t.Errorf("status = %v, want planner_complete", env["status"])
	}
	if fx.provider.calls != 0 {
		t.Error("planner must never call a provider")
	}
}

func TestExecuteStep_Step1FilePrecondition(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "codereview")

	_, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(nil), fx.resolved)
	if err == nil || !strings.Contains(err.Error(), "relevant_files") {
		t.Errorf("expected step-1 precondition error, got %v", err)
	}
}

func TestExecuteStep_UnknownContinuation(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	_, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"continuation_id": "never-created",
	}), fx.resolved)
	if !errors.Is(err, conversation.ErrUnknownContinuation) {
		t.Errorf("expected ErrUnknownContinuation, got %v", err)
	}
}

func TestExecuteStep_ProviderFailure(t *testing.T) {
	fx := newFixture(t)
	fx.provider.err = fmt.Errorf("upstream 500")
	d := descriptorByName(t, "debug")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"relevant_files":     []any{"/x.go"},
		"confidence":         "high",
	}), fx.resolved)
	if err != nil {
		t.Fatalf("provider failure must surface in the envelope, not as a Go error: %v", err)
	}
	if env["status"] != "error" {
		t.Errorf("status = %v, want error", env["status"])
	}
	if !strings.Contains(env["content"].(string), "upstream 500") {
		t.Errorf("error payload missing cause: %v", env["content"])
	}

	// No assistant turn may be recorded for the failed expert call.
	thread, _ := fx.store.Get(env["continuation_id"].(string))
	for _, turn := range thread.Turns {
		if turn.Role == llm.RoleAssistant {
			t.Error("assistant turn recorded despite provider failure")
		}
	}
}

func TestExecuteStep_Backtrack(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, _ := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"findings":       "symptom X",
		"relevant_files": []any{"/keep.py"},
	}), fx.resolved)
	id := env["continuation_id"].(string)

	fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"step_number":     2,
		"findings":        "suspect /a.py",
		"relevant_files":  []any{"/a.py"},
		"continuation_id": id,
	}), fx.resolved)

	// Backtrack from step 2 and supply a corrected step 2.
	fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"step_number":         2,
		"findings":            "wrong lead: /a.py unrelated",
		"backtrack_from_step": 2,
		"continuation_id":     id,
	}), fx.resolved)

	history := fx.engine.History(id)
	if len(history) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(history))
	}
	cf := Replay(history)
	if len(cf.Findings) != 2 {
		t.Fatalf("expected 2 consolidated findings, got %d", len(cf.Findings))
	}
	if !strings.Contains(cf.Findings[1], "wrong lead") {
		t.Errorf("replayed findings missing corrected step: %v", cf.Findings)
	}
	if cf.RelevantFiles["/a.py"] {
		t.Error("backtracked file reference must not survive replay")
	}
	if !cf.RelevantFiles["/keep.py"] {
		t.Error("step-1 file reference must survive the backtrack")
	}
}

func TestExecuteStep_BacktrackFromStep1ResetsEverything(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "debug")

	env, _ := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"relevant_files": []any{"/old.py"},
	}), fx.resolved)
	id := env["continuation_id"].(string)

	fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"step_number":         1,
		"findings":            "fresh start",
		"backtrack_from_step": 1,
		"continuation_id":     id,
	}), fx.resolved)

	cf := Replay(fx.engine.History(id))
	if len(cf.Findings) != 1 || !strings.Contains(cf.Findings[0], "fresh start") {
		t.Errorf("backtrack from step 1 must drop all prior history: %v", cf.Findings)
	}
	if cf.RelevantFiles["/old.py"] {
		t.Error("pre-backtrack file survived a full reset")
	}
}

func TestExecuteStep_ConsensusConsultsEachModel(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "consensus")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"step":               "should we adopt the new storage engine?",
		"next_step_required": false,
		"findings":           "my own assessment: benefits outweigh the migration cost",
		"models":             []any{"o3:for", "grok-4:against"},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env["status"] != "consensus_complete" {
		t.Errorf("status = %v, want consensus_complete", env["status"])
	}
	if fx.provider.calls != 2 {
		t.Fatalf("expected one call per listed model, got %d", fx.provider.calls)
	}
	if !strings.Contains(fx.provider.prompts[0], "FOR") {
		t.Errorf("first model must receive the supportive stance, got %q", fx.provider.prompts[0])
	}
	if !strings.Contains(fx.provider.prompts[1], "AGAINST") {
		t.Errorf("second model must receive the critical stance, got %q", fx.provider.prompts[1])
	}

	expert, ok := env["expert_analysis"].(map[string]any)
	if !ok {
		t.Fatalf("expert_analysis missing: %v", env)
	}
	responses, ok := expert["responses"].([]map[string]any)
	if !ok || len(responses) != 2 {
		t.Fatalf("expected 2 responses, got %v", expert["responses"])
	}
	if responses[0]["model"] != "o3" || responses[0]["stance"] != "for" {
		t.Errorf("unexpected first response: %v", responses[0])
	}
	if expert["models_succeeded"] != 2 {
		t.Errorf("models_succeeded = %v", expert["models_succeeded"])
	}

	// The collected verdicts form the assistant turn.
	thread, _ := fx.store.Get(env["continuation_id"].(string))
	last := thread.Turns[len(thread.Turns)-1]
	if last.Role != llm.RoleAssistant || !strings.Contains(last.Content, "=== o3 (for) ===") {
		t.Errorf("assistant turn must carry the per-model verdicts, got %q", last.Content)
	}
}

func TestExecuteStep_ConsensusRequiresModels(t *testing.T) {
	fx := newFixture(t)
	d := descriptorByName(t, "consensus")

	_, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
	}), fx.resolved)
	if err == nil || !strings.Contains(err.Error(), "models list") {
		t.Errorf("expected non-empty models contract error, got %v", err)
	}
	// Also required on step 1 of a multi-step run.
	_, err = fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": true,
		"models":             []any{},
	}), fx.resolved)
	if err == nil || !strings.Contains(err.Error(), "models list") {
		t.Errorf("expected step-1 models contract error, got %v", err)
	}
	if fx.provider.calls != 0 {
		t.Errorf("rejected calls must not reach the provider, got %d", fx.provider.calls)
	}
}

func TestExecuteStep_ConsensusPartialFailure(t *testing.T) {
	fx := newFixture(t)
	fx.resolver.failNames = map[string]bool{"missing-model": true}
	d := descriptorByName(t, "consensus")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"models":             []any{"missing-model", "o3"},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env["status"] != "consensus_complete" {
		t.Errorf("one surviving model must still complete, got %v", env["status"])
	}
	expert := env["expert_analysis"].(map[string]any)
	if expert["models_succeeded"] != 1 {
		t.Errorf("models_succeeded = %v, want 1", expert["models_succeeded"])
	}
	responses := expert["responses"].([]map[string]any)
	if responses[0]["status"] != "error" || responses[1]["status"] != "success" {
		t.Errorf("unexpected per-model statuses: %v", responses)
	}
}

func TestExecuteStep_ConsensusAllModelsFail(t *testing.T) {
	fx := newFixture(t)
	fx.provider.err = fmt.Errorf("upstream 500")
	d := descriptorByName(t, "consensus")

	env, err := fx.engine.ExecuteStep(context.Background(), d, stepArgs(map[string]any{
		"next_step_required": false,
		"models":             []any{"o3", "grok-4"},
	}), fx.resolved)
	if err != nil {
		t.Fatalf("all-fail must surface in the envelope, not as a Go error: %v", err)
	}
	if env["status"] != "error" {
		t.Errorf("status = %v, want error", env["status"])
	}

	// No assistant turn without a successful verdict.
	thread, _ := fx.store.Get(env["continuation_id"].(string))
	for _, turn := range thread.Turns {
		if turn.Role == llm.RoleAssistant {
			t.Error("assistant turn recorded despite total consensus failure")
		}
	}
}

func TestParseStepArgs_Validation(t *testing.T) {
	base := stepArgs(nil)

	for _, tc := range []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"empty step", func(m map[string]any) { m["step"] = "  " }},
		{"zero step_number", func(m map[string]any) { m["step_number"] = 0 }},
		{"missing next_step_required", func(m map[string]any) { delete(m, "next_step_required") }},
		{"empty findings", func(m map[string]any) { m["findings"] = "" }},
		{"bad confidence", func(m map[string]any) { m["confidence"] = "sure" }},
	} {
		args := map[string]any{}
		for k, v := range base {
			args[k] = v
		}
		tc.mutate(args)
		if _, err := ParseStepArgs(args); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestParseStepArgs_TotalStepsAdjusted(t *testing.T) {
	sa, err := ParseStepArgs(stepArgs(map[string]any{
		"step_number": 5,
		"total_steps": 3,
	}))
	if err != nil {
		t.Fatal(err)
	}
	if sa.TotalSteps != 5 {
		t.Errorf("total_steps must be raised to step_number, got %d", sa.TotalSteps)
	}
}
