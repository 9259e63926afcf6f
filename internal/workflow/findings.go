// Package workflow implements the pause/resume state machine shared by
// every investigative tool: each client call supplies one step, the
// engine accumulates findings, and the declared final step may escalate
// to an expert provider pass.
package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// Issue is one problem surfaced during investigation.
type Issue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// Hypothesis is a step-tagged explanation with its confidence.
type Hypothesis struct {
	Step       int    `json:"step"`
	Text       string `json:"hypothesis"`
	Confidence string `json:"confidence"`
}

// StepRecord is an immutable snapshot of the step-scoped fields of one
// request, kept in a workflow's work history.
type StepRecord struct {
	Step            string
	StepNumber      int
	Findings        string
	FilesChecked    []string
	RelevantFiles   []string
	RelevantContext []string
	IssuesFound     []Issue
	Confidence      string
	Hypothesis      string
	Images          []string
}

// ConsolidatedFindings is the accumulated view over a work history.
// It is always derived: Replay rebuilds it from the surviving records,
// which is what makes backtracking a pure truncation.
type ConsolidatedFindings struct {
	Findings        []string
	FilesChecked    map[string]bool
	RelevantFiles   map[string]bool
	RelevantContext map[string]bool
	Hypotheses      []Hypothesis
	IssuesFound     []Issue
	Images          []string
	Confidence      string
}

func newConsolidatedFindings() ConsolidatedFindings {
	return ConsolidatedFindings{
		FilesChecked:    make(map[string]bool),
		RelevantFiles:   make(map[string]bool),
		RelevantContext: make(map[string]bool),
		Confidence:      "low",
	}
}

// Replay rebuilds consolidated findings from a work history, in order.
func Replay(history []StepRecord) ConsolidatedFindings {
	cf := newConsolidatedFindings()
	for _, rec := range history {
		cf.absorb(rec)
	}
	return cf
}

func (cf *ConsolidatedFindings) absorb(rec StepRecord) {
	for _, f := range rec.FilesChecked {
		cf.FilesChecked[f] = true
	}
	for _, f := range rec.RelevantFiles {
		cf.RelevantFiles[f] = true
	}
	for _, c := range rec.RelevantContext {
		cf.RelevantContext[c] = true
	}
	cf.Findings = append(cf.Findings, fmt.Sprintf("Step %d: %s", rec.StepNumber, rec.Findings))
	if rec.Hypothesis != "" {
		cf.Hypotheses = append(cf.Hypotheses, Hypothesis{
			Step:       rec.StepNumber,
			Text:       rec.Hypothesis,
			Confidence: rec.Confidence,
		})
	}
	cf.IssuesFound = append(cf.IssuesFound, rec.IssuesFound...)
	cf.Images = append(cf.Images, rec.Images...)
	if rec.Confidence != "" {
		cf.Confidence = rec.Confidence
	}
}

// sortedKeys returns a set's members in stable order for envelopes.
func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// WorkSummary renders the consolidated findings as the text block
// handed to the expert model and returned in completion envelopes.
func (cf *ConsolidatedFindings) WorkSummary(toolName string, steps int) string {
	parts := []string{
		fmt.Sprintf("=== %s WORK SUMMARY ===", strings.ToUpper(toolName)),
		fmt.Sprintf("Total steps: %d", steps),
		fmt.Sprintf("Files examined: %d", len(cf.FilesChecked)),
		fmt.Sprintf("Relevant files identified: %d", len(cf.RelevantFiles)),
		fmt.Sprintf("Methods/functions involved: %d", len(cf.RelevantContext)),
		fmt.Sprintf("Issues found: %d", len(cf.IssuesFound)),
		"",
		"=== WORK PROGRESSION ===",
	}
	parts = append(parts, cf.Findings...)

	if len(cf.Hypotheses) > 0 {
		parts = append(parts, "", "=== HYPOTHESIS EVOLUTION ===")
		for _, h := range cf.Hypotheses {
			parts = append(parts, fmt.Sprintf("Step %d (%s confidence): %s", h.Step, h.Confidence, h.Text))
		}
	}

	if len(cf.IssuesFound) > 0 {
		parts = append(parts, "", "=== ISSUES IDENTIFIED ===")
		for _, issue := range cf.IssuesFound {
			severity := issue.Severity
			if severity == "" {
				severity = "unknown"
			}
			parts = append(parts, fmt.Sprintf("[%s] %s", strings.ToUpper(severity), issue.Description))
		}
	}

	return strings.Join(parts, "\n")
}
