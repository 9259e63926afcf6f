package workflow

import (
	"fmt"
	"strings"
)

// StepArgs is the validated, typed view of a workflow step request.
type StepArgs struct {
	Step             string
	StepNumber       int
	TotalSteps       int
	NextStepRequired bool
	Findings         string
	FilesChecked     []string
	RelevantFiles    []string
	RelevantContext  []string
	IssuesFound      []Issue
	Images           []string
	Confidence       string
	Hypothesis       string
	BacktrackFrom    int // 0 = no backtrack requested
	ContinuationID   string
	Model            string

	// Raw keeps the original arguments for tool-specific fields
	// (e.g. the consensus models list).
	Raw map[string]any
}

var validConfidences = map[string]bool{
	"exploring": true, "low": true, "medium": true, "high": true,
	"very_high": true, "almost_certain": true, "certain": true,
}

// ParseStepArgs validates and converts raw tool arguments into
// StepArgs. Violations of the step input contract are reported as a
// single synchronous error; nothing is mutated on failure.
func ParseStepArgs(args map[string]any) (StepArgs, error) {
	sa := StepArgs{Raw: args, Confidence: "low"}

	sa.Step = stringArg(args, "step")
	if strings.TrimSpace(sa.Step) == "" {
		return sa, fmt.Errorf("step is required and must be non-empty")
	}

	sa.StepNumber = intArg(args, "step_number")
	if sa.StepNumber < 1 {
		return sa, fmt.Errorf("step_number must be >= 1, got %d", sa.StepNumber)
	}

	sa.TotalSteps = intArg(args, "total_steps")
	if sa.TotalSteps < sa.StepNumber {
		// The caller's estimate is adjustable; a lagging total is
		// corrected rather than rejected.
		sa.TotalSteps = sa.StepNumber
	}

	required, ok := args["next_step_required"].(bool)
	if !ok {
		return sa, fmt.Errorf("next_step_required is required and must be a boolean")
	}
	sa.NextStepRequired = required

	sa.Findings = stringArg(args, "findings")
	if strings.TrimSpace(sa.Findings) == "" {
		return sa, fmt.Errorf("findings is required and must be non-empty")
	}

	if c := stringArg(args, "confidence"); c != "" {
		if !validConfidences[c] {
			return sa, fmt.Errorf("invalid confidence %q", c)
		}
		sa.Confidence = c
	}

	sa.FilesChecked = stringListArg(args, "files_checked")
	sa.RelevantFiles = stringListArg(args, "relevant_files")
	sa.RelevantContext = stringListArg(args, "relevant_context")
	sa.Images = stringListArg(args, "images")
	sa.Hypothesis = stringArg(args, "hypothesis")
	sa.ContinuationID = stringArg(args, "continuation_id")
	sa.Model = stringArg(args, "model")

	if bt := intArg(args, "backtrack_from_step"); bt > 0 {
		sa.BacktrackFrom = bt
	}

	sa.IssuesFound = issueListArg(args, "issues_found")
	return sa, nil
}

func (sa StepArgs) record() StepRecord {
	return StepRecord{
		Step:            sa.Step,
		StepNumber:      sa.StepNumber,
		Findings:        sa.Findings,
		FilesChecked:    sa.FilesChecked,
		RelevantFiles:   sa.RelevantFiles,
		RelevantContext: sa.RelevantContext,
		IssuesFound:     sa.IssuesFound,
		Confidence:      sa.Confidence,
		Hypothesis:      sa.Hypothesis,
		Images:          sa.Images,
	}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// intArg tolerates the float64 that encoding/json produces for numbers.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringListArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// issueListArg accepts both structured {severity, description} objects
// and bare strings (treated as medium severity).
func issueListArg(args map[string]any, key string) []Issue {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Issue, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			out = append(out, Issue{Severity: "medium", Description: v})
		case map[string]any:
			issue := Issue{}
			if s, ok := v["severity"].(string); ok {
				issue.Severity = s
			}
			if d, ok := v["description"].(string); ok {
				issue.Description = d
			}
			out = append(out, issue)
		}
	}
	return out
}
