// Package mode implements the two-stage select_mode / execute_mode
// optimizer that shrinks the advertised tool-schema surface: the client
// first asks which mode fits its task, then executes that mode with the
// small schema the selection returned.
package mode

import (
	"sort"
	"strings"
)

// modeToTool maps an optimizer mode to the catalogue tool it executes.
// Ties in keyword scoring break by lexicographic mode order.
var modeToTool = map[string]string{
	"analyze":    "analyze",
	"chat":       "chat",
	"codereview": "codereview",
	"consensus":  "consensus",
	"debug":      "debug",
	"planner":    "planner",
	"refactor":   "refactor",
	"security":   "secaudit",
	"testgen":    "testgen",
}

// lexicons holds the weighted keyword sets per mode: primary keywords
// score 3, secondary score 1.
var lexicons = map[string]struct {
	primary   []string
	secondary []string
}{
	"debug": {
		primary:   []string{"error", "bug", "broken", "crash", "fail", "exception"},
		secondary: []string{"fix", "issue", "problem", "debug", "troubleshoot", "not working"},
	},
	"codereview": {
		primary:   []string{"code review", "pr review", "pull request", "review code"},
		secondary: []string{"review", "check", "quality", "standards", "assess code"},
	},
	"analyze": {
		primary:   []string{"architecture", "design review", "architectural", "system design", "structure"},
		secondary: []string{"analyze", "understand", "explain", "pattern", "codebase", "examine"},
	},
	"consensus": {
		primary:   []string{"should we", "decision", "choice", "approach", "which is better", "vs", "or"},
		secondary: []string{"consensus", "compare", "decide", "evaluate options", "pros cons"},
	},
	"chat": {
		primary:   []string{"explain", "tell me", "what is", "how to", "help me understand"},
		secondary: []string{"help", "general", "brainstorm", "idea", "question"},
	},
	"security": {
		primary:   []string{"security audit", "vulnerability", "auth", "authentication", "security review"},
		secondary: []string{"encryption", "safe", "exploit", "secure", "injection", "xss"},
	},
	"refactor": {
		primary:   []string{"refactor", "restructure", "modernize"},
		secondary: []string{"improve", "clean up", "optimize code", "simplify", "better practices"},
	},
	"testgen": {
		primary:   []string{"generate tests", "test generation", "write tests"},
		secondary: []string{"test", "testing", "coverage", "edge case", "unit test"},
	},
	"planner": {
		primary:   []string{"create plan", "plan for", "planning", "roadmap", "strategy"},
		secondary: []string{"breakdown", "steps", "how to implement", "approach"},
	},
}

var workflowIndicators = []string{
	"step", "systematic", "comprehensive", "thorough", "complete", "full", "entire", "all",
	"complex", "difficult", "advanced", "expert", "production", "critical", "important",
}

// modesDefaultingToWorkflow typically need multi-step investigation.
var modesDefaultingToWorkflow = map[string]bool{
	"debug": true, "codereview": true, "security": true, "analyze": true,
}

// Selection is the result of select_mode.
type Selection struct {
	SelectedMode string         `json:"selected_mode"`
	Complexity   string         `json:"complexity"` // "simple" or "workflow"
	Confidence   string         `json:"confidence"` // low, medium, high
	Scores       map[string]int `json:"scores,omitempty"`
}

// SelectMode is a pure function of its inputs: per-mode keyword scoring
// with weighted lexicons, ties broken by lexicographic mode order,
// empty scores defaulting to chat.
func SelectMode(taskDescription, contextSize, confidenceLevel string) Selection {
	desc := strings.ToLower(taskDescription)

	scores := make(map[string]int)
	for name, lex := range lexicons {
		score := 0
		for _, kw := range lex.primary {
			if strings.Contains(desc, kw) {
				score += 3
			}
		}
		for _, kw := range lex.secondary {
			if strings.Contains(desc, kw) {
				score += 1
			}
		}
		if score > 0 {
			scores[name] = score
		}
	}

	selected := "chat"
	if len(scores) > 0 {
		best := -1
		candidates := make([]string, 0, len(scores))
		for _, score := range scores {
			if score > best {
				best = score
			}
		}
		for name, score := range scores {
			if score == best {
				candidates = append(candidates, name)
			}
		}
		sort.Strings(candidates)
		selected = candidates[0]
	}

	return Selection{
		SelectedMode: selected,
		Complexity:   determineComplexity(selected, desc, contextSize, confidenceLevel),
		Confidence:   selectionConfidence(scores, selected),
		Scores:       scores,
	}
}

// determineComplexity picks simple vs workflow: explicit hints first,
// then keyword cues, then per-mode defaults.
func determineComplexity(mode, desc, contextSize, confidenceLevel string) string {
	switch contextSize {
	case "comprehensive":
		return "workflow"
	case "minimal":
		return "simple"
	}
	switch confidenceLevel {
	case "exploring":
		return "workflow"
	case "high":
		return "simple"
	}

	for _, indicator := range workflowIndicators {
		if strings.Contains(desc, indicator) {
			return "workflow"
		}
	}

	if modesDefaultingToWorkflow[mode] {
		return "workflow"
	}
	return "simple"
}

func selectionConfidence(scores map[string]int, selected string) string {
	score := scores[selected]
	switch {
	case score >= 3:
		return "high"
	case score >= 2:
		return "medium"
	default:
		return "low"
	}
}
