package tokens

import "github.com/toolbridge/toolbridge/internal/llm"

// Context-window split. Content (history + embedded files + the new
// prompt) gets 75% of the window; the rest is reserved for the model's
// response. Within content, files and history each get at most 40%;
// unused budget flows to the prompt.
const (
	contentFraction = 0.75
	fileFraction    = 0.4
	historyFraction = 0.4
)

// Allocation carves a model's context window into budgets.
type Allocation struct {
	ContextWindow  int
	ContentTokens  int // history + files + prompt
	ResponseTokens int
	FileTokens     int // upper bound for embedded file content
	HistoryTokens  int // upper bound for reconstructed history
}

// Allocate computes the budget slices for a model.
func Allocate(caps llm.Capabilities) Allocation {
	window := caps.ContextWindow
	if window <= 0 {
		window = 200_000 // conservative fallback for unknown models
	}
	content := int(float64(window) * contentFraction)
	return Allocation{
		ContextWindow:  window,
		ContentTokens:  content,
		ResponseTokens: window - content,
		FileTokens:     int(float64(content) * fileFraction),
		HistoryTokens:  int(float64(content) * historyFraction),
	}
}

// FileBudgetThreshold returns the fraction of the file budget a request
// may consume before it is rejected outright with code_too_large.
// Large-window models tolerate a fuller budget.
func FileBudgetThreshold(contextWindow int) float64 {
	switch {
	case contextWindow >= 1_000_000:
		return 0.8
	case contextWindow >= 500_000:
		return 0.7
	default:
		return 0.6
	}
}

// FileRejectionLimit is the absolute token count above which a
// request's file selection is rejected for the given model.
func FileRejectionLimit(caps llm.Capabilities) int {
	alloc := Allocate(caps)
	return int(float64(alloc.FileTokens) * FileBudgetThreshold(alloc.ContextWindow))
}
