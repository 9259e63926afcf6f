package conversation

import (
	"fmt"
	"strings"

	"github.com/toolbridge/toolbridge/internal/fileio"
	"github.com/toolbridge/toolbridge/internal/llm"
	"github.com/toolbridge/toolbridge/internal/tokens"
	"github.com/toolbridge/toolbridge/internal/util"
)

// BuildHistory reconstructs a thread's prior turns as prompt text.
//
// Collection walks newest to oldest while the history token budget
// lasts; presentation emits the collected subset oldest to newest so
// the model reads chronologically. When the budget cuts off older
// turns, a short header notes the omission.
//
// File contents are embedded newest-first deduplicated: each unique
// path appears once, attached to the newest included turn that
// references it. Older references keep their turn but lose the file.
func BuildHistory(thread Thread, caps llm.Capabilities, est *tokens.Estimator) (string, int) {
	if len(thread.Turns) == 0 {
		return "", 0
	}

	alloc := tokens.Allocate(caps)

	// Newest turn index that references each unique file path.
	newestRef := make(map[string]int)
	for i, turn := range thread.Turns {
		for _, f := range turn.Files {
			newestRef[f] = i
		}
	}

	// Collect newest -> oldest within budget. The newest turn is always
	// included even when it alone exceeds the budget.
	budget := alloc.HistoryTokens
	fileBudget := alloc.FileTokens
	start := len(thread.Turns) - 1
	used := 0
	rendered := make(map[int]string)

	for i := len(thread.Turns) - 1; i >= 0; i-- {
		text := renderTurn(thread, i, newestRef, &fileBudget)
		cost := est.EstimateText(text, caps)
		if used+cost > budget && i != len(thread.Turns)-1 {
			break
		}
		rendered[i] = text
		used += cost
		start = i
	}

	var sb strings.Builder
	sb.WriteString("=== CONVERSATION HISTORY (CONTINUATION) ===\n")
	sb.WriteString(fmt.Sprintf("Thread: %s\nTool: %s\n", thread.ID, thread.ToolName))
	if start > 0 {
		sb.WriteString(fmt.Sprintf("[Note: %d earlier turn(s) omitted to fit the context budget]\n", start))
	}
	sb.WriteString("\n")

	for i := start; i < len(thread.Turns); i++ {
		sb.WriteString(rendered[i])
		sb.WriteString("\n")
	}
	sb.WriteString("=== END CONVERSATION HISTORY ===\n")

	text := sb.String()
	return text, est.EstimateText(text, caps)
}

// renderTurn formats one turn, embedding only the files whose newest
// reference is this turn and only while the shared file budget lasts.
func renderTurn(thread Thread, i int, newestRef map[string]int, fileBudget *int) string {
	turn := thread.Turns[i]

	var sb strings.Builder
	label := turn.Role
	if turn.Role == llm.RoleAssistant && turn.ModelName != "" {
		label = fmt.Sprintf("%s (%s via %s)", turn.Role, turn.ModelName, turn.ModelProvider)
	}
	sb.WriteString(fmt.Sprintf("--- Turn %d (%s", i+1, label))
	if turn.ToolName != "" {
		sb.WriteString(fmt.Sprintf(", %s", turn.ToolName))
	}
	sb.WriteString(") ---\n")
	sb.WriteString(turn.Content)
	sb.WriteString("\n")

	var embedded []string
	var dropped []string
	for _, f := range turn.Files {
		if newestRef[f] == i {
			embedded = append(embedded, f)
		} else {
			dropped = append(dropped, f)
		}
	}
	if len(dropped) > 0 {
		sb.WriteString(fmt.Sprintf("(Files %s superseded by a newer reference)\n", strings.Join(dropped, ", ")))
	}
	for _, f := range embedded {
		if *fileBudget <= 0 {
			sb.WriteString(fmt.Sprintf("(File %s omitted: file budget exhausted)\n", f))
			continue
		}
		block := fileio.ReadFile(f, fileio.ReadOptions{})
		cost := tokens.RatioEstimate(block)
		if cost > *fileBudget {
			sb.WriteString(fmt.Sprintf("(File %s omitted: file budget exhausted)\n", f))
			continue
		}
		*fileBudget -= cost
		sb.WriteString(block)
		sb.WriteString("\n")
	}

	if len(turn.Images) > 0 {
		sb.WriteString(fmt.Sprintf("(Images referenced: %s)\n", strings.Join(turn.Images, ", ")))
	}
	return sb.String()
}

// InheritedModel walks a thread newest to oldest and returns the model
// recorded on the most recent assistant turn, for continuations that
// omit an explicit model. Empty when no assistant turn carries one.
func InheritedModel(thread Thread) (modelName, providerName string) {
	for i := len(thread.Turns) - 1; i >= 0; i-- {
		t := thread.Turns[i]
		if t.Role == llm.RoleAssistant && t.ModelName != "" {
			return t.ModelName, t.ModelProvider
		}
	}
	return "", ""
}

// Summarize produces a short single-line description of a thread for
// logs and status payloads.
func Summarize(thread Thread) string {
	last := ""
	if n := len(thread.Turns); n > 0 {
		last = util.TruncateRunes(thread.Turns[n-1].Content, 80)
	}
	return fmt.Sprintf("%s: %d turn(s), last: %s", thread.ID, len(thread.Turns), last)
}
