package workflow

import "fmt"

// RequiredActions derives the client-side work the engine demands
// before the next call, deterministically from (tool, step, confidence).
// The strings are advisory; the engine never executes them.
func RequiredActions(toolName string, stepNumber, totalSteps int, confidence string) []string {
	// Step 1: map the territory.
	if stepNumber == 1 {
		switch toolName {
		case "debug":
			return []string{
				"Read the code related to the reported symptom and trace the failing path",
				"Search for recent changes touching the affected files",
				"List every file you examine in files_checked, even dead ends",
			}
		case "codereview", "secaudit":
			return []string{
				"Read the files under review end to end before judging them",
				"Map entry points, trust boundaries, and data flow",
				"Record each file you open in files_checked",
			}
		case "planner":
			return []string{
				"State the objective and its constraints precisely",
				"Identify dependencies between the known pieces of work",
			}
		default:
			return []string{
				"Read and map the relevant code before drawing conclusions",
				"Record every file you examine in files_checked",
			}
		}
	}

	// High-confidence late steps: verify and close.
	if confidence == "very_high" || confidence == "almost_certain" || stepNumber >= totalSteps {
		return []string{
			"Verify your conclusion directly against the code rather than from memory",
			"Check for edge cases or call sites that contradict the conclusion",
			fmt.Sprintf("If verification holds, make the next call with next_step_required=false to finalize the %s", toolName),
		}
	}

	// Intermediate steps: deepen and challenge.
	return []string{
		"Deepen the investigation along the most promising lead from your findings",
		"Actively look for evidence that contradicts your current hypothesis",
		"Update relevant_files and relevant_context with what this step surfaced",
	}
}

// StepGuidance is the one-line next_steps message accompanying a pause.
func StepGuidance(toolName string, stepNumber int, actionCount int) string {
	return fmt.Sprintf(
		"Do NOT call %s again yet. Complete the %d required action(s) from step %d first, then report back with your findings.",
		toolName, actionCount, stepNumber)
}
