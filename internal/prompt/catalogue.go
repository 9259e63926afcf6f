// Package prompt holds the system-prompt catalogue: built-in defaults
// keyed by prompt id, with optional file-based overrides so operators
// can tune a tool's prompt without rebuilding.
package prompt

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Catalogue resolves prompt ids to system prompt text.
// Lookup order: override file <dir>/<id>.md (if a directory was
// configured), then the built-in default.
type Catalogue struct {
	mu          sync.RWMutex
	overrideDir string
	cache       map[string]string
}

// NewCatalogue creates a Catalogue. overrideDir may be empty.
func NewCatalogue(overrideDir string) *Catalogue {
	return &Catalogue{
		overrideDir: overrideDir,
		cache:       make(map[string]string),
	}
}

// Get returns the system prompt for id. Unknown ids return an empty
// string; tools treat that as "no system prompt".
func (c *Catalogue) Get(id string) string {
	c.mu.RLock()
	if p, ok := c.cache[id]; ok {
		c.mu.RUnlock()
		return p
	}
	c.mu.RUnlock()

	p := c.load(id)
	c.mu.Lock()
	c.cache[id] = p
	c.mu.Unlock()
	return p
}

// Reload drops the cache so edited override files take effect.
func (c *Catalogue) Reload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]string)
}

func (c *Catalogue) load(id string) string {
	if c.overrideDir != "" {
		path := filepath.Join(c.overrideDir, id+".md")
		if data, err := os.ReadFile(path); err == nil {
			log.Printf("[Prompt] Using override for %s from %s", id, path)
			return strings.TrimSpace(string(data))
		}
	}
	return defaults[id]
}

// defaults are the built-in system prompts, keyed by prompt id.
var defaults = map[string]string{
	"chat": `You are a senior engineering collaborator. Answer directly and
concretely. Prefer working examples over abstract advice. If the
question is ambiguous, state your assumption and answer anyway.`,

	"debug": `You are an expert debugger performing root cause analysis.
You receive an investigation summary: step-by-step findings, examined
files, suspicious functions, and ranked hypotheses. Validate or refute
the hypotheses against the evidence, identify the minimal fix, and call
out any regression risk. If the evidence is insufficient, say precisely
what is missing.`,

	"analyze": `You are a software architect reviewing a codebase
holistically. Assess structure, layering, coupling, scalability, and
maintainability. Ground every observation in the files provided and
prioritise strategic findings over style nits.`,

	"codereview": `You are a meticulous code reviewer. Report concrete
defects first (correctness, security, resource handling), then
significant design concerns, then maintainability issues. Cite file and
line for every finding and propose a specific fix.`,

	"thinkdeep": `You are a senior engineering thought partner extending
a prior line of reasoning. Challenge assumptions, surface alternatives
that were not considered, and identify edge cases the analysis missed.
Be direct about disagreements and justify them.`,

	"testgen": `You are a test engineering specialist. From the
investigated code paths, produce a test plan and concrete test cases
covering happy paths, boundary conditions, and failure modes. Follow
the project's existing test conventions.`,

	"planner": `You are a planning specialist. Break the stated objective
into ordered, dependency-aware steps with clear completion criteria.
Flag steps with open questions rather than guessing.`,

	"docgen": `You are a documentation specialist. Produce precise,
maintainable documentation for the analysed code: purpose, parameters,
return values, error behaviour, and gotchas. Match the project's
existing documentation style.`,

	"secaudit": `You are a security auditor. Evaluate the investigated
code against OWASP risks, injection surfaces, authentication and
authorization flaws, secret handling, and unsafe dependencies. Rank
findings by severity and provide remediation guidance.`,

	"refactor": `You are a refactoring specialist. From the investigated
code, identify code smells, decomposition opportunities, and
modernisation candidates. Propose changes that can land incrementally
without behaviour change.`,

	"consensus": `You are one voice in a multi-model consensus. Give your
independent judgement on the proposal, state your confidence, and list
the strongest argument against your own position.`,
}
