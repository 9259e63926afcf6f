// Package llm defines the provider-neutral types shared by all LLM
// provider implementations.
package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"`    // "user", "assistant", "system"
	Content string `json:"content"` // The message text
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerateRequest carries one provider call. Model is the concrete
// model id the provider registered; the resolver has already stripped
// any ":option" suffix.
type GenerateRequest struct {
	Model           string
	Messages        []Message
	Temperature     float32
	MaxOutputTokens int
	ReasoningEffort string // "", "low", "medium", "high"; only for reasoning models
}

// GenerateResponse is the provider's answer to a GenerateRequest.
type GenerateResponse struct {
	Content      string
	Model        string // concrete model the provider used
	InputTokens  int    // 0 when the provider did not report usage
	OutputTokens int
}

// TokenizerKind selects how token estimation counts a model's text.
type TokenizerKind int

const (
	// TokenizerRatio4 is the 1 token ~= 4 chars heuristic used when no
	// real tokenizer is available for the model.
	TokenizerRatio4 TokenizerKind = iota
	// TokenizerO200K is tiktoken o200k_base (GPT-4o, GPT-4.1, GPT-5, o3, o4 series).
	TokenizerO200K
	// TokenizerCL100K is tiktoken cl100k_base (GPT-3.5, GPT-4).
	TokenizerCL100K
	// TokenizerProviderSpecific defers to the provider's own counter.
	TokenizerProviderSpecific
)

// Capabilities describes one concrete model.
type Capabilities struct {
	Model                    string        `yaml:"model"`
	ContextWindow            int           `yaml:"context_window"`
	MaxOutputTokens          int           `yaml:"max_output_tokens"`
	SupportsImages           bool          `yaml:"supports_images"`
	SupportsExtendedThinking bool          `yaml:"supports_extended_thinking"`
	SupportsFunctionCalling  bool          `yaml:"supports_function_calling"`
	Tokenizer                TokenizerKind `yaml:"-"`
}

// ToolCategory steers model selection in auto mode.
type ToolCategory int

const (
	// FastResponse prefers low-latency models.
	FastResponse ToolCategory = iota
	// ExtendedReasoning prefers deep-thinking models.
	ExtendedReasoning
)

// String returns the category name used in logs and cache keys.
func (c ToolCategory) String() string {
	if c == ExtendedReasoning {
		return "extended_reasoning"
	}
	return "fast_response"
}

// Provider is the interface every configured backend implements.
// Implementations must honour ctx cancellation in Generate.
type Provider interface {
	// Name returns the provider identifier ("openai", "gemini", ...).
	Name() string

	// Models lists the concrete model ids this provider serves,
	// post allow-list filtering.
	Models() []string

	// Capabilities reports the descriptor for one of this provider's
	// models. ok is false for models the provider does not serve.
	Capabilities(model string) (Capabilities, bool)

	// Generate sends one request and returns the complete response.
	Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, error)
}
