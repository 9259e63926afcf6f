// Package openai implements llm.Provider over the OpenAI-compatible
// chat completions protocol. One Client serves one logical provider
// (OpenAI itself, X.AI, DIAL, OpenRouter, or a custom endpoint); they
// differ only in base URL, credentials, and model table.
package openai

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"time"

	openailib "github.com/sashabaranov/go-openai"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// Options configures one OpenAI-compatible provider instance.
type Options struct {
	Name    string // provider identifier: "openai", "xai", "dial", "openrouter", "custom"
	APIKey  string // may be empty for unauthenticated custom endpoints
	BaseURL string // empty = api.openai.com

	// Models this provider serves. Lookup is case-insensitive.
	Models []llm.Capabilities

	// AcceptSlashModels additionally serves any "vendor/model" id not
	// claimed by a native provider (the aggregator case).
	AcceptSlashModels bool

	HTTPTimeoutSecs int // default 300
	MaxRetries      int // retries after a failed call, default 0
}

// Client implements llm.Provider using the OpenAI-compatible protocol.
type Client struct {
	client *openailib.Client
	opts   Options
	caps   map[string]llm.Capabilities
}

// NewClient creates an OpenAI-compatible provider client.
func NewClient(opts Options) (*Client, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("provider name cannot be empty")
	}
	if opts.Name != "custom" && opts.APIKey == "" {
		return nil, fmt.Errorf("provider %s requires an API key", opts.Name)
	}
	if opts.HTTPTimeoutSecs <= 0 {
		opts.HTTPTimeoutSecs = 300
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	clientConfig := openailib.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	// Prevent indefinite hangs when the API is unresponsive. Generous
	// default to accommodate slow reasoning models.
	clientConfig.HTTPClient = &http.Client{Timeout: time.Duration(opts.HTTPTimeoutSecs) * time.Second}

	caps := make(map[string]llm.Capabilities, len(opts.Models))
	for _, c := range opts.Models {
		caps[strings.ToLower(c.Model)] = c
	}

	return &Client{
		client: openailib.NewClientWithConfig(clientConfig),
		opts:   opts,
		caps:   caps,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return c.opts.Name
}

// Models lists the concrete model ids this provider serves.
func (c *Client) Models() []string {
	models := make([]string, 0, len(c.caps))
	for _, cap := range c.caps {
		models = append(models, cap.Model)
	}
	sort.Strings(models)
	return models
}

// Capabilities reports the descriptor for one of this provider's
// models. Aggregator clients synthesise a descriptor for unknown
// "vendor/model" ids from name-based detection.
func (c *Client) Capabilities(model string) (llm.Capabilities, bool) {
	if cap, ok := c.caps[strings.ToLower(model)]; ok {
		return cap, true
	}
	if c.opts.AcceptSlashModels && strings.Count(model, "/") == 1 && !strings.Contains(model, "://") {
		return SynthesizeCapabilities(model), true
	}
	return llm.Capabilities{}, false
}

// SynthesizeCapabilities builds a descriptor for a model known only by
// name, using the detection heuristics shared by all providers.
func SynthesizeCapabilities(model string) llm.Capabilities {
	window := llm.DefaultContextWindow(model)
	if window == 0 {
		window = 32_000 // safe default for unknown models
	}
	return llm.Capabilities{
		Model:                    model,
		ContextWindow:            window,
		MaxOutputTokens:          window / 4,
		SupportsExtendedThinking: llm.DetectExtendedThinking(model),
		SupportsFunctionCalling:  true,
		Tokenizer:                llm.DetectTokenizer(model),
	}
}

// Generate sends one request and returns the complete response,
// retrying failed calls with a linear backoff. Cancellation is
// honoured both mid-call and between retries.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("no messages to send")
	}

	openaiMsgs := make([]openailib.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		openaiMsgs[i] = openailib.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openailib.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    openaiMsgs,
		Temperature: req.Temperature,
	}
	if req.MaxOutputTokens > 0 {
		request.MaxTokens = req.MaxOutputTokens
	}
	if req.ReasoningEffort != "" {
		if cap, ok := c.Capabilities(req.Model); ok && cap.SupportsExtendedThinking {
			request.ReasoningEffort = req.ReasoningEffort
			// Reasoning models reject explicit temperature.
			request.Temperature = 0
		}
	}

	var resp openailib.ChatCompletionResponse
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		resp, lastErr = c.client.CreateChatCompletion(ctx, request)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return llm.GenerateResponse{}, ctx.Err()
		}
		if attempt < c.opts.MaxRetries {
			wait := time.Duration(attempt+1) * time.Second
			log.Printf("[LLM] %s retry %d/%d after %v, error: %v", c.opts.Name, attempt+1, c.opts.MaxRetries, wait, lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return llm.GenerateResponse{}, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return llm.GenerateResponse{}, fmt.Errorf("%s call failed after %d retries: %w", c.opts.Name, c.opts.MaxRetries, lastErr)
	}

	if len(resp.Choices) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("no choices returned from %s", c.opts.Name)
	}

	return llm.GenerateResponse{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}
