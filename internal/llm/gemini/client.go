// Package gemini implements llm.Provider for Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/toolbridge/toolbridge/internal/llm"
)

// Options configures the Gemini provider.
type Options struct {
	APIKey          string
	Models          []llm.Capabilities
	HTTPTimeoutSecs int
}

// Client implements llm.Provider over google.golang.org/genai.
type Client struct {
	client *genai.Client
	caps   map[string]llm.Capabilities
}

// NewClient creates a Gemini provider client.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini provider requires an API key")
	}
	if opts.HTTPTimeoutSecs <= 0 {
		opts.HTTPTimeoutSecs = 300
	}

	timeout := time.Duration(opts.HTTPTimeoutSecs) * time.Second
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      strings.TrimSpace(opts.APIKey),
		HTTPClient:  &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{Timeout: &timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}

	caps := make(map[string]llm.Capabilities, len(opts.Models))
	for _, c := range opts.Models {
		caps[strings.ToLower(c.Model)] = c
	}
	return &Client{client: client, caps: caps}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "gemini"
}

// Models lists the Gemini model ids this provider serves.
func (c *Client) Models() []string {
	models := make([]string, 0, len(c.caps))
	for _, cap := range c.caps {
		models = append(models, cap.Model)
	}
	sort.Strings(models)
	return models
}

// Capabilities reports the descriptor for a served model.
func (c *Client) Capabilities(model string) (llm.Capabilities, bool) {
	cap, ok := c.caps[strings.ToLower(model)]
	return cap, ok
}

// Generate sends one request and returns the complete response.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (llm.GenerateResponse, error) {
	if len(req.Messages) == 0 {
		return llm.GenerateResponse{}, fmt.Errorf("no messages to send")
	}

	contents, systemInstruction := toContents(req.Messages)

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if cap, ok := c.Capabilities(req.Model); ok && cap.SupportsExtendedThinking && req.ReasoningEffort != "" {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: false}
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return llm.GenerateResponse{}, fmt.Errorf("gemini call failed: %w", err)
	}

	text, err := textFromResponse(resp)
	if err != nil {
		return llm.GenerateResponse{}, err
	}

	out := llm.GenerateResponse{Content: text, Model: req.Model}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

// toContents converts provider-neutral messages into genai contents.
// System messages are folded into a single system instruction.
func toContents(msgs []llm.Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, m.Content)
			continue
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, strings.Join(system, "\n\n")
}

func textFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("nil response from gemini")
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("request blocked by gemini: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in gemini response")
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return "", fmt.Errorf("response blocked by safety filters")
	case genai.FinishReasonRecitation:
		return "", fmt.Errorf("response blocked due to recitation")
	}
	if candidate.Content == nil {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}
