// Package server ties the core together: the per-call request pipeline,
// the error taxonomy, and the MCP transport binding.
package server

import (
	"errors"
	"fmt"

	"github.com/toolbridge/toolbridge/internal/conversation"
	"github.com/toolbridge/toolbridge/internal/tokens"
)

// ErrorKind is the error taxonomy surfaced to clients.
type ErrorKind string

const (
	KindInvalidRequest     ErrorKind = "invalid_request"
	KindUnknownTool        ErrorKind = "unknown_tool"
	KindUnknownContinue    ErrorKind = "unknown_continuation"
	KindModelUnavailable   ErrorKind = "model_unavailable"
	KindCodeTooLarge       ErrorKind = "code_too_large"
	KindUnsupportedContent ErrorKind = "unsupported_content_type"
	KindProviderFailure    ErrorKind = "provider_failure"
	KindInternal           ErrorKind = "internal"
)

// ToolError is the structured failure returned to the client. All
// failures share the success envelope's JSON shape: free-form text
// under content, machine-readable context under metadata.
type ToolError struct {
	Kind     ErrorKind
	Content  string
	Metadata map[string]any
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Content)
}

// Envelope renders the error as the client-facing JSON object.
func (e *ToolError) Envelope() map[string]any {
	env := map[string]any{
		"status":  "error",
		"content": map[string]any{"code": string(e.Kind), "message": e.Content},
	}
	if len(e.Metadata) > 0 {
		env["metadata"] = e.Metadata
	}
	return env
}

func invalidRequest(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindInvalidRequest, Content: fmt.Sprintf(format, args...)}
}

// classify wraps an arbitrary error into a ToolError, mapping the known
// sentinel errors onto their taxonomy kinds.
func classify(err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	switch {
	case errors.Is(err, conversation.ErrUnknownContinuation):
		return &ToolError{Kind: KindUnknownContinue, Content: err.Error()}
	case errors.Is(err, tokens.ErrUnsupportedContentType):
		return &ToolError{Kind: KindUnsupportedContent, Content: err.Error()}
	default:
		return &ToolError{Kind: KindInternal, Content: err.Error()}
	}
}
