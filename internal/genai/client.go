// Package genai is the boundary adapter around the external text-completion
// backend. It holds no retry logic; callers decide what to do with a typed
// backend error.
package genai

import (
	"context"
	"fmt"
	"strings"
)

// Options are the generation parameters passed through to the backend.
type Options struct {
	Temperature     float32
	MaxOutputTokens int
	StopSequences   []string
}

// LLMClient generates raw SQL text from a prompt.
type LLMClient interface {
	GenerateSQL(ctx context.Context, prompt string, opts Options) (string, error)
	Close() error
}

// ErrorKind classifies a backend failure.
type ErrorKind int

const (
	ErrorKindConnection ErrorKind = iota
	ErrorKindTimeout
	ErrorKindAuth
	ErrorKindRateLimit
	ErrorKindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindAuth:
		return "auth"
	case ErrorKindRateLimit:
		return "rate_limit"
	case ErrorKindMalformed:
		return "malformed_response"
	default:
		return "connection"
	}
}

// BackendError wraps a backend failure with its classification.
type BackendError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation backend error (%s): %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("generation backend error (%s): %s", e.Kind, e.Msg)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// stripMarkdownFences removes a surrounding ```sql fence when the model
// wraps its answer despite instructions.
func stripMarkdownFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}
