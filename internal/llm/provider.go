package llm

import (
	"context"
	"errors"
)

var (
	ErrCompletionFailed = errors.New("completion failed")
	ErrNotConfigured    = errors.New("llm api key not configured")
)

// Provider defines the interface for generative model backends
type Provider interface {
	Complete(ctx context.Context, request *Request) (*Response, error)
}

// Request is a single freeform prompt. Zero MaxTokens or Temperature fall back to the
// provider defaults.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response represents the raw text returned by the model
type Response struct {
	Content string
}

// Unavailable is used when no API key is configured. Every call fails, so callers
// answer with their canned fallbacks.
type Unavailable struct{}

func (Unavailable) Complete(ctx context.Context, request *Request) (*Response, error) {
	return nil, ErrNotConfigured
}
