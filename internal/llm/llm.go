package llm

import (
	"context"
	"errors"
)

// Client abstracts the generative-text provider. Callers must tolerate
// malformed or non-JSON output and fall back deterministically.
type Client interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
	// CompleteJSON sends a prompt with a JSON response hint. The returned
	// text is still unvalidated; parsing stays with the caller.
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("generative model not configured")

// PlaceholderClient is the stub used when no API key is present. Every call
// fails with ErrNotConfigured so callers exercise their fallback paths.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}

// CompleteJSON returns ErrNotConfigured.
func (PlaceholderClient) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	_ = ctx
	_ = prompt
	return "", ErrNotConfigured
}
