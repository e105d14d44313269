// Package ai wraps the LLM completion and embedding providers.
package ai

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// Request is one single-turn completion.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

var ErrEmptyCompletion = errors.New("empty completion")

// StatusCode extracts the HTTP status from a provider error, or 0 when the
// error did not come from an HTTP response.
func StatusCode(err error) int {
	var oe *openai.Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	return 0
}
