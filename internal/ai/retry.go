package ai

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"clinic-agent/internal/metrics"
)

const (
	DefaultAttempts = 3
	DefaultBackoff  = 2 * time.Second
)

// RetryingCompleter retries server-class and transport failures with
// exponential backoff. Client errors (4xx) fail immediately.
type RetryingCompleter struct {
	next     Completer
	provider string
	attempts uint64
	base     time.Duration
}

func WithRetry(next Completer, provider string, attempts int, base time.Duration) *RetryingCompleter {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if base <= 0 {
		base = DefaultBackoff
	}
	return &RetryingCompleter{next: next, provider: provider, attempts: uint64(attempts), base: base}
}

func (r *RetryingCompleter) Complete(ctx context.Context, req Request) (string, error) {
	backoff := retry.WithMaxRetries(r.attempts-1, retry.NewExponential(r.base))

	var out string
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		res, err := r.next.Complete(ctx, req)
		if err == nil {
			out = res
			metrics.LLMCalls.WithLabelValues(r.provider, "ok").Inc()
			return nil
		}
		if !retryable(ctx, err) {
			metrics.LLMCalls.WithLabelValues(r.provider, "fatal").Inc()
			return err
		}
		metrics.LLMCalls.WithLabelValues(r.provider, "retry").Inc()
		log.Warn().Err(err).Str("provider", r.provider).Int("attempt", attempt).Msg("llm call failed, retrying")
		return retry.RetryableError(err)
	})
	return out, err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	code := StatusCode(err)
	return code == 0 || code >= 500
}
