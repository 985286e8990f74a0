package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Ensure RateLimited implements the interface.
var _ driven.LLMProvider = (*RateLimited)(nil)

// RateLimited throttles Invoke calls on a wrapped provider with a token bucket.
type RateLimited struct {
	driven.LLMProvider
	limiter *rate.Limiter
}

// NewRateLimited wraps p. A non-positive rps returns p unchanged.
func NewRateLimited(p driven.LLMProvider, rps float64, burst int) driven.LLMProvider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{LLMProvider: p, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Invoke waits for a token and then delegates. A wait cut short by the
// context counts as a provider failure so the chain moves on.
func (r *RateLimited) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %s rate limit: %w", domain.ErrProvider, r.Name(), err)
	}
	return r.LLMProvider.Invoke(ctx, model, prompt, opts)
}
