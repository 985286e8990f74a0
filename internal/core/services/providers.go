package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// ModelCall is one request to the provider chain.
type ModelCall struct {
	// Models are tried in order. Names may carry a "provider:" prefix.
	Models []string

	Prompt  string
	Options driven.InvokeOptions

	// RetrySleep is the pause between failed attempts.
	RetrySleep time.Duration

	// RejectEmpty counts an empty completion as a failed attempt.
	RejectEmpty bool
}

// ModelResult is the outcome of a ModelCall.
type ModelResult struct {
	OK           bool
	Text         string
	Model        string
	FallbackUsed bool
	LLMMs        int64
	Err          error
}

// ProviderChain invokes models one at a time until one succeeds.
type ProviderChain struct {
	providers map[domain.AIProvider]driven.LLMProvider
	def       domain.AIProvider
	sleep     func(ctx context.Context, d time.Duration)
}

// NewProviderChain creates a chain. Model names without a known provider
// prefix are sent to def.
func NewProviderChain(def domain.AIProvider, providers ...driven.LLMProvider) (*ProviderChain, error) {
	if len(providers) == 0 {
		return nil, domain.ErrLLMUnavailable
	}
	m := make(map[domain.AIProvider]driven.LLMProvider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		m[p.Name()] = p
	}
	if len(m) == 0 {
		return nil, domain.ErrLLMUnavailable
	}
	return &ProviderChain{providers: m, def: def, sleep: sleepCtx}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// CandidateModels returns primary followed by backups, without blanks or repeats.
func CandidateModels(primary string, backups []string) []string {
	out := make([]string, 0, len(backups)+1)
	seen := make(map[string]struct{}, len(backups)+1)
	for _, m := range append([]string{primary}, backups...) {
		name := strings.TrimSpace(m)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// Invoke tries each model in order. A configuration error stops the loop
// since no other model on the same provider can succeed either.
func (c *ProviderChain) Invoke(ctx context.Context, call ModelCall) ModelResult {
	var lastErr error
	for idx, name := range call.Models {
		target := domain.ParseModelTarget(name, c.def)
		if _, ok := c.providers[target.Provider]; !ok {
			lastErr = fmt.Errorf("%w: provider %s is not configured", domain.ErrConfiguration, target.Provider)
			logger.Warn("skip model %s: %v", target, lastErr)
			continue
		}
		started := time.Now()

		text, err := c.invokeOne(ctx, target, call)
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" || !call.RejectEmpty {
				return ModelResult{
					OK:           true,
					Text:         text,
					Model:        name,
					FallbackUsed: idx > 0,
					LLMMs:        time.Since(started).Milliseconds(),
				}
			}
			err = fmt.Errorf("%w: %s returned empty output", domain.ErrProvider, target)
		}

		lastErr = err
		logger.Warn("model %s failed: %v", target, err)
		if errors.Is(err, domain.ErrConfiguration) {
			break
		}
		if idx < len(call.Models)-1 {
			c.sleep(ctx, call.RetrySleep)
		}
	}
	if lastErr == nil {
		lastErr = domain.ErrLLMUnavailable
	}
	return ModelResult{
		FallbackUsed: len(call.Models) > 1,
		Err:          fmt.Errorf("%w: %w", domain.ErrProvidersExhausted, lastErr),
	}
}

func (c *ProviderChain) invokeOne(ctx context.Context, target domain.ModelTarget, call ModelCall) (string, error) {
	p := c.providers[target.Provider]
	callCtx := ctx
	if call.Options.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, call.Options.Timeout)
		defer cancel()
	}
	text, err := p.Invoke(callCtx, target.Model, call.Prompt, call.Options)
	if err != nil && !errors.Is(err, domain.ErrConfiguration) && !errors.Is(err, domain.ErrProvider) {
		err = fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}
	return text, err
}
