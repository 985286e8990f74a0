// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	geminiembed "github.com/arah-ai/arah/internal/adapters/driven/embedding/gemini"
	ollamaembed "github.com/arah-ai/arah/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/arah-ai/arah/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/arah-ai/arah/internal/adapters/driven/llm/anthropic"
	geminillm "github.com/arah-ai/arah/internal/adapters/driven/llm/gemini"
	ollamallm "github.com/arah-ai/arah/internal/adapters/driven/llm/ollama"
	openaillm "github.com/arah-ai/arah/internal/adapters/driven/llm/openai"
	"github.com/arah-ai/arah/internal/adapters/driven/rerank"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the AI services built from configuration.
type InitResult struct {
	Providers        []driven.LLMProvider
	EmbeddingService driven.EmbeddingService
	Reranker         driven.Reranker
	Warnings         []string // Non-fatal issues that disabled an optional service.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	for _, p := range r.Providers {
		if p != nil {
			p.Close()
		}
	}
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
}

// Init builds every AI service cfg asks for. Providers are never pinged
// here: a missing key must surface per request as a configuration answer.
func Init(ctx context.Context, cfg domain.Config) (*InitResult, error) {
	providers, err := CreateLLMProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}
	res := &InitResult{Providers: providers}

	embedder, err := CreateEmbeddingService(ctx, cfg)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("embeddings disabled: %v", err))
		logger.Warn("embeddings disabled: %v", err)
	} else if embedder != nil {
		res.EmbeddingService = embedder
	}

	if rr := rerank.New(cfg.Rerank); rr != nil {
		res.Reranker = rr
	}
	return res, nil
}

// ReferencedProviders lists every provider the configured model chain can
// reach, default provider first.
func ReferencedProviders(cfg domain.Config) []domain.AIProvider {
	def := cfg.Synthesis.Provider
	if def == "" {
		def = domain.AIProviderOpenRouter
	}
	out := []domain.AIProvider{def}
	names := []string{cfg.Synthesis.Model, cfg.Synthesis.DocModel, cfg.Synthesis.FastModel, cfg.Analytics.PolishModel}
	names = append(names, cfg.Synthesis.BackupModels...)
	for _, name := range names {
		if name == "" {
			continue
		}
		p := domain.ParseModelTarget(name, def).Provider
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// CreateLLMProviders creates one provider per referenced provider. Remote
// providers are wrapped in the configured rate limit.
func CreateLLMProviders(ctx context.Context, cfg domain.Config) ([]driven.LLMProvider, error) {
	var out []driven.LLMProvider
	for _, name := range ReferencedProviders(cfg) {
		p, err := CreateLLMProvider(ctx, name, cfg.Providers)
		if err != nil {
			return nil, err
		}
		if name.RequiresAPIKey() && cfg.Providers.APIKey(name) == "" {
			logger.Warn("%s API key is not set; requests routed to it will fail", name)
		}
		if name.IsLocal() {
			out = append(out, p)
			continue
		}
		out = append(out, NewRateLimited(p, cfg.Providers.RateLimit, cfg.Providers.RateBurst))
	}
	return out, nil
}

// CreateLLMProvider creates the adapter for one provider. Missing keys are
// reported at invoke time.
func CreateLLMProvider(ctx context.Context, name domain.AIProvider, cfg domain.ProvidersConfig) (driven.LLMProvider, error) {
	switch name {
	case domain.AIProviderOpenRouter:
		return openaillm.NewProvider(openaillm.Config{
			Provider: domain.AIProviderOpenRouter,
			APIKey:   cfg.OpenRouterAPIKey,
			BaseURL:  cfg.OpenRouterBaseURL,
			Referer:  cfg.OpenRouterReferer,
			Title:    cfg.OpenRouterTitle,
		}), nil
	case domain.AIProviderOpenAI:
		return openaillm.NewProvider(openaillm.Config{
			Provider: domain.AIProviderOpenAI,
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
		}), nil
	case domain.AIProviderAnthropic:
		return anthropicllm.NewProvider(anthropicllm.Config{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
		}), nil
	case domain.AIProviderGemini:
		return geminillm.NewProvider(ctx, geminillm.Config{APIKey: cfg.GeminiAPIKey})
	case domain.AIProviderOllama:
		return ollamallm.NewProvider(ollamallm.Config{BaseURL: cfg.OllamaBaseURL}), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", name)
	}
}

// CreateEmbeddingService creates the query embedder, or nil when none is configured.
func CreateEmbeddingService(ctx context.Context, cfg domain.Config) (driven.EmbeddingService, error) {
	e := cfg.Embedding
	if !e.IsConfigured() {
		return nil, nil
	}
	switch e.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.Providers.OllamaBaseURL,
			Model:      e.Model,
			Dimensions: e.Dimensions,
		}), nil
	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.Providers.OpenAIAPIKey,
			BaseURL:    cfg.Providers.OpenAIBaseURL,
			Model:      e.Model,
			Dimensions: e.Dimensions,
		})
	case domain.AIProviderOpenRouter:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.Providers.OpenRouterAPIKey,
			BaseURL:    cfg.Providers.OpenRouterBaseURL,
			Model:      e.Model,
			Dimensions: e.Dimensions,
		})
	case domain.AIProviderGemini:
		return geminiembed.NewEmbeddingService(ctx, geminiembed.Config{
			APIKey:     cfg.Providers.GeminiAPIKey,
			Model:      e.Model,
			Dimensions: e.Dimensions,
		})
	default:
		return nil, fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrEmbeddingUnavailable, e.Provider)
	}
}

// PingResult is the connectivity outcome for one provider.
type PingResult struct {
	Provider domain.AIProvider
	Err      error
}

// PingAll checks every provider concurrently, each bounded by pingTimeout.
func PingAll(ctx context.Context, providers []driven.LLMProvider) []PingResult {
	out := make([]PingResult, len(providers))
	done := make(chan struct{}, len(providers))
	for i, p := range providers {
		go func() {
			defer func() { done <- struct{}{} }()
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			defer cancel()
			out[i] = PingResult{Provider: p.Name(), Err: p.Ping(pctx)}
		}()
	}
	for range providers {
		<-done
	}
	return out
}

// Healthy reports whether at least one provider answered its ping.
func Healthy(results []PingResult) error {
	var errs []error
	for _, r := range results {
		if r.Err == nil {
			return nil
		}
		errs = append(errs, r.Err)
	}
	if len(errs) == 0 {
		return domain.ErrLLMUnavailable
	}
	return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, errors.Join(errs...))
}
