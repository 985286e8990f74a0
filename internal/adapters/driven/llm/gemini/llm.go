// Package gemini provides an LLM provider for Google Gemini via the GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/arah-ai/arah/internal/adapters/driven/llm"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// DefaultModel is used by Ping.
const DefaultModel = "gemini-2.5-flash-lite"

// Config holds configuration for the Gemini provider.
type Config struct {
	// APIKey is the Gemini API key. An empty key fails every Invoke.
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// HTTPClient overrides the SDK's default client.
	HTTPClient *http.Client
}

// Provider invokes Gemini models.
type Provider struct {
	client *genai.Client
}

// NewProvider creates a Gemini provider. A missing key is reported on use,
// not here, so the chain can surface it as a configuration error.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return &Provider{}, nil
	}
	client, err := NewClient(ctx, key, cfg.BaseURL, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return &Provider{client: client}, nil
}

// NewClient creates a GenAI client for the Gemini API backend.
func NewClient(ctx context.Context, apiKey, baseURL string, httpClient *http.Client) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return client, nil
}

// Name implements driven.LLMProvider.
func (p *Provider) Name() domain.AIProvider {
	return domain.AIProviderGemini
}

// Invoke implements driven.LLMProvider.
func (p *Provider) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	if p.client == nil {
		return "", llm.MissingKey(domain.AIProviderGemini, "GEMINI_API_KEY")
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	return llm.Retry(ctx, opts.MaxRetries, func(ctx context.Context) (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
		if err != nil {
			return "", classify(err)
		}
		return resp.Text(), nil
	})
}

// classify maps SDK errors onto the provider error taxonomy.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Provider: "gemini", Status: apiErr.Code, Body: apiErr.Message}
	}
	return fmt.Errorf("%w: gemini: %w", domain.ErrProvider, err)
}

// Ping fetches the default model's metadata.
func (p *Provider) Ping(ctx context.Context) error {
	if p.client == nil {
		return llm.MissingKey(domain.AIProviderGemini, "GEMINI_API_KEY")
	}
	if _, err := p.client.Models.Get(ctx, DefaultModel, nil); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases resources. The GenAI client holds no closable state.
func (p *Provider) Close() error {
	return nil
}
