// Package ollama provides an LLM provider using a local Ollama instance.
package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/adapters/driven/llm"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Ollama provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Provider invokes models served by Ollama.
type Provider struct {
	client  *http.Client
	baseURL string
}

// generateRequest is the Ollama /api/generate request format.
type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *options `json:"options,omitempty"`
}

// options holds generation parameters.
type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

// generateResponse is the Ollama /api/generate response format.
type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewProvider creates a new Ollama provider. Ollama needs no credentials.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{client: client, baseURL: strings.TrimRight(cfg.BaseURL, "/")}
}

// Name implements driven.LLMProvider.
func (p *Provider) Name() domain.AIProvider {
	return domain.AIProviderOllama
}

// Invoke implements driven.LLMProvider.
func (p *Provider) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	reqBody := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: &options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature},
	}
	return llm.Retry(ctx, opts.MaxRetries, func(ctx context.Context) (string, error) {
		var resp generateResponse
		if err := llm.PostJSON(ctx, p.client, "ollama", p.baseURL+"/api/generate", nil, reqBody, &resp); err != nil {
			return "", err
		}
		return resp.Response, nil
	})
}

// Ping checks the server is up by listing local models.
func (p *Provider) Ping(ctx context.Context) error {
	return llm.Get(ctx, p.client, "ollama", p.baseURL+"/api/tags", nil)
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
