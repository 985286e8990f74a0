// Package openai provides an LLM provider for OpenAI-compatible chat APIs,
// including the OpenRouter gateway.
package openai

import (
	"context"
	"fmt"
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
	DefaultBaseURL           = "https://api.openai.com/v1"
	DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	DefaultTimeout           = 120 * time.Second
)

// Config holds configuration for an OpenAI-compatible provider.
type Config struct {
	// Provider is the identifier reported by Name (openai or openrouter).
	Provider domain.AIProvider

	// APIKey is the bearer token. An empty key fails every Invoke with a
	// configuration error.
	APIKey string

	// BaseURL is the API base URL. Defaults per provider.
	BaseURL string

	// Referer and Title are sent as the OpenRouter attribution headers.
	Referer string
	Title   string

	// Timeout is the HTTP client timeout (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Provider invokes chat completions on an OpenAI-compatible API.
type Provider struct {
	client   *http.Client
	provider domain.AIProvider
	baseURL  string
	apiKey   string
	referer  string
	title    string
}

// chatCompletionRequest is the /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature"`
}

// chatCompletionMsg is the chat message format.
type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionResponse is the /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewProvider creates an OpenAI-compatible provider.
func NewProvider(cfg Config) *Provider {
	if cfg.Provider == "" {
		cfg.Provider = domain.AIProviderOpenAI
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
		if cfg.Provider == domain.AIProviderOpenRouter {
			cfg.BaseURL = DefaultOpenRouterBaseURL
		}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Provider{
		client:   client,
		provider: cfg.Provider,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   strings.TrimSpace(cfg.APIKey),
		referer:  cfg.Referer,
		title:    cfg.Title,
	}
}

// Name implements driven.LLMProvider.
func (p *Provider) Name() domain.AIProvider {
	return p.provider
}

func (p *Provider) headers() map[string]string {
	h := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if p.provider == domain.AIProviderOpenRouter {
		if p.referer != "" {
			h["HTTP-Referer"] = p.referer
		}
		if p.title != "" {
			h["X-Title"] = p.title
		}
	}
	return h
}

func (p *Provider) envVar() string {
	if p.provider == domain.AIProviderOpenRouter {
		return "OPENROUTER_API_KEY"
	}
	return "OPENAI_API_KEY"
}

// Invoke implements driven.LLMProvider.
func (p *Provider) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	if p.apiKey == "" {
		return "", llm.MissingKey(p.provider, p.envVar())
	}
	reqBody := chatCompletionRequest{
		Model:       model,
		Messages:    []chatCompletionMsg{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	name := string(p.provider)
	return llm.Retry(ctx, opts.MaxRetries, func(ctx context.Context) (string, error) {
		var resp chatCompletionResponse
		if err := llm.PostJSON(ctx, p.client, name, p.baseURL+"/chat/completions", p.headers(), reqBody, &resp); err != nil {
			return "", err
		}
		if resp.Error != nil {
			return "", fmt.Errorf("%w: %s error: %s", domain.ErrProvider, name, resp.Error.Message)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("%w: %s: no response choices returned", domain.ErrProvider, name)
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// Ping validates the API key against the /models endpoint without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	if p.apiKey == "" {
		return llm.MissingKey(p.provider, p.envVar())
	}
	return llm.Get(ctx, p.client, string(p.provider), p.baseURL+"/models", p.headers())
}

// Close releases resources.
func (p *Provider) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
