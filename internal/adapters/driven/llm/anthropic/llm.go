// Package anthropic provides an LLM provider using the Anthropic Messages API.
package anthropic

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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 2048

	// anthropicVersion is the required API version header.
	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is the Anthropic API key. An empty key fails every Invoke.
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Provider invokes Claude models.
type Provider struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// messagesRequest is the Anthropic /v1/messages request format.
type messagesRequest struct {
	Model       string            `json:"model"`
	Messages    []messagesMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
}

// messagesMessage is the Anthropic message format.
type messagesMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse is the Anthropic /v1/messages response format.
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewProvider creates a new Anthropic provider.
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
	return &Provider{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
	}
}

// Name implements driven.LLMProvider.
func (p *Provider) Name() domain.AIProvider {
	return domain.AIProviderAnthropic
}

func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": anthropicVersion,
	}
}

// Invoke implements driven.LLMProvider.
func (p *Provider) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	if p.apiKey == "" {
		return "", llm.MissingKey(domain.AIProviderAnthropic, "ANTHROPIC_API_KEY")
	}
	// Anthropic requires max_tokens to be set
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	reqBody := messagesRequest{
		Model:       model,
		Messages:    []messagesMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}
	return llm.Retry(ctx, opts.MaxRetries, func(ctx context.Context) (string, error) {
		var resp messagesResponse
		if err := llm.PostJSON(ctx, p.client, "anthropic", p.baseURL+"/v1/messages", p.headers(), reqBody, &resp); err != nil {
			return "", err
		}
		if resp.Error != nil {
			return "", fmt.Errorf("%w: anthropic error: %s", domain.ErrProvider, resp.Error.Message)
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if block.Type == "text" {
				sb.WriteString(block.Text)
			}
		}
		return sb.String(), nil
	})
}

// Ping lists models, which validates the key without running inference.
func (p *Provider) Ping(ctx context.Context) error {
	if p.apiKey == "" {
		return llm.MissingKey(domain.AIProviderAnthropic, "ANTHROPIC_API_KEY")
	}
	return llm.Get(ctx, p.client, "anthropic", p.baseURL+"/v1/models", p.headers())
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
