// Package rerank provides a cross-encoder reranker over the /rerank HTTP API
// served by Jina, Cohere-compatible gateways and text-embeddings-inference.
package rerank

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

// Ensure Client implements the interface.
var _ driven.Reranker = (*Client)(nil)

// DefaultTimeout bounds one scoring request.
const DefaultTimeout = 10 * time.Second

// Client scores passages with a remote cross-encoder.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// rerankRequest is the /rerank request format.
type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// rerankResponse is the /rerank response format.
type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// New creates a reranker client from cfg. It returns nil when no endpoint
// is configured.
func New(cfg domain.RerankConfig) *Client {
	if !cfg.IsConfigured() {
		return nil
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Score implements driven.Reranker. Passages missing from the response
// score zero.
func (c *Client) Score(ctx context.Context, model, query string, passages []string) ([]float64, error) {
	if len(passages) == 0 {
		return nil, nil
	}
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}
	req := rerankRequest{Model: model, Query: query, Documents: passages, TopN: len(passages)}

	var resp rerankResponse
	if err := llm.PostJSON(ctx, c.client, "rerank", c.baseURL+"/rerank", headers, req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, err)
	}

	scores := make([]float64, len(passages))
	for _, r := range resp.Results {
		if r.Index < 0 || r.Index >= len(passages) {
			return nil, fmt.Errorf("%w: rerank: result index %d out of range", domain.ErrRerankUnavailable, r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
