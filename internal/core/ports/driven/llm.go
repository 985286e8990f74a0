package driven

import (
	"context"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
)

// LLMProvider invokes a hosted or local language model.
// One provider serves many model names; the synthesizer picks the model per call.
//
// Implementations may include:
//   - OpenRouter and OpenAI-compatible gateways
//   - Anthropic (Claude)
//   - Google Gemini
//   - Ollama (local models)
type LLMProvider interface {
	// Invoke sends a single-turn prompt to model and returns the completion text.
	// Missing credentials wrap domain.ErrConfiguration; timeouts and server
	// errors wrap domain.ErrProvider.
	Invoke(ctx context.Context, model, prompt string, opts InvokeOptions) (string, error)

	// Name returns the provider identifier.
	Name() domain.AIProvider

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// InvokeOptions configures one model call.
type InvokeOptions struct {
	// Timeout bounds the whole call including retries. Zero means the provider default.
	Timeout time.Duration

	// MaxRetries is how many times a transient failure is retried on the same model.
	MaxRetries int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int
}
