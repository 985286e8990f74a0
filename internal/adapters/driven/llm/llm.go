// Package llm holds helpers shared by the language model provider adapters.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
)

// retryBackoff is the pause before the first retry; it doubles per attempt.
const retryBackoff = 250 * time.Millisecond

// StatusError is a non-2xx HTTP response from a provider.
type StatusError struct {
	Provider string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: API returned status %d: %s", e.Provider, e.Status, e.Body)
}

// Unwrap maps auth failures to domain.ErrConfiguration and everything
// else to domain.ErrProvider.
func (e *StatusError) Unwrap() error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return domain.ErrConfiguration
	}
	return domain.ErrProvider
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= http.StatusInternalServerError
}

// MissingKey returns the configuration error for a provider without credentials.
func MissingKey(provider domain.AIProvider, envVar string) error {
	return fmt.Errorf("%w: %s API key is not set (%s)", domain.ErrConfiguration, provider, envVar)
}

// Retry runs fn up to maxRetries+1 times. Only transport failures and
// retryable statuses are retried.
func Retry(ctx context.Context, maxRetries int, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	wait := retryBackoff
	for attempt := 0; attempt <= max(maxRetries, 0); attempt++ {
		if attempt > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return "", fmt.Errorf("%w: %w", domain.ErrProvider, ctx.Err())
			case <-t.C:
			}
			wait *= 2
		}
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			break
		}
		if errors.Is(err, domain.ErrConfiguration) || ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// PostJSON sends body as JSON and decodes a 2xx response into out.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: send request: %w", domain.ErrProvider, provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %w", domain.ErrProvider, provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Provider: provider, Status: resp.StatusCode, Body: truncate(string(raw), 300)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrProvider, provider, err)
	}
	return nil
}

// Get issues a GET and fails on a non-2xx status. Used by Ping.
func Get(ctx context.Context, client *http.Client, provider, url string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: failed to create ping request: %w", provider, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: ping failed: %w", provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return &StatusError{Provider: provider, Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
