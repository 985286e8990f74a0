package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCacheMiss indicates a cache key is absent or expired.
	ErrCacheMiss = errors.New("cache miss")

	// Pipeline Errors.

	// ErrConfiguration indicates missing provider credentials or settings.
	// It is surfaced to the user as an instructional message and never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrProvider indicates a language model call timed out or failed.
	// The caller moves on to the next configured provider.
	ErrProvider = errors.New("provider error")

	// ErrProvidersExhausted indicates every configured provider failed.
	ErrProvidersExhausted = errors.New("all providers failed")

	// ErrRetrieval indicates a vector or sparse backend failure.
	// Retrieval degrades to an empty candidate set.
	ErrRetrieval = errors.New("retrieval error")

	// ErrValidation indicates a polished rewrite disagrees with deterministic facts.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFact indicates a row could not be turned into a complete fact.
	ErrInvalidFact = errors.New("invalid fact")

	// ErrInvalidTransition indicates a request state machine misuse.
	ErrInvalidTransition = errors.New("invalid state transition")

	// Service Availability Errors.

	// ErrLLMUnavailable indicates no language model provider is configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Dense search in vector backends is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankUnavailable indicates the cross-encoder reranker is not configured.
	ErrRerankUnavailable = errors.New("reranker unavailable")
)
