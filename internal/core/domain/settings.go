package domain

import (
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies a language model or embedding provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenRouter is the OpenRouter gateway (OpenAI-compatible).
	AIProviderOpenRouter AIProvider = "openrouter"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderGemini is Google Gemini via the GenAI SDK.
	AIProviderGemini AIProvider = "gemini"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenRouter, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderOllama:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p != AIProviderOllama
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenRouter:
		return "OpenRouter (cloud gateway)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderGemini:
		return "Google Gemini (cloud)"
	case AIProviderOllama:
		return "Ollama (local)"
	default:
		return unknownDescription
	}
}

// AllLLMProviders returns every provider usable for generation.
func AllLLMProviders() []AIProvider {
	return []AIProvider{AIProviderOpenRouter, AIProviderOpenAI, AIProviderAnthropic, AIProviderGemini, AIProviderOllama}
}

// ModelTarget is one entry of the provider fallback chain.
type ModelTarget struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
}

// String renders the target as provider:model.
func (t ModelTarget) String() string {
	return string(t.Provider) + ":" + t.Model
}

// ParseModelTarget splits "provider:model". Names without a known provider
// prefix belong to def, so OpenRouter slugs like "org/model:free" stay intact.
func ParseModelTarget(name string, def AIProvider) ModelTarget {
	name = strings.TrimSpace(name)
	if prefix, rest, ok := strings.Cut(name, ":"); ok {
		if p := AIProvider(strings.ToLower(prefix)); p.IsValid() && rest != "" {
			return ModelTarget{Provider: p, Model: rest}
		}
	}
	return ModelTarget{Provider: def, Model: name}
}

// Config is the immutable runtime configuration, resolved once at startup.
type Config struct {
	Retrieval RetrievalConfig
	Cache     CacheConfig
	Analytics AnalyticsConfig
	Synthesis SynthesisConfig
	Providers ProvidersConfig
	Storage   StorageConfig
	Rerank    RerankConfig
	Embedding EmbeddingConfig
}

// RetrievalConfig sizes the hybrid retriever.
type RetrievalConfig struct {
	// BasePlan applies when no mode-specific plan matches.
	BasePlan RetrievalPlan

	// BackgroundGeneral, BackgroundTargeted and Referenced are the default plans.
	BackgroundGeneral  RetrievalPlan
	BackgroundTargeted RetrievalPlan
	Referenced         RetrievalPlan

	// Optimized* are the low-latency canary plans.
	OptimizedGeneral    RetrievalPlan
	OptimizedTargeted   RetrievalPlan
	OptimizedReferenced RetrievalPlan

	// OptimizedEnabled turns canary sampling on.
	OptimizedEnabled bool

	// CanaryPct is the share of traffic, 0..100, sent to the optimized plan.
	CanaryPct int

	// FilterFallback relaxes an empty compound filter on the default plans.
	FilterFallback bool

	// OptimizedFilterFallback is the same toggle for the optimized plans.
	OptimizedFilterFallback bool

	// RelevanceThreshold discards weak evidence for background general queries.
	RelevanceThreshold float64

	// RRFK is the reciprocal rank fusion constant.
	RRFK int

	// LegacyFallback re-runs a failed optimized request on the default plan.
	LegacyFallback bool

	// SearchTimeout bounds each similarity search call.
	SearchTimeout time.Duration
}

// CacheConfig controls the shared classification cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend     string
	RedisURL    string
	MaxEntries  int
	RouteTTL    time.Duration
	MentionTTL  time.Duration
	UserDocsTTL time.Duration
}

// AnalyticsConfig controls the structured analytics engine.
type AnalyticsConfig struct {
	Enabled           bool
	LowGrades         []string
	Timezone          string
	PolishEnabled     bool
	PolishModel       string
	PolishTemperature float64
	PostValidate      bool

	// FetchTimeout bounds each row fetch from the chunk store.
	FetchTimeout time.Duration
}

// SynthesisConfig controls answer generation and the provider chain.
type SynthesisConfig struct {
	// Provider owns model names without an explicit provider prefix.
	Provider AIProvider

	// Model is the default primary model.
	Model string

	// DocModel overrides Model for doc_referenced requests.
	DocModel string

	// FastModel overrides Model for every other request.
	FastModel string

	// BackupModels are tried in order after the primary.
	BackupModels []string

	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	RetrySleep  time.Duration

	CitationEnrichment bool
	TableEnrichment    bool
	ContextMaxChars    int
	ContextMaxDocs     int

	// Optimized* cap the provider loop on the canary path.
	OptimizedTimeout    time.Duration
	OptimizedMaxRetries int
	OptimizedMaxModels  int
	OptimizedRetrySleep time.Duration
}

// ProvidersConfig carries provider credentials and endpoints.
type ProvidersConfig struct {
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterReferer string
	OpenRouterTitle   string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	AnthropicAPIKey   string
	AnthropicBaseURL  string
	GeminiAPIKey      string
	OllamaBaseURL     string

	// RateLimit is requests per second per provider, zero for unlimited.
	RateLimit float64
	RateBurst int
}

// APIKey returns the configured key for provider.
func (c ProvidersConfig) APIKey(provider AIProvider) string {
	switch provider {
	case AIProviderOpenRouter:
		return c.OpenRouterAPIKey
	case AIProviderOpenAI:
		return c.OpenAIAPIKey
	case AIProviderAnthropic:
		return c.AnthropicAPIKey
	case AIProviderGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// StorageConfig selects the chunk store backend.
type StorageConfig struct {
	// Backend is "sqlite", "postgres", "milvus" or "memory".
	Backend          string
	DataDir          string
	PostgresDSN      string
	MilvusAddr       string
	MilvusCollection string
	MetricsRingSize  int
}

// RerankConfig points at a cross-encoder scoring endpoint.
type RerankConfig struct {
	Model   string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// IsConfigured returns true if a rerank endpoint is set.
func (r RerankConfig) IsConfigured() bool {
	return r.BaseURL != ""
}

// EmbeddingConfig selects the query embedder for vector backends.
type EmbeddingConfig struct {
	Provider   AIProvider
	Model      string
	Dimensions int
}

// IsConfigured returns true if an embedding provider is set.
func (e EmbeddingConfig) IsConfigured() bool {
	return e.Provider != "" && e.Model != ""
}

// DefaultSearchTimeout bounds chunk store calls when no timeout is configured.
const DefaultSearchTimeout = 10 * time.Second

// DefaultLowGrades are the letter grades treated as low.
func DefaultLowGrades() []string {
	return []string{"C", "D", "E", "CD", "D+", "D-"}
}

// DefaultBackupModels is the OpenRouter fallback chain.
func DefaultBackupModels() []string {
	return []string{
		"openai/gpt-5-nano",
		"minimax/minimax-m2.5",
		"nvidia/nemotron-3-nano-30b-a3b:free",
		"arcee-ai/trinity-large-preview:free",
		"meta-llama/llama-3.3-70b-instruct:free",
	}
}

// DefaultConfig returns the defaults every deployment starts from.
func DefaultConfig() Config {
	return Config{
		Retrieval: RetrievalConfig{
			BasePlan:                RetrievalPlan{DenseK: 30, SparseK: 40, RerankTopN: 8},
			BackgroundGeneral:       RetrievalPlan{DenseK: 6, SparseK: 8, RerankTopN: 4},
			BackgroundTargeted:      RetrievalPlan{DenseK: 18, SparseK: 28, RerankTopN: 10, UseHybrid: true, UseRerank: true},
			Referenced:              RetrievalPlan{DenseK: 12, SparseK: 20, RerankTopN: 4, UseRerank: true},
			OptimizedGeneral:        RetrievalPlan{DenseK: 4, SparseK: 4, RerankTopN: 3},
			OptimizedTargeted:       RetrievalPlan{DenseK: 8, SparseK: 8, RerankTopN: 4},
			OptimizedReferenced:     RetrievalPlan{DenseK: 6, SparseK: 6, RerankTopN: 4},
			CanaryPct:               100,
			FilterFallback:          true,
			OptimizedFilterFallback: false,
			RelevanceThreshold:      0.18,
			RRFK:                    60,
			SearchTimeout:           DefaultSearchTimeout,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			MaxEntries:  4096,
			RouteTTL:    30 * time.Second,
			MentionTTL:  30 * time.Second,
			UserDocsTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			Enabled:           true,
			LowGrades:         DefaultLowGrades(),
			Timezone:          "Asia/Jakarta",
			PolishEnabled:     true,
			PolishModel:       "google/gemini-3-flash-preview",
			PolishTemperature: 0,
			PostValidate:      true,
			FetchTimeout:      DefaultSearchTimeout,
		},
		Synthesis: SynthesisConfig{
			Provider:            AIProviderOpenRouter,
			Model:               "google/gemini-2.5-flash-lite",
			BackupModels:        DefaultBackupModels(),
			Timeout:             45 * time.Second,
			MaxRetries:          1,
			Temperature:         0.2,
			RetrySleep:          300 * time.Millisecond,
			CitationEnrichment:  true,
			ContextMaxChars:     6000,
			ContextMaxDocs:      8,
			OptimizedTimeout:    12 * time.Second,
			OptimizedMaxRetries: 0,
			OptimizedMaxModels:  1,
			OptimizedRetrySleep: 0,
		},
		Providers: ProvidersConfig{
			OpenRouterBaseURL: "https://openrouter.ai/api/v1",
			OpenRouterReferer: "http://localhost:8000",
			OpenRouterTitle:   "Arah Academic Assistant",
			OllamaBaseURL:     "http://localhost:11434",
		},
		Storage: StorageConfig{
			Backend:          "sqlite",
			MilvusCollection: "arah_chunks",
			MetricsRingSize:  512,
		},
		Rerank: RerankConfig{
			Model:   "BAAI/bge-reranker-v2-m3",
			Timeout: 10 * time.Second,
		},
	}
}
