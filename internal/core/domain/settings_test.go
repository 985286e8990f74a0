package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestAIProvider_IsValid tests provider recognition
func TestAIProvider_IsValid(t *testing.T) {
	for _, p := range AllLLMProviders() {
		assert.True(t, p.IsValid(), "%s", p)
		assert.NotEqual(t, unknownDescription, p.Description())
	}
	assert.False(t, AIProvider("cohere").IsValid())
	assert.Equal(t, unknownDescription, AIProvider("cohere").Description())
}

// TestAIProvider_RequiresAPIKey tests that only local providers skip keys
func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.True(t, AIProviderOpenRouter.RequiresAPIKey())
	assert.True(t, AIProviderGemini.RequiresAPIKey())
}

// TestParseModelTarget tests provider prefixes and OpenRouter slugs
func TestParseModelTarget(t *testing.T) {
	tests := []struct {
		in   string
		want ModelTarget
	}{
		{"google/gemini-2.5-flash-lite", ModelTarget{AIProviderOpenRouter, "google/gemini-2.5-flash-lite"}},
		{"nvidia/nemotron-3-nano-30b-a3b:free", ModelTarget{AIProviderOpenRouter, "nvidia/nemotron-3-nano-30b-a3b:free"}},
		{"gemini:gemini-2.5-flash", ModelTarget{AIProviderGemini, "gemini-2.5-flash"}},
		{" Anthropic:claude-3-5-haiku-latest ", ModelTarget{AIProviderAnthropic, "claude-3-5-haiku-latest"}},
		{"ollama:", ModelTarget{AIProviderOpenRouter, "ollama:"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseModelTarget(tt.in, AIProviderOpenRouter), tt.in)
	}
}

// TestDefaultConfig tests the shipped defaults
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, RetrievalPlan{DenseK: 18, SparseK: 28, RerankTopN: 10, UseHybrid: true, UseRerank: true}, cfg.Retrieval.BackgroundTargeted)
	assert.Equal(t, 60, cfg.Retrieval.RRFK)
	assert.Equal(t, 0.18, cfg.Retrieval.RelevanceThreshold)
	assert.True(t, cfg.Retrieval.FilterFallback)
	assert.False(t, cfg.Retrieval.OptimizedFilterFallback)

	assert.Equal(t, 30*time.Second, cfg.Cache.RouteTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.UserDocsTTL)

	assert.Equal(t, []string{"C", "D", "E", "CD", "D+", "D-"}, cfg.Analytics.LowGrades)
	assert.Equal(t, "Asia/Jakarta", cfg.Analytics.Timezone)

	assert.Equal(t, 300*time.Millisecond, cfg.Synthesis.RetrySleep)
	assert.Equal(t, 6000, cfg.Synthesis.ContextMaxChars)
	assert.Len(t, cfg.Synthesis.BackupModels, 5)
	assert.Equal(t, "BAAI/bge-reranker-v2-m3", cfg.Rerank.Model)
}

// TestProvidersConfig_APIKey tests key lookup per provider
func TestProvidersConfig_APIKey(t *testing.T) {
	c := ProvidersConfig{OpenRouterAPIKey: "or", GeminiAPIKey: "gm"}
	assert.Equal(t, "or", c.APIKey(AIProviderOpenRouter))
	assert.Equal(t, "gm", c.APIKey(AIProviderGemini))
	assert.Equal(t, "", c.APIKey(AIProviderOllama))
}
