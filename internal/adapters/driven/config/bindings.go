package config

import (
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/adapters/driven/config/file"
	"github.com/arah-ai/arah/internal/core/domain"
)

// binding maps one TOML key and environment variable onto a Config field.
type binding struct {
	key    string
	env    string
	secret bool
	set    func(cfg *domain.Config, v any) bool
	get    func(cfg domain.Config) any
}

func field[T any](key, env string, ptr func(*domain.Config) *T, conv func(any) (T, bool)) binding {
	return binding{
		key: key,
		env: env,
		set: func(cfg *domain.Config, v any) bool {
			t, ok := conv(v)
			if ok {
				*ptr(cfg) = t
			}
			return ok
		},
		get: func(cfg domain.Config) any { return *ptr(&cfg) },
	}
}

func secret(b binding) binding {
	b.secret = true
	return b
}

func toString(v any) (string, bool) {
	s, ok := v.(string)
	return strings.TrimSpace(s), ok
}

func toProvider(v any) (domain.AIProvider, bool) {
	s, ok := toString(v)
	return domain.AIProvider(strings.ToLower(s)), ok
}

func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
	}
	return false, false
}

func toStrings(v any) ([]string, bool) {
	var raw []string
	switch s := v.(type) {
	case []string:
		raw = s
	case []any:
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return nil, false
			}
			raw = append(raw, str)
		}
	case string:
		raw = strings.Split(s, ",")
	default:
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out, true
}

func toDuration(v any) (time.Duration, bool) { return file.ToDuration(v) }
func toInt(v any) (int, bool)                { return file.ToInt(v) }
func toFloat(v any) (float64, bool)          { return file.ToFloat(v) }

func planBindings(name string, ptr func(*domain.Config) *domain.RetrievalPlan) []binding {
	key := "retrieval.plans." + name + "."
	env := "ARAH_PLAN_" + strings.ToUpper(name) + "_"
	return []binding{
		field(key+"dense_k", env+"DENSE_K", func(c *domain.Config) *int { return &ptr(c).DenseK }, toInt),
		field(key+"sparse_k", env+"SPARSE_K", func(c *domain.Config) *int { return &ptr(c).SparseK }, toInt),
		field(key+"rerank_top_n", env+"RERANK_TOP_N", func(c *domain.Config) *int { return &ptr(c).RerankTopN }, toInt),
		field(key+"hybrid", env+"HYBRID", func(c *domain.Config) *bool { return &ptr(c).UseHybrid }, toBool),
		field(key+"rerank", env+"RERANK", func(c *domain.Config) *bool { return &ptr(c).UseRerank }, toBool),
	}
}

//nolint:funlen // One line per setting.
func bindings() []binding {
	bs := []binding{
		// Retrieval.
		field("retrieval.optimized_enabled", "ARAH_OPTIMIZED_ENABLED", func(c *domain.Config) *bool { return &c.Retrieval.OptimizedEnabled }, toBool),
		field("retrieval.canary_pct", "ARAH_CANARY_PCT", func(c *domain.Config) *int { return &c.Retrieval.CanaryPct }, toInt),
		field("retrieval.filter_fallback", "ARAH_FILTER_FALLBACK", func(c *domain.Config) *bool { return &c.Retrieval.FilterFallback }, toBool),
		field("retrieval.optimized_filter_fallback", "ARAH_OPTIMIZED_FILTER_FALLBACK", func(c *domain.Config) *bool { return &c.Retrieval.OptimizedFilterFallback }, toBool),
		field("retrieval.relevance_threshold", "ARAH_RELEVANCE_THRESHOLD", func(c *domain.Config) *float64 { return &c.Retrieval.RelevanceThreshold }, toFloat),
		field("retrieval.rrf_k", "", func(c *domain.Config) *int { return &c.Retrieval.RRFK }, toInt),
		field("retrieval.legacy_fallback", "ARAH_LEGACY_FALLBACK", func(c *domain.Config) *bool { return &c.Retrieval.LegacyFallback }, toBool),
		field("retrieval.search_timeout", "ARAH_SEARCH_TIMEOUT", func(c *domain.Config) *time.Duration { return &c.Retrieval.SearchTimeout }, toDuration),

		// Cache.
		field("cache.backend", "ARAH_CACHE_BACKEND", func(c *domain.Config) *string { return &c.Cache.Backend }, toString),
		secret(field("cache.redis_url", "ARAH_REDIS_URL", func(c *domain.Config) *string { return &c.Cache.RedisURL }, toString)),
		field("cache.max_entries", "", func(c *domain.Config) *int { return &c.Cache.MaxEntries }, toInt),
		field("cache.route_ttl", "ARAH_ROUTE_CACHE_TTL", func(c *domain.Config) *time.Duration { return &c.Cache.RouteTTL }, toDuration),
		field("cache.mention_ttl", "ARAH_MENTION_CACHE_TTL", func(c *domain.Config) *time.Duration { return &c.Cache.MentionTTL }, toDuration),
		field("cache.user_docs_ttl", "ARAH_USER_DOCS_CACHE_TTL", func(c *domain.Config) *time.Duration { return &c.Cache.UserDocsTTL }, toDuration),

		// Analytics.
		field("analytics.enabled", "ARAH_ANALYTICS_ENABLED", func(c *domain.Config) *bool { return &c.Analytics.Enabled }, toBool),
		field("analytics.low_grades", "ARAH_ANALYTICS_LOW_GRADES", func(c *domain.Config) *[]string { return &c.Analytics.LowGrades }, toStrings),
		field("analytics.timezone", "ARAH_ANALYTICS_TIMEZONE", func(c *domain.Config) *string { return &c.Analytics.Timezone }, toString),
		field("analytics.polish_enabled", "ARAH_ANALYTICS_POLISH_ENABLED", func(c *domain.Config) *bool { return &c.Analytics.PolishEnabled }, toBool),
		field("analytics.polish_model", "ARAH_ANALYTICS_POLISH_MODEL", func(c *domain.Config) *string { return &c.Analytics.PolishModel }, toString),
		field("analytics.polish_temperature", "", func(c *domain.Config) *float64 { return &c.Analytics.PolishTemperature }, toFloat),
		field("analytics.post_validate", "ARAH_ANALYTICS_POST_VALIDATE", func(c *domain.Config) *bool { return &c.Analytics.PostValidate }, toBool),
		field("analytics.fetch_timeout", "ARAH_ANALYTICS_FETCH_TIMEOUT", func(c *domain.Config) *time.Duration { return &c.Analytics.FetchTimeout }, toDuration),

		// Synthesis.
		field("synthesis.provider", "ARAH_PROVIDER", func(c *domain.Config) *domain.AIProvider { return &c.Synthesis.Provider }, toProvider),
		field("synthesis.model", "ARAH_MODEL", func(c *domain.Config) *string { return &c.Synthesis.Model }, toString),
		field("synthesis.doc_model", "ARAH_DOC_MODEL", func(c *domain.Config) *string { return &c.Synthesis.DocModel }, toString),
		field("synthesis.fast_model", "ARAH_FAST_MODEL", func(c *domain.Config) *string { return &c.Synthesis.FastModel }, toString),
		field("synthesis.backup_models", "ARAH_BACKUP_MODELS", func(c *domain.Config) *[]string { return &c.Synthesis.BackupModels }, toStrings),
		field("synthesis.timeout", "ARAH_LLM_TIMEOUT", func(c *domain.Config) *time.Duration { return &c.Synthesis.Timeout }, toDuration),
		field("synthesis.max_retries", "ARAH_LLM_MAX_RETRIES", func(c *domain.Config) *int { return &c.Synthesis.MaxRetries }, toInt),
		field("synthesis.temperature", "", func(c *domain.Config) *float64 { return &c.Synthesis.Temperature }, toFloat),
		field("synthesis.retry_sleep", "ARAH_RETRY_SLEEP", func(c *domain.Config) *time.Duration { return &c.Synthesis.RetrySleep }, toDuration),
		field("synthesis.citation_enrichment", "ARAH_CITATION_ENRICHMENT", func(c *domain.Config) *bool { return &c.Synthesis.CitationEnrichment }, toBool),
		field("synthesis.table_enrichment", "ARAH_TABLE_ENRICHMENT", func(c *domain.Config) *bool { return &c.Synthesis.TableEnrichment }, toBool),
		field("synthesis.context_max_chars", "", func(c *domain.Config) *int { return &c.Synthesis.ContextMaxChars }, toInt),
		field("synthesis.context_max_docs", "", func(c *domain.Config) *int { return &c.Synthesis.ContextMaxDocs }, toInt),
		field("synthesis.optimized_timeout", "ARAH_OPT_LLM_TIMEOUT", func(c *domain.Config) *time.Duration { return &c.Synthesis.OptimizedTimeout }, toDuration),
		field("synthesis.optimized_max_retries", "ARAH_OPT_LLM_MAX_RETRIES", func(c *domain.Config) *int { return &c.Synthesis.OptimizedMaxRetries }, toInt),
		field("synthesis.optimized_max_models", "ARAH_OPT_MAX_MODELS", func(c *domain.Config) *int { return &c.Synthesis.OptimizedMaxModels }, toInt),
		field("synthesis.optimized_retry_sleep", "ARAH_OPT_RETRY_SLEEP", func(c *domain.Config) *time.Duration { return &c.Synthesis.OptimizedRetrySleep }, toDuration),

		// Providers. Keys normally come from the environment or .env.
		secret(field("providers.openrouter_api_key", "OPENROUTER_API_KEY", func(c *domain.Config) *string { return &c.Providers.OpenRouterAPIKey }, toString)),
		field("providers.openrouter_base_url", "OPENROUTER_BASE_URL", func(c *domain.Config) *string { return &c.Providers.OpenRouterBaseURL }, toString),
		field("providers.openrouter_referer", "OPENROUTER_HTTP_REFERER", func(c *domain.Config) *string { return &c.Providers.OpenRouterReferer }, toString),
		field("providers.openrouter_title", "OPENROUTER_X_TITLE", func(c *domain.Config) *string { return &c.Providers.OpenRouterTitle }, toString),
		secret(field("providers.openai_api_key", "OPENAI_API_KEY", func(c *domain.Config) *string { return &c.Providers.OpenAIAPIKey }, toString)),
		field("providers.openai_base_url", "OPENAI_BASE_URL", func(c *domain.Config) *string { return &c.Providers.OpenAIBaseURL }, toString),
		secret(field("providers.anthropic_api_key", "ANTHROPIC_API_KEY", func(c *domain.Config) *string { return &c.Providers.AnthropicAPIKey }, toString)),
		field("providers.anthropic_base_url", "ANTHROPIC_BASE_URL", func(c *domain.Config) *string { return &c.Providers.AnthropicBaseURL }, toString),
		secret(field("providers.gemini_api_key", "GEMINI_API_KEY", func(c *domain.Config) *string { return &c.Providers.GeminiAPIKey }, toString)),
		field("providers.ollama_base_url", "OLLAMA_HOST", func(c *domain.Config) *string { return &c.Providers.OllamaBaseURL }, toString),
		field("providers.rate_limit", "ARAH_RATE_LIMIT", func(c *domain.Config) *float64 { return &c.Providers.RateLimit }, toFloat),
		field("providers.rate_burst", "", func(c *domain.Config) *int { return &c.Providers.RateBurst }, toInt),

		// Storage.
		field("storage.backend", "ARAH_STORAGE_BACKEND", func(c *domain.Config) *string { return &c.Storage.Backend }, toString),
		field("storage.data_dir", "ARAH_DATA_DIR", func(c *domain.Config) *string { return &c.Storage.DataDir }, toString),
		secret(field("storage.postgres_dsn", "ARAH_POSTGRES_DSN", func(c *domain.Config) *string { return &c.Storage.PostgresDSN }, toString)),
		field("storage.milvus_addr", "ARAH_MILVUS_ADDR", func(c *domain.Config) *string { return &c.Storage.MilvusAddr }, toString),
		field("storage.milvus_collection", "ARAH_MILVUS_COLLECTION", func(c *domain.Config) *string { return &c.Storage.MilvusCollection }, toString),
		field("storage.metrics_ring_size", "", func(c *domain.Config) *int { return &c.Storage.MetricsRingSize }, toInt),

		// Rerank.
		field("rerank.model", "ARAH_RERANK_MODEL", func(c *domain.Config) *string { return &c.Rerank.Model }, toString),
		field("rerank.base_url", "ARAH_RERANK_URL", func(c *domain.Config) *string { return &c.Rerank.BaseURL }, toString),
		secret(field("rerank.api_key", "ARAH_RERANK_API_KEY", func(c *domain.Config) *string { return &c.Rerank.APIKey }, toString)),
		field("rerank.timeout", "", func(c *domain.Config) *time.Duration { return &c.Rerank.Timeout }, toDuration),

		// Embedding.
		field("embedding.provider", "ARAH_EMBEDDING_PROVIDER", func(c *domain.Config) *domain.AIProvider { return &c.Embedding.Provider }, toProvider),
		field("embedding.model", "ARAH_EMBEDDING_MODEL", func(c *domain.Config) *string { return &c.Embedding.Model }, toString),
		field("embedding.dimensions", "", func(c *domain.Config) *int { return &c.Embedding.Dimensions }, toInt),
	}

	bs = append(bs, planBindings("base", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.BasePlan })...)
	bs = append(bs, planBindings("background_general", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.BackgroundGeneral })...)
	bs = append(bs, planBindings("background_targeted", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.BackgroundTargeted })...)
	bs = append(bs, planBindings("referenced", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.Referenced })...)
	bs = append(bs, planBindings("optimized_general", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.OptimizedGeneral })...)
	bs = append(bs, planBindings("optimized_targeted", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.OptimizedTargeted })...)
	bs = append(bs, planBindings("optimized_referenced", func(c *domain.Config) *domain.RetrievalPlan { return &c.Retrieval.OptimizedReferenced })...)
	return bs
}
