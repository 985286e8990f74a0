package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/adapters/driven/config/file"
	"github.com/arah-ai/arah/internal/core/domain"
)

func envMap(m map[string]string) Getenv {
	return func(k string) string { return m[k] }
}

func newStore(t *testing.T, content string) *file.ConfigStore {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
	store, err := file.NewConfigStore(dir)
	require.NoError(t, err)
	return store
}

func TestLoad_DefaultsWithoutSources(t *testing.T) {
	cfg, err := Load(nil, nil)
	require.NoError(t, err)
	if diff := cmp.Diff(domain.DefaultConfig(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_StoreThenEnvPrecedence(t *testing.T) {
	store := newStore(t, `
[synthesis]
model = "file-model"
backup_models = ["x", "y"]
timeout = "20s"
max_retries = 3

[retrieval]
canary_pct = 10
legacy_fallback = true

[retrieval.plans.referenced]
dense_k = 9
rerank = false

[cache]
backend = "redis"
route_ttl = 5
`)
	cfg, err := Load(store, envMap(map[string]string{
		"ARAH_MODEL":         "env-model",
		"OPENROUTER_API_KEY": "sk-or-123456",
		"ARAH_CANARY_PCT":    "40",
		"ARAH_REDIS_URL":     "redis://localhost:6379/0",
		"ARAH_BACKUP_MODELS": " a , b ,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "env-model", cfg.Synthesis.Model)
	assert.Equal(t, []string{"a", "b"}, cfg.Synthesis.BackupModels)
	assert.Equal(t, 20*time.Second, cfg.Synthesis.Timeout)
	assert.Equal(t, 3, cfg.Synthesis.MaxRetries)
	assert.Equal(t, 40, cfg.Retrieval.CanaryPct)
	assert.True(t, cfg.Retrieval.LegacyFallback)
	assert.Equal(t, 9, cfg.Retrieval.Referenced.DenseK)
	assert.False(t, cfg.Retrieval.Referenced.UseRerank)
	assert.Equal(t, 12, domain.DefaultConfig().Retrieval.Referenced.DenseK)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Second, cfg.Cache.RouteTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, "sk-or-123456", cfg.Providers.APIKey(domain.AIProviderOpenRouter))
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "bad int", env: map[string]string{"ARAH_CANARY_PCT": "lots"}, want: "ARAH_CANARY_PCT"},
		{name: "canary out of range", env: map[string]string{"ARAH_CANARY_PCT": "150"}, want: "canary_pct"},
		{name: "bad bool", env: map[string]string{"ARAH_LEGACY_FALLBACK": "maybe"}, want: "ARAH_LEGACY_FALLBACK"},
		{name: "unknown storage", env: map[string]string{"ARAH_STORAGE_BACKEND": "mongo"}, want: "storage.backend"},
		{name: "unknown cache", env: map[string]string{"ARAH_CACHE_BACKEND": "memcached"}, want: "cache.backend"},
		{name: "unknown provider", env: map[string]string{"ARAH_PROVIDER": "acme"}, want: "synthesis.provider"},
		{name: "bad timezone", env: map[string]string{"ARAH_ANALYTICS_TIMEZONE": "Mars/Olympus"}, want: "analytics.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(nil, envMap(tt.env))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnknownProviderListsChoices(t *testing.T) {
	_, err := Load(nil, envMap(map[string]string{"ARAH_PROVIDER": "acme"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter")
	assert.Contains(t, err.Error(), "ollama")
}

func TestLoad_StoreTypeMismatch(t *testing.T) {
	store := newStore(t, "[analytics]\nenabled = \"sometimes\"\n")
	_, err := Load(store, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytics.enabled")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ARAH_TEST_ONLY_KEY=from-file\n"), 0o600))
	t.Setenv("ARAH_TEST_ONLY_KEY", "")
	require.NoError(t, os.Unsetenv("ARAH_TEST_ONLY_KEY"))

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), envFile))
	assert.Equal(t, "from-file", os.Getenv("ARAH_TEST_ONLY_KEY"))

	t.Setenv("ARAH_TEST_ONLY_KEY", "from-env")
	require.NoError(t, LoadEnv(envFile))
	assert.Equal(t, "from-env", os.Getenv("ARAH_TEST_ONLY_KEY"))
}

func TestDescribe_MasksSecrets(t *testing.T) {
	cfg := domain.DefaultConfig()
	cfg.Providers.OpenRouterAPIKey = "sk-or-abcdef1234"
	cfg.Storage.PostgresDSN = "postgres://u:p@h/db"

	got := map[string]string{}
	for _, e := range Describe(cfg) {
		got[e.Key] = e.Value
	}
	assert.Equal(t, "****1234", got["providers.openrouter_api_key"])
	assert.Equal(t, "(unset)", got["providers.gemini_api_key"])
	assert.NotContains(t, got["storage.postgres_dsn"], "u:p")
	assert.Equal(t, "google/gemini-2.5-flash-lite", got["synthesis.model"])
	assert.Equal(t, "30", got["retrieval.plans.base.dense_k"])

	entries := Describe(cfg)
	for i := 1; i < len(entries); i++ {
		assert.Less(t, entries[i-1].Key, entries[i].Key)
	}
}

func TestMask(t *testing.T) {
	assert.Equal(t, "(unset)", Mask(""))
	assert.Equal(t, "****", Mask("abc"))
	assert.Equal(t, "****5678", Mask("12345678"))
}

func TestIsKnownKey(t *testing.T) {
	assert.True(t, IsKnownKey("synthesis.model"))
	assert.True(t, IsKnownKey("retrieval.plans.optimized_general.hybrid"))
	assert.False(t, IsKnownKey("synthesis.unknown"))
}

func TestSet(t *testing.T) {
	store := newStore(t, "")

	require.NoError(t, Set(store, "retrieval.canary_pct", "25"))
	require.NoError(t, Set(store, "retrieval.search_timeout", "3s"))

	cfg, err := Load(store, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Retrieval.CanaryPct)
	assert.Equal(t, 3*time.Second, cfg.Retrieval.SearchTimeout)
}

func TestSet_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"unknown key", "retrieval.nope", "1", "unknown setting"},
		{"wrong type", "retrieval.canary_pct", "banyak", "invalid value"},
		{"out of range", "retrieval.canary_pct", "150", "0..100"},
		{"unknown backend", "storage.backend", "mongo", "storage.backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newStore(t, "")
			err := Set(store, tt.key, tt.value)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestSetAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	require.NoError(t, SetAt(path, "synthesis.model", "openai/gpt-5-nano"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "openai/gpt-5-nano")
}
