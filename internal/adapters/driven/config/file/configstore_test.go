package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStoreAt_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "arah.toml")

	store, err := NewConfigStoreAt(path)

	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.DirExists(t, filepath.Dir(path))
}

func TestConfigStore_LoadsTables(t *testing.T) {
	dir := t.TempDir()
	content := `
[synthesis]
model = "google/gemini-2.5-flash-lite"
backup_models = ["a", "b"]
timeout = "30s"
max_retries = 2
temperature = 0.1

[retrieval]
canary_pct = 25
optimized_enabled = true

[retrieval.plans.referenced]
dense_k = 9
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "google/gemini-2.5-flash-lite", store.GetString("synthesis.model"))
	assert.Equal(t, []string{"a", "b"}, store.GetStringSlice("synthesis.backup_models"))
	assert.Equal(t, 2, store.GetInt("synthesis.max_retries"))
	assert.Equal(t, 25, store.GetInt("retrieval.canary_pct"))
	assert.True(t, store.GetBool("retrieval.optimized_enabled"))
	assert.Equal(t, 9, store.GetInt("retrieval.plans.referenced.dense_k"))

	v, ok := store.Get("synthesis.timeout")
	require.True(t, ok)
	d, ok := ToDuration(v)
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, d)
}

func TestConfigStore_TypedGettersOnMismatch(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("int_key", 42))
	require.NoError(t, store.Set("str_key", "x"))

	assert.Equal(t, "", store.GetString("int_key"))
	assert.Equal(t, 0, store.GetInt("str_key"))
	assert.False(t, store.GetBool("int_key"))
	assert.Nil(t, store.GetStringSlice("int_key"))
	assert.Equal(t, "", store.GetString("missing"))
}

func TestConfigStore_SaveNestsTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("synthesis.model", "m1"))
	require.NoError(t, store.Set("cache.backend", "redis"))
	require.NoError(t, store.Set("top", true))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[synthesis]")
	assert.Contains(t, string(raw), "[cache]")

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "m1", reopened.GetString("synthesis.model"))
	assert.Equal(t, "redis", reopened.GetString("cache.backend"))
	assert.True(t, reopened.GetBool("top"))
	assert.Equal(t, []string{"cache.backend", "synthesis.model", "top"}, reopened.Keys())
}

func TestNestMap_ValueAndTableCollision(t *testing.T) {
	nested := nestMap(map[string]any{"a": 1, "a.b": 2, "c.d": 3})
	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, 2, nested["a.b"])
	assert.Equal(t, map[string]any{"d": 3}, nested["c"])
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid"), 0o600))

	_, err := NewConfigStore(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("cache.max_entries", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("cache.max_entries")
		}()
	}
	wg.Wait()
}

func TestConversions(t *testing.T) {
	tests := []struct {
		in      any
		wantInt int
		wantF   float64
		ok      bool
	}{
		{in: int64(3), wantInt: 3, wantF: 3, ok: true},
		{in: 1.5, wantInt: 1, wantF: 1.5, ok: true},
		{in: "7", wantInt: 7, wantF: 7, ok: true},
		{in: true},
	}
	for _, tt := range tests {
		i, ok := ToInt(tt.in)
		assert.Equal(t, tt.ok, ok, "%v", tt.in)
		assert.Equal(t, tt.wantInt, i)
		f, _ := ToFloat(tt.in)
		assert.InDelta(t, tt.wantF, f, 1e-9)
	}

	d, ok := ToDuration("250ms")
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)
	_, ok = ToDuration("soon")
	assert.False(t, ok)
}
