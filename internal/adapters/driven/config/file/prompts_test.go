package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/core/ports/driven"
)

func TestNewPromptStore_WithCustomDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewPromptStore(dir)

	require.NoError(t, err)
	assert.Equal(t, dir, store.Dir())
}

func TestNewPromptStore_NoIOUntilLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "prompts")

	_, err := NewPromptStore(dir)
	require.NoError(t, err)

	assert.NoDirExists(t, dir)
}

func TestPromptStore_Load_CreatesDefaultFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	for name := range driven.DefaultPrompts() {
		assert.FileExists(t, filepath.Join(dir, name+promptExt))
	}
	assert.FileExists(t, filepath.Join(dir, "README.md"))
}

func TestPromptStore_Load_ReturnsDefaultContent(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptPolish)

	require.NoError(t, err)
	assert.Contains(t, prompt, "FAKTA MUTLAK")
	assert.Contains(t, prompt, "{{.Facts}}")
}

func TestPromptStore_Load_ReturnsCustomContent(t *testing.T) {
	dir := t.TempDir()
	custom := "Jawab singkat: {{.Query}}\n{{.Context}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptAnswer+promptExt), []byte(custom), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, custom, prompt)
}

func TestPromptStore_Load_EmptyFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, driven.PromptCitation+promptExt), []byte("  \n"), 0o600))

	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptCitation)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptCitation], prompt)
}

func TestPromptStore_Load_Unknown(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nonexistent")
	require.Error(t, err)
}

func TestPromptStore_Load_InitFailureUsesDefaults(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store, err := NewPromptStore(filepath.Join(blocker, "prompts"))
	require.NoError(t, err)

	prompt, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, driven.DefaultPrompts()[driven.PromptAnswer], prompt)

	_, err = store.Load("nonexistent")
	require.Error(t, err)
}

func TestPromptStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	path := filepath.Join(dir, driven.PromptAnswer+promptExt)
	require.NoError(t, os.WriteFile(path, []byte("v2 {{.Query}}"), 0o600))

	cached, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.NotEqual(t, "v2 {{.Query}}", cached)

	store.Reload()
	fresh, err := store.Load(driven.PromptAnswer)
	require.NoError(t, err)
	assert.Equal(t, "v2 {{.Query}}", fresh)
}

func TestPromptStore_WatchReloadsOnEdit(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPromptStore(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done, err := store.Watch(ctx)
	require.NoError(t, err)
	defer func() {
		cancel()
		<-done
	}()

	_, err = store.Load(driven.PromptAnswer)
	require.NoError(t, err)

	path := filepath.Join(dir, driven.PromptAnswer+promptExt)
	require.NoError(t, os.WriteFile(path, []byte("edited {{.Query}}"), 0o600))

	assert.Eventually(t, func() bool {
		p, err := store.Load(driven.PromptAnswer)
		return err == nil && p == "edited {{.Query}}"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestPromptStore_ConcurrentLoads(t *testing.T) {
	store, err := NewPromptStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := store.Load(driven.PromptTableEnrichment)
			assert.NoError(t, err)
			assert.NotEmpty(t, p)
		}()
	}
	wg.Wait()
}
