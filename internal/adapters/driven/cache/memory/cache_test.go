package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/arah-ai/arah/internal/core/domain"
)

func TestMain(m *testing.M) {
	// LRUs with a TTL keep a cleanup goroutine for the life of the process.
	goleak.VerifyTestMain(m, goleak.IgnoreAnyFunction("github.com/hashicorp/golang-lru/v2/expirable.NewLRU[...].func1"))
}

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New(0)

	_, err := c.Get(ctx, "rag:route:v1:abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "rag:route:v1:abc", []byte(`{"route":"default_rag"}`), time.Minute))
	got, err := c.Get(ctx, "rag:route:v1:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"route":"default_rag"}`, string(got))

	require.NoError(t, c.Delete(ctx, "rag:route:v1:abc"))
	require.NoError(t, c.Delete(ctx, "never-set"))
	_, err = c.Get(ctx, "rag:route:v1:abc")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestCache_TTLPerPartition(t *testing.T) {
	ctx := context.Background()
	c := New(8, 50*time.Millisecond, time.Hour)

	require.NoError(t, c.Set(ctx, "rag:route:v1:a", []byte("1"), 50*time.Millisecond))
	require.NoError(t, c.Set(ctx, "rag:user_has_docs:u1", []byte("true"), time.Hour))
	require.NoError(t, c.Set(ctx, "forever", []byte("3"), 0))

	_, err := c.Get(ctx, "rag:route:v1:a")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, err := c.Get(ctx, "rag:route:v1:a")
		return errors.Is(err, domain.ErrCacheMiss)
	}, 2*time.Second, 10*time.Millisecond)

	_, err = c.Get(ctx, "rag:user_has_docs:u1")
	require.NoError(t, err)
	_, err = c.Get(ctx, "forever")
	require.NoError(t, err)
}

func TestCache_RewriteMovesPartition(t *testing.T) {
	ctx := context.Background()
	c := New(8)

	require.NoError(t, c.Set(ctx, "k", []byte("a"), time.Hour))
	require.NoError(t, c.Set(ctx, "k", []byte("b"), 0))
	assert.Equal(t, 1, c.Len())

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))

	require.NoError(t, c.Delete(ctx, "k"))
	assert.Zero(t, c.Len())
}

func TestCache_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	c := New(4)
	require.NoError(t, c.Set(ctx, "k", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "k", []byte("b"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := New(2)
	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, _ = c.Get(ctx, "a")
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, err := c.Get(ctx, "b")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
}

func TestCache_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	c := New(2)
	buf := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", buf, 0))
	buf[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[1] = 'y'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}

func TestCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := New(64)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%4)
			_ = c.Set(ctx, key, []byte("v"), time.Minute)
			_, _ = c.Get(ctx, key)
			_ = c.Delete(ctx, key)
		}()
	}
	wg.Wait()
}
