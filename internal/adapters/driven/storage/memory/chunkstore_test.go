package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/core/domain"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) { return s.vec, s.err }
func (s stubEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("unused")
}
func (s stubEmbedder) Dimensions() int            { return len(s.vec) }
func (s stubEmbedder) ModelName() string          { return "stub" }
func (s stubEmbedder) Ping(context.Context) error { return nil }
func (s stubEmbedder) Close() error               { return nil }

func seed(t *testing.T, s *ChunkStore) {
	t.Helper()
	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{
		{ID: "t1", UserID: "u1", DocID: "khs", DocTitle: "KHS Semester 3.pdf", DocType: domain.DocTypeTranscript,
			Kind: domain.ChunkKindRow, Text: "mata_kuliah=Algoritma | nilai=A | sks=3"},
		{ID: "t2", UserID: "u1", DocID: "khs", DocTitle: "KHS Semester 3.pdf", DocType: domain.DocTypeTranscript,
			Kind: domain.ChunkKindRow, Text: "mata_kuliah=Statistika | nilai=C | sks=2"},
		{ID: "g1", UserID: "u1", DocID: "aturan", DocTitle: "aturan wisuda.pdf",
			Text: "Syarat wisuda: lulus seluruh mata kuliah wajib."},
		{ID: "x1", UserID: "u2", DocID: "khs", DocTitle: "KHS.pdf", DocType: domain.DocTypeTranscript,
			Kind: domain.ChunkKindRow, Text: "mata_kuliah=Fisika | nilai=B"},
	}))
}

func TestChunkStore_RequiresUser(t *testing.T) {
	s := NewChunkStore(nil)
	_, err := s.Get(context.Background(), domain.ChunkFilter{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = s.SimilaritySearch(context.Background(), "q", 3, domain.ChunkFilter{UserID: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	err = s.Upsert(context.Background(), []domain.Chunk{{ID: "a", DocID: "d"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkStore_GetIsOwnerScoped(t *testing.T) {
	s := NewChunkStore(nil)
	seed(t, s)
	ctx := context.Background()

	all, err := s.Get(ctx, domain.ChunkFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "t1", "t2"}, chunkIDs(all))
	assert.Equal(t, domain.DocTypeGeneral, all[0].DocType)
	assert.Equal(t, domain.ChunkKindText, all[0].Kind)

	rows, err := s.Get(ctx, domain.ChunkFilter{UserID: "u1", DocType: domain.DocTypeTranscript, Kind: domain.ChunkKindRow})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, chunkIDs(rows))

	other, err := s.Get(ctx, domain.ChunkFilter{UserID: "u2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x1"}, chunkIDs(other))
}

func TestChunkStore_SimilaritySearch(t *testing.T) {
	s := NewChunkStore(nil)
	seed(t, s)

	hits, err := s.SimilaritySearch(context.Background(), "syarat wisuda", 2, domain.ChunkFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "g1", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
}

func TestChunkStore_SimilaritySearchDense(t *testing.T) {
	s := NewChunkStore(stubEmbedder{vec: []float32{1, 0}})
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{
		{ID: "near", UserID: "u1", DocID: "d", Text: "x", Embedding: []float32{0.9, 0.1}},
		{ID: "far", UserID: "u1", DocID: "d", Text: "y", Embedding: []float32{0.1, 0.9}},
	}))

	hits, err := s.SimilaritySearch(ctx, "q", 5, domain.ChunkFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"near", "far"}, scoredIDs(hits))

	s.embedder = stubEmbedder{err: errors.New("down")}
	hits, err = s.SimilaritySearch(ctx, "q", 5, domain.ChunkFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunkStore_CatalogAndDelete(t *testing.T) {
	s := NewChunkStore(nil)
	seed(t, s)
	ctx := context.Background()

	docs, err := s.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "aturan wisuda.pdf", docs[0].Title)
	assert.Equal(t, 2, docs[1].ChunkCount)

	require.NoError(t, s.DeleteDocument(ctx, "u1", "khs"))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "u1", "khs"), domain.ErrNotFound)

	has, err := s.HasDocuments(ctx, "u2")
	require.NoError(t, err)
	assert.True(t, has, "deleting u1's khs must not touch u2")

	require.NoError(t, s.DeleteDocument(ctx, "u1", "aturan"))
	has, err = s.HasDocuments(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestChunkStore_UpsertReplaces(t *testing.T) {
	s := NewChunkStore(nil)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ID: "a", UserID: "u", DocID: "d", Text: "old"}}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ID: "a", UserID: "u", DocID: "d", Text: "new"}}))

	got, err := s.Get(ctx, domain.ChunkFilter{UserID: "u"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Text)
}

func TestChunkStore_ConcurrentAccess(t *testing.T) {
	s := NewChunkStore(nil)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Upsert(ctx, []domain.Chunk{{ID: fmt.Sprintf("c%d", i), UserID: "u", DocID: "d", Text: "jadwal"}})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.SimilaritySearch(ctx, "jadwal", 3, domain.ChunkFilter{UserID: "u"})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, domain.ChunkFilter{UserID: "u"})
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

func chunkIDs(cs []domain.Chunk) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func scoredIDs(sc []domain.ScoredChunk) []string {
	out := make([]string, len(sc))
	for i, s := range sc {
		out[i] = s.Chunk.ID
	}
	return out
}
