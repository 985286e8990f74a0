package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/core/domain"
)

func newTestRetriever(store *mockChunkStore, reranker *mockReranker) *HybridRetriever {
	cfg := domain.DefaultConfig().Retrieval
	if reranker == nil {
		return NewHybridRetriever(store, nil, cfg, "bge")
	}
	return NewHybridRetriever(store, reranker, cfg, "bge")
}

// TestInCanary tests bounds, determinism and rough proportion
func TestInCanary(t *testing.T) {
	assert.False(t, InCanary("u1", "r1", "q", 0))
	assert.False(t, InCanary("u1", "r1", "q", -5))
	assert.True(t, InCanary("u1", "r1", "q", 100))

	for i := 0; i < 20; i++ {
		req := fmt.Sprintf("req-%d", i)
		assert.Equal(t, InCanary("u1", req, "jadwal", 50), InCanary("u1", req, "jadwal", 50))
	}
	assert.Equal(t, InCanary("u1", "", "q", 40), InCanary("u1", "-", "q", 40))

	hits := 0
	for i := 0; i < 2000; i++ {
		if InCanary("u1", fmt.Sprintf("req-%d", i), "jadwal", 30) {
			hits++
		}
	}
	assert.InDelta(t, 600, hits, 120)
}

// TestUseOptimized tests that the canary needs the feature switch
func TestUseOptimized(t *testing.T) {
	r := newTestRetriever(&mockChunkStore{}, nil)
	assert.False(t, r.UseOptimized("u1", "r1", "q"))
	r.cfg.OptimizedEnabled = true
	assert.True(t, r.UseOptimized("u1", "r1", "q"))
}

// TestResolvePlan tests the plan table
func TestResolvePlan(t *testing.T) {
	r := newTestRetriever(&mockChunkStore{}, nil)
	cfg := domain.DefaultConfig().Retrieval

	tests := []struct {
		name      string
		mode      domain.InteractionMode
		intent    domain.QueryIntent
		optimized bool
		want      domain.RetrievalPlan
		fallback  bool
	}{
		{"background general", domain.ModeDocBackground, domain.IntentGeneralAcademic, false, cfg.BackgroundGeneral, true},
		{"background targeted", domain.ModeDocBackground, domain.IntentDocTargeted, false, cfg.BackgroundTargeted, true},
		{"referenced", domain.ModeDocReferenced, domain.IntentDocTargeted, false, cfg.Referenced, true},
		{"llm only", domain.ModeLLMOnly, domain.IntentGeneralAcademic, false, cfg.BasePlan, true},
		{"optimized general", domain.ModeDocBackground, domain.IntentGeneralAcademic, true, cfg.OptimizedGeneral, false},
		{"optimized targeted", domain.ModeDocBackground, domain.IntentDocTargeted, true, cfg.OptimizedTargeted, false},
		{"optimized referenced", domain.ModeDocReferenced, domain.IntentGeneralAcademic, true, cfg.OptimizedReferenced, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.ResolvePlan(tt.mode, tt.intent, tt.optimized)
			assert.Equal(t, tt.want, got.RetrievalPlan)
			assert.Equal(t, tt.fallback, got.FilterFallback)
			assert.Equal(t, tt.optimized, got.Optimized)
			assert.Equal(t, "bge", got.RerankModel)
		})
	}
}

// TestBuildFilter tests owner scoping and narrowing
func TestBuildFilter(t *testing.T) {
	f := BuildFilter("u1", "jadwal saya", domain.RouteDefaultRAG, []string{"d1"})
	assert.Equal(t, domain.ChunkFilter{UserID: "u1", DocIDs: []string{"d1"}}, f)

	f = BuildFilter("u1", "jadwal saya", domain.RouteDefaultRAG, nil)
	assert.Equal(t, domain.DocTypeSchedule, f.DocType)

	f = BuildFilter("u1", "ipk saya", domain.RouteDefaultRAG, nil)
	assert.Equal(t, domain.DocTypeTranscript, f.DocType)

	f = BuildFilter("u1", "syarat cuti akademik", domain.RouteSemanticPolicy, nil)
	assert.Equal(t, domain.DocTypeGeneral, f.DocType)

	f = BuildFilter("u1", "apa itu kurikulum", domain.RouteDefaultRAG, nil)
	assert.Equal(t, domain.ChunkFilter{UserID: "u1"}, f)
}

// TestRetrieve_LLMOnly tests that users without documents trigger no search
func TestRetrieve_LLMOnly(t *testing.T) {
	store := &mockChunkStore{}
	r := newTestRetriever(store, nil)

	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "apa itu sks"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeLLMOnly, res.Mode)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.Empty(t, store.searches)
}

// TestRetrieve_RequiresOwner tests that an unscoped request is rejected
func TestRetrieve_RequiresOwner(t *testing.T) {
	r := newTestRetriever(&mockChunkStore{}, nil)
	_, err := r.Retrieve(context.Background(), RetrievalRequest{Query: "jadwal", HasDocuments: true})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestRetrieve_FilterFallback tests relaxing an empty compound filter
func TestRetrieve_FilterFallback(t *testing.T) {
	store := &mockChunkStore{
		chunks: []domain.Chunk{textChunk("g1", "u1", "panduan", domain.DocTypeGeneral, "jam kuliah dimulai pukul tujuh")},
		scores: map[string]float64{"g1": 0.9},
	}
	r := newTestRetriever(store, &mockReranker{})

	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "jam kuliah saya", HasDocuments: true})
	require.NoError(t, err)
	assert.True(t, res.FilterRelaxed)
	require.Len(t, res.Candidates, 1)
	require.Len(t, store.searches, 2)
	assert.Equal(t, domain.DocTypeSchedule, store.searches[0].DocType)
	assert.Equal(t, domain.ChunkFilter{UserID: "u1"}, store.searches[1])

	store.searches = nil
	res, err = r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "jam kuliah saya", HasDocuments: true, Optimized: true})
	require.NoError(t, err)
	assert.False(t, res.FilterRelaxed)
	assert.Empty(t, res.Candidates)
	assert.Len(t, store.searches, 1)
}

// TestRetrieve_DropsForeignChunks tests the owner invariant on store output
func TestRetrieve_DropsForeignChunks(t *testing.T) {
	store := &mockChunkStore{fixed: []domain.ScoredChunk{
		{Chunk: textChunk("x", "u2", "lain", domain.DocTypeGeneral, "milik orang lain"), Score: 0.99},
		{Chunk: textChunk("y", "u1", "punya", domain.DocTypeGeneral, "milik sendiri"), Score: 0.5},
	}}
	r := newTestRetriever(store, nil)

	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "apa itu kurikulum", HasDocuments: true})
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "u1", res.Candidates[0].Chunk.UserID)
}

func targetedStore() *mockChunkStore {
	return &mockChunkStore{
		chunks: []domain.Chunk{
			textChunk("a", "u1", "khs", domain.DocTypeTranscript, "nilai kalkulus semester satu adalah A"),
			textChunk("b", "u1", "khs", domain.DocTypeTranscript, "nilai basis data semester dua adalah B"),
			textChunk("c", "u1", "khs", domain.DocTypeTranscript, "ipk semester dua 3.5"),
		},
		scores: map[string]float64{"a": 0.9, "b": 0.8, "c": 0.7},
	}
}

// TestRetrieve_HybridRerank tests BM25 fusion followed by reranking
func TestRetrieve_HybridRerank(t *testing.T) {
	reranker := &mockReranker{scores: []float64{0.1, 0.2, 0.9}}
	r := newTestRetriever(targetedStore(), reranker)

	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai mata kuliah basis data saya", HasDocuments: true})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentDocTargeted, res.Intent)
	assert.True(t, res.Plan.UseHybrid)
	assert.Equal(t, 3, res.DenseHits)
	assert.Equal(t, 3, res.SparseHits)
	assert.Greater(t, res.TopScore, 0.0)
	assert.False(t, res.RerankFailed)
	assert.Equal(t, 1, reranker.calls)
	require.Len(t, res.Candidates, 3)
	require.NotNil(t, res.Candidates[0].RerankScore)
	assert.InDelta(t, 0.9, *res.Candidates[0].RerankScore, 1e-9)
	for _, c := range res.Candidates {
		assert.NotNil(t, c.SparseScore)
		assert.Greater(t, c.FusedScore, 0.0)
	}
}

// TestRetrieve_RerankFailure tests falling back to the fused order
func TestRetrieve_RerankFailure(t *testing.T) {
	store := targetedStore()
	plain := newTestRetriever(store, &mockReranker{scores: []float64{0, 0, 0}})
	want, err := plain.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai mata kuliah basis data saya", HasDocuments: true})
	require.NoError(t, err)

	failing := newTestRetriever(store, &mockReranker{err: errors.New("503")})
	res, err := failing.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai mata kuliah basis data saya", HasDocuments: true})
	require.NoError(t, err)
	assert.True(t, res.RerankFailed)
	require.Len(t, res.Candidates, len(want.Candidates))
	for i := range res.Candidates {
		assert.Equal(t, want.Candidates[i].Chunk.ID, res.Candidates[i].Chunk.ID)
		assert.Nil(t, res.Candidates[i].RerankScore)
	}

	missing := newTestRetriever(store, nil)
	res, err = missing.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai mata kuliah basis data saya", HasDocuments: true})
	require.NoError(t, err)
	assert.True(t, res.RerankFailed)
	assert.Len(t, res.Candidates, 3)
}

// TestRetrieve_RelevanceThreshold tests the cutoff for general background queries only
func TestRetrieve_RelevanceThreshold(t *testing.T) {
	store := &mockChunkStore{
		chunks: []domain.Chunk{textChunk("g", "u1", "panduan", domain.DocTypeGeneral, "teks yang kurang relevan")},
		scores: map[string]float64{"g": 0.05},
	}
	r := newTestRetriever(store, nil)

	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "apa itu kurikulum", HasDocuments: true})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentGeneralAcademic, res.Intent)
	assert.True(t, res.BelowCutoff)
	assert.Empty(t, res.Candidates)
	assert.Equal(t, 1, res.DenseHits)

	res, err = r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "apa itu kurikulum", HasDocuments: true, DocIDs: []string{"panduan"}})
	require.NoError(t, err)
	assert.False(t, res.BelowCutoff)
	assert.Len(t, res.Candidates, 1)
}

// TestRetrieve_BackendError tests degrading to no candidates
func TestRetrieve_BackendError(t *testing.T) {
	r := newTestRetriever(&mockChunkStore{searchErr: errors.New("vector db down")}, nil)
	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai saya", HasDocuments: true})
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.DenseHits)
}

// TestRetrieve_SearchTimeout tests that a hung vector backend is cut off
func TestRetrieve_SearchTimeout(t *testing.T) {
	store := &mockChunkStore{hang: true}
	cfg := domain.DefaultConfig().Retrieval
	cfg.SearchTimeout = 20 * time.Millisecond
	r := NewHybridRetriever(store, nil, cfg, "bge")

	started := time.Now()
	res, err := r.Retrieve(context.Background(), RetrievalRequest{UserID: "u1", Query: "nilai saya", HasDocuments: true})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.NotNil(t, res.Candidates)
	assert.Empty(t, res.Candidates)
	assert.Len(t, store.searches, 2)
}

// TestNewHybridRetriever_DefaultSearchTimeout tests the zero-value default
func TestNewHybridRetriever_DefaultSearchTimeout(t *testing.T) {
	r := NewHybridRetriever(&mockChunkStore{}, nil, domain.RetrievalConfig{}, "")
	assert.Equal(t, domain.DefaultSearchTimeout, r.cfg.SearchTimeout)
}
