package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// RetrievalRequest is one semantic retrieval call.
type RetrievalRequest struct {
	UserID    string
	RequestID string
	Query     string
	Route     domain.IntentRoute

	// HasDocuments is false for users without uploads; nothing is retrieved.
	HasDocuments bool

	// DocIDs are the resolved @mention documents.
	DocIDs []string

	// Optimized selects the low-latency plan table.
	Optimized bool
}

// HybridRetriever runs dense search, optional BM25 plus rank fusion over the
// dense pool, and an optional cross-encoder pass.
type HybridRetriever struct {
	store       driven.ChunkStore
	reranker    driven.Reranker
	cfg         domain.RetrievalConfig
	rerankModel string
}

// NewHybridRetriever creates a retriever. reranker may be nil, in which case
// rerank-enabled plans keep the fused order.
func NewHybridRetriever(store driven.ChunkStore, reranker driven.Reranker, cfg domain.RetrievalConfig, rerankModel string) *HybridRetriever {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.SearchTimeout <= 0 {
		cfg.SearchTimeout = domain.DefaultSearchTimeout
	}
	return &HybridRetriever{store: store, reranker: reranker, cfg: cfg, rerankModel: rerankModel}
}

// UseOptimized reports whether the request falls in the canary bucket. The
// bucket is a pure function of user, request and query.
func (r *HybridRetriever) UseOptimized(userID, requestID, query string) bool {
	if !r.cfg.OptimizedEnabled {
		return false
	}
	return InCanary(userID, requestID, query, r.cfg.CanaryPct)
}

// InCanary buckets md5("user|request|query") into [0,100) against pct.
func InCanary(userID, requestID, query string, pct int) bool {
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	}
	if requestID == "" {
		requestID = "-"
	}
	sum := md5Hex(userID + "|" + requestID + "|" + query)
	n, err := strconv.ParseUint(sum[:8], 16, 64)
	if err != nil {
		return false
	}
	return int(n%100) < pct
}

// ResolvePlan picks the plan for mode and intent.
func (r *HybridRetriever) ResolvePlan(mode domain.InteractionMode, intent domain.QueryIntent, optimized bool) domain.ResolvedPlan {
	plan := r.cfg.BasePlan
	switch {
	case mode == domain.ModeDocBackground && intent == domain.IntentDocTargeted:
		plan = r.cfg.BackgroundTargeted
	case mode == domain.ModeDocBackground:
		plan = r.cfg.BackgroundGeneral
	case mode == domain.ModeDocReferenced:
		plan = r.cfg.Referenced
	}

	fallback := r.cfg.FilterFallback
	if optimized {
		switch {
		case mode == domain.ModeDocBackground && intent == domain.IntentGeneralAcademic:
			plan = r.cfg.OptimizedGeneral
		case mode == domain.ModeDocBackground && intent == domain.IntentDocTargeted:
			plan = r.cfg.OptimizedTargeted
		case mode == domain.ModeDocReferenced:
			plan = r.cfg.OptimizedReferenced
		}
		fallback = r.cfg.OptimizedFilterFallback
	}
	return domain.ResolvedPlan{
		RetrievalPlan:  plan,
		Optimized:      optimized,
		FilterFallback: fallback,
		RerankModel:    r.rerankModel,
	}
}

// BuildFilter scopes retrieval to the owner plus the mentioned documents, or
// else the document type the query is about.
func BuildFilter(userID, query string, route domain.IntentRoute, docIDs []string) domain.ChunkFilter {
	f := domain.ChunkFilter{UserID: userID}
	if len(docIDs) > 0 {
		f.DocIDs = slices.Clone(docIDs)
		return f
	}
	if dt := InferDocType(query); dt.NeedsGrounding() {
		f.DocType = dt
	} else if route == domain.RouteSemanticPolicy {
		f.DocType = domain.DocTypeGeneral
	}
	return f
}

// Retrieve runs the plan for req. Backend failures degrade to fewer
// candidates; only an unscoped request is an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, req RetrievalRequest) (domain.RetrievalResult, error) {
	logger.Section("Hybrid Retrieval")
	query := strings.TrimSpace(req.Query)
	mode := domain.ResolveMode(req.HasDocuments, req.DocIDs)
	intent := ClassifyQueryIntent(query)
	plan := r.ResolvePlan(mode, intent, req.Optimized)

	out := domain.RetrievalResult{Mode: mode, Intent: intent, Plan: plan, Candidates: []domain.Candidate{}}
	if mode == domain.ModeLLMOnly {
		return out, nil
	}

	filter := BuildFilter(req.UserID, query, req.Route, req.DocIDs)
	if err := filter.Validate(); err != nil {
		return out, err
	}

	started := time.Now()
	dense := r.dense(ctx, query, plan.DenseK, filter)
	if len(dense) == 0 && plan.FilterFallback && filter.IsCompound() {
		logger.Debug("compound filter empty, retrying owner-only")
		dense = r.dense(ctx, query, plan.DenseK, filter.OwnerOnly())
		out.FilterRelaxed = true
	}
	out.DenseHits = len(dense)

	final := dense
	if plan.UseHybrid && len(dense) > 0 {
		sparse := RankBM25(query, dense, plan.SparseK)
		final = ReciprocalRankFusion(dense, sparse, r.cfg.RRFK, plan.SparseK)
		out.SparseHits = len(final)
	}
	if len(final) > 0 {
		out.TopScore = final[0].Score()
	}

	if plan.UseRerank && len(final) > 0 {
		rerankStarted := time.Now()
		pool := final[:min(plan.RerankPool(), len(final))]
		final, out.RerankFailed = r.rerank(ctx, query, pool, max(plan.RerankTopN, 1))
		out.RerankMs = time.Since(rerankStarted).Milliseconds()
	}

	final = final[:min(plan.FinalLimit(), len(final))]
	out.RetrievalMs = time.Since(started).Milliseconds()

	if mode == domain.ModeDocBackground && intent == domain.IntentGeneralAcademic && out.TopScore < r.cfg.RelevanceThreshold {
		logger.Debug("top score %.3f below %.3f, discarding evidence", out.TopScore, r.cfg.RelevanceThreshold)
		final = []domain.Candidate{}
		out.BelowCutoff = true
	}
	out.Candidates = append(out.Candidates, final...)
	logger.Debug("retrieval mode=%s intent=%s dense=%d bm25=%d final=%d optimized=%t",
		mode, intent, out.DenseHits, out.SparseHits, len(final), plan.Optimized)
	return out, nil
}

// dense runs one similarity search under SearchTimeout. A failed or timed
// out search yields no candidates.
func (r *HybridRetriever) dense(ctx context.Context, query string, k int, filter domain.ChunkFilter) []domain.Candidate {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SearchTimeout)
	defer cancel()
	scored, err := r.store.SimilaritySearch(ctx, query, max(k, 1), filter)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		logger.Warn("dense search: %v", fmt.Errorf("%w: %w", domain.ErrRetrieval, err))
		return nil
	}
	cands := make([]domain.Candidate, 0, len(scored))
	for _, s := range scored {
		if s.Chunk.UserID != filter.UserID {
			continue
		}
		cands = append(cands, domain.Candidate{Chunk: s.Chunk, DenseScore: s.Score})
	}
	return DedupCandidates(cands)
}

// rerank orders pool by cross-encoder score and keeps topN. On failure the
// input order is kept, truncated to topN.
func (r *HybridRetriever) rerank(ctx context.Context, query string, pool []domain.Candidate, topN int) ([]domain.Candidate, bool) {
	fallback := pool[:min(topN, len(pool))]
	if r.reranker == nil {
		logger.Warn("rerank requested but %v", domain.ErrRerankUnavailable)
		return fallback, true
	}
	passages := make([]string, len(pool))
	for i, c := range pool {
		passages[i] = c.Chunk.Text
	}
	scores, err := r.reranker.Score(ctx, r.rerankModel, query, passages)
	if err != nil || len(scores) != len(pool) {
		if err == nil {
			err = fmt.Errorf("got %d scores for %d passages", len(scores), len(pool))
		}
		logger.Warn("rerank model=%s failed: %v, keeping fused order", r.rerankModel, err)
		return fallback, true
	}

	ranked := slices.Clone(pool)
	for i := range ranked {
		s := scores[i]
		ranked[i].RerankScore = &s
	}
	slices.SortStableFunc(ranked, func(a, b domain.Candidate) int {
		switch {
		case *a.RerankScore > *b.RerankScore:
			return -1
		case *a.RerankScore < *b.RerankScore:
			return 1
		default:
			return 0
		}
	})
	return ranked[:min(topN, len(ranked))], false
}
