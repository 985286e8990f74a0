package domain

import "strings"

// InteractionMode describes how a request uses the user's documents.
type InteractionMode string

// Interaction modes.
const (
	// ModeLLMOnly is used when the user owns no documents; nothing is retrieved.
	ModeLLMOnly InteractionMode = "llm_only"

	// ModeDocBackground uses the user's documents as optional background.
	ModeDocBackground InteractionMode = "doc_background"

	// ModeDocReferenced restricts retrieval to @mentioned documents.
	ModeDocReferenced InteractionMode = "doc_referenced"
)

// ResolveMode picks the interaction mode for a request.
func ResolveMode(hasDocuments bool, resolvedDocIDs []string) InteractionMode {
	switch {
	case hasDocuments && len(resolvedDocIDs) > 0:
		return ModeDocReferenced
	case hasDocuments:
		return ModeDocBackground
	default:
		return ModeLLMOnly
	}
}

// QueryIntent says whether a query targets the user's own records.
type QueryIntent string

// Query intents.
const (
	IntentGeneralAcademic QueryIntent = "general_academic"
	IntentDocTargeted     QueryIntent = "doc_targeted"
)

// RetrievalPlan sizes one retrieval call.
type RetrievalPlan struct {
	// DenseK is the dense fan-out.
	DenseK int `toml:"dense_k" json:"dense_k"`

	// SparseK caps the fused list when hybrid retrieval is on.
	SparseK int `toml:"sparse_k" json:"sparse_k"`

	// RerankTopN is how many candidates survive reranking.
	RerankTopN int `toml:"rerank_top_n" json:"rerank_top_n"`

	// UseHybrid enables BM25 over the dense pool plus rank fusion.
	UseHybrid bool `toml:"hybrid" json:"hybrid"`

	// UseRerank enables the cross-encoder pass.
	UseRerank bool `toml:"rerank" json:"rerank"`
}

// FinalLimit is the number of candidates handed to synthesis.
func (p RetrievalPlan) FinalLimit() int {
	limit := p.DenseK
	if p.UseRerank {
		limit = p.RerankTopN
	}
	return max(limit, 1)
}

// RerankPool is the number of fused candidates sent to the reranker.
func (p RetrievalPlan) RerankPool() int {
	return max(p.DenseK, p.SparseK, 1)
}

// ResolvedPlan is the plan chosen for a request plus the knobs that depend on
// whether the low-latency canary path was selected.
type ResolvedPlan struct {
	RetrievalPlan

	// Optimized is true when the canary low-latency plan was selected.
	Optimized bool `json:"optimized"`

	// FilterFallback allows relaxing a compound filter to owner-only.
	FilterFallback bool `json:"filter_fallback"`

	// RerankModel names the cross-encoder.
	RerankModel string `json:"rerank_model"`
}

// Candidate is a chunk under consideration for one request.
type Candidate struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// DenseScore is the similarity reported by the chunk store.
	DenseScore float64

	// SparseScore is the BM25 score, nil when sparse ranking did not run.
	SparseScore *float64

	// FusedScore is the reciprocal rank fusion score, zero without fusion.
	FusedScore float64

	// RerankScore is the cross-encoder score, nil when rerank did not run.
	RerankScore *float64
}

// Score returns the score that ranked the candidate last.
func (c Candidate) Score() float64 {
	if c.FusedScore > 0 {
		return c.FusedScore
	}
	return c.DenseScore
}

// DedupKey identifies near-identical candidates: document, chunk identity and
// the first 120 characters of content.
func (c Candidate) DedupKey() string {
	content := []rune(c.Chunk.Text)
	if len(content) > 120 {
		content = content[:120]
	}
	return strings.Join([]string{c.Chunk.DocID, c.Chunk.ID, string(content)}, "|")
}

// RetrievalResult is the outcome of one hybrid retrieval call.
type RetrievalResult struct {
	Mode          InteractionMode
	Intent        QueryIntent
	Plan          ResolvedPlan
	Candidates    []Candidate
	DenseHits     int
	SparseHits    int
	TopScore      float64
	FilterRelaxed bool
	BelowCutoff   bool
	RetrievalMs   int64
	RerankMs      int64
	RerankFailed  bool
}
