package domain

// Pipeline names the branch that produced an answer.
type Pipeline string

// Pipelines.
const (
	PipelineRouteGuard  Pipeline = "route_guard"
	PipelineStructured  Pipeline = "structured_analytics"
	PipelineRAGSemantic Pipeline = "rag_semantic"
)

// Validation records how the final answer text was vetted.
type Validation string

// Validation outcomes.
const (
	// ValidationNotApplicable is used when no validation step ran.
	ValidationNotApplicable Validation = "not_applicable"

	// ValidationPassed means a polished rewrite agreed with the facts.
	ValidationPassed Validation = "passed"

	// ValidationSkipped means polishing is disabled.
	ValidationSkipped Validation = "skipped"

	// ValidationSkippedStrict means the query asked for raw data.
	ValidationSkippedStrict Validation = "skipped_strict"

	// ValidationFailedFallback means the answer reverted to a safe fallback.
	ValidationFailedFallback Validation = "failed_fallback"

	// ValidationStrictNoFallback means a strict query found no rows.
	ValidationStrictNoFallback Validation = "strict_no_fallback"

	// ValidationNoGroundingEvidence means the pipeline abstained.
	ValidationNoGroundingEvidence Validation = "no_grounding_evidence"
)

// Answer modes reported in meta that are not interaction modes.
const (
	MetaModeGuard                = "guard"
	MetaModeStructuredTranscript = "structured_transcript"
	MetaModeStructuredSchedule   = "structured_schedule"
	MetaModeSemanticPolicy       = "semantic_policy"
)

// Source is one citation attached to an answer.
type Source struct {
	// Source is the document label.
	Source string `json:"source"`

	// Page is the page number, zero when unknown.
	Page int `json:"page,omitempty"`

	// Snippet is a short excerpt of the cited text.
	Snippet string `json:"snippet,omitempty"`
}

// AnalyticsStats counts structured facts at each stage.
type AnalyticsStats struct {
	Raw       int   `json:"raw"`
	Deduped   int   `json:"deduped"`
	Returned  int   `json:"returned"`
	LatencyMs int64 `json:"latency_ms,omitempty"`
}

// StageTimings holds per-stage wall time in milliseconds.
type StageTimings struct {
	RouteMs      int64 `json:"route_ms"`
	StructuredMs int64 `json:"structured_ms"`
	RetrievalMs  int64 `json:"retrieval_ms"`
	LLMMs        int64 `json:"llm_ms"`
}

// AnswerMeta describes how an answer was produced.
type AnswerMeta struct {
	Mode                string          `json:"mode"`
	Pipeline            Pipeline        `json:"pipeline"`
	IntentRoute         IntentRoute     `json:"intent_route"`
	Validation          Validation      `json:"validation"`
	AnswerMode          AnswerMode      `json:"answer_mode"`
	Safety              SafetyDecision  `json:"safety,omitempty"`
	AnalyticsStats      *AnalyticsStats `json:"analytics_stats,omitempty"`
	ReferencedDocuments []string        `json:"referenced_documents"`
	UnresolvedMentions  []string        `json:"unresolved_mentions"`
	AmbiguousMentions   []string        `json:"ambiguous_mentions"`
	RetrievalDocsCount  int             `json:"retrieval_docs_count"`
	StructuredReturned  int             `json:"structured_returned"`
	TopScore            float64         `json:"top_score"`
	DenseHits           int             `json:"dense_hits,omitempty"`
	SparseHits          int             `json:"bm25_hits,omitempty"`
	RerankMs            int64           `json:"rerank_ms,omitempty"`
	LLMModel            string          `json:"llm_model,omitempty"`
	FallbackUsed        bool            `json:"fallback_used"`
	Optimized           bool            `json:"optimized,omitempty"`
	StatusCode          int             `json:"status_code"`
	StageTimings        StageTimings    `json:"stage_timings_ms"`
}

// AnswerEnvelope is the sole result of answering a query.
type AnswerEnvelope struct {
	Answer  string     `json:"answer"`
	Sources []Source   `json:"sources"`
	Meta    AnswerMeta `json:"meta"`
}

// Normalize fills the defaults every envelope carries regardless of the
// branch that produced it.
func (e *AnswerEnvelope) Normalize(defaultPipeline Pipeline) {
	if e.Sources == nil {
		e.Sources = []Source{}
	}
	m := &e.Meta
	if m.Pipeline == "" {
		m.Pipeline = defaultPipeline
	}
	if m.IntentRoute == "" {
		m.IntentRoute = RouteDefaultRAG
	}
	if m.Validation == "" {
		m.Validation = ValidationNotApplicable
	}
	if m.AnswerMode == "" {
		m.AnswerMode = AnswerModeFactual
	}
	if m.StatusCode == 0 {
		m.StatusCode = 200
	}
	if m.StructuredReturned == 0 && m.AnalyticsStats != nil {
		m.StructuredReturned = m.AnalyticsStats.Returned
	}
	if m.ReferencedDocuments == nil {
		m.ReferencedDocuments = []string{}
	}
	if m.UnresolvedMentions == nil {
		m.UnresolvedMentions = []string{}
	}
	if m.AmbiguousMentions == nil {
		m.AmbiguousMentions = []string{}
	}
}
