package domain

import "time"

// MetricRecord is one normalized per-request outcome.
type MetricRecord struct {
	RequestID    string       `json:"request_id"`
	UserID       string       `json:"user_id"`
	Mode         string       `json:"mode"`
	QueryLen     int          `json:"query_len"`
	DenseHits    int          `json:"dense_hits"`
	SparseHits   int          `json:"bm25_hits"`
	FinalDocs    int          `json:"final_docs"`
	RetrievalMs  int64        `json:"retrieval_ms"`
	RerankMs     int64        `json:"rerank_ms"`
	LLMModel     string       `json:"llm_model"`
	LLMTimeMs    int64        `json:"llm_time_ms"`
	FallbackUsed bool         `json:"fallback_used"`
	SourceCount  int          `json:"source_count"`
	Pipeline     Pipeline     `json:"pipeline"`
	IntentRoute  IntentRoute  `json:"intent_route"`
	Validation   Validation   `json:"validation"`
	AnswerMode   AnswerMode   `json:"answer_mode"`
	StatusCode   int          `json:"status_code"`
	StageTimings StageTimings `json:"stage_timings_ms"`
	CreatedAt    time.Time    `json:"created_at"`
}

// MetricFromEnvelope builds the record for a finished request.
func MetricFromEnvelope(requestID, userID, query string, env AnswerEnvelope) MetricRecord {
	m := env.Meta
	return MetricRecord{
		RequestID:    firstNonEmpty(requestID, "-"),
		UserID:       userID,
		Mode:         m.Mode,
		QueryLen:     len([]rune(query)),
		DenseHits:    max(m.DenseHits, 0),
		SparseHits:   max(m.SparseHits, 0),
		FinalDocs:    max(m.RetrievalDocsCount, 0),
		RetrievalMs:  max(m.StageTimings.RetrievalMs, 0),
		RerankMs:     max(m.RerankMs, 0),
		LLMModel:     m.LLMModel,
		LLMTimeMs:    max(m.StageTimings.LLMMs, 0),
		FallbackUsed: m.FallbackUsed,
		SourceCount:  len(env.Sources),
		Pipeline:     m.Pipeline,
		IntentRoute:  m.IntentRoute,
		Validation:   m.Validation,
		AnswerMode:   m.AnswerMode,
		StatusCode:   m.StatusCode,
		StageTimings: m.StageTimings,
		CreatedAt:    time.Now().UTC(),
	}
}
