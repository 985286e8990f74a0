package domain

import (
	"strings"
	"time"
)

// ReportOptions selects the metric records a canary report covers.
type ReportOptions struct {
	Window           time.Duration
	Limit            int
	TopSlow          int
	RequestPrefix    string
	IncludeBenchmark bool
}

// Normalized fills defaults: a one hour window, 5000 rows, top 10 slow.
func (o ReportOptions) Normalized() ReportOptions {
	if o.Window <= 0 {
		o.Window = time.Hour
	}
	if o.Limit <= 0 {
		o.Limit = 5000
	}
	if o.TopSlow <= 0 {
		o.TopSlow = 10
	}
	o.RequestPrefix = strings.TrimSpace(o.RequestPrefix)
	return o
}

// LatencyStats summarises one group of metric records.
type LatencyStats struct {
	Count         int     `json:"count"`
	FallbackCount int     `json:"fallback_count"`
	ErrorCount    int     `json:"error_count"`
	FallbackRate  float64 `json:"fallback_rate"`
	ErrorRate     float64 `json:"error_rate"`
	P50Retrieval  int64   `json:"p50_retrieval_ms"`
	P95Retrieval  int64   `json:"p95_retrieval_ms"`
	P50Rerank     int64   `json:"p50_rerank_ms"`
	P95Rerank     int64   `json:"p95_rerank_ms"`
	P50LLM        int64   `json:"p50_llm_ms"`
	P95LLM        int64   `json:"p95_llm_ms"`
	P50Total      int64   `json:"p50_total_ms"`
	P95Total      int64   `json:"p95_total_ms"`
}

// Bucket is one value of a categorical distribution.
type Bucket struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ModeStats is the latency summary for one interaction mode.
type ModeStats struct {
	Mode string `json:"mode"`
	LatencyStats
}

// CanaryReport compares request outcomes across pipelines and modes.
type CanaryReport struct {
	Options       ReportOptions       `json:"-"`
	Since         time.Time           `json:"since"`
	Global        LatencyStats        `json:"global"`
	ByMode        []ModeStats         `json:"by_mode"`
	Distributions map[string][]Bucket `json:"distributions"`
	Slowest       []MetricRecord      `json:"slowest"`
}

// TotalMs is the end-to-end latency a report attributes to a request.
func (r MetricRecord) TotalMs() int64 {
	return r.RetrievalMs + r.RerankMs + r.LLMTimeMs
}
