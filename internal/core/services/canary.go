package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// Ensure CanaryService implements the interface.
var _ driving.ReportService = (*CanaryService)(nil)

// benchPrefix marks request ids produced by benchmark runs.
const benchPrefix = "bench-"

// CanaryService builds reports from stored metric records.
type CanaryService struct {
	reader driven.MetricsReader
	now    func() time.Time
}

// NewCanaryService creates a report service over the given reader.
func NewCanaryService(reader driven.MetricsReader) (*CanaryService, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: metrics reader is required", domain.ErrConfiguration)
	}
	return &CanaryService{reader: reader, now: time.Now}, nil
}

// Report reads recent records and summarises those inside the window.
// An empty report (Global.Count == 0) is not an error.
func (s *CanaryService) Report(ctx context.Context, opts domain.ReportOptions) (*domain.CanaryReport, error) {
	opts = opts.Normalized()
	records, err := s.reader.Recent(ctx, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	since := s.now().Add(-opts.Window)

	var rows []domain.MetricRecord
	for _, r := range records {
		if r.CreatedAt.Before(since) {
			continue
		}
		if !opts.IncludeBenchmark && strings.HasPrefix(r.RequestID, benchPrefix) {
			continue
		}
		if opts.RequestPrefix != "" && !strings.HasPrefix(r.RequestID, opts.RequestPrefix) {
			continue
		}
		rows = append(rows, r)
	}
	return BuildCanaryReport(rows, opts, since), nil
}

// BuildCanaryReport summarises already filtered rows.
func BuildCanaryReport(rows []domain.MetricRecord, opts domain.ReportOptions, since time.Time) *domain.CanaryReport {
	opts = opts.Normalized()
	report := &domain.CanaryReport{
		Options:       opts,
		Since:         since,
		Global:        computeLatencyStats(rows),
		Distributions: map[string][]domain.Bucket{},
	}

	byMode := map[string][]domain.MetricRecord{}
	for _, r := range rows {
		byMode[orUnknown(r.Mode)] = append(byMode[orUnknown(r.Mode)], r)
	}
	for mode, group := range byMode {
		report.ByMode = append(report.ByMode, domain.ModeStats{Mode: mode, LatencyStats: computeLatencyStats(group)})
	}
	sort.Slice(report.ByMode, func(i, j int) bool { return report.ByMode[i].Mode < report.ByMode[j].Mode })

	report.Distributions["pipeline"] = distribution(rows, func(r domain.MetricRecord) string { return string(r.Pipeline) })
	report.Distributions["validation"] = distribution(rows, func(r domain.MetricRecord) string { return string(r.Validation) })
	report.Distributions["intent_route"] = distribution(rows, func(r domain.MetricRecord) string { return string(r.IntentRoute) })
	report.Distributions["answer_mode"] = distribution(rows, func(r domain.MetricRecord) string { return string(r.AnswerMode) })

	slow := append([]domain.MetricRecord(nil), rows...)
	sort.SliceStable(slow, func(i, j int) bool { return slow[i].TotalMs() > slow[j].TotalMs() })
	if len(slow) > opts.TopSlow {
		slow = slow[:opts.TopSlow]
	}
	report.Slowest = slow
	return report
}

func computeLatencyStats(rows []domain.MetricRecord) domain.LatencyStats {
	st := domain.LatencyStats{Count: len(rows)}
	retrieval := make([]int64, 0, len(rows))
	rerank := make([]int64, 0, len(rows))
	llm := make([]int64, 0, len(rows))
	total := make([]int64, 0, len(rows))
	for _, r := range rows {
		if r.FallbackUsed {
			st.FallbackCount++
		}
		if r.StatusCode >= 500 {
			st.ErrorCount++
		}
		retrieval = append(retrieval, r.RetrievalMs)
		rerank = append(rerank, r.RerankMs)
		llm = append(llm, r.LLMTimeMs)
		total = append(total, r.TotalMs())
	}
	st.FallbackRate = rate(st.FallbackCount, st.Count)
	st.ErrorRate = rate(st.ErrorCount, st.Count)
	st.P50Retrieval, st.P95Retrieval = percentile(retrieval, 0.50), percentile(retrieval, 0.95)
	st.P50Rerank, st.P95Rerank = percentile(rerank, 0.50), percentile(rerank, 0.95)
	st.P50LLM, st.P95LLM = percentile(llm, 0.50), percentile(llm, 0.95)
	st.P50Total, st.P95Total = percentile(total, 0.50), percentile(total, 0.95)
	return st
}

// percentile uses the nearest-rank index min(n*pct, n-1) over sorted values.
func percentile(values []int64, pct float64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * pct)
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func rate(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func distribution(rows []domain.MetricRecord, key func(domain.MetricRecord) string) []domain.Bucket {
	counts := map[string]int{}
	for _, r := range rows {
		counts[orUnknown(key(r))]++
	}
	out := make([]domain.Bucket, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.Bucket{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "unknown"
	}
	return s
}
