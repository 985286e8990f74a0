package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arah-ai/arah/internal/core/domain"
)

var (
	metricsMinutes          int
	metricsLimit            int
	metricsTopSlow          int
	metricsRequestPrefix    string
	metricsIncludeBenchmark bool
	metricsJSON             bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Summarise recent request metrics",
	Long: `Prints a canary report over the recorded request metrics: fallback and
error rates, latency percentiles per stage, per-mode breakdowns and the
slowest requests. Benchmark requests (request id prefixed "bench-") are
excluded unless --include-benchmark is set.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().IntVar(&metricsMinutes, "minutes", 60, "lookback window in minutes")
	metricsCmd.Flags().IntVar(&metricsLimit, "limit", 5000, "maximum rows to read")
	metricsCmd.Flags().IntVar(&metricsTopSlow, "top-slow", 10, "number of slow requests to show")
	metricsCmd.Flags().StringVar(&metricsRequestPrefix, "request-prefix", "", "only include request ids with this prefix")
	metricsCmd.Flags().BoolVar(&metricsIncludeBenchmark, "include-benchmark", false, "include benchmark requests")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(metricsCmd)
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}

	report, err := reportService.Report(cmd.Context(), domain.ReportOptions{
		Window:           time.Duration(max(metricsMinutes, 1)) * time.Minute,
		Limit:            metricsLimit,
		TopSlow:          metricsTopSlow,
		RequestPrefix:    metricsRequestPrefix,
		IncludeBenchmark: metricsIncludeBenchmark,
	})
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	if metricsJSON {
		return printJSON(cmd, report)
	}
	printReport(cmd, report)
	return nil
}

func printReport(cmd *cobra.Command, r *domain.CanaryReport) {
	opts := r.Options
	minutes := int(opts.Window / time.Minute)
	g := r.Global
	if g.Count == 0 {
		cmd.Printf("No RAG metrics found for last %d minutes.\n", minutes)
		return
	}

	cmd.Println("RAG Canary Report")
	cmd.Printf("Window      : last %d minutes\n", minutes)
	cmd.Printf("Rows        : %d (limit=%d)\n", g.Count, opts.Limit)
	bench := "excluded"
	if opts.IncludeBenchmark {
		bench = "included"
	}
	cmd.Printf("Bench rows  : %s\n", bench)
	if opts.RequestPrefix != "" {
		cmd.Printf("Req prefix  : %s\n", opts.RequestPrefix)
	}
	cmd.Printf("Fallback    : %d (%.2f%%)\n", g.FallbackCount, g.FallbackRate)
	cmd.Printf("Errors (5xx): %d (%.2f%%)\n", g.ErrorCount, g.ErrorRate)
	cmd.Printf("Latency p50/p95 (ms): retrieval=%d/%d, rerank=%d/%d, llm=%d/%d, total=%d/%d\n",
		g.P50Retrieval, g.P95Retrieval, g.P50Rerank, g.P95Rerank,
		g.P50LLM, g.P95LLM, g.P50Total, g.P95Total)

	cmd.Println("\nBy mode:")
	for _, m := range r.ByMode {
		cmd.Printf("- %s: n=%d, fallback=%.2f%%, errors=%.2f%%, total p95=%dms\n",
			m.Mode, m.Count, m.FallbackRate, m.ErrorRate, m.P95Total)
	}

	for _, name := range []string{"pipeline", "validation", "intent_route", "answer_mode"} {
		cmd.Printf("\nBy %s:\n", name)
		for _, b := range r.Distributions[name] {
			cmd.Printf("- %s: n=%d\n", b.Key, b.Count)
		}
	}

	cmd.Printf("\nTop %d slow requests:\n", opts.TopSlow)
	for i, row := range r.Slowest {
		cmd.Printf("%d. request_id=%s mode=%s status=%d total=%dms (retrieval=%d, rerank=%d, llm=%d)\n",
			i+1, row.RequestID, row.Mode, row.StatusCode, row.TotalMs(),
			row.RetrievalMs, row.RerankMs, row.LLMTimeMs)
	}
}
