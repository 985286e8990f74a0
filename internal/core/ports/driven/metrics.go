package driven

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// MetricsSink records per-request outcomes. Callers ignore returned errors
// beyond logging them.
type MetricsSink interface {
	// Emit records one metric.
	Emit(ctx context.Context, record domain.MetricRecord) error
}

// MetricsReader lists recorded metrics, newest first.
type MetricsReader interface {
	// Recent returns up to limit records.
	Recent(ctx context.Context, limit int) ([]domain.MetricRecord, error)
}
