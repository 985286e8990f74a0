package driving

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// ReportService summarises recorded request metrics.
type ReportService interface {
	// Report summarises the records inside opts.Window.
	Report(ctx context.Context, opts domain.ReportOptions) (*domain.CanaryReport, error)
}
