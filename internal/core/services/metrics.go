package services

import (
	"context"
	"errors"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure MetricsFanout implements the interface.
var _ driven.MetricsSink = (*MetricsFanout)(nil)

// MetricsFanout emits every record to each sink in turn. One failing sink
// does not stop the others.
type MetricsFanout struct {
	sinks []driven.MetricsSink
}

// NewMetricsFanout creates a fan-out over the non-nil sinks.
func NewMetricsFanout(sinks ...driven.MetricsSink) *MetricsFanout {
	f := &MetricsFanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Emit implements driven.MetricsSink. The joined sink errors are returned for
// callers that care; the answer pipeline only logs them.
func (f *MetricsFanout) Emit(ctx context.Context, record domain.MetricRecord) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Emit(ctx, record); err != nil {
			logger.Warn("metric sink: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
