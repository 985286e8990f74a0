package memory

import (
	"context"
	"sync"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Ensure MetricsRing implements the interfaces.
var (
	_ driven.MetricsSink   = (*MetricsRing)(nil)
	_ driven.MetricsReader = (*MetricsRing)(nil)
)

// DefaultRingSize is used when NewMetricsRing gets a non-positive size.
const DefaultRingSize = 512

// MetricsRing keeps the most recent metric records in a fixed-size buffer.
type MetricsRing struct {
	mu   sync.Mutex
	buf  []domain.MetricRecord
	next int
	full bool
}

// NewMetricsRing creates a ring holding up to size records.
func NewMetricsRing(size int) *MetricsRing {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &MetricsRing{buf: make([]domain.MetricRecord, size)}
}

// Emit records one metric, overwriting the oldest when full.
func (r *MetricsRing) Emit(_ context.Context, record domain.MetricRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = record
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (r *MetricsRing) Recent(_ context.Context, limit int) ([]domain.MetricRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next
	if r.full {
		n = len(r.buf)
	}
	limit = min(limit, n)
	out := make([]domain.MetricRecord, 0, max(limit, 0))
	for i := 0; i < limit; i++ {
		idx := (r.next - 1 - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out, nil
}
