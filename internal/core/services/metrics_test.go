package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arah-ai/arah/internal/core/domain"
)

// TestMetricsFanout tests that one failing sink does not block the others
func TestMetricsFanout(t *testing.T) {
	good := &mockSink{}
	bad := &mockSink{err: errors.New("disk full")}
	other := &mockSink{}
	fan := NewMetricsFanout(good, nil, bad, other)

	err := fan.Emit(context.Background(), domain.MetricRecord{RequestID: "r1"})
	assert.ErrorContains(t, err, "disk full")
	assert.Len(t, good.records, 1)
	assert.Len(t, other.records, 1)
	assert.Len(t, fan.sinks, 3)
}

func TestMetricsFanout_Empty(t *testing.T) {
	assert.NoError(t, NewMetricsFanout().Emit(context.Background(), domain.MetricRecord{}))
}
