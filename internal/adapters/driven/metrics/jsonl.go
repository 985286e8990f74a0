// Package metrics provides file and log sinks for per-request metric records.
package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure JSONLSink implements the interfaces.
var (
	_ driven.MetricsSink   = (*JSONLSink)(nil)
	_ driven.MetricsReader = (*JSONLSink)(nil)
	_ driven.MetricsSink   = LogSink{}
)

// maxLine bounds a single record line when reading back.
const maxLine = 1 << 20

// tailChunk is how much of the file Recent reads per step.
var tailChunk = 64 << 10

// JSONLSink appends one JSON object per record to a file.
type JSONLSink struct {
	mu   sync.Mutex
	path string
}

// NewJSONLSink creates a sink writing to path, creating parent directories.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: metrics file path is empty", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("metrics: create directory: %w", err)
	}
	return &JSONLSink{path: path}, nil
}

// Path returns the file the sink writes to.
func (s *JSONLSink) Path() string { return s.path }

// Emit implements driven.MetricsSink.
func (s *JSONLSink) Emit(_ context.Context, record domain.MetricRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("metrics: encode: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("metrics: open: %w", err)
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("metrics: write: %w", err)
	}
	return f.Close()
}

// Recent implements driven.MetricsReader. The file is read backwards from
// its end until limit records are decoded. Lines that fail to decode are
// skipped.
func (s *JSONLSink) Recent(_ context.Context, limit int) ([]domain.MetricRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("metrics: open: %w", err)
	}
	defer f.Close()
	return tailRecords(f, limit)
}

// tailRecords decodes up to limit records from the end of f, newest first.
func tailRecords(f *os.File, limit int) ([]domain.MetricRecord, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("metrics: stat: %w", err)
	}

	var (
		out     []domain.MetricRecord
		partial []byte
		pos     = info.Size()
		buf     = make([]byte, tailChunk)
	)
	for pos > 0 && len(out) < limit {
		n := min(int64(tailChunk), pos)
		pos -= n
		if _, err := f.ReadAt(buf[:n], pos); err != nil {
			return nil, fmt.Errorf("metrics: read: %w", err)
		}
		lines := bytes.Split(append(buf[:n:n], partial...), []byte{'\n'})
		// lines[0] may continue in the chunk before this one.
		partial = append([]byte(nil), lines[0]...)
		if len(partial) > maxLine {
			logger.Debug("metrics: skip line longer than %d bytes", maxLine)
			partial = nil
		}
		for i := len(lines) - 1; i >= 1 && len(out) < limit; i-- {
			out = appendRecord(out, lines[i])
		}
	}
	if pos == 0 && len(out) < limit {
		out = appendRecord(out, partial)
	}
	return out, nil
}

func appendRecord(out []domain.MetricRecord, line []byte) []domain.MetricRecord {
	if len(bytes.TrimSpace(line)) == 0 {
		return out
	}
	var rec domain.MetricRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		logger.Debug("metrics: skip malformed line: %v", err)
		return out
	}
	return append(out, rec)
}

// LogSink writes a one-line summary of each record to the verbose log.
type LogSink struct{}

// Emit implements driven.MetricsSink.
func (LogSink) Emit(_ context.Context, r domain.MetricRecord) error {
	logger.Info("rag_metric request=%s mode=%s pipeline=%s route=%s validation=%s status=%d fallback=%t sources=%d retrieval=%dms rerank=%dms llm=%dms",
		r.RequestID, r.Mode, r.Pipeline, r.IntentRoute, r.Validation, r.StatusCode, r.FallbackUsed,
		r.SourceCount, r.RetrievalMs, r.RerankMs, r.LLMTimeMs)
	return nil
}
