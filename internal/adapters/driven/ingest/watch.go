package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/arah-ai/arah/internal/adapters/driven/fswatch"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/logger"
)

// Ingester stores a batch of exported chunks.
type Ingester interface {
	Ingest(ctx context.Context, chunks []domain.Chunk) (int, error)
}

// Result reports one loaded export file.
type Result struct {
	Path   string
	Chunks int
	Err    error
}

// LoadFile reads one export and hands it to the ingester.
func LoadFile(ctx context.Context, ing Ingester, path string) Result {
	chunks, err := ReadFile(path)
	if err != nil {
		return Result{Path: path, Err: err}
	}
	n, err := ing.Ingest(ctx, chunks)
	if err != nil {
		return Result{Path: path, Err: fmt.Errorf("%s: %w", path, err)}
	}
	return Result{Path: path, Chunks: n}
}

// LoadDir ingests every *.jsonl file in dir in name order.
func LoadDir(ctx context.Context, ing Ingester, dir string) ([]Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && isExport(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		results = append(results, LoadFile(ctx, ing, p))
	}
	return results, nil
}

// WatchOptions configures Watch.
type WatchOptions struct {
	Debounce time.Duration

	// OnResult is called after every file load. Nil logs the outcome.
	OnResult func(Result)
}

// Watch loads the existing exports in dir, then reloads any export that is
// written or created until ctx is done. The returned channel closes once the
// watcher has stopped.
func Watch(ctx context.Context, ing Ingester, dir string, opts WatchOptions) (<-chan struct{}, error) {
	report := opts.OnResult
	if report == nil {
		report = logResult
	}

	initial, err := LoadDir(ctx, ing, dir)
	if err != nil {
		return nil, err
	}
	for _, r := range initial {
		report(r)
	}

	return fswatch.Watch(ctx, dir, fswatch.Options{
		Debounce: opts.Debounce,
		Match:    isExport,
	}, func(paths []string) {
		sort.Strings(paths)
		for _, p := range paths {
			report(LoadFile(ctx, ing, p))
		}
	})
}

func isExport(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".jsonl")
}

func logResult(r Result) {
	if r.Err != nil {
		logger.Error("ingest %s: %v", r.Path, r.Err)
		return
	}
	logger.Info("ingested %d chunks from %s", r.Chunks, r.Path)
}
