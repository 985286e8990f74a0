// Package bootstrap wires the configured adapters into the core services.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arah-ai/arah/internal/adapters/driven/ai"
	memcache "github.com/arah-ai/arah/internal/adapters/driven/cache/memory"
	rediscache "github.com/arah-ai/arah/internal/adapters/driven/cache/redis"
	"github.com/arah-ai/arah/internal/adapters/driven/config"
	"github.com/arah-ai/arah/internal/adapters/driven/config/file"
	"github.com/arah-ai/arah/internal/adapters/driven/metrics"
	"github.com/arah-ai/arah/internal/adapters/driven/storage/memory"
	"github.com/arah-ai/arah/internal/adapters/driven/storage/milvus"
	"github.com/arah-ai/arah/internal/adapters/driven/storage/postgres"
	"github.com/arah-ai/arah/internal/adapters/driven/storage/sqlite"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/core/services"
	"github.com/arah-ai/arah/internal/logger"
)

// Options controls how the application is assembled.
type Options struct {
	// ConfigPath overrides ~/.arah/config.toml.
	ConfigPath string

	// EnvFiles are loaded before the configuration; defaults to ".env".
	EnvFiles []string
}

// Storage is the chunk and metrics persistence for one backend.
type Storage struct {
	Chunks  driven.ChunkStore
	Writer  driven.ChunkWriter
	Catalog driven.DocumentCatalog
	Metrics driven.MetricsSink
	Reader  driven.MetricsReader
}

// App holds the assembled services and everything that must be released.
type App struct {
	Config    domain.Config
	Store     *file.ConfigStore
	Prompts   *file.PromptStore
	Answer    *services.AnswerService
	Documents *services.DocumentService
	Grade     *services.GradeService
	Reports   *services.CanaryService
	Warnings  []string

	providers []driven.LLMProvider
	closers   []func() error
}

// CheckProviders pings every configured LLM provider. The error is non-nil
// when none of them answered.
func (a *App) CheckProviders(ctx context.Context) ([]ai.PingResult, error) {
	results := ai.PingAll(ctx, a.providers)
	return results, ai.Healthy(results)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// New loads configuration from disk and the environment and builds the app.
func New(ctx context.Context, opts Options) (*App, error) {
	if err := config.LoadEnv(opts.EnvFiles...); err != nil {
		return nil, err
	}
	cfg, store, err := config.LoadDefault(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	app, err := Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	return app, nil
}

// Build assembles the app from an already resolved configuration.
func Build(ctx context.Context, cfg domain.Config) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	aiRes, err := ai.Init(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init providers: %w", err)
	}
	app.onClose(func() error { aiRes.Close(); return nil })
	app.Warnings = append(app.Warnings, aiRes.Warnings...)
	app.providers = aiRes.Providers

	cache, err := openCache(ctx, cfg.Cache, app)
	if err != nil {
		return nil, err
	}
	st, err := OpenStorage(ctx, cfg.Storage, aiRes.EmbeddingService, app)
	if err != nil {
		return nil, err
	}

	app.Prompts, err = file.NewPromptStore("")
	if err != nil {
		return nil, fmt.Errorf("prompt store: %w", err)
	}

	chain, err := services.NewProviderChain(cfg.Synthesis.Provider, aiRes.Providers...)
	if err != nil {
		return nil, err
	}

	var analytics *services.AnalyticsEngine
	if cfg.Analytics.Enabled {
		if analytics, err = services.NewAnalyticsEngine(st.Chunks, cfg.Analytics); err != nil {
			return nil, err
		}
	}
	var polisher *services.Polisher
	if cfg.Analytics.PolishEnabled {
		polisher = services.NewPolisher(chain, cfg.Analytics, cfg.Synthesis.BackupModels)
		polisher.SetPromptStore(app.Prompts)
	}
	synth := services.NewSynthesizer(chain, cfg.Synthesis)
	synth.SetPromptStore(app.Prompts)

	app.Answer, err = services.NewAnswerService(services.AnswerDeps{
		Router:      services.NewIntentRouter(cache, cfg.Cache.RouteTTL),
		Mentions:    services.NewMentionResolver(st.Catalog, cache, cfg.Cache.MentionTTL, cfg.Cache.UserDocsTTL),
		Analytics:   analytics,
		Polisher:    polisher,
		Retriever:   services.NewHybridRetriever(st.Chunks, aiRes.Reranker, cfg.Retrieval, cfg.Rerank.Model),
		Synthesizer: synth,
		Metrics:     services.NewMetricsFanout(st.Metrics, metrics.LogSink{}),
	})
	if err != nil {
		return nil, err
	}

	app.Documents = services.NewDocumentService(st.Catalog, st.Writer, cache)
	app.Grade = services.NewGradeService(domain.DefaultGradeTarget)
	transcripts := analytics
	if transcripts == nil {
		if transcripts, err = services.NewAnalyticsEngine(st.Chunks, cfg.Analytics); err != nil {
			return nil, err
		}
	}
	app.Grade.SetTranscriptSource(transcripts)
	if app.Reports, err = services.NewCanaryService(st.Reader); err != nil {
		return nil, err
	}

	logger.Debug("storage=%s cache=%s providers=%d", cfg.Storage.Backend, cfg.Cache.Backend, len(aiRes.Providers))
	return app, nil
}

func openCache(ctx context.Context, cfg domain.CacheConfig, app *App) (driven.Cache, error) {
	switch cfg.Backend {
	case "redis":
		c, err := rediscache.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		app.onClose(c.Close)
		return c, nil
	default:
		return memcache.New(cfg.MaxEntries, cfg.RouteTTL, cfg.MentionTTL, cfg.UserDocsTTL), nil
	}
}

// OpenStorage opens the configured backend. Backends without a metrics
// table record to a JSON lines file under the data directory, or to an
// in-memory ring for the memory backend.
func OpenStorage(ctx context.Context, cfg domain.StorageConfig, embedder driven.EmbeddingService, app *App) (*Storage, error) {
	switch cfg.Backend {
	case "postgres":
		s, err := postgres.Open(ctx, cfg.PostgresDSN, embedder)
		if err != nil {
			return nil, err
		}
		app.onClose(s.Close)
		return &Storage{Chunks: s, Writer: s, Catalog: s, Metrics: s, Reader: s}, nil

	case "milvus":
		s, err := milvus.Open(ctx, milvus.Config{Address: cfg.MilvusAddr, Collection: cfg.MilvusCollection}, embedder)
		if err != nil {
			return nil, err
		}
		app.onClose(func() error { return s.Close(context.Background()) })
		sink, err := metricsFile(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return &Storage{Chunks: s, Writer: s, Catalog: s, Metrics: sink, Reader: sink}, nil

	case "memory":
		s := memory.NewChunkStore(embedder)
		ring := memory.NewMetricsRing(cfg.MetricsRingSize)
		return &Storage{Chunks: s, Writer: s, Catalog: s, Metrics: ring, Reader: ring}, nil

	default:
		var opts []sqlite.Option
		if embedder != nil {
			opts = append(opts, sqlite.WithEmbedder(embedder))
		}
		s, err := sqlite.NewStore(cfg.DataDir, opts...)
		if err != nil {
			return nil, err
		}
		app.onClose(s.Close)
		return &Storage{
			Chunks:  s.ChunkStore(),
			Writer:  s.ChunkWriter(),
			Catalog: s.DocumentCatalog(),
			Metrics: s.MetricsSink(),
			Reader:  s.MetricsReader(),
		}, nil
	}
}

func metricsFile(dataDir string) (*metrics.JSONLSink, error) {
	if dataDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(dir, "data")
	}
	return metrics.NewJSONLSink(filepath.Join(dataDir, "metrics.jsonl"))
}
