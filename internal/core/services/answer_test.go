package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/core/domain"
)

const polishPromptMarker = "FAKTA MUTLAK"

type answerHarness struct {
	cfg     domain.Config
	store   *mockChunkStore
	catalog *mockCatalog
	llm     *promptLLM
	sink    *mockSink
	svc     *AnswerService
}

func newAnswerHarness(t *testing.T, mutate func(*answerHarness)) *answerHarness {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.Analytics.Timezone = "UTC"
	cfg.Synthesis.BackupModels = []string{"b1"}

	h := &answerHarness{
		cfg:     cfg,
		store:   &mockChunkStore{},
		catalog: &mockCatalog{docs: map[string][]domain.Document{}},
		llm:     newPromptLLM(),
		sink:    &mockSink{},
	}
	if mutate != nil {
		mutate(h)
	}

	cache := newMockCache()
	chain := noSleepChain(h.llm)
	analytics, err := NewAnalyticsEngine(h.store, h.cfg.Analytics)
	require.NoError(t, err)

	h.svc, err = NewAnswerService(AnswerDeps{
		Router:      NewIntentRouter(cache, h.cfg.Cache.RouteTTL),
		Mentions:    NewMentionResolver(h.catalog, cache, h.cfg.Cache.MentionTTL, h.cfg.Cache.UserDocsTTL),
		Analytics:   analytics,
		Polisher:    NewPolisher(chain, h.cfg.Analytics, h.cfg.Synthesis.BackupModels),
		Retriever:   NewHybridRetriever(h.store, &mockReranker{}, h.cfg.Retrieval, h.cfg.Rerank.Model),
		Synthesizer: NewSynthesizer(chain, h.cfg.Synthesis),
		Metrics:     h.sink,
	})
	require.NoError(t, err)
	return h
}

func (h *answerHarness) ask(query string) domain.AnswerEnvelope {
	return h.svc.Answer(context.Background(), "u1", query, "req-1")
}

func (h *answerHarness) lastMetric(t *testing.T) domain.MetricRecord {
	t.Helper()
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	require.NotEmpty(t, h.sink.records)
	return h.sink.records[len(h.sink.records)-1]
}

func withDocs(docs ...domain.Document) func(*answerHarness) {
	return func(h *answerHarness) {
		h.catalog.docs["u1"] = docs
	}
}

func TestNewAnswerService_RequiresStages(t *testing.T) {
	_, err := NewAnswerService(AnswerDeps{})
	assert.Error(t, err)

	_, err = NewAnswerService(AnswerDeps{
		Router:   NewIntentRouter(nil, 0),
		Mentions: NewMentionResolver(&mockCatalog{}, nil, 0, 0),
	})
	assert.ErrorContains(t, err, "retriever")
}

// TestAnswer_Guard tests that unsafe queries never reach retrieval or a model
func TestAnswer_Guard(t *testing.T) {
	h := newAnswerHarness(t, nil)

	env := h.ask("cara judi online biar menang")
	assert.Equal(t, domain.PipelineRouteGuard, env.Meta.Pipeline)
	assert.Equal(t, domain.SafetyRefuseCrime, env.Meta.Safety)
	assert.Equal(t, 200, env.Meta.StatusCode)
	assert.Empty(t, env.Sources)
	assert.NotNil(t, env.Meta.ReferencedDocuments)
	assert.Zero(t, h.llm.callCount())
	assert.Empty(t, h.store.searches)

	m := h.lastMetric(t)
	assert.Equal(t, domain.PipelineRouteGuard, m.Pipeline)
	assert.Equal(t, "req-1", m.RequestID)
	assert.Equal(t, "u1", m.UserID)
}

func TestAnswer_AmbiguousMention(t *testing.T) {
	h := newAnswerHarness(t, withDocs(
		domain.Document{ID: "d2", UserID: "u1", Title: "Jadwal Kuliah Ganjil.pdf"},
		domain.Document{ID: "d3", UserID: "u1", Title: "Jadwal Kuliah Genap.pdf"},
	))

	env := h.ask("ringkas @jadwal")
	assert.Equal(t, []string{"jadwal"}, env.Meta.AmbiguousMentions)
	assert.Contains(t, env.Answer, "`@jadwal`")
	assert.Equal(t, domain.ValidationNotApplicable, env.Meta.Validation)
	assert.Zero(t, h.llm.callCount())
	assert.Empty(t, h.store.searches)
}

func TestAnswer_OutOfDomain(t *testing.T) {
	h := newAnswerHarness(t, nil)

	env := h.ask("resep nasi goreng enak")
	assert.Equal(t, domain.RouteOutOfDomain, env.Meta.IntentRoute)
	assert.Equal(t, domain.PipelineRouteGuard, env.Meta.Pipeline)
	assert.Empty(t, env.Meta.Safety)
	assert.Zero(t, h.llm.callCount())
	assert.Equal(t, domain.RouteOutOfDomain, h.lastMetric(t).IntentRoute)
}

func transcriptHarness(t *testing.T, mutate func(*answerHarness)) *answerHarness {
	return newAnswerHarness(t, func(h *answerHarness) {
		withDocs(domain.Document{ID: "khs", UserID: "u1", Title: "KHS.pdf"})(h)
		h.store.chunks = []domain.Chunk{
			transcriptRow("r1", "u1", "1", "Kalkulus", "3", "C"),
			transcriptRow("r2", "u1", "3", "Kalkulus", "3", "A"),
			transcriptRow("r3", "u1", "3", "Basis Data", "4", "B"),
		}
		if mutate != nil {
			mutate(h)
		}
	})
}

// TestAnswer_StructuredRecap tests a polished semester recap
func TestAnswer_StructuredRecap(t *testing.T) {
	polished := "Rekap semester 3 kamu:\n- Kalkulus: A\n- Basis Data: B"
	h := transcriptHarness(t, func(h *answerHarness) {
		h.llm.byPrompt = []promptRule{{contains: polishPromptMarker, reply: llmReply{text: polished}}}
	})

	env := h.ask("rekap nilai saya semester 3")
	assert.Equal(t, domain.PipelineStructured, env.Meta.Pipeline)
	assert.Equal(t, domain.MetaModeStructuredTranscript, env.Meta.Mode)
	assert.Equal(t, domain.RouteAnalyticalTabular, env.Meta.IntentRoute)
	assert.Equal(t, domain.ValidationPassed, env.Meta.Validation)
	assert.Equal(t, polished, env.Answer)
	assert.Equal(t, 2, env.Meta.StructuredReturned)
	require.NotNil(t, env.Meta.AnalyticsStats)
	assert.Equal(t, 3, env.Meta.AnalyticsStats.Raw)
	assert.NotEmpty(t, env.Sources)
	assert.Equal(t, 1, h.llm.callCount())
	assert.Contains(t, h.llm.lastPrompt(), "Basis Data")
	assert.Empty(t, h.store.searches)

	assert.Equal(t, domain.PipelineStructured, h.lastMetric(t).Pipeline)
}

func TestAnswer_StructuredPolishRejected(t *testing.T) {
	h := transcriptHarness(t, func(h *answerHarness) {
		h.llm.byPrompt = []promptRule{{contains: polishPromptMarker, reply: llmReply{text: "Hanya Kalkulus: A"}}}
	})

	env := h.ask("rekap nilai saya semester 3")
	assert.Equal(t, domain.ValidationFailedFallback, env.Meta.Validation)
	assert.Contains(t, env.Answer, "| 2 | Basis Data | 4 | B |")
	assert.Equal(t, 200, env.Meta.StatusCode)
}

func TestAnswer_StructuredPolishDisabled(t *testing.T) {
	h := transcriptHarness(t, func(h *answerHarness) {
		h.cfg.Analytics.PolishEnabled = false
	})

	env := h.ask("rekap nilai saya semester 3")
	assert.Equal(t, domain.ValidationSkipped, env.Meta.Validation)
	assert.Contains(t, env.Answer, "| 1 | Kalkulus | 3 | A |")
	assert.Zero(t, h.llm.callCount())
}

// TestAnswer_StrictTranscript tests raw-data queries: no polish, and no
// semantic fallback when rows are missing
func TestAnswer_StrictTranscript(t *testing.T) {
	h := transcriptHarness(t, nil)
	env := h.ask("transkrip nilai saya semester 3")
	assert.Equal(t, domain.ValidationSkippedStrict, env.Meta.Validation)
	assert.Zero(t, h.llm.callCount())

	h = newAnswerHarness(t, withDocs(domain.Document{ID: "d1", UserID: "u1", Title: "Panduan.pdf"}))
	env = h.ask("transkrip nilai saya")
	assert.Equal(t, domain.PipelineStructured, env.Meta.Pipeline)
	assert.Equal(t, domain.ValidationStrictNoFallback, env.Meta.Validation)
	assert.Equal(t, strictTranscriptNotFound, env.Answer)
	assert.Zero(t, h.llm.callCount())
	assert.Empty(t, h.store.searches)
}

// TestAnswer_StructuredFallsThrough tests that a non-strict query without rows
// continues to semantic retrieval
func TestAnswer_StructuredFallsThrough(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		withDocs(domain.Document{ID: "panduan", UserID: "u1", Title: "panduan.pdf"})(h)
		h.store.chunks = []domain.Chunk{textChunk("g1", "u1", "panduan", domain.DocTypeGeneral, "Kuliah hari senin dimulai pukul 07.00.")}
		h.store.scores = map[string]float64{"g1": 0.9}
		h.llm.fallback = llmReply{text: "Kuliah dimulai pukul 07.00 [source: panduan.pdf]"}
	})

	env := h.ask("jadwal hari senin")
	assert.Equal(t, domain.RouteAnalyticalTabular, env.Meta.IntentRoute)
	assert.Equal(t, domain.PipelineRAGSemantic, env.Meta.Pipeline)
	assert.Equal(t, string(domain.ModeDocBackground), env.Meta.Mode)
	assert.Equal(t, "Kuliah dimulai pukul 07.00 [source: panduan.pdf]", env.Answer)
	assert.Equal(t, []domain.Source{{Source: "panduan.pdf", Page: 1}}, env.Sources)
	assert.NotEmpty(t, h.store.gets)
	assert.NotEmpty(t, h.store.searches)
}

// TestAnswer_Abstains tests that a personal question with no evidence never
// calls a model
func TestAnswer_Abstains(t *testing.T) {
	h := newAnswerHarness(t, withDocs(domain.Document{ID: "d1", UserID: "u1", Title: "Panduan.pdf"}))

	env := h.ask("jam berapa kelas saya besok")
	assert.Equal(t, domain.ValidationNoGroundingEvidence, env.Meta.Validation)
	assert.Equal(t, abstainAnswer, env.Answer)
	assert.Empty(t, env.Sources)
	assert.Zero(t, h.llm.callCount())
	assert.Equal(t, domain.ValidationNoGroundingEvidence, h.lastMetric(t).Validation)
}

func TestAnswer_SemanticSuccess(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		withDocs(domain.Document{ID: "panduan", UserID: "u1", Title: "panduan.pdf"})(h)
		h.store.chunks = []domain.Chunk{textChunk("g1", "u1", "panduan", domain.DocTypeGeneral, "Kurikulum merdeka memberi kebebasan memilih mata kuliah lintas prodi.")}
		h.store.scores = map[string]float64{"g1": 0.9}
		h.llm.fallback = llmReply{text: "Kurikulum merdeka memberi kebebasan [source: panduan.pdf]"}
	})

	env := h.ask("apa itu kurikulum merdeka")
	assert.Equal(t, domain.PipelineRAGSemantic, env.Meta.Pipeline)
	assert.Equal(t, domain.RouteDefaultRAG, env.Meta.IntentRoute)
	assert.Equal(t, domain.ValidationNotApplicable, env.Meta.Validation)
	assert.Equal(t, 1, env.Meta.RetrievalDocsCount)
	assert.Equal(t, 1, env.Meta.DenseHits)
	assert.InDelta(t, 0.9, env.Meta.TopScore, 1e-9)
	assert.Equal(t, h.cfg.Synthesis.Model, env.Meta.LLMModel)
	assert.False(t, env.Meta.FallbackUsed)
	assert.Equal(t, 200, env.Meta.StatusCode)

	m := h.lastMetric(t)
	assert.Equal(t, 1, m.FinalDocs)
	assert.Equal(t, 1, m.SourceCount)
	assert.Equal(t, len([]rune("apa itu kurikulum merdeka")), m.QueryLen)
}

func TestAnswer_SemanticPolicy(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		withDocs(domain.Document{ID: "pedoman", UserID: "u1", Title: "pedoman.pdf"})(h)
		h.store.chunks = []domain.Chunk{textChunk("p1", "u1", "pedoman", domain.DocTypeGeneral, "Syarat lulus adalah 144 SKS.")}
		h.llm.fallback = llmReply{text: "Minimal 144 SKS [source: pedoman.pdf]"}
	})

	env := h.ask("apa syarat lulus")
	assert.Equal(t, domain.RouteSemanticPolicy, env.Meta.IntentRoute)
	assert.Equal(t, domain.MetaModeSemanticPolicy, env.Meta.Mode)
	require.NotEmpty(t, h.store.searches)
	assert.Equal(t, domain.DocTypeGeneral, h.store.searches[0].DocType)
}

// TestAnswer_UnresolvedMention tests the disclaimer for missing files
func TestAnswer_UnresolvedMention(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		withDocs(domain.Document{ID: "panduan", UserID: "u1", Title: "panduan.pdf"})(h)
		h.store.chunks = []domain.Chunk{textChunk("g1", "u1", "panduan", domain.DocTypeGeneral, "Kurikulum baru berlaku 2024.")}
		h.llm.fallback = llmReply{text: "Berlaku 2024 [source: panduan.pdf]"}
	})

	env := h.ask("apa itu kurikulum @silabus")
	assert.Equal(t, []string{"silabus"}, env.Meta.UnresolvedMentions)
	assert.Empty(t, env.Meta.ReferencedDocuments)
	assert.True(t, strings.HasSuffix(env.Answer, "(@silabus)."))
	assert.Equal(t, 1, strings.Count(env.Answer, unresolvedNotePrefix))
	assert.NotContains(t, h.llm.lastPrompt(), "@silabus")
}

// TestAnswer_UnresolvedNoteOnEveryPath tests that abstain, busy and structured
// answers carry the missing-file disclaimer exactly once
func TestAnswer_UnresolvedNoteOnEveryPath(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*answerHarness)
		query  string
		prefix string
	}{
		{
			name:   "abstain",
			setup:  withDocs(domain.Document{ID: "d1", UserID: "u1", Title: "Panduan.pdf"}),
			query:  "jam berapa kelas saya besok @silabus",
			prefix: abstainAnswer,
		},
		{
			name:   "busy",
			setup:  func(h *answerHarness) { h.llm.fallback = llmReply{err: errors.New("upstream 502")} },
			query:  "apa itu sks @silabus",
			prefix: busyAnswer,
		},
		{
			name: "structured",
			setup: func(h *answerHarness) {
				h.cfg.Analytics.PolishEnabled = false
				withDocs(domain.Document{ID: "khs", UserID: "u1", Title: "KHS.pdf"})(h)
				h.store.chunks = []domain.Chunk{transcriptRow("r1", "u1", "3", "Basis Data", "4", "B")}
			},
			query: "rekap nilai saya semester 3 @silabus",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAnswerHarness(t, tt.setup)
			env := h.ask(tt.query)

			assert.Equal(t, []string{"silabus"}, env.Meta.UnresolvedMentions)
			assert.True(t, strings.HasPrefix(env.Answer, tt.prefix))
			assert.True(t, strings.HasSuffix(env.Answer, "(@silabus)."), env.Answer)
			assert.Equal(t, 1, strings.Count(env.Answer, unresolvedNotePrefix))
		})
	}
}

func TestAnswer_Busy(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		h.llm.fallback = llmReply{err: errors.New("upstream 502")}
	})

	env := h.ask("apa itu sks")
	assert.Equal(t, 500, env.Meta.StatusCode)
	assert.Equal(t, busyAnswer, env.Answer)
	assert.Equal(t, domain.ValidationFailedFallback, env.Meta.Validation)
	assert.Equal(t, []string{h.cfg.Synthesis.Model, "b1"}, h.llm.calls)
	assert.Equal(t, 500, h.lastMetric(t).StatusCode)
}

// TestAnswer_ConfigurationError tests the 503 instructional answer
func TestAnswer_ConfigurationError(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		h.cfg.Retrieval.OptimizedEnabled = true
		h.cfg.Retrieval.LegacyFallback = true
		h.llm.fallback = llmReply{err: fmt.Errorf("%w: OPENROUTER_API_KEY is not set", domain.ErrConfiguration)}
	})

	env := h.ask("apa itu sks")
	assert.Equal(t, 503, env.Meta.StatusCode)
	assert.True(t, strings.HasPrefix(env.Answer, configAnswerPf))
	assert.Contains(t, env.Answer, "OPENROUTER_API_KEY")
	assert.Equal(t, domain.ValidationFailedFallback, env.Meta.Validation)
	assert.Equal(t, 1, h.llm.callCount())
}

// TestAnswer_LegacyFallback tests re-running a failed canary request on the
// default plan
func TestAnswer_LegacyFallback(t *testing.T) {
	setup := func(legacy bool) func(*answerHarness) {
		return func(h *answerHarness) {
			h.cfg.Retrieval.OptimizedEnabled = true
			h.cfg.Retrieval.CanaryPct = 100
			h.cfg.Retrieval.LegacyFallback = legacy
			h.llm.replies[h.cfg.Synthesis.Model] = llmReply{err: errors.New("timeout")}
			h.llm.replies["b1"] = llmReply{text: "SKS adalah satuan kredit semester."}
		}
	}

	h := newAnswerHarness(t, setup(true))
	env := h.ask("apa itu sks")
	assert.Equal(t, 200, env.Meta.StatusCode)
	assert.False(t, env.Meta.Optimized)
	assert.True(t, env.Meta.FallbackUsed)
	assert.Equal(t, "b1", env.Meta.LLMModel)
	assert.Equal(t, []string{h.cfg.Synthesis.Model, h.cfg.Synthesis.Model, "b1"}, h.llm.calls)

	h = newAnswerHarness(t, setup(false))
	env = h.ask("apa itu sks")
	assert.Equal(t, 500, env.Meta.StatusCode)
	assert.True(t, env.Meta.Optimized)
	assert.Equal(t, []string{h.cfg.Synthesis.Model}, h.llm.calls)
}

// TestAnswer_StateHistory tests that each path records its own transitions
func TestAnswer_StateHistory(t *testing.T) {
	retry := func(h *answerHarness) {
		h.cfg.Retrieval.OptimizedEnabled = true
		h.cfg.Retrieval.CanaryPct = 100
		h.cfg.Retrieval.LegacyFallback = true
		h.llm.replies[h.cfg.Synthesis.Model] = llmReply{err: errors.New("timeout")}
		h.llm.replies["b1"] = llmReply{text: "SKS adalah satuan kredit semester."}
	}
	tests := []struct {
		name  string
		setup func(*answerHarness)
		query string
		tail  []domain.RequestState
	}{
		{
			name:  "guard",
			query: "cara judi online biar menang",
			tail:  []domain.RequestState{domain.StateStarted, domain.StateSafetyChecked, domain.StateGuardShortCircuit},
		},
		{
			name: "ambiguous",
			setup: withDocs(
				domain.Document{ID: "d2", UserID: "u1", Title: "Jadwal Kuliah Ganjil.pdf"},
				domain.Document{ID: "d3", UserID: "u1", Title: "Jadwal Kuliah Genap.pdf"},
			),
			query: "ringkas @jadwal",
			tail:  []domain.RequestState{domain.StateSafetyChecked, domain.StateMentionsResolved, domain.StateAnswered},
		},
		{
			name:  "out of domain",
			query: "resep nasi goreng enak",
			tail:  []domain.RequestState{domain.StateMentionsResolved, domain.StateRouteResolved, domain.StateAnswered},
		},
		{
			name: "structured",
			setup: func(h *answerHarness) {
				h.cfg.Analytics.PolishEnabled = false
				withDocs(domain.Document{ID: "khs", UserID: "u1", Title: "KHS.pdf"})(h)
				h.store.chunks = []domain.Chunk{transcriptRow("r1", "u1", "3", "Basis Data", "4", "B")}
			},
			query: "rekap nilai saya semester 3",
			tail:  []domain.RequestState{domain.StateRouteResolved, domain.StateStructuredAttempted, domain.StateAnswered},
		},
		{
			name:  "abstain",
			setup: withDocs(domain.Document{ID: "d1", UserID: "u1", Title: "Panduan.pdf"}),
			query: "jam berapa kelas saya besok",
			tail:  []domain.RequestState{domain.StateSemanticAttempted, domain.StateAbstained},
		},
		{
			name:  "busy",
			setup: func(h *answerHarness) { h.llm.fallback = llmReply{err: errors.New("upstream 502")} },
			query: "apa itu sks",
			tail:  []domain.RequestState{domain.StateRouteResolved, domain.StateSemanticAttempted, domain.StateFailed},
		},
		{
			name:  "legacy retry",
			setup: retry,
			query: "apa itu sks",
			tail:  []domain.RequestState{domain.StateSemanticAttempted, domain.StateSemanticRetried, domain.StateAnswered},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newAnswerHarness(t, tt.setup)
			req := newRequest("u1", tt.query, "req-1")
			h.svc.handle(context.Background(), req)

			history := req.flow.History()
			require.GreaterOrEqual(t, len(history), len(tt.tail))
			assert.Equal(t, domain.StateStarted, history[0])
			assert.Equal(t, tt.tail, history[len(history)-len(tt.tail):])
			assert.True(t, req.flow.State().IsTerminal())
		})
	}
}

// TestAnswer_PanicBecomesFailedEnvelope tests that a panicking stage yields a
// 500 envelope and still emits a metric
func TestAnswer_PanicBecomesFailedEnvelope(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		h.catalog.panicMsg = "catalog index corrupted"
	})

	env := h.ask("ringkas @krs")
	assert.Equal(t, 500, env.Meta.StatusCode)
	assert.Equal(t, busyAnswer, env.Answer)
	assert.Equal(t, domain.ValidationFailedFallback, env.Meta.Validation)
	assert.NotNil(t, env.Meta.ReferencedDocuments)
	assert.Equal(t, 500, h.lastMetric(t).StatusCode)

	req := newRequest("u1", "ringkas @krs", "req-2")
	h.svc.handle(context.Background(), req)
	assert.Equal(t, []domain.RequestState{domain.StateStarted, domain.StateSafetyChecked, domain.StateFailed}, req.flow.History())
}

// TestAnswer_MetricsFailureSwallowed tests that a failing sink never changes the answer
func TestAnswer_MetricsFailureSwallowed(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		h.sink.err = errors.New("sink down")
		h.llm.fallback = llmReply{text: "SKS adalah satuan kredit semester."}
	})

	env := h.ask("apa itu sks")
	assert.Equal(t, 200, env.Meta.StatusCode)
	assert.Equal(t, "SKS adalah satuan kredit semester.", env.Answer)
}

func TestAnswer_DefaultRequestID(t *testing.T) {
	h := newAnswerHarness(t, nil)
	h.svc.Answer(context.Background(), "u1", "cara hack wifi", "")
	assert.Equal(t, "-", h.lastMetric(t).RequestID)
}

func TestAnswer_ContextCanceled(t *testing.T) {
	h := newAnswerHarness(t, func(h *answerHarness) {
		h.llm.fallback = llmReply{text: "late", delay: time.Second}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	env := h.svc.Answer(ctx, "u1", "apa itu sks", "req-2")
	assert.Equal(t, 500, env.Meta.StatusCode)
	assert.Equal(t, busyAnswer, env.Answer)
}
