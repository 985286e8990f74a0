package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockChunkStore implements driven.ChunkStore over an in-memory slice.
// SimilaritySearch scores chunks by the scores map, defaulting to 0.5.
type mockChunkStore struct {
	mu        sync.Mutex
	chunks    []domain.Chunk
	scores    map[string]float64
	getErr    error
	searchErr error

	// fixed, when set, is returned by SimilaritySearch unfiltered.
	fixed []domain.ScoredChunk

	// failCompound makes Get fail for filters narrower than the owner.
	failCompound bool

	// hang makes every call wait for its context to end.
	hang bool

	gets     []domain.ChunkFilter
	searches []domain.ChunkFilter
}

func (m *mockChunkStore) Get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, filter)
	if m.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.failCompound && filter.IsCompound() {
		return nil, errors.New("compound filter unsupported")
	}
	var out []domain.Chunk
	for _, c := range m.chunks {
		if filter.Matches(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockChunkStore) SimilaritySearch(ctx context.Context, _ string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, filter)
	if m.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if m.fixed != nil {
		return m.fixed, nil
	}
	var out []domain.ScoredChunk
	for _, c := range m.chunks {
		if !filter.Matches(c) {
			continue
		}
		score, ok := m.scores[c.ID]
		if !ok {
			score = 0.5
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

// mockCatalog implements driven.DocumentCatalog.
type mockCatalog struct {
	mu       sync.Mutex
	docs     map[string][]domain.Document
	err      error
	panicMsg string
	lookups  int
}

func (m *mockCatalog) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.docs[userID], nil
}

func (m *mockCatalog) HasDocuments(_ context.Context, userID string) (bool, error) {
	m.mu.Lock()
	m.lookups++
	m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return len(m.docs[userID]) > 0, nil
}

// mockChunkWriter implements driven.ChunkWriter.
type mockChunkWriter struct {
	upserted  []domain.Chunk
	deleted   []string
	upsertErr error
	deleteErr error
}

func (m *mockChunkWriter) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted = append(m.upserted, chunks...)
	return nil
}

func (m *mockChunkWriter) DeleteDocument(_ context.Context, userID, docID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, userID+"/"+docID)
	return nil
}

// mockCache implements driven.Cache without expiry.
type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// llmReply scripts one model's behaviour.
type llmReply struct {
	text  string
	err   error
	delay time.Duration
}

// mockLLM implements driven.LLMProvider with per-model replies. Models
// without a reply answer with fallback.
type mockLLM struct {
	mu       sync.Mutex
	name     domain.AIProvider
	replies  map[string]llmReply
	fallback llmReply
	calls    []string
	prompts  []string
}

func newMockLLM(name domain.AIProvider) *mockLLM {
	return &mockLLM{name: name, replies: make(map[string]llmReply)}
}

func (m *mockLLM) Invoke(ctx context.Context, model, prompt string, _ driven.InvokeOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, model)
	m.prompts = append(m.prompts, prompt)
	reply, ok := m.replies[model]
	if !ok {
		reply = m.fallback
	}
	m.mu.Unlock()

	if reply.delay > 0 {
		t := time.NewTimer(reply.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return reply.text, reply.err
}

func (m *mockLLM) Name() domain.AIProvider       { return m.name }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// promptLLM answers by the first matching prompt substring, letting a
// test script the answer, citation and polish passes independently.
type promptLLM struct {
	mockLLM
	byPrompt []promptRule
}

type promptRule struct {
	contains string
	reply    llmReply
}

func (m *promptLLM) Invoke(ctx context.Context, model, prompt string, opts driven.InvokeOptions) (string, error) {
	for _, r := range m.byPrompt {
		if strings.Contains(prompt, r.contains) {
			m.mu.Lock()
			m.calls = append(m.calls, model)
			m.prompts = append(m.prompts, prompt)
			m.mu.Unlock()
			return r.reply.text, r.reply.err
		}
	}
	return m.mockLLM.Invoke(ctx, model, prompt, opts)
}

// mockReranker implements driven.Reranker.
type mockReranker struct {
	scores []float64
	err    error
	calls  int
}

func (m *mockReranker) Score(_ context.Context, _, _ string, passages []string) ([]float64, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.scores != nil {
		return m.scores, nil
	}
	out := make([]float64, len(passages))
	for i := range passages {
		out[i] = float64(i)
	}
	return out, nil
}

// mockSink implements driven.MetricsSink.
type mockSink struct {
	mu      sync.Mutex
	records []domain.MetricRecord
	err     error
}

func (m *mockSink) Emit(_ context.Context, record domain.MetricRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, record)
	return nil
}

// mockPromptStore implements driven.PromptStore.
type mockPromptStore struct {
	prompts map[string]string
	reloads int
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() { m.reloads++ }

// --- Fixtures ---

func transcriptRow(id, user string, semester, course, credits, grade string) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		UserID:   user,
		DocID:    "khs",
		DocTitle: "KHS.pdf",
		DocType:  domain.DocTypeTranscript,
		Kind:     domain.ChunkKindRow,
		Page:     1,
		Source:   "KHS.pdf",
		Text:     "semester=" + semester + " | mata_kuliah=" + course + " | sks=" + credits + " | nilai_huruf=" + grade,
	}
}

func scheduleRow(id, user, day, start, end, course, room string) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		UserID:   user,
		DocID:    "krs",
		DocTitle: "Jadwal.pdf",
		DocType:  domain.DocTypeSchedule,
		Kind:     domain.ChunkKindRow,
		Page:     2,
		Source:   "Jadwal.pdf",
		Text:     "hari=" + day + " | jam_mulai=" + start + " | jam_selesai=" + end + " | mata_kuliah=" + course + " | ruangan=" + room,
	}
}

func textChunk(id, user, docID string, docType domain.DocType, text string) domain.Chunk {
	return domain.Chunk{
		ID:       id,
		UserID:   user,
		DocID:    docID,
		DocTitle: docID + ".pdf",
		DocType:  docType,
		Kind:     domain.ChunkKindText,
		Page:     1,
		Source:   docID + ".pdf",
		Text:     text,
	}
}

// noSleepChain builds a provider chain that never sleeps between attempts.
func noSleepChain(providers ...driven.LLMProvider) *ProviderChain {
	chain, err := NewProviderChain(domain.AIProviderOpenRouter, providers...)
	if err != nil {
		panic(err)
	}
	chain.sleep = func(context.Context, time.Duration) {}
	return chain
}
