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

const citationPromptMarker = "Perbaiki jawaban agar setiap klaim"

func synthCandidates() []domain.Candidate {
	return []domain.Candidate{
		{Chunk: textChunk("c1", "u1", "panduan", domain.DocTypeGeneral, "Cuti akademik maksimal dua semester."), DenseScore: 0.8},
		{Chunk: textChunk("c2", "u1", "panduan", domain.DocTypeGeneral, "Pengajuan cuti melalui BAAK."), DenseScore: 0.6},
	}
}

func newTestSynthesizer(llm *promptLLM, mutate func(*domain.SynthesisConfig)) *Synthesizer {
	cfg := domain.DefaultConfig().Synthesis
	cfg.BackupModels = nil
	if mutate != nil {
		mutate(&cfg)
	}
	return NewSynthesizer(noSleepChain(llm), cfg)
}

func newPromptLLM(rules ...promptRule) *promptLLM {
	return &promptLLM{
		mockLLM:  mockLLM{name: domain.AIProviderOpenRouter, replies: make(map[string]llmReply)},
		byPrompt: rules,
	}
}

// TestSynthesizer_CitedAnswer tests that an answer with a citation skips enrichment
func TestSynthesizer_CitedAnswer(t *testing.T) {
	llm := newPromptLLM()
	llm.fallback = llmReply{text: "Cuti maksimal dua semester   [source: panduan.pdf]"}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{Query: "berapa lama cuti?", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, "Cuti maksimal dua semester [source: panduan.pdf]", res.Text)
	assert.Equal(t, "google/gemini-2.5-flash-lite", res.Model)
	assert.Equal(t, 1, llm.callCount())
	assert.Contains(t, llm.lastPrompt(), "[DOC 1]\nCuti akademik maksimal dua semester.")
	assert.Contains(t, llm.lastPrompt(), "berapa lama cuti?")
}

// TestSynthesizer_CitationPass tests the single rewrite pass for uncited answers
func TestSynthesizer_CitationPass(t *testing.T) {
	llm := newPromptLLM(promptRule{contains: citationPromptMarker, reply: llmReply{text: "Cuti dua semester [source: panduan.pdf]"}})
	llm.fallback = llmReply{text: "Cuti dua semester"}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{Query: "cuti", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, "Cuti dua semester [source: panduan.pdf]", res.Text)
	assert.Equal(t, 2, llm.callCount())
	assert.True(t, HasCitation(res.Text))
}

func TestSynthesizer_CitationPassRejected(t *testing.T) {
	llm := newPromptLLM(promptRule{contains: citationPromptMarker, reply: llmReply{text: "tetap tanpa sitasi"}})
	llm.fallback = llmReply{text: "Cuti dua semester"}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{Query: "cuti", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, "Cuti dua semester", res.Text)
}

func TestSynthesizer_CitationPassFailure(t *testing.T) {
	llm := newPromptLLM(promptRule{contains: citationPromptMarker, reply: llmReply{err: errors.New("429")}})
	llm.fallback = llmReply{text: "Cuti dua semester"}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{Query: "cuti", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, "Cuti dua semester", res.Text)
}

// TestSynthesizer_Notes tests the weak-context and unresolved-mention notes
func TestSynthesizer_Notes(t *testing.T) {
	llm := newPromptLLM()
	llm.fallback = llmReply{text: "Jawaban umum."}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{
		Query:      "ringkas isi file",
		Mode:       domain.ModeDocReferenced,
		Titles:     []string{"Panduan.pdf"},
		Unresolved: []string{"KRS.pdf"},
	})
	require.True(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Text, "Jawaban umum.\n\nCatatan: Aku belum menemukan konteks kuat"))
	assert.True(t, strings.HasSuffix(res.Text, "Catatan rujukan: ada file yang tidak ditemukan (@KRS.pdf)."))
	assert.Contains(t, llm.lastPrompt(), emptyContext)
	assert.Contains(t, llm.lastPrompt(), "[Referenced Documents]\nPanduan.pdf")
	assert.Equal(t, 1, llm.callCount())
}

func TestSynthesizer_EmptyAnswer(t *testing.T) {
	llm := newPromptLLM()
	llm.fallback = llmReply{text: "   "}
	s := newTestSynthesizer(llm, func(c *domain.SynthesisConfig) { c.CitationEnrichment = false })

	res := s.Answer(context.Background(), SynthesisRequest{Query: "q", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, noAnswer, res.Text)
}

func TestSynthesizer_TableEnrichment(t *testing.T) {
	table := "| Hari | MK |\n|---|---|\n| Senin | Kalkulus | [source: krs.pdf]"
	enriched := "## Ringkasan\n" + table + "\n## Insight Singkat\n- padat\n## Pertanyaan Lanjutan\n- ?"
	llm := newPromptLLM(promptRule{contains: "Tambahkan lapisan interaktif", reply: llmReply{text: enriched}})
	llm.fallback = llmReply{text: table}
	s := newTestSynthesizer(llm, func(c *domain.SynthesisConfig) { c.TableEnrichment = true })

	res := s.Answer(context.Background(), SynthesisRequest{Query: "jadwal", Candidates: synthCandidates(), Mode: domain.ModeDocBackground})
	require.True(t, res.OK)
	assert.Equal(t, enriched, res.Text)
	assert.Equal(t, 2, llm.callCount())
}

// TestSynthesizer_ConfigurationError tests that credential errors surface
func TestSynthesizer_ConfigurationError(t *testing.T) {
	llm := newPromptLLM()
	llm.fallback = llmReply{err: fmt.Errorf("%w: OPENROUTER_API_KEY is not set", domain.ErrConfiguration)}
	s := newTestSynthesizer(llm, nil)

	res := s.Answer(context.Background(), SynthesisRequest{Query: "q", Candidates: synthCandidates()})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, domain.ErrConfiguration)

	res = NewSynthesizer(nil, domain.SynthesisConfig{}).Answer(context.Background(), SynthesisRequest{Query: "q"})
	assert.False(t, res.OK)
	assert.ErrorIs(t, res.Err, domain.ErrLLMUnavailable)
}

func TestSynthesizer_ModelSelection(t *testing.T) {
	s := NewSynthesizer(nil, domain.SynthesisConfig{Model: "base", DocModel: "doc", FastModel: "fast"})
	assert.Equal(t, "doc", s.primaryModel(domain.ModeDocReferenced))
	assert.Equal(t, "fast", s.primaryModel(domain.ModeDocBackground))
	assert.Equal(t, "fast", s.primaryModel(domain.ModeLLMOnly))

	s = NewSynthesizer(nil, domain.SynthesisConfig{Model: "base"})
	assert.Equal(t, "base", s.primaryModel(domain.ModeDocReferenced))
}

// TestSynthesizer_OptimizedCall tests the canary caps on the provider loop
func TestSynthesizer_OptimizedCall(t *testing.T) {
	cfg := domain.DefaultConfig().Synthesis
	s := NewSynthesizer(nil, cfg)

	call := s.call("primary", "p", false)
	assert.Equal(t, append([]string{"primary"}, cfg.BackupModels...), call.Models)
	assert.Equal(t, 45*time.Second, call.Options.Timeout)
	assert.Equal(t, 1, call.Options.MaxRetries)

	call = s.call("primary", "p", true)
	assert.Equal(t, []string{"primary"}, call.Models)
	assert.Equal(t, 12*time.Second, call.Options.Timeout)
	assert.Equal(t, 0, call.Options.MaxRetries)
	assert.Zero(t, call.RetrySleep)
}

func TestBuildContext(t *testing.T) {
	assert.Equal(t, emptyContext, BuildContext(nil, 8, 6000))

	cands := synthCandidates()
	assert.Equal(t, "[DOC 1]\nCuti akademik maksimal dua semester.", BuildContext(cands, 1, 6000))
	assert.Equal(t, "[DOC 1]\nCuti", BuildContext(cands, 8, 4))

	blank := []domain.Candidate{{Chunk: domain.Chunk{Text: "  "}}, cands[1]}
	assert.Equal(t, "[DOC 2]\nPengajuan cuti melalui BAAK.", BuildContext(blank, 8, 6000))
}

func TestBuildPromptQuery(t *testing.T) {
	assert.Equal(t, "apa itu sks", BuildPromptQuery("  apa itu sks ", nil))

	q := BuildPromptQuery("rekap semua mata kuliah dari semester 1 sampai 4", nil)
	assert.Contains(t, q, "[Instruksi Rekap Ketat]")

	q = BuildPromptQuery("ringkas", []string{"A.pdf", "B.pdf"})
	assert.Contains(t, q, "[Referenced Documents]\nA.pdf, B.pdf")
	assert.NotContains(t, q, "[Instruksi Rekap Ketat]")
}

func TestIsMultiSemesterRecap(t *testing.T) {
	assert.True(t, IsMultiSemesterRecap("rekap sks semua semester"))
	assert.True(t, IsMultiSemesterRecap("mata kuliah semester 1-4"))
	assert.False(t, IsMultiSemesterRecap("rekap semester 3"))
	assert.False(t, IsMultiSemesterRecap("mata kuliah wajib"))
}

func TestSemanticSources(t *testing.T) {
	cands := []domain.Candidate{
		{Chunk: domain.Chunk{Source: "a.pdf", Page: 3}},
		{Chunk: domain.Chunk{DocTitle: "Judul"}},
		{Chunk: domain.Chunk{}},
	}
	assert.Equal(t, []domain.Source{{Source: "a.pdf", Page: 3}, {Source: "Judul"}, {Source: "document"}}, SemanticSources(cands))
	assert.NotNil(t, SemanticSources(nil))
}
