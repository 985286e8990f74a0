package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

const polishDraft = "| No | Mata Kuliah | SKS | Nilai |\n|---|---|---|---|\n| 1 | Kalkulus | 3 | A |\n| 2 | Basis Data | 4 | B |"

func polishFacts(t *testing.T) []domain.Fact {
	t.Helper()
	var out []domain.Fact
	for _, row := range []domain.Chunk{
		transcriptRow("r1", "u1", "3", "Kalkulus", "3", "A"),
		transcriptRow("r2", "u1", "3", "Basis Data", "4", "B"),
	} {
		f, err := domain.ParseFact(domain.DocTypeTranscript, row)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

func newTestPolisher(llm driven.LLMProvider, enabled bool) *Polisher {
	cfg := domain.AnalyticsConfig{PolishEnabled: enabled, PolishModel: "polisher", PostValidate: true}
	if llm == nil {
		return NewPolisher(nil, cfg, nil)
	}
	return NewPolisher(noSleepChain(llm), cfg, nil)
}

func TestPolisher_Disabled(t *testing.T) {
	llm := newMockLLM(domain.AIProviderOpenRouter)
	p := newTestPolisher(llm, false)

	res := p.Polish(context.Background(), "rekap", polishDraft, polishFacts(t), domain.DocTypeTranscript, domain.AnswerModeFactual)
	assert.Equal(t, PolishResult{Answer: polishDraft, Validation: domain.ValidationSkipped}, res)
	assert.Zero(t, llm.callCount())
}

// TestPolisher_DroppedRow tests that a rewrite missing a course keeps the draft
func TestPolisher_DroppedRow(t *testing.T) {
	llm := newMockLLM(domain.AIProviderOpenRouter)
	llm.fallback = llmReply{text: "| No | Mata Kuliah |\n|---|---|\n| 1 | Kalkulus |"}
	p := newTestPolisher(llm, true)

	res := p.Polish(context.Background(), "rekap", polishDraft, polishFacts(t), domain.DocTypeTranscript, domain.AnswerModeFactual)
	assert.Equal(t, domain.ValidationFailedFallback, res.Validation)
	assert.Equal(t, polishDraft, res.Answer)
}

func TestPolisher_Passes(t *testing.T) {
	polished := "Berikut nilai Anda:\n\n" + polishDraft
	llm := newMockLLM(domain.AIProviderOpenRouter)
	llm.fallback = llmReply{text: polished}
	p := newTestPolisher(llm, true)

	res := p.Polish(context.Background(), "rekap", polishDraft, polishFacts(t), domain.DocTypeTranscript, domain.AnswerModeEvaluative)
	assert.Equal(t, domain.ValidationPassed, res.Validation)
	assert.Equal(t, polished, res.Answer)

	prompt := llm.lastPrompt()
	assert.Contains(t, prompt, "Gaya jawaban: evaluative")
	assert.Contains(t, prompt, "nada evaluatif")
	assert.Contains(t, prompt, `"mata_kuliah":"Basis Data"`)
	assert.Equal(t, []string{"polisher"}, llm.calls)
}

func TestPolisher_EmptyOrMissingModel(t *testing.T) {
	llm := newMockLLM(domain.AIProviderOpenRouter)
	llm.fallback = llmReply{text: "  "}
	res := newTestPolisher(llm, true).Polish(context.Background(), "rekap", polishDraft, polishFacts(t), domain.DocTypeTranscript, domain.AnswerModeFactual)
	assert.Equal(t, PolishResult{Answer: polishDraft, Validation: domain.ValidationFailedFallback}, res)

	res = newTestPolisher(nil, true).Polish(context.Background(), "rekap", polishDraft, polishFacts(t), domain.DocTypeTranscript, domain.AnswerModeFactual)
	assert.Equal(t, PolishResult{Answer: polishDraft, Validation: domain.ValidationFailedFallback}, res)
}

func TestValidatePolished(t *testing.T) {
	facts := polishFacts(t)

	assert.NoError(t, ValidatePolished("Kalkulus dapat A dan basis data dapat B", facts))
	assert.NoError(t, ValidatePolished(polishDraft, facts))
	assert.ErrorIs(t, ValidatePolished("Kalkulus saja", facts), domain.ErrValidation)

	extraRow := polishDraft + "\n| 3 | Fisika | 2 | C |"
	assert.ErrorIs(t, ValidatePolished(extraRow, facts), domain.ErrValidation)

	assert.NoError(t, ValidatePolished("Maaf, data tidak ditemukan di dokumen Anda.", nil))
	assert.ErrorIs(t, ValidatePolished("Semua aman", nil), domain.ErrValidation)
}
