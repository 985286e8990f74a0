package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

const (
	busyAnswer     = "Maaf, sistem sedang sibuk memproses jawaban. Silakan coba lagi sebentar."
	noAnswer       = "Maaf, tidak ada jawaban."
	emptyContext   = "(kosong)"
	configAnswerPf = "Konfigurasi model bahasa belum lengkap. Lengkapi kredensial penyedia di .env atau ~/.arah/config.toml lalu coba lagi.\n\nDetail: "

	recapInstruction = "[Instruksi Rekap Ketat]\n" +
		"- Gunakan HANYA data di context.\n" +
		"- Jangan hilangkan baris mata kuliah jika ada di context.\n" +
		"- Jangan menukar semester antar mata kuliah.\n" +
		"- Jika kolom kosong, tulis '-'.\n" +
		"- Jangan hitung total SKS jika tidak diminta eksplisit.\n"
)

var (
	semesterRangeRe     = regexp.MustCompile(`semester\s*\d+\s*(?:-|s/d|sd|sampai|to)\s*\d+`)
	recapSummaryWords   = []string{"rekap", "ringkas", "rangkum", "semua", "keseluruhan"}
	recapSpanWords      = []string{"awal sampai akhir", "semua semester", "dari semester"}
	recapCourseFocusers = []string{"mata kuliah", "sks", "transkrip", "khs", "krs"}
)

// IsMultiSemesterRecap reports whether the query asks to recap courses
// across semesters.
func IsMultiSemesterRecap(query string) bool {
	ql := strings.ToLower(query)
	if !strings.Contains(ql, "semester") {
		return false
	}
	spans := containsAny(ql, recapSummaryWords) || semesterRangeRe.MatchString(ql) || containsAny(ql, recapSpanWords)
	return spans && containsAny(ql, recapCourseFocusers)
}

// BuildPromptQuery appends the referenced-documents block and, for
// multi-semester recaps, the strict recap instructions.
func BuildPromptQuery(query string, titles []string) string {
	q := strings.TrimSpace(query)
	if len(titles) > 0 {
		q += "\n\n[Referenced Documents]\n" + strings.Join(titles, ", ") +
			"\nInstruksi: prioritaskan dokumen rujukan ini sebagai sumber utama; " +
			"jika tidak cukup, jelaskan batasannya lalu beri fallback umum."
	}
	if IsMultiSemesterRecap(q) {
		q += "\n\n" + recapInstruction
	}
	return q
}

// BuildContext joins up to maxDocs candidate texts as [DOC i] blocks, cutting
// once maxChars characters of text are used.
func BuildContext(cands []domain.Candidate, maxDocs, maxChars int) string {
	var blocks []string
	total := 0
	for i, c := range cands[:min(maxDocs, len(cands))] {
		text := []rune(strings.TrimSpace(c.Chunk.Text))
		if len(text) == 0 {
			continue
		}
		remaining := maxChars - total
		if remaining <= 0 {
			break
		}
		piece := text[:min(remaining, len(text))]
		blocks = append(blocks, "[DOC "+strconv.Itoa(i+1)+"]\n"+string(piece))
		total += len(piece)
	}
	out := strings.TrimSpace(strings.Join(blocks, "\n\n"))
	if out == "" {
		return emptyContext
	}
	return out
}

// SemanticSources cites each candidate by source label and page.
func SemanticSources(cands []domain.Candidate) []domain.Source {
	out := make([]domain.Source, 0, len(cands))
	for _, c := range cands {
		out = append(out, domain.Source{Source: c.Chunk.SourceName(), Page: c.Chunk.Page})
	}
	return out
}

// SynthesisRequest is one grounded answer to generate.
type SynthesisRequest struct {
	Query      string
	Candidates []domain.Candidate
	Mode       domain.InteractionMode
	Titles     []string
	Unresolved []string
	Optimized  bool
}

// Synthesizer turns retrieved context into a cited answer through the
// provider chain.
type Synthesizer struct {
	promptRenderer

	chain *ProviderChain
	cfg   domain.SynthesisConfig
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(chain *ProviderChain, cfg domain.SynthesisConfig) *Synthesizer {
	if cfg.ContextMaxDocs <= 0 {
		cfg.ContextMaxDocs = 8
	}
	if cfg.ContextMaxChars <= 0 {
		cfg.ContextMaxChars = 6000
	}
	return &Synthesizer{chain: chain, cfg: cfg}
}

// primaryModel picks the model for mode.
func (s *Synthesizer) primaryModel(mode domain.InteractionMode) string {
	if mode == domain.ModeDocReferenced && s.cfg.DocModel != "" {
		return s.cfg.DocModel
	}
	if mode != domain.ModeDocReferenced && s.cfg.FastModel != "" {
		return s.cfg.FastModel
	}
	return s.cfg.Model
}

// call builds a ModelCall for primary, applying the optimized-path caps.
func (s *Synthesizer) call(primary, prompt string, optimized bool) ModelCall {
	models := CandidateModels(primary, s.cfg.BackupModels)
	opts := driven.InvokeOptions{
		Timeout:     s.cfg.Timeout,
		MaxRetries:  s.cfg.MaxRetries,
		Temperature: s.cfg.Temperature,
	}
	sleep := s.cfg.RetrySleep
	if optimized {
		if s.cfg.OptimizedTimeout > 0 && (opts.Timeout <= 0 || opts.Timeout > s.cfg.OptimizedTimeout) {
			opts.Timeout = s.cfg.OptimizedTimeout
		}
		opts.MaxRetries = min(opts.MaxRetries, s.cfg.OptimizedMaxRetries)
		models = models[:min(max(s.cfg.OptimizedMaxModels, 1), len(models))]
		sleep = s.cfg.OptimizedRetrySleep
	}
	return ModelCall{Models: models, Prompt: prompt, Options: opts, RetrySleep: sleep}
}

// Answer generates the answer for req. A failed result carries the chain error.
func (s *Synthesizer) Answer(ctx context.Context, req SynthesisRequest) ModelResult {
	logger.Section("Synthesis")
	if s.chain == nil {
		return ModelResult{Err: domain.ErrLLMUnavailable}
	}

	prompt, err := s.render(driven.PromptAnswer, struct{ Query, Context string }{
		Query:   BuildPromptQuery(req.Query, req.Titles),
		Context: BuildContext(req.Candidates, s.cfg.ContextMaxDocs, s.cfg.ContextMaxChars),
	})
	if err != nil {
		return ModelResult{Err: err}
	}

	res := s.chain.Invoke(ctx, s.call(s.primaryModel(req.Mode), prompt, req.Optimized))
	if !res.OK {
		return res
	}

	answer := strings.TrimSpace(res.Text)
	if answer == "" {
		answer = noAnswer
	}

	if len(req.Candidates) > 0 && !HasCitation(answer) && s.cfg.CitationEnrichment {
		answer = s.enrich(ctx, driven.PromptCitation, answer, res.Model, req.Optimized, HasCitation)
	}
	if s.cfg.TableEnrichment && LooksLikeMarkdownTable(answer) && !HasInteractiveSections(answer) {
		answer = s.enrich(ctx, driven.PromptTableEnrichment, answer, res.Model, req.Optimized, func(string) bool { return true })
	}

	answer = appendWeakContextNote(answer, string(req.Mode), len(req.Candidates))
	answer = appendUnresolvedNote(answer, req.Unresolved)
	res.Text = PolishLight(answer)
	return res
}

// enrich runs one rewrite pass with the answering model first and keeps the
// rewrite only if accept approves it.
func (s *Synthesizer) enrich(ctx context.Context, name, answer, model string, optimized bool, accept func(string) bool) string {
	prompt, err := s.render(name, struct{ Answer string }{Answer: answer})
	if err != nil {
		logger.Warn("%s prompt: %v", name, err)
		return answer
	}
	res := s.chain.Invoke(ctx, s.call(model, prompt, optimized))
	if !res.OK {
		logger.Debug("%s pass failed: %v", name, res.Err)
		return answer
	}
	if text := strings.TrimSpace(res.Text); text != "" && accept(text) {
		return text
	}
	return answer
}
