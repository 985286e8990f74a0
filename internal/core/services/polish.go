package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// maxPolishFacts caps the facts serialized into the polish prompt.
const maxPolishFacts = 500

// PolishResult is a structured answer after the optional rewrite.
type PolishResult struct {
	Answer     string
	Validation domain.Validation
}

// Polisher rewrites deterministic structured answers with a model and keeps
// the rewrite only when it still agrees with the facts.
type Polisher struct {
	promptRenderer

	chain   *ProviderChain
	cfg     domain.AnalyticsConfig
	backups []string
}

// NewPolisher creates a polisher. chain may be nil, in which case every
// enabled polish falls back to the deterministic text.
func NewPolisher(chain *ProviderChain, cfg domain.AnalyticsConfig, backups []string) *Polisher {
	return &Polisher{chain: chain, cfg: cfg, backups: backups}
}

// Polish returns the rewrite or the deterministic draft with the reason.
func (p *Polisher) Polish(ctx context.Context, query, draft string, facts []domain.Fact, docType domain.DocType, style domain.AnswerMode) PolishResult {
	if !p.cfg.PolishEnabled {
		return PolishResult{Answer: draft, Validation: domain.ValidationSkipped}
	}

	prompt, err := p.render(driven.PromptPolish, polishPromptData(query, draft, facts, docType, style))
	if err != nil {
		logger.Warn("polish prompt: %v", err)
		return PolishResult{Answer: draft, Validation: domain.ValidationFailedFallback}
	}

	polished := ""
	if p.chain != nil {
		res := p.chain.Invoke(ctx, ModelCall{
			Models:      CandidateModels(p.cfg.PolishModel, p.backups),
			Prompt:      prompt,
			Options:     driven.InvokeOptions{Temperature: p.cfg.PolishTemperature},
			RejectEmpty: true,
		})
		if res.OK {
			polished = res.Text
		} else {
			logger.Warn("polish: %v", res.Err)
		}
	}
	if polished == "" {
		return PolishResult{Answer: draft, Validation: domain.ValidationFailedFallback}
	}
	if p.cfg.PostValidate {
		if err := ValidatePolished(polished, facts); err != nil {
			logger.Debug("polish rejected: %v", err)
			return PolishResult{Answer: draft, Validation: domain.ValidationFailedFallback}
		}
	}
	return PolishResult{Answer: polished, Validation: domain.ValidationPassed}
}

type polishData struct {
	Style            string
	StyleInstruction string
	DocType          string
	Query            string
	Facts            string
	Draft            string
}

func polishPromptData(query, draft string, facts []domain.Fact, docType domain.DocType, style domain.AnswerMode) polishData {
	if len(facts) > maxPolishFacts {
		facts = facts[:maxPolishFacts]
	}
	payload, err := json.Marshal(facts)
	if err != nil {
		payload = []byte("[]")
	}
	instruction := "Gunakan nada informatif ringkas dan fokus pada fakta."
	if style == domain.AnswerModeEvaluative {
		instruction = "Gunakan nada evaluatif yang suportif dan beri insight singkat berbasis data."
	}
	return polishData{
		Style:            string(style),
		StyleInstruction: instruction,
		DocType:          string(docType),
		Query:            query,
		Facts:            string(payload),
		Draft:            draft,
	}
}

// ValidatePolished checks a rewrite against the facts: every course name must
// survive, and a rendered table must keep one data row per fact. With no
// facts the rewrite must still say nothing was found.
func ValidatePolished(polished string, facts []domain.Fact) error {
	lowered := strings.ToLower(strings.TrimSpace(polished))
	if len(facts) == 0 {
		if !strings.Contains(lowered, "data tidak ditemukan di dokumen anda") {
			return fmt.Errorf("%w: empty fact set without not-found notice", domain.ErrValidation)
		}
		return nil
	}

	var names []string
	for _, f := range facts {
		if n := strings.TrimSpace(f.CourseName()); n != "" {
			names = append(names, n)
		}
	}
	names = dedupStrings(names)
	if len(names) == 0 {
		return fmt.Errorf("%w: facts carry no course names", domain.ErrValidation)
	}
	for _, n := range names {
		if !strings.Contains(lowered, strings.ToLower(n)) {
			return fmt.Errorf("%w: course %q missing", domain.ErrValidation, n)
		}
	}

	tableLines := 0
	for _, ln := range strings.Split(polished, "\n") {
		if strings.HasPrefix(strings.TrimSpace(ln), "|") {
			tableLines++
		}
	}
	if tableLines >= 3 {
		if rows := tableLines - 2; rows != len(facts) {
			return fmt.Errorf("%w: table has %d rows for %d facts", domain.ErrValidation, rows, len(facts))
		}
	}
	return nil
}
