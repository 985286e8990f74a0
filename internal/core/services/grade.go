package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driving"
)

// Ensure GradeService implements the interface.
var _ driving.GradeService = (*GradeService)(nil)

// riskScoreCutoff is the numeric score under which a course counts as at risk.
const riskScoreCutoff = 56

// TranscriptSource loads a user's transcript rows.
type TranscriptSource interface {
	TranscriptFacts(ctx context.Context, userID string) []domain.TranscriptFact
}

// GradeService computes grade rescue plans. Rescue and Risks are pure;
// UserRisks needs a transcript source.
type GradeService struct {
	target     float64
	transcript TranscriptSource
}

// NewGradeService creates a grade service aiming for target, 70 (a B) when zero.
func NewGradeService(target float64) *GradeService {
	if target <= 0 {
		target = domain.DefaultGradeTarget
	}
	return &GradeService{target: target}
}

// SetTranscriptSource enables UserRisks.
func (s *GradeService) SetTranscriptSource(src TranscriptSource) {
	s.transcript = src
}

// UserRisks lists the at-risk courses on the user's uploaded transcript.
func (s *GradeService) UserRisks(ctx context.Context, userID string) ([]driving.GradeRisk, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	if s.transcript == nil {
		return nil, errors.New("transcript source not configured")
	}
	return s.Risks(s.transcript.TranscriptFacts(ctx, userID)), nil
}

// Rescue parses text and computes the score still needed.
func (s *GradeService) Rescue(text string) (domain.GradeQuery, domain.RescuePlan, error) {
	q, err := domain.ParseGradeQuery(text)
	if err != nil {
		return q, domain.RescuePlan{}, err
	}
	return q, q.Plan(), nil
}

// Risks lists courses graded D or E, or scored below the C band, with the
// score a full retake needs to reach the target.
func (s *GradeService) Risks(facts []domain.TranscriptFact) []driving.GradeRisk {
	out := []driving.GradeRisk{}
	for _, f := range facts {
		grade := strings.ToUpper(strings.TrimSpace(f.Grade))
		score, numeric := parseScore(grade)
		if numeric {
			grade = domain.GradeLetter(score, nil)
		}
		atRisk := grade == "D" || grade == "E" || (numeric && score < riskScoreCutoff)
		if !atRisk {
			continue
		}
		plan := domain.RequiredScore(
			[]domain.GradeComponent{{Name: "Nilai Saat Ini", Score: score, Weight: 100}},
			s.target,
			100,
		)
		out = append(out, driving.GradeRisk{
			Course:   f.Course,
			Grade:    grade,
			Target:   s.target,
			Required: plan.Required,
			Possible: plan.Possible,
		})
	}
	return out
}

func parseScore(text string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
