package driving

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// GradeService answers "what score do I need" questions.
type GradeService interface {
	// Rescue parses a free-text question and computes the required score.
	Rescue(text string) (domain.GradeQuery, domain.RescuePlan, error)

	// Risks lists transcript facts at risk of failing with the score needed for a B.
	Risks(facts []domain.TranscriptFact) []GradeRisk

	// UserRisks applies Risks to the user's uploaded transcript.
	UserRisks(ctx context.Context, userID string) ([]GradeRisk, error)
}

// GradeRisk is a course whose grade needs attention.
type GradeRisk struct {
	Course   string   `json:"mata_kuliah"`
	Grade    string   `json:"nilai_huruf"`
	Target   float64  `json:"target"`
	Required *float64 `json:"required_for_b"`
	Possible bool     `json:"possible"`
}
