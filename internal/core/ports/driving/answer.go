package driving

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// AnswerService answers academic questions over a user's documents.
type AnswerService interface {
	// Answer runs the full pipeline for one query. Request failures never
	// surface as errors; they degrade to a safe answer recorded in meta.
	Answer(ctx context.Context, userID, query, requestID string) domain.AnswerEnvelope
}
