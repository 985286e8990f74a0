package driving

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// DocumentService exposes the user's ingested documents.
type DocumentService interface {
	// List returns the user's documents.
	List(ctx context.Context, userID string) ([]domain.Document, error)

	// Ingest stores chunks from the ingestion export and returns how many were written.
	Ingest(ctx context.Context, chunks []domain.Chunk) (int, error)

	// Delete removes one of the user's documents.
	Delete(ctx context.Context, userID, docID string) error
}
