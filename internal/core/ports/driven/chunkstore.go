package driven

import (
	"context"

	"github.com/arah-ai/arah/internal/core/domain"
)

// ChunkStore reads indexed chunks. Every call is scoped by filter.UserID and
// implementations must reject a filter without one.
type ChunkStore interface {
	// Get returns every chunk matching the filter, in storage order.
	Get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error)

	// SimilaritySearch returns up to k chunks ranked by similarity to query.
	// Higher scores are more similar.
	SimilaritySearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error)
}

// ChunkWriter persists chunks produced by the ingestion collaborator.
type ChunkWriter interface {
	// Upsert inserts or replaces chunks by ID and refreshes their documents.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// DeleteDocument removes a document and all its chunks for a user.
	DeleteDocument(ctx context.Context, userID, docID string) error
}

// DocumentCatalog lists the documents a user has uploaded.
type DocumentCatalog interface {
	// ListDocuments returns the user's documents ordered by title.
	ListDocuments(ctx context.Context, userID string) ([]domain.Document, error)

	// HasDocuments reports whether the user owns at least one document.
	HasDocuments(ctx context.Context, userID string) (bool, error)
}
