package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/core/ports/driving"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService lists a user's documents and applies ingestion exports.
type DocumentService struct {
	catalog driven.DocumentCatalog
	writer  driven.ChunkWriter
	cache   driven.Cache
}

// NewDocumentService creates a new document service. writer may be nil for
// read-only deployments; cache may be nil.
func NewDocumentService(catalog driven.DocumentCatalog, writer driven.ChunkWriter, cache driven.Cache) *DocumentService {
	return &DocumentService{catalog: catalog, writer: writer, cache: cache}
}

// List returns the user's documents.
func (s *DocumentService) List(ctx context.Context, userID string) ([]domain.Document, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id required", domain.ErrInvalidInput)
	}
	if s.catalog == nil {
		return nil, errors.New("document catalog not configured")
	}
	return s.catalog.ListDocuments(ctx, userID)
}

// Ingest validates and stores chunks. Chunks missing an id, owner or
// document are rejected as a batch.
func (s *DocumentService) Ingest(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if s.writer == nil {
		return 0, errors.New("chunk writer not configured")
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	normalized := make([]domain.Chunk, 0, len(chunks))
	users := make(map[string]struct{})
	for i, c := range chunks {
		c, err := NormalizeChunk(c)
		if err != nil {
			return 0, fmt.Errorf("chunk %d: %w", i, err)
		}
		normalized = append(normalized, c)
		users[c.UserID] = struct{}{}
	}

	if err := s.writer.Upsert(ctx, normalized); err != nil {
		return 0, fmt.Errorf("upsert chunks: %w", err)
	}
	for user := range users {
		s.forget(ctx, user)
	}
	logger.Info("ingested %d chunks for %d users", len(normalized), len(users))
	return len(normalized), nil
}

// Delete removes one of the user's documents.
func (s *DocumentService) Delete(ctx context.Context, userID, docID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(docID) == "" {
		return fmt.Errorf("%w: user id and document id required", domain.ErrInvalidInput)
	}
	if s.writer == nil {
		return errors.New("chunk writer not configured")
	}
	if err := s.writer.DeleteDocument(ctx, userID, docID); err != nil {
		return err
	}
	s.forget(ctx, userID)
	return nil
}

// forget drops the cached existence check so the next request re-checks.
func (s *DocumentService) forget(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "rag:user_has_docs:"+userID); err != nil {
		logger.Debug("cache delete for %s: %v", userID, err)
	}
}

// NormalizeChunk trims identifiers and fills the default type and kind.
func NormalizeChunk(c domain.Chunk) (domain.Chunk, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.UserID = strings.TrimSpace(c.UserID)
	c.DocID = strings.TrimSpace(c.DocID)
	switch {
	case c.ID == "":
		return c, fmt.Errorf("%w: missing chunk id", domain.ErrInvalidInput)
	case c.UserID == "":
		return c, fmt.Errorf("%w: chunk %s has no user id", domain.ErrInvalidInput, c.ID)
	case c.DocID == "":
		return c, fmt.Errorf("%w: chunk %s has no doc id", domain.ErrInvalidInput, c.ID)
	}
	if c.DocType == "" {
		c.DocType = domain.DocTypeGeneral
	}
	if !c.DocType.IsValid() {
		return c, fmt.Errorf("%w: chunk %s has doc type %q", domain.ErrInvalidInput, c.ID, c.DocType)
	}
	if c.Kind == "" {
		c.Kind = domain.ChunkKindText
	}
	if !c.Kind.IsValid() {
		return c, fmt.Errorf("%w: chunk %s has kind %q", domain.ErrInvalidInput, c.ID, c.Kind)
	}
	if c.DocTitle == "" {
		c.DocTitle = c.Source
	}
	return c, nil
}
