// Package memory provides in-process implementations of the storage ports,
// used by tests and by the "memory" storage backend.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/arah-ai/arah/internal/adapters/driven/storage/vector"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// Ensure ChunkStore implements the interfaces.
var (
	_ driven.ChunkStore      = (*ChunkStore)(nil)
	_ driven.ChunkWriter     = (*ChunkStore)(nil)
	_ driven.DocumentCatalog = (*ChunkStore)(nil)
)

type docKey struct {
	userID string
	docID  string
}

// ChunkStore is an in-memory chunk store and document catalog.
type ChunkStore struct {
	mu       sync.RWMutex
	docs     map[docKey]domain.Document
	chunks   map[docKey][]domain.Chunk
	embedder driven.EmbeddingService
}

// NewChunkStore creates an empty store. A non-nil embedder enables cosine
// ranking for chunks that carry embeddings.
func NewChunkStore(embedder driven.EmbeddingService) *ChunkStore {
	return &ChunkStore{
		docs:     make(map[docKey]domain.Document),
		chunks:   make(map[docKey][]domain.Chunk),
		embedder: embedder,
	}
}

// Get returns every chunk matching the filter, grouped by document.
func (s *ChunkStore) Get(_ context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.matching(filter), nil
}

// SimilaritySearch ranks matching chunks by cosine when possible and by term
// overlap otherwise.
func (s *ChunkStore) SimilaritySearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	chunks := s.matching(filter)
	var vec []float32
	if s.embedder != nil && slices.ContainsFunc(chunks, func(c domain.Chunk) bool { return len(c.Embedding) > 0 }) {
		v, err := s.embedder.Embed(ctx, query)
		if err != nil {
			logger.Warn("memory dense search: %v, ranking by term overlap", err)
		} else {
			vec = v
		}
	}
	return vector.Rank(chunks, query, vec, k), nil
}

func (s *ChunkStore) matching(filter domain.ChunkFilter) []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]docKey, 0, len(s.chunks))
	for k := range s.chunks {
		if k.userID == filter.UserID {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b docKey) int { return cmp.Compare(a.docID, b.docID) })

	var out []domain.Chunk
	for _, k := range keys {
		for _, c := range s.chunks[k] {
			if filter.Matches(c) {
				out = append(out, c)
			}
		}
	}
	return out
}

// Upsert inserts or replaces chunks by ID and refreshes their documents.
func (s *ChunkStore) Upsert(_ context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.ID == "" || c.DocID == "" || strings.TrimSpace(c.UserID) == "" {
			return fmt.Errorf("%w: chunk needs id, doc id and user id", domain.ErrInvalidInput)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if !c.DocType.IsValid() {
			c.DocType = domain.DocTypeGeneral
		}
		if !c.Kind.IsValid() {
			c.Kind = domain.ChunkKindText
		}
		key := docKey{userID: c.UserID, docID: c.DocID}
		title := c.DocTitle
		if title == "" {
			title = c.Source
		}
		if title == "" {
			title = c.DocID
		}
		s.docs[key] = domain.Document{ID: c.DocID, UserID: c.UserID, Title: title, DocType: c.DocType}

		list := s.chunks[key]
		if i := slices.IndexFunc(list, func(x domain.Chunk) bool { return x.ID == c.ID }); i >= 0 {
			list[i] = c
		} else {
			list = append(list, c)
		}
		s.chunks[key] = list
	}
	return nil
}

// DeleteDocument removes a document and all its chunks for a user.
func (s *ChunkStore) DeleteDocument(_ context.Context, userID, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{userID: userID, docID: docID}
	if _, ok := s.docs[key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.docs, key)
	delete(s.chunks, key)
	return nil
}

// ListDocuments returns the user's documents ordered by title.
func (s *ChunkStore) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for k, d := range s.docs {
		if k.userID != userID {
			continue
		}
		d.ChunkCount = len(s.chunks[k])
		docs = append(docs, d)
	}
	slices.SortFunc(docs, func(a, b domain.Document) int {
		return cmp.Or(
			cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return docs, nil
}

// HasDocuments reports whether the user owns at least one document.
func (s *ChunkStore) HasDocuments(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k := range s.docs {
		if k.userID == userID {
			return true, nil
		}
	}
	return false, nil
}
