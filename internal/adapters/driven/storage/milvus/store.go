// Package milvus implements the chunk ports on a Milvus collection. Every
// chunk carries a dense vector; chunks ingested without one are embedded on
// write.
package milvus

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

var (
	_ driven.ChunkStore      = (*Store)(nil)
	_ driven.ChunkWriter     = (*Store)(nil)
	_ driven.DocumentCatalog = (*Store)(nil)
)

// Field names of the chunk collection.
const (
	FieldID       = "id"
	FieldUserID   = "user_id"
	FieldDocID    = "doc_id"
	FieldDocTitle = "doc_title"
	FieldDocType  = "doc_type"
	FieldKind     = "kind"
	FieldPage     = "page"
	FieldSource   = "source"
	FieldPosition = "position"
	FieldText     = "text"
	FieldVector   = "embedding"
)

// DefaultCollection is used when Config.Collection is empty.
const DefaultCollection = "arah_chunks"

// queryLimit caps filtered scans; Milvus rejects larger offset+limit windows.
const queryLimit = 16384

var outputFields = []string{
	FieldID, FieldUserID, FieldDocID, FieldDocTitle, FieldDocType,
	FieldKind, FieldPage, FieldSource, FieldPosition, FieldText,
}

// Config holds the connection settings.
type Config struct {
	Address    string
	Collection string
}

// Store reads and writes chunks in one Milvus collection.
type Store struct {
	client     *milvusclient.Client
	collection string
	embedder   driven.EmbeddingService
}

// Open connects to Milvus, creating and loading the collection when missing.
// An embedder is required because the collection is vector-indexed.
func Open(ctx context.Context, cfg Config, embedder driven.EmbeddingService) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("milvus storage: %w", domain.ErrEmbeddingUnavailable)
	}
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, fmt.Errorf("%w: milvus address is empty (set ARAH_MILVUS_ADDR)", domain.ErrConfiguration)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: cfg.Address})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", cfg.Address, err)
	}
	s := &Store{client: c, collection: cfg.Collection, embedder: embedder}
	if err := s.ensureCollection(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return s, nil
}

// Close releases the client connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

func (s *Store) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("check collection %s: %w", s.collection, err)
	}
	if !exists {
		varchar := func(name, maxLen string, pk bool) *entity.Field {
			return &entity.Field{
				Name:       name,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: pk,
				TypeParams: map[string]string{"max_length": maxLen},
			}
		}
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Indexed academic document chunks",
			Fields: []*entity.Field{
				varchar(FieldID, "255", true),
				varchar(FieldUserID, "255", false),
				varchar(FieldDocID, "255", false),
				varchar(FieldDocTitle, "1024", false),
				varchar(FieldDocType, "32", false),
				varchar(FieldKind, "32", false),
				{Name: FieldPage, DataType: entity.FieldTypeInt64},
				varchar(FieldSource, "1024", false),
				{Name: FieldPosition, DataType: entity.FieldTypeInt64},
				varchar(FieldText, "65535", false),
				{
					Name:     FieldVector,
					DataType: entity.FieldTypeFloatVector,
					TypeParams: map[string]string{
						"dim": strconv.Itoa(s.embedder.Dimensions()),
					},
				},
			},
		}
		if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema)); err != nil {
			return fmt.Errorf("create collection %s: %w", s.collection, err)
		}
		idx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		if _, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, FieldVector, idx)); err != nil {
			return fmt.Errorf("create index on %s: %w", FieldVector, err)
		}
		logger.Info("created milvus collection %s (dim=%d)", s.collection, s.embedder.Dimensions())
	}
	if _, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection)); err != nil {
		return fmt.Errorf("load collection %s: %w", s.collection, err)
	}
	return nil
}

// Get returns every chunk matching the filter, ordered by document then position.
func (s *Store) Get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(filterExpr(filter)).
		WithOutputFields(outputFields...).
		WithLimit(queryLimit))
	if err != nil {
		return nil, fmt.Errorf("milvus query: %w", err)
	}
	rows := readRows(rs, nil)
	slices.SortStableFunc(rows, func(a, b row) int {
		return cmp.Or(cmp.Compare(a.chunk.DocID, b.chunk.DocID), cmp.Compare(a.position, b.position))
	})
	out := make([]domain.Chunk, len(rows))
	for i, r := range rows {
		out[i] = r.chunk
	}
	return out, nil
}

// SimilaritySearch embeds the query and runs a cosine ANN search.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	results, err := s.client.Search(ctx, milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(vec)}).
		WithANNSField(FieldVector).
		WithFilter(filterExpr(filter)).
		WithOutputFields(outputFields...))
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	rs := results[0]
	rows := readRows(rs, rs.Scores)
	out := make([]domain.ScoredChunk, len(rows))
	for i, r := range rows {
		out[i] = domain.ScoredChunk{Chunk: r.chunk, Score: r.score}
	}
	return out, nil
}

// Upsert writes chunks, embedding those that arrive without a vector.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	var missing []int
	for i, c := range chunks {
		if c.ID == "" || c.DocID == "" || strings.TrimSpace(c.UserID) == "" {
			return fmt.Errorf("%w: chunk needs id, doc id and user id", domain.ErrInvalidInput)
		}
		if len(c.Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	vecs := make([][]float32, len(chunks))
	for i, c := range chunks {
		vecs[i] = c.Embedding
	}
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = chunks[i].Text
		}
		embedded, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks: %w", err)
		}
		if len(embedded) != len(missing) {
			return fmt.Errorf("embedding chunks: got %d vectors for %d texts", len(embedded), len(missing))
		}
		for j, i := range missing {
			vecs[i] = embedded[j]
		}
	}

	n := len(chunks)
	ids, users, docIDs, titles := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	types, kinds, sources, texts := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	pages, positions := make([]int64, n), make([]int64, n)
	for i, c := range chunks {
		docType := c.DocType
		if !docType.IsValid() {
			docType = domain.DocTypeGeneral
		}
		kind := c.Kind
		if !kind.IsValid() {
			kind = domain.ChunkKindText
		}
		title := c.DocTitle
		if title == "" {
			title = c.DocID
		}
		ids[i], users[i], docIDs[i], titles[i] = c.ID, c.UserID, c.DocID, title
		types[i], kinds[i], sources[i], texts[i] = string(docType), string(kind), c.Source, c.Text
		pages[i], positions[i] = int64(c.Page), int64(i)
	}

	opt := milvusclient.NewColumnBasedInsertOption(s.collection).
		WithVarcharColumn(FieldID, ids).
		WithVarcharColumn(FieldUserID, users).
		WithVarcharColumn(FieldDocID, docIDs).
		WithVarcharColumn(FieldDocTitle, titles).
		WithVarcharColumn(FieldDocType, types).
		WithVarcharColumn(FieldKind, kinds).
		WithInt64Column(FieldPage, pages).
		WithVarcharColumn(FieldSource, sources).
		WithInt64Column(FieldPosition, positions).
		WithVarcharColumn(FieldText, texts).
		WithFloatVectorColumn(FieldVector, len(vecs[0]), vecs)
	if _, err := s.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("milvus upsert: %w", err)
	}
	return nil
}

// DeleteDocument removes every chunk of a user's document.
func (s *Store) DeleteDocument(ctx context.Context, userID, docID string) error {
	expr := filterExpr(domain.ChunkFilter{UserID: userID, DocIDs: []string{docID}})
	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(expr).
		WithOutputFields(FieldID).
		WithLimit(1))
	if err != nil {
		return fmt.Errorf("milvus query: %w", err)
	}
	if rs.ResultCount == 0 {
		return domain.ErrNotFound
	}
	if _, err := s.client.Delete(ctx, milvusclient.NewDeleteOption(s.collection).WithExpr(expr)); err != nil {
		return fmt.Errorf("milvus delete: %w", err)
	}
	return nil
}

// ListDocuments groups the user's chunks by document.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(filterExpr(domain.ChunkFilter{UserID: userID})).
		WithOutputFields(FieldDocID, FieldDocTitle, FieldDocType).
		WithLimit(queryLimit))
	if err != nil {
		return nil, fmt.Errorf("milvus query: %w", err)
	}
	byID := make(map[string]*domain.Document)
	var docs []*domain.Document
	for _, r := range readRows(rs, nil) {
		d, ok := byID[r.chunk.DocID]
		if !ok {
			d = &domain.Document{ID: r.chunk.DocID, UserID: userID, Title: r.chunk.DocTitle, DocType: r.chunk.DocType}
			byID[d.ID] = d
			docs = append(docs, d)
		}
		d.ChunkCount++
	}
	out := make([]domain.Document, len(docs))
	for i, d := range docs {
		out[i] = *d
	}
	slices.SortFunc(out, func(a, b domain.Document) int {
		return cmp.Or(cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// HasDocuments reports whether the user owns at least one chunk.
func (s *Store) HasDocuments(ctx context.Context, userID string) (bool, error) {
	rs, err := s.client.Query(ctx, milvusclient.NewQueryOption(s.collection).
		WithFilter(filterExpr(domain.ChunkFilter{UserID: userID})).
		WithOutputFields(FieldID).
		WithLimit(1))
	if err != nil {
		return false, fmt.Errorf("milvus query: %w", err)
	}
	return rs.ResultCount > 0, nil
}

// filterExpr renders a ChunkFilter as a Milvus boolean expression.
func filterExpr(f domain.ChunkFilter) string {
	parts := []string{FieldUserID + " == " + strconv.Quote(f.UserID)}
	if f.DocType != "" {
		parts = append(parts, FieldDocType+" == "+strconv.Quote(string(f.DocType)))
	}
	if f.Kind != "" {
		parts = append(parts, FieldKind+" == "+strconv.Quote(string(f.Kind)))
	}
	if len(f.DocIDs) > 0 {
		quoted := make([]string, len(f.DocIDs))
		for i, id := range f.DocIDs {
			quoted[i] = strconv.Quote(id)
		}
		parts = append(parts, FieldDocID+" in ["+strings.Join(quoted, ", ")+"]")
	}
	return strings.Join(parts, " && ")
}

type row struct {
	chunk    domain.Chunk
	position int64
	score    float64
}

// readRows decodes the output fields of a result set. Missing columns leave
// the matching chunk field empty.
func readRows(rs milvusclient.ResultSet, scores []float32) []row {
	str := func(name string, i int) string {
		col := rs.GetColumn(name)
		if col == nil {
			return ""
		}
		v, _ := col.GetAsString(i)
		return v
	}
	num := func(name string, i int) int64 {
		col := rs.GetColumn(name)
		if col == nil {
			return 0
		}
		v, _ := col.GetAsInt64(i)
		return v
	}
	out := make([]row, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		r := row{
			chunk: domain.Chunk{
				ID:       str(FieldID, i),
				UserID:   str(FieldUserID, i),
				DocID:    str(FieldDocID, i),
				DocTitle: str(FieldDocTitle, i),
				DocType:  domain.DocType(str(FieldDocType, i)),
				Kind:     domain.ChunkKind(str(FieldKind, i)),
				Page:     int(num(FieldPage, i)),
				Source:   str(FieldSource, i),
				Text:     str(FieldText, i),
			},
			position: num(FieldPosition, i),
		}
		if i < len(scores) {
			r.score = float64(scores[i])
		}
		out = append(out, r)
	}
	return out
}
