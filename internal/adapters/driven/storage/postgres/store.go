// Package postgres implements the storage ports on PostgreSQL with the
// pgvector extension. Dense search uses cosine distance over stored
// embeddings; without an embedder it ranks by tsvector full-text search.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver

	"github.com/arah-ai/arah/internal/adapters/driven/storage/vector"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

var (
	_ driven.ChunkStore      = (*Store)(nil)
	_ driven.ChunkWriter     = (*Store)(nil)
	_ driven.DocumentCatalog = (*Store)(nil)
	_ driven.MetricsSink     = (*Store)(nil)
	_ driven.MetricsReader   = (*Store)(nil)
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS rag_documents (
		user_id    TEXT NOT NULL,
		id         TEXT NOT NULL,
		title      TEXT NOT NULL DEFAULT '',
		doc_type   TEXT NOT NULL DEFAULT 'general',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS rag_chunks (
		id        TEXT PRIMARY KEY,
		user_id   TEXT NOT NULL,
		doc_id    TEXT NOT NULL,
		doc_title TEXT NOT NULL DEFAULT '',
		doc_type  TEXT NOT NULL DEFAULT 'general',
		kind      TEXT NOT NULL DEFAULT 'text',
		page      INTEGER NOT NULL DEFAULT 0,
		source    TEXT NOT NULL DEFAULT '',
		position  INTEGER NOT NULL DEFAULT 0,
		text      TEXT NOT NULL,
		embedding vector,
		tsv       tsvector GENERATED ALWAYS AS (to_tsvector('simple', text)) STORED,
		FOREIGN KEY (user_id, doc_id) REFERENCES rag_documents(user_id, id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_chunks_owner ON rag_chunks(user_id, doc_type, kind)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_chunks_tsv ON rag_chunks USING GIN (tsv)`,
	`CREATE TABLE IF NOT EXISTS rag_metrics (
		id          BIGSERIAL PRIMARY KEY,
		request_id  TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		pipeline    TEXT NOT NULL DEFAULT '',
		status_code INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL,
		record      JSONB NOT NULL
	)`,
}

// Store is a PostgreSQL-backed chunk store, catalog and metrics log.
type Store struct {
	db       *sql.DB
	embedder driven.EmbeddingService
}

// Open connects to dsn, verifies the connection and ensures the schema.
func Open(ctx context.Context, dsn string, embedder driven.EmbeddingService) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is empty (set ARAH_POSTGRES_DSN)", domain.ErrConfiguration)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := New(db, embedder)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug("postgres connected (dsn_len=%d)", len(dsn))
	return s, nil
}

// New wraps an open database handle.
func New(db *sql.DB, embedder driven.EmbeddingService) *Store {
	return &Store{db: db, embedder: embedder}
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:min(len(stmt), 60)], err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const chunkColumns = `id, user_id, doc_id, doc_title, doc_type, kind, page, source, text`

// Get returns every chunk matching the filter.
func (s *Store) Get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	var a args
	where := filterClause(&a, filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+`, 0 FROM rag_chunks WHERE `+where+` ORDER BY doc_id, position`, a...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	scored, err := scanScored(rows)
	if err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, len(scored))
	for i, sc := range scored {
		chunks[i] = sc.Chunk
	}
	return chunks, nil
}

// SimilaritySearch ranks by pgvector cosine when an embedder is configured,
// falling back to full-text rank.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, query)
		if err == nil {
			hits, err := s.vectorSearch(ctx, vec, k, filter)
			if err == nil && len(hits) > 0 {
				return hits, nil
			}
			if err != nil {
				logger.Warn("postgres vector search: %v, falling back to full text", err)
			}
		} else {
			logger.Warn("postgres query embedding: %v, falling back to full text", err)
		}
	}
	return s.ftsSearch(ctx, query, k, filter)
}

func (s *Store) vectorSearch(ctx context.Context, vec []float32, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	var a args
	v := a.add(vectorLiteral(vec))
	where := filterClause(&a, filter)
	limit := a.add(k)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, 1 - (embedding <=> `+v+`::vector) AS score
		FROM rag_chunks
		WHERE embedding IS NOT NULL AND `+where+`
		ORDER BY embedding <=> `+v+`::vector
		LIMIT `+limit, a...)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	defer rows.Close()
	return scanScored(rows)
}

func (s *Store) ftsSearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	terms := vector.Terms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	var a args
	q := a.add(strings.Join(terms, " | "))
	where := filterClause(&a, filter)
	limit := a.add(k)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, ts_rank(tsv, to_tsquery('simple', `+q+`)) AS score
		FROM rag_chunks
		WHERE tsv @@ to_tsquery('simple', `+q+`) AND `+where+`
		ORDER BY score DESC
		LIMIT `+limit, a...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()
	return scanScored(rows)
}

// Upsert inserts or replaces chunks by ID and refreshes their documents.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.ID == "" || c.DocID == "" || strings.TrimSpace(c.UserID) == "" {
			return fmt.Errorf("%w: chunk needs id, doc id and user id", domain.ErrInvalidInput)
		}
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := time.Now().UTC()
	seen := make(map[[2]string]bool)
	for i, c := range chunks {
		docType := c.DocType
		if !docType.IsValid() {
			docType = domain.DocTypeGeneral
		}
		kind := c.Kind
		if !kind.IsValid() {
			kind = domain.ChunkKindText
		}
		if key := [2]string{c.UserID, c.DocID}; !seen[key] {
			seen[key] = true
			title := c.DocTitle
			if title == "" {
				title = c.DocID
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO rag_documents (user_id, id, title, doc_type, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (user_id, id) DO UPDATE SET
					title = EXCLUDED.title, doc_type = EXCLUDED.doc_type, updated_at = EXCLUDED.updated_at
			`, c.UserID, c.DocID, title, string(docType), now); err != nil {
				return fmt.Errorf("saving document %s: %w", c.DocID, err)
			}
		}
		var emb sql.NullString
		if len(c.Embedding) > 0 {
			emb = sql.NullString{String: vectorLiteral(c.Embedding), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rag_chunks (id, user_id, doc_id, doc_title, doc_type, kind, page, source, position, text, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::vector)
			ON CONFLICT (id) DO UPDATE SET
				user_id = EXCLUDED.user_id, doc_id = EXCLUDED.doc_id, doc_title = EXCLUDED.doc_title,
				doc_type = EXCLUDED.doc_type, kind = EXCLUDED.kind, page = EXCLUDED.page,
				source = EXCLUDED.source, position = EXCLUDED.position, text = EXCLUDED.text,
				embedding = EXCLUDED.embedding
		`, c.ID, c.UserID, c.DocID, c.DocTitle, string(docType), string(kind), c.Page, c.Source, i, c.Text, emb); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// DeleteDocument removes a document; chunks cascade.
func (s *Store) DeleteDocument(ctx context.Context, userID, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_documents WHERE user_id = $1 AND id = $2`, userID, docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns the user's documents ordered by title.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.user_id, d.title, d.doc_type, COUNT(c.id)
		FROM rag_documents d
		LEFT JOIN rag_chunks c ON c.user_id = d.user_id AND c.doc_id = d.id
		WHERE d.user_id = $1
		GROUP BY d.id, d.user_id, d.title, d.doc_type
		ORDER BY lower(d.title), d.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.DocType, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// HasDocuments reports whether the user owns at least one document.
func (s *Store) HasDocuments(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rag_documents WHERE user_id = $1 LIMIT 1`, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking documents: %w", err)
	}
	return true, nil
}

// Emit appends one metric record.
func (s *Store) Emit(ctx context.Context, record domain.MetricRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling metric: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rag_metrics (request_id, user_id, pipeline, status_code, created_at, record)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.RequestID, record.UserID, string(record.Pipeline), record.StatusCode, record.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("saving metric: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.MetricRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM rag_metrics ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		var m domain.MetricRecord
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshaling metric: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// args accumulates positional parameters and hands out their placeholders.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

func filterClause(a *args, f domain.ChunkFilter) string {
	parts := []string{"user_id = " + a.add(f.UserID)}
	if f.DocType != "" {
		parts = append(parts, "doc_type = "+a.add(string(f.DocType)))
	}
	if f.Kind != "" {
		parts = append(parts, "kind = "+a.add(string(f.Kind)))
	}
	if len(f.DocIDs) > 0 {
		ph := make([]string, len(f.DocIDs))
		for i, id := range f.DocIDs {
			ph[i] = a.add(id)
		}
		parts = append(parts, "doc_id IN ("+strings.Join(ph, ", ")+")")
	}
	return strings.Join(parts, " AND ")
}

// vectorLiteral renders v in pgvector's text form.
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v)*10 + 2)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func scanScored(rows *sql.Rows) ([]domain.ScoredChunk, error) {
	var out []domain.ScoredChunk
	for rows.Next() {
		var (
			c     domain.Chunk
			score float64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.DocID, &c.DocTitle, &c.DocType, &c.Kind,
			&c.Page, &c.Source, &c.Text, &score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}
