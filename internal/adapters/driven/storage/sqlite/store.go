package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/arah-ai/arah/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/arah-ai/arah/internal/adapters/driven/storage/vector"
	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
	"github.com/arah-ai/arah/internal/logger"
)

// Store is a unified SQLite-based storage that provides access to the chunk,
// catalog and metrics ports through wrapper types.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService
}

// Option configures a Store.
type Option func(*Store)

// WithEmbedder enables dense similarity search for chunks stored with
// embeddings. Without it, search ranks by FTS5 bm25.
func WithEmbedder(e driven.EmbeddingService) Option {
	return func(s *Store) { s.embedder = e }
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.arah/data/arah.db.
func NewStore(dataDir string, opts ...Option) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".arah", "data")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "arah.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// ChunkWriter returns a ChunkWriter backed by this store.
func (s *Store) ChunkWriter() driven.ChunkWriter {
	return &chunkStore{store: s}
}

// DocumentCatalog returns a DocumentCatalog backed by this store.
func (s *Store) DocumentCatalog() driven.DocumentCatalog {
	return &chunkStore{store: s}
}

// MetricsSink returns a MetricsSink writing to the rag_metrics table.
func (s *Store) MetricsSink() driven.MetricsSink {
	return &metricsStore{store: s}
}

// MetricsReader returns a MetricsReader over the rag_metrics table.
func (s *Store) MetricsReader() driven.MetricsReader {
	return &metricsStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements the chunk read, write and catalog ports.
type chunkStore struct {
	store *Store
}

var (
	_ driven.ChunkStore      = (*chunkStore)(nil)
	_ driven.ChunkWriter     = (*chunkStore)(nil)
	_ driven.DocumentCatalog = (*chunkStore)(nil)
)

const chunkColumns = `c.id, c.user_id, c.doc_id, c.doc_title, c.doc_type, c.kind, c.page, c.source, c.text, c.embedding`

// Get returns every chunk matching the filter.
func (s *chunkStore) Get(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	where, args := filterClause(filter)
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c WHERE `+where+` ORDER BY c.doc_id, c.position`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// SimilaritySearch ranks chunks by embedding cosine when an embedder is
// configured and the matching chunks carry vectors, and by FTS5 bm25 otherwise.
func (s *chunkStore) SimilaritySearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	if s.store.embedder != nil {
		scored, ok, err := s.denseSearch(ctx, query, k, filter)
		if err != nil {
			logger.Warn("sqlite dense search: %v, falling back to fts", err)
		} else if ok {
			return scored, nil
		}
	}
	return s.ftsSearch(ctx, query, k, filter)
}

func (s *chunkStore) denseSearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, bool, error) {
	where, args := filterClause(filter)
	rows, err := s.store.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks c WHERE `+where+` AND c.embedding IS NOT NULL ORDER BY c.doc_id, c.position`, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying embedded chunks: %w", err)
	}
	chunks, err := scanChunks(rows)
	rows.Close()
	if err != nil {
		return nil, false, err
	}
	if len(chunks) == 0 {
		return nil, false, nil
	}

	vec, err := s.store.embedder.Embed(ctx, query)
	if err != nil {
		return nil, false, fmt.Errorf("embedding query: %w", err)
	}
	return vector.Rank(chunks, query, vec, k), true, nil
}

func (s *chunkStore) ftsSearch(ctx context.Context, query string, k int, filter domain.ChunkFilter) ([]domain.ScoredChunk, error) {
	match := matchExpr(query)
	if match == "" {
		return nil, nil
	}
	where, args := filterClause(filter)
	args = append([]any{match}, args...)
	args = append(args, k)

	// bm25 rank is negative; 1/(1+|rank|) maps it into (0,1].
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+chunkColumns+`, 1.0 / (1.0 + abs(chunks_fts.rank)) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.id
		WHERE chunks_fts MATCH ? AND `+where+`
		ORDER BY chunks_fts.rank
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("fts query: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredChunk
	for rows.Next() {
		var (
			c     domain.Chunk
			blob  []byte
			score float64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.DocID, &c.DocTitle, &c.DocType, &c.Kind,
			&c.Page, &c.Source, &c.Text, &blob, &score); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = vector.Decode(blob)
		out = append(out, domain.ScoredChunk{Chunk: c, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces chunks by ID and refreshes their documents.
func (s *chunkStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.ID == "" || c.DocID == "" || strings.TrimSpace(c.UserID) == "" {
			return fmt.Errorf("%w: chunk needs id, doc id and user id", domain.ErrInvalidInput)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
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
		key := [2]string{c.UserID, c.DocID}
		if !seen[key] {
			seen[key] = true
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO documents (user_id, id, title, doc_type, updated_at)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT(user_id, id) DO UPDATE SET
					title = excluded.title,
					doc_type = excluded.doc_type,
					updated_at = excluded.updated_at
			`, c.UserID, c.DocID, firstNonEmpty(c.DocTitle, c.Source, c.DocID), docType, now); err != nil {
				return fmt.Errorf("saving document %s: %w", c.DocID, err)
			}
		}

		kind := c.Kind
		if !kind.IsValid() {
			kind = domain.ChunkKindText
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks_fts WHERE id = ?", c.ID); err != nil {
			return fmt.Errorf("clearing fts entry %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO chunks (id, user_id, doc_id, doc_title, doc_type, kind, page, source, position, text, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.UserID, c.DocID, c.DocTitle, docType, kind, c.Page, c.Source, i, c.Text, vector.Encode(c.Embedding)); err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO chunks_fts (text, id) VALUES (?, ?)", c.Text, c.ID); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document and all its chunks for a user.
func (s *chunkStore) DeleteDocument(ctx context.Context, userID, docID string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunks_fts WHERE id IN (SELECT id FROM chunks WHERE user_id = ? AND doc_id = ?)",
		userID, docID); err != nil {
		return fmt.Errorf("deleting fts entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE user_id = ? AND doc_id = ?", userID, docID); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE user_id = ? AND id = ?", userID, docID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// ListDocuments returns the user's documents ordered by title.
func (s *chunkStore) ListDocuments(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT d.id, d.user_id, d.title, d.doc_type, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.user_id = d.user_id AND c.doc_id = d.id
		WHERE d.user_id = ?
		GROUP BY d.id, d.user_id, d.title, d.doc_type
		ORDER BY d.title COLLATE NOCASE, d.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.UserID, &d.Title, &d.DocType, &d.ChunkCount); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// HasDocuments reports whether the user owns at least one document.
func (s *chunkStore) HasDocuments(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.store.db.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE user_id = ? LIMIT 1", userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking documents: %w", err)
	}
	return true, nil
}

// ==================== Metrics Store ====================

// metricsStore implements driven.MetricsSink and driven.MetricsReader.
type metricsStore struct {
	store *Store
}

var (
	_ driven.MetricsSink   = (*metricsStore)(nil)
	_ driven.MetricsReader = (*metricsStore)(nil)
)

// Emit appends one record.
func (s *metricsStore) Emit(ctx context.Context, record domain.MetricRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling metric: %w", err)
	}
	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO rag_metrics (request_id, user_id, pipeline, status_code, created_at, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`, record.RequestID, record.UserID, record.Pipeline, record.StatusCode, record.CreatedAt, string(data))
	if err != nil {
		return fmt.Errorf("saving metric: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *metricsStore) Recent(ctx context.Context, limit int) ([]domain.MetricRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.store.db.QueryContext(ctx, "SELECT record FROM rag_metrics ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning metric: %w", err)
		}
		var m domain.MetricRecord
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshaling metric: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metrics: %w", err)
	}
	return out, nil
}

// ==================== Helper Functions ====================

// filterClause renders a ChunkFilter as a WHERE fragment over alias c.
func filterClause(f domain.ChunkFilter) (string, []any) {
	parts := []string{"c.user_id = ?"}
	args := []any{f.UserID}
	if f.DocType != "" {
		parts = append(parts, "c.doc_type = ?")
		args = append(args, f.DocType)
	}
	if f.Kind != "" {
		parts = append(parts, "c.kind = ?")
		args = append(args, f.Kind)
	}
	if len(f.DocIDs) > 0 {
		parts = append(parts, "c.doc_id IN (?"+strings.Repeat(", ?", len(f.DocIDs)-1)+")")
		for _, id := range f.DocIDs {
			args = append(args, id)
		}
	}
	return strings.Join(parts, " AND "), args
}

// matchExpr turns free text into an FTS5 query of quoted terms joined by OR.
func matchExpr(query string) string {
	terms := vector.Terms(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " OR ")
}

// scanChunks reads every row selected with chunkColumns.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var (
			c    domain.Chunk
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.DocID, &c.DocTitle, &c.DocType, &c.Kind,
			&c.Page, &c.Source, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		c.Embedding = vector.Decode(blob)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
