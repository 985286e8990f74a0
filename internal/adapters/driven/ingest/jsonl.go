// Package ingest loads chunk exports produced by the document ingestion
// pipeline and keeps the chunk store in sync with an export directory.
//
// An export is JSON lines, one chunk per line:
//
//	{"id":"...","text":"...","embedding":[...],"metadata":{"user_id":"...","doc_id":"...",
//	 "doc_title":"...","doc_type":"schedule","chunk_kind":"row","page":1,"source":"KRS.pdf"}}
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
)

// maxLine bounds one exported chunk, embedding included.
const maxLine = 8 << 20

type exportLine struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding,omitempty"`
	Metadata  exportMetadata `json:"metadata"`
}

type exportMetadata struct {
	UserID    string          `json:"user_id"`
	DocID     string          `json:"doc_id"`
	DocTitle  string          `json:"doc_title"`
	DocType   string          `json:"doc_type"`
	ChunkKind string          `json:"chunk_kind"`
	Page      json.RawMessage `json:"page"`
	Source    string          `json:"source"`
}

// ReadJSONL decodes every non-blank line of r into a chunk. The first
// malformed line aborts the read and is reported with its line number.
func ReadJSONL(r io.Reader) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	n := 0
	for sc.Scan() {
		n++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var line exportLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, n, err)
		}
		page, err := parsePage(line.Metadata.Page)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidInput, n, err)
		}
		chunks = append(chunks, domain.Chunk{
			ID:        line.ID,
			Text:      line.Text,
			UserID:    line.Metadata.UserID,
			DocID:     line.Metadata.DocID,
			DocTitle:  line.Metadata.DocTitle,
			DocType:   domain.DocType(strings.ToLower(strings.TrimSpace(line.Metadata.DocType))),
			Kind:      domain.ChunkKind(strings.ToLower(strings.TrimSpace(line.Metadata.ChunkKind))),
			Page:      page,
			Source:    line.Metadata.Source,
			Embedding: line.Embedding,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("ingest: read: %w", err)
	}
	return chunks, nil
}

// ReadFile decodes the export at path.
func ReadFile(path string) ([]domain.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()
	chunks, err := ReadJSONL(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chunks, nil
}

// parsePage accepts the page as a number, a numeric string or null.
func parsePage(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("page %q is not a number", s)
	}
	if f < 0 {
		return 0, nil
	}
	return int(f), nil
}
