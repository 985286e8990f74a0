package domain

import (
	"fmt"
	"slices"
	"strings"
)

// DocType classifies the academic content of an uploaded document.
type DocType string

// Known document types.
const (
	// DocTypeSchedule is a class schedule (KRS, jadwal).
	DocTypeSchedule DocType = "schedule"

	// DocTypeTranscript is a grade transcript (KHS, transkrip).
	DocTypeTranscript DocType = "transcript"

	// DocTypeGeneral is any other academic document (guidelines, curricula).
	DocTypeGeneral DocType = "general"
)

// IsValid returns true if the document type is recognised.
func (t DocType) IsValid() bool {
	switch t {
	case DocTypeSchedule, DocTypeTranscript, DocTypeGeneral:
		return true
	default:
		return false
	}
}

// NeedsGrounding reports whether answers about this type must be backed by
// retrieved evidence.
func (t DocType) NeedsGrounding() bool {
	return t == DocTypeSchedule || t == DocTypeTranscript
}

// String returns the string representation.
func (t DocType) String() string {
	return string(t)
}

// ChunkKind describes how a chunk was cut from its document.
type ChunkKind string

// Known chunk kinds.
const (
	// ChunkKindRow is one pipe-delimited key=value table row.
	ChunkKindRow ChunkKind = "row"

	// ChunkKindText is free text.
	ChunkKindText ChunkKind = "text"

	// ChunkKindParent is a larger parent passage.
	ChunkKindParent ChunkKind = "parent"
)

// IsValid returns true if the chunk kind is recognised.
func (k ChunkKind) IsValid() bool {
	switch k {
	case ChunkKindRow, ChunkKindText, ChunkKindParent:
		return true
	default:
		return false
	}
}

// Document is the catalog entry for a file a user has uploaded.
// Documents are owned by the ingestion collaborator; this core only reads them.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// UserID is the owner of the document.
	UserID string `json:"user_id"`

	// Title is the uploaded file name, used for @mention resolution.
	Title string `json:"title"`

	// DocType is the document's academic classification.
	DocType DocType `json:"doc_type"`

	// ChunkCount is the number of indexed chunks.
	ChunkCount int `json:"chunk_count"`
}

// Chunk is one retrievable unit of indexed content.
// Chunks are immutable once indexed and every read is scoped by UserID.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string `json:"id"`

	// Text is the chunk body. Row chunks carry pipe-delimited key=value pairs.
	Text string `json:"text"`

	// UserID is the owner of the chunk.
	UserID string `json:"user_id"`

	// DocID links to the parent Document.
	DocID string `json:"doc_id"`

	// DocTitle is the parent document's title.
	DocTitle string `json:"doc_title,omitempty"`

	// DocType is the parent document's classification.
	DocType DocType `json:"doc_type"`

	// Kind is the chunk kind.
	Kind ChunkKind `json:"chunk_kind"`

	// Page is the 1-based page number, zero when unknown.
	Page int `json:"page,omitempty"`

	// Source is the human-readable source label (usually the file name).
	Source string `json:"source,omitempty"`

	// Embedding is the dense vector for the chunk, if the ingestion side provided one.
	Embedding []float32 `json:"embedding,omitempty"`
}

// SourceName returns the label a citation names the chunk by: the source,
// else the document title, else "document".
func (c Chunk) SourceName() string {
	if src := strings.TrimSpace(c.Source); src != "" {
		return src
	}
	if title := strings.TrimSpace(c.DocTitle); title != "" {
		return title
	}
	return "document"
}

// ChunkFilter scopes a chunk store read. UserID is mandatory.
type ChunkFilter struct {
	// UserID is the owner every returned chunk must belong to.
	UserID string

	// DocType restricts results to one document type when set.
	DocType DocType

	// Kind restricts results to one chunk kind when set.
	Kind ChunkKind

	// DocIDs restricts results to a set of documents when non-empty.
	DocIDs []string
}

// Validate checks the filter carries an owner.
func (f ChunkFilter) Validate() error {
	if strings.TrimSpace(f.UserID) == "" {
		return fmt.Errorf("%w: chunk filter without user id", ErrInvalidInput)
	}
	return nil
}

// IsCompound reports whether the filter narrows beyond the owner.
func (f ChunkFilter) IsCompound() bool {
	return f.DocType != "" || f.Kind != "" || len(f.DocIDs) > 0
}

// OwnerOnly returns the filter relaxed to the owner constraint.
func (f ChunkFilter) OwnerOnly() ChunkFilter {
	return ChunkFilter{UserID: f.UserID}
}

// Matches reports whether a chunk satisfies the filter.
func (f ChunkFilter) Matches(c Chunk) bool {
	if c.UserID != f.UserID {
		return false
	}
	if f.DocType != "" && c.DocType != f.DocType {
		return false
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if len(f.DocIDs) > 0 && !slices.Contains(f.DocIDs, c.DocID) {
		return false
	}
	return true
}

// ScoredChunk is a chunk returned by similarity search with its score.
// Higher scores are more similar.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
