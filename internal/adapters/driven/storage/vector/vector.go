// Package vector holds the ranking helpers shared by the chunk stores that
// score candidates in process.
package vector

import (
	"encoding/binary"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/arah-ai/arah/internal/core/domain"
)

// Encode converts a []float32 to a little-endian byte slice for storage.
func Encode(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Decode converts a byte slice produced by Encode back to []float32.
func Decode(data []byte) []float32 {
	if len(data) < 4 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// Cosine returns the cosine similarity of a and b, zero when either is empty
// or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Terms lowercases text and splits it on anything that is not a letter or
// digit. Single-character terms are dropped.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 1 {
			out = append(out, f)
		}
	}
	return out
}

// Overlap scores text against the query terms as the fraction of distinct
// query terms it contains.
func Overlap(queryTerms []string, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, t := range Terms(text) {
		have[t] = struct{}{}
	}
	seen := make(map[string]struct{}, len(queryTerms))
	hits := 0
	for _, t := range queryTerms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := have[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}

// Rank scores every chunk and returns the best k with a positive score.
// Chunks with embeddings are scored by cosine against queryVec when it is
// set; the rest fall back to term overlap. Ties keep input order.
func Rank(chunks []domain.Chunk, query string, queryVec []float32, k int) []domain.ScoredChunk {
	terms := Terms(query)
	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		var s float64
		if len(queryVec) > 0 && len(c.Embedding) == len(queryVec) {
			s = Cosine(queryVec, c.Embedding)
		} else {
			s = Overlap(terms, c.Text)
		}
		if s > 0 {
			scored = append(scored, domain.ScoredChunk{Chunk: c, Score: s})
		}
	}
	slices.SortStableFunc(scored, func(a, b domain.ScoredChunk) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
