package services

import (
	"math"
	"slices"
	"strings"

	"github.com/arah-ai/arah/internal/core/domain"
)

// Okapi BM25 parameters. Terms with a negative idf are floored at
// bm25Epsilon times the average idf.
const (
	bm25K1      = 1.5
	bm25B       = 0.75
	bm25Epsilon = 0.25
)

// tokenize splits lower-cased text on whitespace.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// bm25Index scores a small in-memory corpus.
type bm25Index struct {
	docs  []map[string]int
	lens  []int
	avgdl float64
	idf   map[string]float64
}

func newBM25Index(corpus [][]string) *bm25Index {
	idx := &bm25Index{
		docs: make([]map[string]int, len(corpus)),
		lens: make([]int, len(corpus)),
		idf:  make(map[string]float64),
	}
	df := make(map[string]int)
	total := 0
	for i, toks := range corpus {
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		idx.docs[i] = tf
		idx.lens[i] = len(toks)
		total += len(toks)
	}
	if len(corpus) > 0 {
		idx.avgdl = float64(total) / float64(len(corpus))
	}

	n := float64(len(corpus))
	sum := 0.0
	var negative []string
	for t, f := range df {
		v := math.Log(n-float64(f)+0.5) - math.Log(float64(f)+0.5)
		idx.idf[t] = v
		sum += v
		if v < 0 {
			negative = append(negative, t)
		}
	}
	if len(df) > 0 {
		floor := bm25Epsilon * sum / float64(len(df))
		for _, t := range negative {
			idx.idf[t] = floor
		}
	}
	return idx
}

func (idx *bm25Index) scores(query []string) []float64 {
	out := make([]float64, len(idx.docs))
	if idx.avgdl == 0 {
		return out
	}
	for _, q := range query {
		idf, ok := idx.idf[q]
		if !ok {
			continue
		}
		for i, tf := range idx.docs {
			f := float64(tf[q])
			if f == 0 {
				continue
			}
			norm := bm25K1 * (1 - bm25B + bm25B*float64(idx.lens[i])/idx.avgdl)
			out[i] += idf * f * (bm25K1 + 1) / (f + norm)
		}
	}
	return out
}

// RankBM25 ranks pool against query and returns the best k with SparseScore
// set. Ties keep pool order. An empty or token-free pool yields nothing.
func RankBM25(query string, pool []domain.Candidate, k int) []domain.Candidate {
	if len(pool) == 0 {
		return nil
	}
	corpus := make([][]string, len(pool))
	anyTokens := false
	for i, c := range pool {
		corpus[i] = tokenize(c.Chunk.Text)
		anyTokens = anyTokens || len(corpus[i]) > 0
	}
	if !anyTokens {
		return nil
	}

	scores := newBM25Index(corpus).scores(tokenize(query))
	ranked := make([]domain.Candidate, len(pool))
	for i, c := range pool {
		s := scores[i]
		c.SparseScore = &s
		ranked[i] = c
	}
	slices.SortStableFunc(ranked, func(a, b domain.Candidate) int {
		switch {
		case *a.SparseScore > *b.SparseScore:
			return -1
		case *a.SparseScore < *b.SparseScore:
			return 1
		default:
			return 0
		}
	})
	return ranked[:min(max(k, 1), len(ranked))]
}
