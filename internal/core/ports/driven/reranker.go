package driven

import "context"

// Reranker scores query/passage pairs with a cross-encoder.
type Reranker interface {
	// Score returns one relevance score per passage, in input order.
	Score(ctx context.Context, model, query string, passages []string) ([]float64, error)
}
