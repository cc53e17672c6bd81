package domain

import "context"

// Metric names the similarity measure an index ranks by.
type Metric string

// MetricInnerProduct ranks by dot product. On unit vectors this is cosine similarity.
const MetricInnerProduct Metric = "inner_product"

// Hit is a single index match: the corpus position and its similarity score.
type Hit struct {
	Position int
	Score    float32
}

// SearchResult is a Hit resolved back to the passage text it points at.
type SearchResult struct {
	Position int
	Text     string
	Score    float32
}

// Embedder converts free text into a fixed-dimension vector.
// Output must be deterministic for a given model and independent of batch composition.
type Embedder interface {
	ModelName() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SimilarityIndex stores vectors by insertion position and answers exact top-k queries.
type SimilarityIndex interface {
	Dimension() int
	Len() int
	Add(vectors [][]float32) error
	Search(query []float32, k int) ([]Hit, error)
}

// Completer turns an assembled prompt into generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Retriever returns the passages most similar to a query.
type Retriever interface {
	SearchResults(ctx context.Context, query string, topK int) ([]SearchResult, error)
}
