// Package embedding holds helpers shared by every domain.Embedder backend:
// batched corpus embedding and L2 normalisation.
package embedding

import (
	"context"
	"fmt"
	"math"

	"ragchat/internal/domain"
)

// DefaultBatchSize is used when a caller passes a non-positive batch size.
const DefaultBatchSize = 320

// EmbedAll embeds texts in order, batchSize at a time, and unit-normalises the
// result. Batch size only affects throughput; the vectors are the same for any
// batch size. progress, if set, is called after each batch.
func EmbedAll(ctx context.Context, emb domain.Embedder, texts []string, batchSize int, progress func(done, total int)) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+batchSize, len(texts))
		vecs, err := emb.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding passages %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors", domain.ErrEmbedding, start, end-1, len(vecs))
		}
		for i, v := range vecs {
			if len(v) != emb.Dimension() {
				return nil, fmt.Errorf("%w: passage %d has %d values, embedder reports %d",
					domain.ErrInvalidDimension, start+i, len(v), emb.Dimension())
			}
			out = append(out, Normalize(v))
		}
		if progress != nil {
			progress(len(out), len(texts))
		}
	}
	return out, nil
}

// EmbedQuery embeds a single query string and normalises it.
func EmbedQuery(ctx context.Context, emb domain.Embedder, query string) ([]float32, error) {
	v, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return Normalize(v), nil
}

// Normalize scales v to unit length in place and returns it. Zero vectors are
// left untouched.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
