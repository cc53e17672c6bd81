package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/vectorstore"
)

// Index is a flat in-memory vector index with exact brute-force inner-product
// search. Vector i always corresponds to corpus position i.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Build embeds passages in corpus order and returns an index over them. An
// empty corpus yields an empty index whose searches return no hits.
func Build(ctx context.Context, passages []string, emb domain.Embedder, batchSize int, progress func(done, total int)) (*Index, error) {
	idx, err := New(emb.Dimension())
	if err != nil {
		return nil, err
	}
	vectors, err := embedding.EmbedAll(ctx, emb, passages, batchSize, progress)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	return idx, nil
}

// FromArtifact restores an index from a loaded artifact.
func FromArtifact(a *vectorstore.Artifact) (*Index, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &Index{dimension: a.Dimension, vectors: a.Vectors}, nil
}

// Dimension returns the fixed vector size of the index.
func (x *Index) Dimension() int { return x.dimension }

// Len returns the number of indexed vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Add appends vectors after the existing ones. All vectors are checked before
// any is inserted.
func (x *Index) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has %d values, index has %d", domain.ErrInvalidDimension, i, len(v), x.dimension)
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = append(x.vectors, vectors...)
	return nil
}

// Search returns the min(k, Len()) best hits by descending inner product,
// ties broken by ascending position.
func (x *Index) Search(query []float32, k int) ([]domain.Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, k)
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d values, index has %d", domain.ErrInvalidDimension, len(query), x.dimension)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	hits := make([]domain.Hit, len(x.vectors))
	for i, v := range x.vectors {
		hits[i] = domain.Hit{Position: i, Score: dot(v, query)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Position < hits[j].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Snapshot captures the index as an artifact ready to be saved.
func (x *Index) Snapshot(model, fingerprint string) *vectorstore.Artifact {
	x.mu.RLock()
	defer x.mu.RUnlock()
	vectors := make([][]float32, len(x.vectors))
	copy(vectors, x.vectors)
	return &vectorstore.Artifact{
		Version:     vectorstore.ArtifactVersion,
		Metric:      domain.MetricInnerProduct,
		Dimension:   x.dimension,
		Model:       model,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now().UTC(),
		Vectors:     vectors,
	}
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

var _ domain.SimilarityIndex = (*Index)(nil)
