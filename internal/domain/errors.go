package domain

import "errors"

// Retrieval errors. Callers match them with errors.Is; producers wrap them
// with context using fmt.Errorf("%w: ...").
var (
	// ErrIO indicates the corpus or artifact file could not be read or written.
	ErrIO = errors.New("i/o error")

	// ErrCorruptArtifact indicates an artifact exists but is not a valid index.
	ErrCorruptArtifact = errors.New("corrupt index artifact")

	// ErrStaleArtifact indicates an artifact was built from a different corpus.
	ErrStaleArtifact = errors.New("stale index artifact")

	// ErrInvalidDimension indicates a vector does not match the index dimension.
	// Usually the embedding model changed between build time and query time.
	ErrInvalidDimension = errors.New("invalid vector dimension")

	// ErrInvalidArgument indicates a caller broke an input contract, e.g. top_k <= 0.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmbedding indicates the embedding backend failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrCompletion indicates the completion backend failed.
	ErrCompletion = errors.New("completion failed")
)
