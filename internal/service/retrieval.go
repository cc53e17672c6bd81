// Package service wires the corpus, embedder, index and completion backend
// into the retrieval and chat operations the commands expose.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"ragchat/internal/corpus"
	"ragchat/internal/domain"
	"ragchat/internal/embedding"
	"ragchat/internal/logging"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/gobfile"
	"ragchat/internal/vectorstore/memory"
)

// RetrievalOptions configures NewRetrievalService.
type RetrievalOptions struct {
	CorpusPath string
	IndexPath  string
	Embedder   domain.Embedder
	// Storage defaults to the gob codec.
	Storage   vectorstore.Storage
	BatchSize int
	// VerifyFingerprint rejects an artifact built from a different corpus.
	VerifyFingerprint bool
	// Rebuild ignores any existing artifact and overwrites it.
	Rebuild  bool
	Logger   *log.Logger
	Progress func(done, total int)
}

// RetrievalService answers similarity queries against a corpus. It is built
// once and read-only afterwards.
type RetrievalService struct {
	embedder domain.Embedder
	index    domain.SimilarityIndex
	passages []string
	built    bool
	log      *log.Logger
}

// NewRetrievalService loads the artifact at opts.IndexPath, or builds and saves
// one from the corpus when none exists.
func NewRetrievalService(ctx context.Context, opts RetrievalOptions) (*RetrievalService, error) {
	if opts.Embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", domain.ErrInvalidArgument)
	}
	if opts.CorpusPath == "" || opts.IndexPath == "" {
		return nil, fmt.Errorf("%w: corpus and index paths are required", domain.ErrInvalidArgument)
	}
	if opts.Storage == nil {
		opts.Storage = gobfile.NewStorage()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	passages, err := corpus.Load(opts.CorpusPath)
	if err != nil {
		return nil, err
	}
	fingerprint, err := corpus.Fingerprint(opts.CorpusPath)
	if err != nil {
		return nil, err
	}

	s := &RetrievalService{embedder: opts.Embedder, passages: passages, log: opts.Logger}

	exists, err := vectorstore.Exists(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	if exists && !opts.Rebuild {
		if s.index, err = s.load(opts, fingerprint); err != nil {
			return nil, err
		}
		return s, nil
	}
	if s.index, err = s.build(ctx, opts, fingerprint); err != nil {
		return nil, err
	}
	s.built = true
	return s, nil
}

func (s *RetrievalService) load(opts RetrievalOptions, fingerprint string) (domain.SimilarityIndex, error) {
	a, err := opts.Storage.Load(opts.IndexPath)
	if err != nil {
		return nil, err
	}
	if a.Dimension != opts.Embedder.Dimension() {
		return nil, fmt.Errorf("%w: artifact %s has dimension %d, embedder %q produces %d",
			domain.ErrInvalidDimension, opts.IndexPath, a.Dimension, opts.Embedder.ModelName(), opts.Embedder.Dimension())
	}
	if a.Model != opts.Embedder.ModelName() {
		s.log.Warn("index was built with a different embedding model", "artifact", a.Model, "embedder", opts.Embedder.ModelName())
	}
	if a.Fingerprint != fingerprint {
		if opts.VerifyFingerprint {
			return nil, fmt.Errorf("%w: %s was built from a different version of %s; rebuild the index",
				domain.ErrStaleArtifact, opts.IndexPath, opts.CorpusPath)
		}
		s.log.Warn("corpus changed since the index was built", "index", opts.IndexPath, "corpus", opts.CorpusPath)
	}
	idx, err := memory.FromArtifact(a)
	if err != nil {
		return nil, err
	}
	s.log.Info("loaded index", "path", opts.IndexPath, "format", opts.Storage.Name(),
		"vectors", idx.Len(), "passages", len(s.passages), "built_at", a.BuiltAt.Format(time.RFC3339))
	return idx, nil
}

func (s *RetrievalService) build(ctx context.Context, opts RetrievalOptions, fingerprint string) (domain.SimilarityIndex, error) {
	s.log.Info("building index", "corpus", opts.CorpusPath, "passages", len(s.passages), "model", opts.Embedder.ModelName())
	if len(s.passages) == 0 {
		s.log.Warn("corpus is empty; searches will return nothing", "corpus", opts.CorpusPath)
	}
	start := time.Now()
	progress := opts.Progress
	if progress == nil {
		progress = logProgress(s.log)
	}
	idx, err := memory.Build(ctx, s.passages, opts.Embedder, opts.BatchSize, progress)
	if err != nil {
		return nil, err
	}
	if err := opts.Storage.Save(opts.IndexPath, idx.Snapshot(opts.Embedder.ModelName(), fingerprint)); err != nil {
		return nil, err
	}
	s.log.Info("saved index", "path", opts.IndexPath, "format", opts.Storage.Name(),
		"vectors", idx.Len(), "took", time.Since(start).Round(time.Millisecond))
	return idx, nil
}

// logProgress reports embedding progress at info level each time another
// tenth of the corpus is done.
func logProgress(l *log.Logger) func(done, total int) {
	lastStep := -1
	return func(done, total int) {
		if total == 0 {
			return
		}
		step := done * 10 / total
		if step == lastStep {
			return
		}
		lastStep = step
		l.Info("embedding corpus", "done", done, "total", total, "percent", done*100/total)
	}
}

// Len returns the number of indexed passages.
func (s *RetrievalService) Len() int { return s.index.Len() }

// Passages returns the resident corpus. Callers must not modify it.
func (s *RetrievalService) Passages() []string { return s.passages }

// Built reports whether construction embedded the corpus rather than loading
// an existing artifact.
func (s *RetrievalService) Built() bool { return s.built }

// Search returns the text of the topK passages most similar to query, best first.
func (s *RetrievalService) Search(ctx context.Context, query string, topK int) ([]string, error) {
	results, err := s.SearchResults(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts, nil
}

// SearchResults is Search with positions and scores attached.
func (s *RetrievalService) SearchResults(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be at least 1, got %d", domain.ErrInvalidArgument, topK)
	}
	q, err := embedding.EmbedQuery(ctx, s.embedder, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.index.Search(q, topK)
	if err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		if h.Position >= len(s.passages) {
			return nil, fmt.Errorf("%w: index position %d is past the end of the corpus (%d passages)",
				domain.ErrStaleArtifact, h.Position, len(s.passages))
		}
		results[i] = domain.SearchResult{Position: h.Position, Text: s.passages[h.Position], Score: h.Score}
	}
	s.log.Debug("search", "query", query, "top_k", topK, "hits", len(results))
	return results, nil
}

var _ domain.Retriever = (*RetrievalService)(nil)
