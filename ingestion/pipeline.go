package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/chunking"
	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

// Pipeline orchestrates knowledge base builds for issues.
type Pipeline struct {
	store         storage.IssueStore
	registry      *ai.Registry
	chunker       *chunking.Chunker
	batchSize     int
	cacheLimit    int
	cacheEnabled  bool
	logExtensions []string
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets the embedding batch size. Default is 32.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.batchSize = size
		}
	}
}

// WithCacheLimit sets the maximum number of cached vectors kept per issue.
// Default is 10000.
func WithCacheLimit(limit int) Option {
	return func(p *Pipeline) {
		if limit > 0 {
			p.cacheLimit = limit
		}
	}
}

// WithCacheEnabled toggles the embedding cache. Default is enabled.
func WithCacheEnabled(enabled bool) Option {
	return func(p *Pipeline) {
		p.cacheEnabled = enabled
	}
}

// WithLogExtensions sets the raw log file extensions considered during a
// build. Default is .log, .txt, .jsonl.
func WithLogExtensions(extensions []string) Option {
	return func(p *Pipeline) {
		if len(extensions) > 0 {
			p.logExtensions = extensions
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a build pipeline.
func NewPipeline(store storage.IssueStore, registry *ai.Registry, chunker *chunking.Chunker, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}
	if chunker == nil {
		return nil, ErrChunkerRequired
	}

	p := &Pipeline{
		store:         store,
		registry:      registry,
		chunker:       chunker,
		batchSize:     32,
		cacheLimit:    10000,
		cacheEnabled:  true,
		logExtensions: []string{".log", ".txt", ".jsonl"},
		logger:        slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Build chunks the issue's log files, embeds the chunks with modelID, and
// persists the chunk list, vector array, cache, and metadata.
//
// When vectors already exist for the same model and force is false, the
// build is a no-op and no provider is called. A model change always forces
// a full re-embed; the new model's vectors fully replace the old array.
func (p *Pipeline) Build(ctx context.Context, issueID, modelID string, force bool, progress ProgressFunc) (*core.IssueMetadata, error) {
	if !p.store.IssueExists(issueID) {
		return nil, fmt.Errorf("%w: issue %s", core.ErrNotFound, issueID)
	}

	meta, err := p.store.ReadMetadata(issueID)
	if err != nil {
		meta = &core.IssueMetadata{
			IssueID:   issueID,
			CreatedAt: time.Now().Format(time.RFC3339),
		}
	}
	if modelID == "" {
		modelID = meta.EmbeddingModel
	}

	if p.store.HasVectors(issueID) && !force && meta.EmbeddingModel == modelID {
		p.logger.Info("embeddings already built",
			"issue_id", issueID,
			"model", modelID)
		return meta, nil
	}

	if meta.EmbeddingModel != "" && meta.EmbeddingModel != modelID {
		p.logger.Info("embedding model changed, rebuilding",
			"issue_id", issueID,
			"old_model", meta.EmbeddingModel,
			"new_model", modelID)
		force = true
	}

	progress.report(PhaseLoading, "Loading log files...", 5)

	files, err := p.store.LogFiles(issueID, p.logExtensions)
	if err != nil {
		return nil, err
	}
	chunks := p.chunker.ChunkFiles(issueID, files)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: issue %s", core.ErrEmptyCorpus, issueID)
	}
	if err := p.store.WriteChunks(issueID, chunks); err != nil {
		return nil, err
	}

	embedder, err := p.registry.ResolveEmbedder(ctx, modelID)
	if err != nil {
		return nil, err
	}

	progress.report(PhaseCache, "Checking cache...", 10)

	cache := NewOrderedCache()
	if !force && p.cacheEnabled {
		entries, err := p.store.ReadCache(issueID)
		if err != nil {
			return nil, err
		}
		cache = CacheFromEntries(entries)
	}

	var (
		missTexts  []string
		missHashes []string
	)
	for _, chunk := range chunks {
		if _, ok := cache.Get(chunk.Metadata.TextHash); ok {
			continue
		}
		missTexts = append(missTexts, chunk.Text)
		missHashes = append(missHashes, chunk.Metadata.TextHash)
	}

	if len(missTexts) > 0 {
		p.logger.Info("generating embeddings",
			"issue_id", issueID,
			"model", modelID,
			"misses", len(missTexts),
			"hits", len(chunks)-len(missTexts))

		batches := (len(missTexts) + p.batchSize - 1) / p.batchSize
		for i := 0; i < batches; i++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			progress.report(PhaseEmbedding,
				fmt.Sprintf("Generating embeddings (batch %d/%d)...", i+1, batches),
				15+(i*70)/batches)

			lo := i * p.batchSize
			hi := lo + p.batchSize
			if hi > len(missTexts) {
				hi = len(missTexts)
			}

			vectors, err := embedder.EmbedTexts(ctx, missTexts[lo:hi])
			if err != nil {
				return nil, fmt.Errorf("embedding batch %d/%d failed: %w", i+1, batches, err)
			}
			if len(vectors) != hi-lo {
				return nil, fmt.Errorf("embedding batch %d/%d returned %d vectors for %d texts", i+1, batches, len(vectors), hi-lo)
			}
			for j, vec := range vectors {
				cache.Put(missHashes[lo+j], vec)
			}
		}
	}

	progress.report(PhaseFinalizing, "Finalizing embeddings...", 90)

	// Rebuild the array walking the chunk list in order so row i matches
	// chunk i regardless of hit/miss mix.
	final := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, ok := cache.Get(chunk.Metadata.TextHash)
		if !ok {
			return nil, fmt.Errorf("%w: chunk %s", ErrVectorMissing, chunk.ChunkID)
		}
		final[i] = vec
	}

	if p.cacheEnabled {
		if evicted := cache.TrimOldest(p.cacheLimit); evicted > 0 {
			p.logger.Debug("trimmed embedding cache",
				"issue_id", issueID,
				"evicted", evicted)
		}
		if err := p.store.WriteCache(issueID, cache.Entries()); err != nil {
			return nil, err
		}
	}

	if err := p.store.WriteVectors(issueID, final); err != nil {
		return nil, err
	}

	meta.RecordModel(modelID)
	meta.Stats = core.Stats{
		NumChunks:    len(chunks),
		EmbeddingDim: len(final[0]),
	}
	meta.Touch()
	if err := p.store.WriteMetadata(issueID, meta); err != nil {
		return nil, err
	}

	progress.report(PhaseComplete, fmt.Sprintf("Successfully built %d chunks", len(chunks)), 100)

	p.logger.Info("build complete",
		"issue_id", issueID,
		"model", modelID,
		"chunks", len(chunks),
		"dim", meta.Stats.EmbeddingDim)
	return meta, nil
}
