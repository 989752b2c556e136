package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

// Retriever answers top-k similarity queries over built issues.
type Retriever struct {
	store    storage.IssueStore
	registry *ai.Registry
	logger   *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRetriever creates a Retriever.
func NewRetriever(store storage.IssueStore, registry *ai.Registry, opts ...Option) *Retriever {
	r := &Retriever{
		store:    store,
		registry: registry,
		logger:   slog.Default().With("component", "retriever"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryEmbedding embeds a single query text with the given model.
func (r *Retriever) QueryEmbedding(ctx context.Context, text, modelID string) ([]float32, error) {
	embedder, err := r.registry.ResolveEmbedder(ctx, modelID)
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// Retrieve returns the top-k chunks of an issue ranked by cosine similarity
// to the query, highest first. The query is embedded with the model recorded
// in the issue metadata. topK is clamped to the number of chunks.
func (r *Retriever) Retrieve(ctx context.Context, issueID, query string, topK int) ([]core.ScoredChunk, error) {
	meta, err := r.store.ReadMetadata(issueID)
	if err != nil {
		return nil, fmt.Errorf("%w: issue %s", core.ErrNotBuilt, issueID)
	}

	chunks, err := r.store.ReadChunks(issueID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: issue %s", core.ErrEmptyCorpus, issueID)
	}

	vectors, err := r.store.ReadVectors(issueID, meta.Stats.EmbeddingDim)
	if err != nil {
		return nil, err
	}

	queryVector, err := r.QueryEmbedding(ctx, query, meta.EmbeddingModel)
	if err != nil {
		return nil, err
	}

	results, err := Rank(vectors, chunks, queryVector, topK)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("retrieved chunks",
		"issue_id", issueID,
		"top_k", len(results),
		"corpus", len(chunks))
	return results, nil
}

// Rank scores every chunk against the query vector and returns the topK
// highest, strictly descending by similarity. Equal similarities are ordered
// by lower original index. topK is clamped to len(chunks).
func Rank(vectors [][]float32, chunks []core.Chunk, queryVector []float32, topK int) ([]core.ScoredChunk, error) {
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d rows, %d chunks", ErrVectorChunkMismatch, len(vectors), len(chunks))
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	if len(vectors[0]) != len(queryVector) {
		return nil, fmt.Errorf("%w: stored %d, query %d", ErrDimensionMismatch, len(vectors[0]), len(queryVector))
	}

	if topK > len(chunks) {
		topK = len(chunks)
	}
	if topK <= 0 {
		return nil, nil
	}

	queryNorm := Normalize(queryVector)
	items := make([]scoredIndex, len(vectors))
	for i, row := range vectors {
		items[i] = scoredIndex{
			index: i,
			score: Dot(Normalize(row), queryNorm),
		}
	}

	// Full sort only when k covers the corpus; otherwise isolate the k best
	// with a partition pass and sort just that prefix.
	if topK < len(items) {
		selectTop(items, topK)
		items = items[:topK]
	}
	slices.SortFunc(items, compareScored)

	results := make([]core.ScoredChunk, len(items))
	for i, item := range items {
		results[i] = core.ScoredChunk{
			Chunk: chunks[item.index],
			Score: item.score,
		}
	}
	return results, nil
}

type scoredIndex struct {
	index int
	score float32
}

// compareScored orders by similarity descending, then original index
// ascending so ties are stable.
func compareScored(a, b scoredIndex) int {
	if a.score > b.score {
		return -1
	}
	if a.score < b.score {
		return 1
	}
	return a.index - b.index
}

// selectTop partitions items so the k best (per compareScored) occupy the
// first k positions, in arbitrary order. Average linear time.
func selectTop(items []scoredIndex, k int) {
	lo, hi := 0, len(items)-1
	for lo < hi {
		p := partition(items, lo, hi)
		switch {
		case p == k:
			return
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

func partition(items []scoredIndex, lo, hi int) int {
	// Median-of-three pivot guards against sorted inputs.
	mid := lo + (hi-lo)/2
	if compareScored(items[mid], items[lo]) < 0 {
		items[lo], items[mid] = items[mid], items[lo]
	}
	if compareScored(items[hi], items[lo]) < 0 {
		items[lo], items[hi] = items[hi], items[lo]
	}
	if compareScored(items[hi], items[mid]) < 0 {
		items[mid], items[hi] = items[hi], items[mid]
	}
	pivot := items[mid]
	items[mid], items[hi] = items[hi], items[mid]

	store := lo
	for i := lo; i < hi; i++ {
		if compareScored(items[i], pivot) < 0 {
			items[i], items[store] = items[store], items[i]
			store++
		}
	}
	items[store], items[hi] = items[hi], items[store]
	return store
}
