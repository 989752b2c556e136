package search

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/ai/mock"
	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage/fs"
)

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-4)
	assert.InDelta(t, 0.8, v[1], 1e-4)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-4)
}

func TestNormalizeZeroVector(t *testing.T) {
	v := Normalize([]float32{0, 0, 0})
	for _, x := range v {
		assert.False(t, math.IsNaN(float64(x)))
		assert.InDelta(t, 0, x, 1e-6)
	}
}

func TestDot(t *testing.T) {
	assert.InDelta(t, 11, Dot([]float32{1, 2}, []float32{3, 4}), 1e-6)
}

// vectorWithSimilarity builds a 2-d unit vector whose cosine similarity to
// (1, 0) is sim.
func vectorWithSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func testChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{
			ChunkID:    fmt.Sprintf("issue-1_chunk_%d", i),
			IssueID:    "issue-1",
			SourceFile: "app.log",
			StartLine:  i*7 + 1,
			EndLine:    i*7 + 8,
			Text:       fmt.Sprintf("chunk %d", i),
		}
	}
	return chunks
}

func TestRankOrdersBySimilarity(t *testing.T) {
	sims := []float64{0.9, 0.1, 0.5, 0.7, 0.3}
	vectors := make([][]float32, len(sims))
	for i, s := range sims {
		vectors[i] = vectorWithSimilarity(s)
	}
	query := []float32{1, 0}

	results, err := Rank(vectors, testChunks(len(sims)), query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.InDelta(t, 0.9, results[0].Score, 1e-3)
	assert.InDelta(t, 0.7, results[1].Score, 1e-3)
	assert.InDelta(t, 0.5, results[2].Score, 1e-3)
	assert.Equal(t, "issue-1_chunk_0", results[0].Chunk.ChunkID)
	assert.Equal(t, "issue-1_chunk_3", results[1].Chunk.ChunkID)
	assert.Equal(t, "issue-1_chunk_2", results[2].Chunk.ChunkID)
}

func TestRankMonotonicityAndClamp(t *testing.T) {
	sims := []float64{0.2, 0.8, 0.4}
	vectors := make([][]float32, len(sims))
	for i, s := range sims {
		vectors[i] = vectorWithSimilarity(s)
	}
	query := []float32{1, 0}

	// top_k larger than the corpus is clamped
	results, err := Rank(vectors, testChunks(len(sims)), query, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestRankTieBreaksByIndex(t *testing.T) {
	same := vectorWithSimilarity(0.5)
	vectors := [][]float32{same, same, same, vectorWithSimilarity(0.9)}
	query := []float32{1, 0}

	results, err := Rank(vectors, testChunks(len(vectors)), query, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "issue-1_chunk_3", results[0].Chunk.ChunkID)
	assert.Equal(t, "issue-1_chunk_0", results[1].Chunk.ChunkID)
	assert.Equal(t, "issue-1_chunk_1", results[2].Chunk.ChunkID)
}

func TestRankSelfSimilarity(t *testing.T) {
	v := mock.DeterministicVector("identical text", 64)
	results, err := Rank([][]float32{v}, testChunks(1), v, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
}

func TestRankLargeCorpusPartialSelection(t *testing.T) {
	n := 500
	vectors := make([][]float32, n)
	sims := make([]float64, n)
	for i := range vectors {
		sims[i] = float64(i%97) / 100.0
		vectors[i] = vectorWithSimilarity(sims[i])
	}
	query := []float32{1, 0}

	results, err := Rank(vectors, testChunks(n), query, 10)
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.InDelta(t, 0.96, results[0].Score, 1e-3)
	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i].Score, results[i-1].Score)
	}
}

func TestRankMismatches(t *testing.T) {
	t.Run("row count", func(t *testing.T) {
		_, err := Rank([][]float32{{1, 0}}, testChunks(2), []float32{1, 0}, 1)
		assert.ErrorIs(t, err, ErrVectorChunkMismatch)
	})
	t.Run("dimension", func(t *testing.T) {
		_, err := Rank([][]float32{{1, 0, 0}}, testChunks(1), []float32{1, 0}, 1)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestRetrieveEndToEnd(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateIssue("issue-1"))

	texts := []string{
		"connection refused to database",
		"user logged in successfully",
		"database timeout after 30s",
	}
	chunks := make([]core.Chunk, len(texts))
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		chunks[i] = core.Chunk{
			ChunkID:    fmt.Sprintf("issue-1_chunk_%d", i),
			IssueID:    "issue-1",
			SourceFile: "app.log",
			StartLine:  i + 1,
			EndLine:    i + 1,
			Text:       text,
			Metadata:   core.ChunkMetadata{TextHash: core.TextHash(text)},
		}
		vectors[i] = mock.DeterministicVector(text, mock.DefaultDim)
	}
	require.NoError(t, store.WriteChunks("issue-1", chunks))
	require.NoError(t, store.WriteVectors("issue-1", vectors))

	meta := &core.IssueMetadata{
		IssueID:        "issue-1",
		EmbeddingModel: "mock:embedder",
		Stats:          core.Stats{NumChunks: len(chunks), EmbeddingDim: mock.DefaultDim},
	}
	require.NoError(t, store.WriteMetadata("issue-1", meta))

	registry := ai.NewRegistry()
	registry.RegisterEmbedder("mock:embedder", func(ctx context.Context) (ai.Embedder, error) {
		return mock.NewEmbedder(), nil
	})

	retriever := NewRetriever(store, registry)

	// Query identical to a stored chunk ranks it first with similarity ~1.
	results, err := retriever.Retrieve(context.Background(), "issue-1", "database timeout after 30s", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "issue-1_chunk_2", results[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-3)
	assert.True(t, strings.Contains(results[0].Chunk.Text, "timeout"))
}

func TestRetrieveNotBuilt(t *testing.T) {
	store, err := fs.NewStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateIssue("issue-1"))

	retriever := NewRetriever(store, ai.NewRegistry())
	_, err = retriever.Retrieve(context.Background(), "issue-1", "anything", 3)
	assert.ErrorIs(t, err, core.ErrNotBuilt)
}
