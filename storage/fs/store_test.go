package fs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestIssueLifecycle(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.CreateIssue("issue-1"))
	assert.True(t, store.IssueExists("issue-1"))

	err := store.CreateIssue("issue-1")
	assert.ErrorIs(t, err, storage.ErrIssueExists)

	require.NoError(t, store.CreateIssue("issue-2"))
	issues, err := store.ListIssues()
	require.NoError(t, err)
	assert.Equal(t, []string{"issue-1", "issue-2"}, issues)

	require.NoError(t, store.DeleteIssue("issue-1"))
	assert.False(t, store.IssueExists("issue-1"))

	err = store.DeleteIssue("issue-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSaveRawLogAndListing(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	path, err := store.SaveRawLog("issue-1", "app.log", strings.NewReader("line one\n"))
	require.NoError(t, err)
	assert.FileExists(t, path)

	_, err = store.SaveRawLog("issue-1", "notes.md", strings.NewReader("ignored"))
	require.NoError(t, err)

	files, err := store.LogFiles("issue-1", []string{".log", ".txt", ".jsonl"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "app.log", filepath.Base(files[0]))
}

func TestSaveRawLogSanitizesFilename(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	path, err := store.SaveRawLog("issue-1", "../weird:name?.log", strings.NewReader("x"))
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.NotContains(t, base, "/")
	assert.NotContains(t, base, ":")
	assert.NotContains(t, base, "?")
}

func TestChunksRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	ts := core.TimestampPair{"2024-01-15T10:00:00", "2024-01-15T10:05:00"}
	chunks := []core.Chunk{
		{
			ChunkID:        "issue-1_chunk_0",
			IssueID:        "issue-1",
			SourceFile:     "app.log",
			StartLine:      1,
			EndLine:        8,
			Text:           "first window",
			TimestampRange: &ts,
			Metadata:       core.ChunkMetadata{FilePath: "/tmp/app.log", TextHash: core.TextHash("first window")},
		},
		{
			ChunkID:    "issue-1_chunk_1",
			IssueID:    "issue-1",
			SourceFile: "app.log",
			StartLine:  8,
			EndLine:    15,
			Text:       "second window",
			Metadata:   core.ChunkMetadata{FilePath: "/tmp/app.log", TextHash: core.TextHash("second window")},
		},
	}

	require.NoError(t, store.WriteChunks("issue-1", chunks))
	got, err := store.ReadChunks("issue-1")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestReadChunksMissing(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	_, err := store.ReadChunks("issue-1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCachePreservesOrder(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	entries := []core.CacheEntry{
		{Hash: "cccc", Vector: []float32{0.3, 0.4}},
		{Hash: "aaaa", Vector: []float32{0.1, 0.2}},
		{Hash: "bbbb", Vector: []float32{0.5, 0.6}},
	}
	require.NoError(t, store.WriteCache("issue-1", entries))

	got, err := store.ReadCache("issue-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "cccc", got[0].Hash)
	assert.Equal(t, "aaaa", got[1].Hash)
	assert.Equal(t, "bbbb", got[2].Hash)
	assert.InDeltaSlice(t, []float32{0.1, 0.2}, got[1].Vector, 1e-6)
}

func TestReadCacheMissingAndCorrupt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	got, err := store.ReadCache("issue-1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, os.WriteFile(store.issuePath("issue-1", cacheFile), []byte("{not json"), 0o644))
	got, err = store.ReadCache("issue-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVectorsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	vectors := [][]float32{
		{0.1, 0.2, 0.3},
		{-1.5, 0.0, 2.25},
	}
	require.NoError(t, store.WriteVectors("issue-1", vectors))
	assert.True(t, store.HasVectors("issue-1"))

	got, err := store.ReadVectors("issue-1", 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDeltaSlice(t, vectors[0], got[0], 1e-6)
	assert.InDeltaSlice(t, vectors[1], got[1], 1e-6)
}

func TestReadVectorsNotBuilt(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	assert.False(t, store.HasVectors("issue-1"))
	_, err := store.ReadVectors("issue-1", 3)
	assert.ErrorIs(t, err, core.ErrNotBuilt)
}

func TestReadVectorsBadWidth(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))
	require.NoError(t, store.WriteVectors("issue-1", [][]float32{{1, 2, 3}}))

	_, err := store.ReadVectors("issue-1", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrTruncatedData))
}

func TestMetadataRoundTrip(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.CreateIssue("issue-1"))

	meta := &core.IssueMetadata{
		IssueID:        "issue-1",
		CreatedAt:      "2026-03-01T10:00:00Z",
		EmbeddingModel: "gemini:text-embedding-004",
		Stats:          core.Stats{NumChunks: 12, EmbeddingDim: 768},
	}
	meta.RecordModel("gemini:text-embedding-004")
	require.NoError(t, store.WriteMetadata("issue-1", meta))

	got, err := store.ReadMetadata("issue-1")
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	_, err = store.ReadMetadata("issue-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c.log", SanitizeFilename(`a/b:c.log`))
	assert.Equal(t, "unnamed", SanitizeFilename("  . "))
	assert.Equal(t, "plain.log", SanitizeFilename("plain.log"))
}
