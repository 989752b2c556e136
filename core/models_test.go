package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		id1 := IDFromContent("what failed at 10:32?")
		id2 := IDFromContent("what failed at 10:32?")
		assert.Equal(t, id1, id2)
	})

	t.Run("different content different id", func(t *testing.T) {
		id1 := IDFromContent("query a")
		id2 := IDFromContent("query b")
		assert.NotEqual(t, id1, id2)
	})
}

func TestTextHash(t *testing.T) {
	t.Run("hex sha256 of trimmed text", func(t *testing.T) {
		// sha256("hello") well-known digest
		assert.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			TextHash("hello"))
	})

	t.Run("trimming is part of the key", func(t *testing.T) {
		assert.Equal(t, TextHash("hello"), TextHash("  hello\n"))
	})
}

func TestChunkJSONShape(t *testing.T) {
	chunk := Chunk{
		ChunkID:        "iss1_chunk_0",
		IssueID:        "iss1",
		SourceFile:     "app.log",
		StartLine:      1,
		EndLine:        8,
		Text:           "line one",
		TimestampRange: &TimestampPair{"2024-01-15T10:30:45", "2024-01-15T10:31:02"},
		Metadata: ChunkMetadata{
			FilePath: "/data/issues/iss1/raw_logs/app.log",
			TextHash: TextHash("line one"),
		},
	}

	data, err := json.Marshal(chunk)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	for _, key := range []string{"chunk_id", "issue_id", "source_file", "start_line", "end_line", "text", "timestamp_range", "metadata"} {
		assert.Contains(t, raw, key)
	}

	// timestamp_range must serialize as a two-element array
	tr, ok := raw["timestamp_range"].([]any)
	require.True(t, ok)
	assert.Len(t, tr, 2)

	meta, ok := raw["metadata"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, meta, "file_path")
	assert.Contains(t, meta, "text_hash")
}

func TestChunkJSONNullTimestampRange(t *testing.T) {
	chunk := Chunk{ChunkID: "iss1_chunk_1", IssueID: "iss1"}

	data, err := json.Marshal(chunk)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"timestamp_range":null`)
}

func TestIssueMetadataRecordModel(t *testing.T) {
	meta := IssueMetadata{IssueID: "iss1", EmbeddingModel: "gemini:text-embedding-004"}

	meta.RecordModel("local:embeddinggemma")
	require.Len(t, meta.ModelsHistory, 1)
	assert.Equal(t, "local:embeddinggemma", meta.EmbeddingModel)
	assert.Equal(t, "local:embeddinggemma", meta.ModelsHistory[0].EmbeddingModel)
	assert.NotEmpty(t, meta.ModelsHistory[0].Timestamp)
}
