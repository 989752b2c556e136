package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashmirrout/loglens/core"
)

func sampleChunks() []core.Chunk {
	return []core.Chunk{
		{ChunkID: "i_chunk_0", SourceFile: "app.log", StartLine: 1, EndLine: 8, Text: "error: connection refused"},
		{ChunkID: "i_chunk_1", SourceFile: "app.log", StartLine: 15, EndLine: 22, Text: "retrying connection"},
		{ChunkID: "i_chunk_2", SourceFile: "db.log", StartLine: 3, EndLine: 9, Text: "slow query detected"},
	}
}

func TestParseResponseValidJSON(t *testing.T) {
	text := `{"answer": "The connection was refused.", "references": ["app.log: lines 1-8"]}`
	answer := ParseResponse(text, sampleChunks())

	assert.Equal(t, "The connection was refused.", answer.Answer)
	assert.Equal(t, []string{"app.log: lines 1-8"}, answer.References)
	assert.Len(t, answer.ContextChunks, 3)
	assert.False(t, answer.Fallback)
}

func TestParseResponseFencedJSON(t *testing.T) {
	text := "```json\n{\"answer\": \"fenced\", \"references\": []}\n```"
	answer := ParseResponse(text, nil)
	assert.Equal(t, "fenced", answer.Answer)

	text = "```\n{\"answer\": \"bare fence\"}\n```"
	answer = ParseResponse(text, nil)
	assert.Equal(t, "bare fence", answer.Answer)
}

func TestParseResponseMissingAnswerKey(t *testing.T) {
	// Valid JSON without "answer" falls through to the heuristic, which uses
	// the whole response.
	text := `{"summary": "not the right shape"}`
	answer := ParseResponse(text, nil)
	assert.Equal(t, text, answer.Answer)
}

func TestParseResponseHeuristic(t *testing.T) {
	t.Run("extracts answer from broken JSON", func(t *testing.T) {
		text := `Sure! Here is the result: {"answer": "it crashed at midnight", "references": ["app.log: lines 1-8", "db.log: lines 3-9"],}`
		answer := ParseResponse(text, nil)
		assert.Equal(t, "it crashed at midnight", answer.Answer)
		assert.Equal(t, []string{"app.log: lines 1-8", "db.log: lines 3-9"}, answer.References)
	})

	t.Run("plain prose becomes the answer", func(t *testing.T) {
		text := "The logs show a restart loop."
		answer := ParseResponse(text, nil)
		assert.Equal(t, text, answer.Answer)
		assert.Empty(t, answer.References)
	})
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(sampleChunks(), "why did the connection fail?")

	assert.Contains(t, prompt, "[Chunk 1] app.log (lines 1-8):")
	assert.Contains(t, prompt, "[Chunk 3] db.log (lines 3-9):")
	assert.Contains(t, prompt, "error: connection refused")
	assert.Contains(t, prompt, "why did the connection fail?")
	assert.Contains(t, prompt, `"references"`)
	require.True(t, strings.HasSuffix(prompt, "RESPONSE (JSON):"))
}
