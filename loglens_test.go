package loglens

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/ai/mock"
	"github.com/rashmirrout/loglens/config"
	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage/badger"
)

const (
	testEmbedderID  = "mock:embedder"
	testGeneratorID = "mock:model"
)

func newTestAssistant(t *testing.T) (*Assistant, *mock.Generator) {
	t.Helper()

	embedder := mock.NewEmbedder()
	generator := mock.NewGenerator()
	registry := ai.NewRegistry()
	registry.RegisterEmbedder(testEmbedderID, func(ctx context.Context) (ai.Embedder, error) {
		return embedder, nil
	})
	registry.RegisterGenerator(testGeneratorID, func(ctx context.Context) (ai.Generator, error) {
		return generator, nil
	})

	sessions, err := badger.NewMemorySessionStore()
	require.NoError(t, err)

	cfg := &config.Config{
		RootDirectory:        t.TempDir(),
		ChunkSize:            800,
		Overlap:              100,
		TopK:                 5,
		EmbeddingDefault:     testEmbedderID,
		EmbeddingBatchSize:   32,
		MaxChunkCacheSize:    10000,
		EnableEmbeddingCache: true,
		LLMDefault:           testGeneratorID,
		LLMTemperature:       0.1,
		LLMMaxTokens:         2048,
		MaxRetries:           3,
		LogExtensions:        []string{".log"},
	}

	assistant, err := NewAssistant(context.Background(), cfg,
		WithRegistry(registry),
		WithSessionStore(sessions))
	require.NoError(t, err)
	t.Cleanup(func() {
		assistant.Close()
	})
	return assistant, generator
}

func seedIssue(t *testing.T, a *Assistant, issueID string) *core.IssueMetadata {
	t.Helper()
	require.NoError(t, a.CreateIssue(issueID))

	var b strings.Builder
	for i := 0; i < 24; i++ {
		fmt.Fprintf(&b, "2024-01-15T10:00:%02dZ level=error service=checkout payment declined attempt=%d\n", i%60, i)
	}
	_, err := a.AddLogFile(issueID, "app.log", strings.NewReader(b.String()))
	require.NoError(t, err)

	meta, err := a.Build(context.Background(), issueID, "", false, nil)
	require.NoError(t, err)
	return meta
}

func TestBuildDefaultsToConfiguredModel(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	meta := seedIssue(t, assistant, "PROJ-1")
	assert.Equal(t, testEmbedderID, meta.EmbeddingModel)
	assert.Greater(t, meta.Stats.NumChunks, 0)
}

func TestAskEndToEnd(t *testing.T) {
	assistant, generator := newTestAssistant(t)
	seedIssue(t, assistant, "PROJ-2")
	ctx := context.Background()

	answer, err := assistant.Ask(ctx, "PROJ-2", "why were payments declined?", "")
	require.NoError(t, err)
	assert.Equal(t, "mock answer", answer.Answer)
	assert.False(t, answer.Fallback)
	assert.Equal(t, 1, generator.CallCount())
	assert.Contains(t, generator.Prompts()[0], "payment declined")

	history, err := assistant.History(ctx, "PROJ-2", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, "why were payments declined?", history[0].Message)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, "mock answer", history[1].Message)
	assert.False(t, history[1].Fallback)
}

func TestAskUnbuiltIssue(t *testing.T) {
	assistant, generator := newTestAssistant(t)
	require.NoError(t, assistant.CreateIssue("PROJ-3"))

	_, err := assistant.Ask(context.Background(), "PROJ-3", "anything wrong?", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotBuilt)
	assert.Zero(t, generator.CallCount())
}

func TestQueryEmbedding(t *testing.T) {
	assistant, _ := newTestAssistant(t)

	vec, err := assistant.QueryEmbedding(context.Background(), "payment declined", "")
	require.NoError(t, err)
	assert.Len(t, vec, mock.DefaultDim)

	_, err = assistant.QueryEmbedding(context.Background(), "payment declined", "unknown:model")
	assert.ErrorIs(t, err, ai.ErrUnknownEmbeddingModel)
}

func TestAskRecordsGenerationModel(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	seedIssue(t, assistant, "PROJ-7")

	_, err := assistant.Ask(context.Background(), "PROJ-7", "what failed?", "")
	require.NoError(t, err)

	meta, err := assistant.Store().ReadMetadata("PROJ-7")
	require.NoError(t, err)
	assert.Equal(t, testGeneratorID, meta.LLMModelLastUsed)
}

func TestRetrieveUsesConfiguredTopK(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	seedIssue(t, assistant, "PROJ-4")

	scored, err := assistant.Retrieve(context.Background(), "PROJ-4", "payment declined", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, scored)
	assert.LessOrEqual(t, len(scored), assistant.Config().TopK)
}

func TestEvalQueries(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	seedIssue(t, assistant, "PROJ-5")

	queries := []string{
		"payment declined",
		"checkout errors",
		"what happened at 10:00",
		"service failures",
	}
	results := assistant.EvalQueries(context.Background(), "PROJ-5", queries, 3)
	require.Len(t, results, len(queries))
	for i, result := range results {
		assert.Equal(t, queries[i], result.Query)
		require.NoError(t, result.Err)
		assert.NotEmpty(t, result.Chunks)
		assert.LessOrEqual(t, len(result.Chunks), 3)
	}
}

func TestDeleteIssueClearsHistory(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	seedIssue(t, assistant, "PROJ-6")
	ctx := context.Background()

	_, err := assistant.Ask(ctx, "PROJ-6", "first question", "")
	require.NoError(t, err)

	require.NoError(t, assistant.DeleteIssue(ctx, "PROJ-6"))

	issues, err := assistant.ListIssues()
	require.NoError(t, err)
	assert.NotContains(t, issues, "PROJ-6")

	history, err := assistant.History(ctx, "PROJ-6", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestModels(t *testing.T) {
	assistant, _ := newTestAssistant(t)
	embedders, generators := assistant.Models()
	assert.Equal(t, []string{testEmbedderID}, embedders)
	assert.Equal(t, []string{testGeneratorID}, generators)
}
