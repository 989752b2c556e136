// Copyright 2026 Rashmi Rout
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package loglens assembles the log analysis engine: filesystem issue
// storage, badger-backed session history, the AI provider registry, and the
// build, retrieve, and generate operations on top of them.
package loglens

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/ai/gemini"
	"github.com/rashmirrout/loglens/ai/openai"
	"github.com/rashmirrout/loglens/chunking"
	"github.com/rashmirrout/loglens/config"
	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/ingestion"
	"github.com/rashmirrout/loglens/rag"
	"github.com/rashmirrout/loglens/search"
	"github.com/rashmirrout/loglens/storage"
	"github.com/rashmirrout/loglens/storage/badger"
	"github.com/rashmirrout/loglens/storage/fs"
)

// noContextAnswer is returned by Ask when retrieval yields no context. No
// provider call is made in that case.
const noContextAnswer = "No relevant log data found for this query."

// Assistant is the top-level entry point. It owns the issue store, the
// session store, and the provider registry, and exposes the build, search,
// ask, and history operations over them.
//
// Builds for the same issue are serialized; everything else is safe for
// concurrent use.
type Assistant struct {
	cfg       *config.Config
	store     storage.IssueStore
	sessions  storage.SessionStore
	registry  *ai.Registry
	pipeline  *ingestion.Pipeline
	retriever *search.Retriever
	generator *rag.ResilientGenerator
	gemini    *gemini.Provider
	pool      *ants.Pool
	logger    *slog.Logger

	buildMu sync.Mutex
	builds  map[string]*sync.Mutex
}

// AssistantOption configures an Assistant.
type AssistantOption func(*assistantOptions)

type assistantOptions struct {
	sessions storage.SessionStore
	registry *ai.Registry
	logger   *slog.Logger
}

// WithSessionStore overrides the default badger session store.
func WithSessionStore(sessions storage.SessionStore) AssistantOption {
	return func(o *assistantOptions) {
		o.sessions = sessions
	}
}

// WithRegistry supplies a pre-populated provider registry, skipping
// credential-based provider wiring.
func WithRegistry(registry *ai.Registry) AssistantOption {
	return func(o *assistantOptions) {
		o.registry = registry
	}
}

// WithLogger sets the logger used by the Assistant and its components.
func WithLogger(logger *slog.Logger) AssistantOption {
	return func(o *assistantOptions) {
		o.logger = logger
	}
}

// NewAssistant wires an Assistant from the given configuration. Providers
// are registered from whatever credentials the configuration carries;
// generation model discovery runs against the Gemini catalog when a key is
// present.
func NewAssistant(ctx context.Context, cfg *config.Config, opts ...AssistantOption) (*Assistant, error) {
	options := &assistantOptions{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger.With("component", "assistant")

	store, err := fs.NewStore(cfg.RootDirectory, fs.WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	sessions := options.sessions
	if sessions == nil {
		sessions, err = badger.NewSessionStore(filepath.Join(cfg.RootDirectory, "sessions"))
		if err != nil {
			return nil, err
		}
	}

	registry := options.registry
	var geminiProvider *gemini.Provider
	if registry == nil {
		registry = ai.NewRegistry(ai.WithLogger(options.logger))
		geminiProvider, err = registerProviders(ctx, registry, cfg)
		if err != nil {
			if geminiProvider != nil {
				geminiProvider.Close()
			}
			sessions.Close()
			return nil, err
		}
	}

	chunker := chunking.NewChunker(cfg.ChunkSize, cfg.Overlap,
		chunking.WithLogger(options.logger))
	pipeline, err := ingestion.NewPipeline(store, registry, chunker,
		ingestion.WithBatchSize(cfg.EmbeddingBatchSize),
		ingestion.WithCacheLimit(cfg.MaxChunkCacheSize),
		ingestion.WithCacheEnabled(cfg.EnableEmbeddingCache),
		ingestion.WithLogExtensions(cfg.LogExtensions),
		ingestion.WithLogger(options.logger))
	if err != nil {
		if geminiProvider != nil {
			geminiProvider.Close()
		}
		sessions.Close()
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		if geminiProvider != nil {
			geminiProvider.Close()
		}
		sessions.Close()
		return nil, err
	}

	return &Assistant{
		cfg:       cfg,
		store:     store,
		sessions:  sessions,
		registry:  registry,
		pipeline:  pipeline,
		retriever: search.NewRetriever(store, registry, search.WithLogger(options.logger)),
		generator: rag.NewResilientGenerator(registry, cfg.LLMDefault,
			rag.WithMaxRetries(cfg.MaxRetries),
			rag.WithTemperature(cfg.LLMTemperature),
			rag.WithMaxTokens(cfg.LLMMaxTokens),
			rag.WithLogger(options.logger)),
		gemini: geminiProvider,
		pool:   pool,
		logger: logger,
		builds: make(map[string]*sync.Mutex),
	}, nil
}

// registerProviders wires embedding and generation factories into the
// registry from the configured credentials. Factories are lazy: no network
// call happens until a model is resolved, except Gemini catalog discovery.
func registerProviders(ctx context.Context, registry *ai.Registry, cfg *config.Config) (*gemini.Provider, error) {
	var provider *gemini.Provider

	if cfg.GeminiAPIKey != "" {
		p, err := gemini.NewProvider(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		provider = p
		for _, model := range gemini.EmbeddingModels() {
			registry.RegisterEmbedder(gemini.Prefix+model, func(ctx context.Context) (ai.Embedder, error) {
				return p.Embedder(model), nil
			})
		}
		// A catalog failure registers the default model alone, so the
		// system stays usable offline.
		_ = registry.Discover(ctx, p, cfg.LLMDefault, func(id string) ai.GeneratorFactory {
			return func(ctx context.Context) (ai.Generator, error) {
				return p.Generator(id), nil
			}
		})
	}

	if model, ok := strings.CutPrefix(cfg.EmbeddingDefault, openai.LocalPrefix); ok {
		host := cfg.LocalEmbeddingHost
		registry.RegisterEmbedder(cfg.EmbeddingDefault, func(ctx context.Context) (ai.Embedder, error) {
			return openai.NewLocalEmbedder(host, model)
		})
	}

	if model, ok := strings.CutPrefix(cfg.LLMDefault, openai.LocalPrefix); ok {
		host := cfg.LocalEmbeddingHost
		registry.RegisterGenerator(cfg.LLMDefault, func(ctx context.Context) (ai.Generator, error) {
			return openai.NewLocalGenerator(host, model)
		})
	}

	if model, ok := strings.CutPrefix(cfg.LLMDefault, openai.OpenRouterPrefix); ok {
		if cfg.OpenRouterAPIKey == "" {
			return provider, fmt.Errorf("%w: model %s requires OPENROUTER_API_KEY",
				core.ErrInvalidConfiguration, cfg.LLMDefault)
		}
		key := cfg.OpenRouterAPIKey
		registry.RegisterGenerator(cfg.LLMDefault, func(ctx context.Context) (ai.Generator, error) {
			return openai.NewOpenRouterGenerator(key, model)
		})
	}

	if cfg.Azure() {
		azure := openai.AzureConfig{
			APIKey:     cfg.AzureOpenAIKey,
			Endpoint:   cfg.AzureOpenAIEndpoint,
			Deployment: cfg.AzureOpenAIDeploy,
			APIVersion: cfg.AzureOpenAIVersion,
		}
		registry.RegisterGenerator(openai.AzurePrefix+azure.Deployment, func(ctx context.Context) (ai.Generator, error) {
			return openai.NewAzureGenerator(azure, azure.Deployment)
		})
	}

	return provider, nil
}

// Config returns the configuration the Assistant was built with.
func (a *Assistant) Config() *config.Config {
	return a.cfg
}

// Store returns the underlying issue store.
func (a *Assistant) Store() storage.IssueStore {
	return a.store
}

// Sessions returns the underlying session store.
func (a *Assistant) Sessions() storage.SessionStore {
	return a.sessions
}

// Models reports the registered embedding and generation model identifiers.
func (a *Assistant) Models() (embedders, generators []string) {
	return a.registry.EmbedderIDs(), a.registry.GeneratorIDs()
}

// CreateIssue creates an empty issue.
func (a *Assistant) CreateIssue(issueID string) error {
	return a.store.CreateIssue(issueID)
}

// DeleteIssue removes an issue, its artifacts, and its session history.
func (a *Assistant) DeleteIssue(ctx context.Context, issueID string) error {
	if err := a.store.DeleteIssue(issueID); err != nil {
		return err
	}
	return a.sessions.ClearHistory(ctx, issueID)
}

// ListIssues returns the IDs of all known issues.
func (a *Assistant) ListIssues() ([]string, error) {
	return a.store.ListIssues()
}

// AddLogFile stores an uploaded log file under the issue and returns the
// stored path.
func (a *Assistant) AddLogFile(issueID, filename string, data io.Reader) (string, error) {
	return a.store.SaveRawLog(issueID, filename, data)
}

func (a *Assistant) issueLock(issueID string) *sync.Mutex {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()
	mu, ok := a.builds[issueID]
	if !ok {
		mu = &sync.Mutex{}
		a.builds[issueID] = mu
	}
	return mu
}

// Build chunks and embeds the issue's log files. An empty modelID keeps the
// model the issue was last built with, or the configured default for a fresh
// issue. Concurrent builds for the same issue are serialized.
func (a *Assistant) Build(ctx context.Context, issueID, modelID string, force bool, progress ingestion.ProgressFunc) (*core.IssueMetadata, error) {
	mu := a.issueLock(issueID)
	mu.Lock()
	defer mu.Unlock()

	if modelID == "" {
		meta, err := a.store.ReadMetadata(issueID)
		if err != nil || meta.EmbeddingModel == "" {
			modelID = a.cfg.EmbeddingDefault
		}
	}
	return a.pipeline.Build(ctx, issueID, modelID, force, progress)
}

// QueryEmbedding embeds a single query text. An empty modelID uses the
// configured default embedding model. Callers retrieving against a built
// issue should pass the model recorded in that issue's metadata.
func (a *Assistant) QueryEmbedding(ctx context.Context, text, modelID string) ([]float32, error) {
	if modelID == "" {
		modelID = a.cfg.EmbeddingDefault
	}
	return a.retriever.QueryEmbedding(ctx, text, modelID)
}

// Retrieve returns the topK chunks most similar to the query. topK <= 0
// uses the configured default.
func (a *Assistant) Retrieve(ctx context.Context, issueID, query string, topK int) ([]core.ScoredChunk, error) {
	if topK <= 0 {
		topK = a.cfg.TopK
	}
	return a.retriever.Retrieve(ctx, issueID, query, topK)
}

// Generate answers the query from the given context chunks. An empty
// modelID uses the configured default. Generation never fails: provider
// errors degrade to a context-summary answer with Fallback set.
func (a *Assistant) Generate(ctx context.Context, chunks []core.Chunk, query, modelID string) core.Answer {
	if modelID == "" {
		modelID = a.cfg.LLMDefault
	}
	return a.generator.Generate(ctx, chunks, query, modelID)
}

// Ask retrieves context for the query, generates an answer, and records
// both sides of the exchange in the issue's session history. An empty
// retrieval yields a canned answer without calling any provider.
func (a *Assistant) Ask(ctx context.Context, issueID, query, modelID string) (core.Answer, error) {
	scored, err := a.Retrieve(ctx, issueID, query, 0)
	if err != nil && !errors.Is(err, core.ErrEmptyCorpus) {
		return core.Answer{}, err
	}

	var answer core.Answer
	if len(scored) == 0 {
		answer = core.Answer{
			Answer:     noContextAnswer,
			References: []string{},
		}
	} else {
		chunks := make([]core.Chunk, len(scored))
		for i, sc := range scored {
			chunks[i] = sc.Chunk
		}
		answer = a.Generate(ctx, chunks, query, modelID)
		a.recordLLMModel(issueID, modelID)
	}

	// History is best effort: a session write failure never loses the answer.
	if err := a.sessions.AppendMessages(ctx,
		&core.ChatMessage{IssueID: issueID, Role: core.RoleUser, Message: query},
		&core.ChatMessage{
			IssueID:    issueID,
			Role:       core.RoleAssistant,
			Message:    answer.Answer,
			References: answer.References,
			Fallback:   answer.Fallback,
		},
	); err != nil {
		a.logger.Warn("failed to record session history",
			"issue_id", issueID,
			"err", err)
	}
	return answer, nil
}

// recordLLMModel stores the generation model on the issue metadata.
// Best effort: metadata write failures are logged, never surfaced.
func (a *Assistant) recordLLMModel(issueID, modelID string) {
	if modelID == "" {
		modelID = a.cfg.LLMDefault
	}
	meta, err := a.store.ReadMetadata(issueID)
	if err != nil || meta.LLMModelLastUsed == modelID {
		return
	}
	meta.LLMModelLastUsed = modelID
	meta.Touch()
	if err := a.store.WriteMetadata(issueID, meta); err != nil {
		a.logger.Warn("failed to record generation model",
			"issue_id", issueID,
			"err", err)
	}
}

// History returns up to limit session messages for the issue, oldest first.
// limit <= 0 returns the full history.
func (a *Assistant) History(ctx context.Context, issueID string, limit int) ([]*core.ChatMessage, error) {
	return a.sessions.History(ctx, issueID, limit)
}

// ClearHistory removes the issue's session history.
func (a *Assistant) ClearHistory(ctx context.Context, issueID string) error {
	return a.sessions.ClearHistory(ctx, issueID)
}

// EvalResult pairs an evaluation query with its retrieved context.
type EvalResult struct {
	Query  string
	Chunks []core.ScoredChunk
	Err    error
}

// EvalQueries runs read-only retrievals for a set of queries concurrently
// over the worker pool and returns results in query order.
func (a *Assistant) EvalQueries(ctx context.Context, issueID string, queries []string, topK int) []EvalResult {
	results := make([]EvalResult, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		if err := a.pool.Submit(func() {
			defer wg.Done()
			chunks, err := a.Retrieve(ctx, issueID, query, topK)
			results[i] = EvalResult{Query: query, Chunks: chunks, Err: err}
		}); err != nil {
			results[i] = EvalResult{Query: query, Err: err}
			wg.Done()
		}
	}
	wg.Wait()
	return results
}

// Close releases the worker pool, the provider client, and the session
// store.
func (a *Assistant) Close() error {
	a.pool.Release()

	if a.gemini != nil {
		if err := a.gemini.Close(); err != nil {
			a.logger.Error("error closing gemini provider", "err", err)
		}
	}

	if err := a.sessions.Close(); err != nil {
		a.logger.Error("error closing session store", "err", err)
		return err
	}
	return nil
}
