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


// Package openai implements the ai interfaces on OpenAI-compatible chat and
// embedding endpoints. Three provider families share this implementation:
//
//   - "local:…"       a local OpenAI-compatible server (Ollama, LocalAI, vLLM)
//   - "openrouter:…"  the OpenRouter gateway
//   - "azure:…"       an Azure OpenAI deployment
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/rashmirrout/loglens/ai"
)

// Identifier prefixes for the OpenAI-compatible families.
const (
	LocalPrefix      = "local:"
	OpenRouterPrefix = "openrouter:"
	AzurePrefix      = "azure:"
)

// DefaultLocalHost is the conventional local OpenAI-compatible endpoint.
const DefaultLocalHost = "http://localhost:11434/v1"

// OpenRouterBaseURL is the OpenRouter OpenAI-compatible endpoint.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// AzureConfig holds the credentials for an Azure OpenAI deployment.
type AzureConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
}

// Validate checks that all required Azure credentials are present.
func (c AzureConfig) Validate() error {
	if c.APIKey == "" || c.Endpoint == "" || c.Deployment == "" {
		return errors.New("azure openai credentials (api key, endpoint, deployment) required")
	}
	return nil
}

// normalizeHost ensures the host carries the /v1 suffix required by
// OpenAI-compatible APIs.
func normalizeHost(host string) string {
	if host == "" {
		return DefaultLocalHost
	}
	if !strings.HasSuffix(host, "/v1") {
		host = strings.TrimSuffix(host, "/") + "/v1"
	}
	return host
}

// Embedder implements ai.Embedder on an OpenAI-compatible embeddings API.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	dim      int
	logger   *slog.Logger
}

// NewLocalEmbedder creates an embedder against a local OpenAI-compatible
// server. Local servers typically ignore the token, so "none" is sent.
func NewLocalEmbedder(host, model string) (*Embedder, error) {
	client, err := openai.New(
		openai.WithBaseURL(normalizeHost(host)),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(strings.TrimPrefix(model, LocalPrefix)),
	)
	if err != nil {
		return nil, err
	}
	return newEmbedder(client, model)
}

func newEmbedder(client *openai.LLM, model string) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		model:    model,
		logger:   slog.Default().With("component", "openai-embedder", "model", model),
	}, nil
}

// EmbedTexts generates embeddings for the texts, preserving input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding request failed", "count", len(texts), "err", err)
		return nil, classify(e.model, err)
	}
	if len(vectors) != len(texts) {
		return nil, ai.NewTransient(e.model,
			fmt.Errorf("embedding count mismatch: got %d, expected %d", len(vectors), len(texts)))
	}
	if len(vectors) > 0 {
		e.dim = len(vectors[0])
	}
	return vectors, nil
}

// Dim returns the embedding dimension observed on the most recent call.
// OpenAI-compatible servers do not report dimensionality up front, so this
// is zero until the first successful EmbedTexts.
func (e *Embedder) Dim() int { return e.dim }

// Generator implements ai.Generator on an OpenAI-compatible chat API.
type Generator struct {
	client *openai.LLM
	model  string
	logger *slog.Logger
}

// NewLocalGenerator creates a generator against a local OpenAI-compatible
// server.
func NewLocalGenerator(host, model string) (*Generator, error) {
	client, err := openai.New(
		openai.WithBaseURL(normalizeHost(host)),
		openai.WithToken("none"),
		openai.WithModel(strings.TrimPrefix(model, LocalPrefix)),
	)
	if err != nil {
		return nil, err
	}
	return newGenerator(client, model), nil
}

// NewOpenRouterGenerator creates a generator routed through OpenRouter.
// The model identifier keeps OpenRouter's catalog name after the prefix
// (e.g. "openrouter:anthropic/claude-3-haiku").
func NewOpenRouterGenerator(apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("openrouter API key required")
	}
	client, err := openai.New(
		openai.WithBaseURL(OpenRouterBaseURL),
		openai.WithToken(apiKey),
		openai.WithModel(strings.TrimPrefix(model, OpenRouterPrefix)),
	)
	if err != nil {
		return nil, err
	}
	return newGenerator(client, model), nil
}

// NewAzureGenerator creates a generator against an Azure OpenAI deployment.
func NewAzureGenerator(cfg AzureConfig, model string) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2024-02-15-preview"
	}
	client, err := openai.New(
		openai.WithAPIType(openai.APITypeAzure),
		openai.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")),
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Deployment),
		openai.WithAPIVersion(apiVersion),
	)
	if err != nil {
		return nil, err
	}
	return newGenerator(client, model), nil
}

func newGenerator(client *openai.LLM, model string) *Generator {
	return &Generator{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "openai-generator", "model", model),
	}
}

// Generate produces a completion for the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, g.client, prompt, opts...)
	if err != nil {
		g.logger.Error("generation request failed", "err", err)
		return "", classify(g.model, err)
	}
	return out, nil
}

// statusCodeRe extracts the HTTP status from langchaingo's error messages.
// The SDK does not expose a typed API error, so the adapter recovers the
// status here; the rest of the system only ever sees *ai.Error.
var statusCodeRe = regexp.MustCompile(`status code:? (\d{3})`)

func classify(model string, err error) *ai.Error {
	msg := err.Error()
	if m := statusCodeRe.FindStringSubmatch(msg); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			if ai.KindFromStatus(code) == ai.Permanent {
				return ai.NewPermanent(model, err)
			}
			return ai.NewTransient(model, err)
		}
	}
	if strings.Contains(strings.ToLower(msg), "not found") {
		return ai.NewPermanent(model, err)
	}
	return ai.NewTransient(model, err)
}
