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


// Package gemini implements the ai interfaces on Google's Gemini API.
// It also exposes the model catalog used for dynamic generator discovery.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/rashmirrout/loglens/ai"
)

// Prefix namespaces Gemini embedding model identifiers ("gemini:…").
// Generation models use their bare catalog names ("gemini-1.5-flash").
const Prefix = "gemini:"

// Known embedding dimensions per model. Unlisted models fall back to the
// text-embedding-004 dimension.
var embeddingDims = map[string]int{
	"text-embedding-004": 768,
	"embedding-001":      768,
}

const defaultEmbeddingDim = 768

// EmbeddingModels returns the known embedding model names, without prefix.
func EmbeddingModels() []string {
	names := make([]string, 0, len(embeddingDims))
	for name := range embeddingDims {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Provider aggregates Gemini embedding and generation services over a single
// API client. It implements ai.Catalog for model discovery.
type Provider struct {
	client *genai.Client
	logger *slog.Logger
}

// NewProvider creates a Gemini provider authenticated with apiKey.
func NewProvider(ctx context.Context, apiKey string) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &Provider{
		client: client,
		logger: slog.Default().With("component", "gemini-provider"),
	}, nil
}

// Embedder returns an ai.Embedder for the given model identifier
// (with or without the "gemini:" prefix).
func (p *Provider) Embedder(model string) ai.Embedder {
	name := strings.TrimPrefix(model, Prefix)
	dim, ok := embeddingDims[name]
	if !ok {
		dim = defaultEmbeddingDim
	}
	return &Embedder{
		client: p.client,
		model:  name,
		dim:    dim,
		logger: p.logger.With("model", name),
	}
}

// Generator returns an ai.Generator for the given catalog model name.
func (p *Provider) Generator(model string) ai.Generator {
	return &Generator{
		client: p.client,
		model:  model,
		logger: p.logger.With("model", model),
	}
}

// ListGenerationModels queries the Gemini catalog and returns every model
// supporting generateContent, by bare catalog name.
func (p *Provider) ListGenerationModels(ctx context.Context) ([]string, error) {
	var models []string
	it := p.client.ListModels(ctx)
	for {
		info, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}
		if !slices.Contains(info.SupportedGenerationMethods, "generateContent") {
			continue
		}
		name := strings.TrimPrefix(info.Name, "models/")
		if strings.HasPrefix(name, "gemini") {
			models = append(models, name)
		}
	}
	return models, nil
}

// Close releases the underlying API client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// Embedder implements ai.Embedder on the Gemini embeddings API.
type Embedder struct {
	client *genai.Client
	model  string
	dim    int
	logger *slog.Logger
}

// EmbedTexts embeds texts as a single batch request, preserving input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	em := e.client.EmbeddingModel(e.model)

	batch := em.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		e.logger.Error("embedding request failed", "count", len(texts), "err", err)
		return nil, classify(e.model, err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, ai.NewTransient(e.model,
			fmt.Errorf("embedding count mismatch: got %d, expected %d", len(res.Embeddings), len(texts)))
	}

	out := make([][]float32, len(res.Embeddings))
	for i, emb := range res.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

// Dim returns the embedding dimension for this model.
func (e *Embedder) Dim() int { return e.dim }

// Generator implements ai.Generator on the Gemini generation API.
type Generator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// Generate produces a completion for the prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(float32(temperature))
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		g.logger.Error("generation request failed", "err", err)
		return "", classify(g.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ai.NewTransient(g.model, errors.New("empty response"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String(), nil
}

// classify converts an SDK error to a structured *ai.Error using the HTTP
// status carried by googleapi errors. Requests for models the API does not
// know return 404, which is the permanent "model unavailable" signal.
func classify(model string, err error) *ai.Error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && ai.KindFromStatus(apiErr.Code) == ai.Permanent {
		return ai.NewPermanent(model, err)
	}
	return ai.NewTransient(model, err)
}
