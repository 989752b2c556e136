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


package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rashmirrout/loglens/ai"
	"github.com/rashmirrout/loglens/core"
)

// ResilientGenerator produces structured answers with retry, backoff, and
// fallback-model switching. Generate never returns an error: total provider
// failure yields a deterministic context summary with Fallback=true.
type ResilientGenerator struct {
	registry      *ai.Registry
	fallbackModel string
	maxRetries    int
	temperature   float64
	maxTokens     int
	backoff       func(attempt int) time.Duration
	logger        *slog.Logger
}

// GeneratorOption configures a ResilientGenerator.
type GeneratorOption func(*ResilientGenerator)

// WithMaxRetries sets the attempt budget for transient errors. Default 3.
func WithMaxRetries(n int) GeneratorOption {
	return func(g *ResilientGenerator) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithTemperature sets the sampling temperature. Default 0.1.
func WithTemperature(t float64) GeneratorOption {
	return func(g *ResilientGenerator) {
		g.temperature = t
	}
}

// WithMaxTokens sets the generation token budget. Default 2048.
func WithMaxTokens(n int) GeneratorOption {
	return func(g *ResilientGenerator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithBackoff overrides the retry backoff schedule. Default is Backoff.
func WithBackoff(fn func(attempt int) time.Duration) GeneratorOption {
	return func(g *ResilientGenerator) {
		if fn != nil {
			g.backoff = fn
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) GeneratorOption {
	return func(g *ResilientGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewResilientGenerator creates a generator. fallbackModel is the model
// switched to after a permanent error on the requested model, and the
// default when no model is requested.
func NewResilientGenerator(registry *ai.Registry, fallbackModel string, opts ...GeneratorOption) *ResilientGenerator {
	g := &ResilientGenerator{
		registry:      registry,
		fallbackModel: fallbackModel,
		maxRetries:    3,
		temperature:   0.1,
		maxTokens:     2048,
		backoff:       Backoff,
		logger:        slog.Default().With("component", "generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate answers query grounded on chunks using modelID (empty means the
// fallback model). Transient errors retry with exponential backoff up to the
// attempt budget; a permanent error switches to the fallback model for one
// attempt. When everything fails the returned Answer summarizes the context
// and carries the triggering error text.
func (g *ResilientGenerator) Generate(ctx context.Context, chunks []core.Chunk, query, modelID string) core.Answer {
	prompt := BuildPrompt(chunks, query)
	if modelID == "" {
		modelID = g.fallbackModel
	}

	generator, resolvedID, err := g.registry.ResolveGenerator(ctx, modelID)
	if err != nil {
		g.logger.Error("no generation model available", "requested", modelID, "err", err)
		return FallbackAnswer(chunks, err)
	}

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		text, err := generator.Generate(ctx, prompt, g.temperature, g.maxTokens)
		if err == nil {
			answer := ParseResponse(text, chunks)
			g.logger.Info("generated answer",
				"model", resolvedID,
				"attempt", attempt+1,
				"references", len(answer.References))
			return answer
		}
		lastErr = err

		if ai.IsPermanent(err) {
			g.logger.Warn("permanent model error", "model", resolvedID, "err", err)
			if answer, ok := g.tryFallbackModel(ctx, prompt, chunks, resolvedID, &lastErr); ok {
				return answer
			}
			break
		}

		if attempt < g.maxRetries-1 {
			delay := g.backoff(attempt)
			g.logger.Warn("transient model error, retrying",
				"model", resolvedID,
				"attempt", attempt+1,
				"max_attempts", g.maxRetries,
				"delay", delay,
				"err", err)
			if waitErr := wait(ctx, delay); waitErr != nil {
				lastErr = waitErr
				break
			}
		}
	}

	g.logger.Error("generation failed on all attempts", "model", resolvedID, "err", lastErr)
	return FallbackAnswer(chunks, lastErr)
}

// tryFallbackModel makes a single attempt with the fallback model. Returns
// ok=false when the fallback is the failing model itself or also fails; in
// that case lastErr is updated with the fallback's error.
func (g *ResilientGenerator) tryFallbackModel(ctx context.Context, prompt string, chunks []core.Chunk, failedID string, lastErr *error) (core.Answer, bool) {
	if failedID == g.fallbackModel {
		return core.Answer{}, false
	}

	g.logger.Info("switching to fallback model", "fallback", g.fallbackModel)
	generator, resolvedID, err := g.registry.ResolveGenerator(ctx, g.fallbackModel)
	if err != nil {
		*lastErr = err
		return core.Answer{}, false
	}

	text, err := generator.Generate(ctx, prompt, g.temperature, g.maxTokens)
	if err != nil {
		g.logger.Warn("fallback model also failed", "model", resolvedID, "err", err)
		*lastErr = err
		return core.Answer{}, false
	}
	return ParseResponse(text, chunks), true
}

// FallbackAnswer builds the deterministic last-resort answer: the retrieved
// chunks grouped by source file with their line ranges, plus the triggering
// error text. This path must never fail.
func FallbackAnswer(chunks []core.Chunk, cause error) core.Answer {
	var (
		fileOrder []string
		ranges    = make(map[string][]string)
	)
	for _, chunk := range chunks {
		if _, seen := ranges[chunk.SourceFile]; !seen {
			fileOrder = append(fileOrder, chunk.SourceFile)
		}
		ranges[chunk.SourceFile] = append(ranges[chunk.SourceFile],
			fmt.Sprintf("lines %d-%d", chunk.StartLine, chunk.EndLine))
	}

	var summary strings.Builder
	for _, file := range fileOrder {
		fmt.Fprintf(&summary, "- %s: %s\n", file, strings.Join(ranges[file], ", "))
	}

	errText := "unknown error"
	if cause != nil {
		errText = cause.Error()
	}

	answer := fmt.Sprintf(`LLM service temporarily unavailable.

However, I found relevant log excerpts that may help answer your question:

%s
Please review the context chunks below for details.

Error: %s`, summary.String(), errText)

	references := make([]string, len(chunks))
	for i, chunk := range chunks {
		references[i] = fmt.Sprintf("%s: lines %d-%d", chunk.SourceFile, chunk.StartLine, chunk.EndLine)
	}

	return core.Answer{
		Answer:        answer,
		References:    references,
		ContextChunks: chunks,
		Fallback:      true,
	}
}
