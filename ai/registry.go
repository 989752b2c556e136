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


package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Registry maps model identifier strings to provider factories. It is an
// explicit object owned by the application context and passed to the build
// pipeline and generator; there is no process-global registration.
//
// Registration order matters: an unknown generation identifier resolves to
// the first-registered one. That fallback is deterministic but registration-
// order dependent, which makes it fragile; it keeps the system answering
// rather than guaranteeing any particular substitute model.
type Registry struct {
	mu             sync.Mutex
	embedders      map[string]EmbedderFactory
	embedderOrder  []string
	generators     map[string]GeneratorFactory
	generatorOrder []string
	discovered     bool
	logger         *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		embedders:  make(map[string]EmbedderFactory),
		generators: make(map[string]GeneratorFactory),
		logger:     slog.Default().With("component", "model-registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterEmbedder registers an embedding model factory under id.
// Re-registering an id replaces its factory without changing its position.
func (r *Registry) RegisterEmbedder(id string, factory EmbedderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.embedders[id]; !exists {
		r.embedderOrder = append(r.embedderOrder, id)
	}
	r.embedders[id] = factory
}

// RegisterGenerator registers a generation model factory under id.
// Re-registering an id replaces its factory without changing its position.
func (r *Registry) RegisterGenerator(id string, factory GeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.generators[id]; !exists {
		r.generatorOrder = append(r.generatorOrder, id)
	}
	r.generators[id] = factory
}

// ResolveEmbedder constructs the embedder registered under id.
// Unknown identifiers are an error, never a fallback: queries must embed
// with the exact model that built the stored vectors.
func (r *Registry) ResolveEmbedder(ctx context.Context, id string) (Embedder, error) {
	r.mu.Lock()
	factory, ok := r.embedders[id]
	available := len(r.embedderOrder)
	r.mu.Unlock()

	if !ok {
		if available == 0 {
			return nil, ErrNoModels
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmbeddingModel, id)
	}
	return factory(ctx)
}

// ResolveGenerator constructs the generator registered under id. An unknown
// identifier falls back to the first-registered generator so the system
// stays usable when a requested model disappears from a catalog.
func (r *Registry) ResolveGenerator(ctx context.Context, id string) (Generator, string, error) {
	r.mu.Lock()
	factory, ok := r.generators[id]
	if !ok {
		if len(r.generatorOrder) == 0 {
			r.mu.Unlock()
			return nil, "", ErrNoModels
		}
		fallback := r.generatorOrder[0]
		r.logger.Warn("model not registered, using first registered model",
			"requested", id, "fallback", fallback)
		id = fallback
		factory = r.generators[id]
	}
	r.mu.Unlock()

	gen, err := factory(ctx)
	if err != nil {
		return nil, "", err
	}
	return gen, id, nil
}

// HasGenerator reports whether id is registered for generation.
func (r *Registry) HasGenerator(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.generators[id]
	return ok
}

// EmbedderIDs returns the registered embedding model identifiers in
// registration order.
func (r *Registry) EmbedderIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.embedderOrder))
	copy(ids, r.embedderOrder)
	return ids
}

// GeneratorIDs returns the registered generation model identifiers in
// registration order.
func (r *Registry) GeneratorIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.generatorOrder))
	copy(ids, r.generatorOrder)
	return ids
}

// Discover queries a provider catalog and registers every generation-capable
// model it reports, constructing each through build. Discovery runs at most
// once per registry; subsequent calls are no-ops. A catalog failure falls
// back to registering fallbackID alone so the system remains usable offline.
func (r *Registry) Discover(ctx context.Context, catalog Catalog, fallbackID string, build func(id string) GeneratorFactory) error {
	r.mu.Lock()
	if r.discovered {
		r.mu.Unlock()
		return nil
	}
	r.discovered = true
	r.mu.Unlock()

	models, err := catalog.ListGenerationModels(ctx)
	if err != nil {
		r.logger.Warn("model discovery failed, registering fallback only",
			"fallback", fallbackID, "err", err)
		r.RegisterGenerator(fallbackID, build(fallbackID))
		return err
	}

	for _, id := range models {
		r.RegisterGenerator(id, build(id))
	}
	r.logger.Info("discovered generation models", "count", len(models))
	return nil
}
