// Package mock provides deterministic test doubles for the ai interfaces.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// DefaultDim is the vector dimension used by the default mock behavior.
const DefaultDim = 384

// Embedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type Embedder struct {
	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	callCount int
	seen      [][]string
}

// NewEmbedder creates a mock embedder with default deterministic behavior.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// EmbedTexts generates deterministic unit vectors derived from each text's hash.
func (m *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	batch := make([]string, len(texts))
	copy(batch, texts)
	m.seen = append(m.seen, batch)
	m.mu.Unlock()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = DeterministicVector(text, DefaultDim)
	}
	return out, nil
}

// Dim returns the mock vector dimension.
func (m *Embedder) Dim() int { return DefaultDim }

// CallCount returns the number of EmbedTexts calls.
func (m *Embedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Batches returns a copy of every batch of texts passed to EmbedTexts.
func (m *Embedder) Batches() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.seen))
	copy(out, m.seen)
	return out
}

// Generator is a test double for ai.Generator.
type Generator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, Generate echoes a fixed JSON answer.
	GenerateFunc func(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)

	mu        sync.Mutex
	callCount int
	prompts   []string
}

// NewGenerator creates a mock generator with default behavior.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a canned JSON answer unless GenerateFunc is set.
func (m *Generator) Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt, temperature, maxTokens)
	}
	return `{"answer": "mock answer", "references": []}`, nil
}

// CallCount returns the number of Generate calls.
func (m *Generator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns a copy of every prompt passed to Generate.
func (m *Generator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// DeterministicVector generates a reproducible unit vector from text.
// Identical text always produces an identical vector, so cache and
// order-preservation tests can assert exact matches.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		// xorshift-style mixing keeps components spread without math/rand state
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
