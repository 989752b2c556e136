package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts; every row has length Dim().
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dim returns the fixed dimension of vectors produced by this embedder.
	Dim() int
}

// Generator produces free-form text from a prompt.
// Implementations must be thread-safe for concurrent use.
type Generator interface {
	// Generate returns the model's text completion for the prompt.
	// Failures are reported as *Error so callers can distinguish transient
	// conditions from permanently unavailable models.
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// EmbedderFactory constructs an Embedder for a registered model identifier.
// Factories close over whatever credentials their provider family needs.
type EmbedderFactory func(ctx context.Context) (Embedder, error)

// GeneratorFactory constructs a Generator for a registered model identifier.
type GeneratorFactory func(ctx context.Context) (Generator, error)

// Catalog lists the generation-capable models of a cloud provider.
// Used by Registry.Discover for dynamic model registration.
type Catalog interface {
	ListGenerationModels(ctx context.Context) ([]string, error)
}
