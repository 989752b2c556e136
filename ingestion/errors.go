package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when an issue store is not provided.
	ErrStoreRequired = errors.New("issue store required")

	// ErrRegistryRequired is returned when a provider registry is not provided.
	ErrRegistryRequired = errors.New("provider registry required")

	// ErrChunkerRequired is returned when a chunker is not provided.
	ErrChunkerRequired = errors.New("chunker required")

	// ErrVectorMissing indicates a chunk had no cached vector after all
	// batches completed. This is an internal consistency failure.
	ErrVectorMissing = errors.New("vector missing from cache after embedding")
)
