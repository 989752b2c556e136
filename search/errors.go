package search

import "errors"

var (
	// ErrDimensionMismatch indicates the query vector width does not match
	// the stored vector array.
	ErrDimensionMismatch = errors.New("query dimension does not match stored vectors")

	// ErrVectorChunkMismatch indicates the vector array row count differs
	// from the chunk list length. The array carries no identifiers, so a
	// count mismatch means the positional correspondence is broken.
	ErrVectorChunkMismatch = errors.New("vector row count does not match chunk count")
)
