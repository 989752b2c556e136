// Package ingestion builds an issue's knowledge base: it chunks the raw log
// files, embeds chunk texts through the provider registry with a
// content-addressed cache in front, and persists the chunk list, vector
// array, cache, and metadata.
//
// The vector array is reconstructed by walking the chunk list in original
// order and pulling each vector from the completed cache, so row i always
// corresponds to chunk i regardless of which subset was a cache hit.
package ingestion
