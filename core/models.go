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


package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for session records.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is a contiguous, deduplicated window of log lines with a stable
// identity and content hash. Chunks are immutable once written by a build;
// they are only replaced by a subsequent full rebuild.
type Chunk struct {
	ChunkID        string         `json:"chunk_id"`
	IssueID        string         `json:"issue_id"`
	SourceFile     string         `json:"source_file"`
	StartLine      int            `json:"start_line"`
	EndLine        int            `json:"end_line"`
	Text           string         `json:"text"`
	TimestampRange *TimestampPair `json:"timestamp_range"`
	Metadata       ChunkMetadata  `json:"metadata"`
}

// TimestampPair is the [earliest, latest] ISO-8601 timestamp range of a chunk.
// Serialized as a two-element JSON array for interoperability with the
// on-disk chunk format.
type TimestampPair [2]string

// ChunkMetadata carries provenance for a chunk.
// TextHash is the hex SHA-256 of the trimmed chunk text and doubles as the
// embedding cache key.
type ChunkMetadata struct {
	FilePath string `json:"file_path"`
	TextHash string `json:"text_hash"`
}

// Stats describes a built knowledge base.
type Stats struct {
	NumChunks    int `json:"num_chunks"`
	EmbeddingDim int `json:"embedding_dim"`
}

// ModelRecord is one entry in the embedding model history of an issue.
type ModelRecord struct {
	Timestamp      string `json:"timestamp"`
	EmbeddingModel string `json:"embedding_model"`
}

// IssueMetadata is the per-issue knowledge base metadata. It is mutated
// whenever a build completes or the embedding model changes, and read by the
// retriever to select a compatible query-embedding model.
type IssueMetadata struct {
	IssueID          string        `json:"issue_id"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
	EmbeddingModel   string        `json:"embedding_model"`
	LLMModelLastUsed string        `json:"llm_model_last_used"`
	Stats            Stats         `json:"stats"`
	ModelsHistory    []ModelRecord `json:"models_history"`
}

// Touch updates the UpdatedAt timestamp to now.
func (m *IssueMetadata) Touch() {
	m.UpdatedAt = time.Now().Format(time.RFC3339)
}

// RecordModel appends an embedding model entry to the history and sets the
// current embedding model.
func (m *IssueMetadata) RecordModel(model string) {
	m.EmbeddingModel = model
	m.ModelsHistory = append(m.ModelsHistory, ModelRecord{
		Timestamp:      time.Now().Format(time.RFC3339),
		EmbeddingModel: model,
	})
}

// CacheEntry is one persisted embedding-cache record. Entries are kept in
// insertion order so the cache can be trimmed oldest-first.
type CacheEntry struct {
	Hash   string
	Vector []float32
}

// ScoredChunk pairs a chunk with its cosine similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// Answer is the structured result of a generation call. Generation is total:
// every input combination yields an Answer, even under complete provider
// failure (Fallback is then true and the answer summarizes the context).
type Answer struct {
	Answer        string   `json:"answer"`
	References    []string `json:"references"`
	ContextChunks []Chunk  `json:"context_chunks,omitempty"`
	Fallback      bool     `json:"fallback"`
}

// Speaker roles for session history records.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in an issue's question/answer history.
type ChatMessage struct {
	Id         ID
	IssueID    string
	Role       string
	Message    string
	References []string
	Fallback   bool
	Timestamp  time.Time
}
