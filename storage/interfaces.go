package storage

import (
	"context"
	"io"

	"github.com/rashmirrout/loglens/core"
)

// IssueStore persists the per-issue knowledge base: raw log files, parsed
// chunks, the embedding cache, the vector array, and metadata.
// Implementations must be safe for concurrent use across distinct issues;
// callers serialize writes to a single issue.
type IssueStore interface {
	// CreateIssue creates the directory structure for a new issue.
	// Returns ErrIssueExists if the issue already exists.
	CreateIssue(issueID string) error

	// DeleteIssue removes an issue and all of its artifacts.
	DeleteIssue(issueID string) error

	// IssueExists reports whether the issue has been created.
	IssueExists(issueID string) bool

	// ListIssues returns the IDs of all known issues.
	ListIssues() ([]string, error)

	// SaveRawLog stores an uploaded log file under the issue's raw_logs
	// directory and returns the stored path. The filename is sanitized.
	SaveRawLog(issueID, filename string, data io.Reader) (string, error)

	// LogFiles lists the issue's raw log files matching the given
	// extensions, sorted by name.
	LogFiles(issueID string, extensions []string) ([]string, error)

	// WriteChunks persists the parsed chunk list, replacing any previous one.
	WriteChunks(issueID string, chunks []core.Chunk) error

	// ReadChunks loads the persisted chunk list.
	// Returns ErrNotFound if no chunks have been written.
	ReadChunks(issueID string) ([]core.Chunk, error)

	// WriteCache persists the embedding cache, preserving entry order.
	WriteCache(issueID string, entries []core.CacheEntry) error

	// ReadCache loads the embedding cache in persisted order. A missing or
	// corrupt cache file yields an empty cache, never an error.
	ReadCache(issueID string) ([]core.CacheEntry, error)

	// WriteVectors persists the vector array, row order matching the chunk
	// list.
	WriteVectors(issueID string, vectors [][]float32) error

	// ReadVectors loads the vector array with the given row width.
	// Returns core.ErrNotBuilt if no array has been persisted.
	ReadVectors(issueID string, dim int) ([][]float32, error)

	// HasVectors reports whether a vector array has been persisted.
	HasVectors(issueID string) bool

	// WriteMetadata persists the issue metadata.
	WriteMetadata(issueID string, meta *core.IssueMetadata) error

	// ReadMetadata loads the issue metadata.
	// Returns ErrNotFound if none has been written.
	ReadMetadata(issueID string) (*core.IssueMetadata, error)
}

// SessionStore persists per-issue question/answer history.
type SessionStore interface {
	// AppendMessages appends messages to an issue's history.
	// IDs and timestamps are assigned by the store when unset.
	AppendMessages(ctx context.Context, messages ...*core.ChatMessage) error

	// History returns up to limit messages for an issue, oldest first.
	// limit <= 0 returns the full history.
	History(ctx context.Context, issueID string, limit int) ([]*core.ChatMessage, error)

	// ClearHistory removes all messages for an issue.
	ClearHistory(ctx context.Context, issueID string) error

	// Close releases the underlying store.
	Close() error
}
