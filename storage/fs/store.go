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


// Package fs implements storage.IssueStore on the local filesystem.
//
// Layout per issue:
//
//	<root>/issues/<issue_id>/
//	    raw_logs/            uploaded log files
//	    parsed_chunks.jsonl  one JSON chunk per line
//	    embedding_cache.json content hash -> vector, insertion ordered
//	    embeddings.bin       little-endian float32 matrix, row-major
//	    metadata.json        issue metadata
package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

const (
	rawLogsDir     = "raw_logs"
	chunksFile     = "parsed_chunks.jsonl"
	cacheFile      = "embedding_cache.json"
	vectorsFile    = "embeddings.bin"
	metadataFile   = "metadata.json"
	issuesDir      = "issues"
	dirPermissions = 0o755
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Store implements storage.IssueStore rooted at a data directory.
type Store struct {
	root   string
	logger *slog.Logger
}

var _ storage.IssueStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Store under root, creating the issues directory if
// needed.
func NewStore(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:   root,
		logger: slog.Default().With("component", "fs_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(s.issuesRoot(), dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create issues directory: %w", err)
	}
	return s, nil
}

// Root returns the data directory the store was created with.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) issuesRoot() string {
	return filepath.Join(s.root, issuesDir)
}

func (s *Store) issueDir(issueID string) string {
	return filepath.Join(s.issuesRoot(), issueID)
}

func (s *Store) issuePath(issueID, name string) string {
	return filepath.Join(s.issueDir(issueID), name)
}

// CreateIssue creates the directory structure for a new issue.
func (s *Store) CreateIssue(issueID string) error {
	dir := s.issueDir(issueID)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", storage.ErrIssueExists, issueID)
	}
	if err := os.MkdirAll(filepath.Join(dir, rawLogsDir), dirPermissions); err != nil {
		return fmt.Errorf("failed to create issue %s: %w", issueID, err)
	}
	s.logger.Info("created issue", "issue_id", issueID)
	return nil
}

// DeleteIssue removes an issue and all artifacts.
func (s *Store) DeleteIssue(issueID string) error {
	if !s.IssueExists(issueID) {
		return fmt.Errorf("%w: issue %s", storage.ErrNotFound, issueID)
	}
	if err := os.RemoveAll(s.issueDir(issueID)); err != nil {
		return fmt.Errorf("failed to delete issue %s: %w", issueID, err)
	}
	s.logger.Info("deleted issue", "issue_id", issueID)
	return nil
}

// IssueExists reports whether the issue directory exists.
func (s *Store) IssueExists(issueID string) bool {
	info, err := os.Stat(s.issueDir(issueID))
	return err == nil && info.IsDir()
}

// ListIssues returns all issue IDs, sorted.
func (s *Store) ListIssues() ([]string, error) {
	entries, err := os.ReadDir(s.issuesRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var issues []string
	for _, e := range entries {
		if e.IsDir() {
			issues = append(issues, e.Name())
		}
	}
	sort.Strings(issues)
	return issues, nil
}

// SaveRawLog stores an uploaded log file and returns its path.
func (s *Store) SaveRawLog(issueID, filename string, data io.Reader) (string, error) {
	if !s.IssueExists(issueID) {
		return "", fmt.Errorf("%w: issue %s", storage.ErrNotFound, issueID)
	}
	dir := filepath.Join(s.issueDir(issueID), rawLogsDir)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", err
	}

	path := filepath.Join(dir, SanitizeFilename(filename))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save log file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return "", fmt.Errorf("failed to save log file: %w", err)
	}
	return path, nil
}

// LogFiles lists the issue's raw log files matching the extensions, sorted.
func (s *Store) LogFiles(issueID string, extensions []string) ([]string, error) {
	dir := filepath.Join(s.issueDir(issueID), rawLogsDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range extensions {
			if ext == strings.ToLower(want) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// WriteChunks persists the chunk list as newline-delimited JSON.
func (s *Store) WriteChunks(issueID string, chunks []core.Chunk) error {
	f, err := os.Create(s.issuePath(issueID, chunksFile))
	if err != nil {
		return fmt.Errorf("failed to write chunks: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := range chunks {
		if err := enc.Encode(&chunks[i]); err != nil {
			return fmt.Errorf("failed to encode chunk %s: %w", chunks[i].ChunkID, err)
		}
	}
	return w.Flush()
}

// ReadChunks loads the persisted chunk list.
func (s *Store) ReadChunks(issueID string) ([]core.Chunk, error) {
	f, err := os.Open(s.issuePath(issueID, chunksFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: chunks for issue %s", storage.ErrNotFound, issueID)
		}
		return nil, err
	}
	defer f.Close()

	var chunks []core.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk core.Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("failed to decode chunk record: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// WriteCache persists the embedding cache as a JSON object whose keys appear
// in entry order, so insertion order survives a round trip.
func (s *Store) WriteCache(issueID string, entries []core.CacheEntry) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Hash)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		vec, err := json.Marshal(e.Vector)
		if err != nil {
			return err
		}
		buf.Write(vec)
	}
	buf.WriteByte('}')

	if err := os.WriteFile(s.issuePath(issueID, cacheFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write embedding cache: %w", err)
	}
	return nil
}

// ReadCache loads the embedding cache preserving key order. A missing or
// corrupt file yields an empty cache.
func (s *Store) ReadCache(issueID string) ([]core.CacheEntry, error) {
	data, err := os.ReadFile(s.issuePath(issueID, cacheFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	entries, err := decodeOrderedCache(data)
	if err != nil {
		s.logger.Warn("corrupt embedding cache, starting fresh",
			"issue_id", issueID,
			"error", err)
		return nil, nil
	}
	return entries, nil
}

func decodeOrderedCache(data []byte) ([]core.CacheEntry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var entries []core.CacheEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %v", keyTok)
		}
		var vec []float32
		if err := dec.Decode(&vec); err != nil {
			return nil, err
		}
		entries = append(entries, core.CacheEntry{Hash: key, Vector: vec})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}

// WriteMetadata persists the issue metadata.
func (s *Store) WriteMetadata(issueID string, meta *core.IssueMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.issuePath(issueID, metadataFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the issue metadata.
func (s *Store) ReadMetadata(issueID string) (*core.IssueMetadata, error) {
	data, err := os.ReadFile(s.issuePath(issueID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: metadata for issue %s", storage.ErrNotFound, issueID)
		}
		return nil, err
	}
	var meta core.IssueMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &meta, nil
}

// SanitizeFilename replaces characters invalid in filenames with underscores
// and strips leading/trailing dots and spaces.
func SanitizeFilename(filename string) string {
	sanitized := invalidFilenameChars.ReplaceAllString(filename, "_")
	sanitized = strings.Trim(sanitized, ". ")
	if sanitized == "" {
		sanitized = "unnamed"
	}
	return sanitized
}
