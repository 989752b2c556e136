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


package chunking

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rashmirrout/loglens/core"
)

// avgLineLength converts the character budgets (chunk_size, overlap) into
// line counts. An approximation: logs with very long or very short lines
// will land above or below the nominal character budget.
const avgLineLength = 100

// Window is a contiguous run of lines with 1-indexed boundaries.
type Window struct {
	Lines     []string
	StartLine int
	EndLine   int
}

// Chunker splits log files into overlapping line windows.
type Chunker struct {
	chunkSize int
	overlap   int
	logger    *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Chunker) {
		c.logger = logger
	}
}

// NewChunker creates a Chunker with the given character budgets.
func NewChunker(chunkSize, overlap int, opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		logger:    slog.Default().With("component", "chunker"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LinesPerChunk returns the window size in lines derived from the character
// budget, never less than one.
func (c *Chunker) LinesPerChunk() int {
	n := c.chunkSize / avgLineLength
	if n < 1 {
		n = 1
	}
	return n
}

// OverlapLines returns the overlap in lines derived from the character budget.
func (c *Chunker) OverlapLines() int {
	n := c.overlap / avgLineLength
	if n < 0 {
		n = 0
	}
	return n
}

// ChunkFiles chunks every file in order and assigns sequential chunk IDs
// across the whole issue. Unreadable files contribute zero chunks; partial
// results from the remaining files still succeed.
func (c *Chunker) ChunkFiles(issueID string, paths []string) []core.Chunk {
	var all []core.Chunk
	for _, path := range paths {
		chunks := c.ChunkFile(issueID, path, len(all))
		all = append(all, chunks...)
	}
	c.logger.Info("chunked issue files",
		"issue_id", issueID,
		"files", len(paths),
		"chunks", len(all))
	return all
}

// ChunkFile chunks a single log file. startIndex is the numeric suffix of
// the first chunk ID produced, so IDs stay sequential across files.
func (c *Chunker) ChunkFile(issueID, path string, startIndex int) []core.Chunk {
	lines, err := readLines(path)
	if err != nil {
		c.logger.Warn("failed to read log file, skipping",
			"path", path,
			"error", err)
		return nil
	}

	unique := DeduplicateLines(lines)
	windows := WindowLines(unique, c.LinesPerChunk(), c.OverlapLines())

	chunks := make([]core.Chunk, 0, len(windows))
	for _, w := range windows {
		text := strings.TrimSpace(strings.Join(w.Lines, "\n"))
		if text == "" {
			continue
		}

		// Number kept chunks, not windows: a discarded window must not
		// leave a gap that a later file's IDs would collide into.
		chunk := core.Chunk{
			ChunkID:    fmt.Sprintf("%s_chunk_%d", issueID, startIndex+len(chunks)),
			IssueID:    issueID,
			SourceFile: filepath.Base(path),
			StartLine:  w.StartLine,
			EndLine:    w.EndLine,
			Text:       text,
			Metadata: core.ChunkMetadata{
				FilePath: path,
				TextHash: core.TextHash(text),
			},
		}
		if r, ok := TimestampRange(text); ok {
			pair := r
			chunk.TimestampRange = &pair
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// DeduplicateLines removes duplicate lines, keeping the first occurrence of
// each and preserving order.
func DeduplicateLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		result = append(result, line)
	}
	return result
}

// WindowLines splits lines into overlapping windows of at most maxLines
// lines each, advancing maxLines-overlapLines per step. Line numbers are
// 1-indexed. The final window is kept even when shorter than maxLines.
func WindowLines(lines []string, maxLines, overlapLines int) []Window {
	if maxLines <= 0 || len(lines) == 0 {
		return nil
	}
	if overlapLines < 0 || overlapLines >= maxLines {
		overlapLines = 0
	}

	step := maxLines - overlapLines
	var windows []Window
	for start := 0; start < len(lines); start += step {
		end := start + maxLines
		if end > len(lines) {
			end = len(lines)
		}
		windows = append(windows, Window{
			Lines:     lines[start:end],
			StartLine: start + 1,
			EndLine:   end,
		})
	}
	return windows
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
