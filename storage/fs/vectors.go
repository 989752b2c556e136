package fs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/rashmirrout/loglens/core"
	"github.com/rashmirrout/loglens/storage"
)

// WriteVectors persists the vector array as a raw little-endian float32
// matrix, row-major. Row order must match the chunk list order; the file
// carries no identifiers, so ordering is the only correctness guarantee.
func (s *Store) WriteVectors(issueID string, vectors [][]float32) error {
	f, err := os.Create(s.issuePath(issueID, vectorsFile))
	if err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	var scratch [4]byte
	for _, row := range vectors {
		for _, v := range row {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			if _, err := w.Write(scratch[:]); err != nil {
				return fmt.Errorf("failed to write vectors: %w", err)
			}
		}
	}
	return w.Flush()
}

// ReadVectors loads the vector array with the given row width.
func (s *Store) ReadVectors(issueID string, dim int) ([][]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dim)
	}

	data, err := os.ReadFile(s.issuePath(issueID, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: issue %s", core.ErrNotBuilt, issueID)
		}
		return nil, err
	}

	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector file size %d not a multiple of 4", storage.ErrTruncatedData, len(data))
	}
	total := len(data) / 4
	if total%dim != 0 {
		return nil, fmt.Errorf("%w: %d floats do not divide into rows of %d", storage.ErrTruncatedData, total, dim)
	}

	rows := total / dim
	vectors := make([][]float32, rows)
	offset := 0
	for i := range vectors {
		row := make([]float32, dim)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}
		vectors[i] = row
	}
	return vectors, nil
}

// HasVectors reports whether a vector array has been persisted.
func (s *Store) HasVectors(issueID string) bool {
	info, err := os.Stat(s.issuePath(issueID, vectorsFile))
	return err == nil && !info.IsDir()
}
