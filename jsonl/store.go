// Package jsonl persists move records and exports differences as JSONL.
package jsonl

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwojciec/collate"
	"github.com/spf13/afero"
)

// Compile-time interface verification.
var _ collate.MoveStore = (*MoveStore)(nil)

// maxLineSize is the maximum size for a single JSONL line (64KB).
const maxLineSize = 64 * 1024

// MoveStore persists move records as JSONL, one record per line.
type MoveStore struct {
	fs afero.Fs
}

// NewMoveStore creates a MoveStore on fsys.
func NewMoveStore(fsys afero.Fs) *MoveStore {
	return &MoveStore{fs: fsys}
}

// Load reads move records from a JSONL file. Returns empty slice if file doesn't exist.
func (s *MoveStore) Load(path string) ([]collate.MoveRecord, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []collate.MoveRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var r collate.MoveRecord
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if r.Doc1 == "" || r.Doc2 == "" {
			return nil, fmt.Errorf("line %d: missing document name", lineNum)
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Save writes move records to a JSONL file, creating parent directories if
// needed. The file is replaced as a whole; on failure the previous file is
// left untouched and no temporary file remains.
func (s *MoveStore) Save(path string, records []collate.MoveRecord) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := s.fs.Create(tmp)
	if err != nil {
		return err
	}

	if err := writeRecords(f, records); err != nil {
		f.Close()
		s.fs.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		s.fs.Remove(tmp)
		return err
	}
	return nil
}

func writeRecords(f io.Writer, records []collate.MoveRecord) error {
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return w.Flush()
}
