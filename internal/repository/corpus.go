package repository

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/quayside-labs/deskrag/internal/domain"
)

// chunkRecord is the JSONL serialization of one corpus chunk.
type chunkRecord struct {
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Text   string `json:"text"`
}

// CorpusRepository persists the chunked corpus as a JSONL file, one chunk
// per line in corpus order. Writes replace the whole file atomically so a
// reader never observes a partially written corpus.
type CorpusRepository struct {
	path string
}

func NewCorpusRepository(path string) *CorpusRepository {
	return &CorpusRepository{path: path}
}

// Path returns the corpus file location.
func (r *CorpusRepository) Path() string {
	return r.path
}

// Write serializes the chunks to a temporary file and renames it over the
// corpus path.
func (r *CorpusRepository) Write(chunks []domain.Chunk) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create corpus directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create corpus temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for _, c := range chunks {
		rec := chunkRecord{Source: c.Source, Start: c.Start, End: c.End, Text: c.Text}
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to encode chunk: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush corpus: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close corpus temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace corpus file: %w", err)
	}
	return nil
}

// Load reads the corpus back in file order. A missing file returns
// domain.ErrCorpusMissing.
func (r *CorpusRepository) Load() ([]domain.Chunk, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrCorpusMissing
		}
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	var chunks []domain.Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec chunkRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode corpus line %d: %w", line, err)
		}
		chunks = append(chunks, domain.Chunk{
			Source: rec.Source,
			Start:  rec.Start,
			End:    rec.End,
			Text:   rec.Text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return chunks, nil
}
