package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/quayside-labs/deskrag/internal/domain"
	"github.com/quayside-labs/deskrag/internal/service"
)

// FSSource walks a local directory for ingestible documents. Sources are
// named by their slash-separated path relative to the root, which keeps
// citations stable across machines.
type FSSource struct {
	root string
}

// NewFSSource creates a new FSSource rooted at dir.
func NewFSSource(dir string) *FSSource {
	return &FSSource{root: dir}
}

// Root returns the directory the source reads from.
func (s *FSSource) Root() string {
	return s.root
}

// List returns every file under the root with a supported extension.
// Hidden directories are skipped.
func (s *FSSource) List(ctx context.Context) ([]service.DocumentFile, error) {
	var files []service.DocumentFile
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if p != s.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		kind, ok := domain.KindForPath(p)
		if !ok {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, service.DocumentFile{Source: filepath.ToSlash(rel), Kind: kind})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.root, err)
	}
	return files, nil
}

// Read returns the raw bytes of one listed document.
func (s *FSSource) Read(ctx context.Context, source string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(source)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return data, nil
}
