package fs

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fwojciec/collate"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface verification.
var _ collate.DocumentLoader = (*DocumentLoader)(nil)

// DefaultLoadWorkers bounds concurrent file reads.
const DefaultLoadWorkers = 8

// DocumentLoader reads witness files. IDs are assigned from 1 in path
// order; the file base name is the document name.
type DocumentLoader struct {
	fs      afero.Fs
	workers int
}

// NewDocumentLoader creates a loader reading from fsys.
func NewDocumentLoader(fsys afero.Fs) *DocumentLoader {
	return &DocumentLoader{fs: fsys, workers: DefaultLoadWorkers}
}

// WithWorkers returns a copy of the loader reading at most n files at once.
func (l *DocumentLoader) WithWorkers(n int) *DocumentLoader {
	out := *l
	out.workers = max(1, n)
	return &out
}

// LoadDocuments reads every path. Two paths sharing a base name are
// rejected, since names are the durable key of persisted moves.
func (l *DocumentLoader) LoadDocuments(ctx context.Context, paths []string) ([]collate.Document, error) {
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		name := filepath.Base(p)
		if prev, ok := seen[name]; ok {
			return nil, fmt.Errorf("documents %s and %s share the name %q", prev, p, name)
		}
		seen[name] = p
	}

	docs := make([]collate.Document, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := afero.ReadFile(l.fs, p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			docs[i] = collate.Document{
				ID:   i + 1,
				Name: filepath.Base(p),
				Text: string(data),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}
