package mock

import (
	"context"

	"github.com/fwojciec/collate"
)

// Compile-time interface verification.
var _ collate.DocumentLoader = (*DocumentLoader)(nil)

// DocumentLoader is a mock implementation of collate.DocumentLoader.
type DocumentLoader struct {
	LoadDocumentsFn func(ctx context.Context, paths []string) ([]collate.Document, error)
}

func (l *DocumentLoader) LoadDocuments(ctx context.Context, paths []string) ([]collate.Document, error) {
	return l.LoadDocumentsFn(ctx, paths)
}
