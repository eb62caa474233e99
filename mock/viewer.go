package mock

import (
	"context"

	"github.com/fwojciec/collate"
)

// Compile-time interface verification.
var (
	_ collate.Viewer          = (*Viewer)(nil)
	_ collate.ProgressWatcher = (*ProgressWatcher)(nil)
)

// Viewer is a mock implementation of collate.Viewer.
type Viewer struct {
	ViewFn func(ctx context.Context, c *collate.Collation, docs []collate.Document) error
}

func (v *Viewer) View(ctx context.Context, c *collate.Collation, docs []collate.Document) error {
	return v.ViewFn(ctx, c, docs)
}

// ProgressWatcher is a mock implementation of collate.ProgressWatcher.
type ProgressWatcher struct {
	WatchFn func(ctx context.Context, docs []collate.Document, src collate.ProgressSource) error
}

func (w *ProgressWatcher) Watch(ctx context.Context, docs []collate.Document, src collate.ProgressSource) error {
	return w.WatchFn(ctx, docs, src)
}
