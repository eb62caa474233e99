package mock

import "github.com/fwojciec/collate"

// Compile-time interface verification.
var (
	_ collate.ProgressListener = (*ProgressListener)(nil)
	_ collate.FailureListener  = (*FailureListener)(nil)
)

// ProgressListener is a mock implementation of collate.ProgressListener.
type ProgressListener struct {
	CollationStartedFn   func(doc collate.Document)
	UpdateProgressFn     func(doc collate.Document, fraction float64)
	CollationCompletedFn func(doc collate.Document)
}

func (l *ProgressListener) CollationStarted(doc collate.Document) {
	l.CollationStartedFn(doc)
}

func (l *ProgressListener) UpdateProgress(doc collate.Document, fraction float64) {
	l.UpdateProgressFn(doc, fraction)
}

func (l *ProgressListener) CollationCompleted(doc collate.Document) {
	l.CollationCompletedFn(doc)
}

// FailureListener is a mock progress listener that also implements
// collate.FailureListener.
type FailureListener struct {
	ProgressListener
	CollationFailedFn func(doc collate.Document, err error)
}

func (l *FailureListener) CollationFailed(doc collate.Document, err error) {
	l.CollationFailedFn(doc, err)
}
