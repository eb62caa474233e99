package collate

import "context"

// ProgressListener receives collation progress for base documents. For a
// given document it sees one start, zero or more fractions strictly between
// 0 and 1 in non-decreasing order, and one completion unless the collation
// fails (see FailureListener).
type ProgressListener interface {
	CollationStarted(doc Document)
	UpdateProgress(doc Document, fraction float64)
	CollationCompleted(doc Document)
}

// FailureListener is implemented by progress listeners that want to know
// when a started collation ends without a completion.
type FailureListener interface {
	CollationFailed(doc Document, err error)
}

// ProgressFuncs adapts plain functions to ProgressListener. Nil fields are
// skipped.
type ProgressFuncs struct {
	Started   func(doc Document)
	Progress  func(doc Document, fraction float64)
	Completed func(doc Document)
	Failed    func(doc Document, err error)
}

// Compile-time interface verification.
var (
	_ ProgressListener = ProgressFuncs{}
	_ FailureListener  = ProgressFuncs{}
)

// CollationStarted implements ProgressListener.
func (f ProgressFuncs) CollationStarted(doc Document) {
	if f.Started != nil {
		f.Started(doc)
	}
}

// UpdateProgress implements ProgressListener.
func (f ProgressFuncs) UpdateProgress(doc Document, fraction float64) {
	if f.Progress != nil {
		f.Progress(doc, fraction)
	}
}

// CollationCompleted implements ProgressListener.
func (f ProgressFuncs) CollationCompleted(doc Document) {
	if f.Completed != nil {
		f.Completed(doc)
	}
}

// CollationFailed implements FailureListener.
func (f ProgressFuncs) CollationFailed(doc Document, err error) {
	if f.Failed != nil {
		f.Failed(doc, err)
	}
}

// ProgressSource is a collation loader whose progress can be observed.
type ProgressSource interface {
	// Subscribe registers l and replays a completion for every document
	// already collated.
	Subscribe(l ProgressListener) (unsubscribe func())
	// OnLoaded registers a one-shot callback for the next drained queue.
	OnLoaded(fn func())
	// Wait blocks until the current loader run ends.
	Wait()
	// Err returns the failure that ended the last run, if any.
	Err() error
}

// ProgressWatcher presents the progress of a loader until it finishes.
type ProgressWatcher interface {
	Watch(ctx context.Context, docs []Document, src ProgressSource) error
}
