// Package comparison manages the collations of a comparison set: a
// background worker collates every document as a base, results are cached
// in a CollationStore, and cache-mutating operations pause the worker so
// the two never interleave.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/fwojciec/collate"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Compile-time interface verification.
var _ collate.ProgressSource = (*Set)(nil)

// Set is the orchestrator of a comparison set.
//
// Methods taking a context block while the worker is paused. Progress
// listeners and loader callbacks run on the worker goroutine and must not
// call blocking methods of the Set.
type Set struct {
	store      collate.CollationStore
	logger     *zap.Logger
	background bool
	progress   *broadcaster
	flight     singleflight.Group

	// opMu serializes orchestrator operations.
	opMu sync.Mutex

	mu       sync.Mutex // guards the fields below
	builder  *collate.Builder
	docs     []collate.Document
	moves    *collate.MoveList
	worker   *worker
	err      error
	loaded   bool
	onLoaded []func()
}

// Option configures a Set.
type Option func(*Set)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Set) {
		s.logger = logger
	}
}

// WithBackground controls whether loader runs return immediately (true,
// the default) or block until the queue drains.
func WithBackground(background bool) Option {
	return func(s *Set) {
		s.background = background
	}
}

// WithMoves sets the initial move list. The Set takes ownership of it.
func WithMoves(moves *collate.MoveList) Option {
	return func(s *Set) {
		s.moves = moves
	}
}

// New creates a Set caching collations in store.
func New(store collate.CollationStore, builder *collate.Builder, opts ...Option) *Set {
	s := &Set{
		store:      store,
		builder:    builder,
		logger:     zap.NewNop(),
		background: true,
		progress:   newBroadcaster(),
		moves:      collate.NewMoveList(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartLoader makes docs the documents of the set and starts collating
// every document without a cache entry. Any running worker is stopped
// first. With an empty queue the loader still completes and fires the
// loader callbacks.
func (s *Set) StartLoader(ctx context.Context, docs []collate.Document) error {
	if err := checkDocuments(docs); err != nil {
		return err
	}

	s.opMu.Lock()
	s.stopWorker()
	s.mu.Lock()
	s.docs = slices.Clone(docs)
	s.mu.Unlock()
	var pending []collate.Document
	for _, d := range docs {
		if !s.store.Exists(d.ID) {
			pending = append(pending, d)
		}
	}
	s.logger.Info("starting collation loader",
		zap.Int("documents", len(docs)),
		zap.Int("pending", len(pending)),
	)
	w := s.launch(pending)
	s.opMu.Unlock()

	return s.settle(ctx, w, nil)
}

// GetCollation returns the collation of doc, computing and caching it
// first if needed. Concurrent calls for the same document share one
// computation.
func (s *Set) GetCollation(ctx context.Context, doc collate.Document) (*collate.Collation, error) {
	if !s.known(doc.ID) {
		return nil, fmt.Errorf("document %d: %w", doc.ID, collate.ErrNotCollated)
	}
	if s.store.Exists(doc.ID) {
		return s.store.Load(doc.ID)
	}

	v, err, _ := s.flight.Do(strconv.Itoa(doc.ID), func() (any, error) {
		s.opMu.Lock()
		defer s.opMu.Unlock()

		w, paused, err := s.pause(ctx)
		if err != nil {
			return nil, err
		}
		if paused {
			defer w.resume()
			w.dequeue(doc.ID)
		}
		if s.store.Exists(doc.ID) {
			return s.store.Load(doc.ID)
		}
		c, err := s.collate(ctx, doc)
		if err != nil && paused {
			w.enqueue(doc)
		}
		return c, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*collate.Collation).Clone(), nil
}

// GetExistingCollation returns the cached collation of doc without ever
// computing it. It returns collate.ErrCollationNotFound if there is none.
func (s *Set) GetExistingCollation(doc collate.Document) (*collate.Collation, error) {
	if !s.store.Exists(doc.ID) {
		return nil, fmt.Errorf("base %d: %w", doc.ID, collate.ErrCollationNotFound)
	}
	return s.store.Load(doc.ID)
}

// AddCollation adds doc to the set. It is folded into every existing
// collation as a witness and queued ahead of other pending documents for
// collation as a base. A failure updating one collation does not undo the
// others.
func (s *Set) AddCollation(ctx context.Context, doc collate.Document) error {
	s.opMu.Lock()
	w, err := s.addCollation(ctx, doc)
	s.opMu.Unlock()
	return s.settle(ctx, w, err)
}

func (s *Set) addCollation(ctx context.Context, doc collate.Document) (*worker, error) {
	s.mu.Lock()
	err := checkDocuments(append(slices.Clone(s.docs), doc))
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	w, paused, err := s.pause(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		defer w.resume()
	}

	s.mu.Lock()
	docs := slices.Clone(s.docs)
	moves := s.moves.Clone()
	builder := s.builder
	s.mu.Unlock()

	var errs []error
	for _, base := range docs {
		if !s.store.Exists(base.ID) {
			continue
		}
		c, err := s.store.Load(base.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load collation %s: %w", base.Name, err))
			continue
		}
		builder.Fold(c, base, doc, moves)
		if err := s.store.Save(base.ID, c); err != nil {
			errs = append(errs, fmt.Errorf("save collation %s: %w", base.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.logger.Warn("folding new document failed", zap.String("document", doc.Name), zap.Error(err))
	}

	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()

	if paused {
		w.enqueue(doc)
		return nil, errors.Join(errs...)
	}
	return s.launch([]collate.Document{doc}), errors.Join(errs...)
}

// RemoveCollation removes doc from the set: it leaves the queue, its cache
// entry is deleted, every other collation drops it as a witness and the
// moves touching it are deleted.
func (s *Set) RemoveCollation(ctx context.Context, doc collate.Document) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.known(doc.ID) {
		return fmt.Errorf("document %d: %w", doc.ID, collate.ErrNotCollated)
	}
	w, paused, err := s.pause(ctx)
	if err != nil {
		return err
	}
	if paused {
		defer w.resume()
		w.dequeue(doc.ID)
	}

	var errs []error
	if err := s.store.Delete(doc.ID); err != nil {
		errs = append(errs, fmt.Errorf("delete collation %s: %w", doc.Name, err))
	}

	s.mu.Lock()
	s.docs = slices.DeleteFunc(s.docs, func(d collate.Document) bool { return d.ID == doc.ID })
	removed := s.moves.RemoveDocument(doc.ID)
	docs := slices.Clone(s.docs)
	s.mu.Unlock()

	for _, base := range docs {
		if !s.store.Exists(base.ID) {
			continue
		}
		c, err := s.store.Load(base.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("load collation %s: %w", base.Name, err))
			continue
		}
		if !c.References(doc.ID) {
			continue
		}
		c.RemoveWitness(doc.ID)
		if err := s.store.Save(base.ID, c); err != nil {
			errs = append(errs, fmt.Errorf("save collation %s: %w", base.Name, err))
		}
	}

	s.logger.Info("removed document",
		zap.String("document", doc.Name),
		zap.Int("moves_removed", removed),
	)
	return errors.Join(errs...)
}

// Reset discards every cached collation and collates all documents again.
func (s *Set) Reset(ctx context.Context) error {
	s.opMu.Lock()
	w, err := s.reset()
	s.opMu.Unlock()
	return s.settle(ctx, w, err)
}

func (s *Set) reset() (*worker, error) {
	s.stopWorker()

	s.mu.Lock()
	docs := slices.Clone(s.docs)
	s.mu.Unlock()

	var errs []error
	for _, d := range docs {
		if err := s.store.Delete(d.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete collation %s: %w", d.Name, err))
		}
	}
	s.logger.Info("reset collations", zap.Int("documents", len(docs)))
	return s.launch(docs), errors.Join(errs...)
}

// RegenerateCollation recomputes the collation of doc.
func (s *Set) RegenerateCollation(ctx context.Context, doc collate.Document) (*collate.Collation, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if !s.known(doc.ID) {
		return nil, fmt.Errorf("document %d: %w", doc.ID, collate.ErrNotCollated)
	}
	w, paused, err := s.pause(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		defer w.resume()
		w.dequeue(doc.ID)
	}

	if err := s.store.Delete(doc.ID); err != nil {
		return nil, fmt.Errorf("delete collation %s: %w", doc.Name, err)
	}
	c, err := s.collate(ctx, doc)
	if err != nil {
		if paused {
			w.enqueue(doc)
		}
		return nil, err
	}
	return c, nil
}

// SetExcluded hides or shows a witness in the collation of base.
func (s *Set) SetExcluded(ctx context.Context, base collate.Document, witnessID int, excluded bool) error {
	return s.updateCollation(ctx, base, func(c *collate.Collation) {
		if excluded {
			c.Exclude(witnessID)
		} else {
			c.Include(witnessID)
		}
	})
}

// SetMinChangeDistance sets the minimum change distance of the collation of
// base.
func (s *Set) SetMinChangeDistance(ctx context.Context, base collate.Document, distance int) error {
	return s.updateCollation(ctx, base, func(c *collate.Collation) {
		c.SetMinChangeDistance(distance)
	})
}

func (s *Set) updateCollation(ctx context.Context, base collate.Document, fn func(*collate.Collation)) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	w, paused, err := s.pause(ctx)
	if err != nil {
		return err
	}
	if paused {
		defer w.resume()
	}
	c, err := s.store.Load(base.ID)
	if err != nil {
		return err
	}
	fn(c)
	return s.store.Save(base.ID, c)
}

// Subscribe registers a progress listener and replays a completion event
// for every document already collated. The returned function unsubscribes.
// It must not be called from a progress listener.
func (s *Set) Subscribe(l collate.ProgressListener) (unsubscribe func()) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	w, paused, _ := s.pause(context.Background())
	if paused {
		defer w.resume()
	}

	id := s.progress.add(l)
	for _, d := range s.Documents() {
		if s.store.Exists(d.ID) {
			l.CollationCompleted(d)
		}
	}
	return func() { s.progress.remove(id) }
}

// OnLoaded registers fn to run once when the current queue drains. If the
// queue has already drained fn runs immediately.
func (s *Set) OnLoaded(fn func()) {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		fn()
		return
	}
	s.onLoaded = append(s.onLoaded, fn)
	s.mu.Unlock()
}

// Loaded reports whether the last worker run drained its queue.
func (s *Set) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Wait blocks until the current worker run has ended.
func (s *Set) Wait() {
	if w := s.current(); w != nil {
		<-w.settled
	}
}

// Err returns the failure that ended the last worker run, if any.
func (s *Set) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Pending returns the documents still queued for collation.
func (s *Set) Pending(ctx context.Context) ([]collate.Document, error) {
	w := s.current()
	if w == nil {
		return nil, nil
	}
	var queue []collate.Document
	if _, err := w.send(ctx, request{kind: reqQueue, queue: &queue}); err != nil {
		return nil, err
	}
	return queue, nil
}

// Close stops the worker after its current document and waits for it to
// exit. It must not be called from a loader callback.
func (s *Set) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if w := s.current(); w != nil {
		w.stop()
		<-w.settled
	}
	return nil
}

// Documents returns the documents of the set.
func (s *Set) Documents() []collate.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.docs)
}

// Moves returns a snapshot of the move list.
func (s *Set) Moves() *collate.MoveList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves.Clone()
}

// CreateMove declares a move between two fragments and recollates every
// document. Invalid requests return a *collate.MoveError and change
// nothing.
func (s *Set) CreateMove(ctx context.Context, a, b collate.Fragment) (collate.Move, error) {
	var m collate.Move
	err := s.changeMoves(ctx, func(moves *collate.MoveList, lengths map[int]int) error {
		lenA, lenB, err := fragmentLengths(lengths, a, b)
		if err != nil {
			return err
		}
		m, err = moves.Create(a, b, lenA, lenB)
		return err
	})
	return m, err
}

// UpdateMove replaces the fragments of a move and recollates every
// document.
func (s *Set) UpdateMove(ctx context.Context, id int, a, b collate.Fragment) (collate.Move, error) {
	var m collate.Move
	err := s.changeMoves(ctx, func(moves *collate.MoveList, lengths map[int]int) error {
		lenA, lenB, err := fragmentLengths(lengths, a, b)
		if err != nil {
			return err
		}
		m, err = moves.Update(id, a, b, lenA, lenB)
		return err
	})
	return m, err
}

// DeleteMove removes a move and recollates every document.
func (s *Set) DeleteMove(ctx context.Context, id int) error {
	return s.changeMoves(ctx, func(moves *collate.MoveList, _ map[int]int) error {
		if !moves.Delete(id) {
			return &collate.MoveError{Reason: collate.RejectNotFound, MoveID: id}
		}
		return nil
	})
}

func (s *Set) changeMoves(ctx context.Context, fn func(*collate.MoveList, map[int]int) error) error {
	s.opMu.Lock()

	s.mu.Lock()
	lengths := make(map[int]int, len(s.docs))
	for _, d := range s.docs {
		lengths[d.ID] = d.Len()
	}
	err := fn(s.moves, lengths)
	s.mu.Unlock()
	if err != nil {
		s.opMu.Unlock()
		return err
	}

	w, err := s.reset()
	s.opMu.Unlock()
	return s.settle(ctx, w, err)
}

// SetTokenizer changes the tokenizer policy and recollates every document.
func (s *Set) SetTokenizer(ctx context.Context, tokenizer collate.Tokenizer) error {
	s.opMu.Lock()
	s.mu.Lock()
	s.builder = s.builder.WithTokenizer(tokenizer)
	s.mu.Unlock()
	w, err := s.reset()
	s.opMu.Unlock()
	return s.settle(ctx, w, err)
}

// collate builds, caches and reports the collation of one base document.
func (s *Set) collate(ctx context.Context, doc collate.Document) (*collate.Collation, error) {
	s.mu.Lock()
	docs := slices.Clone(s.docs)
	moves := s.moves.Clone()
	builder := s.builder
	s.mu.Unlock()

	start := time.Now()
	s.progress.started(doc)
	c, err := builder.Build(ctx, doc, docs, moves, func(fraction float64) {
		if fraction < 1 {
			s.progress.update(doc, fraction)
		}
	})
	if err != nil {
		s.progress.failed(doc, err)
		return nil, err
	}
	if err := s.store.Save(doc.ID, c); err != nil {
		err = fmt.Errorf("save collation %s: %w", doc.Name, err)
		s.progress.failed(doc, err)
		return nil, err
	}
	s.progress.completed(doc)

	s.logger.Debug("collated document",
		zap.String("document", doc.Name),
		zap.Int("witnesses", len(c.Witnesses)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return c, nil
}

// launch starts a worker over queue. opMu must be held.
func (s *Set) launch(queue []collate.Document) *worker {
	w := newWorker(queue, func(doc collate.Document) error {
		_, err := s.collate(context.Background(), doc)
		return err
	}, nil)
	w.onExit = func(drained bool, err error) { s.workerExited(w, drained, err) }

	s.mu.Lock()
	s.worker = w
	s.loaded = false
	s.err = nil
	s.mu.Unlock()

	go w.run()
	return w
}

func (s *Set) workerExited(w *worker, drained bool, err error) {
	s.mu.Lock()
	if s.worker != w {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.err = err
		s.mu.Unlock()
		s.logger.Error("collation worker stopped", zap.Error(err))
		return
	}
	if !drained {
		s.mu.Unlock()
		return
	}
	s.loaded = true
	callbacks := s.onLoaded
	s.onLoaded = nil
	s.mu.Unlock()

	s.logger.Info("collation queue drained")
	for _, fn := range callbacks {
		fn()
	}
}

// settle waits for w in synchronous mode and joins its failure with err.
func (s *Set) settle(ctx context.Context, w *worker, err error) error {
	if s.background || w == nil {
		return err
	}
	select {
	case <-w.settled:
		return errors.Join(err, w.err)
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
}

// pause pauses the current worker if it is still running. opMu must be
// held.
func (s *Set) pause(ctx context.Context) (*worker, bool, error) {
	w := s.current()
	if w == nil {
		return nil, false, nil
	}
	paused, err := w.pause(ctx)
	return w, paused, err
}

// stopWorker stops the current worker. opMu must be held.
func (s *Set) stopWorker() {
	if w := s.current(); w != nil {
		w.stop()
	}
}

func (s *Set) current() *worker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.worker
}

func (s *Set) known(docID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.ContainsFunc(s.docs, func(d collate.Document) bool { return d.ID == docID })
}

// checkDocuments rejects sets with repeated IDs or names.
func checkDocuments(docs []collate.Document) error {
	ids := make(map[int]bool, len(docs))
	names := make(map[string]bool, len(docs))
	for _, d := range docs {
		if ids[d.ID] {
			return fmt.Errorf("duplicate document ID %d", d.ID)
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate document name %q", d.Name)
		}
		ids[d.ID] = true
		names[d.Name] = true
	}
	return nil
}

func fragmentLengths(lengths map[int]int, a, b collate.Fragment) (int, int, error) {
	lenA, ok := lengths[a.DocID]
	if !ok {
		return 0, 0, &collate.UnknownDocumentError{ID: a.DocID}
	}
	lenB, ok := lengths[b.DocID]
	if !ok {
		return 0, 0, &collate.UnknownDocumentError{ID: b.DocID}
	}
	return lenA, lenB, nil
}
