package comparison

import (
	"context"
	"fmt"
	"slices"

	"github.com/fwojciec/collate"
)

type requestKind int

const (
	reqPause requestKind = iota
	reqResume
	reqStop
	reqEnqueue
	reqDequeue
	reqQueue
)

// request is a message to the worker. The worker closes ack once the
// request has been applied.
type request struct {
	kind  requestKind
	docs  []collate.Document
	docID int
	queue *[]collate.Document
	ack   chan struct{}
}

// worker is the single background collation actor. It owns the pending
// queue and only looks at requests between documents, so a document in
// progress always runs to completion.
type worker struct {
	reqs    chan request
	done    chan struct{} // Closed when the loop has exited
	settled chan struct{} // Closed after exit callbacks have run
	queue   []collate.Document
	err     error // Valid once done is closed

	work   func(doc collate.Document) error
	onExit func(drained bool, err error)
}

func newWorker(queue []collate.Document, work func(collate.Document) error, onExit func(bool, error)) *worker {
	return &worker{
		reqs:    make(chan request),
		done:    make(chan struct{}),
		settled: make(chan struct{}),
		queue:   slices.Clone(queue),
		work:    work,
		onExit:  onExit,
	}
}

func (w *worker) run() {
	defer close(w.settled)
	drained, err := w.loop()
	w.err = err
	close(w.done)
	// done is closed first so exit callbacks may issue new requests
	// without waiting on this worker.
	w.onExit(drained, err)
}

func (w *worker) loop() (drained bool, err error) {
	paused := false
	for {
		if paused {
			if w.handle(<-w.reqs, &paused) {
				return false, nil
			}
			continue
		}
		select {
		case req := <-w.reqs:
			if w.handle(req, &paused) {
				return false, nil
			}
			continue
		default:
		}

		if len(w.queue) == 0 {
			return true, nil
		}
		doc := w.queue[0]
		w.queue = w.queue[1:]
		if err := w.work(doc); err != nil {
			return false, fmt.Errorf("collate %s: %w", doc.Name, err)
		}
	}
}

// handle applies req and reports whether the worker must stop.
func (w *worker) handle(req request, paused *bool) bool {
	defer close(req.ack)
	switch req.kind {
	case reqPause:
		*paused = true
	case reqResume:
		*paused = false
	case reqStop:
		return true
	case reqEnqueue:
		// Newly requested documents go first.
		w.queue = slices.DeleteFunc(w.queue, func(d collate.Document) bool {
			return slices.ContainsFunc(req.docs, func(r collate.Document) bool { return r.ID == d.ID })
		})
		w.queue = append(slices.Clone(req.docs), w.queue...)
	case reqDequeue:
		w.queue = slices.DeleteFunc(w.queue, func(d collate.Document) bool {
			return d.ID == req.docID
		})
	case reqQueue:
		*req.queue = slices.Clone(w.queue)
	}
	return false
}

// send delivers req and waits for it to be applied. It reports false if
// the worker has already exited.
func (w *worker) send(ctx context.Context, req request) (bool, error) {
	req.ack = make(chan struct{})
	select {
	case w.reqs <- req:
	case <-w.done:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
	<-req.ack
	return true, nil
}

func (w *worker) pause(ctx context.Context) (bool, error) {
	return w.send(ctx, request{kind: reqPause})
}

func (w *worker) resume() {
	_, _ = w.send(context.Background(), request{kind: reqResume})
}

func (w *worker) enqueue(docs ...collate.Document) {
	_, _ = w.send(context.Background(), request{kind: reqEnqueue, docs: docs})
}

func (w *worker) dequeue(docID int) {
	_, _ = w.send(context.Background(), request{kind: reqDequeue, docID: docID})
}

// stop asks the worker to exit after the current document and waits for
// the loop to end.
func (w *worker) stop() {
	_, _ = w.send(context.Background(), request{kind: reqStop})
	<-w.done
}

func (w *worker) running() bool {
	select {
	case <-w.done:
		return false
	default:
		return true
	}
}
