package comparison

import (
	"maps"
	"slices"
	"sync"

	"github.com/fwojciec/collate"
)

// broadcaster fans progress events out to subscribed listeners in
// subscription order. Listeners are called without holding the lock.
type broadcaster struct {
	mu        sync.Mutex
	next      int
	listeners map[int]collate.ProgressListener
}

func newBroadcaster() *broadcaster {
	return &broadcaster{listeners: make(map[int]collate.ProgressListener)}
}

func (b *broadcaster) add(l collate.ProgressListener) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners[b.next] = l
	return b.next
}

func (b *broadcaster) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, id)
}

func (b *broadcaster) snapshot() []collate.ProgressListener {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := slices.Sorted(maps.Keys(b.listeners))
	out := make([]collate.ProgressListener, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.listeners[id])
	}
	return out
}

func (b *broadcaster) started(doc collate.Document) {
	for _, l := range b.snapshot() {
		l.CollationStarted(doc)
	}
}

func (b *broadcaster) update(doc collate.Document, fraction float64) {
	for _, l := range b.snapshot() {
		l.UpdateProgress(doc, fraction)
	}
}

func (b *broadcaster) completed(doc collate.Document) {
	for _, l := range b.snapshot() {
		l.CollationCompleted(doc)
	}
}

func (b *broadcaster) failed(doc collate.Document, err error) {
	for _, l := range b.snapshot() {
		if fl, ok := l.(collate.FailureListener); ok {
			fl.CollationFailed(doc, err)
		}
	}
}
