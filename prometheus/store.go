package prometheus

import (
	"errors"

	"github.com/fwojciec/collate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compile-time interface verification.
var _ collate.CollationStore = (*CollationStore)(nil)

// CollationStore counts the operations of a wrapped collation store by
// operation and result.
type CollationStore struct {
	store collate.CollationStore
	ops   *prometheus.CounterVec
}

// NewCollationStore wraps store and registers its counters with reg.
func NewCollationStore(store collate.CollationStore, reg prometheus.Registerer) *CollationStore {
	return &CollationStore{
		store: store,
		ops: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Collation cache operations by operation and result",
		}, []string{"op", "result"}),
	}
}

// Exists implements collate.CollationStore.
func (s *CollationStore) Exists(baseID int) bool {
	ok := s.store.Exists(baseID)
	result := "miss"
	if ok {
		result = "hit"
	}
	s.ops.WithLabelValues("exists", result).Inc()
	return ok
}

// Load implements collate.CollationStore.
func (s *CollationStore) Load(baseID int) (*collate.Collation, error) {
	c, err := s.store.Load(baseID)
	switch {
	case errors.Is(err, collate.ErrCollationNotFound):
		s.ops.WithLabelValues("load", "miss").Inc()
	default:
		s.observe("load", err)
	}
	return c, err
}

// Save implements collate.CollationStore.
func (s *CollationStore) Save(baseID int, c *collate.Collation) error {
	err := s.store.Save(baseID, c)
	s.observe("save", err)
	return err
}

// Delete implements collate.CollationStore.
func (s *CollationStore) Delete(baseID int) error {
	err := s.store.Delete(baseID)
	s.observe("delete", err)
	return err
}

func (s *CollationStore) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.ops.WithLabelValues(op, result).Inc()
}
