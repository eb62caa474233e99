package mock

import "github.com/fwojciec/collate"

// Compile-time interface verification.
var (
	_ collate.CollationStore = (*CollationStore)(nil)
	_ collate.MoveStore      = (*MoveStore)(nil)
)

// CollationStore is a mock implementation of collate.CollationStore.
type CollationStore struct {
	ExistsFn func(baseID int) bool
	LoadFn   func(baseID int) (*collate.Collation, error)
	SaveFn   func(baseID int, c *collate.Collation) error
	DeleteFn func(baseID int) error
}

func (s *CollationStore) Exists(baseID int) bool {
	return s.ExistsFn(baseID)
}

func (s *CollationStore) Load(baseID int) (*collate.Collation, error) {
	return s.LoadFn(baseID)
}

func (s *CollationStore) Save(baseID int, c *collate.Collation) error {
	return s.SaveFn(baseID, c)
}

func (s *CollationStore) Delete(baseID int) error {
	return s.DeleteFn(baseID)
}

// MoveStore is a mock implementation of collate.MoveStore.
type MoveStore struct {
	LoadFn func(path string) ([]collate.MoveRecord, error)
	SaveFn func(path string, records []collate.MoveRecord) error
}

func (s *MoveStore) Load(path string) ([]collate.MoveRecord, error) {
	return s.LoadFn(path)
}

func (s *MoveStore) Save(path string, records []collate.MoveRecord) error {
	return s.SaveFn(path, records)
}
