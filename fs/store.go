package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/collate"
	"github.com/gofrs/flock"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/natefinch/atomic"
)

// Compile-time interface verification.
var _ collate.CollationStore = (*Store)(nil)

// ErrCacheLocked is returned by Open when another process holds the cache
// directory.
var ErrCacheLocked = errors.New("collation cache is locked by another process")

// DefaultMemoryEntries is the number of decoded collations kept in memory.
const DefaultMemoryEntries = 32

const (
	lockFileName    = ".lock"
	collationPrefix = "collation-"
	collationSuffix = ".json"
)

// Store is a CollationStore keeping one JSON file per base document.
// Recently used collations are also kept decoded in memory; callers always
// receive their own copy.
type Store struct {
	dir    string
	lock   *flock.Flock
	memory *lru.Cache[int, *collate.Collation]
}

// Option configures a Store.
type Option func(*options)

type options struct {
	memoryEntries int
}

// WithMemoryEntries sets how many decoded collations are kept in memory.
func WithMemoryEntries(n int) Option {
	return func(o *options) {
		o.memoryEntries = n
	}
}

// Open locks dir for exclusive use and returns a store over it. The
// directory is created if missing.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{memoryEntries: DefaultMemoryEntries}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	fl := flock.New(filepath.Join(dir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("flock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", dir, ErrCacheLocked)
	}

	memory, err := lru.New[int, *collate.Collation](max(1, o.memoryEntries))
	if err != nil {
		_ = fl.Unlock()
		return nil, err
	}
	return &Store{dir: dir, lock: fl, memory: memory}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

// Exists reports whether a collation is cached for baseID.
func (s *Store) Exists(baseID int) bool {
	if s.memory.Contains(baseID) {
		return true
	}
	_, err := os.Stat(s.path(baseID))
	return err == nil
}

// Load returns the cached collation for baseID, or ErrCollationNotFound.
func (s *Store) Load(baseID int) (*collate.Collation, error) {
	if c, ok := s.memory.Get(baseID); ok {
		return c.Clone(), nil
	}

	data, err := os.ReadFile(s.path(baseID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("base %d: %w", baseID, collate.ErrCollationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read collation %d: %w", baseID, err)
	}

	var c collate.Collation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode collation %d: %w", baseID, err)
	}
	s.memory.Add(baseID, &c)
	return c.Clone(), nil
}

// Save writes the collation for baseID, replacing any previous one.
func (s *Store) Save(baseID int, c *collate.Collation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode collation %d: %w", baseID, err)
	}
	if err := atomic.WriteFile(s.path(baseID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write collation %d: %w", baseID, err)
	}
	s.memory.Add(baseID, c.Clone())
	return nil
}

// Delete removes the collation for baseID. Deleting a missing entry is not
// an error.
func (s *Store) Delete(baseID int) error {
	s.memory.Remove(baseID)
	if err := os.Remove(s.path(baseID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete collation %d: %w", baseID, err)
	}
	return nil
}

// IDs returns the base document IDs with a cached collation.
func (s *Store) IDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, collationPrefix) || !strings.HasSuffix(name, collationSuffix) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, collationPrefix), collationSuffix))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Purge removes every cached collation.
func (s *Store) Purge() error {
	ids, err := s.IDs()
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		errs = append(errs, s.Delete(id))
	}
	s.memory.Purge()
	return errors.Join(errs...)
}

// Close releases the directory lock. Cached files are left in place.
func (s *Store) Close() error {
	s.memory.Purge()
	return s.lock.Unlock()
}

func (s *Store) path(baseID int) string {
	return filepath.Join(s.dir, collationPrefix+strconv.Itoa(baseID)+collationSuffix)
}
