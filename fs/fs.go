// Package fs implements the on-disk collation cache and document loading.
package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultCacheDir returns the default cache directory for collate.
// Uses XDG_CACHE_HOME if set, otherwise falls back to ~/.cache/collate,
// or system temp directory if home is unavailable.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "collate")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "collate")
	}
	return filepath.Join(home, ".cache", "collate")
}

// NewSessionDir creates a fresh session-scoped directory under root.
// Collations cached in one session are never read by another.
func NewSessionDir(root string) (string, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return "", fmt.Errorf("create cache root: %w", err)
	}
	dir, err := os.MkdirTemp(root, "session-")
	if err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	return dir, nil
}
