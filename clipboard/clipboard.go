// Package clipboard provides access to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/fwojciec/collate"
)

// ErrUnavailable is returned when the platform has no clipboard utility.
var ErrUnavailable = errors.New("no clipboard utility available")

// Ensure System implements the Clipboard interface.
var _ collate.Clipboard = (*System)(nil)

// System implements Clipboard using the platform clipboard utility
// (pbcopy, wl-copy, xclip or xsel).
type System struct {
	write func(string) error
}

// NewSystem returns the system clipboard, or ErrUnavailable when no
// clipboard utility is installed.
func NewSystem() (*System, error) {
	if clipboard.Unsupported {
		return nil, ErrUnavailable
	}
	return &System{write: clipboard.WriteAll}, nil
}

// Copy writes content to the system clipboard.
func (s *System) Copy(content string) error {
	if err := s.write(content); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
