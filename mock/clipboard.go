package mock

import "github.com/fwojciec/collate"

// Compile-time interface verification.
var _ collate.Clipboard = (*Clipboard)(nil)

// Clipboard is a mock implementation of collate.Clipboard.
type Clipboard struct {
	CopyFn func(content string) error
}

func (c *Clipboard) Copy(content string) error {
	return c.CopyFn(content)
}
