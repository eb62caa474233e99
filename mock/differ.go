package mock

import "github.com/fwojciec/collate"

// Compile-time interface verification.
var (
	_ collate.Tokenizer   = (*Tokenizer)(nil)
	_ collate.TokenDiffer = (*TokenDiffer)(nil)
)

// Tokenizer is a mock implementation of collate.Tokenizer.
type Tokenizer struct {
	TokenizeFn func(doc collate.Document) collate.TokenizedText
}

func (t *Tokenizer) Tokenize(doc collate.Document) collate.TokenizedText {
	return t.TokenizeFn(doc)
}

// TokenDiffer is a mock implementation of collate.TokenDiffer.
type TokenDiffer struct {
	DiffFn func(base, witness collate.TokenizedText) collate.Alignment
}

func (d *TokenDiffer) Diff(base, witness collate.TokenizedText) collate.Alignment {
	return d.DiffFn(base, witness)
}
