package collate

import (
	"context"
	"slices"
)

// Builder assembles collations from a tokenizer and a token diff primitive.
type Builder struct {
	tokenizer   Tokenizer
	differ      TokenDiffer
	reconciler  *Reconciler
	resolution  int
	minDistance int
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithResolution sets the histogram resolution of built collations.
func WithResolution(resolution int) BuilderOption {
	return func(b *Builder) {
		b.resolution = resolution
	}
}

// WithMinChangeDistance sets the initial minimum change distance of built
// collations.
func WithMinChangeDistance(distance int) BuilderOption {
	return func(b *Builder) {
		b.minDistance = distance
	}
}

// NewBuilder creates a Builder.
func NewBuilder(tokenizer Tokenizer, differ TokenDiffer, opts ...BuilderOption) *Builder {
	b := &Builder{
		tokenizer:  tokenizer,
		differ:     differ,
		reconciler: NewReconciler(tokenizer, differ),
		resolution: DefaultResolution,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithTokenizer returns a copy of the builder using a different tokenizer.
func (b *Builder) WithTokenizer(tokenizer Tokenizer) *Builder {
	out := *b
	out.tokenizer = tokenizer
	out.reconciler = NewReconciler(tokenizer, b.differ)
	return &out
}

// Build collates base against every witness. progress, if not nil, is
// called after each witness with the completed fraction; the last call
// passes exactly 1. Token tables are released as soon as a witness is done.
func (b *Builder) Build(ctx context.Context, base Document, witnesses []Document, moves *MoveList, progress func(fraction float64)) (*Collation, error) {
	c := NewCollation(base, b.resolution)
	c.SetMinChangeDistance(b.minDistance)
	baseTokens := b.tokenizer.Tokenize(base)

	witnesses = slices.DeleteFunc(slices.Clone(witnesses), func(w Document) bool {
		return w.ID == base.ID
	})
	for i, w := range witnesses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pairMoves []Move
		if moves != nil {
			pairMoves = moves.ForPair(base.ID, w.ID)
			c.Moves = appendCanonical(c.Moves, pairMoves)
		}
		c.AddWitness(b.reconciler.Reconcile(baseTokens, b.tokenizer.Tokenize(w), pairMoves))
		if progress != nil {
			progress(float64(i+1) / float64(len(witnesses)))
		}
	}
	return c, nil
}

// Compare returns the move-consistent differences of one witness against
// base.
func (b *Builder) Compare(base, witness Document, moves *MoveList) DifferenceSet {
	var pairMoves []Move
	if moves != nil {
		pairMoves = moves.ForPair(base.ID, witness.ID)
	}
	return b.reconciler.Reconcile(b.tokenizer.Tokenize(base), b.tokenizer.Tokenize(witness), pairMoves)
}

// Fold adds witness to an existing collation of base, refreshing the move
// snapshot for the pair.
func (b *Builder) Fold(c *Collation, base, witness Document, moves *MoveList) {
	c.AddWitness(b.Compare(base, witness, moves))
	if moves == nil {
		return
	}
	c.Moves = slices.DeleteFunc(c.Moves, func(m Move) bool {
		return m.Touches(witness.ID)
	})
	c.Moves = appendCanonical(c.Moves, moves.ForPair(base.ID, witness.ID))
}

func appendCanonical(dst, moves []Move) []Move {
	for _, m := range moves {
		dst = append(dst, m.canonical())
	}
	return dst
}
