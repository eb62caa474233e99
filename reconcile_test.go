package collate_test

import (
	"testing"

	"github.com/fwojciec/collate"
	"github.com/fwojciec/collate/mock"
	"github.com/fwojciec/collate/tokendiff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	differ  *tokendiff.Differ
	base    collate.TokenizedText
	witness collate.TokenizedText
}

func newPair(base, witness string) pair {
	d := tokendiff.NewDiffer(collate.DefaultTokenizerSettings())
	return pair{
		differ:  d,
		base:    d.Tokenize(collate.Document{ID: 1, Name: "base", Text: base}),
		witness: d.Tokenize(collate.Document{ID: 2, Name: "witness", Text: witness}),
	}
}

func (p pair) reconcile(moves ...collate.Move) collate.DifferenceSet {
	return collate.NewReconciler(p.differ, p.differ).Reconcile(p.base, p.witness, moves)
}

func move(id int, first, second collate.Fragment) collate.Move {
	return collate.Move{ID: id, First: first, Second: second}
}

func ofType(diffs []collate.Difference, t collate.DifferenceType) []collate.Difference {
	var out []collate.Difference
	for _, d := range diffs {
		if d.Type == t {
			out = append(out, d)
		}
	}
	return out
}

func TestReconciler_NoMovesReturnsRawDiff(t *testing.T) {
	t.Parallel()

	p := newPair("The quick brown fox jumps.", "A quick red fox leaped.")

	raw := p.differ.Diff(p.base, p.witness).Set
	got := p.reconcile()

	assert.Equal(t, raw, got)
}

func TestReconciler_IgnoresMovesOfOtherDocuments(t *testing.T) {
	t.Parallel()

	p := newPair("one two", "one three")

	raw := p.differ.Diff(p.base, p.witness).Set
	got := p.reconcile(move(1, frag(1, 0, 3), frag(3, 0, 3)))

	assert.Equal(t, raw, got)
}

func TestReconciler_SwappedBlocks(t *testing.T) {
	t.Parallel()

	p := newPair("AAA BBB CCC", "CCC BBB AAA")

	got := p.reconcile(
		move(1, frag(1, 0, 3), frag(2, 8, 11)),
		move(2, frag(1, 8, 11), frag(2, 0, 3)),
	)

	require.Len(t, got.Differences, 2)
	assert.Empty(t, ofType(got.Differences, collate.DiffInsert))
	assert.Empty(t, ofType(got.Differences, collate.DiffDelete))
	assert.Empty(t, ofType(got.Differences, collate.DiffChange))

	blocks := ofType(got.Differences, collate.DiffMove)
	require.Len(t, blocks, 2)
	assert.Equal(t, collate.Difference{
		BaseID: 1, WitnessID: 2, Type: collate.DiffMove,
		BaseOffset: 0, BaseLength: 3, WitnessOffset: 8, WitnessLength: 3,
		Distance: collate.MaxDistance, MoveID: 1,
	}, blocks[0])
	assert.Equal(t, 2, blocks[1].MoveID)
	assert.Equal(t, 8, blocks[1].BaseOffset)
	assert.Equal(t, 0, blocks[1].WitnessOffset)
}

func TestReconciler_MovesGivenFromWitnessSide(t *testing.T) {
	t.Parallel()

	p := newPair("AAA BBB CCC", "CCC BBB AAA")

	got := p.reconcile(
		move(1, frag(2, 8, 11), frag(1, 0, 3)),
		move(2, frag(2, 0, 3), frag(1, 8, 11)),
	)

	blocks := ofType(got.Differences, collate.DiffMove)
	require.Len(t, blocks, 2)
	assert.Equal(t, 0, blocks[0].BaseOffset)
	assert.Equal(t, 8, blocks[0].WitnessOffset)
}

func TestReconciler_EditInsideMoveIsTagged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     string
		witness  string
		move     collate.Move
		expected collate.Difference
	}{
		{
			name:    "edges on word boundaries",
			base:    "xx AAA BBB yy",
			witness: "xx AAA CCC yy",
			move:    move(5, frag(1, 3, 10), frag(2, 3, 10)),
			expected: collate.Difference{
				BaseOffset: 7, BaseLength: 3, WitnessOffset: 7, WitnessLength: 3, Distance: 3,
			},
		},
		{
			name:    "edges inside words",
			base:    "fooBAR baz",
			witness: "baz fooBAX",
			move:    move(5, frag(1, 3, 6), frag(2, 7, 10)),
			expected: collate.Difference{
				BaseOffset: 3, BaseLength: 3, WitnessOffset: 7, WitnessLength: 3, Distance: 1,
			},
		},
		{
			name:    "multi-byte runes at the edges",
			base:    "Grüße alle",
			witness: "alle Grüßa",
			move:    move(5, frag(1, 2, 7), frag(2, 7, 12)),
			expected: collate.Difference{
				BaseOffset: 2, BaseLength: 5, WitnessOffset: 7, WitnessLength: 5, Distance: 1,
			},
		},
		{
			name:    "edit in the cut part of a word",
			base:    "xyAB CD end",
			witness: "end xyAX CD",
			move:    move(5, frag(1, 2, 7), frag(2, 6, 11)),
			expected: collate.Difference{
				BaseOffset: 2, BaseLength: 2, WitnessOffset: 6, WitnessLength: 2, Distance: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := newPair(tt.base, tt.witness).reconcile(tt.move)

			var blocks, edits []collate.Difference
			for _, d := range ofType(got.Differences, collate.DiffMove) {
				if d.Edit == collate.DiffNone {
					blocks = append(blocks, d)
				} else {
					edits = append(edits, d)
				}
			}
			require.Len(t, blocks, 1)
			assert.Equal(t, collate.MaxDistance, blocks[0].Distance)

			require.Len(t, edits, 1, "edit inside the moved block: %+v", got.Differences)
			expected := tt.expected
			expected.BaseID, expected.WitnessID = 1, 2
			expected.Type = collate.DiffMove
			expected.Edit = collate.DiffChange
			expected.MoveID = 5
			assert.Equal(t, expected, edits[0])

			for _, d := range got.Differences {
				if d.Type == collate.DiffMove {
					continue
				}
				if d.BaseLength > 0 {
					assert.False(t, tt.move.First.Overlaps(collate.Fragment{DocID: 1, Start: d.BaseOffset, End: d.BaseEnd()}),
						"base span %+v overlaps the moved block", d)
				}
				if d.WitnessLength > 0 {
					assert.False(t, tt.move.Second.Overlaps(collate.Fragment{DocID: 2, Start: d.WitnessOffset, End: d.WitnessEnd()}),
						"witness span %+v overlaps the moved block", d)
				}
			}
		})
	}
}

func TestReconciler_UnchangedMoveHasNoEdits(t *testing.T) {
	t.Parallel()

	p := newPair("xx AAA BBB yy", "xx AAA BBB yy")

	got := p.reconcile(move(5, frag(1, 4, 9), frag(2, 4, 9)))

	require.Len(t, got.Differences, 1)
	assert.Equal(t, collate.DiffMove, got.Differences[0].Type)
	assert.Equal(t, collate.DiffNone, got.Differences[0].Edit)
}

func TestReconciler_RelocatedBlockReportsDisplacedText(t *testing.T) {
	t.Parallel()

	// "moved" sits at the start of the base and near the end of the witness.
	p := newPair("moved one two three", "one two moved three")

	got := p.reconcile(move(1, frag(1, 0, 6), frag(2, 8, 14)))

	blocks := ofType(got.Differences, collate.DiffMove)
	require.Len(t, blocks, 1)

	for _, d := range got.Differences {
		if d.Type == collate.DiffMove {
			continue
		}
		// Nothing outside the move may cover the moved text itself.
		if d.BaseLength > 0 {
			assert.False(t, d.BaseOffset < 6 && d.BaseEnd() > 0, "base span %+v overlaps moved block", d)
		}
		if d.WitnessLength > 0 {
			assert.False(t, d.WitnessOffset < 14 && d.WitnessEnd() > 8, "witness span %+v overlaps moved block", d)
		}
	}
}

// fixedDiffer returns a hand-built alignment for whole documents and no
// differences for sub-ranges.
func fixedDiffer(full collate.Alignment) *mock.TokenDiffer {
	return &mock.TokenDiffer{
		DiffFn: func(base, witness collate.TokenizedText) collate.Alignment {
			if base.Start == 0 && base.End == len(base.Text) {
				return full
			}
			return collate.Alignment{}
		},
	}
}

// recordingTokenizer produces no tokens and records the documents it saw.
func recordingTokenizer(seen *[]string) *mock.Tokenizer {
	return &mock.Tokenizer{
		TokenizeFn: func(doc collate.Document) collate.TokenizedText {
			*seen = append(*seen, doc.Text)
			return collate.TokenizedText{DocID: doc.ID, Text: doc.Text, End: len(doc.Text)}
		},
	}
}

func TestReconciler_MaskingShapes(t *testing.T) {
	t.Parallel()

	reconcileTexts := func(baseText, witnessText string, d collate.Difference, m collate.Move) ([]collate.Difference, []string) {
		base := collate.TokenizedText{DocID: 1, Text: baseText, End: len(baseText)}
		witness := collate.TokenizedText{DocID: 2, Text: witnessText, End: len(witnessText)}
		d.BaseID, d.WitnessID = 1, 2
		full := collate.Alignment{
			Set: collate.DifferenceSet{BaseID: 1, WitnessID: 2, Differences: []collate.Difference{d}},
			Anchors: []collate.Anchor{
				{Base: 0, Witness: 0},
				{Base: len(baseText), Witness: len(witnessText)},
			},
		}
		var seen []string
		set := collate.NewReconciler(recordingTokenizer(&seen), fixedDiffer(full)).Reconcile(base, witness, []collate.Move{m})
		var out []collate.Difference
		for _, d := range set.Differences {
			if d.Type != collate.DiffMove && d.Distance != collate.MaxDistance {
				out = append(out, d)
			}
		}
		return out, seen
	}
	reconcile := func(d collate.Difference, m collate.Move) []collate.Difference {
		out, _ := reconcileTexts("0123456789abcdefghij", "ABCDEFGHIJKLMNOPQRST", d, m)
		return out
	}

	t.Run("fully covered delete is discarded", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffDelete, BaseOffset: 2, BaseLength: 3, WitnessOffset: 2}
		got := reconcile(d, move(1, frag(1, 0, 6), frag(2, 14, 20)))
		assert.Empty(t, got)
	})

	t.Run("partially covered delete is truncated", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffDelete, BaseOffset: 2, BaseLength: 6, WitnessOffset: 2}
		got := reconcile(d, move(1, frag(1, 5, 10), frag(2, 14, 20)))
		require.Len(t, got, 1)
		assert.Equal(t, collate.DiffDelete, got[0].Type)
		assert.Equal(t, 2, got[0].BaseOffset)
		assert.Equal(t, 3, got[0].BaseLength)
		assert.Equal(t, 3, got[0].Distance)
	})

	t.Run("insert split around a move", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffInsert, BaseOffset: 4, WitnessOffset: 2, WitnessLength: 10}
		got := reconcile(d, move(1, frag(1, 15, 18), frag(2, 5, 8)))
		require.Len(t, got, 2)
		assert.Equal(t, 2, got[0].WitnessOffset)
		assert.Equal(t, 3, got[0].WitnessLength)
		assert.Equal(t, 8, got[1].WitnessOffset)
		assert.Equal(t, 4, got[1].WitnessLength)
		for _, d := range got {
			assert.Equal(t, collate.DiffInsert, d.Type)
			assert.Equal(t, 0, d.BaseLength)
		}
	})

	t.Run("change truncated on both sides stays a change", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffChange, BaseOffset: 0, BaseLength: 6, WitnessOffset: 0, WitnessLength: 6}
		got := reconcile(d, move(1, frag(1, 4, 6), frag(2, 4, 6)))
		require.Len(t, got, 1)
		assert.Equal(t, collate.DiffChange, got[0].Type)
		assert.Equal(t, 4, got[0].BaseLength)
		assert.Equal(t, 4, got[0].WitnessLength)
		assert.Equal(t, collate.EditDistance("0123", "ABCD"), got[0].Distance)
	})

	t.Run("change losing its witness side becomes a delete", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffChange, BaseOffset: 10, BaseLength: 4, WitnessOffset: 10, WitnessLength: 4}
		got := reconcile(d, move(1, frag(1, 0, 2), frag(2, 10, 14)))
		require.Len(t, got, 1)
		assert.Equal(t, collate.DiffDelete, got[0].Type)
		assert.Equal(t, 10, got[0].BaseOffset)
		assert.Equal(t, 4, got[0].BaseLength)
		assert.Equal(t, 0, got[0].WitnessLength)
	})

	t.Run("split change is demoted to deletes and inserts", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffChange, BaseOffset: 0, BaseLength: 10, WitnessOffset: 0, WitnessLength: 10}
		got := reconcile(d, move(1, frag(1, 4, 6), frag(2, 15, 17)))
		assert.Len(t, ofType(got, collate.DiffDelete), 2)
		assert.Len(t, ofType(got, collate.DiffInsert), 1)
		assert.Empty(t, ofType(got, collate.DiffChange))
	})

	t.Run("moved block is tokenized from its own text", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffDelete, BaseOffset: 2, BaseLength: 6, WitnessOffset: 2}
		_, seen := reconcileTexts("0123456789abcdefghij", "ABCDEFGHIJKLMNOPQRST", d,
			move(1, frag(1, 5, 10), frag(2, 14, 20)))
		assert.Equal(t, []string{"56789", "OPQRST"}, seen)
	})

	t.Run("change cut mid-word measures the rest in runes", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffChange, BaseOffset: 0, BaseLength: 12, WitnessOffset: 0, WitnessLength: 12}
		got, seen := reconcileTexts("ääääää", "öööööö", d, move(1, frag(1, 8, 12), frag(2, 8, 12)))
		require.Len(t, got, 1)
		assert.Equal(t, collate.DiffChange, got[0].Type)
		assert.Equal(t, 8, got[0].BaseLength)
		assert.Equal(t, 8, got[0].WitnessLength)
		assert.Equal(t, 4, got[0].Distance)
		assert.Equal(t, []string{"ää", "öö"}, seen)
	})

	t.Run("insert cut mid-word keeps both outer pieces", func(t *testing.T) {
		t.Parallel()
		d := collate.Difference{Type: collate.DiffInsert, BaseOffset: 3, WitnessOffset: 0, WitnessLength: 11}
		got, _ := reconcileTexts("abc", "longwordtwo", d, move(1, frag(1, 0, 2), frag(2, 4, 8)))
		require.Len(t, got, 2)
		assert.Equal(t, 0, got[0].WitnessOffset)
		assert.Equal(t, 4, got[0].WitnessLength)
		assert.Equal(t, 8, got[1].WitnessOffset)
		assert.Equal(t, 3, got[1].WitnessLength)
	})
}

func TestReconciler_Idempotent(t *testing.T) {
	t.Parallel()

	p := newPair(
		"In the beginning was the word, and the word was with God.",
		"And the word was with God. In the beginning was the Word!",
	)
	moves := []collate.Move{
		move(1, frag(1, 0, 29), frag(2, 27, 57)),
	}

	first := p.reconcile(moves...)
	second := p.reconcile(moves...)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first.Differences)
}

func TestReconciler_OutputIsSorted(t *testing.T) {
	t.Parallel()

	p := newPair("AAA BBB CCC DDD", "DDD BBB CCC AAA")

	got := p.reconcile(
		move(2, frag(1, 12, 15), frag(2, 0, 3)),
		move(1, frag(1, 0, 3), frag(2, 12, 15)),
	)

	for i := 1; i < len(got.Differences); i++ {
		assert.LessOrEqual(t, got.Differences[i-1].BaseOffset, got.Differences[i].BaseOffset)
	}
}

func TestMeasureDistance(t *testing.T) {
	t.Parallel()

	base, witness := "naïve text", "naive texts"

	assert.Equal(t, 5, collate.MeasureDistance(collate.Difference{
		Type: collate.DiffDelete, BaseOffset: 0, BaseLength: 6,
	}, base, witness), "counts runes, not bytes")
	assert.Equal(t, 5, collate.MeasureDistance(collate.Difference{
		Type: collate.DiffInsert, WitnessOffset: 6, WitnessLength: 5,
	}, base, witness))
	assert.Equal(t, 1, collate.MeasureDistance(collate.Difference{
		Type: collate.DiffChange, BaseOffset: 0, BaseLength: 6, WitnessOffset: 0, WitnessLength: 5,
	}, base, witness))
}
