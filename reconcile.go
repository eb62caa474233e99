package collate

import (
	"cmp"
	"slices"
	"unicode/utf8"
)

// Reconciler makes token diffs consistent with user-declared moves.
//
// It diffs the whole base and witness while ignoring moves, then repairs
// the result: differences explained by a move are discarded, truncated or
// split, every move contributes a MOVE block plus its intra-block edits,
// and the text a move displaced in the naive reading is reported as a
// synthesized delete/insert pair.
type Reconciler struct {
	tokenizer Tokenizer
	differ    TokenDiffer
}

// NewReconciler creates a Reconciler around a token diff primitive. The
// tokenizer re-reads moved blocks, whose edges may fall inside a word.
func NewReconciler(tokenizer Tokenizer, differ TokenDiffer) *Reconciler {
	return &Reconciler{tokenizer: tokenizer, differ: differ}
}

// Reconcile diffs base against witness and repairs the result around moves.
// Moves not joining the two documents are ignored.
func (r *Reconciler) Reconcile(base, witness TokenizedText, moves []Move) DifferenceSet {
	return r.Repair(r.differ.Diff(base, witness), base, witness, moves)
}

// Repair applies moves to an existing whole-document alignment.
func (r *Reconciler) Repair(full Alignment, base, witness TokenizedText, moves []Move) DifferenceSet {
	moves = orientMoves(moves, base.DocID, witness.DocID)
	if len(moves) == 0 {
		return full.Set
	}

	m := newMasker(full, base.Text, witness.Text, moves)
	out := DifferenceSet{
		BaseID:      full.Set.BaseID,
		WitnessID:   full.Set.WitnessID,
		SymbolCount: full.Set.SymbolCount,
	}
	for _, d := range full.Set.Differences {
		out.Differences = append(out.Differences, m.mask(d)...)
	}
	for _, mv := range moves {
		out.Differences = append(out.Differences, r.moveDifferences(m, mv, base, witness)...)
	}

	slices.SortFunc(out.Differences, compareDifferences)
	out.Differences = slices.Compact(out.Differences)
	return out
}

func (r *Reconciler) moveDifferences(m *masker, mv Move, base, witness TokenizedText) []Difference {
	out := []Difference{{
		BaseID:        base.DocID,
		WitnessID:     witness.DocID,
		Type:          DiffMove,
		BaseOffset:    mv.First.Start,
		BaseLength:    mv.First.Len(),
		WitnessOffset: mv.Second.Start,
		WitnessLength: mv.Second.Len(),
		Distance:      MaxDistance,
		MoveID:        mv.ID,
	}}

	// A moved block may still be edited internally.
	sub := r.differ.Diff(
		TokenizeRange(r.tokenizer, base.DocID, base.Text, mv.First.Start, mv.First.End),
		TokenizeRange(r.tokenizer, witness.DocID, witness.Text, mv.Second.Start, mv.Second.End),
	)
	for _, d := range sub.Set.Differences {
		d.Edit = d.Type
		d.Type = DiffMove
		d.MoveID = mv.ID
		out = append(out, d)
	}

	if b0, b1 := m.full.WitnessToBase(mv.Second.Start), m.full.WitnessToBase(mv.Second.End); b1 > b0 {
		out = append(out, m.mask(Difference{
			BaseID:        base.DocID,
			WitnessID:     witness.DocID,
			Type:          DiffDelete,
			BaseOffset:    b0,
			BaseLength:    b1 - b0,
			WitnessOffset: mv.Second.Start,
			Distance:      MaxDistance,
		})...)
	}
	if w0, w1 := m.full.BaseToWitness(mv.First.Start), m.full.BaseToWitness(mv.First.End); w1 > w0 {
		out = append(out, m.mask(Difference{
			BaseID:        base.DocID,
			WitnessID:     witness.DocID,
			Type:          DiffInsert,
			BaseOffset:    mv.First.Start,
			WitnessOffset: w0,
			WitnessLength: w1 - w0,
			Distance:      MaxDistance,
		})...)
	}
	return out
}

// orientMoves keeps the moves joining baseID and witnessID, oriented so
// that First lies in the base, ordered by base position.
func orientMoves(moves []Move, baseID, witnessID int) []Move {
	var out []Move
	for _, m := range moves {
		switch {
		case m.First.DocID == baseID && m.Second.DocID == witnessID:
			out = append(out, m)
		case m.First.DocID == witnessID && m.Second.DocID == baseID:
			out = append(out, m.Swapped())
		}
	}
	slices.SortFunc(out, func(a, b Move) int {
		return cmp.Or(cmp.Compare(a.First.Start, b.First.Start), cmp.Compare(a.ID, b.ID))
	})
	return out
}

type span struct {
	start, end int
}

func (s span) len() int {
	return s.end - s.start
}

// subtract removes holes (sorted, disjoint) from s. changed is false when
// no hole intersects s.
func subtract(s span, holes []span) (pieces []span, changed bool) {
	cur := s.start
	for _, h := range holes {
		if h.end <= s.start || h.start >= s.end {
			continue
		}
		changed = true
		if h.start > cur {
			pieces = append(pieces, span{cur, h.start})
		}
		cur = max(cur, h.end)
	}
	if !changed {
		return []span{s}, false
	}
	if cur < s.end {
		pieces = append(pieces, span{cur, s.end})
	}
	return pieces, true
}

// masker cuts move fragments out of differences.
type masker struct {
	full         Alignment
	baseText     string
	witnessText  string
	baseHoles    []span
	witnessHoles []span
}

func newMasker(full Alignment, baseText, witnessText string, moves []Move) *masker {
	m := &masker{full: full, baseText: baseText, witnessText: witnessText}
	for _, mv := range moves {
		m.baseHoles = append(m.baseHoles, span{mv.First.Start, mv.First.End})
		m.witnessHoles = append(m.witnessHoles, span{mv.Second.Start, mv.Second.End})
	}
	byStart := func(a, b span) int { return cmp.Compare(a.start, b.start) }
	slices.SortFunc(m.baseHoles, byStart)
	slices.SortFunc(m.witnessHoles, byStart)
	return m
}

func (m *masker) mask(d Difference) []Difference {
	baseSpan := span{d.BaseOffset, d.BaseEnd()}
	witnessSpan := span{d.WitnessOffset, d.WitnessEnd()}

	switch d.Type {
	case DiffInsert:
		pieces, changed := subtract(witnessSpan, m.witnessHoles)
		if !changed {
			return []Difference{d}
		}
		out := make([]Difference, 0, len(pieces))
		for _, p := range pieces {
			out = append(out, m.measure(d.WithWitnessSpan(p.start, p.len())))
		}
		return out

	case DiffDelete:
		pieces, changed := subtract(baseSpan, m.baseHoles)
		if !changed {
			return []Difference{d}
		}
		out := make([]Difference, 0, len(pieces))
		for _, p := range pieces {
			out = append(out, m.measure(d.WithBaseSpan(p.start, p.len())))
		}
		return out

	case DiffChange:
		pb, baseChanged := subtract(baseSpan, m.baseHoles)
		pw, witnessChanged := subtract(witnessSpan, m.witnessHoles)
		if !baseChanged && !witnessChanged {
			return []Difference{d}
		}
		if len(pb) <= 1 && len(pw) <= 1 {
			switch {
			case len(pb) == 1 && len(pw) == 1:
				return []Difference{m.measure(d.
					WithBaseSpan(pb[0].start, pb[0].len()).
					WithWitnessSpan(pw[0].start, pw[0].len()))}
			case len(pb) == 1:
				return []Difference{m.deletion(d, pb[0])}
			case len(pw) == 1:
				return []Difference{m.insertion(d, pw[0])}
			default:
				return nil
			}
		}
		// Once split the two sides no longer correspond.
		out := make([]Difference, 0, len(pb)+len(pw))
		for _, p := range pb {
			out = append(out, m.deletion(d, p))
		}
		for _, p := range pw {
			out = append(out, m.insertion(d, p))
		}
		return out
	}
	return []Difference{d}
}

// deletion demotes d to a DELETE of the base piece p.
func (m *masker) deletion(d Difference, p span) Difference {
	w := clamp(m.full.BaseToWitness(p.start), d.WitnessOffset, d.WitnessEnd())
	return m.measure(d.WithType(DiffDelete).
		WithBaseSpan(p.start, p.len()).
		WithWitnessSpan(w, 0))
}

// insertion demotes d to an INSERT of the witness piece p.
func (m *masker) insertion(d Difference, p span) Difference {
	b := clamp(m.full.WitnessToBase(p.start), d.BaseOffset, d.BaseEnd())
	return m.measure(d.WithType(DiffInsert).
		WithBaseSpan(b, 0).
		WithWitnessSpan(p.start, p.len()))
}

func (m *masker) measure(d Difference) Difference {
	if d.Distance == MaxDistance {
		return d
	}
	return d.WithDistance(MeasureDistance(d, m.baseText, m.witnessText))
}

// MeasureDistance returns the distance of d given the texts it indexes:
// the rune length of an insert or delete, the edit distance of a change.
func MeasureDistance(d Difference, baseText, witnessText string) int {
	baseSpan := baseText[d.BaseOffset:d.BaseEnd()]
	witnessSpan := witnessText[d.WitnessOffset:d.WitnessEnd()]
	switch d.Type {
	case DiffInsert:
		return utf8.RuneCountInString(witnessSpan)
	case DiffDelete:
		return utf8.RuneCountInString(baseSpan)
	default:
		return EditDistance(baseSpan, witnessSpan)
	}
}

func compareDifferences(a, b Difference) int {
	return cmp.Or(
		cmp.Compare(a.BaseOffset, b.BaseOffset),
		cmp.Compare(a.WitnessOffset, b.WitnessOffset),
		cmp.Compare(a.Type, b.Type),
		cmp.Compare(a.BaseLength, b.BaseLength),
		cmp.Compare(a.WitnessLength, b.WitnessLength),
		cmp.Compare(a.MoveID, b.MoveID),
		cmp.Compare(a.Edit, b.Edit),
		cmp.Compare(a.Distance, b.Distance),
	)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
