// Package tokendiff implements the token diff primitive: a prose tokenizer
// with configurable normalization and an alignment of two token tables.
package tokendiff

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fwojciec/collate"
)

// Compile-time interface verification.
var (
	_ collate.Tokenizer   = (*Differ)(nil)
	_ collate.TokenDiffer = (*Differ)(nil)
)

// maxEditDistance bounds the edit script search in tokens. Ranges further
// apart than this are reported as a single replacement.
const maxEditDistance = 2000

// Differ tokenizes documents and computes token-level differences.
type Differ struct {
	settings collate.TokenizerSettings
}

// NewDiffer creates a new Differ using the given normalization policy.
func NewDiffer(settings collate.TokenizerSettings) *Differ {
	return &Differ{settings: settings}
}

// Settings returns the normalization policy of the differ.
func (d *Differ) Settings() collate.TokenizerSettings {
	return d.settings
}

// Tokenize splits a document into tokens using a hand-written scanner.
// Token types: words, whitespace runs, single punctuation or symbol runes.
func (d *Differ) Tokenize(doc collate.Document) collate.TokenizedText {
	s := doc.Text
	out := collate.TokenizedText{
		DocID: doc.ID,
		Text:  s,
		Start: 0,
		End:   len(s),
	}
	if len(s) == 0 {
		return out
	}

	// Pre-allocate with estimated capacity (avoid reallocations)
	tokens := make([]collate.Token, 0, len(s)/3+1)
	i := 0

	for i < len(s) {
		start := i
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case isWordRune(r):
			// Word: letters, digits and marks, with inner apostrophes
			i += size
			for i < len(s) {
				r, size = utf8.DecodeRuneInString(s[i:])
				if isWordRune(r) {
					i += size
					continue
				}
				if isApostrophe(r) && i+size < len(s) {
					next, _ := utf8.DecodeRuneInString(s[i+size:])
					if isWordRune(next) {
						i += size
						continue
					}
				}
				break
			}
			tokens = d.appendToken(tokens, s[start:i], start, false)

		case unicode.IsSpace(r):
			// Whitespace run
			i += size
			for i < len(s) {
				r, size = utf8.DecodeRuneInString(s[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			tokens = d.appendToken(tokens, s[start:i], start, false)

		default:
			// Single punctuation, symbol or other rune
			i += size
			tokens = d.appendToken(tokens, s[start:i], start, true)
		}
	}

	out.Tokens = tokens
	return out
}

func (d *Differ) appendToken(tokens []collate.Token, text string, offset int, punct bool) []collate.Token {
	if punct && d.settings.FilterPunctuation {
		return tokens
	}
	return append(tokens, collate.Token{
		Text:   text,
		Key:    d.key(text),
		Offset: offset,
	})
}

func (d *Differ) key(text string) string {
	r, _ := utf8.DecodeRuneInString(text)
	if d.settings.FilterWhitespace && unicode.IsSpace(r) {
		return " "
	}
	if d.settings.FilterCase {
		return strings.ToLower(text)
	}
	return text
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}

// Diff aligns the witness token range against the base token range and
// returns the gaps between matched tokens as differences.
func (d *Differ) Diff(base, witness collate.TokenizedText) collate.Alignment {
	b, w := base.Tokens, witness.Tokens
	set := collate.DifferenceSet{
		BaseID:      base.DocID,
		WitnessID:   witness.DocID,
		SymbolCount: (base.End - base.Start) + (witness.End - witness.Start),
	}

	matches := alignTokens(b, w)

	anchors := make([]collate.Anchor, 0, 2*len(matches)+2)
	anchors = append(anchors, collate.Anchor{Base: base.Start, Witness: witness.Start})

	prevI, prevJ := -1, -1
	gap := func(i, j int) {
		diff, ok := gapDifference(base, witness, prevI, i, prevJ, j)
		if ok {
			set.Differences = append(set.Differences, diff)
		}
	}
	for _, m := range matches {
		gap(m.base, m.witness)
		bt, wt := b[m.base], w[m.witness]
		anchors = append(anchors,
			collate.Anchor{Base: bt.Offset, Witness: wt.Offset},
			collate.Anchor{Base: bt.End(), Witness: wt.End()},
		)
		prevI, prevJ = m.base, m.witness
	}
	gap(len(b), len(w))

	anchors = append(anchors, collate.Anchor{Base: base.End, Witness: witness.End})
	return collate.Alignment{Set: set, Anchors: anchors}
}

// gapDifference describes the unmatched tokens strictly between the
// matched positions (prevI, prevJ) and (i, j).
func gapDifference(base, witness collate.TokenizedText, prevI, i, prevJ, j int) (collate.Difference, bool) {
	baseGap, witnessGap := i-prevI-1, j-prevJ-1
	if baseGap == 0 && witnessGap == 0 {
		return collate.Difference{}, false
	}

	diff := collate.Difference{
		BaseID:    base.DocID,
		WitnessID: witness.DocID,
	}
	diff.BaseOffset, diff.BaseLength = gapSpan(base, prevI, i)
	diff.WitnessOffset, diff.WitnessLength = gapSpan(witness, prevJ, j)

	switch {
	case baseGap > 0 && witnessGap > 0:
		diff.Type = collate.DiffChange
	case baseGap > 0:
		diff.Type = collate.DiffDelete
	default:
		diff.Type = collate.DiffInsert
	}
	diff.Distance = collate.MeasureDistance(diff, base.Text, witness.Text)
	return diff, true
}

// gapSpan returns the byte span of tokens (prev, next). An empty gap sits at
// the end of the previous matched token.
func gapSpan(t collate.TokenizedText, prev, next int) (offset, length int) {
	if next-prev-1 == 0 {
		if prev >= 0 {
			return t.Tokens[prev].End(), 0
		}
		return t.Start, 0
	}
	first, last := t.Tokens[prev+1], t.Tokens[next-1]
	return first.Offset, last.End() - first.Offset
}

type match struct {
	base, witness int
}

// alignTokens returns the matched token index pairs in increasing order.
// Common prefix and suffix are matched directly; the middle is aligned with
// Myers' greedy shortest edit script.
func alignTokens(b, w []collate.Token) []match {
	prefix := 0
	for prefix < len(b) && prefix < len(w) && b[prefix].Key == w[prefix].Key {
		prefix++
	}
	suffix := 0
	for suffix < len(b)-prefix && suffix < len(w)-prefix &&
		b[len(b)-1-suffix].Key == w[len(w)-1-suffix].Key {
		suffix++
	}

	matches := make([]match, 0, prefix+suffix)
	for i := 0; i < prefix; i++ {
		matches = append(matches, match{i, i})
	}
	for _, m := range myers(b[prefix:len(b)-suffix], w[prefix:len(w)-suffix]) {
		matches = append(matches, match{m.base + prefix, m.witness + prefix})
	}
	for k := suffix; k > 0; k-- {
		matches = append(matches, match{len(b) - k, len(w) - k})
	}
	return matches
}

// myers computes matched pairs of a and b. Each step keeps only the
// diagonals reachable at that distance, so memory grows with the square of
// the edit distance rather than with the input size.
func myers(a, b []collate.Token) []match {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}

	limit := min(n+m, maxEditDistance)
	var trace [][]int
	var prev []int
	found := false

search:
	for d := 0; d <= limit; d++ {
		v := make([]int, 2*d+1)
		for k := -d; k <= d; k += 2 {
			var x int
			switch {
			case d == 0:
				x = 0
			case k == -d || (k != d && prev[k-1+d-1] < prev[k+1+d-1]):
				x = prev[k+1+d-1]
			default:
				x = prev[k-1+d-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x].Key == b[y].Key {
				x++
				y++
			}
			v[k+d] = x
			if x >= n && y >= m {
				trace = append(trace, v)
				found = true
				break search
			}
		}
		trace = append(trace, v)
		prev = v
	}
	if !found {
		return nil
	}

	// Backtrack from the end, collecting diagonal moves.
	var matches []match
	x, y := n, m
	for d := len(trace) - 1; d > 0; d-- {
		k := x - y
		pv := trace[d-1]
		var prevK int
		if k == -d || (k != d && pv[k-1+d-1] < pv[k+1+d-1]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := pv[prevK+d-1]
		prevY := prevX - prevK
		for x > prevX && y > prevY {
			x--
			y--
			matches = append(matches, match{x, y})
		}
		x, y = prevX, prevY
	}
	for x > 0 && y > 0 {
		x--
		y--
		matches = append(matches, match{x, y})
	}

	// Reverse matches (backtracking gives them in reverse order)
	for left, right := 0, len(matches)-1; left < right; left, right = left+1, right-1 {
		matches[left], matches[right] = matches[right], matches[left]
	}
	return matches
}
