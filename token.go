package collate

import "sort"

// TokenizerSettings is the normalization policy applied before diffing.
// Changing it invalidates every cached collation.
type TokenizerSettings struct {
	FilterCase        bool `mapstructure:"filter_case"`        // Ignore letter case when matching
	FilterPunctuation bool `mapstructure:"filter_punctuation"` // Ignore punctuation tokens
	FilterWhitespace  bool `mapstructure:"filter_whitespace"`  // Collapse whitespace runs
}

// DefaultTokenizerSettings returns the settings used for new comparison sets.
func DefaultTokenizerSettings() TokenizerSettings {
	return TokenizerSettings{
		FilterCase:        true,
		FilterPunctuation: true,
		FilterWhitespace:  true,
	}
}

// Token is one unit of comparison.
type Token struct {
	Text   string // Original text
	Key    string // Normalized text used for matching
	Offset int    // Byte offset in the document
}

// End returns the exclusive end offset of the token.
func (t Token) End() int {
	return t.Offset + len(t.Text)
}

// TokenizedText is the transient token table of a document, or of a range
// of it. Token offsets are always document-absolute.
type TokenizedText struct {
	DocID  int
	Text   string // Full document text
	Start  int    // Range covered, inclusive
	End    int    // Range covered, exclusive
	Tokens []Token
}

// TokenizeRange tokenizes text[start:end] on its own, so tokens crossing
// the range edges are cut there. Offsets stay document-absolute.
func TokenizeRange(tokenizer Tokenizer, docID int, text string, start, end int) TokenizedText {
	start = clamp(start, 0, len(text))
	end = clamp(end, start, len(text))
	part := tokenizer.Tokenize(Document{ID: docID, Text: text[start:end]})
	tokens := make([]Token, len(part.Tokens))
	for i, tok := range part.Tokens {
		tok.Offset += start
		tokens[i] = tok
	}
	return TokenizedText{
		DocID:  docID,
		Text:   text,
		Start:  start,
		End:    end,
		Tokens: tokens,
	}
}

// Tokenizer splits documents into tokens under a fixed policy.
type Tokenizer interface {
	Tokenize(doc Document) TokenizedText
}

// TokenDiffer aligns two token tables.
type TokenDiffer interface {
	// Diff returns INSERT, DELETE and CHANGE differences between the token
	// ranges together with the position mapping of the alignment.
	Diff(base, witness TokenizedText) Alignment
}

// Anchor is a pair of positions known to correspond.
type Anchor struct {
	Base    int
	Witness int
}

// Alignment is the result of a token diff: the differences plus a
// position mapping oracle between base and witness offsets.
type Alignment struct {
	Set     DifferenceSet
	Anchors []Anchor // Non-decreasing on both sides
}

// BaseToWitness maps a base offset to the corresponding witness offset.
func (a Alignment) BaseToWitness(offset int) int {
	return mapOffset(a.Anchors, offset,
		func(x Anchor) int { return x.Base },
		func(x Anchor) int { return x.Witness })
}

// WitnessToBase maps a witness offset to the corresponding base offset.
func (a Alignment) WitnessToBase(offset int) int {
	return mapOffset(a.Anchors, offset,
		func(x Anchor) int { return x.Witness },
		func(x Anchor) int { return x.Base })
}

// mapOffset finds the last anchor at or before offset on the from side and
// advances by the same distance on the to side, never passing the next anchor.
func mapOffset(anchors []Anchor, offset int, from, to func(Anchor) int) int {
	if len(anchors) == 0 {
		return offset
	}
	i := sort.Search(len(anchors), func(i int) bool { return from(anchors[i]) > offset })
	if i == 0 {
		return to(anchors[0])
	}
	prev := anchors[i-1]
	mapped := to(prev) + (offset - from(prev))
	if i < len(anchors) {
		mapped = min(mapped, to(anchors[i]))
	}
	return mapped
}

// EditDistance returns the Levenshtein distance between a and b in runes.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
