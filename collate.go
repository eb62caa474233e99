// Package collate provides domain types for move-aware collation of
// document witnesses against a base document.
package collate

import (
	"context"
	"errors"
	"math"
	"slices"
)

// Document is a base or witness text taking part in a comparison set.
type Document struct {
	ID   int    // Stable within a session, reassigned on reload
	Name string // Durable cross-reference used by move persistence
	Text string
}

// Len returns the length of the document's active text in bytes.
func (d Document) Len() int {
	return len(d.Text)
}

// DifferenceType represents the kind of a difference.
type DifferenceType int

// Difference types.
const (
	DiffNone DifferenceType = iota
	DiffInsert
	DiffDelete
	DiffChange
	DiffMove
)

// String returns the lower-case name of the difference type.
func (t DifferenceType) String() string {
	switch t {
	case DiffInsert:
		return "insert"
	case DiffDelete:
		return "delete"
	case DiffChange:
		return "change"
	case DiffMove:
		return "move"
	default:
		return "none"
	}
}

// MaxDistance marks differences that must never be suppressed by a
// minimum change distance filter.
const MaxDistance = math.MaxInt32

// Difference is a single localized discrepancy between a base span and a
// witness span. Offsets are byte offsets into the respective document text.
type Difference struct {
	BaseID        int            `json:"base_id"`
	WitnessID     int            `json:"witness_id"`
	Type          DifferenceType `json:"type"`
	BaseOffset    int            `json:"base_offset"`
	BaseLength    int            `json:"base_length"`    // 0 for inserts
	WitnessOffset int            `json:"witness_offset"`
	WitnessLength int            `json:"witness_length"` // 0 for deletes
	Distance      int            `json:"distance"`
	MoveID        int            `json:"move_id,omitempty"` // Set on MOVE differences
	Edit          DifferenceType `json:"edit,omitempty"`    // Intra-block edit kind of a MOVE difference
}

// BaseEnd returns the exclusive end of the base span.
func (d Difference) BaseEnd() int {
	return d.BaseOffset + d.BaseLength
}

// WitnessEnd returns the exclusive end of the witness span.
func (d Difference) WitnessEnd() int {
	return d.WitnessOffset + d.WitnessLength
}

// WithBaseSpan returns a copy of d covering a different base span.
func (d Difference) WithBaseSpan(offset, length int) Difference {
	d.BaseOffset = offset
	d.BaseLength = length
	return d
}

// WithWitnessSpan returns a copy of d covering a different witness span.
func (d Difference) WithWitnessSpan(offset, length int) Difference {
	d.WitnessOffset = offset
	d.WitnessLength = length
	return d
}

// WithType returns a copy of d with a different type.
func (d Difference) WithType(t DifferenceType) Difference {
	d.Type = t
	return d
}

// WithDistance returns a copy of d with a different distance.
func (d Difference) WithDistance(distance int) Difference {
	d.Distance = distance
	return d
}

// Suppressible reports whether a minimum change distance filter may hide d.
func (d Difference) Suppressible() bool {
	return d.Type != DiffMove && d.Distance != MaxDistance
}

// DifferenceSet holds the differences between exactly one base/witness pair.
type DifferenceSet struct {
	BaseID      int          `json:"base_id"`
	WitnessID   int          `json:"witness_id"`
	SymbolCount int          `json:"symbol_count"` // Bytes compared on both sides
	Differences []Difference `json:"differences"`
}

// Len returns the number of differences in the set.
func (s DifferenceSet) Len() int {
	return len(s.Differences)
}

// Similarity returns the share of compared bytes not covered by a
// difference, in [0, 1]. MOVE blocks count as matched material.
func (s DifferenceSet) Similarity() float64 {
	if s.SymbolCount <= 0 {
		return 1
	}
	changed := 0
	for _, d := range s.Differences {
		if d.Type == DiffMove && d.Edit == DiffNone {
			continue
		}
		changed += d.BaseLength + d.WitnessLength
	}
	ratio := 1 - float64(changed)/float64(s.SymbolCount)
	return math.Max(0, math.Min(1, ratio))
}

// References reports whether the set involves the given document.
func (s DifferenceSet) References(docID int) bool {
	if s.BaseID == docID || s.WitnessID == docID {
		return true
	}
	for _, d := range s.Differences {
		if d.BaseID == docID || d.WitnessID == docID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the set.
func (s DifferenceSet) Clone() DifferenceSet {
	s.Differences = slices.Clone(s.Differences)
	return s
}

// ErrCollationNotFound is returned by a CollationStore when no collation is
// cached for a base document.
var ErrCollationNotFound = errors.New("collation not found")

// CollationStore persists collations keyed by base document ID.
type CollationStore interface {
	// Exists reports whether a collation is cached without decoding it.
	Exists(baseID int) bool
	Load(baseID int) (*Collation, error)
	Save(baseID int, c *Collation) error
	Delete(baseID int) error
}

// MoveStore persists move records.
type MoveStore interface {
	Load(path string) ([]MoveRecord, error)
	Save(path string, records []MoveRecord) error
}

// DocumentLoader reads documents from a source.
type DocumentLoader interface {
	LoadDocuments(ctx context.Context, paths []string) ([]Document, error)
}

// Viewer displays a collation.
type Viewer interface {
	View(ctx context.Context, c *Collation, docs []Document) error
}

// Clipboard copies text to the system clipboard.
type Clipboard interface {
	Copy(content string) error
}
