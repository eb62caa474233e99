package collate

import (
	"errors"
	"fmt"
	"slices"
)

// Fragment is a half-open range [Start, End) of byte offsets in one
// document's active text.
type Fragment struct {
	DocID int `json:"doc_id"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the fragment length.
func (f Fragment) Len() int {
	return f.End - f.Start
}

// Contains reports whether offset lies inside the fragment.
func (f Fragment) Contains(offset int) bool {
	return offset >= f.Start && offset < f.End
}

// Valid reports whether the fragment is non-empty and lies inside a text
// of docLen bytes.
func (f Fragment) Valid(docLen int) bool {
	return f.Start >= 0 && f.Start < f.End && f.End <= docLen
}

// Overlaps reports whether two fragments of the same document share text.
func (f Fragment) Overlaps(o Fragment) bool {
	return f.DocID == o.DocID && f.Start < o.End && o.Start < f.End
}

// Move asserts that the text at First is the same material, relocated, as
// the text at Second. Stored moves keep First.DocID < Second.DocID.
type Move struct {
	ID     int      `json:"id"`
	First  Fragment `json:"first"`
	Second Fragment `json:"second"`
}

// Swapped returns the move with its fragments exchanged.
func (m Move) Swapped() Move {
	m.First, m.Second = m.Second, m.First
	return m
}

// Fragment returns the fragment of the move in the given document.
func (m Move) Fragment(docID int) (Fragment, bool) {
	switch docID {
	case m.First.DocID:
		return m.First, true
	case m.Second.DocID:
		return m.Second, true
	}
	return Fragment{}, false
}

// Touches reports whether either fragment lies in the given document.
func (m Move) Touches(docID int) bool {
	return m.First.DocID == docID || m.Second.DocID == docID
}

func (m Move) canonical() Move {
	if m.First.DocID > m.Second.DocID {
		return m.Swapped()
	}
	return m
}

// MoveRejection identifies why a move request was refused.
type MoveRejection string

// Move rejection reasons.
const (
	RejectSameDocument MoveRejection = "same_document"
	RejectEmpty        MoveRejection = "empty"
	RejectOutOfRange   MoveRejection = "out_of_range"
	RejectOverlap      MoveRejection = "overlap"
	RejectNotFound     MoveRejection = "not_found"
)

// MoveError describes a refused move request.
type MoveError struct {
	Reason   MoveRejection
	Fragment Fragment // The offending fragment
	DocLen   int      // Document length (for out_of_range)
	Conflict Move     // The existing move (for overlap)
	MoveID   int      // The requested move (for not_found)
}

// Error implements the error interface.
func (e *MoveError) Error() string {
	switch e.Reason {
	case RejectSameDocument:
		return fmt.Sprintf("move fragments must be in different documents (document %d)", e.Fragment.DocID)
	case RejectEmpty:
		return fmt.Sprintf("fragment [%d,%d) of document %d is empty",
			e.Fragment.Start, e.Fragment.End, e.Fragment.DocID)
	case RejectOutOfRange:
		return fmt.Sprintf("fragment [%d,%d) of document %d is outside the text (valid: 0-%d)",
			e.Fragment.Start, e.Fragment.End, e.Fragment.DocID, e.DocLen)
	case RejectOverlap:
		return fmt.Sprintf("fragment [%d,%d) of document %d overlaps move %d",
			e.Fragment.Start, e.Fragment.End, e.Fragment.DocID, e.Conflict.ID)
	case RejectNotFound:
		return fmt.Sprintf("move %d not found", e.MoveID)
	default:
		return fmt.Sprintf("invalid move in document %d", e.Fragment.DocID)
	}
}

// MoveList is the authoritative set of moves in a comparison set.
// It is not safe for concurrent use.
type MoveList struct {
	moves  []Move
	nextID int
}

// NewMoveList creates an empty move list.
func NewMoveList() *MoveList {
	return &MoveList{nextID: 1}
}

// Len returns the number of moves.
func (l *MoveList) Len() int {
	return len(l.moves)
}

// All returns a copy of every move in creation order.
func (l *MoveList) All() []Move {
	return slices.Clone(l.moves)
}

// Clone returns a deep copy of the list.
func (l *MoveList) Clone() *MoveList {
	return &MoveList{moves: slices.Clone(l.moves), nextID: l.nextID}
}

// Create validates and stores a new move pairing a and b, whose documents
// have the given lengths. Invalid requests return a *MoveError.
func (l *MoveList) Create(a, b Fragment, lenA, lenB int) (Move, error) {
	m := Move{First: a, Second: b}.canonical()
	if m.First.DocID != a.DocID {
		lenA, lenB = lenB, lenA
	}
	if err := l.validate(m, lenA, lenB, 0); err != nil {
		return Move{}, err
	}
	m.ID = l.nextID
	l.nextID++
	l.moves = append(l.moves, m)
	return m, nil
}

// Update replaces the fragments of an existing move.
func (l *MoveList) Update(id int, a, b Fragment, lenA, lenB int) (Move, error) {
	idx := l.index(id)
	if idx < 0 {
		return Move{}, &MoveError{Reason: RejectNotFound, MoveID: id}
	}
	m := Move{ID: id, First: a, Second: b}.canonical()
	if m.First.DocID != a.DocID {
		lenA, lenB = lenB, lenA
	}
	if err := l.validate(m, lenA, lenB, id); err != nil {
		return Move{}, err
	}
	l.moves[idx] = m
	return m, nil
}

// Delete removes a move, reporting whether it existed.
func (l *MoveList) Delete(id int) bool {
	idx := l.index(id)
	if idx < 0 {
		return false
	}
	l.moves = slices.Delete(l.moves, idx, idx+1)
	return true
}

// ForPair returns copies of the moves between two documents, oriented so
// that First lies in docA.
func (l *MoveList) ForPair(docA, docB int) []Move {
	var out []Move
	for _, m := range l.moves {
		switch {
		case m.First.DocID == docA && m.Second.DocID == docB:
			out = append(out, m)
		case m.First.DocID == docB && m.Second.DocID == docA:
			out = append(out, m.Swapped())
		}
	}
	return out
}

// At returns the moves whose fragment in docID contains offset.
func (l *MoveList) At(docID, offset int) []Move {
	var out []Move
	for _, m := range l.moves {
		if f, ok := m.Fragment(docID); ok && f.Contains(offset) {
			out = append(out, m)
		}
	}
	return out
}

// ForDocument returns the moves touching a document.
func (l *MoveList) ForDocument(docID int) []Move {
	var out []Move
	for _, m := range l.moves {
		if m.Touches(docID) {
			out = append(out, m)
		}
	}
	return out
}

// RemoveDocument drops every move touching docID and returns how many
// were removed.
func (l *MoveList) RemoveDocument(docID int) int {
	before := len(l.moves)
	l.moves = slices.DeleteFunc(l.moves, func(m Move) bool {
		return m.Touches(docID)
	})
	return before - len(l.moves)
}

func (l *MoveList) index(id int) int {
	return slices.IndexFunc(l.moves, func(m Move) bool { return m.ID == id })
}

// validate checks m against document bounds and every stored move except
// the one with ID skip.
func (l *MoveList) validate(m Move, lenFirst, lenSecond, skip int) error {
	if m.First.DocID == m.Second.DocID {
		return &MoveError{Reason: RejectSameDocument, Fragment: m.First}
	}
	for _, fc := range []struct {
		frag   Fragment
		docLen int
	}{{m.First, lenFirst}, {m.Second, lenSecond}} {
		if fc.frag.Len() <= 0 {
			return &MoveError{Reason: RejectEmpty, Fragment: fc.frag}
		}
		if !fc.frag.Valid(fc.docLen) {
			return &MoveError{Reason: RejectOutOfRange, Fragment: fc.frag, DocLen: fc.docLen}
		}
	}
	for _, existing := range l.moves {
		if existing.ID == skip {
			continue
		}
		for _, f := range []Fragment{m.First, m.Second} {
			if ef, ok := existing.Fragment(f.DocID); ok && ef.Overlaps(f) {
				return &MoveError{Reason: RejectOverlap, Fragment: f, Conflict: existing}
			}
		}
	}
	return nil
}

// MoveRecord is the durable form of a move. Documents are referenced by
// name because IDs are reassigned when an archive is reopened.
type MoveRecord struct {
	Doc1   string `json:"doc1"`
	Start1 int    `json:"start1"`
	End1   int    `json:"end1"`
	Doc2   string `json:"doc2"`
	Start2 int    `json:"start2"`
	End2   int    `json:"end2"`
}

// ErrUnknownDocument is returned when a move references a document that is
// not part of the comparison set.
var ErrUnknownDocument = errors.New("unknown document")

// UnknownDocumentError names the unresolved document.
type UnknownDocumentError struct {
	Name string // Set when resolving records by name
	ID   int    // Set when encoding moves by ID
}

func (e *UnknownDocumentError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("unknown document %q", e.Name)
	}
	return fmt.Sprintf("unknown document %d", e.ID)
}

func (e *UnknownDocumentError) Unwrap() error {
	return ErrUnknownDocument
}

// Records converts the list to name-keyed records.
func (l *MoveList) Records(docs []Document) ([]MoveRecord, error) {
	names := make(map[int]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	records := make([]MoveRecord, 0, len(l.moves))
	for _, m := range l.moves {
		n1, ok := names[m.First.DocID]
		if !ok {
			return nil, &UnknownDocumentError{ID: m.First.DocID}
		}
		n2, ok := names[m.Second.DocID]
		if !ok {
			return nil, &UnknownDocumentError{ID: m.Second.DocID}
		}
		records = append(records, MoveRecord{
			Doc1: n1, Start1: m.First.Start, End1: m.First.End,
			Doc2: n2, Start2: m.Second.Start, End2: m.Second.End,
		})
	}
	return records, nil
}

// NewMoveListFromRecords resolves records against the live document set.
// Every record must name a known document and describe a valid move.
func NewMoveListFromRecords(records []MoveRecord, docs []Document) (*MoveList, error) {
	byName := make(map[string]Document, len(docs))
	for _, d := range docs {
		byName[d.Name] = d
	}
	l := NewMoveList()
	for i, r := range records {
		d1, ok := byName[r.Doc1]
		if !ok {
			return nil, fmt.Errorf("move %d: %w", i+1, &UnknownDocumentError{Name: r.Doc1})
		}
		d2, ok := byName[r.Doc2]
		if !ok {
			return nil, fmt.Errorf("move %d: %w", i+1, &UnknownDocumentError{Name: r.Doc2})
		}
		a := Fragment{DocID: d1.ID, Start: r.Start1, End: r.End1}
		b := Fragment{DocID: d2.ID, Start: r.Start2, End: r.End2}
		if _, err := l.Create(a, b, d1.Len(), d2.Len()); err != nil {
			return nil, fmt.Errorf("move %d: %w", i+1, err)
		}
	}
	return l, nil
}
