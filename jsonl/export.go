package jsonl

import (
	"encoding/json"
	"io"

	"github.com/fwojciec/collate"
)

// DifferenceRecord is the exported form of one visible difference.
type DifferenceRecord struct {
	Base          string `json:"base"`
	Witness       string `json:"witness"`
	Type          string `json:"type"`
	Edit          string `json:"edit,omitempty"`
	MoveID        int    `json:"move_id,omitempty"`
	BaseOffset    int    `json:"base_offset"`
	BaseLength    int    `json:"base_length"`
	WitnessOffset int    `json:"witness_offset"`
	WitnessLength int    `json:"witness_length"`
	Distance      int    `json:"distance"`
	BaseText      string `json:"base_text"`
	WitnessText   string `json:"witness_text"`
}

// Exporter writes the visible differences of collations as JSONL.
type Exporter struct {
	w io.Writer
}

// NewExporter creates an Exporter writing to w.
func NewExporter(w io.Writer) *Exporter {
	return &Exporter{w: w}
}

// Export writes one record per visible difference of c. docs resolves
// document IDs to names and texts; unknown witnesses are skipped.
func (e *Exporter) Export(c *collate.Collation, docs []collate.Document) (int, error) {
	byID := make(map[int]collate.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	base, ok := byID[c.BaseID]
	if !ok {
		return 0, &collate.UnknownDocumentError{ID: c.BaseID}
	}

	enc := json.NewEncoder(e.w)
	n := 0
	for _, id := range c.WitnessIDs() {
		witness, ok := byID[id]
		if !ok {
			continue
		}
		for _, d := range c.Differences(id) {
			r := DifferenceRecord{
				Base:          base.Name,
				Witness:       witness.Name,
				Type:          d.Type.String(),
				MoveID:        d.MoveID,
				BaseOffset:    d.BaseOffset,
				BaseLength:    d.BaseLength,
				WitnessOffset: d.WitnessOffset,
				WitnessLength: d.WitnessLength,
				Distance:      d.Distance,
				BaseText:      base.Text[d.BaseOffset:d.BaseEnd()],
				WitnessText:   witness.Text[d.WitnessOffset:d.WitnessEnd()],
			}
			if d.Edit != collate.DiffNone {
				r.Edit = d.Edit.String()
			}
			if err := enc.Encode(r); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}
