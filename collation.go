package collate

import (
	"errors"
	"slices"
)

// DefaultResolution is the histogram bucket count used when a collation
// does not specify one.
const DefaultResolution = 1000

// ErrNotCollated is returned when a collation is requested for a document
// that is not part of the comparison set.
var ErrNotCollated = errors.New("document is not collated")

// Collation holds the differences between one base document and every
// witness. The exclusion filter and minimum change distance are applied at
// query time, so changing them never requires recomputation.
type Collation struct {
	BaseID            int             `json:"base_id"`
	BaseLength        int             `json:"base_length"`
	Witnesses         []DifferenceSet `json:"witnesses"` // Ordered by witness ID
	Moves             []Move          `json:"moves"`     // Snapshot at build time
	Resolution        int             `json:"resolution"`
	Excluded          map[int]bool    `json:"excluded,omitempty"`
	MinChangeDistance int             `json:"min_change_distance"`
}

// NewCollation creates an empty collation for a base document.
func NewCollation(base Document, resolution int) *Collation {
	return &Collation{
		BaseID:     base.ID,
		BaseLength: base.Len(),
		Resolution: resolution,
	}
}

// Witness returns the difference set for a witness.
func (c *Collation) Witness(witnessID int) (DifferenceSet, bool) {
	i := c.witnessIndex(witnessID)
	if i < 0 {
		return DifferenceSet{}, false
	}
	return c.Witnesses[i], true
}

// WitnessIDs returns the IDs of every witness in the collation.
func (c *Collation) WitnessIDs() []int {
	ids := make([]int, 0, len(c.Witnesses))
	for _, s := range c.Witnesses {
		ids = append(ids, s.WitnessID)
	}
	return ids
}

// AddWitness adds or replaces the difference set of a witness.
func (c *Collation) AddWitness(set DifferenceSet) {
	if i := c.witnessIndex(set.WitnessID); i >= 0 {
		c.Witnesses[i] = set
		return
	}
	i, _ := slices.BinarySearchFunc(c.Witnesses, set.WitnessID, func(s DifferenceSet, id int) int {
		return s.WitnessID - id
	})
	c.Witnesses = slices.Insert(c.Witnesses, i, set)
}

// RemoveWitness strips every reference to a document: its difference set,
// its filter entry and the moves touching it.
func (c *Collation) RemoveWitness(docID int) {
	c.Witnesses = slices.DeleteFunc(c.Witnesses, func(s DifferenceSet) bool {
		return s.References(docID)
	})
	c.Moves = slices.DeleteFunc(c.Moves, func(m Move) bool {
		return m.Touches(docID)
	})
	delete(c.Excluded, docID)
}

// References reports whether any witness set or move involves docID.
func (c *Collation) References(docID int) bool {
	for _, s := range c.Witnesses {
		if s.References(docID) {
			return true
		}
	}
	for _, m := range c.Moves {
		if m.Touches(docID) {
			return true
		}
	}
	return false
}

// Exclude hides a witness from histogram and difference queries.
func (c *Collation) Exclude(witnessID int) {
	if c.Excluded == nil {
		c.Excluded = make(map[int]bool)
	}
	c.Excluded[witnessID] = true
}

// Include reverses Exclude.
func (c *Collation) Include(witnessID int) {
	delete(c.Excluded, witnessID)
}

// IsExcluded reports whether a witness is filtered out.
func (c *Collation) IsExcluded(witnessID int) bool {
	return c.Excluded[witnessID]
}

// SetMinChangeDistance sets the threshold below which differences are
// suppressed from queries.
func (c *Collation) SetMinChangeDistance(distance int) {
	c.MinChangeDistance = max(0, distance)
}

// Differences returns the visible differences of one witness, or nil if the
// witness is excluded or unknown.
func (c *Collation) Differences(witnessID int) []Difference {
	if c.IsExcluded(witnessID) {
		return nil
	}
	set, ok := c.Witness(witnessID)
	if !ok {
		return nil
	}
	return c.visible(set)
}

// AllDifferences returns the visible differences of every included witness.
func (c *Collation) AllDifferences() []Difference {
	var out []Difference
	for _, s := range c.Witnesses {
		if c.IsExcluded(s.WitnessID) {
			continue
		}
		out = append(out, c.visible(s)...)
	}
	return out
}

func (c *Collation) visible(set DifferenceSet) []Difference {
	out := make([]Difference, 0, len(set.Differences))
	for _, d := range set.Differences {
		if d.Suppressible() && d.Distance < c.MinChangeDistance {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Histogram returns the density of difference activity over the base text.
// Each bucket holds the share of included witnesses with a visible
// difference touching it.
func (c *Collation) Histogram() []float64 {
	resolution := c.Resolution
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if c.BaseLength > 0 {
		resolution = min(resolution, c.BaseLength)
	}
	histogram := make([]float64, resolution)

	included := 0
	touched := make([]bool, resolution)
	for _, s := range c.Witnesses {
		if c.IsExcluded(s.WitnessID) {
			continue
		}
		included++
		clear(touched)
		for _, d := range c.visible(s) {
			first := c.bucket(d.BaseOffset, resolution)
			last := first
			if d.BaseLength > 0 {
				last = c.bucket(d.BaseEnd()-1, resolution)
			}
			for b := first; b <= last; b++ {
				touched[b] = true
			}
		}
		for b, t := range touched {
			if t {
				histogram[b]++
			}
		}
	}

	if included > 0 {
		for b := range histogram {
			histogram[b] /= float64(included)
		}
	}
	return histogram
}

func (c *Collation) bucket(offset, resolution int) int {
	if c.BaseLength <= 0 {
		return 0
	}
	return clamp(offset*resolution/c.BaseLength, 0, resolution-1)
}

// Clone returns a deep copy of the collation.
func (c *Collation) Clone() *Collation {
	out := *c
	out.Witnesses = slices.Clone(c.Witnesses)
	for i, s := range out.Witnesses {
		out.Witnesses[i] = s.Clone()
	}
	out.Moves = slices.Clone(c.Moves)
	if c.Excluded != nil {
		out.Excluded = make(map[int]bool, len(c.Excluded))
		for k, v := range c.Excluded {
			out.Excluded[k] = v
		}
	}
	return &out
}

func (c *Collation) witnessIndex(witnessID int) int {
	return slices.IndexFunc(c.Witnesses, func(s DifferenceSet) bool {
		return s.WitnessID == witnessID
	})
}
