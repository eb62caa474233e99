package collate

// ColorPair represents a foreground and background color combination.
// Colors should be hex strings in "#RRGGBB" format (e.g., "#ff0000" for red).
// Empty strings are valid and indicate no color override (use terminal default).
type ColorPair struct {
	Foreground string
	Background string
}

// Styles contains color pairs for collation progress and difference kinds.
type Styles struct {
	Pending   ColorPair // Documents waiting in the queue
	Running   ColorPair // Document currently being collated
	Completed ColorPair // Documents with a cached collation
	Bar       ColorPair // Progress bar fill (Foreground) and track (Background)
	Insert    ColorPair
	Delete    ColorPair
	Change    ColorPair
	Move      ColorPair
}

// ForDifference returns the color pair used to render a difference type.
func (s Styles) ForDifference(t DifferenceType) ColorPair {
	switch t {
	case DiffInsert:
		return s.Insert
	case DiffDelete:
		return s.Delete
	case DiffChange:
		return s.Change
	case DiffMove:
		return s.Move
	default:
		return ColorPair{}
	}
}

// Theme provides styles for rendering collation state.
// Different implementations can provide light/dark variants.
type Theme interface {
	Styles() Styles
}
