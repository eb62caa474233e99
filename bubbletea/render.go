package bubbletea

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/collate"
)

// renderConfig holds all rendering parameters for renderCollation.
type renderConfig struct {
	base     collate.Document
	witness  collate.Document
	diffs    []collate.Difference // Visible differences of one witness
	styles   collate.Styles
	renderer *lipgloss.Renderer
}

// renderCollation renders the base text with the differences of one witness
// marked inline. Deleted and changed base text is colored by difference
// kind, witness readings of inserts and changes are shown in brackets, and
// moved blocks are colored as moves unless an edit inside them overrides
// the color.
// If renderer is nil, the default lipgloss renderer is used.
func renderCollation(cfg renderConfig) string {
	text := cfg.base.Text
	kinds := make([]collate.DifferenceType, len(text))
	readings := make(map[int][]string)

	// Move blocks first so edits inside them take precedence.
	diffs := append([]collate.Difference(nil), cfg.diffs...)
	sort.SliceStable(diffs, func(i, j int) bool {
		return isMoveBlock(diffs[i]) && !isMoveBlock(diffs[j])
	})
	for _, d := range diffs {
		start := clampOffset(d.BaseOffset, len(text))
		end := clampOffset(d.BaseEnd(), len(text))
		kind := d.Type
		if d.Type == collate.DiffMove {
			kind = d.Edit
			if isMoveBlock(d) {
				kind = collate.DiffMove
			}
		}
		switch kind {
		case collate.DiffMove, collate.DiffDelete:
			fill(kinds[start:end], kind)
		case collate.DiffChange:
			fill(kinds[start:end], kind)
			readings[end] = append(readings[end], witnessText(cfg.witness, d))
		case collate.DiffInsert:
			readings[start] = append(readings[start], witnessText(cfg.witness, d))
		}
	}

	readingStyle := styleFromColorPair(cfg.styles.ForDifference(collate.DiffInsert), cfg.renderer)
	kindStyles := make(map[collate.DifferenceType]lipgloss.Style, 3)
	for _, t := range []collate.DifferenceType{collate.DiffDelete, collate.DiffChange, collate.DiffMove} {
		kindStyles[t] = styleFromColorPair(cfg.styles.ForDifference(t), cfg.renderer)
	}

	var sb strings.Builder
	col := 0
	for i := 0; i <= len(text); {
		for _, r := range readings[i] {
			col = writeStyled(&sb, readingStyle, "["+r+"]", col, true)
		}
		if i == len(text) {
			break
		}
		j := i + 1
		for j < len(text) && kinds[j] == kinds[i] && len(readings[j]) == 0 {
			j++
		}
		style, styled := kindStyles[kinds[i]]
		col = writeStyled(&sb, style, text[i:j], col, styled)
		i = j
	}
	return sb.String()
}

// writeStyled expands tabs in s and writes it line by line so backgrounds
// never pad across line breaks. It returns the column after s.
func writeStyled(sb *strings.Builder, style lipgloss.Style, s string, col int, styled bool) int {
	s, end := expandTabs(s, col)
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if line == "" {
			continue
		}
		if styled {
			line = style.Render(line)
		}
		sb.WriteString(line)
	}
	return end
}

func isMoveBlock(d collate.Difference) bool {
	return d.Type == collate.DiffMove && d.Edit == collate.DiffNone
}

func witnessText(w collate.Document, d collate.Difference) string {
	start := clampOffset(d.WitnessOffset, len(w.Text))
	end := clampOffset(d.WitnessEnd(), len(w.Text))
	return w.Text[start:end]
}

func fill(kinds []collate.DifferenceType, kind collate.DifferenceType) {
	for i := range kinds {
		kinds[i] = kind
	}
}

func clampOffset(offset, n int) int {
	return max(0, min(offset, n))
}

// styleFromColorPair creates a lipgloss style from a ColorPair.
// If renderer is nil, the default lipgloss renderer is used.
func styleFromColorPair(cp collate.ColorPair, renderer *lipgloss.Renderer) lipgloss.Style {
	var style lipgloss.Style
	if renderer != nil {
		style = renderer.NewStyle()
	} else {
		style = lipgloss.NewStyle()
	}
	if cp.Foreground != "" {
		style = style.Foreground(lipgloss.Color(cp.Foreground))
	}
	if cp.Background != "" {
		style = style.Background(lipgloss.Color(cp.Background))
	}
	return style
}
