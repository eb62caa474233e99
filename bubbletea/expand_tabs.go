package bubbletea

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const tabWidth = 8

// ExpandTabs converts tab characters to the appropriate number of spaces
// based on standard 8-column tab stops. The startCol parameter indicates
// the column position where the string begins, which affects how the first
// tab is expanded. A newline resets the column to zero.
func ExpandTabs(s string, startCol int) string {
	out, _ := expandTabs(s, startCol)
	return out
}

// expandTabs is ExpandTabs that also returns the column after s.
func expandTabs(s string, col int) (string, int) {
	if !strings.ContainsAny(s, "\t\n") {
		return s, col + lipgloss.Width(s)
	}

	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\t':
			nextStop := ((col / tabWidth) + 1) * tabWidth
			sb.WriteString(strings.Repeat(" ", nextStop-col))
			col = nextStop
		case '\n':
			sb.WriteRune(r)
			col = 0
		default:
			sb.WriteRune(r)
			col += lipgloss.Width(string(r))
		}
	}
	return sb.String(), col
}
