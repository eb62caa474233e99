// Package lipgloss provides theme implementations using the Lipgloss styling library.
package lipgloss

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/collate"
)

// Compile-time interface verification.
var _ collate.Theme = (*Theme)(nil)

// Theme implements collate.Theme with Lipgloss-compatible colors.
type Theme struct {
	styles collate.Styles
}

// Styles returns the color styles for this theme.
func (t *Theme) Styles() collate.Styles {
	return t.styles
}

// DefaultTheme returns the default theme (dark background optimized).
func DefaultTheme() *Theme {
	return DarkTheme()
}

// ThemeFor picks the dark or light theme from the background the renderer
// detects. A nil renderer uses the default renderer.
func ThemeFor(r *lipgloss.Renderer) *Theme {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if r.HasDarkBackground() {
		return DarkTheme()
	}
	return LightTheme()
}

// DarkTheme returns a theme optimized for dark terminal backgrounds.
func DarkTheme() *Theme {
	return &Theme{
		styles: collate.Styles{
			Pending: collate.ColorPair{
				Foreground: "#6c7086", // Muted gray
			},
			Running: collate.ColorPair{
				Foreground: "#89b4fa", // Blue
			},
			Completed: collate.ColorPair{
				Foreground: "#a6e3a1", // Green
			},
			Bar: collate.ColorPair{
				Foreground: "#89b4fa",
				Background: "#313244", // Dark surface
			},
			Insert: collate.ColorPair{
				Foreground: "#a6e3a1", // Green
				Background: "#004000",
			},
			Delete: collate.ColorPair{
				Foreground: "#f38ba8", // Red
				Background: "#3f0001",
			},
			Change: collate.ColorPair{
				Foreground: "#f9e2af", // Yellow
				Background: "#3a3000",
			},
			Move: collate.ColorPair{
				Foreground: "#1e1e2e", // Dark text on bright background
				Background: "#cba6f7", // Mauve
			},
		},
	}
}

// LightTheme returns a theme optimized for light terminal backgrounds.
func LightTheme() *Theme {
	return &Theme{
		styles: collate.Styles{
			Pending: collate.ColorPair{
				Foreground: "#9ca0b0",
			},
			Running: collate.ColorPair{
				Foreground: "#1e66f5",
			},
			Completed: collate.ColorPair{
				Foreground: "#40a02b",
			},
			Bar: collate.ColorPair{
				Foreground: "#1e66f5",
				Background: "#e6e9ef", // Light surface
			},
			Insert: collate.ColorPair{
				Foreground: "#40a02b",
				Background: "#d4f4d4",
			},
			Delete: collate.ColorPair{
				Foreground: "#d20f39",
				Background: "#f4d4d4",
			},
			Change: collate.ColorPair{
				Foreground: "#df8e1d",
				Background: "#f8ecd0",
			},
			Move: collate.ColorPair{
				Foreground: "#ffffff", // White text on dark background
				Background: "#8839ef",
			},
		},
	}
}
