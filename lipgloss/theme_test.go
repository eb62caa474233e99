package lipgloss_test

import (
	"io"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/collate"
	collatelipgloss "github.com/fwojciec/collate/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestDefaultTheme(t *testing.T) {
	t.Parallel()

	t.Run("implements Theme interface", func(t *testing.T) {
		t.Parallel()

		var _ collate.Theme = collatelipgloss.DefaultTheme()
	})

	t.Run("returns same styles as DarkTheme", func(t *testing.T) {
		t.Parallel()

		defaultStyles := collatelipgloss.DefaultTheme().Styles()
		darkStyles := collatelipgloss.DarkTheme().Styles()

		assert.Equal(t, darkStyles, defaultStyles)
	})
}

func TestThemes_ColorEveryDifferenceType(t *testing.T) {
	t.Parallel()

	themes := map[string]collate.Theme{
		"dark":  collatelipgloss.DarkTheme(),
		"light": collatelipgloss.LightTheme(),
	}
	for name, theme := range themes {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			styles := theme.Styles()
			for _, typ := range []collate.DifferenceType{
				collate.DiffInsert, collate.DiffDelete, collate.DiffChange, collate.DiffMove,
			} {
				assert.NotEmpty(t, styles.ForDifference(typ).Foreground, typ.String())
			}
			assert.Empty(t, styles.ForDifference(collate.DiffNone))
			assert.NotEmpty(t, styles.Pending.Foreground)
			assert.NotEmpty(t, styles.Running.Foreground)
			assert.NotEmpty(t, styles.Completed.Foreground)
			assert.NotEmpty(t, styles.Bar.Foreground)
			assert.NotEmpty(t, styles.Bar.Background)
		})
	}
}

func TestThemes_DifferFromEachOther(t *testing.T) {
	t.Parallel()

	assert.NotEqual(t, collatelipgloss.DarkTheme().Styles(), collatelipgloss.LightTheme().Styles())
}

func TestThemeFor(t *testing.T) {
	t.Parallel()

	t.Run("dark background", func(t *testing.T) {
		t.Parallel()

		r := lipgloss.NewRenderer(io.Discard)
		r.SetHasDarkBackground(true)

		assert.Equal(t, collatelipgloss.DarkTheme().Styles(), collatelipgloss.ThemeFor(r).Styles())
	})

	t.Run("light background", func(t *testing.T) {
		t.Parallel()

		r := lipgloss.NewRenderer(io.Discard)
		r.SetHasDarkBackground(false)

		assert.Equal(t, collatelipgloss.LightTheme().Styles(), collatelipgloss.ThemeFor(r).Styles())
	})
}
