package collate_test

import (
	"testing"

	"github.com/fwojciec/collate"
	"github.com/stretchr/testify/assert"
)

func TestStyles_ForDifference(t *testing.T) {
	t.Parallel()

	s := collate.Styles{
		Insert: collate.ColorPair{Foreground: "#00ff00"},
		Delete: collate.ColorPair{Foreground: "#ff0000"},
		Change: collate.ColorPair{Foreground: "#ffff00"},
		Move:   collate.ColorPair{Background: "#ff00ff"},
	}

	tests := []struct {
		name string
		typ  collate.DifferenceType
		want collate.ColorPair
	}{
		{"insert", collate.DiffInsert, s.Insert},
		{"delete", collate.DiffDelete, s.Delete},
		{"change", collate.DiffChange, s.Change},
		{"move", collate.DiffMove, s.Move},
		{"none", collate.DiffNone, collate.ColorPair{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.ForDifference(tt.typ))
		})
	}
}
