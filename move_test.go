package collate_test

import (
	"errors"
	"testing"

	"github.com/fwojciec/collate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(doc, start, end int) collate.Fragment {
	return collate.Fragment{DocID: doc, Start: start, End: end}
}

func TestMoveList_Create(t *testing.T) {
	t.Parallel()

	t.Run("assigns increasing IDs", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()

		m1, err := l.Create(frag(1, 0, 3), frag(2, 5, 8), 10, 10)
		require.NoError(t, err)
		m2, err := l.Create(frag(1, 4, 6), frag(2, 0, 2), 10, 10)
		require.NoError(t, err)

		assert.Equal(t, 1, m1.ID)
		assert.Equal(t, 2, m2.ID)
		assert.Equal(t, 2, l.Len())
	})

	t.Run("stores lower document first", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()

		m, err := l.Create(frag(3, 0, 2), frag(1, 7, 9), 4, 10)
		require.NoError(t, err)

		assert.Equal(t, frag(1, 7, 9), m.First)
		assert.Equal(t, frag(3, 0, 2), m.Second)
	})

	t.Run("checks lengths against the right document after swap", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()

		// Document 3 has length 4, so [0,2) fits; document 1 has length 10.
		_, err := l.Create(frag(3, 0, 2), frag(1, 7, 10), 4, 10)
		require.NoError(t, err)
	})
}

func TestMoveList_Create_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		a, b   collate.Fragment
		reason collate.MoveRejection
	}{
		{"same document", frag(1, 0, 2), frag(1, 4, 6), collate.RejectSameDocument},
		{"empty fragment", frag(1, 3, 3), frag(2, 0, 2), collate.RejectEmpty},
		{"inverted fragment", frag(1, 5, 3), frag(2, 0, 2), collate.RejectEmpty},
		{"negative start", frag(1, -1, 2), frag(2, 0, 2), collate.RejectOutOfRange},
		{"past end", frag(1, 8, 11), frag(2, 0, 2), collate.RejectOutOfRange},
		{"past end of second document", frag(1, 4, 6), frag(2, 9, 11), collate.RejectOutOfRange},
		{"overlaps existing in first document", frag(1, 2, 5), frag(2, 8, 9), collate.RejectOverlap},
		{"overlaps existing in second document", frag(1, 8, 9), frag(2, 0, 1), collate.RejectOverlap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := collate.NewMoveList()
			_, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
			require.NoError(t, err)

			_, err = l.Create(tt.a, tt.b, 10, 10)

			var moveErr *collate.MoveError
			require.ErrorAs(t, err, &moveErr)
			assert.Equal(t, tt.reason, moveErr.Reason)
			assert.NotEmpty(t, moveErr.Error())
			assert.Equal(t, 1, l.Len(), "rejected move must not be stored")
		})
	}
}

func TestMoveList_Create_AgreesWithFragmentValid(t *testing.T) {
	t.Parallel()

	const docLen = 4
	for start := -1; start <= docLen+1; start++ {
		for end := start; end <= docLen+1; end++ {
			f := frag(1, start, end)
			_, err := collate.NewMoveList().Create(f, frag(2, 0, 1), docLen, docLen)
			if f.Valid(docLen) {
				assert.NoError(t, err, "fragment %+v", f)
			} else {
				assert.Error(t, err, "fragment %+v", f)
			}
		}
	}
}

func TestMoveList_Create_OverlapReportsConflict(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	existing, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)

	_, err = l.Create(frag(3, 0, 1), frag(2, 2, 4), 10, 10)

	var moveErr *collate.MoveError
	require.ErrorAs(t, err, &moveErr)
	assert.Equal(t, existing, moveErr.Conflict)
	assert.Contains(t, err.Error(), "overlaps move 1")
}

func TestMoveList_Create_AdjacentFragmentsAllowed(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	_, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)

	_, err = l.Create(frag(1, 3, 6), frag(2, 3, 6), 10, 10)
	require.NoError(t, err)

	// A different document pair may reuse the same offsets.
	_, err = l.Create(frag(3, 0, 3), frag(4, 0, 3), 10, 10)
	require.NoError(t, err)
}

func TestMoveList_Update(t *testing.T) {
	t.Parallel()

	t.Run("replaces fragments", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()
		m, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
		require.NoError(t, err)

		updated, err := l.Update(m.ID, frag(1, 1, 4), frag(2, 2, 5), 10, 10)
		require.NoError(t, err)

		assert.Equal(t, m.ID, updated.ID)
		assert.Equal(t, []collate.Move{updated}, l.All())
	})

	t.Run("may overlap its own previous position", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()
		m, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
		require.NoError(t, err)

		_, err = l.Update(m.ID, frag(1, 0, 5), frag(2, 0, 5), 10, 10)
		require.NoError(t, err)
	})

	t.Run("unknown ID", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()

		_, err := l.Update(42, frag(1, 0, 1), frag(2, 0, 1), 10, 10)

		var moveErr *collate.MoveError
		require.ErrorAs(t, err, &moveErr)
		assert.Equal(t, collate.RejectNotFound, moveErr.Reason)
		assert.Equal(t, 42, moveErr.MoveID)
	})

	t.Run("invalid update keeps original", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()
		m, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
		require.NoError(t, err)

		_, err = l.Update(m.ID, frag(1, 0, 30), frag(2, 0, 3), 10, 10)
		require.Error(t, err)

		assert.Equal(t, []collate.Move{m}, l.All())
	})
}

func TestMoveList_Delete(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	m, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)

	assert.True(t, l.Delete(m.ID))
	assert.False(t, l.Delete(m.ID))
	assert.Equal(t, 0, l.Len())

	next, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, next.ID, "IDs are not reused")
}

func TestMoveList_ForPair(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	m, err := l.Create(frag(1, 0, 3), frag(2, 5, 8), 10, 10)
	require.NoError(t, err)
	_, err = l.Create(frag(1, 4, 6), frag(3, 0, 2), 10, 10)
	require.NoError(t, err)

	forward := l.ForPair(1, 2)
	require.Len(t, forward, 1)
	assert.Equal(t, m, forward[0])

	reverse := l.ForPair(2, 1)
	require.Len(t, reverse, 1)
	assert.Equal(t, frag(2, 5, 8), reverse[0].First)
	assert.Equal(t, frag(1, 0, 3), reverse[0].Second)
	assert.Equal(t, m.ID, reverse[0].ID)

	assert.Empty(t, l.ForPair(2, 3))
}

func TestMoveList_At(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	m, err := l.Create(frag(1, 2, 5), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)

	assert.Equal(t, []collate.Move{m}, l.At(1, 2))
	assert.Equal(t, []collate.Move{m}, l.At(1, 4))
	assert.Empty(t, l.At(1, 5), "end is exclusive")
	assert.Empty(t, l.At(1, 1))
	assert.Equal(t, []collate.Move{m}, l.At(2, 0))
	assert.Empty(t, l.At(3, 2))
}

func TestMoveList_RemoveDocument(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	_, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)
	_, err = l.Create(frag(2, 4, 6), frag(3, 0, 2), 10, 10)
	require.NoError(t, err)
	keep, err := l.Create(frag(1, 4, 6), frag(3, 4, 6), 10, 10)
	require.NoError(t, err)

	removed := l.RemoveDocument(2)

	assert.Equal(t, 2, removed)
	assert.Equal(t, []collate.Move{keep}, l.All())
	assert.Empty(t, l.ForDocument(2))
}

func TestMoveList_Clone(t *testing.T) {
	t.Parallel()

	l := collate.NewMoveList()
	_, err := l.Create(frag(1, 0, 3), frag(2, 0, 3), 10, 10)
	require.NoError(t, err)

	clone := l.Clone()
	_, err = clone.Create(frag(1, 5, 6), frag(2, 5, 6), 10, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 2, clone.Len())
}

func TestMoveList_Records(t *testing.T) {
	t.Parallel()

	docs := []collate.Document{
		{ID: 1, Name: "a.txt", Text: "0123456789"},
		{ID: 2, Name: "b.txt", Text: "abcdefghij"},
	}

	t.Run("round trip by name", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()
		_, err := l.Create(frag(2, 1, 4), frag(1, 6, 9), 10, 10)
		require.NoError(t, err)

		records, err := l.Records(docs)
		require.NoError(t, err)
		assert.Equal(t, []collate.MoveRecord{
			{Doc1: "a.txt", Start1: 6, End1: 9, Doc2: "b.txt", Start2: 1, End2: 4},
		}, records)

		// IDs are reassigned when documents are reopened.
		reloaded := []collate.Document{
			{ID: 7, Name: "b.txt", Text: docs[1].Text},
			{ID: 9, Name: "a.txt", Text: docs[0].Text},
		}
		restored, err := collate.NewMoveListFromRecords(records, reloaded)
		require.NoError(t, err)
		require.Equal(t, 1, restored.Len())
		m := restored.All()[0]
		assert.Equal(t, frag(7, 1, 4), m.First)
		assert.Equal(t, frag(9, 6, 9), m.Second)
	})

	t.Run("unknown ID", func(t *testing.T) {
		t.Parallel()
		l := collate.NewMoveList()
		_, err := l.Create(frag(1, 0, 1), frag(5, 0, 1), 10, 10)
		require.NoError(t, err)

		_, err = l.Records(docs)

		assert.ErrorIs(t, err, collate.ErrUnknownDocument)
	})
}

func TestNewMoveListFromRecords_Errors(t *testing.T) {
	t.Parallel()

	docs := []collate.Document{
		{ID: 1, Name: "a.txt", Text: "0123456789"},
		{ID: 2, Name: "b.txt", Text: "abc"},
	}

	t.Run("unknown name fails loudly", func(t *testing.T) {
		t.Parallel()
		records := []collate.MoveRecord{
			{Doc1: "a.txt", Start1: 0, End1: 1, Doc2: "b.txt", Start2: 0, End2: 1},
			{Doc1: "a.txt", Start1: 2, End1: 3, Doc2: "gone.txt", Start2: 0, End2: 1},
		}

		_, err := collate.NewMoveListFromRecords(records, docs)

		require.ErrorIs(t, err, collate.ErrUnknownDocument)
		var unknown *collate.UnknownDocumentError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "gone.txt", unknown.Name)
		assert.Contains(t, err.Error(), "move 2")
	})

	t.Run("record no longer fits document", func(t *testing.T) {
		t.Parallel()
		records := []collate.MoveRecord{
			{Doc1: "a.txt", Start1: 0, End1: 1, Doc2: "b.txt", Start2: 0, End2: 10},
		}

		_, err := collate.NewMoveListFromRecords(records, docs)

		var moveErr *collate.MoveError
		require.ErrorAs(t, err, &moveErr)
		assert.Equal(t, collate.RejectOutOfRange, moveErr.Reason)
	})
}

func TestFragment_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, frag(1, 0, 5).Valid(5))
	assert.False(t, frag(1, 0, 6).Valid(5))
	assert.False(t, frag(1, 2, 2).Valid(5))
	assert.False(t, frag(1, -1, 2).Valid(5))
}
