package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertRemove(t *testing.T) {
	x := newIndex[uint64]()
	x.Insert(10)
	x.Insert(20)
	x.Insert(30)
	require.Equal(t, 3, x.Len())

	// Removing the middle member swaps the last one into its slot.
	require.NoError(t, x.Remove(20))
	assert.Equal(t, []uint64{10, 30}, x.Members())
	assert.False(t, x.Contains(20))
	assert.True(t, x.Contains(30))

	require.NoError(t, x.Remove(10))
	require.NoError(t, x.Remove(30))
	assert.Equal(t, 0, x.Len())
}

func TestIndexRemoveAbsentFailsLoudly(t *testing.T) {
	x := newIndex[uint64]()
	x.Insert(1)

	assert.ErrorIs(t, x.Remove(2), ErrNotIndexed)
	assert.Equal(t, 1, x.Len(), "a failed removal must not disturb the index")

	require.NoError(t, x.Remove(1))
	assert.ErrorIs(t, x.Remove(1), ErrNotIndexed)
}

func TestIndexInsertIsIdempotent(t *testing.T) {
	x := newIndex[string]()
	x.Insert("alice")
	x.Insert("alice")
	assert.Equal(t, 1, x.Len())
}

func TestIndexClear(t *testing.T) {
	x := newIndex[uint64]()
	for id := uint64(0); id < 5; id++ {
		x.Insert(id)
	}
	x.Clear()
	assert.Equal(t, 0, x.Len())
	assert.False(t, x.Contains(3))

	x.Insert(7)
	assert.True(t, x.Contains(7))
}

func TestIndexRemoveLastMember(t *testing.T) {
	x := newIndex[uint64]()
	x.Insert(1)
	x.Insert(2)
	require.NoError(t, x.Remove(2))
	assert.Equal(t, []uint64{1}, x.Members())
}
