package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoneNameIndex_AssignsDenseIDsInFirstSeenOrder(t *testing.T) {
	idx := NewBoneNameIndex()

	id, created := idx.GetOrAssignID("hip")
	assert.Equal(t, uint32(0), id)
	assert.True(t, created)

	id, created = idx.GetOrAssignID("spine")
	assert.Equal(t, uint32(1), id)
	assert.True(t, created)

	id, created = idx.GetOrAssignID("hip")
	assert.Equal(t, uint32(0), id)
	assert.False(t, created)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"hip", "spine"}, idx.Names())
}

func TestBoneNameIndex_DeterministicAcrossRuns(t *testing.T) {
	order := []string{"root", "thigh.L", "thigh.R", "root", "shin.L", "thigh.L"}
	build := func() []string {
		idx := NewBoneNameIndex()
		for _, n := range order {
			idx.GetOrAssignID(n)
		}
		return idx.Names()
	}
	assert.Equal(t, build(), build())
}

func TestBoneNameIndex_Lookup(t *testing.T) {
	idx := NewBoneNameIndex()
	idx.GetOrAssignID("a")

	id, ok := idx.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, uint32(0), id)

	_, ok = idx.Lookup("b")
	assert.False(t, ok)
	assert.Equal(t, 1, idx.Len(), "lookup must not assign")
}

func TestBoneNameIndex_FreezePanicsOnNewName(t *testing.T) {
	idx := NewBoneNameIndex()
	idx.GetOrAssignID("a")
	idx.Freeze()
	require.True(t, idx.Frozen())

	id, created := idx.GetOrAssignID("a")
	assert.Equal(t, uint32(0), id)
	assert.False(t, created)

	assert.Panics(t, func() { idx.GetOrAssignID("b") })
}

func TestBoneNameIndex_NamesIsACopy(t *testing.T) {
	idx := NewBoneNameIndex()
	idx.GetOrAssignID("a")
	names := idx.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, idx.Names())
}
