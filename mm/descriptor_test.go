package mm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorTablePushPopRoundTrip(t *testing.T) {
	table := newDescriptorTable()
	arena := newArena(make([]byte, PageSize))

	_, _, ok := table.popSmallestFree(0)
	assert.False(t, ok)

	p := Ptr{arena: arena, offset: 0}
	table.pushFree(2, p)

	got, idx, ok := table.popSmallestFree(0)
	require.True(t, ok)
	assert.Equal(t, 2, idx)
	assert.Equal(t, p, got)

	_, _, ok = table.popSmallestFree(0)
	assert.False(t, ok)
}

func TestDescriptorTablePrefersSmallestNonEmptyClass(t *testing.T) {
	table := newDescriptorTable()
	arena := newArena(make([]byte, PageSize))

	table.pushFree(5, Ptr{arena: arena, offset: 0})
	table.pushFree(1, Ptr{arena: arena, offset: 32})

	_, idx, ok := table.popSmallestFree(0)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestDescriptorTableRemoveSpecific(t *testing.T) {
	table := newDescriptorTable()
	arena := newArena(make([]byte, PageSize))

	p := Ptr{arena: arena, offset: 64}
	table.pushFree(3, p)

	assert.True(t, table.removeSpecific(3, p))
	assert.False(t, table.removeSpecific(3, p))

	_, _, ok := table.popSmallestFree(0)
	assert.False(t, ok)
}
