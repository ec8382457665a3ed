package dlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)
	require.Equal(t, 3, l.Len())

	v, ok := l.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = l.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, l.Len())
}

func TestRemoveByHandle(t *testing.T) {
	l := New[string]()
	l.PushBack("a")
	mid := l.PushBack("b")
	l.PushBack("c")

	l.Remove(mid)
	assert.Equal(t, []string{"a", "c"}, l.Values())

	// Removing again is a no-op.
	l.Remove(mid)
	assert.Equal(t, 2, l.Len())
}

func TestEmptyPopFront(t *testing.T) {
	l := New[int]()
	_, ok := l.PopFront()
	assert.False(t, ok)
	assert.True(t, l.Empty())
}

func TestSort(t *testing.T) {
	l := New[int]()
	for _, v := range []int{5, 1, 4, 2, 3} {
		l.PushBack(v)
	}
	l.Sort(func(a, b int) bool { return a < b })
	assert.Equal(t, []int{1, 2, 3, 4, 5}, l.Values())
}

func TestIterateEarlyStop(t *testing.T) {
	l := New[int]()
	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)

	var seen []int
	l.Iterate(func(v int) bool {
		seen = append(seen, v)
		return v != 2
	})
	assert.Equal(t, []int{1, 2}, seen)
}
