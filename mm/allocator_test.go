package mm

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, capacity int) *Allocator {
	t.Helper()
	pages := newTestPagePool(capacity)
	return NewAllocator(pages)
}

func TestAllocRoundsUpToSizeClass(t *testing.T) {
	a := newTestAllocator(t, 4)

	p, err := a.Alloc(20)
	require.NoError(t, err)
	require.False(t, p.IsNil())
	assert.Equal(t, uint32(32), p.size())
	assert.Len(t, p.Bytes(), 32)
}

func TestAllocRejectsOutOfRangeSizes(t *testing.T) {
	a := newTestAllocator(t, 4)

	_, err := a.Alloc(0)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = a.Alloc(MaxBlockSize + 1)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestAllocRefillsFromPageProvider(t *testing.T) {
	a := newTestAllocator(t, 1)

	p, err := a.Alloc(MinBlockSize)
	require.NoError(t, err)
	assert.False(t, p.IsNil())
	assert.Equal(t, 1, a.arenas.count())
	assert.Equal(t, uint64(1), a.Stats().Refills)
}

func TestAllocExhaustsPageProvider(t *testing.T) {
	a := newTestAllocator(t, 1)

	// Two whole-arena-sized allocations need two arenas; the pool only has
	// one page, so the second must fail.
	_, err := a.Alloc(MaxBlockSize)
	require.NoError(t, err)

	_, err = a.Alloc(MaxBlockSize)
	assert.ErrorIs(t, err, ErrOutOfMemory)
}

func TestFreeCoalescesBackToWholeArena(t *testing.T) {
	a := newTestAllocator(t, 2)

	var blocks []Ptr
	for i := 0; i < MaxBlockSize/MinBlockSize; i++ {
		p, err := a.Alloc(MinBlockSize)
		require.NoError(t, err)
		blocks = append(blocks, p)
	}
	require.Equal(t, 1, a.arenas.count())

	for _, p := range blocks {
		require.NoError(t, a.Free(p))
	}

	// Every block coalesced back into one arena-sized free block, which
	// frees the page entirely.
	assert.Equal(t, 0, a.arenas.count())
	assert.Equal(t, uint64(1), a.Stats().PageFrees)
}

func TestAllocSplitsWholeArenaDownToRequestedClass(t *testing.T) {
	a := newTestAllocator(t, 1)

	p, err := a.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, uint32(0), p.offset)

	report := a.Snapshot()
	require.Equal(t, 1, report.ArenaCount)
	classes := report.Arenas[0].Classes

	// The popped 2048-byte block halves all the way down to the requested
	// 16-byte class; every halving step pushes its upper half onto the
	// newly-halved class's free list, so classes 16 through 1024 each end
	// up with exactly one entry and the top class is emptied out.
	wantOffset := []uint32{16, 32, 64, 128, 256, 512, 1024}
	for idx, want := range wantOffset {
		assert.Equalf(t, []uint32{want}, classes[idx].Offsets, "class size %d", classes[idx].Size)
	}
	assert.Empty(t, classes[NumClasses-1].Offsets)

	require.NoError(t, a.Free(p))
	assert.Equal(t, 0, a.arenas.count())
}

func TestFreePartialCoalesceLeavesSiblingClassesUntouched(t *testing.T) {
	a := newTestAllocator(t, 1)

	p, err := a.Alloc(16)
	require.NoError(t, err)

	// q takes the 16-byte buddy p's split left behind, directly off the
	// class-16 free list, with no further splitting.
	q, err := a.Alloc(16)
	require.NoError(t, err)
	require.Equal(t, p.offset^16, q.offset)

	require.NoError(t, a.Free(p))

	report := a.Snapshot()
	require.Equal(t, 1, report.ArenaCount)
	classes := report.Arenas[0].Classes

	// q still holds p's buddy live, so p's free can't coalesce: class-16
	// gets exactly p's offset back, and every class above it is untouched.
	assert.Equal(t, []uint32{p.offset}, classes[0].Offsets)
	wantOffset := []uint32{32, 64, 128, 256, 512, 1024}
	for i, want := range wantOffset {
		idx := i + 1
		assert.Equalf(t, []uint32{want}, classes[idx].Offsets, "class size %d", classes[idx].Size)
	}
	assert.Empty(t, classes[NumClasses-1].Offsets)

	require.NoError(t, a.Free(q))
	assert.Equal(t, 0, a.arenas.count())
}

func TestFreeNilIsNoop(t *testing.T) {
	a := newTestAllocator(t, 1)
	assert.NoError(t, a.Free(Ptr{}))
}

func TestDoubleFreePanics(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Alloc(32)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))
	assert.Panics(t, func() { a.Free(p) })
}

func TestFreeOfCorruptArenaPanics(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Alloc(32)
	require.NoError(t, err)
	p.arena.magic = 0xdeadbeef
	assert.Panics(t, func() { a.Free(p) })
}

func TestCallocZeroesMemory(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Calloc(4, 8)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(p.Bytes()[:32], make([]byte, 32)))
}

func TestCallocOverflowRejected(t *testing.T) {
	a := newTestAllocator(t, 1)
	_, err := a.Calloc(-1, 8)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = a.Calloc(1<<62, 1<<62)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestReallocPreservesContent(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Alloc(16)
	require.NoError(t, err)
	copy(p.Bytes(), []byte("hello world!!!!!"))

	q, err := a.Realloc(p, 64)
	require.NoError(t, err)
	assert.Equal(t, "hello world!!!!!", string(q.Bytes()[:16]))
}

func TestReallocToZeroFrees(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Alloc(16)
	require.NoError(t, err)

	q, err := a.Realloc(p, 0)
	require.NoError(t, err)
	assert.True(t, q.IsNil())
}

func TestReallocFromNilAllocates(t *testing.T) {
	a := newTestAllocator(t, 1)
	q, err := a.Realloc(Ptr{}, 16)
	require.NoError(t, err)
	assert.False(t, q.IsNil())
}

func TestConcurrentAllocFree(t *testing.T) {
	a := newTestAllocator(t, 16)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				p, err := a.Alloc(64)
				if err != nil {
					continue
				}
				require.NoError(t, a.Free(p))
			}
		}()
	}
	wg.Wait()
}

func TestPrintMemoryListsFreeBlocksAscending(t *testing.T) {
	a := newTestAllocator(t, 1)
	p, err := a.Alloc(16)
	require.NoError(t, err)

	// Two more 16-byte allocations, then freeing the first, leave class 16
	// holding offsets 48 and 0, pushed in that order.
	_, err = a.Alloc(16)
	require.NoError(t, err)
	_, err = a.Alloc(16)
	require.NoError(t, err)
	require.NoError(t, a.Free(p))

	var buf bytes.Buffer
	require.NoError(t, a.PrintMemory(&buf))
	assert.Contains(t, buf.String(), "arenas: 1")
	assert.Contains(t, buf.String(), "  size 16: 0 48\n  size 32:\n  size 64: 64\n")
}

func TestPrintMemoryRateLimited(t *testing.T) {
	a := NewAllocator(newTestPagePool(1), WithPrintRateLimit(1, 1))

	var buf bytes.Buffer
	require.NoError(t, a.PrintMemory(&buf))
	err := a.PrintMemory(&buf)
	assert.ErrorIs(t, err, ErrRateLimited)
}
