package mm

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/inos-systems/corekernel/internal/dlist"
)

// descriptor owns the free list for every currently-free block of exactly
// `size` bytes, across every arena. Its lock is the only lock ever held
// while touching that list; the allocator never holds two descriptors'
// locks at once.
type descriptor struct {
	size uint32
	mu   sync.Mutex
	free *dlist.List[Ptr]
}

// descriptorTable is the fixed array of NumClasses descriptors plus a
// bitset index of which classes currently hold at least one free block.
// The search for "the smallest class >= c with a free block" is answered
// by BitSet.NextSet instead of a linear scan of every descriptor.
type descriptorTable struct {
	classes [NumClasses]*descriptor

	nonemptyMu sync.Mutex
	nonempty   *bitset.BitSet
}

func newDescriptorTable() *descriptorTable {
	t := &descriptorTable{nonempty: bitset.New(NumClasses)}
	for i := 0; i < NumClasses; i++ {
		t.classes[i] = &descriptor{size: classSize(i), free: dlist.New[Ptr]()}
	}
	return t
}

// popSmallestFree pops a block from the smallest non-empty class ≥ minIdx.
// It returns false if no class in [minIdx, NumClasses) currently has one.
func (t *descriptorTable) popSmallestFree(minIdx int) (Ptr, int, bool) {
	for {
		idx, ok := t.nextNonEmpty(minIdx)
		if !ok {
			return Ptr{}, 0, false
		}
		d := t.classes[idx]
		d.mu.Lock()
		p, popped := d.free.PopFront()
		empty := d.free.Empty()
		d.mu.Unlock()
		if !popped {
			// Another popper drained this class between the bitset check
			// and the lock. Reconcile the index and try again.
			t.markEmpty(idx)
			continue
		}
		p.arena.forgetFreeElem(p.offset)
		if empty {
			t.markEmpty(idx)
		}
		return p, idx, true
	}
}

// pushFree adds a free block to class idx's free list.
func (t *descriptorTable) pushFree(idx int, p Ptr) {
	d := t.classes[idx]
	d.mu.Lock()
	e := d.free.PushBack(p)
	d.mu.Unlock()
	t.markNonEmpty(idx)
	p.arena.rememberFreeElem(p.offset, e)
}

// removeSpecific unlinks the free block at p from class idx, if present,
// without waiting for it to reach the front of the list. Used during
// buddy coalescing, where the block that must be removed is whichever one
// the slot map names, not whichever is oldest.
func (t *descriptorTable) removeSpecific(idx int, p Ptr) bool {
	e := p.arena.forgetFreeElem(p.offset)
	if e == nil {
		return false
	}
	d := t.classes[idx]
	d.mu.Lock()
	d.free.Remove(e)
	empty := d.free.Empty()
	d.mu.Unlock()
	if empty {
		t.markEmpty(idx)
	}
	return true
}

func (t *descriptorTable) nextNonEmpty(minIdx int) (int, bool) {
	if minIdx >= NumClasses {
		return 0, false
	}
	t.nonemptyMu.Lock()
	defer t.nonemptyMu.Unlock()
	idx, ok := t.nonempty.NextSet(uint(minIdx))
	if !ok || int(idx) >= NumClasses {
		return 0, false
	}
	return int(idx), true
}

func (t *descriptorTable) markNonEmpty(idx int) {
	t.nonemptyMu.Lock()
	t.nonempty.Set(uint(idx))
	t.nonemptyMu.Unlock()
}

func (t *descriptorTable) markEmpty(idx int) {
	t.nonemptyMu.Lock()
	t.nonempty.Clear(uint(idx))
	t.nonemptyMu.Unlock()
}
