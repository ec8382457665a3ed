package mm

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/inos-systems/corekernel/internal/dlist"
)

var nextArenaID uint64

// Arena is one whole page donated by the page provider, subdivided into
// blocks by buddy splitting. slotMap records, for every 16-byte slot, the
// size of the live block that slot begins (0 if the slot is free or lies
// inside a live block; free blocks are not recorded).
type Arena struct {
	id      uint64
	magic   uint32
	slotMap [slotCount]uint32
	payload []byte
	elem    *dlist.Elem[*Arena]

	elemMu    sync.Mutex
	freeElems map[uint32]*dlist.Elem[Ptr]
}

func newArena(page []byte) *Arena {
	return &Arena{
		id:      atomic.AddUint64(&nextArenaID, 1),
		magic:   arenaMagic,
		payload: page[:MaxBlockSize],
	}
}

// slotIndex returns the SlotMap index for an offset within the payload.
func slotIndex(offset uint32) uint32 { return offset / MinBlockSize }

// rangeFree reports whether every slot covering [offset, offset+size) is
// unoccupied. Used to decide whether a block's buddy is free and eligible
// for coalescing.
func (a *Arena) rangeFree(offset, size uint32) bool {
	if offset+size > MaxBlockSize {
		return false
	}
	start, end := slotIndex(offset), slotIndex(offset+size)
	for i := start; i < end; i++ {
		if a.slotMap[i] != 0 {
			return false
		}
	}
	return true
}

func (a *Arena) rememberFreeElem(offset uint32, e *dlist.Elem[Ptr]) {
	a.elemMu.Lock()
	if a.freeElems == nil {
		a.freeElems = make(map[uint32]*dlist.Elem[Ptr])
	}
	a.freeElems[offset] = e
	a.elemMu.Unlock()
}

func (a *Arena) forgetFreeElem(offset uint32) *dlist.Elem[Ptr] {
	a.elemMu.Lock()
	e := a.freeElems[offset]
	delete(a.freeElems, offset)
	a.elemMu.Unlock()
	return e
}

// arenaRegistry is the global, insertion-ordered arena list.
// A bloom filter backs mayContain, a cheap way to reject an arena that was
// never registered without scanning the (authoritative) registry list.
// Free and Snapshot do not consult it; Free checks only the arena's magic.
type arenaRegistry struct {
	mu        sync.Mutex
	list      *dlist.List[*Arena]
	seen      *bloom.BloomFilter
	everAdded int
}

func newArenaRegistry() *arenaRegistry {
	return &arenaRegistry{
		list: dlist.New[*Arena](),
		seen: bloom.NewWithEstimates(1024, 0.01),
	}
}

func (r *arenaRegistry) register(a *Arena) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.elem = r.list.PushBack(a)
	r.seen.Add(arenaKey(a))
	r.everAdded++
	if r.everAdded%1024 == 0 {
		r.rebuildLocked()
	}
}

func (r *arenaRegistry) unregister(a *Arena) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.list.Remove(a.elem)
	a.elem = nil
}

// mayContain reports whether a could plausibly be a live, registered
// arena. false is definitive; true still needs the magic-number check.
func (r *arenaRegistry) mayContain(a *Arena) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seen.Test(arenaKey(a))
}

func (r *arenaRegistry) snapshot() []*Arena {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Values()
}

func (r *arenaRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.Len()
}

// rebuildLocked re-keys the filter off the arenas still registered. Bloom
// filters never un-learn a key, so without an occasional rebuild the
// false-positive rate would climb across a long-running kernel as arenas
// churn. Called with r.mu held.
func (r *arenaRegistry) rebuildLocked() {
	n := r.list.Len()*2 + 1
	filter := bloom.NewWithEstimates(uint(n), 0.01)
	r.list.Iterate(func(a *Arena) bool {
		filter.Add(arenaKey(a))
		return true
	})
	r.seen = filter
}

func arenaKey(a *Arena) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], a.id)
	return buf[:]
}
