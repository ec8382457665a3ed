package mm

import (
	"sync/atomic"
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/inos-systems/corekernel/utils"
)

// Stats are cumulative allocator counters, reported for diagnostics.
type Stats struct {
	Allocs     uint64
	Frees      uint64
	Refills    uint64
	PageFrees  uint64
	BytesInUse uint64
}

// Allocator is the buddy heap allocator. It owns no memory of its own;
// every byte it hands out ultimately comes from the PageProvider.
type Allocator struct {
	pages       PageProvider
	descriptors *descriptorTable
	arenas      *arenaRegistry
	logger      *utils.Logger

	poisonFree   bool
	printLimiter *limiter.TokenBucket

	stats Stats
}

// Option configures an Allocator at construction time.
type Option func(*Allocator)

// WithLogger sets the logger used for refill/release/corruption messages.
func WithLogger(l *utils.Logger) Option {
	return func(a *Allocator) { a.logger = l }
}

// WithPoisonFree overwrites a block's bytes with zero at free time, so a
// use-after-free reads zeros deterministically instead of silently
// reusing stale data.
func WithPoisonFree(enabled bool) Option {
	return func(a *Allocator) { a.poisonFree = enabled }
}

// WithPrintRateLimit caps how often PrintMemory may run, guarding against
// a noisy caller flooding the diagnostic console.
func WithPrintRateLimit(ratePerSecond int64, burst int64) Option {
	return func(a *Allocator) {
		tb, err := limiter.NewTokenBucket(limiter.Config{
			Rate:     ratePerSecond,
			Duration: time.Second,
			Burst:    burst,
		}, store.NewMemoryStore(time.Minute))
		if err != nil {
			if a.logger != nil {
				a.logger.Warn("print rate limiter disabled", utils.Err(err))
			}
			return
		}
		a.printLimiter = tb
	}
}

// NewAllocator constructs an Allocator over pages. By default poisoning is
// on and diagnostics are unthrottled; WithPoisonFree(false) and
// WithPrintRateLimit override that.
func NewAllocator(pages PageProvider, opts ...Option) *Allocator {
	a := &Allocator{
		pages:       pages,
		descriptors: newDescriptorTable(),
		arenas:      newArenaRegistry(),
		logger:      utils.DefaultLogger("mm"),
		poisonFree:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Stats returns a snapshot of the cumulative counters.
func (a *Allocator) Stats() Stats {
	return Stats{
		Allocs:     atomic.LoadUint64(&a.stats.Allocs),
		Frees:      atomic.LoadUint64(&a.stats.Frees),
		Refills:    atomic.LoadUint64(&a.stats.Refills),
		PageFrees:  atomic.LoadUint64(&a.stats.PageFrees),
		BytesInUse: atomic.LoadUint64(&a.stats.BytesInUse),
	}
}

// Alloc returns a block of at least size bytes, or a null Ptr and an error
// if size is out of range or the page provider is exhausted.
func (a *Allocator) Alloc(size int) (Ptr, error) {
	if size <= 0 || uint32(size) > MaxBlockSize {
		return Ptr{}, ErrTooLarge
	}
	idx, _ := classIndexFor(uint32(size))

	p, gotIdx, ok := a.descriptors.popSmallestFree(idx)
	if !ok {
		var err error
		p, gotIdx, err = a.refill(idx)
		if err != nil {
			return Ptr{}, err
		}
	}

	for gotIdx > idx {
		gotIdx--
		upper := Ptr{arena: p.arena, offset: p.offset + classSize(gotIdx)}
		a.descriptors.pushFree(gotIdx, upper)
	}

	p.arena.slotMap[slotIndex(p.offset)] = classSize(idx)
	atomic.AddUint64(&a.stats.Allocs, 1)
	atomic.AddUint64(&a.stats.BytesInUse, uint64(classSize(idx)))
	return p, nil
}

// refill asks the page provider for a fresh page, registers it as a new
// arena, and pops the block needed to satisfy class idx from its single
// maximal free block.
func (a *Allocator) refill(idx int) (Ptr, int, error) {
	page, err := a.pages.GetPage(0)
	if err != nil || page == nil {
		if err == nil {
			err = ErrOutOfMemory
		}
		a.logger.Warn("page provider exhausted", utils.Err(err))
		return Ptr{}, 0, ErrOutOfMemory
	}

	arena := newArena(page)
	a.arenas.register(arena)
	maxIdx := NumClasses - 1
	a.descriptors.pushFree(maxIdx, Ptr{arena: arena, offset: 0})
	atomic.AddUint64(&a.stats.Refills, 1)
	a.logger.Debug("arena refilled",
		utils.Int64("arena_id", int64(arena.id)),
		utils.Int("arenas_live", a.arenas.count()))

	p, gotIdx, ok := a.descriptors.popSmallestFree(idx)
	if !ok {
		// idx never exceeds maxIdx, so this happens only when a concurrent
		// Alloc popped the block just pushed before this call could.
		return Ptr{}, 0, ErrOutOfMemory
	}
	return p, gotIdx, nil
}

// Free returns a block to the allocator, coalescing with its buddy
// repeatedly until the buddy is not free or the whole arena is free
// again, in which case the arena is unregistered and its page returned to
// the provider.
func (a *Allocator) Free(p Ptr) error {
	if p.IsNil() {
		return nil
	}
	arena := p.arena
	if arena.magic != arenaMagic {
		corruptionPanic(a.logger, "free: arena %p has bad magic 0x%x", arena, arena.magic)
	}

	idx := slotIndex(p.offset)
	size := arena.slotMap[idx]
	if size == 0 {
		corruptionPanic(a.logger, "free: offset %d is not the start of a live block (double free?)", p.offset)
	}
	classIdx, ok := classIndexForExact(size)
	if !ok {
		corruptionPanic(a.logger, "free: offset %d has invalid recorded size %d", p.offset, size)
	}

	arena.slotMap[idx] = 0
	if a.poisonFree {
		clear(arena.payload[p.offset : p.offset+size])
	}
	atomic.AddUint64(&a.stats.Frees, 1)
	atomic.AddUint64(&a.stats.BytesInUse, ^(uint64(size) - 1)) // subtract size

	offset := p.offset
	for {
		if size == MaxBlockSize {
			a.arenas.unregister(arena)
			atomic.AddUint64(&a.stats.PageFrees, 1)
			a.logger.Debug("arena released", utils.Int64("arena_id", int64(arena.id)))
			return a.pages.FreePage(arena.payload[:PageSize])
		}

		buddyOffset := offset ^ size
		if !arena.rangeFree(buddyOffset, size) {
			a.descriptors.pushFree(classIdx, Ptr{arena: arena, offset: offset})
			return nil
		}
		if !a.descriptors.removeSpecific(classIdx, Ptr{arena: arena, offset: buddyOffset}) {
			// The buddy's slots read free but it isn't on the free list:
			// it must still be mid-split or a different size. Treat this
			// block as simply free at its current size rather than merge
			// into an inconsistent one.
			a.descriptors.pushFree(classIdx, Ptr{arena: arena, offset: offset})
			return nil
		}
		if buddyOffset < offset {
			offset = buddyOffset
		}
		size *= 2
		classIdx++
	}
}

// Calloc allocates space for n elements of size m each, zeroed, checking
// for multiplication overflow the way the original malloc family does.
func (a *Allocator) Calloc(n, m int) (Ptr, error) {
	if n < 0 || m < 0 {
		return Ptr{}, ErrOverflow
	}
	un, um := uint64(n), uint64(m)
	total := un * um
	if un != 0 && total/un != um {
		return Ptr{}, ErrOverflow
	}
	if total > MaxBlockSize {
		return Ptr{}, ErrTooLarge
	}
	p, err := a.Alloc(int(total))
	if err != nil {
		return Ptr{}, err
	}
	clear(p.Bytes())
	return p, nil
}

// Realloc resizes the block at p to newSize, preserving min(newSize, old
// block size) bytes of content. newSize == 0 behaves like Free. A nil p
// behaves like Alloc.
func (a *Allocator) Realloc(p Ptr, newSize int) (Ptr, error) {
	if newSize == 0 {
		return Ptr{}, a.Free(p)
	}
	if p.IsNil() {
		return a.Alloc(newSize)
	}

	oldSize := int(p.size())
	q, err := a.Alloc(newSize)
	if err != nil {
		return Ptr{}, err
	}
	n := newSize
	if oldSize < n {
		n = oldSize
	}
	copy(q.Bytes()[:n], p.Bytes()[:n])
	if err := a.Free(p); err != nil {
		return Ptr{}, err
	}
	return q, nil
}
