package mm

import (
	"fmt"
	"io"
	"sort"
)

// ClassReport lists the free-block offsets within one arena for one size
// class, ascending.
type ClassReport struct {
	Size    uint32
	Offsets []uint32
}

// ArenaReport is one arena's per-class breakdown, in registration order.
type ArenaReport struct {
	ID      uint64
	Classes []ClassReport
}

// MemoryReport is a point-in-time view of the whole heap.
type MemoryReport struct {
	ArenaCount int
	Arenas     []ArenaReport
}

// Snapshot walks every descriptor's free list once, buckets each free
// block by the arena it belongs to, and returns the result grouped and
// sorted the way PrintMemory renders it. Free lists are shared across all
// arenas, so per-arena reporting has to filter rather than read off a
// single list.
func (a *Allocator) Snapshot() MemoryReport {
	type key struct {
		arena *Arena
		class int
	}
	buckets := make(map[key][]uint32)

	for idx := 0; idx < NumClasses; idx++ {
		d := a.descriptors.classes[idx]
		d.mu.Lock()
		vals := d.free.Values()
		d.mu.Unlock()
		for _, p := range vals {
			k := key{arena: p.arena, class: idx}
			buckets[k] = append(buckets[k], p.offset)
		}
	}

	arenas := a.arenas.snapshot()
	report := MemoryReport{ArenaCount: len(arenas)}
	for _, ar := range arenas {
		classes := make([]ClassReport, NumClasses)
		for idx := 0; idx < NumClasses; idx++ {
			offs := buckets[key{arena: ar, class: idx}]
			sorted := append([]uint32(nil), offs...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			classes[idx] = ClassReport{Size: classSize(idx), Offsets: sorted}
		}
		report.Arenas = append(report.Arenas, ArenaReport{ID: ar.id, Classes: classes})
	}
	return report
}

// PrintMemory renders a MemoryReport to w, one arena per block and one
// line per size class, ascending class and ascending offset.
// If a print rate limit was configured, a call that exceeds it returns
// ErrRateLimited without writing anything.
func (a *Allocator) PrintMemory(w io.Writer) error {
	if a.printLimiter != nil && !a.printLimiter.Allow("print_memory") {
		return ErrRateLimited
	}

	report := a.Snapshot()
	fmt.Fprintf(w, "arenas: %d\n", report.ArenaCount)
	for i, ar := range report.Arenas {
		fmt.Fprintf(w, "arena %d (id=%d):\n", i, ar.ID)
		for _, c := range ar.Classes {
			fmt.Fprintf(w, "  size %d:", c.Size)
			for _, off := range c.Offsets {
				fmt.Fprintf(w, " %d", off)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
