// Package mm implements the buddy heap allocator layered over a page
// provider: per-size free lists fed by splitting larger free blocks, and
// buddy coalescing on free. Each backing page ("arena") carries a
// per-16-byte-slot occupancy map so block size is recoverable without a
// per-block header.
package mm

// PageSize is the size of a page handed out by the page provider (component
// A). It must be a power of two known at build time.
const PageSize = 4096

// MaxBlockSize is the largest size a single allocation may request: half a
// page. Larger requests are a deliberate simplification this core does not
// support.
const MaxBlockSize = PageSize / 2

// MinBlockSize is the smallest size class.
const MinBlockSize = 16

// NumClasses is the number of size classes from MinBlockSize to
// MaxBlockSize inclusive, doubling each step.
const NumClasses = 8 // 16, 32, 64, 128, 256, 512, 1024, 2048

// slotCount is the number of 16-byte slots in the payload region.
const slotCount = MaxBlockSize / MinBlockSize

// arenaMagic is the sentinel written into every live arena's header, used
// to detect stray frees and corruption.
const arenaMagic = 0x9a548eed
