package mm

import (
	"fmt"

	"github.com/inos-systems/corekernel/utils"
)

// Sentinel errors returned by Allocator's operations. A zero Ptr alongside
// one of these tells the caller why the request came back null.
var (
	ErrTooLarge    = utils.NewError("mm: requested size exceeds MaxBlockSize")
	ErrOutOfMemory = utils.NewError("mm: page provider exhausted")
	ErrOverflow    = utils.NewError("mm: calloc size overflow")
	ErrRateLimited = utils.NewError("mm: diagnostic call rate-limited")
)

// corruptionPanic reports heap corruption loudly, halting the operation
// that found it. It panics rather than exiting the process outright, so
// a supervising goroutine (or a test) can observe the failure instead of
// the whole binary disappearing.
func corruptionPanic(logger *utils.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if logger != nil {
		logger.Error(msg)
	}
	panic(msg)
}
