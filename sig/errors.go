package sig

import (
	"fmt"

	"github.com/inos-systems/corekernel/utils"
)

var (
	ErrReservedSignal  = utils.NewError("sig: signal is generated internally and cannot be sent")
	ErrUnknownThread   = utils.NewError("sig: unknown thread id")
	ErrNotParent       = utils.NewError("sig: SIG_KILL may only be sent by the target's parent")
	ErrInvalidSignal   = utils.NewError("sig: signal number out of range")
	ErrInvalidArgument = utils.NewError("sig: invalid argument")
	ErrInvalidHow      = utils.NewError("sig: unknown sigprocmask how")
	ErrRateLimited     = utils.NewError("sig: send rate-limited")
)

// corruptionPanic reports a violated calling contract — a mutator entered
// with interrupts already disabled — the way a fatal kernel assertion
// would.
func corruptionPanic(logger *utils.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if logger != nil {
		logger.Error(msg)
	}
	panic(msg)
}
