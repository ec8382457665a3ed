// Package sig implements the per-thread signal subsystem: masks, pending
// slots, send/deliver, mask manipulation, and the default handlers for
// kill, user, CPU-limit, child-exit and force-unblock signals.
package sig

// Signal numbers.
const (
	SigKill = iota
	SigUser
	SigCPU
	SigChld
	SigUblock
	NumSignals
)

// sigprocmask "how" values.
const (
	SigBlock = iota
	SigUnblock
	SigSetMask
)

// Disposition is the choice a signal's mask bit encodes. There is no slot
// for a user-supplied handler function in this design: a signal either
// runs its default action or is ignored (design note: handler
// representation is bit-only, not a function table).
type Disposition int

const (
	Default Disposition = iota
	Ignore
)
