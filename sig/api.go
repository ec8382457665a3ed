package sig

import (
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/inos-systems/corekernel/utils"
)

// API is the signal subsystem's entry points: handler installation,
// send, mask manipulation, and set builders.
type API struct {
	gate     InterruptGate
	registry ThreadRegistry
	unblock  UnblockQueue
	logger   *utils.Logger

	sendLimiter *limiter.TokenBucket
}

// APIOption configures an API at construction time.
type APIOption func(*API)

// WithLogger overrides the default logger.
func WithLogger(l *utils.Logger) APIOption {
	return func(a *API) { a.logger = l }
}

// WithSendRateLimit caps how many signals a single sender may dispatch
// per second, guarding against one runaway thread flooding another's
// pending queue.
func WithSendRateLimit(ratePerSecond, burst int64) APIOption {
	return func(a *API) {
		tb, err := limiter.NewTokenBucket(limiter.Config{
			Rate:     ratePerSecond,
			Duration: time.Second,
			Burst:    burst,
		}, store.NewMemoryStore(time.Minute))
		if err != nil {
			a.logger.Warn("send rate limiter disabled", utils.Err(err))
			return
		}
		a.sendLimiter = tb
	}
}

// NewAPI constructs an API over its external collaborators.
func NewAPI(gate InterruptGate, registry ThreadRegistry, unblock UnblockQueue, opts ...APIOption) *API {
	a := &API{
		gate:     gate,
		registry: registry,
		unblock:  unblock,
		logger:   utils.DefaultLogger("sig"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) assertInterruptsOn() {
	if !a.gate.Enabled() {
		corruptionPanic(a.logger, "sig: mutator entered with interrupts already disabled")
	}
}

// InstallHandler sets signum's disposition to want and returns the
// disposition it replaced. SIG_KILL is non-overridable and always reports
// Default.
func (a *API) InstallHandler(t ThreadHandle, signum int, want Disposition) (Disposition, error) {
	if signum == SigKill {
		return Default, nil
	}
	if signum < 0 || signum >= NumSignals {
		return Default, ErrInvalidSignal
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)

	state := t.SignalState()
	old := Default
	if state.Mask.Test(uint(signum)) {
		old = Ignore
	}
	if old != want {
		state.Mask.Flip(uint(signum))
	}
	return old, nil
}

// Send delivers sig to thread tid on behalf of sender.
// Repeated sends of an already-pending signal coalesce: only the latest
// sender survives.
func (a *API) Send(sender, tid, sig int) error {
	if sig == SigChld || sig == SigCPU || tid <= 2 {
		return ErrReservedSignal
	}
	if a.sendLimiter != nil && !a.sendLimiter.Allow(fmt.Sprintf("%d", sender)) {
		return ErrRateLimited
	}

	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)

	target, ok := a.registry.Lookup(tid)
	if !ok {
		return ErrUnknownThread
	}
	state := target.SignalState()

	if sig != SigKill && state.Mask.Test(uint(sig)) {
		return nil
	}

	if sig == SigUblock {
		if target.Status() == ThreadBlocked {
			a.unblock.Push(target)
		}
		return nil
	}

	if sig == SigKill && sender != target.ParentID() {
		return ErrNotParent
	}

	slot := &state.Signals[sig]
	if slot.Type != -1 {
		slot.Sender = sender
		return nil
	}
	slot.Type = sig
	slot.Sender = sender
	state.Queue.PushBack(slot)
	return nil
}

// Deliver pops the oldest pending signal for t, if any, and dispatches it
// through handlers unless t now has it masked (ignored at delivery time,
// even if it wasn't when sent). This is the scheduler's hook into the
// pending-signal model; nothing else in this package says when delivery
// should run.
func (a *API) Deliver(t ThreadHandle, handlers *DefaultHandlers) (delivered bool, err error) {
	a.assertInterruptsOn()
	prior := a.gate.Disable()

	state := t.SignalState()
	slot, ok := state.Queue.PopFront()
	if !ok {
		a.gate.Restore(prior)
		return false, nil
	}
	sig, sender := slot.Type, slot.Sender
	slot.Type, slot.Sender = -1, -1
	ignored := state.Mask.Test(uint(sig))
	a.gate.Restore(prior)

	if ignored {
		return false, nil
	}
	handlers.Dispatch(t, sig, sender)
	return true, nil
}

// Sigprocmask queries and/or updates t's mask.
func (a *API) Sigprocmask(t ThreadHandle, how int, set, oldset *bitset.BitSet) error {
	if set != nil {
		if _, outOfRange := set.NextSet(NumSignals); outOfRange {
			return ErrInvalidArgument
		}
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)

	state := t.SignalState()
	if oldset != nil {
		oldset.ClearAll()
		oldset.InPlaceUnion(state.Mask)
	}
	if set == nil {
		return nil
	}
	switch how {
	case SigBlock:
		state.Mask.InPlaceUnion(set)
	case SigUnblock:
		state.Mask.InPlaceDifference(set)
	case SigSetMask:
		state.Mask = set.Clone()
	default:
		return ErrInvalidHow
	}
	return nil
}

// Sigemptyset clears every bit in set.
func (a *API) Sigemptyset(set *bitset.BitSet) error {
	if set == nil {
		return ErrInvalidArgument
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)
	set.ClearAll()
	return nil
}

// Sigfillset sets every valid signal bit in set.
func (a *API) Sigfillset(set *bitset.BitSet) error {
	if set == nil {
		return ErrInvalidArgument
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)
	for i := 0; i < NumSignals; i++ {
		set.Set(uint(i))
	}
	return nil
}

// Sigaddset sets signum's bit in set.
func (a *API) Sigaddset(set *bitset.BitSet, signum int) error {
	if set == nil || signum < 0 || signum >= NumSignals {
		return ErrInvalidArgument
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)
	set.Set(uint(signum))
	return nil
}

// Sigdelset clears signum's bit in set.
func (a *API) Sigdelset(set *bitset.BitSet, signum int) error {
	if set == nil || signum < 0 || signum >= NumSignals {
		return ErrInvalidArgument
	}
	a.assertInterruptsOn()
	prior := a.gate.Disable()
	defer a.gate.Restore(prior)
	set.Clear(uint(signum))
	return nil
}
