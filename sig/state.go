package sig

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/inos-systems/corekernel/internal/dlist"
)

// PendingSlot is per-thread, per-signal storage for at most one
// outstanding signal of a given kind. Type == -1 marks the slot empty.
type PendingSlot struct {
	Type   int
	Sender int
}

// State is one thread's signal state: a block/ignore mask, a fixed
// pending-slot array indexed by signal number,
// and the FIFO order in which currently-pending slots first became
// occupied.
type State struct {
	Mask    *bitset.BitSet
	Signals [NumSignals]PendingSlot
	Queue   *dlist.List[*PendingSlot]
}

// NewState returns a signal state with every slot empty and nothing
// blocked or ignored.
func NewState() *State {
	s := &State{
		Mask:  bitset.New(NumSignals),
		Queue: dlist.New[*PendingSlot](),
	}
	for i := range s.Signals {
		s.Signals[i] = PendingSlot{Type: -1, Sender: -1}
	}
	return s
}
