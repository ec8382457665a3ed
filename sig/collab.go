package sig

// ThreadStatus enumerates the scheduler states the signal subsystem
// inspects. THREAD_BLOCKED is the one status this package branches on
// directly (SIG_UBLOCK).
type ThreadStatus int

const (
	ThreadRunning ThreadStatus = iota
	ThreadReady
	ThreadBlocked
	ThreadDying
)

// ThreadHandle is the external collaborator exposing the fields of a
// thread descriptor the signal subsystem reads and mutates: {tid, ptid,
// status, mask, signals[], signals_queue, alive, total, lifetime}.
type ThreadHandle interface {
	ID() int
	ParentID() int
	Status() ThreadStatus
	Lifetime() int64
	TotalChildren() int
	AliveChildren() int
	DecrementAlive()
	Exit()
	SignalState() *State
}

// ThreadRegistry looks threads up by id and reports the currently running
// thread.
type ThreadRegistry interface {
	Lookup(tid int) (ThreadHandle, bool)
	Current() ThreadHandle
}

// InterruptGate brackets critical sections. Every signal
// mutator asserts interrupts are on at entry, disables them for the
// duration of its work, and restores the prior level on every exit path.
// This is the subsystem's only synchronization primitive.
type InterruptGate interface {
	Enabled() bool
	Disable() (prior bool)
	Restore(prior bool)
}

// UnblockQueue is the external to_unblock_list a SIG_UBLOCK send appends
// a blocked target thread onto.
type UnblockQueue interface {
	Push(t ThreadHandle)
}
