package simhw

import (
	"sync"

	"github.com/inos-systems/corekernel/sig"
)

// Thread is a minimal reference ThreadHandle: enough bookkeeping to drive
// sig's tests and cmd/kernelsim without a real scheduler.
type Thread struct {
	mu sync.Mutex

	id       int
	parentID int
	status   sig.ThreadStatus
	lifetime int64
	total    int
	alive    int
	exited   bool

	state *sig.State
}

// NewThread returns a thread descriptor with id tid and parent ptid.
func NewThread(tid, ptid int) *Thread {
	return &Thread{id: tid, parentID: ptid, state: sig.NewState()}
}

func (t *Thread) ID() int                 { return t.id }
func (t *Thread) ParentID() int           { return t.parentID }
func (t *Thread) Lifetime() int64         { return t.lifetime }
func (t *Thread) SignalState() *sig.State { return t.state }

func (t *Thread) Status() sig.ThreadStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetStatus lets a test or demo move the thread between scheduler states.
func (t *Thread) SetStatus(s sig.ThreadStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

func (t *Thread) SetLifetime(ns int64) { t.lifetime = ns }

func (t *Thread) TotalChildren() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *Thread) AliveChildren() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// AddChild registers a child thread for bookkeeping.
func (t *Thread) AddChild() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total++
	t.alive++
}

func (t *Thread) DecrementAlive() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.alive > 0 {
		t.alive--
	}
}

func (t *Thread) Exit() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exited = true
	t.status = sig.ThreadDying
}

// Exited reports whether Exit has been called.
func (t *Thread) Exited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exited
}

// Registry is a reference sig.ThreadRegistry backed by a plain map.
type Registry struct {
	mu      sync.Mutex
	threads map[int]*Thread
	current int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{threads: make(map[int]*Thread)}
}

// Add registers t and makes it discoverable by Lookup.
func (r *Registry) Add(t *Thread) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.threads[t.id] = t
}

// SetCurrent designates which registered thread Current returns.
func (r *Registry) SetCurrent(tid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = tid
}

func (r *Registry) Lookup(tid int) (sig.ThreadHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[tid]
	if !ok {
		return nil, false
	}
	return t, true
}

func (r *Registry) Current() sig.ThreadHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.threads[r.current]
	if !ok {
		return nil
	}
	return t
}

// Gate is a reference sig.InterruptGate backed by a plain flag. It is not
// safe for concurrent use from multiple goroutines simultaneously
// claiming a critical section, matching the single-CPU cooperative model
// the signal subsystem assumes.
type Gate struct {
	on bool
}

// NewGate returns a gate with interrupts enabled.
func NewGate() *Gate {
	return &Gate{on: true}
}

func (g *Gate) Enabled() bool { return g.on }

func (g *Gate) Disable() bool {
	prior := g.on
	g.on = false
	return prior
}

func (g *Gate) Restore(prior bool) { g.on = prior }

// UnblockQueue is a reference sig.UnblockQueue recording threads force-
// unblocked via SIG_UBLOCK, in arrival order.
type UnblockQueue struct {
	mu       sync.Mutex
	unblocks []sig.ThreadHandle
}

func NewUnblockQueue() *UnblockQueue {
	return &UnblockQueue{}
}

func (q *UnblockQueue) Push(t sig.ThreadHandle) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.unblocks = append(q.unblocks, t)
}

// Drain returns and clears every thread pushed so far, in arrival order.
func (q *UnblockQueue) Drain() []sig.ThreadHandle {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.unblocks
	q.unblocks = nil
	return out
}
