package sig

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Console is the default handlers' only external effect.
type Console interface {
	Printf(format string, args ...any)
}

// DefaultHandlers implements the standard signal effects: kill, user,
// CPU-limit and child-exit. A bloom filter deduplicates
// identical console lines so a thread hammering the same signal at the
// same pair of ids can't flood the console with repeats.
type DefaultHandlers struct {
	console Console
	audit   *AuditLog

	dedupMu sync.Mutex
	dedup   *bloom.BloomFilter
}

// HandlerOption configures DefaultHandlers at construction time.
type HandlerOption func(*DefaultHandlers)

// WithAuditLog records every dispatched signal into log, for a
// supervising process to flush later (e.g. on shutdown).
func WithAuditLog(log *AuditLog) HandlerOption {
	return func(h *DefaultHandlers) { h.audit = log }
}

// NewDefaultHandlers returns handlers that print through console.
func NewDefaultHandlers(console Console, opts ...HandlerOption) *DefaultHandlers {
	h := &DefaultHandlers{
		console: console,
		dedup:   bloom.NewWithEstimates(2048, 0.01),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Dispatch runs sig's default action on behalf of sender, against
// receiving thread t.
func (h *DefaultHandlers) Dispatch(t ThreadHandle, sig, sender int) {
	if h.audit != nil {
		h.audit.record(sig, sender, t.ID())
	}
	switch sig {
	case SigKill:
		h.print(fmt.Sprintf("%d Killed by %d", t.ID(), sender))
		t.Exit()
	case SigUser:
		h.print(fmt.Sprintf("%d sent SIG_USER to %d", sender, t.ID()))
	case SigCPU:
		h.print(fmt.Sprintf("Lifetime of %d = %d", t.ID(), t.Lifetime()))
		t.Exit()
	case SigChld:
		t.DecrementAlive()
		h.print(fmt.Sprintf("Thread %d: %d Children, %d alive", t.ID(), t.TotalChildren(), t.AliveChildren()))
	}
}

func (h *DefaultHandlers) print(line string) {
	key := []byte(line)

	h.dedupMu.Lock()
	seen := h.dedup.Test(key)
	h.dedup.Add(key)
	h.dedupMu.Unlock()

	if seen {
		return
	}
	h.console.Printf("%s\n", line)
}
