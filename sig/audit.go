package sig

import (
	"fmt"
	"io"
	"sync"

	"github.com/inos-systems/corekernel/utils"
)

// AuditEntry is one recorded signal dispatch.
type AuditEntry struct {
	ID     string
	Signal int
	Sender int
	Target int
}

// AuditLog accumulates AuditEntry records as default handlers dispatch
// signals, for a supervising process to flush (typically at shutdown).
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// NewAuditLog returns an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) record(signal, sender, target int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, AuditEntry{
		ID:     utils.GenerateID(),
		Signal: signal,
		Sender: sender,
		Target: target,
	})
}

// Len reports how many entries are currently buffered.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Flush writes every buffered entry to w, one per line, and clears the
// log. Safe to call from a registered GracefulShutdown function.
func (l *AuditLog) Flush(w io.Writer) error {
	l.mu.Lock()
	entries := l.entries
	l.entries = nil
	l.mu.Unlock()

	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s signal=%d sender=%d target=%d\n", e.ID, e.Signal, e.Sender, e.Target); err != nil {
			return err
		}
	}
	return nil
}
