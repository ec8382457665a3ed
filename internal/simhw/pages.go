// Package simhw provides reference implementations of the external
// collaborators mm and sig depend on but do not own: a page provider, a
// thread registry, and an interrupt gate. Production wiring of these
// belongs to the surrounding kernel; simhw exists so mm and sig compile,
// test, and demo standalone.
package simhw

import (
	"fmt"
	"sync"

	"github.com/inos-systems/corekernel/mm"
)

// PagePool is a fixed-capacity, in-memory mm.PageProvider. It simulates a
// kernel physical page allocator: GetPage hands out zeroed pages from a
// bounded pool, FreePage returns them.
type PagePool struct {
	mu       sync.Mutex
	pages    [][]byte
	capacity int
	issued   int
}

// NewPagePool returns a pool that can issue at most capacity pages
// simultaneously.
func NewPagePool(capacity int) *PagePool {
	return &PagePool{capacity: capacity}
}

func (p *PagePool) GetPage(flags mm.PageFlags) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.pages); n > 0 {
		page := p.pages[n-1]
		p.pages = p.pages[:n-1]
		clear(page)
		p.issued++
		return page, nil
	}
	if p.issued >= p.capacity {
		return nil, ErrPoolExhausted
	}
	p.issued++
	return make([]byte, mm.PageSize), nil
}

func (p *PagePool) FreePage(page []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued--
	p.pages = append(p.pages, page)
	return nil
}

// Issued reports how many pages are currently checked out.
func (p *PagePool) Issued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issued
}

// Close reports whether every page this pool ever issued has been
// returned. A supervising process registers this as its page-provider
// teardown step, the way a real kernel would refuse to release physical
// memory back to the platform while pages are still checked out.
func (p *PagePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.issued != 0 {
		return fmt.Errorf("simhw: page pool closed with %d pages still issued", p.issued)
	}
	return nil
}
