package mm

import "sync"

// testPagePool is a local, fixed-capacity PageProvider for mm's own
// internal tests. It lives here instead of reusing internal/simhw to
// avoid simhw's import of this package from creating a cycle in mm's
// (same-package) test files.
type testPagePool struct {
	mu       sync.Mutex
	free     [][]byte
	capacity int
	issued   int
}

func newTestPagePool(capacity int) *testPagePool {
	return &testPagePool{capacity: capacity}
}

func (p *testPagePool) GetPage(flags PageFlags) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.free); n > 0 {
		page := p.free[n-1]
		p.free = p.free[:n-1]
		clear(page)
		p.issued++
		return page, nil
	}
	if p.issued >= p.capacity {
		return nil, ErrOutOfMemory
	}
	p.issued++
	return make([]byte, PageSize), nil
}

func (p *testPagePool) FreePage(page []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued--
	p.free = append(p.free, page)
	return nil
}
