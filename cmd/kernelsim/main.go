// Command kernelsim drives the buddy allocator and signal subsystem
// through a handful of scripted scenarios and prints diagnostics, the way
// a kernel's debug console would.
package main

import (
	"context"
	"os"
	"time"

	"github.com/inos-systems/corekernel/internal/simhw"
	"github.com/inos-systems/corekernel/mm"
	"github.com/inos-systems/corekernel/sig"
	"github.com/inos-systems/corekernel/utils"
)

func main() {
	logger := utils.DefaultLogger("kernelsim")
	shutdown := utils.NewGracefulShutdown(5*time.Second, logger)

	pages := runAllocatorDemo(logger)
	shutdown.Register(pages.Close)

	audit := runSignalDemo(logger)
	shutdown.Register(func() error { return audit.Flush(os.Stdout) })

	if err := shutdown.Shutdown(context.Background()); err != nil {
		logger.Error("shutdown failed", utils.Err(err))
	}
}

func runAllocatorDemo(logger *utils.Logger) *simhw.PagePool {
	pages := simhw.NewPagePool(8)
	breaker := mm.NewBreakingPageProvider(pages, logger)
	alloc := mm.NewAllocator(breaker,
		mm.WithLogger(logger),
		mm.WithPoisonFree(true),
		mm.WithPrintRateLimit(5, 5))

	logger.Info("allocating 256 sixteen-byte blocks")
	blocks := make([]mm.Ptr, 0, 256)
	for i := 0; i < 256; i++ {
		p, err := alloc.Alloc(16)
		if err != nil {
			logger.Error("alloc failed", utils.Err(err), utils.Int("i", i))
			break
		}
		blocks = append(blocks, p)
	}

	if err := alloc.PrintMemory(os.Stdout); err != nil {
		logger.Warn("print_memory skipped", utils.Err(err))
	}

	for _, p := range blocks {
		if err := alloc.Free(p); err != nil {
			logger.Error("free failed", utils.Err(err))
		}
	}

	stats := alloc.Stats()
	logger.Info("allocator demo complete",
		utils.Uint64("allocs", stats.Allocs),
		utils.Uint64("frees", stats.Frees),
		utils.Uint64("refills", stats.Refills),
		utils.Uint64("page_frees", stats.PageFrees))

	return pages
}

func runSignalDemo(logger *utils.Logger) *sig.AuditLog {
	registry := simhw.NewRegistry()
	gate := simhw.NewGate()
	unblock := simhw.NewUnblockQueue()
	api := sig.NewAPI(gate, registry, unblock, sig.WithLogger(logger))
	audit := sig.NewAuditLog()
	handlers := sig.NewDefaultHandlers(simhw.WriterConsole{W: os.Stdout}, sig.WithAuditLog(audit))

	parent := simhw.NewThread(3, 1)
	child := simhw.NewThread(4, 3)
	registry.Add(parent)
	registry.Add(child)
	parent.AddChild()

	if err := api.Send(7, 4, sig.SigUser); err != nil {
		logger.Warn("send failed", utils.Err(err))
	}
	if err := api.Send(8, 4, sig.SigUser); err != nil {
		logger.Warn("send failed", utils.Err(err))
	}
	if _, err := api.Deliver(child, handlers); err != nil {
		logger.Warn("deliver failed", utils.Err(err))
	}

	if err := api.Send(99, 4, sig.SigKill); err != nil {
		logger.Info("unauthorized kill correctly rejected", utils.Err(err))
	}
	if err := api.Send(3, 4, sig.SigKill); err != nil {
		logger.Warn("send failed", utils.Err(err))
	}
	if _, err := api.Deliver(child, handlers); err != nil {
		logger.Warn("deliver failed", utils.Err(err))
	}

	return audit
}
