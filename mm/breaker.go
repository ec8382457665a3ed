package mm

import (
	"time"

	"github.com/sony/gobreaker"

	"github.com/inos-systems/corekernel/utils"
)

// BreakingPageProvider wraps a PageProvider with a circuit breaker so a
// sustained run of GetPage failures trips open and fails fast instead of
// hammering an exhausted provider on every refill.
type BreakingPageProvider struct {
	inner  PageProvider
	cb     *gobreaker.CircuitBreaker
	logger *utils.Logger
}

// NewBreakingPageProvider wraps inner. logger may be nil.
func NewBreakingPageProvider(inner PageProvider, logger *utils.Logger) *BreakingPageProvider {
	b := &BreakingPageProvider{inner: inner, logger: logger}
	settings := gobreaker.Settings{
		Name:        "mm.page-provider",
		MaxRequests: 1,
		Timeout:     2 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if b.logger != nil {
				b.logger.Warn("page provider circuit state change",
					utils.String("breaker", name),
					utils.String("from", from.String()),
					utils.String("to", to.String()))
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

func (b *BreakingPageProvider) GetPage(flags PageFlags) ([]byte, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.GetPage(flags)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (b *BreakingPageProvider) FreePage(page []byte) error {
	return b.inner.FreePage(page)
}
