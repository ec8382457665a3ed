package sig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inos-systems/corekernel/sig"
)

func TestNewStateStartsEmpty(t *testing.T) {
	s := sig.NewState()
	assert.Equal(t, uint(0), s.Mask.Count())
	assert.Equal(t, 0, s.Queue.Len())
	for i := 0; i < sig.NumSignals; i++ {
		assert.Equal(t, -1, s.Signals[i].Type)
		assert.Equal(t, -1, s.Signals[i].Sender)
	}
}
