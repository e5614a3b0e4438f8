package bridge

import (
	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"go.uber.org/atomic"
)

// opCounter counts the operations of one sub-bridge. Every call is counted;
// failed calls are counted again as failures.
type opCounter struct {
	ops      *atomic.Uint64
	failures *atomic.Uint64
}

func newOpCounter() opCounter {
	return opCounter{
		ops:      atomic.NewUint64(0),
		failures: atomic.NewUint64(0),
	}
}

func (c opCounter) record(err error) error {
	c.ops.Inc()
	if err != nil {
		c.failures.Inc()
	}
	return err
}

// Stats returns the operation counters.
func (c opCounter) Stats() entities.SubBridgeStats {
	return entities.SubBridgeStats{
		Operations: c.ops.Load(),
		Failures:   c.failures.Load(),
	}
}

// ResetStats zeroes the operation counters.
func (c opCounter) ResetStats() {
	c.ops.Store(0)
	c.failures.Store(0)
}
