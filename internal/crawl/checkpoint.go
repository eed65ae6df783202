package crawl

import "sync"

// checkpointTracker decides when lastCompletedRegion may advance while
// regions complete out of order. The checkpoint only ever moves across a
// contiguous completed prefix of the run order, so "skip up to X inclusive"
// stays exact after a crash: at worst a non-contiguous tail is redone, which
// URL dedup makes idempotent.
type checkpointTracker struct {
	mu    sync.Mutex
	order []string
	done  map[string]bool
	next  int // index of the first region not yet part of the prefix
}

func newCheckpointTracker(order []string) *checkpointTracker {
	return &checkpointTracker{
		order: order,
		done:  make(map[string]bool, len(order)),
	}
}

// complete records a drained region and returns the new checkpoint value if
// the prefix advanced.
func (c *checkpointTracker) complete(region string) (checkpoint string, advanced bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done[region] = true
	for c.next < len(c.order) && c.done[c.order[c.next]] {
		checkpoint = c.order[c.next]
		c.next++
		advanced = true
	}
	return checkpoint, advanced
}
