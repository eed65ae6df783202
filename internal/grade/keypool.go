package grade

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoCredential means every configured key is cooling and the bounded wait
// expired. The caller persists the lead ungraded.
var ErrNoCredential = errors.New("no grading credential available")

// keyPool tracks one slot per configured credential. A slot is either
// available or cooling until a deadline; cooldown state lives only for the
// life of the process.
type keyPool struct {
	mu        sync.Mutex
	keys      []string
	coolUntil []time.Time
	next      int

	cooldown time.Duration
	maxWait  time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func newKeyPool(keys []string, cooldown, maxWait time.Duration) *keyPool {
	return &keyPool{
		keys:      keys,
		coolUntil: make([]time.Time, len(keys)),
		cooldown:  cooldown,
		maxWait:   maxWait,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func (p *keyPool) size() int { return len(p.keys) }

// acquire returns the first available credential in round-robin order.
// If all are cooling it sleeps until the earliest wake-up, bounded by
// maxWait, and retries selection once.
func (p *keyPool) acquire(ctx context.Context) (idx int, key string, err error) {
	if idx, key, ok := p.tryAcquire(); ok {
		return idx, key, nil
	}

	wait := p.earliestWake()
	if wait > p.maxWait {
		wait = p.maxWait
	}
	if wait > 0 {
		if err := p.sleep(ctx, wait); err != nil {
			return 0, "", err
		}
	}

	if idx, key, ok := p.tryAcquire(); ok {
		return idx, key, nil
	}
	return 0, "", ErrNoCredential
}

func (p *keyPool) tryAcquire() (int, string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.keys)
	if n == 0 {
		return 0, "", false
	}
	now := p.now()
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		if !now.Before(p.coolUntil[idx]) {
			p.next = (idx + 1) % n
			return idx, p.keys[idx], true
		}
	}
	return 0, "", false
}

// markCooling puts one credential on cooldown after a provider rate limit.
func (p *keyPool) markCooling(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx < 0 || idx >= len(p.coolUntil) {
		return
	}
	p.coolUntil[idx] = p.now().Add(p.cooldown)
}

func (p *keyPool) earliestWake() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var min time.Duration = -1
	for _, until := range p.coolUntil {
		if until.After(now) {
			d := until.Sub(now)
			if min < 0 || d < min {
				min = d
			}
		}
	}
	if min < 0 {
		return 0
	}
	return min
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
